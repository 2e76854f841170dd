package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError reports malformed match input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks the request shape. The first violation is returned as a
// *ValidationError.
func (r MatchRequest) Validate() error {
	if !ValidRegistrationType(string(r.Tier)) {
		return &ValidationError{Field: "registration_type", Reason: fmt.Sprintf("unknown tier %q", r.Tier)}
	}
	if err := ValidatePreferences(r.Preferences); err != nil {
		return err
	}
	if r.Profile != nil && r.Tier != RegistrationAnonymous {
		if err := validate.Struct(r.Profile); err != nil {
			return toValidationError("profile.", err)
		}
	}
	if r.Limit < 0 {
		return &ValidationError{Field: "limit", Reason: "must not be negative"}
	}
	for i, in := range r.History {
		if !ValidInteractionAction(string(in.Action)) {
			return &ValidationError{
				Field:  fmt.Sprintf("interaction_history[%d].action", i),
				Reason: fmt.Sprintf("unknown action %q", in.Action),
			}
		}
	}
	return nil
}

func ValidatePreferences(p StatedPreferences) error {
	if err := validate.Struct(p); err != nil {
		return toValidationError("preferences.", err)
	}
	return nil
}

func toValidationError(prefix string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: prefix + fieldPath(fe), Reason: reasonFor(fe)}
	}
	return &ValidationError{Reason: err.Error()}
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	case "alpha":
		return "must contain letters only"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
