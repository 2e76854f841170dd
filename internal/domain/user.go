package domain

import (
	"time"
)

type RegistrationType string

const (
	RegistrationAnonymous RegistrationType = "anonymous"
	RegistrationBasic     RegistrationType = "basic"
	RegistrationComplete  RegistrationType = "complete"
)

func ValidRegistrationType(r string) bool {
	switch RegistrationType(r) {
	case RegistrationAnonymous, RegistrationBasic, RegistrationComplete:
		return true
	}
	return false
}

type UrgencyLevel string

const (
	UrgencyImmediate UrgencyLevel = "immediate"
	UrgencyFlexible  UrgencyLevel = "flexible"
)

type TherapyExperience string

const (
	ExperienceFirstTime TherapyExperience = "first_time"
	ExperienceSome      TherapyExperience = "some_experience"
	ExperienceSeasoned  TherapyExperience = "experienced"
)

// StatedPreferences are the hard and soft constraints a user supplies.
type StatedPreferences struct {
	State              string          `json:"state" validate:"required,len=2,alpha"`
	AppointmentType    AppointmentType `json:"appointment_type" validate:"required,oneof=therapy medication"`
	ClinicalNeeds      []string        `json:"clinical_needs,omitempty" validate:"dive,required"`
	PreferredGender    Gender          `json:"preferred_gender,omitempty" validate:"omitempty,oneof=male female non_binary"`
	PreferredLanguage  string          `json:"preferred_language,omitempty"`
	UrgencyLevel       UrgencyLevel    `json:"urgency_level,omitempty" validate:"omitempty,oneof=immediate flexible"`
	InsuranceProvider  string          `json:"insurance_provider,omitempty"`
	PreferredTimeSlots []string        `json:"preferred_time_slots,omitempty" validate:"dive,oneof=morning afternoon evening weekends"`
}

// Language returns the stated language or DefaultLanguage.
func (p StatedPreferences) Language() string {
	if p.PreferredLanguage == "" {
		return DefaultLanguage
	}
	return p.PreferredLanguage
}

// Urgency returns the stated urgency, defaulting to flexible.
func (p StatedPreferences) Urgency() UrgencyLevel {
	if p.UrgencyLevel == "" {
		return UrgencyFlexible
	}
	return p.UrgencyLevel
}

func (p StatedPreferences) HasInsurance() bool {
	return p.InsuranceProvider != ""
}

// HasNeed reports whether any of names appears in the clinical needs.
func (p StatedPreferences) HasNeed(names ...string) bool {
	for _, need := range p.ClinicalNeeds {
		for _, n := range names {
			if need == n {
				return true
			}
		}
	}
	return false
}

type ProfileData struct {
	AgeRange          string            `json:"age_range,omitempty"`
	TherapyExperience TherapyExperience `json:"therapy_experience,omitempty" validate:"omitempty,oneof=first_time some_experience experienced"`
	TherapyGoals      []string          `json:"therapy_goals,omitempty"`
}

// User is a stored patient record. Profile is only meaningful for basic and
// complete registrations; History and PreferenceVector only for complete.
type User struct {
	ID               string            `json:"id"`
	Email            string            `json:"email,omitempty"`
	RegistrationType RegistrationType  `json:"registration_type"`
	Preferences      StatedPreferences `json:"preferences"`
	Profile          *ProfileData      `json:"profile,omitempty"`
	History          []Interaction     `json:"interaction_history,omitempty"`
	PreferenceVector []float32         `json:"preference_vector,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// MatchRequest is the input of a single match call. Only the fields relevant
// to Tier are consulted by the pipeline.
type MatchRequest struct {
	Tier                RegistrationType  `json:"registration_type"`
	UserID              string            `json:"user_id,omitempty"`
	Preferences         StatedPreferences `json:"preferences"`
	Profile             *ProfileData      `json:"profile,omitempty"`
	History             []Interaction     `json:"interaction_history,omitempty"`
	PreferenceVector    []float32         `json:"preference_vector,omitempty"`
	Limit               int               `json:"limit,omitempty"`
	IncludeExplanations bool              `json:"include_explanations,omitempty"`
}

// Experience returns the profile's therapy experience, empty for
// anonymous requests.
func (r MatchRequest) Experience() TherapyExperience {
	if r.Tier == RegistrationAnonymous || r.Profile == nil {
		return ""
	}
	return r.Profile.TherapyExperience
}

// RequestFor builds the match request for a stored user, keeping only
// the data relevant to the user's tier.
func RequestFor(u *User) MatchRequest {
	req := MatchRequest{
		Tier:        u.RegistrationType,
		UserID:      u.ID,
		Preferences: u.Preferences,
	}
	switch u.RegistrationType {
	case RegistrationBasic:
		req.Profile = u.Profile
	case RegistrationComplete:
		req.Profile = u.Profile
		req.History = u.History
		req.PreferenceVector = u.PreferenceVector
	}
	return req
}
