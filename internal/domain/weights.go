package domain

import "math"

type Factor string

const (
	FactorAvailability Factor = "availability"
	FactorInsurance    Factor = "insurance"
	FactorSpecialties  Factor = "specialties"
	FactorLoadBalance  Factor = "load_balance"
	FactorPreferences  Factor = "preferences"
)

// Factors lists every scoring factor in breakdown order.
var Factors = []Factor{
	FactorAvailability,
	FactorInsurance,
	FactorSpecialties,
	FactorLoadBalance,
	FactorPreferences,
}

// WeightProfile holds the per-factor weights for one urgency level.
type WeightProfile struct {
	Availability float64 `json:"availability"`
	Insurance    float64 `json:"insurance"`
	Specialties  float64 `json:"specialties"`
	LoadBalance  float64 `json:"load_balance"`
	Preferences  float64 `json:"preferences"`
}

var (
	UrgentWeights = WeightProfile{
		Availability: 0.40,
		Insurance:    0.20,
		Specialties:  0.20,
		LoadBalance:  0.10,
		Preferences:  0.10,
	}
	FlexibleWeights = WeightProfile{
		Availability: 0.25,
		Insurance:    0.25,
		Specialties:  0.25,
		LoadBalance:  0.15,
		Preferences:  0.10,
	}
)

// WeightTolerance bounds how far a profile's sum may drift from 1.
const WeightTolerance = 1e-9

// WeightsFor returns the weight profile for an urgency level.
func WeightsFor(u UrgencyLevel) WeightProfile {
	if u == UrgencyImmediate {
		return UrgentWeights
	}
	return FlexibleWeights
}

func (w WeightProfile) Sum() float64 {
	return w.Availability + w.Insurance + w.Specialties + w.LoadBalance + w.Preferences
}

func (w WeightProfile) Weight(f Factor) float64 {
	switch f {
	case FactorAvailability:
		return w.Availability
	case FactorInsurance:
		return w.Insurance
	case FactorSpecialties:
		return w.Specialties
	case FactorLoadBalance:
		return w.LoadBalance
	case FactorPreferences:
		return w.Preferences
	}
	return 0
}

// Validate rejects negative weights and profiles that do not sum to 1.
func (w WeightProfile) Validate() error {
	for _, f := range Factors {
		if w.Weight(f) < 0 {
			return &ValidationError{Field: "weights." + string(f), Reason: "must not be negative"}
		}
	}
	sum := w.Sum()
	if sum <= 0 {
		return &ValidationError{Field: "weights", Reason: "sum must be positive"}
	}
	if math.Abs(sum-1) > WeightTolerance {
		return &ValidationError{Field: "weights", Reason: "must sum to 1"}
	}
	return nil
}
