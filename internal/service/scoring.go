package service

import (
	"math"
	"time"

	"github.com/lunajoy/matchengine/internal/domain"
)

const (
	DefaultNewClinicianWindow = 30 * 24 * time.Hour
	DefaultNewClinicianBoost  = 1.1
	DefaultOverloadThreshold  = 0.85
	DefaultOverloadPenalty    = 0.7

	neutralScore = 0.5

	urgentAvailable   = 1.0
	urgentUnavailable = 0.2

	flexibleAcceptingBase    = 0.6
	flexibleNotAcceptingBase = 0.3
	acceptingBonus           = 0.2

	preferredInsuranceThreshold = 85
	defaultInsuranceThreshold   = 70

	specialtyBasicWeight   = 0.6
	specialtySuccessWeight = 0.4
	specialtyVectorWeight  = 0.5

	preferenceMatch           = 1.0
	preferenceEnglishFallback = 0.7
	preferenceMismatch        = 0.5
)

// preferredInsurers are networks with wider simulated acceptance.
var preferredInsurers = map[string]bool{
	"Aetna":      true,
	"Blue Cross": true,
}

// SpecialtyMode selects how the specialties factor is computed.
type SpecialtyMode int

const (
	SpecialtyBasic SpecialtyMode = iota
	SpecialtyEnhanced
	SpecialtyHistoryAware
)

// Scorer computes the weighted content score of a clinician for a request.
// It holds no per-request state; the overlap memo is internally synchronised.
type Scorer struct {
	NewClinicianWindow      time.Duration
	NewClinicianBoost       float64
	EnableNewClinicianBoost bool
	OverloadThreshold       float64
	OverloadPenalty         float64

	overlap *specialtyOverlap
}

func NewScorer(specialtyCacheSize int) *Scorer {
	return &Scorer{
		NewClinicianWindow:      DefaultNewClinicianWindow,
		NewClinicianBoost:       DefaultNewClinicianBoost,
		EnableNewClinicianBoost: true,
		OverloadThreshold:       DefaultOverloadThreshold,
		OverloadPenalty:         DefaultOverloadPenalty,
		overlap:                 newSpecialtyOverlap(specialtyCacheSize),
	}
}

// Score returns the content score clamped to [0,1] and its breakdown.
func (s *Scorer) Score(c *domain.Clinician, req *domain.MatchRequest, weights domain.WeightProfile, mode SpecialtyMode, now time.Time) (float64, domain.ScoreBreakdown) {
	raw, b := s.Unclamped(c, req, weights, mode, now)
	b.FinalScore = clamp01(raw)
	return b.FinalScore, b
}

// Unclamped returns the adjusted weighted score before clamping, so that
// later multiplicative boosts compose before the final clamp.
func (s *Scorer) Unclamped(c *domain.Clinician, req *domain.MatchRequest, weights domain.WeightProfile, mode SpecialtyMode, now time.Time) (float64, domain.ScoreBreakdown) {
	prefs := req.Preferences
	b := domain.ScoreBreakdown{
		Availability:      AvailabilityScore(c, prefs.Urgency()),
		Insurance:         InsuranceScore(c.ID, prefs.InsuranceProvider),
		Specialties:       s.SpecialtyScore(c, req, mode),
		LoadBalance:       LoadBalanceScore(c.LoadRatio()),
		Preferences:       PreferenceScore(c, prefs),
		NewClinicianBoost: 1.0,
		OverloadPenalty:   1.0,
		ClusterBoost:      1.0,
		DiversityFactor:   1.0,
	}

	b.Weighted = weights.Availability*b.Availability +
		weights.Insurance*b.Insurance +
		weights.Specialties*b.Specialties +
		weights.LoadBalance*b.LoadBalance +
		weights.Preferences*b.Preferences

	raw := b.Weighted
	if s.EnableNewClinicianBoost && c.IsNew(now, s.NewClinicianWindow) {
		b.NewClinicianBoost = s.NewClinicianBoost
		raw *= s.NewClinicianBoost
	}
	if c.LoadRatio() > s.OverloadThreshold {
		b.OverloadPenalty = s.OverloadPenalty
		raw *= s.OverloadPenalty
	}
	b.FinalScore = raw
	return raw, b
}

// AvailabilityScore favours clinicians who can see the user soon. Urgent
// requests only look at immediate availability; flexible ones start from the
// supplied availability datum.
func AvailabilityScore(c *domain.Clinician, urgency domain.UrgencyLevel) float64 {
	if urgency == domain.UrgencyImmediate {
		if c.ImmediateAvailability {
			return urgentAvailable
		}
		return urgentUnavailable
	}

	var base float64
	switch {
	case c.AvailabilityScore != nil:
		base = clamp01(*c.AvailabilityScore)
	case c.AcceptingNewPatients:
		base = flexibleAcceptingBase
	default:
		base = flexibleNotAcceptingBase
	}
	if c.AcceptingNewPatients {
		base += acceptingBonus
	}
	return math.Min(base, 1.0)
}

// InsuranceScore simulates network participation with a stable hash of the
// clinician and provider. No provider scores neutral.
func InsuranceScore(clinicianID, provider string) float64 {
	if provider == "" {
		return neutralScore
	}
	if AcceptsInsurance(clinicianID, provider) {
		return 1.0
	}
	return 0.0
}

func AcceptsInsurance(clinicianID, provider string) bool {
	threshold := uint64(defaultInsuranceThreshold)
	if preferredInsurers[provider] {
		threshold = preferredInsuranceThreshold
	}
	return stableHash(clinicianID, provider)%100 < threshold
}

// SpecialtyScore rates how well the clinician covers the user's needs.
func (s *Scorer) SpecialtyScore(c *domain.Clinician, req *domain.MatchRequest, mode SpecialtyMode) float64 {
	ov := s.overlap.compute(c.Specialties, req.Preferences.ClinicalNeeds)
	basic := neutralScore
	if ov.needs > 0 {
		basic = float64(len(ov.matched)) / float64(ov.needs)
	}
	if mode == SpecialtyBasic {
		return basic
	}

	enhanced := basic
	var sum float64
	var n int
	for _, need := range ov.matched {
		if rate, ok := c.SuccessBySpecialty[need]; ok {
			sum += rate
			n++
		}
	}
	if n > 0 {
		enhanced = specialtyBasicWeight*basic + specialtySuccessWeight*(sum/float64(n))
	}
	if mode == SpecialtyEnhanced {
		return enhanced
	}

	if len(req.PreferenceVector) == 0 || len(req.PreferenceVector) != len(c.SpecialtyVector) {
		return enhanced
	}
	sim := math.Max(0, cosineSimilarity(req.PreferenceVector, c.SpecialtyVector))
	return specialtyVectorWeight*enhanced + (1-specialtyVectorWeight)*sim
}

// MatchedNeeds returns the distinct clinical needs the clinician covers,
// sorted.
func (s *Scorer) MatchedNeeds(c *domain.Clinician, needs []string) []string {
	ov := s.overlap.compute(c.Specialties, needs)
	return append([]string(nil), ov.matched...)
}

// LoadBalanceScore prefers clinicians with spare capacity.
func LoadBalanceScore(ratio float64) float64 {
	switch {
	case ratio < 0.5:
		return 1.0
	case ratio < 0.7:
		return 0.8
	case ratio < 0.85:
		return 0.6
	default:
		return 0.3
	}
}

// PreferenceScore averages the soft gender and language components the
// user stated. Mismatches lower the score without excluding anyone.
func PreferenceScore(c *domain.Clinician, prefs domain.StatedPreferences) float64 {
	var components []float64
	if prefs.PreferredGender != "" {
		if c.Gender == prefs.PreferredGender {
			components = append(components, preferenceMatch)
		} else {
			components = append(components, preferenceMismatch)
		}
	}
	if prefs.PreferredLanguage != "" {
		switch {
		case c.Speaks(prefs.PreferredLanguage):
			components = append(components, preferenceMatch)
		case c.Speaks(domain.DefaultLanguage):
			components = append(components, preferenceEnglishFallback)
		default:
			components = append(components, preferenceMismatch)
		}
	}
	if len(components) == 0 {
		return neutralScore
	}
	var sum float64
	for _, v := range components {
		sum += v
	}
	return sum / float64(len(components))
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
