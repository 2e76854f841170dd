package service

import (
	"fmt"
	"strings"

	"github.com/lunajoy/matchengine/internal/domain"
)

const (
	highConfidenceScore   = 0.8
	highConfidenceReasons = 3
	mediumConfidenceScore = 0.6
)

// timeSlotAvailability is the simulated share of clinicians open in a slot.
var timeSlotAvailability = map[string]uint64{
	"morning":   80,
	"afternoon": 90,
	"evening":   70,
	"weekends":  50,
}

// OpenTimeSlots returns the requested slots the clinician is simulated to
// offer. The result is stable for a given clinician and slot.
func OpenTimeSlots(clinicianID string, slots []string) []string {
	var open []string
	for _, slot := range slots {
		p, ok := timeSlotAvailability[slot]
		if !ok {
			continue
		}
		if stableHash(clinicianID, ":", slot)%100 < p {
			open = append(open, slot)
		}
	}
	return open
}

func (s *MatchingService) explain(c *candidate, req *domain.MatchRequest) *domain.Explanation {
	prefs := req.Preferences
	cl := c.clinician
	b := c.breakdown

	var reasons []string
	matched := s.scorer.MatchedNeeds(cl, prefs.ClinicalNeeds)
	if len(matched) > 0 {
		reasons = append(reasons, "Specializes in "+strings.Join(matched, ", "))
	}
	if prefs.HasInsurance() && AcceptsInsurance(cl.ID, prefs.InsuranceProvider) {
		reasons = append(reasons, "Accepts "+prefs.InsuranceProvider)
	}
	if prefs.Urgency() == domain.UrgencyImmediate && cl.ImmediateAvailability {
		reasons = append(reasons, "Available to start soon")
	}
	if prefs.PreferredLanguage != "" && cl.Speaks(prefs.PreferredLanguage) {
		reasons = append(reasons, "Speaks "+prefs.PreferredLanguage)
	}
	if prefs.PreferredGender != "" && cl.Gender == prefs.PreferredGender {
		reasons = append(reasons, "Matches your gender preference")
	}
	if b.LoadBalance >= 0.8 {
		reasons = append(reasons, "Has room in their caseload")
	}
	if b.NewClinicianBoost > 1 {
		reasons = append(reasons, "Recently joined with open availability")
	}
	if b.ClusterBoost > 1 {
		reasons = append(reasons, "Popular with people who have similar needs")
	}
	if b.CollaborativeScore != nil && *b.CollaborativeScore > neutralScore {
		reasons = append(reasons, fmt.Sprintf("Chosen by people with similar history (%.0f%% affinity)", *b.CollaborativeScore*100))
	}

	return &domain.Explanation{
		Reasons:           reasons,
		MatchedNeeds:      matched,
		MatchingTimeSlots: OpenTimeSlots(cl.ID, prefs.PreferredTimeSlots),
		Confidence:        confidenceFor(c.score, len(reasons)),
	}
}

func confidenceFor(score float64, reasons int) domain.ConfidenceLevel {
	switch {
	case score >= highConfidenceScore && reasons >= highConfidenceReasons:
		return domain.ConfidenceHigh
	case score >= mediumConfidenceScore:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
