package service

import (
	"sort"
	"strings"

	"github.com/lunajoy/matchengine/internal/domain"
	"go.uber.org/zap"
)

const (
	// DefaultMinResults flags a filtered set smaller than this as sparse.
	DefaultMinResults = 3

	highImpactRate   = 0.5
	mediumImpactRate = 0.2
)

// FilterStage removes clinicians that fail a hard constraint. The relative
// order of survivors is preserved and no constraint is ever relaxed.
type FilterStage struct {
	MinResults int
	logger     *zap.Logger
}

func NewFilterStage(minResults int, logger *zap.Logger) *FilterStage {
	return &FilterStage{MinResults: minResults, logger: logger}
}

type hardFilter struct {
	name  string
	value string
	keep  func(c *domain.Clinician) bool
}

// Filter applies state licensure, appointment type, accepting-new-patients
// and the exclusion set, in that order. It stops as soon as nothing is left.
func (f *FilterStage) Filter(candidates []domain.Clinician, prefs domain.StatedPreferences, exclude domain.IDSet) ([]domain.Clinician, domain.FilterReport) {
	filters := []hardFilter{
		{
			name:  "state_license",
			value: prefs.State,
			keep:  func(c *domain.Clinician) bool { return c.LicensedIn(prefs.State) },
		},
		{
			name:  "appointment_type",
			value: string(prefs.AppointmentType),
			keep:  func(c *domain.Clinician) bool { return c.Offers(prefs.AppointmentType) },
		},
		{
			name: "accepting_new_patients",
			keep: func(c *domain.Clinician) bool { return c.AcceptingNewPatients },
		},
	}
	if len(exclude) > 0 {
		filters = append(filters, hardFilter{
			name:  "exclusions",
			value: joinIDs(exclude),
			keep:  func(c *domain.Clinician) bool { return !exclude.Has(c.ID) },
		})
	}

	report := domain.FilterReport{Initial: len(candidates)}
	current := candidates
	for _, hf := range filters {
		if len(current) == 0 {
			break
		}
		before := len(current)
		next := make([]domain.Clinician, 0, before)
		for i := range current {
			if hf.keep(&current[i]) {
				next = append(next, current[i])
			}
		}
		report.Steps = append(report.Steps, filterStep(hf, before, len(next)))
		current = next
	}
	report.Final = len(current)

	if report.Final < f.MinResults {
		report.Sparse = true
		f.logger.Warn("hard filters left few candidates",
			zap.Int("initial", report.Initial),
			zap.Int("remaining", report.Final),
			zap.Int("min_results", f.MinResults),
			zap.String("state", prefs.State),
			zap.String("appointment_type", string(prefs.AppointmentType)))
	}
	return current, report
}

func filterStep(hf hardFilter, before, after int) domain.FilterStep {
	rate := 0.0
	if before > 0 {
		rate = float64(before-after) / float64(before)
	}
	impact := domain.ImpactLow
	switch {
	case rate > highImpactRate:
		impact = domain.ImpactHigh
	case rate > mediumImpactRate:
		impact = domain.ImpactMedium
	}
	return domain.FilterStep{
		Name:        hf.name,
		Value:       hf.value,
		Before:      before,
		After:       after,
		RemovalRate: rate,
		Impact:      impact,
	}
}

func joinIDs(s domain.IDSet) string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}
