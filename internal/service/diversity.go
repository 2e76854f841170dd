package service

import (
	"sort"

	"github.com/lunajoy/matchengine/internal/domain"
)

const (
	// DefaultDiversityPenalty is the largest score reduction a tail
	// candidate can receive, reached when all attributes overlap.
	DefaultDiversityPenalty = 0.1
	// DefaultProtectedTop is how many leading results keep their position.
	DefaultProtectedTop = 3

	diversityAttributes = 3
)

// candidate is a clinician moving through the ranking stages.
type candidate struct {
	clinician *domain.Clinician
	score     float64
	breakdown domain.ScoreBreakdown
}

// sortCandidates orders by score desc, ties by clinician id asc.
func sortCandidates(cs []candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].score != cs[j].score {
			return cs[i].score > cs[j].score
		}
		return cs[i].clinician.ID < cs[j].clinician.ID
	})
}

// DiversityReranker lightly penalises tail candidates that share gender,
// primary specialty or primary language with results already shown.
type DiversityReranker struct {
	Penalty      float64
	ProtectedTop int
}

func NewDiversityReranker(penalty float64) *DiversityReranker {
	if penalty < 0 || penalty > 1 {
		penalty = DefaultDiversityPenalty
	}
	return &DiversityReranker{Penalty: penalty, ProtectedTop: DefaultProtectedTop}
}

type seenAttributes struct {
	genders     map[domain.Gender]struct{}
	specialties map[string]struct{}
	languages   map[string]struct{}
}

func (s *seenAttributes) add(c *domain.Clinician) {
	s.genders[c.Gender] = struct{}{}
	s.specialties[c.PrimarySpecialty()] = struct{}{}
	s.languages[c.PrimaryLanguage()] = struct{}{}
}

func (s *seenAttributes) overlap(c *domain.Clinician) int {
	n := 0
	if _, ok := s.genders[c.Gender]; ok {
		n++
	}
	if _, ok := s.specialties[c.PrimarySpecialty()]; ok {
		n++
	}
	if _, ok := s.languages[c.PrimaryLanguage()]; ok {
		n++
	}
	return n
}

// Factor is the multiplier for a candidate overlapping on n attributes.
// It is 1 with no overlap and never exceeds 1.
func (d *DiversityReranker) Factor(n int) float64 {
	return 1 - d.Penalty*float64(n)/diversityAttributes
}

// Rerank expects cs sorted by score. The protected head is returned
// unchanged; the tail is penalised in score order and re-sorted. The input
// slice is reordered in place.
func (d *DiversityReranker) Rerank(cs []candidate) []candidate {
	if len(cs) <= d.ProtectedTop {
		return cs
	}

	seen := seenAttributes{
		genders:     make(map[domain.Gender]struct{}),
		specialties: make(map[string]struct{}),
		languages:   make(map[string]struct{}),
	}
	for i := 0; i < d.ProtectedTop; i++ {
		seen.add(cs[i].clinician)
	}

	tail := cs[d.ProtectedTop:]
	for i := range tail {
		factor := d.Factor(seen.overlap(tail[i].clinician))
		tail[i].score *= factor
		tail[i].breakdown.DiversityFactor = factor
		tail[i].breakdown.FinalScore = tail[i].score
		seen.add(tail[i].clinician)
	}
	sortCandidates(tail)
	return cs
}
