package service

import (
	"math"
	"sort"

	"github.com/lunajoy/matchengine/internal/domain"
)

const (
	DefaultCFNeighbors = 20
	DefaultCFMinCommon = 1

	// DefaultHybridContentWeight is the content share of the hybrid score;
	// the collaborative share is its complement.
	DefaultHybridContentWeight = 0.6
)

// SimilarityMetric selects how two users' interaction vectors are compared.
type SimilarityMetric string

const (
	SimilarityJaccard SimilarityMetric = "jaccard"
	SimilarityCosine  SimilarityMetric = "cosine"
)

func ParseSimilarityMetric(s string) SimilarityMetric {
	if SimilarityMetric(s) == SimilarityCosine {
		return SimilarityCosine
	}
	return SimilarityJaccard
}

// InteractionVector maps clinician id to the strongest interaction score.
type InteractionVector map[string]float64

// InteractionMatrix maps user id to that user's interaction vector. It is
// never mutated after BuildInteractionMatrix returns.
type InteractionMatrix map[string]InteractionVector

// BuildInteractionMatrix folds interactions into a matrix, keeping the
// maximum score for each (user, clinician) pair.
func BuildInteractionMatrix(interactions []domain.Interaction) InteractionMatrix {
	m := make(InteractionMatrix)
	for _, in := range interactions {
		row, ok := m[in.UserID]
		if !ok {
			row = make(InteractionVector)
			m[in.UserID] = row
		}
		foldMax(row, in.ClinicianID, in.Action.Score())
	}
	return m
}

func foldMax(row InteractionVector, clinicianID string, score float64) {
	if prev, ok := row[clinicianID]; !ok || score > prev {
		row[clinicianID] = score
	}
}

// Neighbor is a similar user found by the collaborative filter.
type Neighbor struct {
	UserID     string
	Similarity float64
	Shared     int
}

// CollaborativeFilter predicts user-clinician affinity from the behaviour
// of similar users.
type CollaborativeFilter struct {
	K         int
	MinCommon int
	Metric    SimilarityMetric
}

func NewCollaborativeFilter(k, minCommon int, metric SimilarityMetric) *CollaborativeFilter {
	if k <= 0 {
		k = DefaultCFNeighbors
	}
	if minCommon <= 0 {
		minCommon = DefaultCFMinCommon
	}
	return &CollaborativeFilter{K: k, MinCommon: minCommon, Metric: metric}
}

// TargetVector merges the user's matrix row with the supplied history,
// keeping the maximum per clinician. The matrix is not modified.
func TargetVector(m InteractionMatrix, userID string, history []domain.Interaction) InteractionVector {
	target := make(InteractionVector, len(m[userID])+len(history))
	for id, score := range m[userID] {
		target[id] = score
	}
	for _, in := range history {
		foldMax(target, in.ClinicianID, in.Action.Score())
	}
	return target
}

// Neighbors returns up to K users most similar to target, ordered by
// similarity desc, shared count desc, then user id asc.
func (f *CollaborativeFilter) Neighbors(m InteractionMatrix, userID string, target InteractionVector) []Neighbor {
	if len(target) == 0 {
		return nil
	}

	var neighbors []Neighbor
	for other, row := range m {
		if other == userID {
			continue
		}
		shared := 0
		for id := range target {
			if _, ok := row[id]; ok {
				shared++
			}
		}
		if shared < f.MinCommon {
			continue
		}
		sim := f.similarity(target, row, shared)
		if sim <= 0 {
			continue
		}
		neighbors = append(neighbors, Neighbor{UserID: other, Similarity: sim, Shared: shared})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		a, b := neighbors[i], neighbors[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.Shared != b.Shared {
			return a.Shared > b.Shared
		}
		return a.UserID < b.UserID
	})
	if len(neighbors) > f.K {
		neighbors = neighbors[:f.K]
	}
	return neighbors
}

func (f *CollaborativeFilter) similarity(a, b InteractionVector, shared int) float64 {
	if f.Metric == SimilarityCosine {
		var dot, normA, normB float64
		for id, va := range a {
			if vb, ok := b[id]; ok {
				dot += va * vb
				normA += va * va
				normB += vb * vb
			}
		}
		if normA == 0 || normB == 0 {
			return 0
		}
		return dot / (math.Sqrt(normA) * math.Sqrt(normB))
	}

	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

// Predict returns an affinity in [0,1] for each candidate: the mean of the
// neighbours' scores for it, or 0.5 when no neighbour interacted with it.
func (f *CollaborativeFilter) Predict(m InteractionMatrix, userID string, history []domain.Interaction, candidateIDs []string) map[string]float64 {
	neighbors := f.Neighbors(m, userID, TargetVector(m, userID, history))

	predictions := make(map[string]float64, len(candidateIDs))
	for _, id := range candidateIDs {
		var sum float64
		var n int
		for _, nb := range neighbors {
			if score, ok := m[nb.UserID][id]; ok {
				sum += score
				n++
			}
		}
		if n == 0 {
			predictions[id] = neutralScore
			continue
		}
		predictions[id] = clamp01(sum / float64(n))
	}
	return predictions
}

// HybridScore blends content and collaborative scores and clamps the result.
func HybridScore(content, collaborative, contentWeight float64) float64 {
	return clamp01(contentWeight*content + (1-contentWeight)*collaborative)
}
