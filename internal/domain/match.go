package domain

type Strategy string

const (
	StrategyContentBased        Strategy = "content_based"
	StrategyContentClustering   Strategy = "content_clustering"
	StrategyCollaborativeHybrid Strategy = "collaborative_hybrid"
)

// StrategyFor maps a registration tier to its matching strategy.
func StrategyFor(t RegistrationType) Strategy {
	switch t {
	case RegistrationBasic:
		return StrategyContentClustering
	case RegistrationComplete:
		return StrategyCollaborativeHybrid
	default:
		return StrategyContentBased
	}
}

// ScoreBreakdown explains how a match score was assembled. Multiplicative
// adjustments are 1.0 when they did not apply.
type ScoreBreakdown struct {
	Availability       float64  `json:"availability"`
	Insurance          float64  `json:"insurance"`
	Specialties        float64  `json:"specialties"`
	LoadBalance        float64  `json:"load_balance"`
	Preferences        float64  `json:"preferences"`
	Weighted           float64  `json:"weighted"`
	NewClinicianBoost  float64  `json:"new_clinician_boost"`
	OverloadPenalty    float64  `json:"overload_penalty"`
	ClusterBoost       float64  `json:"cluster_boost"`
	ContentScore       *float64 `json:"content_score,omitempty"`
	CollaborativeScore *float64 `json:"collaborative_score,omitempty"`
	DiversityFactor    float64  `json:"diversity_factor"`
	FinalScore         float64  `json:"final_score"`
}

// Factors returns the raw per-factor scores keyed by factor.
func (b ScoreBreakdown) Factors() map[Factor]float64 {
	return map[Factor]float64{
		FactorAvailability: b.Availability,
		FactorInsurance:    b.Insurance,
		FactorSpecialties:  b.Specialties,
		FactorLoadBalance:  b.LoadBalance,
		FactorPreferences:  b.Preferences,
	}
}

type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

type Explanation struct {
	Reasons           []string        `json:"reasons"`
	MatchedNeeds      []string        `json:"matched_needs,omitempty"`
	MatchingTimeSlots []string        `json:"matching_time_slots,omitempty"`
	Confidence        ConfidenceLevel `json:"confidence"`
}

type MatchResult struct {
	Rank        int            `json:"rank"`
	Clinician   *Clinician     `json:"clinician"`
	Score       float64        `json:"score"`
	Breakdown   ScoreBreakdown `json:"score_breakdown"`
	Explanation *Explanation   `json:"explanation,omitempty"`
}

type FilterImpact string

const (
	ImpactHigh   FilterImpact = "high"
	ImpactMedium FilterImpact = "medium"
	ImpactLow    FilterImpact = "low"
)

type FilterStep struct {
	Name        string       `json:"name"`
	Value       string       `json:"value,omitempty"`
	Before      int          `json:"before"`
	After       int          `json:"after"`
	RemovalRate float64      `json:"removal_rate"`
	Impact      FilterImpact `json:"impact"`
}

// FilterReport records the effect of each hard-constraint filter.
type FilterReport struct {
	Initial int          `json:"initial"`
	Final   int          `json:"final"`
	Steps   []FilterStep `json:"steps"`
	Sparse  bool         `json:"sparse"`
}

type MatchResponse struct {
	Matches          []MatchResult `json:"matches"`
	Strategy         Strategy      `json:"strategy_used"`
	ClusterID        *ClusterID    `json:"cluster_id,omitempty"`
	ClusterName      string        `json:"cluster_name,omitempty"`
	TotalCandidates  int           `json:"total_candidates"`
	Filters          FilterReport  `json:"filters_applied"`
	Weights          WeightProfile `json:"weights_used"`
	ProcessingTimeMS float64       `json:"processing_time_ms"`
	Message          string        `json:"message,omitempty"`
	Warnings         []string      `json:"warnings,omitempty"`
}
