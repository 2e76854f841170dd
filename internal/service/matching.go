package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lunajoy/matchengine/internal/domain"
	"github.com/lunajoy/matchengine/internal/metrics"
	"github.com/lunajoy/matchengine/internal/store"
	"go.uber.org/zap"
)

const (
	DefaultMatchLimit     = 9
	DefaultAnonymousLimit = 5
	MaxMatchLimit         = 50

	cancelCheckEvery = 64
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrClinicianNotFound = errors.New("clinician not found")
)

// MatchConfig holds the tunables of the matching pipeline.
type MatchConfig struct {
	DefaultLimit            int
	AnonymousLimit          int
	MaxLimit                int
	MinResults              int
	EnableDiversity         bool
	DiversityPenalty        float64
	ClusterBoost            float64
	HybridContentWeight     float64
	CFNeighbors             int
	CFMinCommon             int
	CFSimilarity            SimilarityMetric
	NewClinicianWindow      time.Duration
	EnableNewClinicianBoost bool
	SpecialtyCacheSize      int
	ExcludeRejected         bool
}

func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		DefaultLimit:            DefaultMatchLimit,
		AnonymousLimit:          DefaultAnonymousLimit,
		MaxLimit:                MaxMatchLimit,
		MinResults:              DefaultMinResults,
		EnableDiversity:         true,
		DiversityPenalty:        DefaultDiversityPenalty,
		ClusterBoost:            DefaultClusterBoost,
		HybridContentWeight:     DefaultHybridContentWeight,
		CFNeighbors:             DefaultCFNeighbors,
		CFMinCommon:             DefaultCFMinCommon,
		CFSimilarity:            SimilarityJaccard,
		NewClinicianWindow:      DefaultNewClinicianWindow,
		EnableNewClinicianBoost: true,
		SpecialtyCacheSize:      DefaultSpecialtyCacheSize,
		ExcludeRejected:         true,
	}
}

// MatchingService ranks clinicians for a request. Repositories are read
// before the pipeline runs; the stages themselves are pure.
type MatchingService struct {
	clinicians domain.ClinicianRepository
	users      domain.UserRepository
	reference  *ReferenceData
	favorites  domain.ClusterFavorites
	cfg        MatchConfig

	filter    *FilterStage
	scorer    *Scorer
	cf        *CollaborativeFilter
	diversity *DiversityReranker

	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewMatchingService(clinicians domain.ClinicianRepository, users domain.UserRepository, reference *ReferenceData, cfg MatchConfig, logger *zap.Logger) *MatchingService {
	scorer := NewScorer(cfg.SpecialtyCacheSize)
	if cfg.NewClinicianWindow > 0 {
		scorer.NewClinicianWindow = cfg.NewClinicianWindow
	}
	scorer.EnableNewClinicianBoost = cfg.EnableNewClinicianBoost

	return &MatchingService{
		clinicians: clinicians,
		users:      users,
		reference:  reference,
		favorites:  reference,
		cfg:        cfg,
		filter:     NewFilterStage(cfg.MinResults, logger),
		scorer:     scorer,
		cf:         NewCollaborativeFilter(cfg.CFNeighbors, cfg.CFMinCommon, cfg.CFSimilarity),
		diversity:  NewDiversityReranker(cfg.DiversityPenalty),
		logger:     logger,
		now:        time.Now,
	}
}

// SetFavorites replaces the snapshot-backed cluster favourites source.
func (s *MatchingService) SetFavorites(f domain.ClusterFavorites) {
	s.favorites = f
}

func (s *MatchingService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// MatchOptions are per-call overrides for matching a stored user.
type MatchOptions struct {
	Limit               int
	IncludeExplanations bool
}

// MatchUser loads a stored user and matches them with their tier strategy.
func (s *MatchingService) MatchUser(ctx context.Context, userID string, opts MatchOptions) (*domain.MatchResponse, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	req := domain.RequestFor(u)
	req.Limit = opts.Limit
	req.IncludeExplanations = opts.IncludeExplanations
	return s.Match(ctx, req)
}

func (s *MatchingService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrUserNotFound, err)
		}
		return nil, err
	}
	return u, nil
}

func (s *MatchingService) GetClinician(ctx context.Context, id string) (*domain.Clinician, error) {
	c, err := s.clinicians.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrClinicianNotFound, err)
		}
		return nil, err
	}
	return c, nil
}

// ListClinicians returns the catalogue, optionally narrowed to clinicians
// licensed in state and offering appointment type.
func (s *MatchingService) ListClinicians(ctx context.Context, state string, appt domain.AppointmentType) ([]domain.Clinician, error) {
	all, err := s.clinicians.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clinicians: %w", err)
	}
	result := make([]domain.Clinician, 0, len(all))
	for i := range all {
		if state != "" && !all[i].LicensedIn(state) {
			continue
		}
		if appt != "" && !all[i].Offers(appt) {
			continue
		}
		result = append(result, all[i])
	}
	return result, nil
}

// Match runs the tier strategy for req. An empty result is not an error.
func (s *MatchingService) Match(ctx context.Context, req domain.MatchRequest) (*domain.MatchResponse, error) {
	start := s.now()
	strategy := domain.StrategyFor(req.Tier)

	resp, err := s.match(ctx, &req, strategy, start)
	elapsed := s.now().Sub(start)

	results := 0
	if resp != nil {
		results = len(resp.Matches)
		resp.ProcessingTimeMS = float64(elapsed.Microseconds()) / 1000
	}
	s.metrics.ObserveMatch(string(strategy), elapsed, results, err)

	if err != nil {
		var verr *domain.ValidationError
		if !errors.As(err, &verr) && !errors.Is(err, context.Canceled) {
			s.logger.Error("match failed",
				zap.String("strategy", string(strategy)),
				zap.String("user_id", req.UserID),
				zap.Error(err))
		}
		return nil, err
	}

	s.logger.Debug("match completed",
		zap.String("strategy", string(strategy)),
		zap.String("user_id", req.UserID),
		zap.Int("candidates", resp.TotalCandidates),
		zap.Int("results", results),
		zap.Duration("took", elapsed))
	return resp, nil
}

func (s *MatchingService) match(ctx context.Context, req *domain.MatchRequest, strategy domain.Strategy, now time.Time) (*domain.MatchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	weights := domain.WeightsFor(req.Preferences.Urgency())
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	all, err := s.clinicians.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load clinicians: %w", err)
	}

	var exclude domain.IDSet
	if req.Tier == domain.RegistrationComplete && s.cfg.ExcludeRejected {
		exclude = rejectedClinicians(req.History)
	}
	filtered, report := s.filter.Filter(all, req.Preferences, exclude)

	resp := &domain.MatchResponse{
		Matches:         []domain.MatchResult{},
		Strategy:        strategy,
		TotalCandidates: len(filtered),
		Filters:         report,
		Weights:         weights,
	}
	if len(filtered) == 0 {
		resp.Message = "No clinicians match your criteria"
		resp.Warnings = emptyResultWarnings(report, req.Preferences)
		return resp, nil
	}
	if report.Sparse {
		resp.Warnings = append(resp.Warnings,
			fmt.Sprintf("Only %d clinicians meet your requirements", report.Final))
	}

	var cs []candidate
	switch req.Tier {
	case domain.RegistrationAnonymous:
		cs, err = s.scoreAll(ctx, filtered, req, weights, SpecialtyBasic, now, true)
	case domain.RegistrationBasic:
		cs, err = s.scoreAll(ctx, filtered, req, weights, SpecialtyEnhanced, now, false)
		if err == nil {
			cluster := AssignCluster(req)
			resp.ClusterID = &cluster
			resp.ClusterName = cluster.Name()
			s.applyClusterBoost(ctx, cs, cluster)
		}
	case domain.RegistrationComplete:
		cs, err = s.scoreAll(ctx, filtered, req, weights, SpecialtyHistoryAware, now, true)
		if err == nil {
			s.applyCollaborative(ctx, cs, req)
		}
	}
	if err != nil {
		return nil, err
	}

	sortCandidates(cs)
	if req.Tier != domain.RegistrationAnonymous && s.cfg.EnableDiversity {
		cs = s.diversity.Rerank(cs)
	}

	limit := s.limitFor(req)
	if len(cs) > limit {
		cs = cs[:limit]
	}

	resp.Matches = make([]domain.MatchResult, len(cs))
	for i := range cs {
		c := &cs[i]
		c.breakdown.FinalScore = c.score
		resp.Matches[i] = domain.MatchResult{
			Rank:      i + 1,
			Clinician: c.clinician,
			Score:     c.score,
			Breakdown: c.breakdown,
		}
		if req.IncludeExplanations {
			resp.Matches[i].Explanation = s.explain(c, req)
		}
	}
	return resp, nil
}

// scoreAll scores every filtered clinician, checking for cancellation
// between candidates.
func (s *MatchingService) scoreAll(ctx context.Context, filtered []domain.Clinician, req *domain.MatchRequest, weights domain.WeightProfile, mode SpecialtyMode, now time.Time, clamp bool) ([]candidate, error) {
	cs := make([]candidate, len(filtered))
	for i := range filtered {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		var score float64
		var b domain.ScoreBreakdown
		if clamp {
			score, b = s.scorer.Score(&filtered[i], req, weights, mode, now)
		} else {
			score, b = s.scorer.Unclamped(&filtered[i], req, weights, mode, now)
		}
		cs[i] = candidate{clinician: &filtered[i], score: score, breakdown: b}
	}
	return cs, nil
}

// applyClusterBoost multiplies favourites of cluster by the cluster boost,
// then clamps every score. A failing favourites source degrades to no boost.
func (s *MatchingService) applyClusterBoost(ctx context.Context, cs []candidate, cluster domain.ClusterID) {
	favorites, err := s.favorites.Get(ctx, cluster)
	if err != nil {
		s.logger.Warn("cluster favorites unavailable, skipping boost",
			zap.Int("cluster_id", int(cluster)),
			zap.Error(err))
	}
	for i := range cs {
		if favorites.Has(cs[i].clinician.ID) {
			cs[i].score *= s.cfg.ClusterBoost
			cs[i].breakdown.ClusterBoost = s.cfg.ClusterBoost
		}
		cs[i].score = clamp01(cs[i].score)
	}
}

// applyCollaborative blends content scores with collaborative predictions.
// Without a snapshot every prediction is neutral.
func (s *MatchingService) applyCollaborative(ctx context.Context, cs []candidate, req *domain.MatchRequest) {
	var matrix InteractionMatrix
	snap, err := s.reference.Ensure(ctx)
	if err != nil {
		s.logger.Warn("interaction matrix unavailable, using neutral predictions", zap.Error(err))
	} else {
		matrix = snap.Matrix
	}

	ids := make([]string, len(cs))
	for i := range cs {
		ids[i] = cs[i].clinician.ID
	}
	predictions := s.cf.Predict(matrix, req.UserID, req.History, ids)

	for i := range cs {
		content := cs[i].score
		collaborative := predictions[cs[i].clinician.ID]
		cs[i].breakdown.ContentScore = &content
		cs[i].breakdown.CollaborativeScore = &collaborative
		cs[i].score = HybridScore(content, collaborative, s.cfg.HybridContentWeight)
	}
}

func (s *MatchingService) limitFor(req *domain.MatchRequest) int {
	limit := req.Limit
	if limit <= 0 {
		if req.Tier == domain.RegistrationAnonymous {
			limit = s.cfg.AnonymousLimit
		} else {
			limit = s.cfg.DefaultLimit
		}
	}
	if s.cfg.MaxLimit > 0 && limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	return limit
}

func rejectedClinicians(history []domain.Interaction) domain.IDSet {
	var ids []string
	for _, in := range history {
		if in.Action == domain.ActionRejected {
			ids = append(ids, in.ClinicianID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return domain.NewIDSet(ids...)
}

func emptyResultWarnings(report domain.FilterReport, prefs domain.StatedPreferences) []string {
	if report.Initial == 0 {
		return []string{"The clinician catalogue is empty"}
	}
	for _, step := range report.Steps {
		if step.After > 0 {
			continue
		}
		switch step.Name {
		case "state_license":
			return []string{fmt.Sprintf("No clinicians are licensed in %s", prefs.State)}
		case "appointment_type":
			return []string{fmt.Sprintf("No clinicians in %s offer %s appointments", prefs.State, prefs.AppointmentType)}
		case "accepting_new_patients":
			return []string{"Matching clinicians are not accepting new patients right now"}
		case "exclusions":
			return []string{"All matching clinicians were previously declined"}
		}
	}
	return nil
}
