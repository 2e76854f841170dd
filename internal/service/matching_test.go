package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/lunajoy/matchengine/internal/domain"
	"github.com/lunajoy/matchengine/internal/store"
)

type matchFixture struct {
	clinicians   *mockClinicianRepo
	users        *mockUserRepo
	interactions *mockInteractionStore
	reference    *ReferenceData
	svc          *MatchingService
}

func newMatchFixture(cfg MatchConfig, clinicians ...domain.Clinician) *matchFixture {
	f := &matchFixture{
		clinicians:   &mockClinicianRepo{clinicians: clinicians},
		users:        newMockUserRepo(),
		interactions: &mockInteractionStore{},
	}
	f.reference = NewReferenceData(f.users, f.interactions, DefaultFavoritesPerCluster, testLogger())
	f.svc = NewMatchingService(f.clinicians, f.users, f.reference, cfg, testLogger())
	f.svc.now = func() time.Time { return testNow }
	return f
}

func identicalClinicians(n int) []domain.Clinician {
	cs := make([]domain.Clinician, n)
	for i := range cs {
		cs[i] = testClinician(fmt.Sprintf("c%02d", i+1))
	}
	return cs
}

func matchIDs(resp *domain.MatchResponse) []string {
	out := make([]string, len(resp.Matches))
	for i, m := range resp.Matches {
		out[i] = m.Clinician.ID
	}
	return out
}

func TestMatch_AnonymousDefaultsToTopFive(t *testing.T) {
	f := newMatchFixture(DefaultMatchConfig(), identicalClinicians(8)...)

	resp, err := f.svc.Match(context.Background(), *anonymousRequest(testPrefs()))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Strategy != domain.StrategyContentBased {
		t.Errorf("strategy = %s, want content_based", resp.Strategy)
	}
	if resp.ClusterID != nil {
		t.Errorf("anonymous match should not carry a cluster, got %d", *resp.ClusterID)
	}
	if resp.TotalCandidates != 8 {
		t.Errorf("total candidates = %d, want 8", resp.TotalCandidates)
	}

	// Equal scores fall back to clinician id order.
	want := []string{"c01", "c02", "c03", "c04", "c05"}
	if got := matchIDs(resp); !reflect.DeepEqual(got, want) {
		t.Errorf("matches = %v, want %v", got, want)
	}
	for i, m := range resp.Matches {
		if m.Rank != i+1 {
			t.Errorf("match %d has rank %d", i, m.Rank)
		}
		if m.Explanation != nil {
			t.Error("explanations were not requested")
		}
	}
}

func TestMatch_SortsByScore(t *testing.T) {
	cs := identicalClinicians(4)
	for i := range cs {
		cs[i].CurrentPatientCount = 25
	}
	cs[2].CurrentPatientCount = 1
	cs[1].CurrentPatientCount = 38

	f := newMatchFixture(DefaultMatchConfig(), cs...)
	resp, err := f.svc.Match(context.Background(), *anonymousRequest(testPrefs()))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := matchIDs(resp); got[0] != "c03" || got[len(got)-1] != "c02" {
		t.Errorf("unexpected order %v", got)
	}
	for i := 1; i < len(resp.Matches); i++ {
		if resp.Matches[i].Score > resp.Matches[i-1].Score {
			t.Errorf("match %d scores above match %d", i, i-1)
		}
	}
}

func TestMatch_HardFiltersNeverLeak(t *testing.T) {
	caOnly := testClinician("ca-only")
	caOnly.CurrentPatientCount = 0
	f := newMatchFixture(DefaultMatchConfig(), caOnly)

	prefs := testPrefs()
	prefs.State = "TX"
	resp, err := f.svc.Match(context.Background(), *anonymousRequest(prefs))
	if err != nil {
		t.Fatalf("an empty result is not an error, got %v", err)
	}
	if resp.Matches == nil || len(resp.Matches) != 0 {
		t.Fatalf("expected an empty, non-nil match list, got %v", resp.Matches)
	}
	if resp.Message == "" {
		t.Error("expected a no-matches message")
	}
	if len(resp.Warnings) != 1 || !strings.Contains(resp.Warnings[0], "TX") {
		t.Errorf("unexpected warnings %v", resp.Warnings)
	}
}

func TestMatch_ValidationError(t *testing.T) {
	f := newMatchFixture(DefaultMatchConfig(), identicalClinicians(2)...)

	prefs := testPrefs()
	prefs.State = ""
	_, err := f.svc.Match(context.Background(), *anonymousRequest(prefs))

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if verr.Field != "preferences.state" {
		t.Errorf("field = %s, want preferences.state", verr.Field)
	}

	_, err = f.svc.Match(context.Background(), domain.MatchRequest{Tier: "premium", Preferences: testPrefs()})
	if !errors.As(err, &verr) || verr.Field != "registration_type" {
		t.Errorf("expected registration_type validation error, got %v", err)
	}
}

func TestMatchUser_UnknownUser(t *testing.T) {
	f := newMatchFixture(DefaultMatchConfig(), identicalClinicians(2)...)

	_, err := f.svc.MatchUser(context.Background(), "ghost", MatchOptions{})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected the store sentinel to stay in the chain, got %v", err)
	}
}

func TestMatch_RepositoryFailure(t *testing.T) {
	f := newMatchFixture(DefaultMatchConfig())
	f.clinicians.err = errors.New("connection refused")

	_, err := f.svc.Match(context.Background(), *anonymousRequest(testPrefs()))
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected wrapped repository error, got %v", err)
	}
}

func TestMatch_BasicAppliesClusterBoost(t *testing.T) {
	f := newMatchFixture(DefaultMatchConfig(), identicalClinicians(4)...)
	f.svc.SetFavorites(&mockFavorites{sets: map[domain.ClusterID]domain.IDSet{
		domain.ClusterTrauma: domain.NewIDSet("c03"),
	}})

	prefs := testPrefs()
	prefs.ClinicalNeeds = []string{"trauma"}
	req := domain.MatchRequest{Tier: domain.RegistrationBasic, UserID: "u1", Preferences: prefs}

	resp, err := f.svc.Match(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Strategy != domain.StrategyContentClustering {
		t.Errorf("strategy = %s, want content_clustering", resp.Strategy)
	}
	if resp.ClusterID == nil || *resp.ClusterID != domain.ClusterTrauma {
		t.Fatalf("cluster = %v, want trauma", resp.ClusterID)
	}
	if resp.ClusterName == "" {
		t.Error("expected a cluster name")
	}

	top := resp.Matches[0]
	if top.Clinician.ID != "c03" {
		t.Fatalf("expected boosted c03 first, got %v", matchIDs(resp))
	}
	if top.Breakdown.ClusterBoost != DefaultClusterBoost {
		t.Errorf("cluster boost = %v, want %v", top.Breakdown.ClusterBoost, DefaultClusterBoost)
	}
	if !floatEq(top.Score, resp.Matches[1].Score*DefaultClusterBoost) {
		t.Errorf("boosted score %v, want %v", top.Score, resp.Matches[1].Score*DefaultClusterBoost)
	}
	for _, m := range resp.Matches[1:] {
		if m.Breakdown.ClusterBoost != 1 {
			t.Errorf("%s should not be boosted", m.Clinician.ID)
		}
	}
}

func TestMatch_BasicBoostIsClamped(t *testing.T) {
	full := 1.0
	c := testClinician("c1")
	c.AvailabilityScore = &full
	c.Specialties = []string{"trauma"}
	c.SuccessBySpecialty = map[string]float64{"trauma": 1}
	c.CurrentPatientCount = 0
	c.CreatedAt = testNow.AddDate(0, 0, -2)

	f := newMatchFixture(DefaultMatchConfig(), c)
	f.svc.SetFavorites(&mockFavorites{sets: map[domain.ClusterID]domain.IDSet{
		domain.ClusterTrauma: domain.NewIDSet("c1"),
	}})

	prefs := testPrefs()
	prefs.ClinicalNeeds = []string{"trauma"}
	prefs.InsuranceProvider = ""
	resp, err := f.svc.Match(context.Background(), domain.MatchRequest{Tier: domain.RegistrationBasic, Preferences: prefs})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s := resp.Matches[0].Score; s < 0 || s > 1 {
		t.Errorf("score %v outside [0,1]", s)
	}
}

func TestMatch_FavoritesFailureDegrades(t *testing.T) {
	f := newMatchFixture(DefaultMatchConfig(), identicalClinicians(3)...)
	f.svc.SetFavorites(&mockFavorites{err: errors.New("redis down")})

	req := domain.MatchRequest{Tier: domain.RegistrationBasic, Preferences: testPrefs()}
	resp, err := f.svc.Match(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(resp.Matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(resp.Matches))
	}
	for _, m := range resp.Matches {
		if m.Breakdown.ClusterBoost != 1 {
			t.Errorf("%s boosted despite favourites failure", m.Clinician.ID)
		}
	}
}

func TestMatch_CompleteWithoutHistoryBlendsNeutral(t *testing.T) {
	cfg := DefaultMatchConfig()
	cfg.EnableDiversity = false
	cs := identicalClinicians(5)
	for i := range cs {
		cs[i].CurrentPatientCount = i * 9
	}
	f := newMatchFixture(cfg, cs...)

	req := domain.MatchRequest{Tier: domain.RegistrationComplete, UserID: "u1", Preferences: testPrefs()}
	resp, err := f.svc.Match(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Strategy != domain.StrategyCollaborativeHybrid {
		t.Errorf("strategy = %s, want collaborative_hybrid", resp.Strategy)
	}
	for _, m := range resp.Matches {
		b := m.Breakdown
		if b.CollaborativeScore == nil || *b.CollaborativeScore != 0.5 {
			t.Fatalf("%s collaborative score = %v, want 0.5", m.Clinician.ID, b.CollaborativeScore)
		}
		if !floatEq(m.Score, 0.6**b.ContentScore+0.4*0.5) {
			t.Errorf("%s score = %v, want 0.6 x %v + 0.2", m.Clinician.ID, m.Score, *b.ContentScore)
		}
	}
}

func TestMatch_CompleteUsesSimilarUsers(t *testing.T) {
	cfg := DefaultMatchConfig()
	cfg.EnableDiversity = false
	f := newMatchFixture(cfg, identicalClinicians(4)...)
	f.interactions.interactions = []domain.Interaction{
		interaction("u2", "c01", domain.ActionBooked),
		interaction("u2", "c02", domain.ActionBooked),
	}

	req := domain.MatchRequest{
		Tier:        domain.RegistrationComplete,
		UserID:      "u1",
		Preferences: testPrefs(),
		History: []domain.Interaction{
			interaction("u1", "c01", domain.ActionContacted),
			interaction("u1", "c04", domain.ActionRejected),
		},
	}
	resp, err := f.svc.Match(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got := matchIDs(resp)
	for _, id := range got {
		if id == "c04" {
			t.Fatal("rejected clinician c04 should be excluded")
		}
	}
	// c01 and c02 were booked by the neighbour; c03 stays neutral.
	want := []string{"c01", "c02", "c03"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("matches = %v, want %v", got, want)
	}
	if cf := *resp.Matches[1].Breakdown.CollaborativeScore; cf != 1 {
		t.Errorf("c02 collaborative score = %v, want 1", cf)
	}
	if cf := *resp.Matches[2].Breakdown.CollaborativeScore; cf != 0.5 {
		t.Errorf("c03 collaborative score = %v, want 0.5", cf)
	}
}

func TestMatch_CompleteMatrixFailureIsNeutral(t *testing.T) {
	f := newMatchFixture(DefaultMatchConfig(), identicalClinicians(2)...)
	f.interactions.err = errors.New("timeout")

	req := domain.MatchRequest{Tier: domain.RegistrationComplete, UserID: "u1", Preferences: testPrefs()}
	resp, err := f.svc.Match(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, m := range resp.Matches {
		if *m.Breakdown.CollaborativeScore != 0.5 {
			t.Errorf("%s collaborative score = %v, want neutral", m.Clinician.ID, *m.Breakdown.CollaborativeScore)
		}
	}
}

func TestMatch_Limits(t *testing.T) {
	f := newMatchFixture(DefaultMatchConfig(), identicalClinicians(60)...)
	basic := func(limit int) domain.MatchRequest {
		return domain.MatchRequest{Tier: domain.RegistrationBasic, Preferences: testPrefs(), Limit: limit}
	}

	tests := []struct {
		name string
		req  domain.MatchRequest
		want int
	}{
		{"basic default", basic(0), DefaultMatchLimit},
		{"explicit", basic(2), 2},
		{"capped", basic(500), MaxMatchLimit},
		{"anonymous explicit", domain.MatchRequest{Tier: domain.RegistrationAnonymous, Preferences: testPrefs(), Limit: 7}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := f.svc.Match(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(resp.Matches) != tt.want {
				t.Errorf("got %d matches, want %d", len(resp.Matches), tt.want)
			}
		})
	}
}

func TestMatch_Deterministic(t *testing.T) {
	cs := identicalClinicians(12)
	for i := range cs {
		cs[i].CurrentPatientCount = (i * 7) % 40
		if i%3 == 0 {
			cs[i].Gender = domain.GenderMale
		}
		if i%4 == 0 {
			cs[i].Specialties = []string{"depression", "anxiety"}
		}
	}
	f := newMatchFixture(DefaultMatchConfig(), cs...)

	prefs := testPrefs()
	prefs.InsuranceProvider = "Blue Cross"
	req := domain.MatchRequest{Tier: domain.RegistrationBasic, Preferences: prefs}

	first, err := f.svc.Match(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := f.svc.Match(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !reflect.DeepEqual(matchIDs(first), matchIDs(second)) {
		t.Errorf("results differ between runs: %v vs %v", matchIDs(first), matchIDs(second))
	}
	for i := range first.Matches {
		if first.Matches[i].Score != second.Matches[i].Score {
			t.Errorf("score %d differs: %v vs %v", i, first.Matches[i].Score, second.Matches[i].Score)
		}
		if s := first.Matches[i].Score; s < 0 || s > 1 {
			t.Errorf("score %v outside [0,1]", s)
		}
	}
}

func TestMatch_Explanations(t *testing.T) {
	f := newMatchFixture(DefaultMatchConfig(), identicalClinicians(2)...)

	prefs := testPrefs()
	prefs.PreferredTimeSlots = []string{"morning", "afternoon", "evening", "weekends"}
	req := *anonymousRequest(prefs)
	req.IncludeExplanations = true

	resp, err := f.svc.Match(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	exp := resp.Matches[0].Explanation
	if exp == nil {
		t.Fatal("expected an explanation")
	}
	if !reflect.DeepEqual(exp.MatchedNeeds, []string{"anxiety"}) {
		t.Errorf("matched needs = %v, want [anxiety]", exp.MatchedNeeds)
	}
	if len(exp.Reasons) == 0 || exp.Reasons[0] != "Specializes in anxiety" {
		t.Errorf("unexpected reasons %v", exp.Reasons)
	}
	if !reflect.DeepEqual(exp.MatchingTimeSlots, OpenTimeSlots(resp.Matches[0].Clinician.ID, prefs.PreferredTimeSlots)) {
		t.Errorf("time slots %v not stable", exp.MatchingTimeSlots)
	}
	if exp.Confidence == "" {
		t.Error("expected a confidence level")
	}
}

func TestMatchUser_StoredUser(t *testing.T) {
	f := newMatchFixture(DefaultMatchConfig(), identicalClinicians(10)...)
	prefs := testPrefs()
	prefs.InsuranceProvider = "Aetna"
	_ = f.users.Upsert(context.Background(), &domain.User{
		ID:               "u1",
		RegistrationType: domain.RegistrationBasic,
		Preferences:      prefs,
		Profile:          &domain.ProfileData{TherapyExperience: domain.ExperienceFirstTime},
	})

	resp, err := f.svc.MatchUser(context.Background(), "u1", MatchOptions{Limit: 4})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Strategy != domain.StrategyContentClustering || len(resp.Matches) != 4 {
		t.Errorf("strategy/len = %s/%d, want content_clustering/4", resp.Strategy, len(resp.Matches))
	}
	if resp.ClusterID == nil || *resp.ClusterID != domain.ClusterFirstTimeAnxiety {
		t.Errorf("cluster = %v, want first-time anxiety", resp.ClusterID)
	}
}

func TestMatch_CancelledContext(t *testing.T) {
	f := newMatchFixture(DefaultMatchConfig(), identicalClinicians(3)...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Match(ctx, *anonymousRequest(testPrefs()))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestListClinicians(t *testing.T) {
	cs := identicalClinicians(3)
	cs[1].LicenseStates = []string{"NY"}
	cs[2].AppointmentTypes = []domain.AppointmentType{domain.AppointmentMedication}
	f := newMatchFixture(DefaultMatchConfig(), cs...)

	got, err := f.svc.ListClinicians(context.Background(), "CA", domain.AppointmentTherapy)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 1 || got[0].ID != "c01" {
		t.Errorf("expected [c01], got %v", ids(got))
	}

	all, _ := f.svc.ListClinicians(context.Background(), "", "")
	if len(all) != 3 {
		t.Errorf("unfiltered list has %d clinicians, want 3", len(all))
	}

	_, err = f.svc.GetClinician(context.Background(), "missing")
	if !errors.Is(err, ErrClinicianNotFound) || !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrClinicianNotFound wrapping store.ErrNotFound, got %v", err)
	}
}
