package service

import (
	"context"
	"math"
	"time"

	"github.com/lunajoy/matchengine/internal/domain"
	"github.com/lunajoy/matchengine/internal/store"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 0.0001
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// testClinician returns an accepting CA therapist with moderate load,
// created well outside the new-clinician window.
func testClinician(id string) domain.Clinician {
	return domain.Clinician{
		ID:                   id,
		Name:                 "Dr. " + id,
		LicenseStates:        []string{"CA"},
		AppointmentTypes:     []domain.AppointmentType{domain.AppointmentTherapy},
		Specialties:          []string{"anxiety", "depression"},
		Languages:            []string{"English"},
		Gender:               domain.GenderFemale,
		AcceptingNewPatients: true,
		CurrentPatientCount:  10,
		MaxPatientCapacity:   40,
		CreatedAt:            testNow.AddDate(-2, 0, 0),
	}
}

func testPrefs() domain.StatedPreferences {
	return domain.StatedPreferences{
		State:           "CA",
		AppointmentType: domain.AppointmentTherapy,
		ClinicalNeeds:   []string{"anxiety"},
	}
}

// mockClinicianRepo implements domain.ClinicianRepository for testing.
type mockClinicianRepo struct {
	clinicians []domain.Clinician
	err        error
}

func (m *mockClinicianRepo) ListAll(ctx context.Context) ([]domain.Clinician, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Clinician, len(m.clinicians))
	copy(out, m.clinicians)
	return out, nil
}

func (m *mockClinicianRepo) GetByID(ctx context.Context, id string) (*domain.Clinician, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.clinicians {
		if m.clinicians[i].ID == id {
			c := m.clinicians[i]
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockClinicianRepo) Upsert(ctx context.Context, c *domain.Clinician) error {
	for i := range m.clinicians {
		if m.clinicians[i].ID == c.ID {
			m.clinicians[i] = *c
			return nil
		}
	}
	m.clinicians = append(m.clinicians, *c)
	return nil
}

func (m *mockClinicianRepo) UpdateCapacity(ctx context.Context, id string, currentPatients int, accepting bool) error {
	for i := range m.clinicians {
		if m.clinicians[i].ID == id {
			m.clinicians[i].CurrentPatientCount = currentPatients
			m.clinicians[i].AcceptingNewPatients = accepting
			return nil
		}
	}
	return store.ErrNotFound
}

// mockUserRepo implements domain.UserRepository for testing.
type mockUserRepo struct {
	users map[string]*domain.User
	err   error
}

func newMockUserRepo(users ...domain.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[string]*domain.User)}
	for i := range users {
		u := users[i]
		m.users[u.ID] = &u
	}
	return m
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) ListRegistered(ctx context.Context) ([]domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.User
	for _, u := range m.users {
		if u.RegistrationType == domain.RegistrationAnonymous {
			continue
		}
		cp := *u
		cp.History = nil
		out = append(out, cp)
	}
	return out, nil
}

func (m *mockUserRepo) Upsert(ctx context.Context, u *domain.User) error {
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

// mockInteractionStore implements domain.InteractionStore for testing.
type mockInteractionStore struct {
	interactions []domain.Interaction
	err          error
	listCalls    int
}

func (m *mockInteractionStore) Record(ctx context.Context, in *domain.Interaction) error {
	if m.err != nil {
		return m.err
	}
	m.interactions = append(m.interactions, *in)
	return nil
}

func (m *mockInteractionStore) ListAll(ctx context.Context) ([]domain.Interaction, error) {
	m.listCalls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.Interaction(nil), m.interactions...), nil
}

func (m *mockInteractionStore) ListByUser(ctx context.Context, userID string) ([]domain.Interaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Interaction
	for _, in := range m.interactions {
		if in.UserID == userID {
			out = append(out, in)
		}
	}
	return out, nil
}

// mockFavorites implements domain.ClusterFavorites for testing.
type mockFavorites struct {
	sets map[domain.ClusterID]domain.IDSet
	err  error
}

func (m *mockFavorites) Get(ctx context.Context, cluster domain.ClusterID) (domain.IDSet, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.sets[cluster], nil
}

// mockPublisher implements domain.FavoritesPublisher for testing.
type mockPublisher struct {
	published map[domain.ClusterID][]string
	calls     int
	err       error
}

func (m *mockPublisher) Publish(ctx context.Context, favorites map[domain.ClusterID][]string) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.published = favorites
	return nil
}

func interaction(userID, clinicianID string, action domain.InteractionAction) domain.Interaction {
	return domain.Interaction{UserID: userID, ClinicianID: clinicianID, Action: action, Timestamp: testNow}
}
