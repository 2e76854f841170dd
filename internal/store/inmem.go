package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lunajoy/matchengine/internal/domain"
)

// InMemoryStore keeps clinicians, users and interactions in process. It
// backs the memory storage mode and tests. Returned values are copies.
type InMemoryStore struct {
	mu           sync.RWMutex
	clinicians   map[string]domain.Clinician
	users        map[string]domain.User
	interactions []domain.Interaction
	now          func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		clinicians: make(map[string]domain.Clinician),
		users:      make(map[string]domain.User),
		now:        time.Now,
	}
}

// Clinicians exposes the store as a domain.ClinicianRepository.
func (s *InMemoryStore) Clinicians() *InMemoryClinicians { return (*InMemoryClinicians)(s) }

// Users exposes the store as a domain.UserRepository.
func (s *InMemoryStore) Users() *InMemoryUsers { return (*InMemoryUsers)(s) }

// Interactions exposes the store as a domain.InteractionStore.
func (s *InMemoryStore) Interactions() *InMemoryInteractions { return (*InMemoryInteractions)(s) }

type (
	InMemoryClinicians   InMemoryStore
	InMemoryUsers        InMemoryStore
	InMemoryInteractions InMemoryStore
)

func (r *InMemoryClinicians) ListAll(ctx context.Context) ([]domain.Clinician, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Clinician, 0, len(r.clinicians))
	for _, c := range r.clinicians {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *InMemoryClinicians) GetByID(ctx context.Context, id string) (*domain.Clinician, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clinicians[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *InMemoryClinicians) Upsert(ctx context.Context, c *domain.Clinician) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if existing, ok := r.clinicians[c.ID]; ok && c.CreatedAt.IsZero() {
		c.CreatedAt = existing.CreatedAt
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	r.clinicians[c.ID] = *c
	return nil
}

func (r *InMemoryClinicians) UpdateCapacity(ctx context.Context, id string, currentPatients int, accepting bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clinicians[id]
	if !ok {
		return ErrNotFound
	}
	c.CurrentPatientCount = currentPatients
	c.AcceptingNewPatients = accepting
	c.UpdatedAt = r.now()
	r.clinicians[id] = c
	return nil
}

func (r *InMemoryUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.RegistrationType == domain.RegistrationComplete {
		u.History = (*InMemoryInteractions)(r).byUserLocked(id)
	}
	return &u, nil
}

func (r *InMemoryUsers) ListRegistered(ctx context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.User
	for _, u := range r.users {
		if u.RegistrationType == domain.RegistrationAnonymous {
			continue
		}
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *InMemoryUsers) Upsert(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if existing, ok := r.users[u.ID]; ok {
		u.CreatedAt = existing.CreatedAt
	} else {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	stored := *u
	stored.History = nil
	r.users[u.ID] = stored
	return nil
}

func (r *InMemoryInteractions) Record(ctx context.Context, in *domain.Interaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.interactions = append(r.interactions, *in)
	return nil
}

func (r *InMemoryInteractions) ListAll(ctx context.Context) ([]domain.Interaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Interaction, len(r.interactions))
	copy(result, r.interactions)
	return result, nil
}

func (r *InMemoryInteractions) ListByUser(ctx context.Context, userID string) ([]domain.Interaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.byUserLocked(userID), nil
}

func (r *InMemoryInteractions) byUserLocked(userID string) []domain.Interaction {
	var result []domain.Interaction
	for _, in := range r.interactions {
		if in.UserID == userID {
			result = append(result, in)
		}
	}
	return result
}
