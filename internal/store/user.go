package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lunajoy/matchengine/internal/domain"
	pgvector "github.com/pgvector/pgvector-go"
)

type UserStore struct {
	db           *pgxpool.Pool
	interactions *InteractionStore
}

func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{db: db, interactions: NewInteractionStore(db)}
}

const userColumns = `id, email, registration_type, preferences, profile, preference_vector, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u   domain.User
		vec *pgvector.Vector
	)
	if err := row.Scan(&u.ID, &u.Email, &u.RegistrationType, &u.Preferences, &u.Profile, &vec, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if vec != nil {
		u.PreferenceVector = vec.Slice()
	}
	return &u, nil
}

// GetByID loads a user. Complete users also get their interaction history.
func (s *UserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if u.RegistrationType == domain.RegistrationComplete {
		history, err := s.interactions.ListByUser(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		u.History = history
	}
	return u, nil
}

func (s *UserStore) ListRegistered(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE registration_type IN ('basic', 'complete')
		 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list registered users: %w", err)
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		result = append(result, *u)
	}
	return result, rows.Err()
}

func (s *UserStore) Upsert(ctx context.Context, u *domain.User) error {
	var vec *pgvector.Vector
	if len(u.PreferenceVector) > 0 {
		v := pgvector.NewVector(u.PreferenceVector)
		vec = &v
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO users (id, email, registration_type, preferences, profile, preference_vector)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		     email = EXCLUDED.email,
		     registration_type = EXCLUDED.registration_type,
		     preferences = EXCLUDED.preferences,
		     profile = EXCLUDED.profile,
		     preference_vector = EXCLUDED.preference_vector,
		     updated_at = NOW()
		 RETURNING created_at, updated_at`,
		u.ID, u.Email, string(u.RegistrationType), u.Preferences, u.Profile, vec,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
}
