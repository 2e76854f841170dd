package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lunajoy/matchengine/internal/domain"
)

type InteractionStore struct {
	db *pgxpool.Pool
}

func NewInteractionStore(db *pgxpool.Pool) *InteractionStore {
	return &InteractionStore{db: db}
}

func (s *InteractionStore) Record(ctx context.Context, in *domain.Interaction) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO interactions (id, user_id, clinician_id, action, occurred_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		in.ID, in.UserID, in.ClinicianID, string(in.Action), in.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	return nil
}

func (s *InteractionStore) ListAll(ctx context.Context) ([]domain.Interaction, error) {
	return s.list(ctx,
		`SELECT id, user_id, clinician_id, action, occurred_at
		 FROM interactions ORDER BY occurred_at, id`)
}

func (s *InteractionStore) ListByUser(ctx context.Context, userID string) ([]domain.Interaction, error) {
	return s.list(ctx,
		`SELECT id, user_id, clinician_id, action, occurred_at
		 FROM interactions WHERE user_id = $1 ORDER BY occurred_at, id`, userID)
}

func (s *InteractionStore) list(ctx context.Context, query string, args ...any) ([]domain.Interaction, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var result []domain.Interaction
	for rows.Next() {
		var in domain.Interaction
		if err := rows.Scan(&in.ID, &in.UserID, &in.ClinicianID, &in.Action, &in.Timestamp); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		result = append(result, in)
	}
	return result, rows.Err()
}
