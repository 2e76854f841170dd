package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lunajoy/matchengine/internal/domain"
	"github.com/lunajoy/matchengine/internal/store"
	"go.uber.org/zap"
)

var ErrInvalidInteraction = errors.New("invalid interaction")

// InteractionService records implicit feedback. New interactions reach the
// collaborative filter on the next reference refresh.
type InteractionService struct {
	store      domain.InteractionStore
	clinicians domain.ClinicianRepository
	logger     *zap.Logger
	now        func() time.Time
}

func NewInteractionService(s domain.InteractionStore, clinicians domain.ClinicianRepository, logger *zap.Logger) *InteractionService {
	return &InteractionService{store: s, clinicians: clinicians, logger: logger, now: time.Now}
}

func (s *InteractionService) Record(ctx context.Context, in *domain.Interaction) error {
	if in.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInteraction)
	}
	if in.ClinicianID == "" {
		return fmt.Errorf("%w: clinician_id is required", ErrInvalidInteraction)
	}
	if !domain.ValidInteractionAction(string(in.Action)) {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidInteraction, in.Action)
	}

	if _, err := s.clinicians.GetByID(ctx, in.ClinicianID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %w", ErrClinicianNotFound, err)
		}
		return err
	}

	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = s.now()
	}
	if err := s.store.Record(ctx, in); err != nil {
		return err
	}

	s.logger.Debug("interaction recorded",
		zap.String("user_id", in.UserID),
		zap.String("clinician_id", in.ClinicianID),
		zap.String("action", string(in.Action)))
	return nil
}
