package seed

import (
	"context"
	"fmt"

	"github.com/lunajoy/matchengine/internal/domain"
)

// Load writes ds into the given repositories. Generated ids are stable, so
// reloading the same dataset into Postgres is idempotent.
func Load(ctx context.Context, ds *Dataset, clinicians domain.ClinicianRepository, users domain.UserRepository, interactions domain.InteractionStore) error {
	for i := range ds.Clinicians {
		if err := clinicians.Upsert(ctx, &ds.Clinicians[i]); err != nil {
			return fmt.Errorf("upsert clinician %s: %w", ds.Clinicians[i].ID, err)
		}
	}
	for i := range ds.Users {
		if err := users.Upsert(ctx, &ds.Users[i]); err != nil {
			return fmt.Errorf("upsert user %s: %w", ds.Users[i].ID, err)
		}
	}
	for i := range ds.Interactions {
		if err := interactions.Record(ctx, &ds.Interactions[i]); err != nil {
			return fmt.Errorf("record interaction %s: %w", ds.Interactions[i].ID, err)
		}
	}
	return nil
}
