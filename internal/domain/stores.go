package domain

import (
	"context"
)

type ClinicianRepository interface {
	ListAll(ctx context.Context) ([]Clinician, error)
	GetByID(ctx context.Context, id string) (*Clinician, error)
	Upsert(ctx context.Context, c *Clinician) error
	UpdateCapacity(ctx context.Context, id string, currentPatients int, accepting bool) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	// ListRegistered returns basic and complete users without their
	// interaction history.
	ListRegistered(ctx context.Context) ([]User, error)
	Upsert(ctx context.Context, u *User) error
}

type InteractionStore interface {
	Record(ctx context.Context, in *Interaction) error
	ListAll(ctx context.Context) ([]Interaction, error)
	ListByUser(ctx context.Context, userID string) ([]Interaction, error)
}

// ClusterFavorites resolves the precomputed favourite clinicians of a cluster.
type ClusterFavorites interface {
	Get(ctx context.Context, cluster ClusterID) (IDSet, error)
}

// FavoritesPublisher stores freshly aggregated favourites for other readers.
type FavoritesPublisher interface {
	Publish(ctx context.Context, favorites map[ClusterID][]string) error
}
