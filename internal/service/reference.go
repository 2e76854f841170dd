package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lunajoy/matchengine/internal/domain"
	"github.com/lunajoy/matchengine/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ReferenceSnapshot is an immutable view of the derived matching data.
type ReferenceSnapshot struct {
	Matrix           InteractionMatrix
	Favorites        map[domain.ClusterID]domain.IDSet
	UserCount        int
	InteractionCount int
	BuiltAt          time.Time
}

// ReferenceData owns the current snapshot. Readers load it atomically and
// never see a partially built one; Refresh swaps in a complete replacement.
type ReferenceData struct {
	users        domain.UserRepository
	interactions domain.InteractionStore
	publisher    domain.FavoritesPublisher
	perCluster   int
	metrics      *metrics.Metrics
	logger       *zap.Logger

	current atomic.Pointer[ReferenceSnapshot]
	builds  singleflight.Group
	now     func() time.Time
}

func NewReferenceData(users domain.UserRepository, interactions domain.InteractionStore, perCluster int, logger *zap.Logger) *ReferenceData {
	if perCluster <= 0 {
		perCluster = DefaultFavoritesPerCluster
	}
	return &ReferenceData{
		users:        users,
		interactions: interactions,
		perCluster:   perCluster,
		logger:       logger,
		now:          time.Now,
	}
}

// SetPublisher shares each rebuilt favourites table with other instances.
func (r *ReferenceData) SetPublisher(p domain.FavoritesPublisher) {
	r.publisher = p
}

func (r *ReferenceData) SetMetrics(m *metrics.Metrics) {
	r.metrics = m
}

// Snapshot returns the current snapshot, or nil before the first build.
func (r *ReferenceData) Snapshot() *ReferenceSnapshot {
	return r.current.Load()
}

// Ensure returns the current snapshot, building it on first use.
func (r *ReferenceData) Ensure(ctx context.Context) (*ReferenceSnapshot, error) {
	if snap := r.current.Load(); snap != nil {
		return snap, nil
	}
	return r.Refresh(ctx)
}

// Refresh rebuilds the snapshot from the repositories. Concurrent calls
// share one build that outlives any single caller's cancellation; a caller
// whose ctx ends first gets ctx.Err() while the others keep waiting.
func (r *ReferenceData) Refresh(ctx context.Context) (*ReferenceSnapshot, error) {
	ch := r.builds.DoChan("refresh", func() (any, error) {
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return r.build(buildCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ReferenceSnapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *ReferenceData) build(ctx context.Context) (*ReferenceSnapshot, error) {
	start := r.now()

	var (
		users        []domain.User
		interactions []domain.Interaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = r.users.ListRegistered(gctx)
		if err != nil {
			return fmt.Errorf("list registered users: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		interactions, err = r.interactions.ListAll(gctx)
		if err != nil {
			return fmt.Errorf("list interactions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		r.metrics.ObserveRefresh(time.Time{}, err)
		return nil, err
	}

	favorites := AggregateFavorites(users, interactions, r.perCluster)
	snap := &ReferenceSnapshot{
		Matrix:           BuildInteractionMatrix(interactions),
		Favorites:        make(map[domain.ClusterID]domain.IDSet, len(favorites)),
		UserCount:        len(users),
		InteractionCount: len(interactions),
		BuiltAt:          r.now(),
	}
	for cluster, ids := range favorites {
		snap.Favorites[cluster] = domain.NewIDSet(ids...)
	}
	r.current.Store(snap)
	r.metrics.ObserveRefresh(snap.BuiltAt, nil)

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, favorites); err != nil {
			r.logger.Warn("failed to publish cluster favorites", zap.Error(err))
		}
	}

	r.logger.Info("reference data rebuilt",
		zap.Int("users", snap.UserCount),
		zap.Int("interactions", snap.InteractionCount),
		zap.Int("matrix_rows", len(snap.Matrix)),
		zap.Int("clusters_with_favorites", len(snap.Favorites)),
		zap.Duration("took", r.now().Sub(start)))
	return snap, nil
}

// Get implements domain.ClusterFavorites from the local snapshot.
func (r *ReferenceData) Get(ctx context.Context, cluster domain.ClusterID) (domain.IDSet, error) {
	snap, err := r.Ensure(ctx)
	if err != nil {
		return nil, err
	}
	if favs, ok := snap.Favorites[cluster]; ok {
		return favs, nil
	}
	return domain.IDSet{}, nil
}
