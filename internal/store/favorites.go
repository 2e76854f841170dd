package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/lunajoy/matchengine/internal/domain"
	"github.com/redis/go-redis/v9"
)

const favoritesKeyPrefix = "favorites:cluster:"

// RedisFavorites shares aggregated cluster favourites between instances.
// Each cluster is stored as a Redis set that expires after ttl.
type RedisFavorites struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisFavorites(client *redis.Client, ttl time.Duration) *RedisFavorites {
	return &RedisFavorites{client: client, ttl: ttl}
}

func favoritesKey(cluster domain.ClusterID) string {
	return favoritesKeyPrefix + strconv.Itoa(int(cluster))
}

// Get returns the favourites of a cluster. A missing key yields an empty set.
func (f *RedisFavorites) Get(ctx context.Context, cluster domain.ClusterID) (domain.IDSet, error) {
	members, err := f.client.SMembers(ctx, favoritesKey(cluster)).Result()
	if err != nil {
		return nil, fmt.Errorf("read favorites for cluster %d: %w", cluster, err)
	}
	return domain.NewIDSet(members...), nil
}

// Publish replaces the favourites of every cluster in one transaction.
// Clusters absent from favorites are cleared.
func (f *RedisFavorites) Publish(ctx context.Context, favorites map[domain.ClusterID][]string) error {
	_, err := f.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for c := domain.ClusterID(0); c < domain.ClusterCount; c++ {
			key := favoritesKey(c)
			pipe.Del(ctx, key)
			ids := favorites[c]
			if len(ids) == 0 {
				continue
			}
			members := make([]any, len(ids))
			for i, id := range ids {
				members[i] = id
			}
			pipe.SAdd(ctx, key, members...)
			if f.ttl > 0 {
				pipe.Expire(ctx, key, f.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish favorites: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (f *RedisFavorites) Ping(ctx context.Context) error {
	if err := f.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
