package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SnapshotCache implements domain.SnapshotCache using one JSON value per tag
// set. Only the market catalog is cached; order books are always fetched
// fresh because a stale book invalidates a plan.
//
// Key schema:
//
//	snapshot:{key} - JSON-encoded []domain.Market with TTL
type SnapshotCache struct {
	rdb *redis.Client
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client) *SnapshotCache {
	return &SnapshotCache{rdb: c.Underlying()}
}

func snapshotKey(key string) string { return "snapshot:" + key }

// GetSnapshot returns the cached snapshot for the key, reporting whether a
// fresh entry existed.
func (sc *SnapshotCache) GetSnapshot(ctx context.Context, key string) ([]domain.Market, bool, error) {
	data, err := sc.rdb.Get(ctx, snapshotKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: get snapshot %s: %w", key, err)
	}

	var markets []domain.Market
	if err := json.Unmarshal(data, &markets); err != nil {
		return nil, false, fmt.Errorf("redis: decode snapshot %s: %w", key, err)
	}
	return markets, true, nil
}

// PutSnapshot stores the snapshot under the key with the given TTL.
func (sc *SnapshotCache) PutSnapshot(ctx context.Context, key string, markets []domain.Market, ttl time.Duration) error {
	data, err := json.Marshal(markets)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot %s: %w", key, err)
	}
	if err := sc.rdb.Set(ctx, snapshotKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SnapshotCache = (*SnapshotCache)(nil)
