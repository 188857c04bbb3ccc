package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alexvgr/krakendash/internal/domain"
)

// DataCache implements domain.DataCache using Redis string values holding
// JSON-serialized snapshots. SET with expiry replaces the value atomically,
// so concurrent readers see either the old or the new snapshot in full.
//
// Key schema:
//
//	dashboard:{key} - JSON-encoded domain.DashboardData
type DataCache struct {
	rdb *redis.Client
}

// NewDataCache creates a DataCache backed by the given Client.
func NewDataCache(c *Client) *DataCache {
	return &DataCache{rdb: c.Underlying()}
}

func dashboardKey(key string) string { return "dashboard:" + key }

// Get retrieves the snapshot stored under key. A missing key is a miss, not
// an error.
func (dc *DataCache) Get(ctx context.Context, key string) (domain.DashboardData, bool, error) {
	raw, err := dc.rdb.Get(ctx, dashboardKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.DashboardData{}, false, nil
		}
		return domain.DashboardData{}, false, fmt.Errorf("redis: get dashboard %s: %w", key, err)
	}

	var data domain.DashboardData
	if err := json.Unmarshal(raw, &data); err != nil {
		return domain.DashboardData{}, false, fmt.Errorf("redis: unmarshal dashboard %s: %w", key, err)
	}
	return data, true, nil
}

// Set stores the snapshot under key with the given TTL.
func (dc *DataCache) Set(ctx context.Context, key string, data domain.DashboardData, ttl time.Duration) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("redis: marshal dashboard %s: %w", key, err)
	}

	if err := dc.rdb.Set(ctx, dashboardKey(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set dashboard %s: %w", key, err)
	}
	return nil
}

// Delete removes the snapshot stored under key.
func (dc *DataCache) Delete(ctx context.Context, key string) error {
	if err := dc.rdb.Del(ctx, dashboardKey(key)).Err(); err != nil {
		return fmt.Errorf("redis: delete dashboard %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.DataCache = (*DataCache)(nil)
