package domain

import (
	"context"
	"time"
)

// DataCache stores complete dashboard refreshes keyed by account prefix.
// Implementations must replace entries atomically: a concurrent reader sees
// either the previous complete value or the new complete value, never a
// partially written one.
type DataCache interface {
	Get(ctx context.Context, key string) (DashboardData, bool, error)
	Set(ctx context.Context, key string, data DashboardData, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
