package export

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	reportCacheTTL     = 10 * time.Minute
	reportCacheTimeout = 300 * time.Millisecond
)

// reportCache keeps rendered reports keyed by project revision, so a cached
// entry can never outlive the data it was rendered from. A nil cache is
// valid and misses on every read.
type reportCache struct {
	client *redis.Client
}

func newReportCache(client *redis.Client) *reportCache {
	if client == nil {
		return nil
	}
	return &reportCache{client: client}
}

func (r *reportCache) cacheContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), reportCacheTimeout)
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= reportCacheTimeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, reportCacheTimeout)
}

func (r *reportCache) key(projectID uint64, revision uint64, format Format, sortKey, filterType string) string {
	if r == nil || r.client == nil || projectID == 0 {
		return ""
	}
	return fmt.Sprintf("export:report:%d:%d:%s:%s:%s", projectID, revision, format, sortKey, filterType)
}

func (r *reportCache) get(ctx context.Context, key string) (string, bool) {
	if r == nil || r.client == nil || key == "" {
		return "", false
	}

	ctx, cancel := r.cacheContext(ctx)
	defer cancel()

	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return value, true
}

func (r *reportCache) set(ctx context.Context, key, report string) {
	if r == nil || r.client == nil || key == "" {
		return
	}

	ctx, cancel := r.cacheContext(ctx)
	defer cancel()

	_ = r.client.Set(ctx, key, report, reportCacheTTL).Err()
}
