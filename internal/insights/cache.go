package insights

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"callqa_backend/platform/config"
)

// CacheState is what the loader reports about the stored insight.
type CacheState struct {
	Value         any
	LastGenerated *time.Time
	LastEvent     *time.Time
}

// Cache guards insight generation with the TTL/grace staleness rule and a
// per-subject single-flight, so concurrent requests for the same subject
// produce exactly one regeneration.
type Cache struct {
	ttl   time.Duration
	grace time.Duration
	group singleflight.Group
	now   func() time.Time
}

func NewCache(cfg config.InsightCacheConfig) *Cache {
	return &Cache{
		ttl:   cfg.GetInsightTTL(),
		grace: cfg.GetInsightGraceWindow(),
		now:   time.Now,
	}
}

// GetOrRefresh returns the cached value when fresh, otherwise runs refresh.
// load reports the stored value and its timestamps; refresh generates and
// persists a new value. The boolean reports whether a refresh ran.
func (c *Cache) GetOrRefresh(
	ctx context.Context,
	subjectType, subjectID string,
	load func(ctx context.Context) (CacheState, error),
	refresh func(ctx context.Context) (any, error),
) (any, bool, error) {
	key := subjectType + ":" + subjectID

	type outcome struct {
		value     any
		refreshed bool
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		state, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load cached insight: %w", err)
		}
		if !IsStale(c.ttl, c.grace, state.LastGenerated, state.LastEvent, c.now()) {
			return outcome{value: state.Value}, nil
		}
		fresh, err := refresh(ctx)
		if err != nil {
			return nil, err
		}
		return outcome{value: fresh, refreshed: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	out := v.(outcome)
	return out.value, out.refreshed, nil
}
