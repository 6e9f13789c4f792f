package pricing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/m3rciful/goldbot/core/logger"
)

// CachedSource reuses the last good quote for ttl. Failures are not cached.
type CachedSource struct {
	inner Source
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu     sync.Mutex
	last   Quote
	expiry time.Time
}

// NewCachedSource wraps inner; a ttl <= 0 returns inner unchanged.
func NewCachedSource(inner Source, ttl time.Duration) Source {
	if ttl <= 0 {
		return inner
	}
	return &CachedSource{inner: inner, ttl: ttl, now: time.Now}
}

func (c *CachedSource) fresh() (Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.now().Before(c.expiry)
}

// Fetch implements Source. Concurrent callers on a cold cache share one
// upstream call and its result, success or failure.
func (c *CachedSource) Fetch(ctx context.Context) (Quote, error) {
	if q, ok := c.fresh(); ok {
		logger.LogEvent(ctx, logger.Pricing, slog.LevelDebug, "pricing.cache.hit",
			slog.Duration("age", c.now().Sub(q.FetchedAt)),
		)
		return q, nil
	}

	ch := c.group.DoChan("quote", func() (interface{}, error) {
		if q, ok := c.fresh(); ok {
			return q, nil
		}
		q, err := c.inner.Fetch(context.WithoutCancel(ctx))
		if err != nil {
			return Quote{}, err
		}
		c.mu.Lock()
		c.last = q
		c.expiry = c.now().Add(c.ttl)
		c.mu.Unlock()
		return q, nil
	})
	select {
	case res := <-ch:
		if res.Shared {
			logger.LogEvent(ctx, logger.Pricing, slog.LevelDebug, "pricing.cache.shared")
		}
		return res.Val.(Quote), res.Err
	case <-ctx.Done():
		return Quote{}, &FetchError{Source: "price", Kind: KindNetwork, Err: ctx.Err()}
	}
}
