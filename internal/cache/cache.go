package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Backend stores encoded query results with an expiry.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// QueryCache memoizes upstream queries by key for a freshness window and
// collapses concurrent identical queries into one upstream call.
type QueryCache struct {
	backend Backend
	group   singleflight.Group
	logger  *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// New wraps a backend.
func New(backend Backend, logger *slog.Logger) *QueryCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryCache{backend: backend, logger: logger}
}

// Stats returns cache hit and miss counters.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Key builds a cache key from a query kind and its parameters,
// e.g. Key("forecast-3h", 41.3, 69.2) == "forecast-3h:41.3:69.2".
func Key(kind string, parts ...any) string {
	var b strings.Builder
	b.WriteString(kind)
	for _, p := range parts {
		b.WriteByte(':')
		switch v := p.(type) {
		case string:
			b.WriteString(strings.ToLower(strings.TrimSpace(v)))
		case float64:
			b.WriteString(strconv.FormatFloat(v, 'f', 4, 64))
		default:
			fmt.Fprint(&b, v)
		}
	}
	return b.String()
}

// Fetch returns the cached value for key if it is still fresh, otherwise it
// calls fn, caches the result for ttl and returns it. Errors are not cached.
// Concurrent callers with the same key share one call to fn. The shared call
// runs detached from any single caller's cancellation; each caller stops
// waiting when its own ctx is done.
func Fetch[T any](ctx context.Context, c *QueryCache, key string, ttl time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if v, ok := lookup[T](ctx, c, key); ok {
		c.hits.Add(1)
		return v, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		// Another caller may have filled the entry while we waited.
		if v, ok := lookup[T](shared, c, key); ok {
			return v, nil
		}
		c.misses.Add(1)

		v, err := fn(shared)
		if err != nil {
			return nil, err
		}
		c.store(shared, key, v, ttl)
		return v, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return zero, res.Err
	}
	if res.Shared {
		c.logger.Debug("query shared with in-flight request", "key", key)
	}

	v, ok := res.Val.(T)
	if !ok {
		return zero, fmt.Errorf("cache: unexpected value type %T for %s", res.Val, key)
	}
	return v, nil
}

func lookup[T any](ctx context.Context, c *QueryCache, key string) (T, bool) {
	var v T
	raw, found, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
		return v, false
	}
	if !found {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warn("cache entry undecodable", "key", key, "error", err)
		return v, false
	}
	return v, true
}

func (c *QueryCache) store(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, raw, ttl); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}
