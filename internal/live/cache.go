package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/metrics"
)

const keyPrefix = "live:"

// Key builds the cache key for one lookup, e.g. "live:spring-2026:EECS700:seats".
func Key(semester, course string, field query.LiveField) string {
	return keyPrefix + keySemester(semester) + ":" + strings.ToUpper(strings.ReplaceAll(course, " ", "")) + ":" + string(field)
}

func semesterPattern(semester string) string {
	return keyPrefix + keySemester(semester) + ":*"
}

// Entry is one cached live payload. ExpiresAt bounds freshness; the shared
// layer keeps the entry longer so it can be served stale.
type Entry struct {
	Key       string    `json:"key"`
	Payload   *Payload  `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (e *Entry) fresh(now time.Time) bool { return now.Before(e.ExpiresAt) }

// Store is the long-lived shared layer. *redis.Client from pkg/redis
// satisfies it.
type Store interface {
	Lookup(ctx context.Context, key string) ([]byte, bool, error)
	Store(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// CacheOptions sizes both layers.
type CacheOptions struct {
	ShortTTL      time.Duration
	ShortCapacity int
	FreshTTL      time.Duration
	Retention     time.Duration
}

// Cache layers a short-TTL in-process LRU over the shared store.
type Cache struct {
	short   *cache.LRU[*Entry]
	shared  Store
	opts    CacheOptions
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *slog.Logger

	shortHits  atomic.Int64
	sharedHits atomic.Int64
	misses     atomic.Int64
	corrupt    atomic.Int64
}

// NewCache creates the cache. shared may be nil, leaving only the LRU.
func NewCache(shared Store, opts CacheOptions, m *metrics.Metrics) *Cache {
	if opts.ShortTTL <= 0 {
		opts.ShortTTL = 30 * time.Second
	}
	if opts.ShortCapacity <= 0 {
		opts.ShortCapacity = 1024
	}
	if opts.FreshTTL <= 0 {
		opts.FreshTTL = 10 * time.Minute
	}
	if opts.Retention < opts.FreshTTL {
		opts.Retention = opts.FreshTTL
	}
	c := &Cache{
		shared:  shared,
		opts:    opts,
		now:     time.Now,
		metrics: m,
		logger:  slog.Default().With("component", "live-cache"),
	}
	// Both layers share one clock.
	c.short = cache.NewLRUWithClock[*Entry](opts.ShortCapacity, opts.ShortTTL, func() time.Time { return c.now() })
	return c
}

// Get returns a fresh entry, or nil and the newest expired entry it saw so
// the caller can fall back to it. Store failures and corrupt entries count as
// misses; corrupt entries are deleted.
func (c *Cache) Get(ctx context.Context, key string) (fresh, stale *Entry) {
	now := c.now()
	if e, ok := c.short.Get(key); ok {
		if e.fresh(now) {
			c.shortHits.Add(1)
			c.metrics.ObserveLiveCache("l1", "hit")
			return e, nil
		}
		stale = e
	}
	c.metrics.ObserveLiveCache("l1", "miss")
	if c.shared == nil {
		c.misses.Add(1)
		return nil, stale
	}

	data, ok, err := c.shared.Lookup(ctx, key)
	switch {
	case err != nil:
		c.logger.Warn("shared cache lookup failed", "key", key, "error", err)
		c.metrics.ObserveLiveCache("l2", "error")
		c.misses.Add(1)
		return nil, stale
	case !ok:
		c.metrics.ObserveLiveCache("l2", "miss")
		c.misses.Add(1)
		return nil, stale
	}

	e, err := decodeEntry(key, data)
	if err != nil {
		c.corrupt.Add(1)
		c.misses.Add(1)
		c.metrics.ObserveLiveCache("l2", "corrupt")
		c.logger.Warn("dropping corrupt cache entry", "key", key, "error", err)
		if delErr := c.shared.Del(ctx, key); delErr != nil {
			c.logger.Warn("deleting corrupt cache entry", "key", key, "error", delErr)
		}
		return nil, stale
	}
	if !e.fresh(now) {
		c.metrics.ObserveLiveCache("l2", "expired")
		c.misses.Add(1)
		return nil, e
	}
	c.sharedHits.Add(1)
	c.metrics.ObserveLiveCache("l2", "hit")
	c.short.Set(key, e, min(c.opts.ShortTTL, e.ExpiresAt.Sub(now)))
	return e, nil
}

// Put writes a complete entry to the shared store, then to the LRU. A store
// failure is returned but the LRU is still populated.
func (c *Cache) Put(ctx context.Context, e *Entry) error {
	var storeErr error
	if c.shared != nil {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding cache entry %s: %w", e.Key, err)
		}
		storeErr = c.shared.Store(ctx, e.Key, data, c.opts.Retention)
	}
	c.short.Set(e.Key, e, min(c.opts.ShortTTL, e.ExpiresAt.Sub(c.now())))
	return storeErr
}

// NewEntry stamps a payload with the configured freshness window.
func (c *Cache) NewEntry(key string, p *Payload) *Entry {
	now := c.now()
	return &Entry{Key: key, Payload: p, CreatedAt: now, ExpiresAt: now.Add(c.opts.FreshTTL)}
}

// Invalidate removes keys from both layers.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		c.short.Delete(k)
	}
	if c.shared == nil || len(keys) == 0 {
		return nil
	}
	return c.shared.Del(ctx, keys...)
}

// PurgeSemester empties the LRU and deletes the semester's shared keys.
func (c *Cache) PurgeSemester(ctx context.Context, semester string) (int64, error) {
	c.short.Purge()
	if c.shared == nil {
		return 0, nil
	}
	n, err := c.shared.FlushByPattern(ctx, semesterPattern(semester))
	if err != nil {
		return n, fmt.Errorf("flushing %s cache: %w", semester, err)
	}
	return n, nil
}

func decodeEntry(key string, data []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrCacheCorruption, err)
	}
	if e.Key != key || e.Payload == nil || e.ExpiresAt.IsZero() {
		return nil, fmt.Errorf("%w: incomplete entry", apperrors.ErrCacheCorruption)
	}
	return &e, nil
}
