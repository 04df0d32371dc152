// Package live answers time-sensitive course questions (seats, instructors,
// schedules) from the class-search service. Lookups go through a two-layer
// cache, concurrent misses for one key share a single upstream fetch, and an
// expired entry is served as stale when the upstream fails.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/index"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const DefaultTimeout = 1500 * time.Millisecond

// Request is one upstream lookup.
type Request struct {
	Course   string
	Semester string
	Term     string
	Field    query.LiveField
}

// Fetcher performs the network lookup.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Payload, error)
}

// Options configures the client.
type Options struct {
	Semester string
	Timeout  time.Duration
}

// Stats is a snapshot of client counters.
type Stats struct {
	Semester    string `json:"semester"`
	ShortHits   int64  `json:"short_hits"`
	SharedHits  int64  `json:"shared_hits"`
	Misses      int64  `json:"misses"`
	Corrupt     int64  `json:"corrupt"`
	Fetches     int64  `json:"fetches"`
	FetchErrors int64  `json:"fetch_errors"`
	Coalesced   int64  `json:"coalesced"`
	StaleServed int64  `json:"stale_served"`
	ShortSize   int    `json:"short_size"`
}

// Client is safe for concurrent use.
type Client struct {
	fetcher Fetcher
	cache   *Cache
	group   singleflight.Group
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu       sync.RWMutex
	semester string
	// generation advances on every rollover.
	generation uint64

	fetches     atomic.Int64
	fetchErrors atomic.Int64
	coalesced   atomic.Int64
	staleServed atomic.Int64
}

// NewClient validates the semester and builds the client.
func NewClient(fetcher Fetcher, c *Cache, opts Options, m *metrics.Metrics) (*Client, error) {
	if _, err := SemesterCode(opts.Semester); err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{
		fetcher:  fetcher,
		cache:    c,
		timeout:  opts.Timeout,
		metrics:  m,
		logger:   slog.Default().With("component", "live-client"),
		semester: NormalizeSemester(opts.Semester),
	}, nil
}

// Semester returns the active semester.
func (c *Client) Semester() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.semester
}

func (c *Client) active() (string, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.semester, c.generation
}

// FetchLive returns live data for a course. A fresh cached entry is returned
// directly. Otherwise the caller joins the single in-flight fetch for the
// key. That fetch runs detached from the caller's context under its own
// timeout, so an abandoned caller still lets it populate the cache. When the
// fetch fails, an expired entry comes back with Stale set; without one the
// error is ErrUpstreamTimeout or ErrUpstreamUnavailable.
func (c *Client) FetchLive(ctx context.Context, course string, field query.LiveField) (*Payload, error) {
	course = index.NormalizeCode(course)
	if course == "" {
		return nil, fmt.Errorf("%w: empty course", apperrors.ErrInvalidInput)
	}
	if !field.Valid() {
		field = query.LiveSeats
	}
	semester, gen := c.active()
	key := Key(semester, course, field)

	fresh, stale := c.cache.Get(ctx, key)
	if fresh != nil {
		return clonePayload(fresh.Payload, false), nil
	}

	leader := false
	ch := c.group.DoChan(key, func() (any, error) {
		leader = true
		return c.fetch(context.WithoutCancel(ctx), key, course, semester, gen, field)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		if stale != nil {
			return c.serveStale(stale, ctx.Err()), nil
		}
		return nil, apperrors.Upstream("live lookup "+course, ctx.Err())
	}
	if res.Shared && !leader {
		c.coalesced.Add(1)
		c.metrics.ObserveCoalesced()
	}
	if res.Err != nil {
		if stale != nil {
			return c.serveStale(stale, res.Err), nil
		}
		return nil, res.Err
	}
	return clonePayload(res.Val.(*Payload), false), nil
}

// fetch is the single flight for key. It re-checks the cache first since a
// flight for the same key may have just finished. A result that lands after a
// rollover is returned but not cached.
func (c *Client) fetch(ctx context.Context, key, course, semester string, gen uint64, field query.LiveField) (*Payload, error) {
	if fresh, _ := c.cache.Get(ctx, key); fresh != nil {
		return fresh.Payload, nil
	}
	term, err := SemesterCode(semester)
	if err != nil {
		return nil, err
	}

	c.fetches.Add(1)
	start := time.Now()
	p, err := resilience.TimeoutValue(ctx, c.timeout, "class search", func(ctx context.Context) (*Payload, error) {
		return c.fetcher.Fetch(ctx, Request{Course: course, Semester: semester, Term: term, Field: field})
	})
	if err != nil {
		c.fetchErrors.Add(1)
		err = apperrors.Upstream("live lookup "+course, err)
		result := "unavailable"
		if errors.Is(err, apperrors.ErrUpstreamTimeout) {
			result = "timeout"
		}
		c.metrics.ObserveLiveFetch(result)
		logger.FromContext(ctx).Warn("live fetch failed",
			"component", "live-client",
			"key", key,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil, err
	}
	c.metrics.ObserveLiveFetch("ok")

	p.Course = course
	p.Semester = semester
	p.Field = field
	p.Stale = false
	if p.FetchedAt.IsZero() {
		p.FetchedAt = c.cache.now()
	}
	c.store(ctx, gen, c.cache.NewEntry(key, p))
	c.logger.Debug("live fetch complete", "key", key, "sections", len(p.Sections), "duration_ms", time.Since(start).Milliseconds())
	return p, nil
}

// store caches e unless a rollover happened since its fetch began. The read
// lock is held across the write so Rollover's purge runs after it.
func (c *Client) store(ctx context.Context, gen uint64, e *Entry) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.generation != gen {
		c.logger.Debug("dropping live payload fetched before rollover", "key", e.Key)
		return
	}
	if err := c.cache.Put(ctx, e); err != nil {
		c.logger.Warn("caching live payload", "key", e.Key, "error", err)
	}
}

func (c *Client) serveStale(e *Entry, cause error) *Payload {
	c.staleServed.Add(1)
	c.logger.Info("serving stale live data",
		"key", e.Key,
		"age", c.cache.now().Sub(e.CreatedAt).Round(time.Second).String(),
		"cause", cause,
	)
	return clonePayload(e.Payload, true)
}

// Rollover switches the active semester, drops the in-process layer and
// deletes the previous semester's shared entries. It returns how many shared
// keys were removed.
func (c *Client) Rollover(ctx context.Context, semester string) (int64, error) {
	if _, err := SemesterCode(semester); err != nil {
		return 0, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	c.mu.Lock()
	previous := c.semester
	c.semester = NormalizeSemester(semester)
	c.generation++
	c.mu.Unlock()

	n, err := c.cache.PurgeSemester(ctx, previous)
	if err != nil {
		return n, err
	}
	c.logger.Info("semester rollover", "from", previous, "to", c.Semester(), "keys_deleted", n)
	return n, nil
}

// Invalidate drops every cached field of a course in the active semester.
func (c *Client) Invalidate(ctx context.Context, course string) error {
	course = index.NormalizeCode(course)
	if course == "" {
		return fmt.Errorf("%w: empty course", apperrors.ErrInvalidInput)
	}
	semester := c.Semester()
	fields := []query.LiveField{query.LiveSeats, query.LiveInstructor, query.LiveSchedule, query.LiveLocation, query.LiveSections}
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = Key(semester, course, f)
	}
	return c.cache.Invalidate(ctx, keys...)
}

func (c *Client) Stats() Stats {
	return Stats{
		Semester:    c.Semester(),
		ShortHits:   c.cache.shortHits.Load(),
		SharedHits:  c.cache.sharedHits.Load(),
		Misses:      c.cache.misses.Load(),
		Corrupt:     c.cache.corrupt.Load(),
		Fetches:     c.fetches.Load(),
		FetchErrors: c.fetchErrors.Load(),
		Coalesced:   c.coalesced.Load(),
		StaleServed: c.staleServed.Load(),
		ShortSize:   c.cache.short.Len(),
	}
}

func clonePayload(p *Payload, stale bool) *Payload {
	out := *p
	out.Sections = append([]Section(nil), p.Sections...)
	out.Stale = stale
	return &out
}
