package vector

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/query"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/retriever"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/resilience"
)

const (
	DefaultTopK    = 5
	DefaultTimeout = 300 * time.Millisecond
)

// LookupFunc resolves a document id from the store back to its document.
type LookupFunc func(id string) (*corpus.Document, bool)

// FallbackOptions tunes the semantic fallback.
type FallbackOptions struct {
	TopK     int
	MinScore float64
	Timeout  time.Duration
}

// Fallback is the retriever of last resort. It embeds the query and searches
// the global embedding index under a hard timeout. Failures of any kind come
// back as an empty result with a nil error.
type Fallback struct {
	embedder Embedder
	store    Store
	lookup   LookupFunc
	opts     FallbackOptions
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewFallback(embedder Embedder, store Store, lookup LookupFunc, opts FallbackOptions, m *metrics.Metrics) *Fallback {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Fallback{
		embedder: embedder,
		store:    store,
		lookup:   lookup,
		opts:     opts,
		metrics:  m,
		logger:   slog.Default().With("component", "vector-fallback"),
	}
}

func (f *Fallback) Name() string { return "vector_fallback" }

func (f *Fallback) Retrieve(ctx context.Context, q *query.Query) (*retriever.Result, error) {
	start := time.Now()
	res := &retriever.Result{Provenance: retriever.ProvenanceNone}

	text := q.Text()
	if text == "" {
		text = q.Normalized
	}
	if text == "" {
		f.metrics.ObserveStage(f.Name(), "empty", time.Since(start))
		res.Latency = time.Since(start)
		return res, nil
	}

	domains := DomainsFor(q.Intent())
	matches, err := resilience.TimeoutValue(ctx, f.opts.Timeout, "vector fallback", func(ctx context.Context) ([]Match, error) {
		vec, err := EmbedOne(ctx, f.embedder, text)
		if err != nil {
			return nil, err
		}
		return f.store.Search(ctx, vec, f.opts.TopK, domains)
	})
	res.Latency = time.Since(start)
	if err != nil {
		outcome := "error"
		reason := "vector fallback failed"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
			reason = "vector fallback timed out"
		}
		f.logger.Warn("semantic fallback degraded to empty",
			"outcome", outcome,
			"intent", q.Intent(),
			"error", err,
		)
		f.metrics.ObserveStage(f.Name(), outcome, res.Latency)
		res.Degraded = true
		res.Reasons = append(res.Reasons, reason)
		return res, nil
	}

	for _, m := range matches {
		if m.Score < f.opts.MinScore {
			continue
		}
		doc, ok := f.lookup(m.ID)
		if !ok {
			continue
		}
		res.Hits = append(res.Hits, retriever.Hit{Document: doc, Score: m.Score, Source: f.Name()})
	}
	if res.Empty() {
		f.metrics.ObserveStage(f.Name(), "empty", res.Latency)
		return res, nil
	}
	res.Provenance = retriever.ProvenanceVectorFallback
	f.metrics.ObserveStage(f.Name(), "hit", res.Latency)
	return res, nil
}

// DomainsFor limits the search to the domain an intent implies. General
// queries search everything.
func DomainsFor(intent query.Intent) []corpus.Domain {
	switch intent {
	case query.IntentCourseInfo:
		return []corpus.Domain{corpus.DomainCourse}
	case query.IntentFacultySearch:
		return []corpus.Domain{corpus.DomainFaculty}
	case query.IntentDiningInfo:
		return []corpus.Domain{corpus.DomainDining}
	case query.IntentTransitInfo:
		return []corpus.Domain{corpus.DomainTransit}
	default:
		return nil
	}
}
