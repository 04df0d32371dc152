// Package router sequences the retrieval pipeline for one query:
// preprocess, classify, the specialized retriever for the intent, the
// semantic fallback when that comes back empty, and a live lookup when the
// query asks for current data. Route always resolves; stage failures are
// absorbed into an escalation or a degraded flag on the result.
package router

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/index"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/live"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/query"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/retriever"
	apperrors "github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/tracing"
	"github.com/google/uuid"
)

// Pipeline states, in order. Result.Trace lists the ones a query passed.
const (
	StateReceived     = "received"
	StatePreprocessed = "preprocessed"
	StateClassified   = "classified"
	StateFastPath     = "fast_path_attempted"
	StateFallback     = "fallback_attempted"
	StateLiveLookup   = "live_lookup_attempted"
	StateResolved     = "resolved"
)

// Classifier assigns the query's single intent.
type Classifier interface {
	Classify(ctx context.Context, q *query.Query) (query.Intent, float64)
}

// LiveLookup fetches current class data for a course.
type LiveLookup interface {
	FetchLive(ctx context.Context, course string, field query.LiveField) (*live.Payload, error)
}

// EventSink receives one event per routed query.
type EventSink interface {
	Track(event analytics.RouteEvent)
}

// Deps are the collaborators a Router is built from. Live, Events, Tracer
// and Metrics may be nil.
type Deps struct {
	Preprocessor *query.Preprocessor
	Classifier   Classifier
	// Retrievers maps each non-general intent to its specialized retriever.
	Retrievers map[query.Intent]retriever.Retriever
	Fallback   retriever.Retriever
	Live       LiveLookup
	Events     EventSink
	Tracer     *tracing.Tracer
	Metrics    *metrics.Metrics
}

// Router is immutable after New and safe for concurrent use.
type Router struct {
	deps   Deps
	logger *slog.Logger
}

// New creates a router over deps. Nil optional stages are skipped.
func New(deps Deps) *Router {
	return &Router{deps: deps, logger: slog.Default().With("component", "router")}
}

// run carries one query through the state machine.
type run struct {
	q      *query.Query
	res    *retriever.Result
	trace  []string
	reason []string
	log    *slog.Logger
}

func (r *run) enter(state string) { r.trace = append(r.trace, state) }

func (r *run) degrade(reason string) { r.reason = append(r.reason, reason) }

// Route answers one raw query. It never returns nil and never fails: an
// empty result with provenance "none" is the answer when every stage came
// back empty.
func (rt *Router) Route(ctx context.Context, raw string) *retriever.Result {
	start := time.Now()
	requestID := logger.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = logger.WithRequestID(ctx, requestID)
	}
	ctx, span := rt.deps.Tracer.Start(ctx, "route", requestID)

	st := &run{log: logger.FromContext(ctx).With("component", "router")}
	st.enter(StateReceived)

	st.q = rt.preprocess(ctx, raw)
	st.enter(StatePreprocessed)

	intent, confidence := rt.classify(ctx, st.q)
	st.enter(StateClassified)

	if intent != query.IntentGeneral {
		st.enter(StateFastPath)
		st.res = rt.fastPath(ctx, st)
	}
	if st.res.Empty() {
		st.enter(StateFallback)
		st.res = rt.fallback(ctx, st)
	}
	if st.q.Freshness {
		if course := liveCourse(st.q, st.res); course != "" && rt.deps.Live != nil {
			st.enter(StateLiveLookup)
			rt.liveLookup(ctx, st, course)
		}
	}
	st.enter(StateResolved)

	res := st.res
	if res.Empty() && res.Live == nil {
		res.Provenance = retriever.ProvenanceNone
	}
	res.Intent = intent
	res.Confidence = confidence
	res.Trace = st.trace
	res.Reasons = append(res.Reasons, st.reason...)
	res.Degraded = res.Degraded || len(st.reason) > 0
	res.Latency = time.Since(start)

	span.SetAttr("intent", string(intent))
	span.SetAttr("provenance", string(res.Provenance))
	span.SetAttr("hits", len(res.Hits))
	span.End()
	span.Log(st.log)

	rt.deps.Metrics.ObserveRoute(string(intent), string(res.Provenance), res.Latency)
	rt.finish(ctx, raw, requestID, st, res)
	return res
}

func (rt *Router) preprocess(ctx context.Context, raw string) *query.Query {
	_, span := tracing.StartChild(ctx, "preprocess")
	defer span.End()
	q := rt.deps.Preprocessor.Preprocess(raw)
	span.SetAttr("entities", len(q.Entities))
	span.SetAttr("freshness", q.Freshness)
	return q
}

func (rt *Router) classify(ctx context.Context, q *query.Query) (query.Intent, float64) {
	ctx, span := tracing.StartChild(ctx, "classify")
	defer span.End()
	if rt.deps.Classifier == nil {
		_ = q.SetIntent(query.IntentGeneral, 0)
		return q.Intent(), q.Confidence()
	}
	intent, confidence := rt.deps.Classifier.Classify(ctx, q)
	span.SetAttr("intent", string(intent))
	return intent, confidence
}

// fastPath runs the specialized retriever for the query's intent. An error
// is logged and treated as an empty result.
func (rt *Router) fastPath(ctx context.Context, st *run) *retriever.Result {
	ctx, span := tracing.StartChild(ctx, "fast_path")
	defer span.End()
	start := time.Now()

	ret, ok := rt.deps.Retrievers[st.q.Intent()]
	if !ok {
		st.log.Warn("no retriever for intent", "intent", st.q.Intent())
		rt.deps.Metrics.ObserveStage("fast_path", "empty", time.Since(start))
		return emptyResult()
	}
	res, err := ret.Retrieve(ctx, st.q)
	if err != nil {
		st.log.Warn("fast path failed", "retriever", ret.Name(), "error", err)
		rt.deps.Metrics.ObserveStage("fast_path", "error", time.Since(start))
		st.degrade("fast path failed")
		return emptyResult()
	}
	outcome := "hit"
	if res.Empty() {
		outcome = "empty"
	}
	span.SetAttr("retriever", ret.Name())
	span.SetAttr("hits", len(res.Hits))
	rt.deps.Metrics.ObserveStage("fast_path", outcome, time.Since(start))
	return res
}

// fallback runs the semantic retriever exactly once.
func (rt *Router) fallback(ctx context.Context, st *run) *retriever.Result {
	ctx, span := tracing.StartChild(ctx, "vector_fallback")
	defer span.End()
	if rt.deps.Fallback == nil {
		return emptyResult()
	}
	res, err := rt.deps.Fallback.Retrieve(ctx, st.q)
	if err != nil {
		st.log.Warn("vector fallback failed", "error", err)
		st.degrade("vector fallback failed")
		return emptyResult()
	}
	span.SetAttr("hits", len(res.Hits))
	return res
}

// liveLookup merges live data for course into the result. Failures leave
// the static result in place and mark it degraded.
func (rt *Router) liveLookup(ctx context.Context, st *run, course string) {
	ctx, span := tracing.StartChild(ctx, "live_lookup")
	defer span.End()
	start := time.Now()
	span.SetAttr("course", course)

	p, err := rt.deps.Live.FetchLive(ctx, course, st.q.LiveField)
	if err != nil {
		outcome, reason := "error", "live lookup unavailable"
		if errors.Is(err, apperrors.ErrUpstreamTimeout) {
			outcome, reason = "timeout", "live lookup timed out"
		}
		st.log.Warn("live lookup failed", "course", course, "error", err)
		rt.deps.Metrics.ObserveStage("live_lookup", outcome, time.Since(start))
		st.degrade(reason)
		return
	}
	outcome := "ok"
	if p.Stale {
		outcome = "stale"
		st.degrade("live data is stale")
	}
	rt.deps.Metrics.ObserveStage("live_lookup", outcome, time.Since(start))
	merge(st.res, p)
}

func (rt *Router) finish(ctx context.Context, raw, requestID string, st *run, res *retriever.Result) {
	if res.Empty() {
		st.log.Info("query resolved empty", "query", raw, "intent", res.Intent, "reason", apperrors.ErrEmptyResult.Error())
	} else {
		st.log.Info("query routed",
			"query", raw,
			"intent", res.Intent,
			"confidence", res.Confidence,
			"provenance", res.Provenance,
			"hits", len(res.Hits),
			"stale", res.Stale,
			"degraded", res.Degraded,
			"latency_ms", res.Latency.Milliseconds(),
		)
	}
	if rt.deps.Events == nil {
		return
	}
	ev := analytics.RouteEvent{
		Type:       analytics.EventRoute,
		RequestID:  requestID,
		Query:      raw,
		Intent:     string(res.Intent),
		Confidence: res.Confidence,
		Provenance: string(res.Provenance),
		Hits:       len(res.Hits),
		Stale:      res.Stale,
		Degraded:   res.Degraded,
		Stages:     res.Trace,
		LatencyMs:  res.Latency.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
	if res.Empty() {
		ev.Type = analytics.EventZeroResult
	}
	rt.deps.Events.Track(ev)
}

func emptyResult() *retriever.Result {
	return &retriever.Result{Provenance: retriever.ProvenanceNone}
}

// liveCourse picks the course a live lookup is for: the first course code in
// the query, else the top-ranked course document (topic matches rank first).
func liveCourse(q *query.Query, res *retriever.Result) string {
	if codes := q.CourseCodes(); len(codes) > 0 {
		return codes[0]
	}
	for _, h := range res.Hits {
		if h.Document.Domain == corpus.DomainCourse {
			if code := h.Document.Field(corpus.FieldCode); code != "" {
				return index.NormalizeCode(code)
			}
		}
	}
	return ""
}
