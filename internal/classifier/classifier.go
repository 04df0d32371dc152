// Package classifier assigns exactly one intent to a preprocessed query.
// Keyword rules decide first; when they are inconclusive the query embedding
// is compared against labeled exemplars, and anything still unresolved is
// general.
package classifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/query"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/vector"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/resilience"
)

const (
	DefaultThreshold         = 0.7
	DefaultExemplarThreshold = 0.45
	DefaultEmbedTimeout      = 250 * time.Millisecond

	// generalConfidence is reported when no signal clears its threshold.
	generalConfidence = 0.3
)

// Decision sources, as reported to metrics.
const (
	SourceRules    = "rules"
	SourceExemplar = "exemplar"
	SourceDefault  = "default"
)

type Options struct {
	Threshold         float64
	ExemplarThreshold float64
	EmbedTimeout      time.Duration
	Exemplars         []Exemplar
}

type exemplarVec struct {
	intent query.Intent
	vec    []float32
}

type Classifier struct {
	embedder  vector.Embedder
	exemplars []exemplarVec
	opts      Options
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New embeds the exemplars once. If that fails the classifier runs on rules
// alone. A nil embedder disables the exemplar signal.
func New(ctx context.Context, embedder vector.Embedder, opts Options, m *metrics.Metrics) *Classifier {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.ExemplarThreshold <= 0 {
		opts.ExemplarThreshold = DefaultExemplarThreshold
	}
	if opts.EmbedTimeout <= 0 {
		opts.EmbedTimeout = DefaultEmbedTimeout
	}
	if opts.Exemplars == nil {
		opts.Exemplars = DefaultExemplars
	}
	c := &Classifier{
		embedder: embedder,
		opts:     opts,
		metrics:  m,
		logger:   slog.Default().With("component", "classifier"),
	}
	if embedder == nil || len(opts.Exemplars) == 0 {
		return c
	}

	texts := make([]string, len(opts.Exemplars))
	for i, ex := range opts.Exemplars {
		texts[i] = ex.Text
	}
	vecs, err := embedder.Embed(ctx, texts)
	if err != nil || len(vecs) != len(texts) {
		c.logger.Warn("exemplar embedding failed, classifying with rules only", "error", err, "vectors", len(vecs))
		return c
	}
	for i, ex := range opts.Exemplars {
		c.exemplars = append(c.exemplars, exemplarVec{intent: ex.Intent, vec: vecs[i]})
	}
	c.logger.Info("exemplars embedded", "count", len(c.exemplars))
	return c
}

// Classify decides the intent, stores it on q and returns it. It always
// returns one of query.Intents. A query that already carries an intent keeps
// it.
func (c *Classifier) Classify(ctx context.Context, q *query.Query) (query.Intent, float64) {
	if q.Intent() != "" {
		return q.Intent(), q.Confidence()
	}

	intent, confidence, source := c.decide(ctx, q)
	if err := q.SetIntent(intent, confidence); err != nil {
		c.logger.Error("setting intent", "error", err)
	}
	c.metrics.ObserveClassification(string(intent), source)
	return intent, confidence
}

func (c *Classifier) decide(ctx context.Context, q *query.Query) (query.Intent, float64, string) {
	best, score := bestRule(ruleScores(q))
	confidence := ruleConfidence(score)
	if score > 0 && confidence >= c.opts.Threshold {
		return best, confidence, SourceRules
	}

	if intent, sim, ok := c.nearestExemplar(ctx, q); ok && sim >= c.opts.ExemplarThreshold {
		return intent, sim, SourceExemplar
	}
	return query.IntentGeneral, generalConfidence, SourceDefault
}

// nearestExemplar returns the most similar exemplar's intent. Exemplars are
// scanned in order and only a strictly better similarity replaces the
// current best, so results are stable for identical input.
func (c *Classifier) nearestExemplar(ctx context.Context, q *query.Query) (query.Intent, float64, bool) {
	if len(c.exemplars) == 0 {
		return "", 0, false
	}
	text := q.Expanded()
	if text == "" {
		return "", 0, false
	}
	vec, err := resilience.TimeoutValue(ctx, c.opts.EmbedTimeout, "exemplar embedding", func(ctx context.Context) ([]float32, error) {
		return vector.EmbedOne(ctx, c.embedder, text)
	})
	if err != nil {
		c.logger.Debug("query embedding unavailable, skipping exemplars", "error", err)
		return "", 0, false
	}

	var (
		best    query.Intent
		bestSim float64
		found   bool
	)
	for _, ex := range c.exemplars {
		sim := vector.Cosine(vec, ex.vec)
		if !found || sim > bestSim {
			best, bestSim, found = ex.intent, sim, true
		}
	}
	return best, bestSim, found
}
