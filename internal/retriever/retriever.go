// Package retriever defines the retrieval result shared by every stage and
// the specialized course, faculty and campus retrievers that read the
// partitioned indexes.
package retriever

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/live"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/query"
)

// Provenance names the stages that produced a result's documents.
type Provenance string

const (
	ProvenanceNone           Provenance = "none"
	ProvenanceFastPath       Provenance = "fast_path"
	ProvenanceVectorFallback Provenance = "vector_fallback"
	ProvenanceLiveLookup     Provenance = "live_lookup"
	ProvenanceFastPathLive   Provenance = "fast_path+live_lookup"
	ProvenanceVectorLive     Provenance = "vector_fallback+live_lookup"
)

// WithLive returns the provenance after a live lookup contributed.
func (p Provenance) WithLive() Provenance {
	switch p {
	case ProvenanceFastPath:
		return ProvenanceFastPathLive
	case ProvenanceVectorFallback:
		return ProvenanceVectorLive
	default:
		return ProvenanceLiveLookup
	}
}

// Hit is one ranked document. Document points into a read-only index unless
// live data was merged, in which case it is a private copy.
type Hit struct {
	Document *corpus.Document `json:"document"`
	Score    float64          `json:"score"`
	Source   string           `json:"source"`
}

// Result is what a retrieval stage, and finally the router, produces.
type Result struct {
	Hits       []Hit         `json:"hits"`
	Provenance Provenance    `json:"provenance"`
	Latency    time.Duration `json:"latency_ns"`
	Stale      bool          `json:"stale"`
	Degraded   bool          `json:"degraded"`
	Reasons    []string      `json:"reasons,omitempty"`
	Trace      []string      `json:"trace,omitempty"`
	Intent     query.Intent  `json:"intent,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
	Live       *live.Payload `json:"live,omitempty"`
}

func (r *Result) Empty() bool { return r == nil || len(r.Hits) == 0 }

// Documents returns the hit documents in rank order.
func (r *Result) Documents() []*corpus.Document {
	if r == nil {
		return nil
	}
	docs := make([]*corpus.Document, len(r.Hits))
	for i, h := range r.Hits {
		docs[i] = h.Document
	}
	return docs
}

// Retriever is one retrieval strategy. An empty result is valid and tells
// the router to escalate.
type Retriever interface {
	Name() string
	Retrieve(ctx context.Context, q *query.Query) (*Result, error)
}
