package retriever

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/index"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/query"
)

const SourceCampus = "campus_partition"

// Campus field weights.
const (
	weightName     = 4
	weightBuilding = 3
	weightType     = 3
	weightLocation = 2
	weightKeywords = 2
	weightBody     = 1
)

var campusIgnore = map[corpus.Domain]map[string]struct{}{
	corpus.DomainDining: wordSet(
		"eat", "eating", "food", "foods", "dining", "dine", "restaurant", "restaurants", "hungry",
		"meal", "meals", "place", "places", "spot", "spots", "option", "options", "campus", "near",
		"nearby", "open", "hours", "today", "get", "grab", "good", "best", "serve", "serves", "ku",
	),
	corpus.DomainTransit: wordSet(
		"bus", "buses", "transit", "transportation", "shuttle", "ride", "rides", "get", "go", "going",
		"campus", "schedule", "schedules", "times", "time", "take", "ku", "how",
	),
}

// CampusRetriever serves dining and transit queries from the campus index.
type CampusRetriever struct {
	campus *index.CampusIndex
	limits Limits
}

func NewCampusRetriever(campus *index.CampusIndex, limits Limits) *CampusRetriever {
	return &CampusRetriever{campus: campus, limits: limits}
}

func (r *CampusRetriever) Name() string { return "campus" }

// Retrieve returns the whole domain partition when the query carries nothing
// beyond its intent vocabulary, otherwise the entries matching its words.
func (r *CampusRetriever) Retrieve(ctx context.Context, q *query.Query) (*Result, error) {
	start := time.Now()
	domain, ok := CampusDomain(q.Intent())
	if !ok {
		return finish(nil, start), nil
	}
	part := r.campus.Domain(domain)
	if part.Len() == 0 {
		return finish(nil, start), nil
	}
	limit := r.limits.For(q)

	words := contentWords(q, campusIgnore[domain], true)
	if len(words) == 0 {
		return finish(rank(partitionHits(part.Docs(), 1, SourceCampus), limit), start), nil
	}

	bm25 := part.BM25(stems(words))
	var hits []Hit
	for _, d := range part.Docs() {
		s := bm25[d.ID] + fieldScore(words, campusFields(d))
		if s > 0 {
			hits = append(hits, Hit{Document: d, Score: s, Source: SourceCampus})
		}
	}
	return finish(rank(hits, limit), start), nil
}

// CampusDomain maps an intent onto the campus partition that serves it.
func CampusDomain(intent query.Intent) (corpus.Domain, bool) {
	switch intent {
	case query.IntentDiningInfo:
		return corpus.DomainDining, true
	case query.IntentTransitInfo:
		return corpus.DomainTransit, true
	}
	return "", false
}

func campusFields(d *corpus.Document) []weightedField {
	kw := ""
	for _, k := range d.Keywords {
		kw += k + " "
	}
	return []weightedField{
		{d.Title, weightName},
		{d.Field(corpus.FieldBuilding), weightBuilding},
		{d.Field(corpus.FieldType), weightType},
		{d.Field(corpus.FieldLocation), weightLocation},
		{kw, weightKeywords},
		{d.Text, weightBody},
	}
}
