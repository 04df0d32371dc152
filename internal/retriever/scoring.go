package retriever

import (
	"sort"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/index"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/query"
)

// Limits caps result sizes by query scope.
type Limits struct {
	TopResults   int
	CompleteList int
}

var DefaultLimits = Limits{TopResults: 10, CompleteList: 50}

func (l Limits) For(q *query.Query) int {
	if l.TopResults <= 0 {
		l.TopResults = DefaultLimits.TopResults
	}
	if l.CompleteList <= 0 {
		l.CompleteList = DefaultLimits.CompleteList
	}
	return q.Limit(l.TopResults, l.CompleteList)
}

// weightedField is one document field and its match weight.
type weightedField struct {
	value  string
	weight float64
}

// fieldScore adds weight for every word contained in a field and half the
// weight again when the word appears as a whole word. Words shorter than
// three letters only count as whole words.
func fieldScore(words []string, fields []weightedField) float64 {
	var score float64
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		lower := strings.ToLower(f.value)
		for _, w := range words {
			whole := containsWord(lower, w)
			switch {
			case whole:
				score += f.weight + f.weight/2
			case len(w) >= 3 && strings.Contains(lower, w):
				score += f.weight
			}
		}
	}
	return score
}

func containsWord(text, word string) bool {
	for i := 0; ; {
		j := strings.Index(text[i:], word)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(word)
		if (start == 0 || !isWordByte(text[start-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		i = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// contentWords returns the query terms left after removing stopwords, the
// words in ignore and, unless keepNumbers is set, numbers. Order follows
// q.Terms and duplicates are dropped.
func contentWords(q *query.Query, ignore map[string]struct{}, keepNumbers bool) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, term := range q.Terms {
		for _, w := range strings.Fields(term) {
			if _, ok := seen[w]; ok {
				continue
			}
			if _, ok := ignore[w]; ok || index.IsStopWord(w) || len(w) < 2 {
				continue
			}
			if !keepNumbers && isNumber(w) {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}

// stems tokenizes words for keyword index lookups.
func stems(words []string) []string {
	return index.Tokenize(strings.Join(words, " "))
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// departmentWords are the words of every department alias. They select a
// partition rather than describe content.
var departmentWords = func() map[string]struct{} {
	m := make(map[string]struct{})
	for alias := range query.DepartmentAliases {
		for _, w := range strings.Fields(alias) {
			m[w] = struct{}{}
		}
	}
	return m
}()

func union(sets ...map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for _, s := range sets {
		for k := range s {
			out[k] = struct{}{}
		}
	}
	return out
}

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// rank sorts hits by score descending, then by title and id, and truncates
// to limit.
func rank(hits []Hit, limit int) []Hit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Document.Title != hits[j].Document.Title {
			return hits[i].Document.Title < hits[j].Document.Title
		}
		return hits[i].Document.ID < hits[j].Document.ID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// finish stamps provenance and latency on a fast-path result.
func finish(hits []Hit, start time.Time) *Result {
	res := &Result{Hits: hits, Provenance: ProvenanceNone, Latency: time.Since(start)}
	if len(hits) > 0 {
		res.Provenance = ProvenanceFastPath
	}
	return res
}

// partitionHits wraps every document of a partition with a flat score.
func partitionHits(docs []*corpus.Document, score float64, source string) []Hit {
	hits := make([]Hit, 0, len(docs))
	for _, d := range docs {
		hits = append(hits, Hit{Document: d, Score: score, Source: source})
	}
	return hits
}
