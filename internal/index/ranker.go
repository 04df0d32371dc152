package index

import (
	"container/heap"
	"math"
)

const (
	k1 = 1.2
	b  = 0.75
)

// Scored pairs a document id with its relevance score.
type Scored struct {
	DocID string
	Score float64
}

type rankParams struct {
	TotalDocs    int64
	AvgDocLength float64
}

func rankBM25(
	postingsPerTerm map[string]PostingList,
	params rankParams,
	docLength func(docID string) int,
	allow map[string]struct{},
) map[string]float64 {
	scores := make(map[string]float64)
	for _, postings := range postingsPerTerm {
		idf := computeIDF(params.TotalDocs, int64(len(postings)))
		for _, posting := range postings {
			if allow != nil {
				if _, ok := allow[posting.DocID]; !ok {
					continue
				}
			}
			tfNorm := computeTFNorm(
				float64(posting.Frequency),
				float64(docLength(posting.DocID)),
				params.AvgDocLength,
			)
			scores[posting.DocID] += idf * tfNorm
		}
	}
	for id, s := range scores {
		scores[id] = math.Round(s*10000) / 10000
	}
	return scores
}

func computeIDF(totalDocs int64, docFreq int64) float64 {
	numerator := float64(totalDocs) - float64(docFreq)
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}

// TopK returns the limit best entries, highest score first and ties by
// ascending DocID.
func TopK(scored []Scored, limit int) []Scored {
	if limit <= 0 {
		limit = 10
	}
	h := &scoredHeap{}
	for _, s := range scored {
		heap.Push(h, s)
		if h.Len() > limit {
			heap.Pop(h)
		}
	}
	result := make([]Scored, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(Scored)
	}
	return result
}

// scoredHeap keeps the worst entry on top.
type scoredHeap []Scored

func (h scoredHeap) Len() int { return len(h) }

func (h scoredHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].DocID > h[j].DocID
}

func (h scoredHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredHeap) Push(x any) {
	*h = append(*h, x.(Scored))
}

func (h *scoredHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
