package index

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
)

// Posting records how often a term occurs in one document.
type Posting struct {
	DocID     string
	Frequency int
}

// PostingList is sorted by DocID.
type PostingList []Posting

// keywordIndex is an immutable inverted index over a fixed document set.
type keywordIndex struct {
	postings map[string]PostingList
	docLen   map[string]int
	totalLen int
}

func newKeywordIndex(docs []*corpus.Document, text func(*corpus.Document) string) *keywordIndex {
	k := &keywordIndex{
		postings: make(map[string]PostingList),
		docLen:   make(map[string]int, len(docs)),
	}
	for _, d := range docs {
		terms := Tokenize(text(d))
		freq := make(map[string]int, len(terms))
		for _, t := range terms {
			freq[t]++
		}
		for term, n := range freq {
			k.postings[term] = append(k.postings[term], Posting{DocID: d.ID, Frequency: n})
		}
		k.docLen[d.ID] = len(terms)
		k.totalLen += len(terms)
	}
	for term := range k.postings {
		list := k.postings[term]
		sort.Slice(list, func(i, j int) bool { return list[i].DocID < list[j].DocID })
	}
	return k
}

func (k *keywordIndex) lookup(term string) PostingList {
	return k.postings[term]
}

func (k *keywordIndex) docCount() int { return len(k.docLen) }

func (k *keywordIndex) avgDocLength() float64 {
	if len(k.docLen) == 0 {
		return 0
	}
	return float64(k.totalLen) / float64(len(k.docLen))
}

// score runs BM25 for terms. When allow is non-nil only its members are
// scored.
func (k *keywordIndex) score(terms []string, allow map[string]struct{}) map[string]float64 {
	perTerm := make(map[string]PostingList, len(terms))
	for _, t := range terms {
		if list := k.lookup(t); len(list) > 0 {
			perTerm[t] = list
		}
	}
	return rankBM25(perTerm, rankParams{
		TotalDocs:    int64(k.docCount()),
		AvgDocLength: k.avgDocLength(),
	}, func(id string) int { return k.docLen[id] }, allow)
}

// Partition is a keyed subset of an index with its own keyword statistics.
type Partition struct {
	docs     []*corpus.Document
	keywords *keywordIndex
	allow    map[string]struct{}
	byID     map[string]*corpus.Document
}

func newPartition(docs []*corpus.Document) *Partition {
	return newPartitionWith(docs, contentOf)
}

func newPartitionWith(docs []*corpus.Document, text func(*corpus.Document) string) *Partition {
	sortDocs(docs)
	byID := make(map[string]*corpus.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	return &Partition{docs: docs, keywords: newKeywordIndex(docs, text), byID: byID}
}

// Docs returns the partition's documents ordered by title then id.
func (p *Partition) Docs() []*corpus.Document {
	if p == nil {
		return nil
	}
	return p.docs
}

func (p *Partition) Len() int {
	if p == nil {
		return 0
	}
	return len(p.docs)
}

// BM25 scores the partition's documents against terms, which must already be
// tokenized. Documents without any term are absent from the map.
func (p *Partition) BM25(terms []string) map[string]float64 {
	if p == nil || len(terms) == 0 {
		return nil
	}
	return p.keywords.score(terms, p.allow)
}

// Filter returns a view holding only the documents keep accepts. The view
// shares keyword statistics with p.
func (p *Partition) Filter(keep func(*corpus.Document) bool) *Partition {
	if p == nil {
		return nil
	}
	out := &Partition{keywords: p.keywords, allow: make(map[string]struct{}), byID: p.byID}
	for _, d := range p.docs {
		if keep(d) {
			out.docs = append(out.docs, d)
			out.allow[d.ID] = struct{}{}
		}
	}
	return out
}

// candidates returns a view over the documents containing at least one of
// terms.
func (p *Partition) candidates(terms []string) *Partition {
	out := &Partition{keywords: p.keywords, allow: make(map[string]struct{}), byID: p.byID}
	for _, t := range terms {
		for _, posting := range p.keywords.lookup(t) {
			if _, seen := out.allow[posting.DocID]; seen {
				continue
			}
			if p.allow != nil {
				if _, ok := p.allow[posting.DocID]; !ok {
					continue
				}
			}
			if d, ok := p.byID[posting.DocID]; ok {
				out.allow[posting.DocID] = struct{}{}
				out.docs = append(out.docs, d)
			}
		}
	}
	sortDocs(out.docs)
	return out
}

func contentOf(d *corpus.Document) string { return d.Content() }

func sortDocs(docs []*corpus.Document) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Title != docs[j].Title {
			return docs[i].Title < docs[j].Title
		}
		return docs[i].ID < docs[j].ID
	})
}
