package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/index"
	"github.com/panjf2000/ants/v2"
)

// Match is one nearest-neighbor hit.
type Match struct {
	ID    string
	Score float64
}

// Store is the global embedding index. A nil or empty domains filter searches
// every document.
type Store interface {
	Search(ctx context.Context, vec []float32, k int, domains []corpus.Domain) ([]Match, error)
}

// MemoryStore is a brute-force cosine index. It is immutable once built.
type MemoryStore struct {
	ids     []string
	domains []corpus.Domain
	vecs    [][]float32
}

func (m *MemoryStore) Len() int { return len(m.ids) }

func (m *MemoryStore) Search(ctx context.Context, vec []float32, k int, domains []corpus.Domain) ([]Match, error) {
	allowed := make(map[corpus.Domain]bool, len(domains))
	for _, d := range domains {
		allowed[d] = true
	}
	scored := make([]index.Scored, 0, len(m.ids))
	for i, v := range m.vecs {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if len(allowed) > 0 && !allowed[m.domains[i]] {
			continue
		}
		scored = append(scored, index.Scored{DocID: m.ids[i], Score: Cosine(vec, v)})
	}
	top := index.TopK(scored, k)
	out := make([]Match, len(top))
	for i, s := range top {
		out[i] = Match{ID: s.DocID, Score: s.Score}
	}
	return out, nil
}

// BuildOptions sizes the embedding worker pool.
type BuildOptions struct {
	Workers   int
	BatchSize int
}

// BuildMemoryStore embeds docs in batches on a bounded worker pool. The first
// embedding error aborts the build.
func BuildMemoryStore(ctx context.Context, docs []*corpus.Document, emb Embedder, opts BuildOptions) (*MemoryStore, error) {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	vecs, err := EmbedAll(ctx, docs, emb, opts)
	if err != nil {
		return nil, err
	}
	m := &MemoryStore{
		ids:     make([]string, len(docs)),
		domains: make([]corpus.Domain, len(docs)),
		vecs:    vecs,
	}
	for i, d := range docs {
		m.ids[i] = d.ID
		m.domains[i] = d.Domain
	}
	return m, nil
}

// EmbedAll returns one vector per document, in document order.
func EmbedAll(ctx context.Context, docs []*corpus.Document, emb Embedder, opts BuildOptions) ([][]float32, error) {
	pool, err := ants.NewPool(opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("creating embedding pool: %w", err)
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vecs := make([][]float32, len(docs))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}
	for start := 0; start < len(docs); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(docs))
		texts := make([]string, 0, end-start)
		for _, d := range docs[start:end] {
			texts = append(texts, d.Content())
		}
		wg.Add(1)
		start := start
		if err := pool.Submit(func() {
			defer wg.Done()
			out, err := emb.Embed(ctx, texts)
			if err != nil {
				fail(fmt.Errorf("embedding documents %d-%d: %w", start, start+len(texts)-1, err))
				return
			}
			if len(out) != len(texts) {
				fail(fmt.Errorf("embedding documents %d-%d: got %d vectors", start, start+len(texts)-1, len(out)))
				return
			}
			copy(vecs[start:], out)
		}); err != nil {
			wg.Done()
			fail(fmt.Errorf("submitting embedding batch: %w", err))
			break
		}
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return vecs, nil
}
