package vector

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/cache"
)

// CachingEmbedder memoizes another embedder's vectors by exact text.
type CachingEmbedder struct {
	inner Embedder
	memo  *cache.LRU[[]float32]
}

func NewCachingEmbedder(inner Embedder, size int) *CachingEmbedder {
	return &CachingEmbedder{inner: inner, memo: cache.NewLRU[[]float32](size, 0)}
}

func (c *CachingEmbedder) Dimension() int { return c.inner.Dimension() }

// Embed serves cached vectors and forwards only the misses, in one call.
func (c *CachingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var positions []int
	for i, text := range texts {
		if vec, ok := c.memo.Get(text); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		positions = append(positions, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	vecs, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missing))
	}
	for j, vec := range vecs {
		c.memo.Set(missing[j], vec, 0)
		out[positions[j]] = vec
	}
	return out, nil
}
