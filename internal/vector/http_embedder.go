package vector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/resilience"
	openai "github.com/sashabaranov/go-openai"
)

// HTTPEmbedder calls an OpenAI-compatible /embeddings endpoint.
type HTTPEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dim    int
	retry  resilience.RetryConfig
}

func NewHTTPEmbedder(cfg config.EmbeddingConfig) *HTTPEmbedder {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &HTTPEmbedder{
		client: openai.NewClientWithConfig(clientConfig),
		model:  openai.EmbeddingModel(cfg.Model),
		dim:    cfg.Dimension,
		retry: resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Retryable:    retryableEmbeddingError,
		},
	}
}

func (e *HTTPEmbedder) Dimension() int { return e.dim }

func (e *HTTPEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp openai.EmbeddingResponse
	err := resilience.Retry(ctx, "embed", e.retry, func(ctx context.Context) error {
		var err error
		resp, err = e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: e.model,
		})
		return err
	})
	if err != nil {
		return nil, apperrors.Upstream("embedding request", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding endpoint returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		if e.dim > 0 && len(d.Embedding) != e.dim {
			return nil, fmt.Errorf("embedding has dimension %d, want %d", len(d.Embedding), e.dim)
		}
		out[i] = d.Embedding
	}
	return out, nil
}

// retryableEmbeddingError retries rate limits, server errors and transport
// failures. Other HTTP statuses are final.
func retryableEmbeddingError(err error) bool {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status != 0 {
		return status == http.StatusTooManyRequests || status >= 500
	}
	return !errors.Is(err, context.Canceled)
}
