package index

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/irishask/financial-ai-agent/internal/common"
)

// Embedder turns texts into embedding vectors. Implementations must be safe
// for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAIEmbedder embeds texts with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder creates an embedder. Model defaults to
// text-embedding-3-small when empty.
func NewOpenAIEmbedder(apiKey, embeddingModel string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openai api key", common.ErrMissingConfig)
	}
	m := openai.EmbeddingModel(embeddingModel)
	if embeddingModel == "" {
		m = openai.SmallEmbedding3
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(apiKey),
		model:  m,
	}, nil
}

// Embed returns one vector per input text, in input order. Transient API
// failures retry with backoff; rate limits back off to the max delay.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp openai.EmbeddingResponse
	err := common.WithRetry(ctx, func() error {
		var callErr error
		resp, callErr = e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: e.model,
		})
		return classifyAPIError(callErr)
	}, common.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     20 * time.Second,
		Multiplier:   2,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d, want %d", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embedding response index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// classifyAPIError sorts API failures into retryable, rate-limited, and
// permanent buckets for the retry loop.
func classifyAPIError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", common.ErrRateLimit, err)
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusBadRequest:
			return &common.RetryableError{Err: err, Retryable: false}
		}
	}
	return &common.RetryableError{Err: err, Retryable: true}
}
