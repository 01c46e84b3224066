package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Embedder turns texts into vectors of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

var errRetryable = errors.New("retryable error")

// EmbeddingClient calls an OpenAI-compatible /embeddings endpoint.
type EmbeddingClient struct {
	apiKey     string
	model      string
	endpoint   string
	dimensions int
	retryDelay time.Duration
	httpClient *http.Client
}

// NewEmbeddingClient creates a client for the API rooted at baseURL, e.g.
// https://api.openai.com/v1.
func NewEmbeddingClient(apiKey, model, baseURL string, dimensions int) *EmbeddingClient {
	if dimensions <= 0 {
		dimensions = 1024
	}
	return &EmbeddingClient{
		apiKey:     apiKey,
		model:      model,
		endpoint:   strings.TrimRight(baseURL, "/") + "/embeddings",
		dimensions: dimensions,
		retryDelay: time.Second,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (ec *EmbeddingClient) Dimensions() int { return ec.dimensions }

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// Embed returns one vector per text, in input order.
func (ec *EmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(embeddingRequest{Input: texts, Model: ec.model, Dimensions: ec.dimensions})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	var (
		resp    *embeddingResponse
		lastErr error
	)
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * ec.retryDelay
			log.Warn().Int("attempt", attempt+1).Dur("backoff", backoff).Msg("Retrying embedding")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		resp, lastErr = ec.post(ctx, body)
		if lastErr == nil || !errors.Is(lastErr, errRetryable) {
			break
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("embedding request failed: %w", lastErr)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(vectors) {
			vectors[d.Index] = d.Embedding
		}
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("embedding API returned no vector for input %d", i)
		}
	}

	log.Debug().Int("texts", len(texts)).Int("tokens", resp.Usage.TotalTokens).Msg("Generated embeddings")
	return vectors, nil
}

func (ec *EmbeddingClient) post(ctx context.Context, body []byte) (*embeddingResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ec.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ec.apiKey)

	httpResp, err := ec.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding API call: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	switch {
	case httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500:
		return nil, fmt.Errorf("%w (status %d): %s", errRetryable, httpResp.StatusCode, data)
	case httpResp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("embedding API error (status %d): %s", httpResp.StatusCode, data)
	}

	var resp embeddingResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal embedding response: %w", err)
	}
	return &resp, nil
}

// EmbedBatch embeds texts batchSize at a time.
func EmbedBatch(ctx context.Context, e Embedder, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = 32
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		vectors, err := e.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		out = append(out, vectors...)
		log.Debug().Int("processed", len(out)).Int("total", len(texts)).Msg("Embedding progress")
	}
	return out, nil
}
