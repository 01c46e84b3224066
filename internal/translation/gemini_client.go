package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the Gemini REST endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

const maxAttempts = 3

var (
	errRetryable = errors.New("retryable error")
	// errTruncated marks an answer cut off by the output token limit. A
	// truncated batch cannot be split back into its strings.
	errTruncated = errors.New("answer truncated")
)

// Generation holds the sampling settings sent with every request.
type Generation struct {
	Temperature     float64
	MaxOutputTokens int
}

// DefaultGeneration keeps output close to the source. Item names and
// dialogue lines should not be paraphrased.
var DefaultGeneration = Generation{Temperature: 0.3, MaxOutputTokens: 8192}

// GeminiClient is a Completer backed by the Gemini generateContent API.
type GeminiClient struct {
	apiKey     string
	endpoint   string
	gen        Generation
	retryDelay time.Duration
	httpClient *http.Client
}

// NewGeminiClient returns a client for model. An empty baseURL selects
// DefaultBaseURL.
func NewGeminiClient(apiKey, model, baseURL string) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &GeminiClient{
		apiKey:     apiKey,
		endpoint:   fmt.Sprintf("%s/%s:generateContent", strings.TrimRight(baseURL, "/"), model),
		gen:        DefaultGeneration,
		retryDelay: 2 * time.Second,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  genConfig       `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type genConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Usage      *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

// text joins the parts of the first candidate.
func (r *geminiResponse) text() (string, error) {
	if r.Error != nil {
		return "", fmt.Errorf("API error [%s]: %s", r.Error.Status, r.Error.Message)
	}
	if len(r.Candidates) == 0 {
		return "", errors.New("empty response: no candidates")
	}
	c := r.Candidates[0]
	switch c.FinishReason {
	case "", "STOP":
	case "MAX_TOKENS":
		return "", errTruncated
	default:
		return "", fmt.Errorf("generation stopped: %s", c.FinishReason)
	}
	var sb strings.Builder
	for _, p := range c.Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

// Complete sends one system and user prompt pair. Rate limits and server
// errors are retried with a growing delay.
func (gc *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: userPrompt}}}},
		GenerationConfig:  genConfig{Temperature: gc.gen.Temperature, MaxOutputTokens: gc.gen.MaxOutputTokens},
	})
	if err != nil {
		return "", fmt.Errorf("marshal translation request: %w", err)
	}

	var (
		wait    time.Duration
		lastErr error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if wait > 0 {
			log.Warn().Int("attempt", attempt).Dur("backoff", wait).Msg("Retrying translation")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}

		var resp *geminiResponse
		resp, wait, lastErr = gc.post(ctx, body)
		if lastErr == nil {
			return resp.text()
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !errors.Is(lastErr, errRetryable) {
			break
		}
		wait = max(wait, time.Duration(attempt)*gc.retryDelay)
	}
	return "", fmt.Errorf("translation request failed: %w", lastErr)
}

// post makes one request. On a retryable failure it also returns the
// delay asked for by a Retry-After header, if any.
func (gc *GeminiClient) post(ctx context.Context, body []byte) (*geminiResponse, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gc.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", gc.apiKey)

	httpResp, err := gc.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("API call: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	switch {
	case httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500:
		return nil, retryAfter(httpResp.Header), fmt.Errorf("%w (status %d): %s", errRetryable, httpResp.StatusCode, data)
	case httpResp.StatusCode != http.StatusOK:
		return nil, 0, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, data)
	}

	var resp geminiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, 0, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Usage != nil {
		log.Debug().
			Int("prompt_tokens", resp.Usage.PromptTokenCount).
			Int("output_tokens", resp.Usage.CandidatesTokenCount).
			Msg("Translation complete")
	}
	return &resp, 0, nil
}

// retryAfter reads a Retry-After header given in seconds, capped at a
// minute.
func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return min(time.Duration(secs)*time.Second, time.Minute)
}
