// Package encoder talks to the sentence embedding sidecar over HTTP JSON.
// The sidecar serves a multilingual sentence transformer; the pipeline
// treats it as a black box mapping texts to fixed-size vectors.
package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sony/gobreaker"

	"veritasnews/internal/resilience/circuitbreaker"
	"veritasnews/internal/resilience/retry"
)

// Encoder maps texts to embedding vectors, in order.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// Client is the HTTP adapter to the encoder sidecar. Large inputs are
// chunked into batches; a failing batch is split in half and each half
// retried once before the whole call fails.
type Client struct {
	endpoint       string
	model          string
	batchSize      int
	dim            int
	httpClient     *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// New creates a Client for the sidecar at endpoint. dim is the expected
// vector size; responses with a different size are rejected.
func New(endpoint, model string, batchSize, dim int, httpClient *http.Client) *Client {
	return &Client{
		endpoint:       endpoint,
		model:          model,
		batchSize:      batchSize,
		dim:            dim,
		httpClient:     httpClient,
		circuitBreaker: circuitbreaker.New(circuitbreaker.EncoderAPIConfig()),
		retryConfig:    retry.EncoderAPIConfig(),
	}
}

type encodeRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

type encodeResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Encode embeds texts in input order. Batching is internal; callers pass
// the full slice.
func (c *Client) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.encodeBatchWithSplit(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// encodeBatchWithSplit tries a batch whole, then falls back to two halves.
// Half-size retries recover from sidecar OOM on unusually long articles.
func (c *Client) encodeBatchWithSplit(ctx context.Context, batch []string) ([][]float32, error) {
	vecs, err := c.encodeBatch(ctx, batch)
	if err == nil {
		return vecs, nil
	}
	if len(batch) < 2 {
		return nil, err
	}

	slog.Warn("encoder batch failed, splitting",
		slog.Int("batch_size", len(batch)),
		slog.String("error", err.Error()))

	mid := len(batch) / 2
	first, err := c.encodeBatch(ctx, batch[:mid])
	if err != nil {
		return nil, fmt.Errorf("encode first half: %w", err)
	}
	second, err := c.encodeBatch(ctx, batch[mid:])
	if err != nil {
		return nil, fmt.Errorf("encode second half: %w", err)
	}
	return append(first, second...), nil
}

// encodeBatch performs one sidecar round trip through retry and circuit
// breaker.
func (c *Client) encodeBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var vecs [][]float32

	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doEncode(ctx, batch)
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("encoder circuit breaker open, request rejected",
					slog.String("service", "encoder"))
			}
			return err
		}

		vecs = cbResult.([][]float32)
		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}
	return vecs, nil
}

func (c *Client) doEncode(ctx context.Context, batch []string) ([][]float32, error) {
	payload, err := json.Marshal(encodeRequest{Model: c.model, Texts: batch})
	if err != nil {
		return nil, fmt.Errorf("marshal encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create encode request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("encoder request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("encoder returned %s: %s", resp.Status, body),
		}
	}

	var decoded encodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode encoder response: %w", err)
	}

	if len(decoded.Embeddings) != len(batch) {
		return nil, fmt.Errorf("encoder returned %d vectors for %d texts",
			len(decoded.Embeddings), len(batch))
	}
	for i, v := range decoded.Embeddings {
		if len(v) != c.dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), c.dim)
		}
	}
	return decoded.Embeddings, nil
}
