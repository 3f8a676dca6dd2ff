package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"google.golang.org/api/option"

	"veritasnews/internal/resilience/circuitbreaker"
	"veritasnews/internal/resilience/retry"
)

// geminiModel is the generation model used for all field prompts.
const geminiModel = "gemini-1.5-flash"

// geminiCallTimeout bounds a single prompt round trip.
const geminiCallTimeout = 60 * time.Second

// Gemini implements Summarizer on Google's Gemini API. It holds one client
// per configured API key and rotates between them through a KeyPool, so
// quota exhaustion on one key degrades rather than stops objectification.
type Gemini struct {
	pool           *KeyPool
	clients        map[string]*genai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewGemini builds clients for every key in the pool.
func NewGemini(ctx context.Context, apiKeys []string) (*Gemini, error) {
	pool, err := NewKeyPool(apiKeys)
	if err != nil {
		return nil, err
	}

	clients := make(map[string]*genai.Client, len(apiKeys))
	for _, key := range apiKeys {
		if key == "" {
			continue
		}
		client, err := genai.NewClient(ctx, option.WithAPIKey(key))
		if err != nil {
			for _, c := range clients {
				_ = c.Close()
			}
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		clients[key] = client
	}

	slog.Info("initialized gemini summarizer",
		slog.String("model", geminiModel),
		slog.Int("key_count", pool.Len()))

	return &Gemini{
		pool:           pool,
		clients:        clients,
		circuitBreaker: circuitbreaker.New(circuitbreaker.LLMAPIConfig("gemini")),
		retryConfig:    retry.AIAPIConfig(),
	}, nil
}

// Close releases every underlying client.
func (g *Gemini) Close() error {
	var firstErr error
	for _, c := range g.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Objectify generates the story fields from the combined group text.
func (g *Gemini) Objectify(ctx context.Context, combined string) (Fields, error) {
	return runPrompts(ctx, g.generate, combined), nil
}

// generate runs one prompt through retry and circuit breaker, picking a
// fresh key each attempt so retries naturally rotate away from a failing
// key.
func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, geminiCallTimeout)
	defer cancel()

	var result string

	retryErr := retry.WithBackoff(ctx, g.retryConfig, func() error {
		key := g.pool.Pick()

		cbResult, err := g.circuitBreaker.Execute(func() (interface{}, error) {
			return g.doGenerate(ctx, key, prompt)
		})

		if err != nil {
			g.pool.ReportError(key)
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("gemini api circuit breaker open, request rejected",
					slog.String("service", "gemini-api"),
					slog.String("state", g.circuitBreaker.State().String()))
				return fmt.Errorf("gemini api unavailable: circuit breaker open")
			}
			return err
		}

		result = cbResult.(string)
		return nil
	})

	if retryErr != nil {
		return "", fmt.Errorf("gemini generate failed after retries: %w", retryErr)
	}
	return result, nil
}

// doGenerate performs the actual API call without retry or circuit breaker.
func (g *Gemini) doGenerate(ctx context.Context, key, prompt string) (string, error) {
	client, ok := g.clients[key]
	if !ok {
		return "", fmt.Errorf("no client for selected key")
	}

	model := client.GenerativeModel(geminiModel)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini api error: %w", err)
	}

	return textFromResponse(resp)
}

// textFromResponse flattens the text parts of the first candidate.
func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini api returned empty response")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("gemini api returned no text parts")
	}
	return b.String(), nil
}
