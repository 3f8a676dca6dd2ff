package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"

	"veritasnews/internal/resilience/circuitbreaker"
	"veritasnews/internal/resilience/retry"
)

const (
	claudeModel       = string(anthropic.ModelClaudeSonnet4_5_20250929)
	claudeMaxTokens   = 1024
	claudeCallTimeout = 60 * time.Second
)

// Claude implements Summarizer using Anthropic's Claude API.
type Claude struct {
	client         anthropic.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewClaude creates a Claude summarizer with the given API key.
func NewClaude(apiKey string) *Claude {
	slog.Info("initialized claude summarizer", slog.String("model", claudeModel))

	return &Claude{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		circuitBreaker: circuitbreaker.New(circuitbreaker.LLMAPIConfig("claude")),
		retryConfig:    retry.AIAPIConfig(),
	}
}

// Objectify generates the story fields from the combined group text.
func (c *Claude) Objectify(ctx context.Context, combined string) (Fields, error) {
	return runPrompts(ctx, c.generate, combined), nil
}

func (c *Claude) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, claudeCallTimeout)
	defer cancel()

	var result string

	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doGenerate(ctx, prompt)
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("claude api circuit breaker open, request rejected",
					slog.String("service", "claude-api"),
					slog.String("state", c.circuitBreaker.State().String()))
				return fmt.Errorf("claude api unavailable: circuit breaker open")
			}
			return err
		}

		result = cbResult.(string)
		return nil
	})

	if retryErr != nil {
		return "", fmt.Errorf("claude generate failed after retries: %w", retryErr)
	}
	return result, nil
}

// doGenerate performs the actual API call without retry or circuit breaker.
func (c *Claude) doGenerate(ctx context.Context, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(claudeModel),
		MaxTokens: claudeMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude api error: %w", err)
	}

	if len(message.Content) == 0 {
		return "", fmt.Errorf("claude api returned empty response")
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", fmt.Errorf("claude api returned unexpected response type")
	}
	return textBlock.Text, nil
}
