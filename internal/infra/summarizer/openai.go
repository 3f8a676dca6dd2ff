package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"veritasnews/internal/resilience/circuitbreaker"
	"veritasnews/internal/resilience/retry"
)

const (
	openaiModel       = openai.GPT4oMini
	openaiMaxTokens   = 1024
	openaiCallTimeout = 60 * time.Second
)

// OpenAI implements Summarizer using the OpenAI chat completion API. It is
// the fallback provider when no Gemini keys are configured.
type OpenAI struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewOpenAI creates an OpenAI summarizer with the given API key.
func NewOpenAI(apiKey string) *OpenAI {
	slog.Info("initialized openai summarizer", slog.String("model", openaiModel))

	return &OpenAI{
		client:         openai.NewClient(apiKey),
		circuitBreaker: circuitbreaker.New(circuitbreaker.LLMAPIConfig("openai")),
		retryConfig:    retry.AIAPIConfig(),
	}
}

// Objectify generates the story fields from the combined group text.
func (o *OpenAI) Objectify(ctx context.Context, combined string) (Fields, error) {
	return runPrompts(ctx, o.generate, combined), nil
}

func (o *OpenAI) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, openaiCallTimeout)
	defer cancel()

	var result string

	retryErr := retry.WithBackoff(ctx, o.retryConfig, func() error {
		cbResult, err := o.circuitBreaker.Execute(func() (interface{}, error) {
			return o.doGenerate(ctx, prompt)
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("openai api circuit breaker open, request rejected",
					slog.String("service", "openai-api"),
					slog.String("state", o.circuitBreaker.State().String()))
				return fmt.Errorf("openai api unavailable: circuit breaker open")
			}
			return err
		}

		result = cbResult.(string)
		return nil
	})

	if retryErr != nil {
		return "", fmt.Errorf("openai generate failed after retries: %w", retryErr)
	}
	return result, nil
}

// doGenerate performs the actual API call without retry or circuit breaker.
func (o *OpenAI) doGenerate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     openaiModel,
		MaxTokens: openaiMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai api returned empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
