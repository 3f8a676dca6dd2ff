// Package summarizer turns a group of related articles into the objectified
// story fields using an LLM provider. Adapters exist for Gemini (the
// default, with API key rotation), OpenAI and Claude, all with circuit
// breaker and retry logic.
package summarizer

import (
	"context"
	"strings"
	"unicode/utf8"
)

// ErrorPlaceholder marks a field whose generation failed after retries.
// The record is still produced; downstream consumers filter on it.
const ErrorPlaceholder = "Error during generation"

// maxInputChars bounds the combined article text sent to a provider.
const maxInputChars = 20000

// Fields holds the generated story fields.
type Fields struct {
	Title         string
	Summary       string
	LongerSummary string
	Category      string
}

// Summarizer generates the objectified fields for the combined text of a
// story's articles.
type Summarizer interface {
	Objectify(ctx context.Context, combined string) (Fields, error)
}

// generateFunc is one provider round trip for a single prompt.
type generateFunc func(ctx context.Context, prompt string) (string, error)

// runPrompts executes the four field prompts in order. A failing prompt
// yields the error placeholder for that field only; one bad call does not
// discard the other fields. The category is normalized against the fixed
// list afterwards.
func runPrompts(ctx context.Context, generate generateFunc, combined string) Fields {
	combined = truncateInput(combined)

	f := Fields{
		Title:         generateField(ctx, generate, TitlePrompt, combined),
		Summary:       generateField(ctx, generate, SummaryPrompt, combined),
		LongerSummary: generateField(ctx, generate, DetailedPrompt, combined),
	}
	f.Category = NormalizeCategory(generateField(ctx, generate, CategoryPrompt(), combined))
	return f
}

func generateField(ctx context.Context, generate generateFunc, prompt, combined string) string {
	out, err := generate(ctx, prompt+"\n"+combined)
	if err != nil {
		return ErrorPlaceholder
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return ErrorPlaceholder
	}
	return out
}

func truncateInput(s string) string {
	if len(s) <= maxInputChars {
		return s
	}
	cut := maxInputChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
