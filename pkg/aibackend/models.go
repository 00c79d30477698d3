package aibackend

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/provider"
)

// ModelFactory builds a chat model for a resolved provider/model pair.
// Swapped for a stub in tests.
type ModelFactory func(ctx context.Context, res provider.Resolution) (llms.Model, error)

// DefaultModelFactory constructs real provider clients from environment keys.
func DefaultModelFactory(ctx context.Context, res provider.Resolution) (llms.Model, error) {
	switch res.Provider {
	case provider.OpenAI:
		return openai.New(
			openai.WithToken(os.Getenv("OPENAI_API_KEY")),
			openai.WithModel(res.Model),
		)
	case provider.Gemini:
		return googleai.New(ctx,
			googleai.WithAPIKey(os.Getenv("GEMINI_API_KEY")),
			googleai.WithDefaultModel(res.Model),
		)
	}
	return nil, fmt.Errorf("unknown provider %q", res.Provider)
}

// tokenCount digs a token counter out of a choice's GenerationInfo. The
// providers disagree on key names, so several are probed.
func tokenCount(info map[string]any, keys ...string) int {
	for _, k := range keys {
		if v, ok := info[k]; ok {
			switch n := v.(type) {
			case int:
				return n
			case int32:
				return int(n)
			case float64:
				return int(n)
			}
		}
	}
	return 0
}

func inputTokens(info map[string]any) int {
	return tokenCount(info, "PromptTokens", "input_tokens", "prompt_tokens")
}

func outputTokens(info map[string]any) int {
	return tokenCount(info, "CompletionTokens", "output_tokens", "completion_tokens")
}
