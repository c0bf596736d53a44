package llm

import (
	"context"
	"fmt"

	"myflex/internal/config"
	"myflex/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// New builds the text generator selected by cfg.LLMProvider. Callers should
// close the result when it implements Closer.
func New(ctx context.Context, cfg *config.Config) (TextGenerator, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderGroq:
		return NewGroqClient(cfg), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
}
