package llm

import (
	"context"
	"fmt"
	"time"

	"myflex/internal/config"
	"myflex/internal/shared"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const groqBaseURL = "https://api.groq.com/openai/v1/"

// GroqClient talks to Groq through its OpenAI-compatible endpoint.
type GroqClient struct {
	client openai.Client
	model  string
}

// NewGroqClient creates a new Groq API client.
func NewGroqClient(cfg *config.Config, opts ...option.RequestOption) *GroqClient {
	base := []option.RequestOption{
		option.WithAPIKey(cfg.GroqAPIKey),
		option.WithBaseURL(groqBaseURL),
		option.WithRequestTimeout(30 * time.Second),
		option.WithMaxRetries(0),
	}
	return &GroqClient{
		client: openai.NewClient(append(base, opts...)...),
		model:  cfg.GroqModel,
	}
}

// GenerateContent sends a prompt to the Groq model and returns the generated text.
func (c *GroqClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return ContentResponse{}, fmt.Errorf("groq api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return ContentResponse{}, fmt.Errorf("no content generated")
	}

	return ContentResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: shared.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
			Model:            c.model,
		},
	}, nil
}
