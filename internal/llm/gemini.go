package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/dvloznov/finance-assistant/internal/config"
	"github.com/dvloznov/finance-assistant/internal/domain"
)

// GeminiClient completes chats with a Gemini model through the GenAI SDK.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

// NewGeminiClient creates a GenAI client bound to the configured API key.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClient: create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	return &GeminiClient{
		client:      client,
		model:       model,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
	}, nil
}

// Complete sends the system prompt as a system instruction and the messages as contents.
func (c *GeminiClient) Complete(ctx context.Context, systemPrompt string, messages []domain.ChatMessage) (string, error) {
	contents := toGeminiContents(messages)
	if len(contents) == 0 {
		return "", fmt.Errorf("gemini: no messages to complete")
	}

	temperature := c.temperature
	genCfg := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if c.maxTokens > 0 {
		genCfg.MaxOutputTokens = c.maxTokens
	}
	if systemPrompt != "" {
		genCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}

	return resp.Text(), nil
}

// toGeminiContents maps chat roles onto Gemini's user/model roles.
func toGeminiContents(messages []domain.ChatMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == domain.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return contents
}
