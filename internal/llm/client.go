// Package llm wraps the external text-completion service.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-assistant/internal/config"
	"github.com/dvloznov/finance-assistant/internal/domain"
)

// ErrNotConfigured is returned when no completion API key is available.
var ErrNotConfigured = errors.New("completion API key not configured")

// Completer is a stateless text-completion function. The returned text is
// free-form; callers must not assume it is valid JSON.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, messages []domain.ChatMessage) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, systemPrompt string, messages []domain.ChatMessage) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, systemPrompt string, messages []domain.ChatMessage) (string, error) {
	return f(ctx, systemPrompt, messages)
}

const (
	// DefaultGroqModel is the model used when the groq provider has no model set.
	DefaultGroqModel = "llama-3.3-70b-versatile"

	// DefaultGeminiModel is the model used when the gemini provider has no model set.
	DefaultGeminiModel = "gemini-2.5-flash"
)

// New creates a Completer for the configured provider.
func New(ctx context.Context, cfg config.LLMConfig) (Completer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}

	switch strings.ToLower(cfg.Provider) {
	case "", "groq":
		return NewGroqClient(cfg), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
