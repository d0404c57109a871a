package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/llm"
)

// Composer produces the user-facing reply with a second completion call.
type Composer struct {
	client llm.Completer
}

// NewComposer creates a Composer backed by client.
func NewComposer(client llm.Completer) *Composer {
	return &Composer{client: client}
}

// Compose sends the full history with the persona prompt, augmented by the
// recording outcome when one exists.
func (c *Composer) Compose(ctx context.Context, history []domain.ChatMessage, outcome *RecordOutcome) (string, error) {
	text, err := c.client.Complete(ctx, buildReplyPrompt(outcome), history)
	if err != nil {
		return "", fmt.Errorf("Compose: %w", err)
	}
	return text, nil
}
