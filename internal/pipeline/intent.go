package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/llm"
	"github.com/dvloznov/finance-assistant/internal/logger"
)

// Intent is the classifier's verdict on one user message.
type Intent string

const (
	IntentRecordTransaction Intent = "record_transaction"
	IntentGeneralChat       Intent = "general_chat"
)

// IntentResult is the per-turn extraction. Every field but Intent is
// optional; it is promoted into a Transaction by the normalizer or dropped.
type IntentResult struct {
	Intent      Intent                  `json:"intent"`
	Type        *domain.TransactionType `json:"type"`
	Amount      *float64                `json:"amount"`
	Category    *string                 `json:"category"`
	Description *string                 `json:"description"`
	Date        *string                 `json:"date"`
}

// GeneralChat is the fallback result for anything that cannot be classified.
func GeneralChat() *IntentResult {
	return &IntentResult{Intent: IntentGeneralChat}
}

// Extractor classifies the latest user message with one completion call.
type Extractor struct {
	client llm.Completer
	now    func() time.Time
}

// NewExtractor creates an Extractor backed by client.
func NewExtractor(client llm.Completer) *Extractor {
	return &Extractor{client: client, now: time.Now}
}

// Extract never fails: completion errors and unparseable responses degrade
// to general_chat. The raw completion text is returned for archiving.
func (e *Extractor) Extract(ctx context.Context, latestUserText string) (*IntentResult, string) {
	log := logger.FromContext(ctx)

	raw, err := e.client.Complete(ctx, buildClassifierPrompt(e.now()), []domain.ChatMessage{
		{Role: domain.RoleUser, Content: latestUserText},
	})
	if err != nil {
		log.Warn().Err(err).Msg("intent classification failed, treating as general chat")
		return GeneralChat(), ""
	}
	log.Debug().Str("raw", raw).Msg("classifier output")

	return ParseIntent(raw), raw
}

// ParseIntent converts a classifier response into an IntentResult. Fields
// with the wrong JSON type are treated as absent.
func ParseIntent(raw string) *IntentResult {
	m, ok := extractJSONObject(raw)
	if !ok {
		return GeneralChat()
	}

	result := GeneralChat()

	if intent, _ := getOptionalStringField(m, "intent"); intent != nil &&
		Intent(strings.ToLower(*intent)) == IntentRecordTransaction {
		result.Intent = IntentRecordTransaction
	}

	if s, _ := getOptionalStringField(m, "type"); s != nil {
		t := domain.TransactionType(strings.ToLower(*s))
		if t.Valid() {
			result.Type = &t
		}
	}

	result.Amount, _ = getOptionalFloat64Field(m, "amount")
	result.Category, _ = getOptionalStringField(m, "category")
	result.Description, _ = getOptionalStringField(m, "description")
	result.Date, _ = getOptionalStringField(m, "date")

	return result
}
