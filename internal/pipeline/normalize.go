package pipeline

import (
	"fmt"
	"math"
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// Normalizer turns a record_transaction intent into a storable Transaction.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer creates a Normalizer using the wall clock for default dates.
func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// Normalize returns nil unless the intent is record_transaction with a valid
// type and a positive finite amount. Missing category, description and date
// are defaulted; an unparseable date is replaced by today.
func (n *Normalizer) Normalize(intent *IntentResult, userID string) *domain.Transaction {
	if intent == nil || intent.Intent != IntentRecordTransaction {
		return nil
	}
	if intent.Type == nil || !intent.Type.Valid() {
		return nil
	}
	if intent.Amount == nil {
		return nil
	}
	amount := *intent.Amount
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil
	}

	txType := *intent.Type

	category := domain.DefaultCategory(txType)
	if intent.Category != nil && *intent.Category != "" {
		category = *intent.Category
	}

	description := fmt.Sprintf("%s: %s", txType.Label(), category)
	if intent.Description != nil && *intent.Description != "" {
		description = *intent.Description
	}

	date := n.now().Format(domain.DateFormat)
	if intent.Date != nil {
		if d, err := time.Parse(domain.DateFormat, *intent.Date); err == nil {
			date = d.Format(domain.DateFormat)
		}
	}

	return &domain.Transaction{
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Category:    category,
		Description: description,
		Date:        date,
	}
}
