package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED

	Type   string   `bigquery:"type"`   // REQUIRED: income | expense
	Amount *big.Rat `bigquery:"amount"` // REQUIRED NUMERIC, > 0

	Category    bigquery.NullString `bigquery:"category"`    // NULLABLE
	Description bigquery.NullString `bigquery:"description"` // NULLABLE

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
	UpdatedTS time.Time `bigquery:"updated_ts"` // REQUIRED
}

type SavingsRow struct {
	SavingsID     string            `bigquery:"savings_id"`
	UserID        string            `bigquery:"user_id"`
	Name          string            `bigquery:"name"`
	TargetAmount  *big.Rat          `bigquery:"target_amount"`
	CurrentAmount *big.Rat          `bigquery:"current_amount"`
	Deadline      bigquery.NullDate `bigquery:"deadline"`
	CreatedTS     time.Time         `bigquery:"created_ts"`
	UpdatedTS     time.Time         `bigquery:"updated_ts"`
}

// toTransactionRow converts a prepared domain transaction into its BigQuery row.
func toTransactionRow(tx *domain.Transaction) (*TransactionRow, error) {
	date, err := civil.ParseDate(tx.Date)
	if err != nil {
		return nil, fmt.Errorf("toTransactionRow: parse date %q: %w", tx.Date, err)
	}

	amount := new(big.Rat)
	if amount.SetFloat64(tx.Amount) == nil {
		return nil, fmt.Errorf("toTransactionRow: invalid amount %v", tx.Amount)
	}

	return &TransactionRow{
		TransactionID:   tx.ID,
		UserID:          tx.UserID,
		Type:            string(tx.Type),
		Amount:          amount,
		Category:        nullString(tx.Category),
		Description:     nullString(tx.Description),
		TransactionDate: date,
		CreatedTS:       tx.CreatedAt,
		UpdatedTS:       tx.UpdatedAt,
	}, nil
}

func (r *TransactionRow) toDomain() domain.Transaction {
	return domain.Transaction{
		ID:          r.TransactionID,
		UserID:      r.UserID,
		Type:        domain.TransactionType(r.Type),
		Amount:      ratToFloat(r.Amount),
		Category:    r.Category.StringVal,
		Description: r.Description.StringVal,
		Date:        r.TransactionDate.String(),
		CreatedAt:   r.CreatedTS,
		UpdatedAt:   r.UpdatedTS,
	}
}

func (r *SavingsRow) toDomain() domain.SavingsGoal {
	g := domain.SavingsGoal{
		ID:            r.SavingsID,
		UserID:        r.UserID,
		Name:          r.Name,
		TargetAmount:  ratToFloat(r.TargetAmount),
		CurrentAmount: ratToFloat(r.CurrentAmount),
		CreatedAt:     r.CreatedTS,
		UpdatedAt:     r.UpdatedTS,
	}
	if r.Deadline.Valid {
		g.Deadline = r.Deadline.Date.String()
	}
	return g
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func ratToFloat(r *big.Rat) float64 {
	if r == nil {
		return 0
	}
	f, _ := r.Float64()
	return f
}
