package domain

import (
	"fmt"
	"time"
)

// DateFormat is the calendar-date layout used for transaction dates.
const DateFormat = "2006-01-02"

// TransactionType is either income or expense.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Label returns the Indonesian label used in descriptions and prompts.
func (t TransactionType) Label() string {
	if t == TypeIncome {
		return "Pemasukan"
	}
	return "Pengeluaran"
}

// Transaction is one recorded income or expense owned by a single user.
// Once inserted it is never mutated by the chat flow.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Type        TransactionType `json:"type"`
	Amount      float64         `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"` // YYYY-MM-DD
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Validate checks the invariants every stored transaction must satisfy.
func (t *Transaction) Validate() error {
	if t.UserID == "" {
		return fmt.Errorf("transaction: user_id is required")
	}
	if !t.Type.Valid() {
		return fmt.Errorf("transaction: invalid type %q", t.Type)
	}
	if !(t.Amount > 0) {
		return fmt.Errorf("transaction: amount must be positive, got %v", t.Amount)
	}
	if _, err := time.Parse(DateFormat, t.Date); err != nil {
		return fmt.Errorf("transaction: invalid date %q: %w", t.Date, err)
	}
	return nil
}

// ParsedDate returns the transaction date as a time in UTC.
func (t *Transaction) ParsedDate() (time.Time, error) {
	return time.Parse(DateFormat, t.Date)
}

// SavingsGoal is a user's savings target; only CurrentAmount feeds the dashboard.
type SavingsGoal struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	TargetAmount  float64   `json:"target_amount"`
	CurrentAmount float64   `json:"current_amount"`
	Deadline      string    `json:"deadline,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
