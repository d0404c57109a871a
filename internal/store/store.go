// Package store defines the repositories the chat and dashboard flows persist to
// and the error taxonomy every backend translates its driver errors into.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

var (
	// ErrNotConfigured means no data store was configured for this deployment.
	ErrNotConfigured = errors.New("data store not configured")

	// ErrTableMissing means the backing table or schema does not exist.
	ErrTableMissing = errors.New("table does not exist")

	// ErrPermissionDenied means the store's row-level policy rejected the operation.
	ErrPermissionDenied = errors.New("permission denied by row-level policy")
)

// TransactionRepository persists transactions scoped to a single user.
type TransactionRepository interface {
	// InsertTransaction stores tx and returns the saved row with id and timestamps assigned.
	InsertTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)

	// ListTransactions returns the user's transactions dated on or after since,
	// newest date first, ties broken by created_at descending.
	ListTransactions(ctx context.Context, userID string, since time.Time) ([]domain.Transaction, error)
}

// SavingsRepository reads a user's savings goals.
type SavingsRepository interface {
	ListSavings(ctx context.Context, userID string) ([]domain.SavingsGoal, error)
}

// Store is a backend serving both repositories.
type Store interface {
	TransactionRepository
	SavingsRepository
	Close() error
}

// Unconfigured is the Store used when no backend is configured.
type Unconfigured struct{}

func (Unconfigured) InsertTransaction(context.Context, *domain.Transaction) (*domain.Transaction, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) ListTransactions(context.Context, string, time.Time) ([]domain.Transaction, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) ListSavings(context.Context, string) ([]domain.SavingsGoal, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) Close() error { return nil }

// Prepare fills the fields the store owns before an insert: id and timestamps.
// It validates the result so every backend rejects the same bad rows.
func Prepare(tx *domain.Transaction, id string, now time.Time) (*domain.Transaction, error) {
	saved := *tx
	saved.ID = id
	saved.CreatedAt = now
	saved.UpdatedAt = now
	if err := saved.Validate(); err != nil {
		return nil, err
	}
	return &saved, nil
}
