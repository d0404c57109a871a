// Package memory is an in-process Store used by tests, the CLI and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/store"
)

// Store keeps transactions and savings goals in memory, isolated by user id.
type Store struct {
	mu           sync.RWMutex
	transactions map[string][]domain.Transaction
	savings      map[string][]domain.SavingsGoal
	now          func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		transactions: make(map[string][]domain.Transaction),
		savings:      make(map[string][]domain.SavingsGoal),
		now:          time.Now,
	}
}

// WithClock overrides the clock used for created_at/updated_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// InsertTransaction assigns an id and timestamps and appends the row.
func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	saved, err := store.Prepare(tx, uuid.New().String(), s.now().UTC())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[saved.UserID] = append(s.transactions[saved.UserID], *saved)

	out := *saved
	return &out, nil
}

// ListTransactions returns copies of the user's rows dated on or after since.
func (s *Store) ListTransactions(ctx context.Context, userID string, since time.Time) ([]domain.Transaction, error) {
	sinceDate := since.Format(domain.DateFormat)

	s.mu.RLock()
	var out []domain.Transaction
	for _, tx := range s.transactions[userID] {
		if tx.Date >= sinceDate {
			out = append(out, tx)
		}
	}
	s.mu.RUnlock()

	SortNewestFirst(out)
	return out, nil
}

// ListSavings returns the user's savings goals.
func (s *Store) ListSavings(ctx context.Context, userID string) ([]domain.SavingsGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.SavingsGoal(nil), s.savings[userID]...), nil
}

// AddSavings seeds a savings goal; the chat flow never writes savings.
func (s *Store) AddSavings(goal domain.SavingsGoal) {
	if goal.ID == "" {
		goal.ID = uuid.New().String()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savings[goal.UserID] = append(s.savings[goal.UserID], goal)
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// SortNewestFirst orders by date descending, then created_at descending.
func SortNewestFirst(txs []domain.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Date != txs[j].Date {
			return txs[i].Date > txs[j].Date
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
}

var _ store.Store = (*Store)(nil)
