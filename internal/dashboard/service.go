package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/store"
)

// Service loads a user's rows for a time range and aggregates them.
type Service struct {
	transactions store.TransactionRepository
	savings      store.SavingsRepository
	cache        *Cache
	log          zerolog.Logger
	now          func() time.Time
}

// NewService creates a dashboard service. cache may be nil.
func NewService(transactions store.TransactionRepository, savings store.SavingsRepository, cache *Cache, log zerolog.Logger) *Service {
	return &Service{
		transactions: transactions,
		savings:      savings,
		cache:        cache,
		log:          log,
		now:          time.Now,
	}
}

// Summary returns the aggregated view for userID over r. Transaction errors
// are returned wrapped so callers can match the store taxonomy; savings errors
// are logged and count as no savings.
func (s *Service) Summary(ctx context.Context, userID string, r TimeRange) (Summary, error) {
	var gen uint64
	if s.cache != nil {
		if cached, ok := s.cache.Get(userID, r); ok {
			return cached, nil
		}
		gen = s.cache.Generation(userID)
	}

	since := r.Since(s.now())
	txs, err := s.transactions.ListTransactions(ctx, userID, since)
	if err != nil {
		return Summary{}, fmt.Errorf("dashboard.Summary: listing transactions: %w", err)
	}

	savings, err := s.savings.ListSavings(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("savings unavailable, counting as zero")
		savings = nil
	}

	summary := Aggregate(txs, savings)
	s.log.Debug().
		Str("user_id", userID).
		Str("range", string(r)).
		Int("transactions", len(txs)).
		Msg("dashboard aggregated")

	if s.cache != nil && !s.cache.SetIfCurrent(userID, r, summary, gen) {
		s.log.Debug().Str("user_id", userID).Msg("dashboard invalidated while loading, not cached")
	}
	return summary, nil
}

// Invalidate drops the cached views of userID.
func (s *Service) Invalidate(userID string) {
	if s.cache != nil {
		s.cache.Invalidate(userID)
	}
}
