// Package postgres is the relational Store. Every operation runs in its own
// transaction with app.current_user_id set, so row-level security policies
// keyed on that setting apply on top of the explicit user_id filter.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/store"
)

// SQLSTATE codes translated into the store taxonomy.
const (
	codeUndefinedTable        = "42P01"
	codeInsufficientPrivilege = "42501"
)

// Store implements store.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Open connects to the database at url and verifies the connection.
func Open(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres.Open: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.Open: ping: %w", err)
	}
	return &Store{pool: pool, now: time.Now}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// withUser runs fn in a transaction scoped to userID.
func (s *Store) withUser(ctx context.Context, userID string, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT set_config('app.current_user_id', $1, true)`, userID); err != nil {
			return fmt.Errorf("setting user scope: %w", err)
		}
		return fn(tx)
	})
}

// InsertTransaction inserts one row scoped to tx.UserID.
func (s *Store) InsertTransaction(ctx context.Context, in *domain.Transaction) (*domain.Transaction, error) {
	saved, err := store.Prepare(in, uuid.New().String(), s.now().UTC())
	if err != nil {
		return nil, err
	}

	err = s.withUser(ctx, saved.UserID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO transactions (id, user_id, type, amount, category, description, date, created_at, updated_at)
			 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7::date, $8, $9)`,
			saved.ID, saved.UserID, string(saved.Type), saved.Amount, saved.Category, saved.Description,
			saved.Date, saved.CreatedAt, saved.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("InsertTransaction: %w", mapError(err))
	}
	return saved, nil
}

// ListTransactions returns the user's rows dated on or after since.
func (s *Store) ListTransactions(ctx context.Context, userID string, since time.Time) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := s.withUser(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT id::text, user_id, type, amount::float8, category, description, date::text, created_at, updated_at
			 FROM transactions
			 WHERE user_id = $1 AND date >= $2::date
			 ORDER BY date DESC, created_at DESC`,
			userID, since.Format(domain.DateFormat),
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				t      domain.Transaction
				txType string
			)
			if err := rows.Scan(&t.ID, &t.UserID, &txType, &t.Amount, &t.Category, &t.Description,
				&t.Date, &t.CreatedAt, &t.UpdatedAt); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			t.Type = domain.TransactionType(txType)
			out = append(out, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", mapError(err))
	}
	return out, nil
}

// ListSavings returns the user's savings goals.
func (s *Store) ListSavings(ctx context.Context, userID string) ([]domain.SavingsGoal, error) {
	var out []domain.SavingsGoal
	err := s.withUser(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT id::text, user_id, name, target_amount::float8, current_amount::float8,
			        COALESCE(deadline::text, ''), created_at, updated_at
			 FROM savings
			 WHERE user_id = $1
			 ORDER BY created_at`,
			userID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var g domain.SavingsGoal
			if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount,
				&g.Deadline, &g.CreatedAt, &g.UpdatedAt); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			out = append(out, g)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("ListSavings: %w", mapError(err))
	}
	return out, nil
}

// mapError translates Postgres errors into the store taxonomy.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUndefinedTable:
			return fmt.Errorf("%w: %s", store.ErrTableMissing, pgErr.Message)
		case codeInsufficientPrivilege:
			return fmt.Errorf("%w: %s", store.ErrPermissionDenied, pgErr.Message)
		}
	}
	return err
}

var _ store.Store = (*Store)(nil)
