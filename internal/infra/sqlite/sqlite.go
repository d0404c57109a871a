// Package sqlite is an embedded single-file Store backed by mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	type        TEXT NOT NULL CHECK (type IN ('income', 'expense')),
	amount      REAL NOT NULL CHECK (amount > 0),
	category    TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	date        TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions (user_id, date);

CREATE TABLE IF NOT EXISTS savings (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	name           TEXT NOT NULL,
	target_amount  REAL NOT NULL DEFAULT 0,
	current_amount REAL NOT NULL DEFAULT 0,
	deadline       TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_savings_user ON savings (user_id);
`

// Store implements store.Store on a SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens the database at dsn (a path or ":memory:") and creates the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: %w", err)
	}
	// One connection: SQLite serializes writers and ":memory:" is per-connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.Open: creating schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertTransaction inserts one row scoped to tx.UserID.
func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	saved, err := store.Prepare(tx, uuid.New().String(), s.now().UTC())
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, category, description, date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		saved.ID, saved.UserID, string(saved.Type), saved.Amount, saved.Category, saved.Description,
		saved.Date, formatTime(saved.CreatedAt), formatTime(saved.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("InsertTransaction: %w", mapError(err))
	}
	return saved, nil
}

// ListTransactions returns the user's rows dated on or after since.
func (s *Store) ListTransactions(ctx context.Context, userID string, since time.Time) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, amount, category, description, date, created_at, updated_at
		FROM transactions
		WHERE user_id = ? AND date >= ?
		ORDER BY date DESC, created_at DESC`,
		userID, since.Format(domain.DateFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", mapError(err))
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var (
			tx                   domain.Transaction
			txType               string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &txType, &tx.Amount, &tx.Category, &tx.Description,
			&tx.Date, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("ListTransactions: scan: %w", err)
		}
		tx.Type = domain.TransactionType(txType)
		tx.CreatedAt = parseTime(createdAt)
		tx.UpdatedAt = parseTime(updatedAt)
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", mapError(err))
	}
	return out, nil
}

// ListSavings returns the user's savings goals.
func (s *Store) ListSavings(ctx context.Context, userID string) ([]domain.SavingsGoal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, target_amount, current_amount, deadline, created_at, updated_at
		FROM savings
		WHERE user_id = ?
		ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListSavings: %w", mapError(err))
	}
	defer rows.Close()

	var out []domain.SavingsGoal
	for rows.Next() {
		var (
			g                    domain.SavingsGoal
			createdAt, updatedAt string
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &g.Deadline,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("ListSavings: scan: %w", err)
		}
		g.CreatedAt = parseTime(createdAt)
		g.UpdatedAt = parseTime(updatedAt)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListSavings: %w", mapError(err))
	}
	return out, nil
}

// InsertSavings stores a savings goal. Used for seeding; the chat flow never writes savings.
func (s *Store) InsertSavings(ctx context.Context, g domain.SavingsGoal) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	now := formatTime(s.now().UTC())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO savings (id, user_id, name, target_amount, current_amount, deadline, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name, g.TargetAmount, g.CurrentAmount, g.Deadline, now, now,
	)
	if err != nil {
		return fmt.Errorf("InsertSavings: %w", mapError(err))
	}
	return nil
}

// mapError translates SQLite errors into the store taxonomy.
func mapError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		msg := sqliteErr.Error()
		switch {
		case strings.Contains(msg, "no such table"):
			return fmt.Errorf("%w: %s", store.ErrTableMissing, msg)
		case sqliteErr.Code == sqlite3.ErrPerm || sqliteErr.Code == sqlite3.ErrReadonly || sqliteErr.Code == sqlite3.ErrAuth:
			return fmt.Errorf("%w: %s", store.ErrPermissionDenied, msg)
		}
	}
	return err
}

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

var _ store.Store = (*Store)(nil)
