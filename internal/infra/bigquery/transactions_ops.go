package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/store"
)

const (
	transactionsTable = "transactions"
	savingsTable      = "savings"
)

// Store is the warehouse-backed Store. It holds one shared BigQuery client.
type Store struct {
	client  *bigquery.Client
	dataset string
	now     func() time.Time
}

// Open creates a BigQuery client for projectID and binds it to dataset.
func Open(ctx context.Context, projectID, dataset string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery.Open: creating client: %w", err)
	}
	return &Store{client: client, dataset: dataset, now: time.Now}, nil
}

// Close closes the BigQuery client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// InsertTransaction streams one row into <dataset>.transactions.
func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	saved, err := store.Prepare(tx, uuid.NewString(), s.now().UTC())
	if err != nil {
		return nil, err
	}

	row, err := toTransactionRow(saved)
	if err != nil {
		return nil, fmt.Errorf("InsertTransaction: %w", err)
	}

	inserter := s.client.Dataset(s.dataset).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, []*TransactionRow{row}); err != nil {
		return nil, fmt.Errorf("InsertTransaction: inserting row: %w", mapError(err))
	}
	return saved, nil
}

// ListTransactions queries the user's transactions dated on or after since.
func (s *Store) ListTransactions(ctx context.Context, userID string, since time.Time) ([]domain.Transaction, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			user_id,
			type,
			amount,
			category,
			description,
			transaction_date,
			created_ts,
			updated_ts
		FROM %s.%s
		WHERE user_id = @user_id
		  AND transaction_date >= @since
		ORDER BY transaction_date DESC, created_ts DESC
	`, s.dataset, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "since", Value: civil.DateOf(since)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query read: %w", mapError(err))
	}

	var out []domain.Transaction
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: iter next: %w", mapError(err))
		}
		out = append(out, r.toDomain())
	}
	return out, nil
}

// ListSavings queries the user's savings goals.
func (s *Store) ListSavings(ctx context.Context, userID string) ([]domain.SavingsGoal, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			savings_id,
			user_id,
			name,
			target_amount,
			current_amount,
			deadline,
			created_ts,
			updated_ts
		FROM %s.%s
		WHERE user_id = @user_id
		ORDER BY created_ts
	`, s.dataset, savingsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListSavings: query read: %w", mapError(err))
	}

	var out []domain.SavingsGoal
	for {
		var r SavingsRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListSavings: iter next: %w", mapError(err))
		}
		out = append(out, r.toDomain())
	}
	return out, nil
}

// mapError translates Google API errors into the store taxonomy.
func mapError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", store.ErrTableMissing, apiErr.Message)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", store.ErrPermissionDenied, apiErr.Message)
		}
	}
	return err
}

var _ store.Store = (*Store)(nil)
