// Package notionsync mirrors recorded transactions into a Notion database.
package notionsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/jobs"
	"github.com/dvloznov/finance-assistant/internal/logger"
	"github.com/dvloznov/finance-assistant/internal/store"
)

const (
	// BatchSize defines the number of transactions to process in a single batch
	BatchSize = 100
)

// Exporter writes transactions as pages of one Notion database. Pages are
// keyed by the Transaction ID property, so exporting twice updates in place.
type Exporter struct {
	client     NotionService
	databaseID string
}

// NewExporter creates an Exporter for databaseID.
func NewExporter(client NotionService, databaseID string) *Exporter {
	return &Exporter{client: client, databaseID: databaseID}
}

// Export creates the page for tx, or updates it when a page with the same
// transaction id already exists. It reports whether a page was created.
func (e *Exporter) Export(ctx context.Context, tx *domain.Transaction) (bool, error) {
	if tx == nil || tx.ID == "" {
		return false, errors.New("Export: transaction id is required")
	}

	props := TransactionToNotionProperties(tx)

	pageID, err := e.findPage(ctx, tx.ID)
	if err != nil {
		return false, fmt.Errorf("Export: %w", err)
	}

	if pageID != "" {
		if _, err := e.client.UpdatePage(ctx, pageID, props); err != nil {
			return false, fmt.Errorf("Export: %w", err)
		}
		return false, nil
	}

	if _, err := e.client.CreatePage(ctx, e.databaseID, props); err != nil {
		return false, fmt.Errorf("Export: %w", err)
	}
	return true, nil
}

// HandleJob processes a notion_export job whose payload is a domain.Transaction.
func (e *Exporter) HandleJob(ctx context.Context, job *jobs.ExportJob) error {
	var tx domain.Transaction
	if err := job.Decode(&tx); err != nil {
		return err
	}

	created, err := e.Export(ctx, &tx)
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("job_id", job.JobID).
		Str("transaction_id", tx.ID).
		Bool("created", created).
		Msg("Exported transaction to Notion")
	return nil
}

func (e *Exporter) findPage(ctx context.Context, transactionID string) (string, error) {
	resp, err := e.client.QueryDatabase(ctx, e.databaseID, &notionapi.DatabaseQueryRequest{
		Filter: &notionapi.PropertyFilter{
			Property: PropTransactionID,
			RichText: &notionapi.TextFilterCondition{Equals: transactionID},
		},
		PageSize: 1,
	})
	if err != nil {
		return "", err
	}
	for _, page := range resp.Results {
		if extractTransactionID(page) == transactionID {
			return string(page.ID), nil
		}
	}
	return "", nil
}

// BackfillResult counts what a Backfill did or, in dry-run mode, would do.
type BackfillResult struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Backfill exports the user's transactions dated on or after since, skipping
// ids already present in the database. Individual page failures are logged
// and counted; only listing failures abort.
func (e *Exporter) Backfill(ctx context.Context, repo store.TransactionRepository, userID string, since time.Time, dryRun bool) (BackfillResult, error) {
	log := logger.FromContext(ctx)

	log.Info().
		Str("user_id", userID).
		Time("since", since).
		Bool("dry_run", dryRun).
		Msg("Starting transaction backfill to Notion")

	transactions, err := repo.ListTransactions(ctx, userID, since)
	if err != nil {
		return BackfillResult{}, fmt.Errorf("Backfill: failed to list transactions: %w", err)
	}

	// Query all existing transactions from Notion
	notionPages, err := queryAllNotionPages(ctx, e.client, e.databaseID)
	if err != nil {
		return BackfillResult{}, fmt.Errorf("Backfill: failed to query Notion pages: %w", err)
	}

	existing := make(map[string]bool, len(notionPages))
	for _, page := range notionPages {
		if id := extractTransactionID(page); id != "" {
			existing[id] = true
		}
	}

	result := BackfillResult{Total: len(transactions)}

	for i := 0; i < len(transactions); i += BatchSize {
		end := i + BatchSize
		if end > len(transactions) {
			end = len(transactions)
		}

		batch := transactions[i:end]
		log.Info().
			Int("batch_start", i).
			Int("batch_end", end).
			Int("batch_size", len(batch)).
			Msg("Processing batch")

		for j := range batch {
			tx := &batch[j]
			if existing[tx.ID] {
				result.Skipped++
				continue
			}

			if dryRun {
				log.Info().Str("transaction_id", tx.ID).Msg("[DRY RUN] Would create new Notion page")
				result.Created++
				continue
			}

			if _, err := e.client.CreatePage(ctx, e.databaseID, TransactionToNotionProperties(tx)); err != nil {
				log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to create Notion page")
				result.Failed++
				continue
			}
			existing[tx.ID] = true
			result.Created++
		}
	}

	log.Info().
		Int("total", result.Total).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Transaction backfill completed")

	return result, nil
}

// queryAllNotionPages queries all pages from a Notion database and returns them.
// Handles pagination automatically.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}

		// Only set StartCursor if we have a cursor value
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
