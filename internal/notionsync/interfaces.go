package notionsync

import (
	"context"

	"github.com/jomei/notionapi"
)

// NotionService is the slice of the Notion API the Exporter needs to keep one
// page per transaction, keyed by the "Transaction ID" rich text property.
type NotionService interface {
	// CreatePage adds the page for a transaction not yet in the database.
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)

	// UpdatePage overwrites the properties of the page already holding a transaction.
	UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)

	// QueryDatabase serves both the single "Transaction ID" lookup of Export and
	// the paginated scan of Backfill; callers follow NextCursor while HasMore.
	QueryDatabase(ctx context.Context, databaseID string, query *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

var _ NotionService = (*NotionClient)(nil)
