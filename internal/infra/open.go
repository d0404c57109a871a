// Package infra selects and opens the configured store backend.
package infra

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-assistant/internal/config"
	"github.com/dvloznov/finance-assistant/internal/infra/bigquery"
	"github.com/dvloznov/finance-assistant/internal/infra/memory"
	"github.com/dvloznov/finance-assistant/internal/infra/postgres"
	"github.com/dvloznov/finance-assistant/internal/infra/sqlite"
	"github.com/dvloznov/finance-assistant/internal/store"
)

// Open returns the Store for cfg.Driver. An empty driver yields store.Unconfigured.
func Open(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "":
		return store.Unconfigured{}, nil
	case "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlite.Open(ctx, cfg.URL)
	case "postgres":
		return postgres.Open(ctx, cfg.URL)
	case "bigquery":
		return bigquery.Open(ctx, cfg.ProjectID, cfg.Dataset)
	default:
		return nil, fmt.Errorf("infra.Open: unsupported store driver %q", cfg.Driver)
	}
}
