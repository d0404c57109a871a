// Package app wires the configured components into one process-wide
// container shared by the API server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/archive"
	"github.com/dvloznov/finance-assistant/internal/config"
	"github.com/dvloznov/finance-assistant/internal/dashboard"
	"github.com/dvloznov/finance-assistant/internal/infra"
	"github.com/dvloznov/finance-assistant/internal/jobs"
	"github.com/dvloznov/finance-assistant/internal/jobs/inmemory"
	"github.com/dvloznov/finance-assistant/internal/llm"
	"github.com/dvloznov/finance-assistant/internal/logger"
	"github.com/dvloznov/finance-assistant/internal/notionsync"
	"github.com/dvloznov/finance-assistant/internal/pipeline"
	"github.com/dvloznov/finance-assistant/internal/store"
)

// App holds the wired components. LLM is nil when no completion key is set;
// Notion is nil unless a token and database id are configured.
type App struct {
	Config    *config.Config
	Log       zerolog.Logger
	Store     store.Store
	LLM       llm.Completer
	Dashboard *dashboard.Service
	JobStore  *inmemory.Store
	Queue     *inmemory.Queue
	Pipeline  *pipeline.Pipeline
	Notion    *notionsync.Exporter

	cache         *dashboard.Cache
	archiveWriter *archive.GCSWriter
	handlers      jobs.Mux
	cancelWorkers context.CancelFunc
}

// Option overrides a component New would otherwise build from config.
type Option func(*options)

type options struct {
	completer    llm.Completer
	store        store.Store
	notion       notionsync.NotionService
	objectWriter archive.ObjectWriter
}

// WithCompleter uses c instead of the configured provider.
func WithCompleter(c llm.Completer) Option {
	return func(o *options) { o.completer = c }
}

// WithStore uses s instead of opening the configured driver.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithNotionService uses n for the Notion exporter when Notion is configured.
func WithNotionService(n notionsync.NotionService) Option {
	return func(o *options) { o.notion = n }
}

// WithObjectWriter uses w for the turn archive when a bucket is configured.
func WithObjectWriter(w archive.ObjectWriter) Option {
	return func(o *options) { o.objectWriter = w }
}

// New builds the App from cfg. Missing credentials degrade features and are
// logged; only a store that is configured but cannot be opened is an error.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Config:   cfg,
		Log:      log,
		handlers: jobs.Mux{},
	}

	for key, state := range cfg.Redacted() {
		log.Info().Str("key", key).Str("state", state).Msg("configuration")
	}

	a.Store = o.store
	if a.Store == nil {
		s, err := infra.Open(ctx, cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("app.New: open store: %w", err)
		}
		a.Store = s
	}
	if !cfg.Store.Configured() && o.store == nil {
		log.Warn().Msg("No data store configured - transactions will not be recorded")
	}

	a.LLM = o.completer
	if a.LLM == nil {
		c, err := llm.New(ctx, cfg.LLM)
		switch {
		case errors.Is(err, llm.ErrNotConfigured):
			log.Warn().Str("provider", cfg.LLM.Provider).Msg("No completion API key configured - chat is disabled")
		case err != nil:
			_ = a.Store.Close()
			return nil, fmt.Errorf("app.New: completion client: %w", err)
		default:
			a.LLM = c
		}
	}

	a.cache = dashboard.NewCache(cfg.Dashboard.CacheTTL)
	a.Dashboard = dashboard.NewService(a.Store, a.Store, a.cache, log)

	a.JobStore = inmemory.NewStore()
	a.Queue = inmemory.NewQueue(cfg.Jobs.Buffer, cfg.Jobs.Workers, a.JobStore, log)

	pipelineOpts := []pipeline.Option{}

	if cfg.Notion.Enabled() {
		client := o.notion
		if client == nil {
			client = notionsync.NewNotionClient(cfg.Notion.Token)
		}
		a.Notion = notionsync.NewExporter(client, cfg.Notion.DatabaseID)
		a.handlers[jobs.JobTypeNotionExport] = a.Notion.HandleJob
		pipelineOpts = append(pipelineOpts, pipeline.WithNotionExport(a.Queue.NonBlocking()))
	}

	if cfg.Archive.Bucket != "" {
		writer := o.objectWriter
		if writer == nil {
			gcs, err := archive.NewGCSWriter(ctx)
			if err != nil {
				log.Warn().Err(err).Str("bucket", cfg.Archive.Bucket).Msg("Turn archive disabled")
			} else {
				a.archiveWriter = gcs
				writer = gcs
			}
		}
		if writer != nil {
			a.handlers[jobs.JobTypeTurnArchive] = archive.New(writer, cfg.Archive.Bucket).HandleJob
			pipelineOpts = append(pipelineOpts, pipeline.WithArchive(a.Queue.NonBlocking()))
		}
	}

	a.Pipeline = pipeline.New(a.LLM, a.Store, a.Dashboard, pipelineOpts...)

	return a, nil
}

// Start launches the job workers. They stop when ctx is cancelled or on Shutdown.
func (a *App) Start(ctx context.Context) error {
	workerCtx, cancel := context.WithCancel(logger.WithContext(ctx, a.Log))
	a.cancelWorkers = cancel

	a.Log.Info().Int("workers", a.Config.Jobs.Workers).Int("handlers", len(a.handlers)).Msg("Starting job workers")
	if err := a.Queue.Start(workerCtx, a.handlers.Handle); err != nil {
		cancel()
		return fmt.Errorf("app.Start: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight jobs and releases every resource.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if err := a.Queue.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop job queue: %w", err))
	}
	if a.cancelWorkers != nil {
		a.cancelWorkers()
	}
	if err := a.Queue.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close job queue: %w", err))
	}

	a.cache.Close()

	if a.archiveWriter != nil {
		if err := a.archiveWriter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close archive writer: %w", err))
		}
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	return errors.Join(errs...)
}
