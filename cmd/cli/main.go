package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dvloznov/finance-assistant/internal/app"
	"github.com/dvloznov/finance-assistant/internal/config"
	"github.com/dvloznov/finance-assistant/internal/logger"
)

// newApp builds the application for a command; tests replace it.
var newApp = func(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app.App, error) {
	return app.New(ctx, cfg, log)
}

type rootOptions struct {
	configPath string
	v          *viper.Viper
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "finance",
		Short:         "Chat-driven personal finance assistant",
		Long:          `Record income and expenses by chatting, inspect the dashboard summary and export transactions to Notion.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "optional YAML config file")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	cmd.PersistentFlags().String("store", "", "store driver (memory, sqlite, postgres, bigquery)")
	cmd.PersistentFlags().String("store-url", "", "store connection URL or sqlite path")

	// Bind flags to viper
	_ = opts.v.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = opts.v.BindPFlag("log.format", cmd.PersistentFlags().Lookup("log-format"))
	_ = opts.v.BindPFlag("store.driver", cmd.PersistentFlags().Lookup("store"))
	_ = opts.v.BindPFlag("store.url", cmd.PersistentFlags().Lookup("store-url"))

	// Add commands
	cmd.AddCommand(chatCmd(opts))
	cmd.AddCommand(dashboardCmd(opts))
	cmd.AddCommand(categoriesCmd())
	cmd.AddCommand(notionSyncCmd(opts))

	return cmd
}

// load reads configuration and builds the application for one command.
func (o *rootOptions) load(ctx context.Context) (*app.App, error) {
	cfg, err := config.LoadWith(o.v, o.configPath)
	if err != nil {
		return nil, err
	}

	log := logger.NewWithOptionsTo(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return a, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
