package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-assistant/internal/app"
	"github.com/dvloznov/finance-assistant/internal/dashboard"
	"github.com/dvloznov/finance-assistant/internal/domain"
)

// withApp runs fn against a freshly built application and always shuts it down.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := opts.load(ctx)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}

	runErr := fn(ctx, a)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func chatCmd(opts *rootOptions) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Run one chat turn",
		Long:  `Classify the message, record a transaction when one is described and print the assistant's reply.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.TrimSpace(strings.Join(args, " "))
			if message == "" {
				return errors.New("message must not be empty")
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				result, err := a.Pipeline.Run(ctx, userID, []domain.ChatMessage{
					{Role: domain.RoleUser, Content: message},
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, result.Text)
				if result.Transaction != nil {
					fmt.Fprintln(out)
					return printJSON(out, result.Transaction)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "local", "user id that owns recorded transactions")
	return cmd
}

func dashboardCmd(opts *rootOptions) *cobra.Command {
	var (
		userID    string
		timeRange string
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print the dashboard summary as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				summary, err := a.Dashboard.Summary(ctx, userID, dashboard.ParseTimeRange(timeRange))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "local", "user id")
	cmd.Flags().StringVar(&timeRange, "range", string(dashboard.DefaultRange), "time range (1m, 3m, 6m, 1y)")
	return cmd
}

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the category suggestions and chart colors",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tNAME\tCOLOR")
			for _, c := range domain.Categories {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.Type, c.Name, c.Color)
			}
			return w.Flush()
		},
	}
}

func notionSyncCmd(opts *rootOptions) *cobra.Command {
	var (
		userID string
		since  string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "notion-sync",
		Short: "Backfill a user's transactions into the Notion database",
		Long:  `Create Notion pages for every transaction dated on or after --since. Transactions already present in the database are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sinceDate, err := time.Parse(domain.DateFormat, since)
			if err != nil {
				return fmt.Errorf("invalid --since %q: expected YYYY-MM-DD", since)
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				if a.Notion == nil {
					return errors.New("notion is not configured: set NOTION_TOKEN and NOTION_DATABASE_ID")
				}

				result, err := a.Notion.Backfill(ctx, a.Store, userID, sinceDate, dryRun)
				if err != nil {
					return err
				}

				prefix := ""
				if dryRun {
					prefix = "[DRY RUN] "
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%d transactions: %d created, %d skipped, %d failed\n",
					prefix, result.Total, result.Created, result.Skipped, result.Failed)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (required)")
	cmd.Flags().StringVar(&since, "since", time.Now().AddDate(-1, 0, 0).Format(domain.DateFormat), "earliest transaction date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be created without writing")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
