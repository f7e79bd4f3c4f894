package handlers

import (
	"context"
	"errors"
	"fmt"

	"creatorpulse/internal/render"
	"creatorpulse/internal/runlock"
	"creatorpulse/internal/sources"
	"github.com/spf13/cobra"
)

// NewSyncCmd creates the sync command
func NewSyncCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch every active source and detect trends",
		Long: `Fetch the current items of every active source, count the keywords
trending across them and store the detected trends.

A source that fails is marked with its error and never stops the cycle.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), concurrency)
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Sources fetched in parallel (default from sync.max_concurrency)")

	return cmd
}

func runSync(ctx context.Context, concurrency int) error {
	a, err := openApp(ctx, noGenerator)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := sources.SyncOptionsFromConfig(a.cfg.Sync)
	if concurrency > 0 {
		opts.MaxConcurrency = concurrency
	}

	result, err := a.sources.Sync(ctx, opts)
	if errors.Is(err, runlock.ErrLocked) {
		return fmt.Errorf("a sync is already running")
	}
	if err != nil {
		return err
	}

	fmt.Printf("Synced %d sources (%d failed), %d items, %d trends\n\n",
		result.SourcesSynced, result.SourcesFailed, result.ItemsFetched, result.TrendsDetected)
	fmt.Println(render.TrendsTable(result.Trends))

	for _, e := range result.Errors {
		fmt.Printf("  ⚠️  %v\n", e)
	}
	return nil
}
