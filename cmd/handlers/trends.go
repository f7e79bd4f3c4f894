package handlers

import (
	"context"
	"fmt"

	"creatorpulse/internal/render"
	"github.com/spf13/cobra"
)

// NewTrendsCmd creates the trends command group
func NewTrendsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Inspect detected trends",
	}

	cmd.AddCommand(newTrendsListCmd())

	return cmd
}

func newTrendsListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recently detected trends",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrendsList(cmd.Context(), limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of trends to show")

	return cmd
}

func runTrendsList(ctx context.Context, limit int) error {
	a, err := openApp(ctx, noGenerator)
	if err != nil {
		return err
	}
	defer a.Close()

	trends, err := a.db.Trends().ListRecent(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list trends: %w", err)
	}

	fmt.Println(render.TrendsTable(trends))
	return nil
}
