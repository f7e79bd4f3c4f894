package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewNewslettersCmd creates the newsletters command group. Past newsletters
// are the style examples shown to the model.
func NewNewslettersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "newsletters",
		Short: "Manage past newsletters used as style examples",
	}

	cmd.AddCommand(newNewslettersAddCmd())
	cmd.AddCommand(newNewslettersListCmd())

	return cmd
}

func newNewslettersAddCmd() *cobra.Command {
	var (
		title    string
		sentDate string
	)

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Upload a previously sent newsletter",
		Long: `Upload a previously sent newsletter. The 3 most recent uploads are shown
to the model as examples of your writing style.

Example:
  creatorpulse newsletters add issue-42.md --title "Issue 42" --sent-date 2025-03-01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNewslettersAdd(cmd.Context(), args[0], title, sentDate)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Title (default is the file name)")
	cmd.Flags().StringVar(&sentDate, "sent-date", "", "Date the newsletter was sent (YYYY-MM-DD)")

	return cmd
}

func newNewslettersListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List uploaded newsletters, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNewslettersList(cmd.Context(), limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of newsletters to show")

	return cmd
}

func runNewslettersAdd(ctx context.Context, path, title, sentDate string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read newsletter: %w", err)
	}

	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	var sent *time.Time
	if sentDate != "" {
		t, err := time.Parse("2006-01-02", sentDate)
		if err != nil {
			return fmt.Errorf("invalid --sent-date %q, expected YYYY-MM-DD", sentDate)
		}
		sent = &t
	}

	a, err := openApp(ctx, noGenerator)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.drafts.AddPastNewsletter(ctx, title, string(content), sent)
	if err != nil {
		return err
	}

	fmt.Printf("✅ Added %q (%s)\n", n.Title, n.ID)
	return nil
}

func runNewslettersList(ctx context.Context, limit int) error {
	a, err := openApp(ctx, noGenerator)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.drafts.PastNewsletters(ctx, limit)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Println("No past newsletters uploaded yet")
		return nil
	}
	for _, n := range list {
		sent := "-"
		if n.SentDate != nil {
			sent = n.SentDate.Format("2006-01-02")
		}
		fmt.Printf("%-36s  %-10s  %s\n", n.ID, sent, n.Title)
	}
	return nil
}
