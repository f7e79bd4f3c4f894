package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"creatorpulse/internal/core"
	"creatorpulse/internal/newsletter"
	"creatorpulse/internal/parser"
	"creatorpulse/internal/render"
	"creatorpulse/internal/runlock"
	"github.com/spf13/cobra"
)

// NewDraftCmd creates the draft command group
func NewDraftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Generate and review newsletter drafts",
	}

	cmd.AddCommand(newDraftGenerateCmd())
	cmd.AddCommand(newDraftListCmd())
	cmd.AddCommand(newDraftShowCmd())
	cmd.AddCommand(newDraftAdvanceCmd("review", "Mark a draft as reviewed", core.DraftStatusReviewed))
	cmd.AddCommand(newDraftAdvanceCmd("sent", "Mark a reviewed draft as sent", core.DraftStatusSent))
	cmd.AddCommand(newDraftEditCmd())
	cmd.AddCommand(newDraftFeedbackCmd())
	cmd.AddCommand(newDraftDueCmd())

	return cmd
}

func newDraftGenerateCmd() *cobra.Command {
	var (
		subject   string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draft a newsletter from the latest trends",
		Long: `Draft a newsletter from the 10 most recent trends, written in the style of
your preferences and your 3 most recent past newsletters.

The draft is scheduled for tomorrow at your preferred delivery time.

Example:
  creatorpulse draft generate
  creatorpulse draft generate --subject "This week in Go" --output drafts/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts newsletter.GenerateOptions
			if cmd.Flags().Changed("subject") {
				opts.SubjectLine = &subject
			}
			return runDraftGenerate(cmd.Context(), opts, outputDir)
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Subject line the model should use")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Also write the draft as Markdown into this directory")

	return cmd
}

func newDraftListCmd() *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List drafts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDraftList(cmd.Context(), core.DraftStatus(status), limit)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (draft, reviewed, sent)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of drafts to show")

	return cmd
}

func newDraftShowCmd() *cobra.Command {
	var (
		outputDir string
		raw       bool
	)

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a draft as Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDraftShow(cmd.Context(), args[0], outputDir, raw)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Write the Markdown into this directory instead of printing it")
	cmd.Flags().BoolVar(&raw, "html", false, "Print the stored HTML fragment")

	return cmd
}

func newDraftAdvanceCmd(use, short string, to core.DraftStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDraftAdvance(cmd.Context(), args[0], to)
		},
	}
}

func newDraftEditCmd() *cobra.Command {
	var (
		subject     string
		contentFile string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the subject or content of an unsent draft",
		Long: `Change the subject or content of a draft that has not been sent yet.
The generated text is kept alongside the edit.

Example:
  creatorpulse draft edit 3f2c --subject "Five things in Go this week"
  creatorpulse draft edit 3f2c --content-file draft.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var content string
			if contentFile != "" {
				data, err := os.ReadFile(contentFile)
				if err != nil {
					return fmt.Errorf("failed to read content file: %w", err)
				}
				content = string(data)
			}
			return runDraftEdit(cmd.Context(), args[0], subject, content)
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "New subject line")
	cmd.Flags().StringVarP(&contentFile, "content-file", "f", "", "File holding the new HTML content")

	return cmd
}

func newDraftFeedbackCmd() *cobra.Command {
	var (
		rating   int
		comments string
	)

	cmd := &cobra.Command{
		Use:   "feedback <id>",
		Short: "Rate a draft from 1 to 5",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDraftFeedback(cmd.Context(), args[0], rating, comments)
		},
	}

	cmd.Flags().IntVarP(&rating, "rating", "r", 0, "Rating from 1 (poor) to 5 (ready to send)")
	cmd.Flags().StringVarP(&comments, "comments", "c", "", "What worked or did not")
	_ = cmd.MarkFlagRequired("rating")

	return cmd
}

func newDraftDueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "List reviewed drafts whose delivery time has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDraftDue(cmd.Context())
		},
	}
}

func runDraftGenerate(ctx context.Context, opts newsletter.GenerateOptions, outputDir string) error {
	a, err := openApp(ctx, requireGenerator)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("✍️  Generating newsletter draft...")

	result, err := a.drafts.Generate(ctx, opts)
	switch {
	case errors.Is(err, newsletter.ErrNoTrends):
		return fmt.Errorf("no trends yet, run 'creatorpulse sync' first")
	case errors.Is(err, runlock.ErrLocked):
		return fmt.Errorf("a draft is already being generated")
	case err != nil:
		return err
	}

	d := result.Draft
	fmt.Printf("✅ Draft %s created\n", d.ID)
	fmt.Printf("   Subject:       %s\n", d.Subject)
	fmt.Printf("   Scheduled for: %s\n", d.ScheduledFor.Local().Format("2006-01-02 15:04"))
	fmt.Printf("   Trends:        %d\n", len(d.TrendIDs))
	if result.Stage != parser.StageJSON {
		fmt.Printf("   ⚠️  The model did not return clean JSON; recovered via %s parsing\n", result.Stage)
	}

	if outputDir != "" {
		path, err := render.WriteDraftToFile(*d, outputDir)
		if err != nil {
			return err
		}
		fmt.Printf("   Saved to:      %s\n", path)
	}
	return nil
}

func runDraftList(ctx context.Context, status core.DraftStatus, limit int) error {
	a, err := openApp(ctx, noGenerator)
	if err != nil {
		return err
	}
	defer a.Close()

	drafts, err := a.drafts.List(ctx, status, limit)
	if err != nil {
		return err
	}

	fmt.Println(render.DraftsTable(drafts))
	return nil
}

func runDraftShow(ctx context.Context, id, outputDir string, raw bool) error {
	a, err := openApp(ctx, noGenerator)
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := a.drafts.Get(ctx, id)
	if err != nil {
		return err
	}

	if outputDir != "" {
		path, err := render.WriteDraftToFile(*d, outputDir)
		if err != nil {
			return err
		}
		fmt.Printf("Draft written to %s\n", path)
		return nil
	}

	if raw {
		fmt.Println(d.Content)
		return nil
	}

	md, err := render.DraftMarkdown(*d)
	if err != nil {
		return err
	}
	fmt.Println(md)
	return nil
}

func runDraftAdvance(ctx context.Context, id string, to core.DraftStatus) error {
	a, err := openApp(ctx, noGenerator)
	if err != nil {
		return err
	}
	defer a.Close()

	var d *core.Draft
	if to == core.DraftStatusSent {
		d, err = a.drafts.MarkSent(ctx, id)
	} else {
		d, err = a.drafts.Review(ctx, id)
	}
	if errors.Is(err, core.ErrInvalidTransition) {
		return fmt.Errorf("draft %s cannot move to %s: %w", id, to, err)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Draft %s is now %s\n", d.ID, d.Status)
	return nil
}

func runDraftEdit(ctx context.Context, id, subject, content string) error {
	a, err := openApp(ctx, noGenerator)
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := a.drafts.Edit(ctx, id, subject, content)
	if errors.Is(err, core.ErrDraftSent) {
		return fmt.Errorf("draft %s was already sent and can no longer be edited", id)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Draft %s updated\n", d.ID)
	fmt.Printf("   Subject: %s\n", d.Subject)
	return nil
}

func runDraftFeedback(ctx context.Context, id string, rating int, comments string) error {
	a, err := openApp(ctx, noGenerator)
	if err != nil {
		return err
	}
	defer a.Close()

	fb, err := a.drafts.SubmitFeedback(ctx, id, rating, comments)
	if err != nil {
		return err
	}

	fmt.Printf("Recorded a %d/5 rating for draft %s\n", fb.Rating, fb.DraftID)
	return nil
}

func runDraftDue(ctx context.Context) error {
	a, err := openApp(ctx, noGenerator)
	if err != nil {
		return err
	}
	defer a.Close()

	drafts, err := a.drafts.Due(ctx)
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		fmt.Println("No drafts are due.")
		return nil
	}

	fmt.Println(render.DraftsTable(drafts))
	return nil
}
