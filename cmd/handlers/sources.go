package handlers

import (
	"context"
	"fmt"
	"strings"

	"creatorpulse/internal/core"
	"creatorpulse/internal/render"
	"creatorpulse/internal/sources"
	"github.com/spf13/cobra"
)

// NewSourcesCmd creates the sources command group
func NewSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage tracked content sources",
	}

	cmd.AddCommand(newSourcesAddCmd())
	cmd.AddCommand(newSourcesListCmd())
	cmd.AddCommand(newSourcesSetActiveCmd("enable", true))
	cmd.AddCommand(newSourcesSetActiveCmd("disable", false))
	cmd.AddCommand(newSourcesRemoveCmd())
	cmd.AddCommand(newSourcesImportCmd())

	return cmd
}

func newSourcesAddCmd() *cobra.Command {
	types := make([]string, len(core.SourceTypes))
	for i, t := range core.SourceTypes {
		types[i] = string(t)
	}

	return &cobra.Command{
		Use:   "add <type> <name> [url]",
		Short: "Add a source",
		Long: fmt.Sprintf(`Add a source to track.

Supported types: %s

The url is the feed URL or provider identifier: a YouTube channel URL or
@handle, a subreddit, a Hacker News search query or a Google Trends region.
It may be omitted for hacker-news (front page) and google-trends (US).

Example:
  creatorpulse sources add rss "Go Blog" https://go.dev/blog/feed.atom
  creatorpulse sources add reddit Golang r/golang
  creatorpulse sources add hacker-news "HN front page"`, strings.Join(types, ", ")),
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := ""
			if len(args) == 3 {
				url = args[2]
			}
			return runSourcesAdd(cmd.Context(), args[0], args[1], url)
		},
	}
}

func newSourcesListCmd() *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sources and their sync state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSourcesList(cmd.Context(), activeOnly)
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only list active sources")

	return cmd
}

func newSourcesSetActiveCmd(use string, active bool) *cobra.Command {
	short := "Resume syncing a source"
	if !active {
		short = "Stop syncing a source without removing it"
	}

	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSourcesSetActive(cmd.Context(), args[0], active)
		},
	}
}

func newSourcesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSourcesRemove(cmd.Context(), args[0])
		},
	}
}

func newSourcesImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Add sources from a YAML list",
		Long: `Add every source listed in a YAML file.

File format:
  sources:
    - type: rss
      name: Go Blog
      url: https://go.dev/blog/feed.atom
    - type: hacker-news
      name: HN
      active: false

Invalid entries are skipped and reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSourcesImport(cmd.Context(), args[0])
		},
	}
}

func runSourcesAdd(ctx context.Context, typ, name, url string) error {
	a, err := openApp(ctx, noGenerator)
	if err != nil {
		return err
	}
	defer a.Close()

	source, err := a.sources.AddSource(ctx, typ, name, url)
	if err != nil {
		return err
	}

	fmt.Printf("✅ Added %s source %q (%s)\n", source.Type, source.Name, source.ID)
	return nil
}

func runSourcesList(ctx context.Context, activeOnly bool) error {
	a, err := openApp(ctx, noGenerator)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.sources.ListSources(ctx, activeOnly)
	if err != nil {
		return err
	}

	fmt.Println(render.SourcesTable(list))
	return nil
}

func runSourcesSetActive(ctx context.Context, id string, active bool) error {
	a, err := openApp(ctx, noGenerator)
	if err != nil {
		return err
	}
	defer a.Close()

	source, err := a.sources.SetActive(ctx, id, active)
	if err != nil {
		return err
	}

	state := "enabled"
	if !source.IsActive {
		state = "disabled"
	}
	fmt.Printf("Source %q %s\n", source.Name, state)
	return nil
}

func runSourcesRemove(ctx context.Context, id string) error {
	a, err := openApp(ctx, noGenerator)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.sources.RemoveSource(ctx, id); err != nil {
		return err
	}

	fmt.Printf("Removed source %s\n", id)
	return nil
}

func runSourcesImport(ctx context.Context, path string) error {
	list, err := sources.LoadSourceList(path)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, noGenerator)
	if err != nil {
		return err
	}
	defer a.Close()

	added, skipped, err := a.sources.Import(ctx, list)
	if err != nil {
		return fmt.Errorf("import stopped after %d sources: %w", added, err)
	}

	fmt.Printf("✅ Imported %d of %d sources\n", added, len(list.Sources))
	for _, e := range skipped {
		fmt.Printf("  ⚠️  %v\n", e)
	}
	return nil
}
