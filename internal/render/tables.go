package render

import (
	"creatorpulse/internal/core"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// TrendsTable renders trends as a numbered list with a styled header.
func TrendsTable(trends []core.Trend) string {
	if len(trends) == 0 {
		return mutedStyle.Render("No trends detected yet. Run `creatorpulse sync` first.") + "\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Trending topics (%d)", len(trends))))
	b.WriteString("\n\n")
	for i, t := range trends {
		b.WriteString(fmt.Sprintf("%2d. %s  %s\n", i+1,
			lipgloss.NewStyle().Bold(true).Render(t.Title),
			mutedStyle.Render(fmt.Sprintf("%d mentions · %s · %s", t.Mentions, t.Category, t.DetectedAt.Local().Format("Jan 2 15:04")))))
		b.WriteString("    " + t.Description + "\n")
	}
	return b.String()
}

// SourcesTable renders sources with their sync state.
func SourcesTable(sources []core.Source) string {
	if len(sources) == 0 {
		return mutedStyle.Render("No sources yet. Add one with `creatorpulse sources add`.") + "\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Sources (%d)", len(sources))))
	b.WriteString("\n\n")
	for _, s := range sources {
		active := okStyle.Render("active")
		if !s.IsActive {
			active = mutedStyle.Render("inactive")
		}
		b.WriteString(fmt.Sprintf("%s  %s [%s] %s\n", s.ID, s.Name, s.Type, active))

		line := "    " + s.URL + "  " + syncStatus(s)
		if s.LastSyncAt != nil {
			line += mutedStyle.Render(" · last sync " + s.LastSyncAt.Local().Format("Jan 2 15:04"))
		}
		b.WriteString(line + "\n")
		if s.SyncError != "" {
			b.WriteString("    " + errStyle.Render(s.SyncError) + "\n")
		}
	}
	return b.String()
}

func syncStatus(s core.Source) string {
	switch s.SyncStatus {
	case core.SyncStatusSuccess:
		return okStyle.Render(fmt.Sprintf("%s (%d items)", s.SyncStatus, s.TrackedCount))
	case core.SyncStatusError:
		return errStyle.Render(string(s.SyncStatus))
	case core.SyncStatusSyncing:
		return warnStyle.Render(string(s.SyncStatus))
	default:
		return mutedStyle.Render(string(s.SyncStatus))
	}
}

// DraftsTable renders a one-line summary per draft.
func DraftsTable(drafts []core.Draft) string {
	if len(drafts) == 0 {
		return mutedStyle.Render("No drafts yet. Generate one with `creatorpulse draft generate`.") + "\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Drafts (%d)", len(drafts))))
	b.WriteString("\n\n")
	for _, d := range drafts {
		status := string(d.Status)
		switch d.Status {
		case core.DraftStatusSent:
			status = okStyle.Render(status)
		case core.DraftStatusReviewed:
			status = warnStyle.Render(status)
		}
		b.WriteString(fmt.Sprintf("%s  %-8s %s  %s\n", d.ID, status, d.Subject,
			mutedStyle.Render("scheduled "+d.ScheduledFor.Local().Format("Jan 2 15:04"))))
	}
	return b.String()
}
