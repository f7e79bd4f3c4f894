// Package render formats drafts, trends and sources for the terminal and
// for files on disk.
package render

import (
	"creatorpulse/internal/core"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// ContentMarkdown converts a draft's HTML fragment to Markdown.
func ContentMarkdown(html string) (string, error) {
	md, err := mdConverter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert draft content: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// DraftMarkdown renders a draft as a Markdown document: subject heading,
// status line, then the converted content.
func DraftMarkdown(d core.Draft) (string, error) {
	content, err := ContentMarkdown(d.Content)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s\n\n", d.Subject))
	b.WriteString(fmt.Sprintf("_Status: %s · Scheduled for %s_", d.Status, d.ScheduledFor.Local().Format("Mon Jan 2 2006 15:04")))
	if d.SentAt != nil {
		b.WriteString(fmt.Sprintf(" _· Sent %s_", d.SentAt.Local().Format("Mon Jan 2 2006 15:04")))
	}
	b.WriteString("\n\n")
	b.WriteString(content)
	b.WriteString("\n")
	return b.String(), nil
}

// DraftFilename is the file name used when a draft is written to disk.
func DraftFilename(d core.Draft) string {
	id := d.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("draft_%s_%s.md", d.GeneratedAt.UTC().Format("2006-01-02"), id)
}

// WriteDraftToFile renders a draft as Markdown into outputDir.
func WriteDraftToFile(d core.Draft, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = "drafts"
	}

	content, err := DraftMarkdown(d)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	filePath := filepath.Join(outputDir, DraftFilename(d))
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write draft file %s: %w", filePath, err)
	}

	return filePath, nil
}
