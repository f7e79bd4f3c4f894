// Package draft turns trends and user preferences into a bounded generation
// request for the newsletter writer model.
package draft

import (
	"creatorpulse/internal/core"
	"creatorpulse/internal/llm"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MaxSummaryTrends is how many trends make it into the prompt.
	MaxSummaryTrends = 5
	// StyleExcerptLength is how much of each past newsletter is quoted as a style reference.
	StyleExcerptLength = 500
)

// Input is everything a draft request is built from.
type Input struct {
	Trends          []core.Trend          `json:"trends"`
	Preferences     core.UserPreferences  `json:"preferences"`
	SubjectLine     *string               `json:"subjectLine,omitempty"`
	PastNewsletters []core.PastNewsletter `json:"pastNewsletters,omitempty"`
}

// BuildRequest validates in and composes the system and user messages.
// Validation failures return a *ValidationError.
func BuildRequest(in Input) (*llm.Request, error) {
	in.Preferences = withDefaults(in.Preferences)
	if err := Validate(in); err != nil {
		return nil, err
	}

	styleContext := buildStyleContext(in.PastNewsletters)

	return &llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt(styleContext != "")},
			{Role: llm.RoleUser, Content: userPrompt(in, styleContext)},
		},
	}, nil
}

// SummaryTrends returns the trends, in the given order, that a request built
// from them will mention.
func SummaryTrends(trends []core.Trend) []core.Trend {
	if len(trends) > MaxSummaryTrends {
		return trends[:MaxSummaryTrends]
	}
	return trends
}

// FormatTrendSummary renders one numbered line per summarized trend.
func FormatTrendSummary(trends []core.Trend) string {
	lines := make([]string, 0, MaxSummaryTrends)
	for i, t := range SummaryTrends(trends) {
		lines = append(lines, fmt.Sprintf("%d. %s: %s (%d mentions, sentiment: %s)",
			i+1, t.Title, t.Description, t.Mentions, strconv.FormatFloat(t.Sentiment, 'f', -1, 64)))
	}
	return strings.Join(lines, "\n")
}

func buildStyleContext(past []core.PastNewsletter) string {
	if len(past) == 0 {
		return ""
	}

	examples := make([]string, 0, len(past))
	for i, n := range past {
		examples = append(examples, fmt.Sprintf("Example %d:\n%s...", i+1, truncate(n.Content, StyleExcerptLength)))
	}
	return "\n\nPast newsletter examples for style reference:\n" + strings.Join(examples, "\n\n")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func systemPrompt(hasExamples bool) string {
	prompt := "You are a professional newsletter writer. Create engaging, informative newsletter content that captures reader attention."
	if hasExamples {
		prompt += " Use the provided examples to match the writing style, but never reuse their sentences or phrasing."
	}
	return prompt
}

func userPrompt(in Input, styleContext string) string {
	p := in.Preferences

	var b strings.Builder
	b.WriteString("Write a newsletter draft based on these trending topics:\n\n")
	b.WriteString(FormatTrendSummary(in.Trends))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Writing Style: %s\n", p.WritingStyle)
	fmt.Fprintf(&b, "Tone: %s\n", p.Tone)
	fmt.Fprintf(&b, "Length: %s\n", p.Length)
	fmt.Fprintf(&b, "Focus Topics: %s", strings.Join(p.Topics, ", "))
	b.WriteString(styleContext)
	b.WriteString("\n\n")

	if in.SubjectLine != nil && strings.TrimSpace(*in.SubjectLine) != "" {
		fmt.Fprintf(&b, "Use exactly this subject line, unchanged: %q\n\n", *in.SubjectLine)
	}

	b.WriteString(`Generate a newsletter with:
1. A compelling subject line (max 60 characters)
2. An engaging introduction
3. Coverage of the top 3-4 trends with insights
4. A conclusion with a call to action

Formatting rules:
- Write the content as an HTML fragment using only <h2>, <h3>, <p>, <ul>, <ol>, <li>, <strong>, <em> and <a> tags.
- Do not include <html>, <head> or <body> tags or any document wrapper.
- Do not write escape sequences such as \n, \t or \" in the content; put the HTML on a single line.
- Write fresh sentences. Do not repeat phrasing from earlier newsletters or from the examples.

Format your response as JSON:
{
  "subject": "Your subject line here",
  "content": "Full newsletter content here with proper formatting"
}`)

	return b.String()
}
