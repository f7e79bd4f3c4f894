package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SlackMessage represents a Slack incoming-webhook payload
type SlackMessage struct {
	Text     string       `json:"text,omitempty"`
	Blocks   []SlackBlock `json:"blocks,omitempty"`
	Username string       `json:"username,omitempty"`
}

// SlackBlock represents a Slack block kit element
type SlackBlock struct {
	Type   string      `json:"type"`
	Text   *SlackText  `json:"text,omitempty"`
	Fields []SlackText `json:"fields,omitempty"`
}

// SlackText represents text in Slack blocks
type SlackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// WebhookOptions configures a Webhook publisher.
type WebhookOptions struct {
	URL      string
	Username string
	Timeout  time.Duration
}

// Webhook posts a "draft ready for review" notice to a Slack-compatible webhook.
type Webhook struct {
	url        string
	username   string
	httpClient *http.Client
}

// NewWebhook creates a webhook publisher.
func NewWebhook(opts WebhookOptions) *Webhook {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Username == "" {
		opts.Username = "CreatorPulse"
	}
	return &Webhook{
		url:        opts.URL,
		username:   opts.Username,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

// DraftMessage builds the notification for a draft event.
func DraftMessage(event Event, username string) *SlackMessage {
	d := event.Draft
	text := fmt.Sprintf("New newsletter draft ready for review: %s", d.Subject)

	return &SlackMessage{
		Text:     text,
		Username: username,
		Blocks: []SlackBlock{
			{Type: "header", Text: &SlackText{Type: "plain_text", Text: "Draft ready for review"}},
			{Type: "section", Text: &SlackText{Type: "mrkdwn", Text: "*" + escapeSlack(d.Subject) + "*"}},
			{Type: "section", Fields: []SlackText{
				{Type: "mrkdwn", Text: "*Scheduled for*\n" + d.ScheduledFor.Format("Mon Jan 2 15:04")},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Trends*\n%d", len(d.TrendIDs))},
				{Type: "mrkdwn", Text: "*Draft ID*\n`" + d.ID + "`"},
			}},
		},
	}
}

// escapeSlack escapes the characters Slack treats as control sequences.
func escapeSlack(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

func (w *Webhook) Publish(ctx context.Context, event Event) error {
	jsonData, err := json.Marshal(DraftMessage(event, w.username))
	if err != nil {
		return fmt.Errorf("failed to marshal webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (w *Webhook) Close() error { return nil }
