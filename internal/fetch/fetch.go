// Package fetch reads raw items (title and description) from the external feeds
// behind each tracked source. Fetching is a pure read; persisting sync status
// is left to the caller.
package fetch

import (
	"context"
	"creatorpulse/internal/core"
	"creatorpulse/internal/logger"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultUserAgent is sent with every feed request.
	DefaultUserAgent = "CreatorPulse/1.0"
	// maxBodySize bounds how much of a feed response is read.
	maxBodySize = 10 << 20
)

// Fetcher retrieves the items currently published by a source.
type Fetcher interface {
	Fetch(ctx context.Context, src core.Source) ([]core.FetchedItem, error)
}

// Options configures a Client. Zero values fall back to defaults; the base
// URLs exist so tests can point the client at local servers.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// MaxItems caps the items returned per source; 0 means no cap.
	MaxItems int

	YouTubeBaseURL      string
	RedditBaseURL       string
	HackerNewsBaseURL   string
	GoogleTrendsBaseURL string
}

// Client is the Fetcher used by the sync pipeline.
type Client struct {
	httpClient *http.Client
	opts       Options
}

var _ Fetcher = (*Client)(nil)

// New creates a fetch client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.YouTubeBaseURL == "" {
		opts.YouTubeBaseURL = "https://www.youtube.com"
	}
	if opts.RedditBaseURL == "" {
		opts.RedditBaseURL = "https://www.reddit.com"
	}
	if opts.HackerNewsBaseURL == "" {
		opts.HackerNewsBaseURL = "https://hnrss.org"
	}
	if opts.GoogleTrendsBaseURL == "" {
		opts.GoogleTrendsBaseURL = "https://trends.google.com"
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		opts:       opts,
	}
}

// Fetch dispatches on the source type. Twitter and unknown types yield no
// items and no error.
func (c *Client) Fetch(ctx context.Context, src core.Source) ([]core.FetchedItem, error) {
	var (
		items []core.FetchedItem
		err   error
	)

	switch src.Type {
	case core.SourceTypeRSS:
		items, err = c.fetchRSS(ctx, src.URL)
	case core.SourceTypeYouTube:
		items, err = c.fetchYouTube(ctx, src.URL)
	case core.SourceTypeTwitter:
		logger.Debug("Twitter sources are not fetched yet", "source_id", src.ID)
		return nil, nil
	case core.SourceTypeReddit, core.SourceTypeHackerNews, core.SourceTypeGoogleTrends, core.SourceTypeGoogleAlerts:
		items, err = c.fetchFeed(ctx, src)
	default:
		logger.Debug("Skipping source with unknown type", "source_id", src.ID, "type", string(src.Type))
		return nil, nil
	}

	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			fe.SourceID = src.ID
			return nil, fe
		}
		return nil, &FetchError{Kind: KindNetwork, SourceID: src.ID, URL: src.URL, Err: err}
	}

	for i := range items {
		items[i].SourceID = src.ID
	}
	if c.opts.MaxItems > 0 && len(items) > c.opts.MaxItems {
		items = items[:c.opts.MaxItems]
	}
	return items, nil
}

// get issues a GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html;q=0.9, */*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{Kind: KindNetwork, URL: url, Err: fmt.Errorf("status code %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	return body, nil
}
