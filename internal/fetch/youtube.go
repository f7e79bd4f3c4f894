package fetch

import (
	"bytes"
	"context"
	"creatorpulse/internal/core"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// fetchYouTube reads the channel's public videos feed. The stored identifier
// may be a channel URL, a bare channel id or an @handle.
func (c *Client) fetchYouTube(ctx context.Context, identifier string) ([]core.FetchedItem, error) {
	channelID, err := c.resolveChannelID(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return c.fetchRSS(ctx, c.YouTubeFeedURL(channelID))
}

// YouTubeFeedURL builds the channel-videos feed URL for a channel id.
func (c *Client) YouTubeFeedURL(channelID string) string {
	return c.opts.YouTubeBaseURL + "/feeds/videos.xml?channel_id=" + url.QueryEscape(channelID)
}

// ChannelSegment returns the last path segment of a YouTube identifier,
// ignoring any query string or trailing slash.
func ChannelSegment(identifier string) string {
	s := strings.TrimSpace(identifier)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return s
}

func (c *Client) resolveChannelID(ctx context.Context, identifier string) (string, error) {
	segment := ChannelSegment(identifier)
	if segment == "" {
		return "", &FetchError{Kind: KindParse, URL: identifier, Err: fmt.Errorf("no channel id in %q", identifier)}
	}
	if !strings.HasPrefix(segment, "@") {
		return segment, nil
	}

	// Handles have no feed of their own; the channel page carries the id.
	pageURL := c.opts.YouTubeBaseURL + "/" + segment
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", &FetchError{Kind: KindParse, URL: pageURL, Err: err}
	}

	if id, ok := doc.Find(`meta[itemprop="channelId"]`).Attr("content"); ok && id != "" {
		return id, nil
	}
	if href, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok && strings.Contains(href, "/channel/") {
		return ChannelSegment(href), nil
	}
	return "", &FetchError{Kind: KindParse, URL: pageURL, Err: fmt.Errorf("channel id not found for %s", segment)}
}
