package fetch

import (
	"bytes"
	"context"
	"creatorpulse/internal/core"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
)

// fetchFeed handles the providers that publish Atom or RSS with attributes
// and namespaces, which the <item> pattern cannot read.
func (c *Client) fetchFeed(ctx context.Context, src core.Source) ([]core.FetchedItem, error) {
	feedURL, err := c.FeedURL(src)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{Kind: KindParse, URL: feedURL, Err: err}
	}

	items := make([]core.FetchedItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		description := entry.Description
		if description == "" {
			description = entry.Content
		}
		items = append(items, core.FetchedItem{
			Title:       strings.TrimSpace(entry.Title),
			Description: strings.TrimSpace(description),
		})
	}
	return items, nil
}

// FeedURL expands a source identifier into the provider feed it reads:
//
//	reddit         golang, r/golang or a subreddit URL -> <reddit>/r/golang/.rss
//	hacker-news    empty or "frontpage" -> hnrss front page, other text -> search feed
//	google-trends  empty or a region code -> daily trending searches feed
//	google-alerts  must already be the alert's feed URL
//
// Any http(s) URL that is already a feed is returned unchanged.
func (c *Client) FeedURL(src core.Source) (string, error) {
	id := strings.TrimSpace(src.URL)

	switch src.Type {
	case core.SourceTypeReddit:
		if isHTTP(id) {
			if strings.HasSuffix(id, ".rss") {
				return id, nil
			}
			return strings.TrimRight(id, "/") + "/.rss", nil
		}
		name := strings.TrimPrefix(strings.TrimPrefix(id, "/"), "r/")
		name = strings.Trim(name, "/")
		if name == "" {
			return "", &FetchError{Kind: KindParse, URL: src.URL, Err: fmt.Errorf("missing subreddit name")}
		}
		return c.opts.RedditBaseURL + "/r/" + name + "/.rss", nil

	case core.SourceTypeHackerNews:
		if isHTTP(id) {
			return id, nil
		}
		if id == "" || strings.EqualFold(id, "frontpage") {
			return c.opts.HackerNewsBaseURL + "/frontpage", nil
		}
		return c.opts.HackerNewsBaseURL + "/newest?q=" + url.QueryEscape(id), nil

	case core.SourceTypeGoogleTrends:
		if isHTTP(id) {
			return id, nil
		}
		geo := strings.ToUpper(id)
		if geo == "" {
			geo = "US"
		}
		return c.opts.GoogleTrendsBaseURL + "/trending/rss?geo=" + url.QueryEscape(geo), nil

	case core.SourceTypeGoogleAlerts:
		if isHTTP(id) {
			return id, nil
		}
		return "", &FetchError{Kind: KindUnsupported, URL: src.URL, Err: fmt.Errorf("google alerts sources need the alert's feed URL")}
	}

	return "", &FetchError{Kind: KindUnsupported, URL: src.URL, Err: fmt.Errorf("no feed for source type %q", src.Type)}
}

func isHTTP(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
