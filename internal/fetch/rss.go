package fetch

import (
	"context"
	"creatorpulse/internal/core"
	"regexp"
	"strings"
)

// RSS items are pulled out by pattern rather than decoded as XML so that
// malformed feeds still yield whatever items they contain.
var (
	itemRegex        = regexp.MustCompile(`<item>[\s\S]*?</item>`)
	titleRegex       = regexp.MustCompile(`<title>(.*?)</title>`)
	descriptionRegex = regexp.MustCompile(`<description>(.*?)</description>`)
)

func (c *Client) fetchRSS(ctx context.Context, url string) ([]core.FetchedItem, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	return ParseRSSItems(string(body)), nil
}

// ParseRSSItems extracts every <item> block with its <title> and <description>.
// Missing sub-elements become empty strings. Sub-elements only match on a
// single line, as the feed publishes them.
func ParseRSSItems(feed string) []core.FetchedItem {
	blocks := itemRegex.FindAllString(feed, -1)
	items := make([]core.FetchedItem, 0, len(blocks))
	for _, block := range blocks {
		items = append(items, core.FetchedItem{
			Title:       submatch(titleRegex, block),
			Description: submatch(descriptionRegex, block),
		})
	}
	return items
}

func submatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return unwrapCDATA(m[1])
}

func unwrapCDATA(s string) string {
	if strings.HasPrefix(s, "<![CDATA[") && strings.HasSuffix(s, "]]>") {
		return s[len("<![CDATA[") : len(s)-len("]]>")]
	}
	return s
}
