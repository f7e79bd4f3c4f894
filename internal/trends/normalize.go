package trends

import (
	"creatorpulse/internal/core"
	"strings"
	"unicode/utf8"
)

// MinTermLength is the shortest token kept as a candidate term; anything
// of this length or less is discarded.
const MinTermLength = 5

// Terms turns an item into its candidate keyword units: title and description
// joined by a space, lowercased, split on whitespace, tokens longer than
// MinTermLength characters kept. Each term appears once, in first-seen order.
func Terms(item core.FetchedItem) []string {
	text := strings.ToLower(item.Title + " " + item.Description)

	seen := make(map[string]bool)
	var terms []string
	for _, token := range strings.Fields(text) {
		if utf8.RuneCountInString(token) <= MinTermLength {
			continue
		}
		if seen[token] {
			continue
		}
		seen[token] = true
		terms = append(terms, token)
	}
	return terms
}
