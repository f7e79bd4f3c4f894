// Package trends turns the items fetched in one sync cycle into ranked Trend records
// by counting how many distinct items mention each candidate term.
package trends

import (
	"creatorpulse/internal/core"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// MinMentions is the number of distinct items a term must appear in to become a trend.
	MinMentions = 3
	// MaxTrends caps the number of trends emitted per cycle.
	MaxTrends = 5
	// MaxExampleTitles caps the example titles kept per signal.
	MaxExampleTitles = 3

	// DefaultSentiment is attached to every trend; there is no sentiment model yet.
	DefaultSentiment = 0.5
	DefaultCategory  = "General"
)

// Aggregator builds trends from fetched items. It holds no per-cycle state:
// every call starts from an empty tally.
type Aggregator struct {
	now   func() time.Time
	newID func() string
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithClock sets the clock used for DetectedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithIDGenerator sets the function used to assign trend IDs.
func WithIDGenerator(newID func() string) Option {
	return func(a *Aggregator) { a.newID = newID }
}

// NewAggregator creates a new trend aggregator
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Signals tallies every candidate term across items. A term is counted once per
// item no matter how often it repeats inside it. The result is ordered by count
// descending, then term ascending, and includes terms below the threshold.
func (a *Aggregator) Signals(items []core.FetchedItem) []core.KeywordSignal {
	tally := make(map[string]*core.KeywordSignal)

	for _, item := range items {
		for _, term := range Terms(item) {
			sig, ok := tally[term]
			if !ok {
				sig = &core.KeywordSignal{Term: term}
				tally[term] = sig
			}
			sig.Count++
			if len(sig.ExampleTitles) < MaxExampleTitles {
				sig.ExampleTitles = append(sig.ExampleTitles, item.Title)
			}
			if item.SourceID != "" && !contains(sig.SourceIDs, item.SourceID) {
				sig.SourceIDs = append(sig.SourceIDs, item.SourceID)
			}
		}
	}

	signals := make([]core.KeywordSignal, 0, len(tally))
	for _, sig := range tally {
		signals = append(signals, *sig)
	}
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Count != signals[j].Count {
			return signals[i].Count > signals[j].Count
		}
		return signals[i].Term < signals[j].Term
	})
	return signals
}

// Rank keeps signals that reach MinMentions and returns at most MaxTrends of them.
// signals must already be ordered as Signals returns them.
func Rank(signals []core.KeywordSignal) []core.KeywordSignal {
	var ranked []core.KeywordSignal
	for _, sig := range signals {
		if sig.Count < MinMentions {
			continue
		}
		ranked = append(ranked, sig)
		if len(ranked) == MaxTrends {
			break
		}
	}
	return ranked
}

// Aggregate runs the full pass: tally, threshold, rank, emit.
// No items yields no trends. Trends of one pass share a DetectedAt.
func (a *Aggregator) Aggregate(items []core.FetchedItem) []core.Trend {
	if len(items) == 0 {
		return nil
	}

	ranked := Rank(a.Signals(items))
	detectedAt := a.now()
	trends := make([]core.Trend, 0, len(ranked))
	for _, sig := range ranked {
		trends = append(trends, a.emit(sig, detectedAt))
	}
	return trends
}

func (a *Aggregator) emit(sig core.KeywordSignal, detectedAt time.Time) core.Trend {
	sources := make([]string, len(sig.SourceIDs))
	copy(sources, sig.SourceIDs)

	return core.Trend{
		ID:          a.newID(),
		Title:       Capitalize(sig.Term),
		Description: fmt.Sprintf("Trending topic detected across %d posts", sig.Count),
		Mentions:    sig.Count,
		Sentiment:   DefaultSentiment,
		DetectedAt:  detectedAt,
		Category:    DefaultCategory,
		SourceIDs:   sources,
	}
}

// Capitalize upper-cases the first character and leaves the rest untouched.
func Capitalize(term string) string {
	if term == "" {
		return term
	}
	r, size := utf8.DecodeRuneInString(term)
	return string(unicode.ToUpper(r)) + term[size:]
}

// FormatSignals renders signals as a short plain-text table for logs and the CLI.
func FormatSignals(signals []core.KeywordSignal) string {
	var builder strings.Builder
	for i, sig := range signals {
		builder.WriteString(fmt.Sprintf("%d. %s (%d)", i+1, sig.Term, sig.Count))
		if len(sig.ExampleTitles) > 0 {
			builder.WriteString(" e.g. " + strings.Join(sig.ExampleTitles, " | "))
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
