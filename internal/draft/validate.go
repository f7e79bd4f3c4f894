package draft

import (
	"creatorpulse/internal/core"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Request bounds. Lengths are counted in characters, not bytes.
const (
	MaxTrends            = 20
	MaxTrendTitle        = 200
	MaxTrendDescription  = 1000
	MaxWritingStyle      = 500
	MaxTone              = 100
	MaxTopics            = 20
	MaxTopicLength       = 100
	MaxSubjectLine       = 200
	MaxPastNewsletters   = 10
	MaxNewsletterContent = 10000
)

// FieldError describes one offending field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every bound a request violated. Nothing is sent to
// the generator when one is returned.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid draft request: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks in against the request bounds. It expects defaults to have
// been applied already; see BuildRequest.
func Validate(in Input) error {
	v := &ValidationError{}

	if n := len(in.Trends); n < 1 || n > MaxTrends {
		v.add("trends", "must contain between 1 and %d entries, got %d", MaxTrends, n)
	}
	for i, t := range in.Trends {
		checkTrend(v, fmt.Sprintf("trends[%d]", i), t)
	}

	p := in.Preferences
	checkLength(v, "preferences.writingStyle", p.WritingStyle, 1, MaxWritingStyle)
	checkLength(v, "preferences.tone", p.Tone, 1, MaxTone)
	if !p.Length.Valid() {
		v.add("preferences.length", "must be one of short, medium, long")
	}
	if len(p.Topics) > MaxTopics {
		v.add("preferences.topics", "must contain at most %d entries", MaxTopics)
	}
	for i, topic := range p.Topics {
		checkLength(v, fmt.Sprintf("preferences.topics[%d]", i), topic, 0, MaxTopicLength)
	}

	if in.SubjectLine != nil {
		checkLength(v, "subjectLine", *in.SubjectLine, 0, MaxSubjectLine)
	}

	if len(in.PastNewsletters) > MaxPastNewsletters {
		v.add("pastNewsletters", "must contain at most %d entries", MaxPastNewsletters)
	}
	for i, n := range in.PastNewsletters {
		checkLength(v, fmt.Sprintf("pastNewsletters[%d].content", i), n.Content, 0, MaxNewsletterContent)
	}

	if len(v.Fields) > 0 {
		return v
	}
	return nil
}

// ValidateTrend checks a single trend against the request bounds.
func ValidateTrend(t core.Trend) error {
	v := &ValidationError{}
	checkTrend(v, "trend", t)
	if len(v.Fields) > 0 {
		return v
	}
	return nil
}

func checkTrend(v *ValidationError, prefix string, t core.Trend) {
	checkLength(v, prefix+".title", t.Title, 1, MaxTrendTitle)
	checkLength(v, prefix+".description", t.Description, 1, MaxTrendDescription)
	if t.Mentions < 0 {
		v.add(prefix+".mentions", "must not be negative")
	}
	if t.Sentiment < -1 || t.Sentiment > 1 {
		v.add(prefix+".sentiment", "must be between -1 and 1")
	}
}

func checkLength(v *ValidationError, field, value string, min, max int) {
	n := utf8.RuneCountInString(value)
	switch {
	case n < min && min == 1:
		v.add(field, "is required")
	case n < min:
		v.add(field, "must be at least %d characters", min)
	case n > max:
		v.add(field, "must be at most %d characters, got %d", max, n)
	}
}

// withDefaults fills the fields that have a documented default.
func withDefaults(p core.UserPreferences) core.UserPreferences {
	if strings.TrimSpace(p.WritingStyle) == "" {
		p.WritingStyle = core.DefaultWritingStyle
	}
	return p
}
