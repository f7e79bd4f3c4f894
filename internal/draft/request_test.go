package draft

import (
	"creatorpulse/internal/core"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func sampleTrends(n int) []core.Trend {
	trends := make([]core.Trend, n)
	for i := range trends {
		trends[i] = core.Trend{
			ID:          fmt.Sprintf("t%d", i),
			Title:       fmt.Sprintf("Topic%d", i),
			Description: "Trending topic detected across 4 posts",
			Mentions:    4,
			Sentiment:   0.5,
		}
	}
	return trends
}

func validInput() Input {
	return Input{
		Trends:      sampleTrends(3),
		Preferences: core.DefaultPreferences(),
	}
}

func fieldNames(err error) []string {
	var v *ValidationError
	if !errors.As(err, &v) {
		return nil
	}
	var names []string
	for _, f := range v.Fields {
		names = append(names, f.Field)
	}
	return names
}

func TestBuildRequest_Validation(t *testing.T) {
	long := func(n int) string { return strings.Repeat("x", n) }
	subject := long(201)

	tests := []struct {
		name      string
		mutate    func(in *Input)
		wantField string
	}{
		{"no trends", func(in *Input) { in.Trends = nil }, "trends"},
		{"21 trends", func(in *Input) { in.Trends = sampleTrends(21) }, "trends"},
		{"empty title", func(in *Input) { in.Trends[1].Title = "" }, "trends[1].title"},
		{"long title", func(in *Input) { in.Trends[0].Title = long(201) }, "trends[0].title"},
		{"long description", func(in *Input) { in.Trends[2].Description = long(1001) }, "trends[2].description"},
		{"negative mentions", func(in *Input) { in.Trends[0].Mentions = -1 }, "trends[0].mentions"},
		{"sentiment out of range", func(in *Input) { in.Trends[0].Sentiment = 1.5 }, "trends[0].sentiment"},
		{"101 char tone", func(in *Input) { in.Preferences.Tone = long(101) }, "preferences.tone"},
		{"empty tone", func(in *Input) { in.Preferences.Tone = "" }, "preferences.tone"},
		{"long writing style", func(in *Input) { in.Preferences.WritingStyle = long(501) }, "preferences.writingStyle"},
		{"bad length", func(in *Input) { in.Preferences.Length = "epic" }, "preferences.length"},
		{"too many topics", func(in *Input) {
			in.Preferences.Topics = strings.Split(strings.Repeat("ai,", 21), ",")[:21]
		}, "preferences.topics"},
		{"long topic", func(in *Input) { in.Preferences.Topics = []string{long(101)} }, "preferences.topics[0]"},
		{"long subject", func(in *Input) { in.SubjectLine = &subject }, "subjectLine"},
		{"too many past newsletters", func(in *Input) {
			in.PastNewsletters = make([]core.PastNewsletter, 11)
		}, "pastNewsletters"},
		{"long past newsletter", func(in *Input) {
			in.PastNewsletters = []core.PastNewsletter{{Content: long(10001)}}
		}, "pastNewsletters[0].content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			req, err := BuildRequest(in)
			if req != nil {
				t.Error("Expected no request on validation failure")
			}
			names := fieldNames(err)
			found := false
			for _, n := range names {
				if n == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Expected field %q in validation error, got %v (err=%v)", tt.wantField, names, err)
			}
		})
	}
}

func TestBuildRequest_ListsEveryOffendingField(t *testing.T) {
	in := validInput()
	in.Trends[0].Title = ""
	in.Preferences.Tone = strings.Repeat("t", 101)
	in.Preferences.Length = "huge"

	names := fieldNames(func() error { _, err := BuildRequest(in); return err }())
	if len(names) != 3 {
		t.Errorf("Expected 3 offending fields, got %v", names)
	}
}

func TestBuildRequest_Boundaries(t *testing.T) {
	in := validInput()
	in.Trends = sampleTrends(20)
	in.Trends[0].Title = strings.Repeat("é", 200)
	in.Trends[1].Sentiment = -1
	in.Preferences.Tone = strings.Repeat("t", 100)
	subject := strings.Repeat("s", 200)
	in.SubjectLine = &subject
	in.PastNewsletters = make([]core.PastNewsletter, 10)

	if _, err := BuildRequest(in); err != nil {
		t.Errorf("Expected values at the bounds to pass, got %v", err)
	}
}

func TestBuildRequest_DefaultsWritingStyle(t *testing.T) {
	in := validInput()
	in.Preferences.WritingStyle = ""

	req, err := BuildRequest(in)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if !strings.Contains(req.User(), "Writing Style: "+core.DefaultWritingStyle) {
		t.Errorf("Expected default writing style in prompt, got:\n%s", req.User())
	}
}

func TestBuildRequest_SummaryUsesFirstFiveTrends(t *testing.T) {
	in := validInput()
	in.Trends = sampleTrends(8)
	in.Trends[0].Title = "Bitcoin"
	in.Trends[0].Mentions = 6

	req, err := BuildRequest(in)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}

	user := req.User()
	if !strings.Contains(user, "1. Bitcoin: Trending topic detected across 4 posts (6 mentions, sentiment: 0.5)") {
		t.Errorf("Expected formatted first trend line, got:\n%s", user)
	}
	if !strings.Contains(user, "5. Topic4:") {
		t.Error("Expected fifth trend in summary")
	}
	if strings.Contains(user, "Topic5") || strings.Contains(user, "6. ") {
		t.Error("Expected only the first five trends in summary")
	}
}

func TestBuildRequest_TruncatesPastNewsletters(t *testing.T) {
	in := validInput()
	in.PastNewsletters = []core.PastNewsletter{
		{Content: strings.Repeat("a", 500) + "SHOULD-NOT-APPEAR"},
		{Content: "short one"},
	}

	req, err := BuildRequest(in)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}

	user := req.User()
	if strings.Contains(user, "SHOULD-NOT-APPEAR") {
		t.Error("Expected past newsletter content truncated to 500 characters")
	}
	if !strings.Contains(user, "Example 1:\n"+strings.Repeat("a", 500)+"...") {
		t.Error("Expected first example with its 500 character excerpt")
	}
	if !strings.Contains(user, "Example 2:\nshort one...") {
		t.Error("Expected second example")
	}
	if !strings.Contains(req.System(), "match the writing style") {
		t.Error("Expected system prompt to reference the examples")
	}
}

func TestBuildRequest_PromptDirectives(t *testing.T) {
	subject := "Crypto is back"
	in := validInput()
	in.SubjectLine = &subject

	req, err := BuildRequest(in)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("Expected system and user messages, got %d", len(req.Messages))
	}

	user := req.User()
	for _, want := range []string{
		`"subject"`,
		`"content"`,
		"<html>, <head> or <body>",
		"escape sequences",
		"Write fresh sentences",
		`"Crypto is back"`,
	} {
		if !strings.Contains(user, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
	if strings.Contains(req.System(), "examples") {
		t.Error("System prompt should not mention examples when none are given")
	}
}

func TestValidateTrend(t *testing.T) {
	ok := sampleTrends(1)[0]
	if err := ValidateTrend(ok); err != nil {
		t.Errorf("Expected valid trend, got %v", err)
	}

	long := ok
	long.Title = strings.Repeat("u", 220)
	var v *ValidationError
	if err := ValidateTrend(long); !errors.As(err, &v) || v.Fields[0].Field != "trend.title" {
		t.Errorf("Expected trend.title violation, got %v", err)
	}
}
