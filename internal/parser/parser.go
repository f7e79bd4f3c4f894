// Package parser recovers a newsletter subject and body from the text returned
// by a generation call. The generator is not trusted to emit valid JSON, so
// parsing never fails: it tries a strict decode first, then pattern extraction,
// and finally falls back to the raw text.
package parser

import (
	"encoding/json"
	"regexp"
	"strings"
)

// DefaultSubject is used whenever no subject can be recovered.
const DefaultSubject = "Weekly Newsletter Update"

// Stage records which recovery step produced a Result.
type Stage string

const (
	StageJSON  Stage = "json"
	StageRegex Stage = "regex"
	// StageRaw means neither a JSON object nor a content field was found and
	// the whole text became the content.
	StageRaw Stage = "raw"
)

// Result is the parsed newsletter.
type Result struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
	Stage   Stage  `json:"stage"`
}

var (
	fencedBlockRegex = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
	subjectRegex     = regexp.MustCompile(`"subject":\s*"([^"]+)"`)
	contentRegex     = regexp.MustCompile(`"content":\s*"([\s\S]+?)"\s*\}`)

	interTagSpace = regexp.MustCompile(`>\s+<`)
	spaceRuns     = regexp.MustCompile(` {2,}`)
)

type payload struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// ParseGeneration extracts subject and content from raw generator output.
func ParseGeneration(raw string) Result {
	candidate := raw
	if m := fencedBlockRegex.FindStringSubmatch(raw); m != nil {
		candidate = m[1]
	}

	var p payload
	if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &p); err == nil {
		return finish(p.Subject, p.Content, StageJSON)
	}

	return parseLoose(raw)
}

// parseLoose is the pattern-matching fallback. It runs against the raw text
// rather than the fenced candidate.
func parseLoose(raw string) Result {
	var subject string
	if m := subjectRegex.FindStringSubmatch(raw); m != nil {
		subject = m[1]
	}

	m := contentRegex.FindStringSubmatch(raw)
	if m == nil {
		return finish(subject, raw, StageRaw)
	}
	return finish(subject, m[1], StageRegex)
}

func finish(subject, content string, stage Stage) Result {
	subject = Clean(subject)
	if subject == "" {
		subject = DefaultSubject
	}
	return Result{
		Subject: subject,
		Content: Clean(content),
		Stage:   stage,
	}
}

// Clean compacts a generated field into a single-line HTML fragment.
// Literal \n, \t and \r sequences are removed outright, \\ \" and \' are
// unescaped, any other backslash escape loses its backslash, whitespace
// between tags is dropped and runs of spaces collapse to one.
func Clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(s) {
			break
		}
		i++
		if next := s[i]; next != 'n' && next != 't' && next != 'r' {
			b.WriteByte(next)
		}
	}

	out := interTagSpace.ReplaceAllString(b.String(), "><")
	out = spaceRuns.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
