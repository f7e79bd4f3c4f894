// Package llm talks to the external text-generation endpoints used to draft
// newsletters. Callers build a Request and hand it to a Generator; the raw text
// that comes back is interpreted by the parser package.
package llm

import (
	"context"
	"creatorpulse/internal/config"
	"fmt"
	"strings"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// DefaultChatModel is used by ChatClient when neither the request nor config names one.
	DefaultChatModel = "gpt-4o-mini"
	// DefaultGeminiModel is used by GeminiClient when neither the request nor config names one.
	DefaultGeminiModel = "gemini-2.5-flash"
	// DefaultChatEndpoint is the OpenAI chat completions URL.
	DefaultChatEndpoint = "https://api.openai.com/v1/chat/completions"
)

// Message is one turn of a chat prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral generation request.
type Request struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
}

// System returns the concatenated system messages.
func (r *Request) System() string {
	return r.join(RoleSystem)
}

// User returns the concatenated user messages.
func (r *Request) User() string {
	return r.join(RoleUser)
}

func (r *Request) join(role string) string {
	var parts []string
	for _, m := range r.Messages {
		if m.Role == role {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Generator produces raw text for a request.
type Generator interface {
	Generate(ctx context.Context, req *Request) (string, error)
	Name() string
}

// GenerationError reports a failed or unusable generation call. It is fatal
// for the draft being generated and is never retried here.
type GenerationError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *GenerationError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s generation failed with status %d: %s", e.Provider, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s generation failed: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s generation failed: %s", e.Provider, e.Body)
	}
}

func (e *GenerationError) Unwrap() error { return e.Err }

// New builds the Generator selected by cfg.Provider.
func New(ctx context.Context, cfg config.Generation) (Generator, error) {
	timeout := config.Duration(cfg.Timeout, 60*time.Second)

	switch cfg.Provider {
	case "", "openai":
		return NewChatClient(cfg.OpenAI, cfg.Temperature, timeout)
	case "gemini":
		return NewGeminiClient(ctx, cfg.Gemini, cfg.Temperature)
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", cfg.Provider)
	}
}
