package llm

import (
	"bytes"
	"context"
	"creatorpulse/internal/config"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ChatClient calls an OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	endpoint    string
	model       string
	apiKey      string
	temperature float32
	httpClient  *http.Client
}

var _ Generator = (*ChatClient)(nil)

// NewChatClient builds a client from configuration.
func NewChatClient(cfg config.OpenAIConfig, temperature float32, timeout time.Duration) (*ChatClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("chat completions API key is required. Set OPENAI_API_KEY or generation.openai.api_key")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultChatEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}

	return &ChatClient{
		endpoint:    endpoint,
		model:       model,
		apiKey:      cfg.APIKey,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

// Name identifies the provider in logs and errors.
func (c *ChatClient) Name() string { return "openai" }

type chatCompletionResponse struct {
	Choices []struct {
		Message *struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate posts the messages and returns choices[0].message.content.
// A non-2xx status or a response without choices[0].message is a GenerationError.
func (c *ChatClient) Generate(ctx context.Context, req *Request) (string, error) {
	payload := Request{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
	}
	if payload.Model == "" {
		payload.Model = c.model
	}
	if payload.Temperature == 0 {
		payload.Temperature = c.temperature
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &GenerationError{Provider: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &GenerationError{
			Provider:   c.Name(),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}

	var decoded chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", &GenerationError{Provider: c.Name(), Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(decoded.Choices) == 0 || decoded.Choices[0].Message == nil {
		return "", &GenerationError{Provider: c.Name(), Body: "response has no choices[0].message"}
	}

	return decoded.Choices[0].Message.Content, nil
}
