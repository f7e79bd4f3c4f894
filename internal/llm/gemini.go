package llm

import (
	"context"
	"creatorpulse/internal/config"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// GeminiClient generates drafts with Google Gemini.
type GeminiClient struct {
	modelName   string
	temperature float32
	gClient     *genai.Client
}

var _ Generator = (*GeminiClient)(nil)

// NewGeminiClient creates a Gemini-backed generator. The API key falls back to
// GEMINI_API_KEY and its alternatives when config leaves it empty.
func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig, temperature float32) (*GeminiClient, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		if apiKey = os.Getenv("GEMINI_API_KEY"); apiKey == "" {
			apiKey = os.Getenv("GOOGLE_GEMINI_API_KEY")
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY or generation.gemini.api_key")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		modelName:   modelName,
		temperature: temperature,
		gClient:     gClient,
	}, nil
}

// Name identifies the provider in logs and errors.
func (c *GeminiClient) Name() string { return "gemini" }

// Generate sends system messages as the system instruction and the rest as
// conversation turns.
func (c *GeminiClient) Generate(ctx context.Context, req *Request) (string, error) {
	modelName := c.modelName
	if req.Model != "" {
		modelName = req.Model
	}

	contents := geminiContents(req.Messages)
	if len(contents) == 0 {
		return "", fmt.Errorf("request has no user content")
	}

	temp := c.temperature
	if req.Temperature > 0 {
		temp = req.Temperature
	}
	cfg := &genai.GenerateContentConfig{}
	if temp > 0 {
		cfg.Temperature = genai.Ptr(temp)
	}
	if system := req.System(); system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, modelName, contents, cfg)
	if err != nil {
		return "", &GenerationError{Provider: c.Name(), Err: err}
	}

	text := resp.Text()
	if text == "" {
		return "", &GenerationError{Provider: c.Name(), Body: "empty response from model"}
	}
	return text, nil
}

func geminiContents(messages []Message) []*genai.Content {
	var contents []*genai.Content
	for _, m := range messages {
		role := "user"
		switch m.Role {
		case RoleSystem:
			continue
		case RoleAssistant:
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: m.Content}},
			Role:  role,
		})
	}
	return contents
}
