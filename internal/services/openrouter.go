package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"farrelnajib/ai-hiring/internal/config"
)

// openRouterProvider calls one model on the OpenRouter chat-completions API.
// The configured model list yields one provider per model so the fallback
// chain can walk them in order.
type openRouterProvider struct {
	client  *http.Client
	apiKey  string
	baseURL string
	model   string
}

func NewOpenRouterProviders(cfg config.OpenRouterConfig) []Provider {
	// One shared client; per-call deadlines come from the chain's race, not
	// from here.
	client := &http.Client{Timeout: 60 * time.Second}

	providers := make([]Provider, 0, len(cfg.Models))
	for _, model := range cfg.Models {
		providers = append(providers, &openRouterProvider{
			client:  client,
			apiKey:  cfg.APIKey,
			baseURL: strings.TrimRight(cfg.BaseURL, "/"),
			model:   model,
		})
	}

	return providers
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Name implements Provider.
func (p *openRouterProvider) Name() string {
	return "openrouter/" + p.model
}

// Call implements Provider.
func (p *openRouterProvider) Call(ctx context.Context, prompt string) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("openrouter api key is not configured")
	}

	reqBody := chatCompletionRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   1500,
		TopP:        0.9,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("X-Title", "AI Hiring App")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model %s failed with status %d: %s",
			p.model, resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("model %s returned no choices", p.model)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("model %s returned empty content", p.model)
	}

	return content, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
