package query

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// OllamaReasoner talks to an Ollama server's chat API.
type OllamaReasoner struct {
	model  string
	client *resty.Client
}

var _ Reasoner = (*OllamaReasoner)(nil)

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// NewOllamaReasoner creates a reasoner for an Ollama server.
// apiKey is optional and sent as a bearer token when set.
func NewOllamaReasoner(baseURL, apiKey, model string) *OllamaReasoner {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &OllamaReasoner{model: model, client: client}
}

// Name returns the provider name.
func (r *OllamaReasoner) Name() string {
	return "ollama"
}

// Complete sends a non-streaming chat request.
func (r *OllamaReasoner) Complete(ctx context.Context, messages []Message, opts ...Option) (string, error) {
	options := applyOptions(Options{Model: r.model}, opts)

	payload := ollamaChatRequest{
		Model:    options.Model,
		Messages: make([]ollamaMessage, len(messages)),
		Options:  ollamaOptions{Temperature: options.Temperature},
	}
	for i, m := range messages {
		payload.Messages[i] = ollamaMessage{Role: m.Role, Content: m.Content}
	}
	if options.JSON {
		payload.Format = "json"
	}

	var out ollamaChatResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&out).
		Post("/api/chat")
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode(), resp.String())
	}

	return out.Message.Content, nil
}
