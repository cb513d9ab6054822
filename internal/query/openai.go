package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIReasoner talks to any OpenAI-compatible chat completion API,
// which covers both OpenAI and Groq.
type OpenAIReasoner struct {
	name   string
	model  string
	client *openai.Client
}

var _ Reasoner = (*OpenAIReasoner)(nil)

// NewOpenAIReasoner creates a reasoner for an OpenAI-compatible endpoint.
// An empty baseURL keeps the client's default.
func NewOpenAIReasoner(name, apiKey, baseURL, model string) *OpenAIReasoner {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIReasoner{
		name:   name,
		model:  model,
		client: openai.NewClientWithConfig(cfg),
	}
}

// Name returns the provider name.
func (r *OpenAIReasoner) Name() string {
	return r.name
}

// Complete sends a chat completion request.
func (r *OpenAIReasoner) Complete(ctx context.Context, messages []Message, opts ...Option) (string, error) {
	options := applyOptions(Options{Model: r.model}, opts)

	msgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	req := openai.ChatCompletionRequest{
		Model:       options.Model,
		Messages:    msgs,
		Temperature: float32(options.Temperature),
	}
	if options.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%s api error (status %d): %w", r.name, apiErr.HTTPStatusCode, err)
		}
		return "", fmt.Errorf("%s request failed: %w", r.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", r.name)
	}

	return resp.Choices[0].Message.Content, nil
}
