// Package query answers natural-language questions about a dataset by
// delegating interpretation to an external reasoning service.
package query

import (
	"context"
	"fmt"

	"github.com/ashureev/datachat/internal/config"
)

// Chat roles understood by every provider.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is a chat message in a provider-agnostic format.
type Message struct {
	Role    string
	Content string
}

// Options tunes a single completion call.
type Options struct {
	Temperature float64
	Model       string
	JSON        bool
}

// Option mutates Options.
type Option func(*Options)

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithJSON asks the provider to constrain the reply to a JSON object.
func WithJSON() Option {
	return func(o *Options) {
		o.JSON = true
	}
}

func applyOptions(defaults Options, opts []Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// Reasoner is the contract for any reasoning backend.
type Reasoner interface {
	// Complete sends the conversation to the model and returns the reply text.
	Complete(ctx context.Context, messages []Message, opts ...Option) (string, error)

	// Name identifies the provider in logs.
	Name() string
}

// NewReasoner builds the reasoner selected by cfg.Provider.
func NewReasoner(cfg config.ReasoningConfig) (Reasoner, error) {
	switch cfg.Provider {
	case config.ProviderGroq, config.ProviderOpenAI:
		return NewOpenAIReasoner(cfg.Provider, cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case config.ProviderOllama:
		return NewOllamaReasoner(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported reasoning provider: %s", cfg.Provider)
	}
}
