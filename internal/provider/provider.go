// Package provider streams completions from AI providers behind one
// pull-based interface.
package provider

import (
	"context"
	"fmt"

	"github.com/fakeyudi/codeweave/internal/config"
)

// Roles used in Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Image is a base64 encoded image attached to a message.
type Image struct {
	Data      string `json:"data"`
	MediaType string `json:"media_type"`
}

// Message is one turn of the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Image   *Image `json:"image,omitempty"`
}

// Request is a provider-neutral completion request.
type Request struct {
	System      string    `json:"system"`
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

// Provider opens completion streams.
type Provider interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Stream yields text deltas in order. Next returns io.EOF after the last
// delta. After Close, no further deltas are delivered.
type Stream interface {
	Next() (string, error)
	Close() error
}

// New returns the provider selected by cfg.Provider.
func New(cfg config.Config) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return NewAnthropic(cfg.APIKey, cfg.BaseURL), nil
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.APIKey, cfg.BaseURL), nil
	case config.ProviderOllama:
		return NewOllama(cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}
