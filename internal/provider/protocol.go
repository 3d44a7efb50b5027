package provider

import (
	"context"
	"fmt"
)

// Protocol defines the interface for the external text-completion provider.
type Protocol interface {
	// Name returns a human-readable provider name.
	Name() string

	// Available reports whether the provider has a credential and can
	// accept requests. All availability gating goes through this one check.
	Available() bool

	// CreateMessage issues one blocking completion request.
	CreateMessage(ctx context.Context, req *MessageRequest) (*MessageResponse, error)
}

// Message is a single entry in the conversation sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessageRequest carries the fixed parameters for one completion request.
type MessageRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []Message `json:"messages"`
}

// MessageResponse holds the completion text plus usage accounting.
type MessageResponse struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	StopReason   string `json:"stop_reason"`
}

// KeyUpdater is implemented by providers whose credential can be swapped at
// runtime.
type KeyUpdater interface {
	SetAPIKey(key string)
}

// StatusError reports a non-200 response from the provider. The dispatcher
// uses the status code to distinguish credential rejections from everything
// else.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}
