package provider

import (
	"context"
	"errors"
)

var (
	ErrTransport         = errors.New("backend request failed")
	ErrMalformedResponse = errors.New("backend returned malformed JSON")
)

// Call describes one outbound request to a model backend.
type Call struct {
	Model  string // deployment name, e.g. "chat-bison-001"
	Method string // backend operation, e.g. "generateMessage"
	APIKey string
	Body   any
	// Metadata for logging
	RequestID string
}

type Provider interface {
	// Invoke sends call and decodes the backend's JSON reply into out,
	// whatever the HTTP status. Only transport failures and undecodable
	// bodies are returned as errors.
	Invoke(ctx context.Context, call *Call, out any) error
	Name() string
}
