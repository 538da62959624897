// Package requestlog records one metadata row per proxied request: route,
// model, outcome and latency. Prompts and outputs are never stored.
package requestlog

import (
	"context"
	"time"
)

type Entry struct {
	ID        string
	RequestID string
	KeyHash   string
	Route     string // "chat", "completion" or "embedding"
	Model     string
	Status    int
	Streamed  bool
	Fallback  string // synthetic-candidate reason, empty when none
	LatencyMs int64
	CreatedAt time.Time
}

type Store interface {
	Log(ctx context.Context, entry *Entry) error
}

// NopStore discards entries. It is used when no database is configured.
type NopStore struct{}

func (NopStore) Log(context.Context, *Entry) error { return nil }
