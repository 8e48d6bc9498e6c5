package history

import (
	"context"
	"time"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventStart       EventType = "start"
	EventStop        EventType = "stop"
	EventStartFailed EventType = "start_failed"
)

// Event is an append-only audit entry for one lifecycle transition of the
// managed daemon.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Daemon     string    `json:"daemon"`
	PID        int       `json:"pid"`
	Port       int       `json:"port"`
	Detail     string    `json:"detail,omitempty"` // error text or published address
}

// Sink is a destination for lifecycle events. Sends are best-effort: a sink
// failure must never fail the lifecycle operation that produced the event.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}
