package audit

import (
	"context"
	"time"

	"github.com/platinummonkey/estatehub/pkg/contextkeys"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log logs an audit event
	Log(ctx context.Context, event *Event) error

	// Close closes the logger and flushes any buffered logs
	Close() error
}

// noOpLogger is a logger that does nothing (used when no logger is configured)
type noOpLogger struct{}

// NoOp returns a logger that discards every event
func NoOp() Logger {
	return noOpLogger{}
}

func (noOpLogger) Log(ctx context.Context, event *Event) error {
	return nil
}

func (noOpLogger) Close() error {
	return nil
}

// NewEvent creates an event with the timestamp and request id populated.
// Actor fields are filled from the request context when present.
func NewEvent(ctx context.Context, action EventType, outcome EventStatus) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Outcome:   outcome,
		ActorID:   contextkeys.GetUserID(ctx),
		TenantID:  contextkeys.GetTenantID(ctx),
		RequestID: contextkeys.GetRequestID(ctx),
	}
}
