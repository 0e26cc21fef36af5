package audit

import (
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTypeAuthLogin          EventType = "auth.login"
	EventTypeAuthLoginFailed    EventType = "auth.login_failed"
	EventTypeAuthPasswordChange EventType = "auth.password_change"

	// Authorization events
	EventTypeAuthzAccessDenied EventType = "authz.access_denied"

	// Data mutation events
	EventTypeDataCreate EventType = "data.create"
	EventTypeDataUpdate EventType = "data.update"
	EventTypeDataDelete EventType = "data.delete"

	// Integration credential events
	EventTypeKeyRotate EventType = "integration.key_rotate"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event is a single audit log entry
type Event struct {
	Timestamp time.Time   `json:"timestamp"`
	Action    EventType   `json:"action"`
	Outcome   EventStatus `json:"outcome"`

	// Actor information
	ActorID  string `json:"actor_id,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
	Role     string `json:"role,omitempty"`

	// Resource information
	Kind       string `json:"kind,omitempty"`
	ResourceID string `json:"resource_id,omitempty"`

	RequestID string                 `json:"request_id,omitempty"`
	Reason    string                 `json:"reason,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`

	// Changes lists the field names a mutation touched. Values are never recorded.
	Changes []string `json:"changes,omitempty"`
}

// Filter selects events from an in-memory log
type Filter struct {
	TenantID string
	ActorID  string
	Actions  []EventType
	Outcome  EventStatus
	Kind     string
	Since    time.Time
	Limit    int
}

// Match reports whether e satisfies every set field of f
func (f Filter) Match(e *Event) bool {
	if f.TenantID != "" && e.TenantID != f.TenantID {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.Outcome != "" && e.Outcome != f.Outcome {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if len(f.Actions) > 0 {
		for _, a := range f.Actions {
			if a == e.Action {
				return true
			}
		}
		return false
	}
	return true
}
