// Package audit records security-relevant events: logins, password changes,
// resource mutations and authorization denials.
//
// Events carry the actor, tenant, resource kind and id, and the names of the
// fields a mutation touched. Field values are never recorded.
//
// Loggers:
//
//   - StreamLogger writes JSON lines through logrus to stdout or a file
//   - MemoryLogger keeps a bounded ring of recent events for the audit endpoint
//   - MultiLogger writes each event to every logger it wraps
//
// Handlers serves the MemoryLogger ring at GET /audit/events, always scoped to
// the caller's tenant.
//
// Usage:
//
//	logger := audit.NewMultiLogger(audit.NewStreamLogger(nil), audit.NewMemoryLogger(0))
//	ev := audit.NewEvent(ctx, audit.EventTypeDataDelete, audit.EventStatusSuccess)
//	ev.Kind, ev.ResourceID = "properties", id
//	_ = logger.Log(ctx, ev)
package audit
