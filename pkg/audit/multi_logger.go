package audit

import (
	"context"
	"errors"
	"fmt"
)

// MultiLogger writes every event to each of its loggers in order. The server
// pairs the durable stream with the MemoryLogger behind the audit endpoint.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger that fans out to loggers. Nil entries are skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

// Log hands the event to every logger; one failing sink does not starve the others
func (m *MultiLogger) Log(ctx context.Context, event *Event) error {
	var errs []error
	for i, l := range m.loggers {
		if err := l.Log(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("audit sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every logger
func (m *MultiLogger) Close() error {
	var errs []error
	for i, l := range m.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close audit sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
