package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// StreamLogger writes audit events as JSON lines through a dedicated logrus logger
type StreamLogger struct {
	log    *logrus.Logger
	closer io.Closer
}

// NewStreamLogger creates an audit logger that writes to out.
// A nil out writes to stdout.
func NewStreamLogger(out io.Writer) *StreamLogger {
	if out == nil {
		out = os.Stdout
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyMsg: "message",
		},
	})

	return &StreamLogger{log: l}
}

// NewFileLogger creates an audit logger appending to the file at path
func NewFileLogger(path string) (*StreamLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	s := NewStreamLogger(file)
	s.closer = file
	return s, nil
}

// Log writes the event
func (s *StreamLogger) Log(ctx context.Context, event *Event) error {
	fields := logrus.Fields{
		"audit":   true,
		"action":  string(event.Action),
		"outcome": string(event.Outcome),
	}
	if event.ActorID != "" {
		fields["actor_id"] = event.ActorID
	}
	if event.TenantID != "" {
		fields["tenant_id"] = event.TenantID
	}
	if event.Role != "" {
		fields["role"] = event.Role
	}
	if event.Kind != "" {
		fields["kind"] = event.Kind
	}
	if event.ResourceID != "" {
		fields["resource_id"] = event.ResourceID
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.Reason != "" {
		fields["reason"] = event.Reason
	}
	if len(event.Changes) > 0 {
		fields["changes"] = event.Changes
	}
	for k, v := range event.Metadata {
		fields["meta_"+k] = v
	}

	entry := s.log.WithFields(fields).WithTime(event.Timestamp)
	if event.Outcome == EventStatusSuccess {
		entry.Info("audit event")
	} else {
		entry.Warn("audit event")
	}
	return nil
}

// Close closes the underlying file, if any
func (s *StreamLogger) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
