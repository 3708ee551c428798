package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of detection event
type EventType string

const (
	EventFacesDetected   EventType = "FACES_DETECTED"
	EventDetectionFailed EventType = "DETECTION_FAILED"
)

// Event is one detection request as seen by the service
type Event struct {
	ID          uuid.UUID         `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	RequestID   string            `json:"request_id,omitempty"`
	EventType   EventType         `json:"event_type"`
	Analyzer    string            `json:"analyzer"`
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	FacesCount  int               `json:"faces_count"`
	ImageBytes  int               `json:"image_bytes"`
	ProcessTime time.Duration     `json:"process_time_ns"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Logger defines the interface for detection event logging
type Logger interface {
	Log(ctx context.Context, event Event) error
}

type requestIDKey struct{}

// WithRequestID attaches the HTTP request id to ctx so events can carry it
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID, or ""
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// SlogLogger implements Logger using slog
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a new audit logger using slog
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With("component", "audit"),
	}
}

// Log records a detection event
func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = RequestID(ctx)
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to marshal audit event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(event.EventType)),
		)
		return err
	}

	l.logger.InfoContext(ctx, "audit_event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.String("request_id", event.RequestID),
		slog.String("analyzer", event.Analyzer),
		slog.Bool("success", event.Success),
		slog.Int("faces_count", event.FacesCount),
		slog.String("event_data", string(eventJSON)),
	)

	return nil
}

// NoOpLogger is a logger that does nothing (for testing or when audit is disabled)
type NoOpLogger struct{}

// Log does nothing and returns nil
func (l *NoOpLogger) Log(_ context.Context, _ Event) error {
	return nil
}
