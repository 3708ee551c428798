package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	return entry
}

func TestSlogLogger_Log(t *testing.T) {
	tests := []struct {
		name          string
		event         Event
		wantEventType string
		wantAnalyzer  string
		wantSuccess   bool
		wantHasError  bool
	}{
		{
			name: "faces detected",
			event: Event{
				EventType:  EventFacesDetected,
				Analyzer:   "onnx",
				Success:    true,
				FacesCount: 3,
				Metadata: map[string]string{
					"extract_embedding": "true",
				},
			},
			wantEventType: string(EventFacesDetected),
			wantAnalyzer:  "onnx",
			wantSuccess:   true,
		},
		{
			name: "detection failed",
			event: Event{
				EventType: EventDetectionFailed,
				Analyzer:  "remote",
				Success:   false,
				Error:     "invalid image format",
			},
			wantEventType: string(EventDetectionFailed),
			wantAnalyzer:  "remote",
			wantSuccess:   false,
			wantHasError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			auditLogger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

			err := auditLogger.Log(context.Background(), tt.event)
			require.NoError(t, err)

			entry := decodeLine(t, &buf)
			assert.Equal(t, "audit_event", entry["msg"])
			assert.Equal(t, "audit", entry["component"])
			assert.Equal(t, tt.wantEventType, entry["event_type"])
			assert.Equal(t, tt.wantAnalyzer, entry["analyzer"])
			assert.Equal(t, tt.wantSuccess, entry["success"])
			assert.Equal(t, float64(tt.event.FacesCount), entry["faces_count"])

			if tt.wantHasError {
				assert.Contains(t, entry["event_data"], tt.event.Error)
			}
		})
	}
}

func TestSlogLogger_Log_GeneratesIDAndTimestamp(t *testing.T) {
	var buf bytes.Buffer
	auditLogger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := auditLogger.Log(context.Background(), Event{
		EventType: EventFacesDetected,
		Analyzer:  "mock",
		Success:   true,
	})
	require.NoError(t, err)

	entry := decodeLine(t, &buf)
	eventID, ok := entry["event_id"].(string)
	require.True(t, ok)

	_, err = uuid.Parse(eventID)
	assert.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal([]byte(entry["event_data"].(string)), &event))
	assert.False(t, event.Timestamp.IsZero())
}

func TestSlogLogger_Log_UsesProvidedIDAndTimestamp(t *testing.T) {
	var buf bytes.Buffer
	auditLogger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	expectedID := uuid.New()

	err := auditLogger.Log(context.Background(), Event{
		ID:        expectedID,
		Timestamp: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		EventType: EventFacesDetected,
		Analyzer:  "onnx",
		Success:   true,
	})
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, expectedID.String())
	assert.Contains(t, output, "2024-01-15T10:30:00Z")
}

func TestSlogLogger_Log_RequestIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	auditLogger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx := WithRequestID(context.Background(), "req-42")
	require.NoError(t, auditLogger.Log(ctx, Event{EventType: EventFacesDetected, Analyzer: "onnx", Success: true}))

	entry := decodeLine(t, &buf)
	assert.Equal(t, "req-42", entry["request_id"])
}

func TestRequestID(t *testing.T) {
	assert.Equal(t, "", RequestID(context.Background()))
	assert.Equal(t, "abc", RequestID(WithRequestID(context.Background(), "abc")))
}

func TestNoOpLogger_Log(t *testing.T) {
	logger := &NoOpLogger{}

	for i := 0; i < 100; i++ {
		err := logger.Log(context.Background(), Event{
			EventType: EventFacesDetected,
			Analyzer:  "onnx",
			Success:   true,
		})
		assert.NoError(t, err)
	}
}

func TestLoggerInterface_Compliance(t *testing.T) {
	var _ Logger = (*SlogLogger)(nil)
	var _ Logger = (*NoOpLogger)(nil)
}

func TestEvent_JSONOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Event{
		EventType: EventFacesDetected,
		Analyzer:  "onnx",
		Success:   true,
	})
	require.NoError(t, err)

	jsonStr := string(data)
	assert.NotContains(t, jsonStr, "request_id")
	assert.NotContains(t, jsonStr, "\"error\"")
	assert.NotContains(t, jsonStr, "metadata")
	assert.Contains(t, jsonStr, "faces_count")
}
