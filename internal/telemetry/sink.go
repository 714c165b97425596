package telemetry

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
)

// JSONLLogger is an append-only newline-delimited-JSON sink (ground:
// the teacher's append-only bounded audit.AuditTrail, adapted from an
// in-memory ring to a file-appending Logger since durable telemetry
// persistence is explicitly out of scope — this is a concrete,
// testable port implementation, not a storage engine).
type JSONLLogger struct {
	mu  sync.Mutex
	w   io.Writer
	log *slog.Logger
}

// NewJSONLLogger wraps w (typically an *os.File opened for append) as
// a Logger. log receives a Warn on write failures; a nil log discards
// them silently.
func NewJSONLLogger(w io.Writer, log *slog.Logger) *JSONLLogger {
	return &JSONLLogger{w: w, log: log}
}

// LogEvent writes event as one JSON line. A write failure is logged,
// not propagated — a failing telemetry sink must never block replay
// (ground: observability.EventLogger.LogEvent's non-blocking contract).
func (l *JSONLLogger) LogEvent(event Event) {
	b, err := json.Marshal(event)
	if err != nil {
		l.warn("telemetry event marshal failed", err)
		return
	}
	b = append(b, '\n')

	l.mu.Lock()
	_, err = l.w.Write(b)
	l.mu.Unlock()
	if err != nil {
		l.warn("telemetry event write failed", err)
	}
}

func (l *JSONLLogger) warn(msg string, err error) {
	if l.log != nil {
		l.log.Warn(msg, "error", err)
	}
}
