package store

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Logger receives structured events from the store. Implementations must be
// safe for concurrent use.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// MetricsRecorder aggregates operation outcomes. Outcome is one of
// "success", "noop", or "error".
type MetricsRecorder interface {
	Observe(ctx context.Context, operation, outcome string, duration time.Duration)
	PersistFailure(operation string)
}

// Tracer starts spans around store operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan finishes a started span.
type TraceSpan interface {
	End(err error)
}

// Operation outcomes reported to MetricsRecorder.
const (
	OutcomeSuccess = "success"
	OutcomeNoop    = "noop"
	OutcomeError   = "error"
)

type noopLogger struct{}

func (noopLogger) Debug(string, map[string]any) {}
func (noopLogger) Info(string, map[string]any)  {}
func (noopLogger) Warn(string, map[string]any)  {}
func (noopLogger) Error(string, map[string]any) {}

// NoopLogger returns a logger that discards everything.
func NoopLogger() Logger { return noopLogger{} }

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, string, time.Duration) {}
func (noopMetrics) PersistFailure(string)                                  {}

// NoopMetrics returns a recorder that discards everything.
func NoopMetrics() MetricsRecorder { return noopMetrics{} }

type noopTracer struct{}

type noopSpan struct{}

func (noopSpan) End(error) {}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

// NoopTracer returns a tracer that records nothing.
func NoopTracer() Tracer { return noopTracer{} }

// JSONLogger writes one JSON object per event to the supplied writer.
type JSONLogger struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLogger constructs a line-oriented JSON logger.
func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{enc: json.NewEncoder(w)}
}

func (l *JSONLogger) log(level, msg string, fields map[string]any) {
	entry := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		entry[k] = v
	}
	entry["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level
	entry["msg"] = msg
	l.mu.Lock()
	_ = l.enc.Encode(entry)
	l.mu.Unlock()
}

// Debug implements Logger.
func (l *JSONLogger) Debug(msg string, fields map[string]any) { l.log("debug", msg, fields) }

// Info implements Logger.
func (l *JSONLogger) Info(msg string, fields map[string]any) { l.log("info", msg, fields) }

// Warn implements Logger.
func (l *JSONLogger) Warn(msg string, fields map[string]any) { l.log("warn", msg, fields) }

// Error implements Logger.
func (l *JSONLogger) Error(msg string, fields map[string]any) { l.log("error", msg, fields) }
