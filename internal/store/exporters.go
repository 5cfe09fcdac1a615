package store

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// ExpvarMetricsRecorder publishes aggregate timing and outcome counters via
// expvar for deployments that prefer process-local metrics. The recorder
// maintains duration totals in milliseconds per operation plus per-outcome
// counters.
type ExpvarMetricsRecorder struct {
	name            string
	mu              sync.Mutex
	durations       map[string]float64
	outcomes        map[string]map[string]int64
	persistFailures map[string]int64
}

// ExpvarMetricsSnapshot captures a read-only view of the recorded metrics.
type ExpvarMetricsSnapshot struct {
	DurationsMS     map[string]float64          `json:"durations_ms_total"`
	Outcomes        map[string]map[string]int64 `json:"outcomes_total"`
	PersistFailures map[string]int64            `json:"persist_failures_total"`
	RecordedAt      time.Time                   `json:"recorded_at"`
}

// NewExpvarMetricsRecorder constructs an expvar-backed recorder and publishes
// it under the supplied name. When name is empty, a unique identifier is
// generated.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		id := atomic.AddUint64(&expvarSeq, 1)
		name = fmt.Sprintf("compliance_store_metrics_%d", id)
	}
	rec := &ExpvarMetricsRecorder{
		name:            name,
		durations:       make(map[string]float64),
		outcomes:        make(map[string]map[string]int64),
		persistFailures: make(map[string]int64),
	}
	expvar.Publish(name, expvar.Func(func() any {
		return rec.Snapshot()
	}))
	return rec
}

// Name returns the expvar export name associated with the recorder.
func (r *ExpvarMetricsRecorder) Name() string {
	return r.name
}

// Snapshot returns an immutable copy of the aggregated metrics.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	durations := make(map[string]float64, len(r.durations))
	for op, total := range r.durations {
		durations[op] = total
	}

	outcomes := make(map[string]map[string]int64, len(r.outcomes))
	for op, counts := range r.outcomes {
		cpy := make(map[string]int64, len(counts))
		for outcome, count := range counts {
			cpy[outcome] = count
		}
		outcomes[op] = cpy
	}

	failures := make(map[string]int64, len(r.persistFailures))
	for op, count := range r.persistFailures {
		failures[op] = count
	}

	return ExpvarMetricsSnapshot{
		DurationsMS:     durations,
		Outcomes:        outcomes,
		PersistFailures: failures,
		RecordedAt:      time.Now().UTC(),
	}
}

// Observe records a store operation outcome.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation, outcome string, duration time.Duration) {
	if operation == "" {
		return
	}
	ms := float64(duration) / float64(time.Millisecond)

	r.mu.Lock()
	r.durations[operation] += ms
	if _, ok := r.outcomes[operation]; !ok {
		r.outcomes[operation] = make(map[string]int64, 3)
	}
	r.outcomes[operation][outcome]++
	r.mu.Unlock()
}

// PersistFailure counts a failed snapshot write for the operation.
func (r *ExpvarMetricsRecorder) PersistFailure(operation string) {
	r.mu.Lock()
	r.persistFailures[operation]++
	r.mu.Unlock()
}

// JSONTraceEntry represents a serialized trace span emitted by JSONTraceTracer.
type JSONTraceEntry struct {
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTraceTracer serializes spans to a writer and retains them for inspection.
type JSONTraceTracer struct {
	mu      sync.Mutex
	entries []JSONTraceEntry
	enc     *json.Encoder
}

// NewJSONTracer constructs a tracer that writes spans as JSON lines to the
// writer. The tracer retains all encoded spans for later inspection via
// Entries().
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	var enc *json.Encoder
	if w != nil {
		enc = json.NewEncoder(w)
	}
	return &JSONTraceTracer{enc: enc}
}

// Entries returns a copy of all recorded spans.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]JSONTraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Start implements the Tracer interface.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	span := &jsonTraceSpan{
		tracer:    t,
		operation: operation,
		started:   time.Now().UTC(),
	}
	return ctx, span
}

type jsonTraceSpan struct {
	tracer    *JSONTraceTracer
	operation string
	started   time.Time
}

func (s *jsonTraceSpan) End(err error) {
	status := "success"
	var errMsg string
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}
	ended := time.Now().UTC()
	entry := JSONTraceEntry{
		Operation:  s.operation,
		Status:     status,
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		Error:      errMsg,
		StartedAt:  s.started,
		EndedAt:    ended,
	}

	s.tracer.mu.Lock()
	s.tracer.entries = append(s.tracer.entries, entry)
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(entry)
	}
	s.tracer.mu.Unlock()
}
