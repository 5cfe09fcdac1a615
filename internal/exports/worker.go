// Package exports runs compliance report exports asynchronously. A request
// names a control filter and output formats; the worker renders the report
// projection and stores one artifact per format in an object store.
package exports

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"compliancecore/pkg/domain"
	"compliancecore/pkg/report"
)

// Format identifies a rendered report output.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

var formatContentTypes = map[Format]string{
	FormatMarkdown: "text/markdown",
	FormatHTML:     "text/html",
	FormatCSV:      "text/csv",
	FormatJSON:     "application/json",
}

var formatExtensions = map[Format]string{
	FormatMarkdown: "md",
	FormatHTML:     "html",
	FormatCSV:      "csv",
	FormatJSON:     "json",
}

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportArtifact captures a stored report artifact.
type ExportArtifact struct {
	ID          string         `json:"id"`
	Format      Format         `json:"format"`
	ContentType string         `json:"content_type"`
	SizeBytes   int64          `json:"size_bytes"`
	URL         string         `json:"url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ExportRecord tracks an export request and resulting artifacts.
type ExportRecord struct {
	ID          string           `json:"id"`
	Families    []string         `json:"families,omitempty"`
	Statuses    []domain.Status  `json:"statuses,omitempty"`
	Formats     []Format         `json:"formats"`
	Status      ExportStatus     `json:"status"`
	Error       string           `json:"error,omitempty"`
	Artifacts   []ExportArtifact `json:"artifacts,omitempty"`
	RequestedBy string           `json:"requested_by"`
	Reason      string           `json:"reason,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

func (r ExportRecord) copy() ExportRecord {
	cp := r
	cp.Families = append([]string(nil), r.Families...)
	cp.Statuses = append([]domain.Status(nil), r.Statuses...)
	cp.Formats = append([]Format(nil), r.Formats...)
	cp.Artifacts = append([]ExportArtifact(nil), r.Artifacts...)
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}
	return cp
}

// ExportInput represents an enqueue request for the worker.
type ExportInput struct {
	Families    []string
	Statuses    []domain.Status
	Formats     []Format
	RequestedBy string
	Reason      string
}

// ControlSource supplies the controls an export renders. The compliance
// store satisfies this; exports only read.
type ControlSource interface {
	FilterControls(ctx context.Context, families []string, statuses []domain.Status) ([]domain.Control, error)
}

// ObjectStore persists export artifacts.
type ObjectStore interface {
	// Put stores a new immutable object. Implementations SHOULD fail if key exists.
	Put(ctx context.Context, key string, payload []byte, contentType string, metadata map[string]any) (ExportArtifact, error)
	// Get returns the artifact metadata and full payload bytes.
	Get(ctx context.Context, key string) (ExportArtifact, []byte, error)
	// Delete removes the object; returns true if it existed. Idempotent.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns artifacts whose keys start with the provided prefix. Empty prefix lists all.
	List(ctx context.Context, prefix string) ([]ExportArtifact, error)
}

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures audit trail metadata for exports.
type AuditEntry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Actor      string         `json:"actor"`
	Status     ExportStatus   `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Worker executes report exports asynchronously.
type Worker struct {
	source ControlSource
	store  ObjectStore
	audit  AuditLogger

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	nowFn func() time.Time
	newID func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type exportTask struct {
	id    string
	input ExportInput
}

// NewWorker constructs an export worker over the control source.
func NewWorker(source ControlSource, store ObjectStore, audit AuditLogger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		source: source,
		store:  store,
		audit:  audit,
		queue:  make(chan exportTask, 32),
		jobs:   make(map[string]*ExportRecord),
		nowFn:  func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

// Enqueue schedules an export job and returns the queued record.
func (w *Worker) Enqueue(ctx context.Context, input ExportInput) (ExportRecord, error) {
	if w.source == nil {
		return ExportRecord{}, fmt.Errorf("control source not configured")
	}

	formats := input.Formats
	if len(formats) == 0 {
		formats = []Format{FormatJSON, FormatCSV}
	}
	uniqFormats := make([]Format, 0, len(formats))
	seen := make(map[Format]struct{})
	for _, format := range formats {
		if _, duplicate := seen[format]; duplicate {
			continue
		}
		if _, ok := formatContentTypes[format]; !ok {
			return ExportRecord{}, fmt.Errorf("unsupported export format %s", format)
		}
		uniqFormats = append(uniqFormats, format)
		seen[format] = struct{}{}
	}
	for _, st := range input.Statuses {
		if !st.Valid() {
			return ExportRecord{}, fmt.Errorf("unknown status filter %q", st)
		}
	}

	id := w.newID()
	now := w.nowFn()
	record := ExportRecord{
		ID:          id,
		Families:    append([]string(nil), input.Families...),
		Statuses:    append([]domain.Status(nil), input.Statuses...),
		Formats:     uniqFormats,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	queuedSnapshot := record.copy()
	w.mu.Unlock()

	w.recordAudit(ctx, id, ExportStatusQueued, nil)

	select {
	case w.queue <- exportTask{id: id, input: input}:
	default:
		// The queued entry above already named this job; close its trail
		// before forgetting it.
		w.recordAudit(ctx, id, ExportStatusFailed, map[string]any{"error": "export queue full"})
		w.mu.Lock()
		delete(w.jobs, id)
		w.mu.Unlock()
		return ExportRecord{}, fmt.Errorf("export queue full")
	}

	return queuedSnapshot, nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	record, ok := w.jobs[id]
	if !ok {
		w.mu.RUnlock()
		return ExportRecord{}, false
	}
	snapshot := record.copy()
	w.mu.RUnlock()
	return snapshot, true
}

// ListExports returns snapshots of all known export records.
func (w *Worker) ListExports() []ExportRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]ExportRecord, 0, len(w.jobs))
	for _, record := range w.jobs {
		out = append(out, record.copy())
	}
	return out
}

func (w *Worker) process(task exportTask) {
	record, ok := w.GetExport(task.id)
	if !ok {
		return
	}

	w.updateStatus(task.id, ExportStatusRunning, "")

	controls, err := w.source.FilterControls(w.ctx, task.input.Families, task.input.Statuses)
	if err != nil {
		w.fail(task.id, fmt.Sprintf("filter controls: %v", err))
		return
	}
	doc := report.Build(controls, w.nowFn())

	artifacts := make([]ExportArtifact, 0, len(record.Formats))
	for _, format := range record.Formats {
		payload, err := materialize(format, doc)
		if err != nil {
			w.fail(task.id, err.Error())
			return
		}
		artifact := ExportArtifact{
			ID:          w.newID(),
			Format:      format,
			ContentType: formatContentTypes[format],
			SizeBytes:   int64(len(payload)),
			Metadata:    map[string]any{"controls": doc.Stats.Total},
			CreatedAt:   w.nowFn(),
		}
		if w.store != nil {
			key := fmt.Sprintf("exports/%s/%s.%s", task.id, artifact.ID, formatExtensions[format])
			stored, err := w.store.Put(w.ctx, key, payload, artifact.ContentType, artifact.Metadata)
			if err != nil {
				w.fail(task.id, fmt.Sprintf("store artifact: %v", err))
				return
			}
			stored.Format = format
			if stored.ContentType == "" {
				stored.ContentType = artifact.ContentType
			}
			if stored.SizeBytes == 0 {
				stored.SizeBytes = artifact.SizeBytes
			}
			if stored.CreatedAt.IsZero() {
				stored.CreatedAt = artifact.CreatedAt
			}
			artifacts = append(artifacts, stored)
		} else {
			artifacts = append(artifacts, artifact)
		}
	}

	w.complete(task.id, artifacts)
}

func materialize(format Format, doc report.Document) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return report.RenderMarkdown(doc), nil
	case FormatHTML:
		return report.RenderHTML(doc), nil
	case FormatCSV:
		return report.RenderCSV(doc)
	case FormatJSON:
		return report.RenderJSON(doc)
	default:
		return nil, fmt.Errorf("unsupported export format %s", format)
	}
}

func (w *Worker) updateStatus(id string, status ExportStatus, message string) {
	now := w.nowFn()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = now
	}
	w.mu.Unlock()
	var meta map[string]any
	if message != "" {
		meta = map[string]any{"note": message}
	}
	w.recordAudit(w.ctx, id, status, meta)
}

func (w *Worker) complete(id string, artifacts []ExportArtifact) {
	now := w.nowFn()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, id, ExportStatusSucceeded, map[string]any{"artifacts": len(artifacts)})
}

func (w *Worker) fail(id, reason string) {
	now := w.nowFn()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, id, ExportStatusFailed, map[string]any{"error": reason})
}

func (w *Worker) recordAudit(ctx context.Context, id string, status ExportStatus, metadata map[string]any) {
	if w.audit == nil {
		return
	}
	var actor, reason string
	w.mu.RLock()
	if record, ok := w.jobs[id]; ok {
		actor = record.RequestedBy
		reason = record.Reason
	}
	w.mu.RUnlock()
	w.audit.Record(ctx, AuditEntry{
		ID:         w.newID(),
		Action:     "report_export",
		Actor:      actor,
		Status:     status,
		Reason:     reason,
		Metadata:   metadata,
		OccurredAt: w.nowFn(),
	})
}
