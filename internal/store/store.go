// Package store implements the compliance collection: a mutex-guarded
// in-memory control set hydrated from a kv snapshot, persisted in full after
// every applied mutation, and queried through deep-cloning read methods.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"compliancecore/internal/kv"
	"compliancecore/pkg/domain"
)

// Stats summarizes the collection by status. Counts always sum to Total.
type Stats struct {
	Total        int `json:"total"`
	Compliant    int `json:"compliant"`
	Partial      int `json:"partial"`
	NonCompliant int `json:"nonCompliant"`
	NotAssessed  int `json:"notAssessed"`
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithClock injects the time source used to stamp LastUpdated.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) { s.nowFn = fn }
}

// WithIDGenerator injects the generator for store-assigned identifiers.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithRulesEngine replaces the default advisory engine. A nil engine
// disables rule evaluation.
func WithRulesEngine(engine *domain.RulesEngine) Option {
	return func(s *Store) { s.engine = engine }
}

// WithLogger injects the structured logger.
func WithLogger(l Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics injects the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Store) { s.metrics = m }
}

// WithTracer injects the operation tracer.
func WithTracer(t Tracer) Option {
	return func(s *Store) { s.tracer = t }
}

// Store holds the control collection. Construct explicit instances with New;
// the package keeps no global state. Collection order is part of the
// observable behavior (family grouping follows it), so controls live in an
// ordered slice with an id index alongside.
type Store struct {
	mu      sync.Mutex
	kv      kv.Store
	engine  *domain.RulesEngine
	nowFn   func() time.Time
	newID   func() string
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer

	loaded    bool
	controls  []domain.Control
	index     map[string]int
	lastStamp time.Time
}

// New constructs a store over the given persistence adapter. The collection
// is hydrated lazily on first use, or eagerly via Load.
func New(persistence kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:      persistence,
		engine:  DefaultRulesEngine(),
		nowFn:   func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
		logger:  NoopLogger(),
		metrics: NoopMetrics(),
		tracer:  NoopTracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load hydrates the collection from the persisted snapshot, falling back to
// the seed catalog when no usable snapshot exists. Calling Load more than
// once is a no-op.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	payload, err := s.kv.Load(ctx, kv.KeyControls)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		s.logger.Info("no snapshot found, seeding catalog", map[string]any{"key": kv.KeyControls})
		s.resetToSeed()
	case err != nil:
		return fmt.Errorf("load snapshot: %w", err)
	default:
		var controls []domain.Control
		if uErr := json.Unmarshal(payload, &controls); uErr != nil {
			s.logger.Warn("snapshot unreadable, seeding catalog", map[string]any{"error": uErr.Error()})
			s.resetToSeed()
			break
		}
		if !snapshotUsable(controls) {
			s.logger.Warn("snapshot shape mismatch, seeding catalog", map[string]any{"controls": len(controls)})
			s.resetToSeed()
			break
		}
		s.controls = controls
		s.rebuildIndex()
	}
	for _, c := range s.controls {
		if c.LastUpdated.After(s.lastStamp) {
			s.lastStamp = c.LastUpdated
		}
	}
	s.loaded = true
	return nil
}

func snapshotUsable(controls []domain.Control) bool {
	if len(controls) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(controls))
	for _, c := range controls {
		if c.ID == "" || c.ControlID == "" {
			return false
		}
		if !c.Status.Valid() || !c.RiskRating.Valid() {
			return false
		}
		if _, dup := seen[c.ID]; dup {
			return false
		}
		seen[c.ID] = struct{}{}
	}
	return true
}

func (s *Store) resetToSeed() {
	s.controls = seedControls()
	s.rebuildIndex()
}

func (s *Store) rebuildIndex() {
	s.index = make(map[string]int, len(s.controls))
	for i, c := range s.controls {
		s.index[c.ID] = i
	}
}

// stampLocked returns the next LastUpdated value. Stamps never move
// backwards, even when the injected clock does.
func (s *Store) stampLocked() time.Time {
	now := s.nowFn()
	if now.Before(s.lastStamp) {
		now = s.lastStamp
	}
	s.lastStamp = now
	return now
}

func (s *Store) persistLocked(ctx context.Context) error {
	payload, err := json.Marshal(s.controls)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.kv.Save(ctx, kv.KeyControls, payload); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// collectionView adapts a control slice to the rules engine's read surface.
type collectionView struct {
	controls []domain.Control
}

func (v collectionView) ListControls() []domain.Control {
	return domain.CloneControls(v.controls)
}

func (v collectionView) FindControl(id string) (domain.Control, bool) {
	for _, c := range v.controls {
		if c.ID == id {
			return c.Clone(), true
		}
	}
	return domain.Control{}, false
}

// update applies mutate to the identified control, stamps it, evaluates
// advisories, and persists the full collection. An unknown id is a silent
// no-op: nothing changes, nothing persists, and no error is returned.
func (s *Store) update(ctx context.Context, op, id string, mutate func(c *domain.Control, now time.Time)) (domain.Control, domain.Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	var retErr error
	defer func() { span.End(retErr) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		retErr = err
		s.metrics.Observe(ctx, op, OutcomeError, time.Since(start))
		return domain.Control{}, domain.Result{}, err
	}

	idx, ok := s.index[id]
	if !ok {
		s.logger.Debug("mutation for unknown control ignored", map[string]any{"operation": op, "id": id})
		s.metrics.Observe(ctx, op, OutcomeNoop, time.Since(start))
		return domain.Control{}, domain.Result{}, nil
	}

	before := s.controls[idx].Clone()
	updated := s.controls[idx].Clone()
	now := s.stampLocked()
	mutate(&updated, now)
	updated.LastUpdated = now

	change := domain.Change{
		Entity: domain.EntityControl,
		Action: domain.ActionUpdate,
		Before: before,
		After:  updated.Clone(),
	}

	var result domain.Result
	if s.engine != nil {
		candidate := domain.CloneControls(s.controls)
		candidate[idx] = updated.Clone()
		res, err := s.engine.Evaluate(ctx, collectionView{controls: candidate}, []domain.Change{change})
		if err != nil {
			retErr = fmt.Errorf("evaluate rules: %w", err)
			s.metrics.Observe(ctx, op, OutcomeError, time.Since(start))
			return domain.Control{}, domain.Result{}, retErr
		}
		result = res
		if res.HasBlocking() {
			retErr = domain.RuleViolationError{Result: res}
			s.metrics.Observe(ctx, op, OutcomeError, time.Since(start))
			return domain.Control{}, res, retErr
		}
		s.logViolations(op, res)
	}

	s.controls[idx] = updated
	if err := s.persistLocked(ctx); err != nil {
		// The in-memory update stands; the caller learns persistence is behind.
		retErr = err
		s.logger.Error("snapshot write failed", map[string]any{"operation": op, "id": id, "error": err.Error()})
		s.metrics.PersistFailure(op)
		s.metrics.Observe(ctx, op, OutcomeError, time.Since(start))
		return updated.Clone(), result, err
	}

	s.metrics.Observe(ctx, op, OutcomeSuccess, time.Since(start))
	return updated.Clone(), result, nil
}

func (s *Store) logViolations(op string, res domain.Result) {
	for _, v := range res.Violations {
		fields := map[string]any{
			"operation": op,
			"rule":      v.Rule,
			"controlId": v.ControlID,
			"message":   v.Message,
		}
		switch v.Severity {
		case domain.SeverityWarn:
			s.logger.Warn("advisory finding", fields)
		default:
			s.logger.Info("advisory finding", fields)
		}
	}
}

// SetStatus updates the assessed status of a control.
func (s *Store) SetStatus(ctx context.Context, id string, status domain.Status) (domain.Control, domain.Result, error) {
	return s.update(ctx, "set_status", id, func(c *domain.Control, _ time.Time) {
		c.Status = status
	})
}

// SetNotes replaces the assessor notes of a control.
func (s *Store) SetNotes(ctx context.Context, id, notes string) (domain.Control, domain.Result, error) {
	return s.update(ctx, "set_notes", id, func(c *domain.Control, _ time.Time) {
		c.Notes = notes
	})
}

// SetRiskRating updates the residual risk classification of a control.
func (s *Store) SetRiskRating(ctx context.Context, id string, rating domain.RiskLevel) (domain.Control, domain.Result, error) {
	return s.update(ctx, "set_risk_rating", id, func(c *domain.Control, _ time.Time) {
		c.RiskRating = rating
	})
}

// SetMitigationPlan replaces the mitigation plan of a control.
func (s *Store) SetMitigationPlan(ctx context.Context, id, plan string) (domain.Control, domain.Result, error) {
	return s.update(ctx, "set_mitigation_plan", id, func(c *domain.Control, _ time.Time) {
		c.MitigationPlan = plan
	})
}

// SetAssignedTo assigns or clears the owner of a control. A nil assignee
// clears the assignment.
func (s *Store) SetAssignedTo(ctx context.Context, id string, assignee *string) (domain.Control, domain.Result, error) {
	return s.update(ctx, "set_assigned_to", id, func(c *domain.Control, _ time.Time) {
		if assignee == nil {
			c.AssignedTo = nil
			return
		}
		v := *assignee
		c.AssignedTo = &v
	})
}

// AddEvidence appends an evidence record to a control. The store assigns the
// evidence id and the add date.
func (s *Store) AddEvidence(ctx context.Context, controlID string, input domain.EvidenceInput) (domain.Control, domain.Result, error) {
	evidenceID := s.newID()
	return s.update(ctx, "add_evidence", controlID, func(c *domain.Control, now time.Time) {
		c.Evidence = append(c.Evidence, domain.Evidence{
			ID:        evidenceID,
			Name:      input.Name,
			Type:      input.Type,
			URL:       input.URL,
			DateAdded: now,
		})
	})
}

// RemoveEvidence drops the identified evidence record from a control. An
// unknown evidence id leaves the evidence list untouched but still stamps
// the control.
func (s *Store) RemoveEvidence(ctx context.Context, controlID, evidenceID string) (domain.Control, domain.Result, error) {
	return s.update(ctx, "remove_evidence", controlID, func(c *domain.Control, _ time.Time) {
		kept := c.Evidence[:0]
		for _, e := range c.Evidence {
			if e.ID != evidenceID {
				kept = append(kept, e)
			}
		}
		c.Evidence = kept
	})
}

// GetControl returns a deep copy of the identified control.
func (s *Store) GetControl(ctx context.Context, id string) (domain.Control, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return domain.Control{}, false, err
	}
	idx, ok := s.index[id]
	if !ok {
		return domain.Control{}, false, nil
	}
	return s.controls[idx].Clone(), true, nil
}

// ListControls returns deep copies of all controls in collection order.
func (s *Store) ListControls(ctx context.Context) ([]domain.Control, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return nil, err
	}
	return domain.CloneControls(s.controls), nil
}

// ControlsByFamily returns the controls of one family in collection order.
func (s *Store) ControlsByFamily(ctx context.Context, family string) ([]domain.Control, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return nil, err
	}
	var out []domain.Control
	for _, c := range s.controls {
		if c.Family == family {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

// Families returns the distinct control families in first-appearance order.
func (s *Store) Families(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(s.controls))
	var out []string
	for _, c := range s.controls {
		if _, ok := seen[c.Family]; ok {
			continue
		}
		seen[c.Family] = struct{}{}
		out = append(out, c.Family)
	}
	return out, nil
}

// Stats returns the status breakdown of the full collection.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return Stats{}, err
	}
	var stats Stats
	for _, c := range s.controls {
		stats.Total++
		switch c.Status {
		case domain.StatusCompliant:
			stats.Compliant++
		case domain.StatusPartial:
			stats.Partial++
		case domain.StatusNonCompliant:
			stats.NonCompliant++
		case domain.StatusNotAssessed:
			stats.NotAssessed++
		}
	}
	return stats, nil
}

// HighRiskControls returns controls rated high or critical, in collection
// order.
func (s *Store) HighRiskControls(ctx context.Context) ([]domain.Control, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return nil, err
	}
	var out []domain.Control
	for _, c := range s.controls {
		if c.RiskRating.Elevated() {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

// FilterControls returns controls matching the given families and statuses.
// An empty filter dimension matches everything.
func (s *Store) FilterControls(ctx context.Context, families []string, statuses []domain.Status) ([]domain.Control, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return nil, err
	}
	familySet := make(map[string]struct{}, len(families))
	for _, f := range families {
		familySet[f] = struct{}{}
	}
	statusSet := make(map[domain.Status]struct{}, len(statuses))
	for _, st := range statuses {
		statusSet[st] = struct{}{}
	}
	var out []domain.Control
	for _, c := range s.controls {
		if len(familySet) > 0 {
			if _, ok := familySet[c.Family]; !ok {
				continue
			}
		}
		if len(statusSet) > 0 {
			if _, ok := statusSet[c.Status]; !ok {
				continue
			}
		}
		out = append(out, c.Clone())
	}
	return out, nil
}
