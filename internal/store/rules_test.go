package store

import (
	"context"
	"errors"
	"testing"

	"compliancecore/internal/kv"
	"compliancecore/pkg/domain"
)

func findViolation(res domain.Result, rule string) (domain.Violation, bool) {
	for _, v := range res.Violations {
		if v.Rule == rule {
			return v, true
		}
	}
	return domain.Violation{}, false
}

func TestMissingMitigationPlanAdvisory(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	// Control 10 (SC-7) seeds with critical risk and no plan.
	updated, res, err := s.SetStatus(ctx, "10", domain.StatusNonCompliant)
	if err != nil {
		t.Fatalf("advisories must never fail the mutation: %v", err)
	}
	if updated.Status != domain.StatusNonCompliant {
		t.Fatalf("mutation must apply despite findings: %+v", updated)
	}
	v, ok := findViolation(res, "missing_mitigation_plan")
	if !ok {
		t.Fatalf("expected missing_mitigation_plan finding, got %+v", res)
	}
	if v.Severity != domain.SeverityWarn || v.ControlID != "10" {
		t.Fatalf("unexpected finding: %+v", v)
	}

	if _, _, err := s.SetMitigationPlan(ctx, "10", "segment the network"); err != nil {
		t.Fatalf("set plan: %v", err)
	}
	_, res, err = s.SetStatus(ctx, "10", domain.StatusPartial)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if _, ok := findViolation(res, "missing_mitigation_plan"); ok {
		t.Fatalf("finding must clear once a plan exists: %+v", res)
	}
}

func TestCompliantWithoutEvidenceAdvisory(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, res, err := s.SetStatus(ctx, "1", domain.StatusCompliant)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if _, ok := findViolation(res, "compliant_without_evidence"); !ok {
		t.Fatalf("expected compliant_without_evidence finding, got %+v", res)
	}

	if _, _, err := s.AddEvidence(ctx, "1", domain.EvidenceInput{Name: "policy.pdf"}); err != nil {
		t.Fatalf("add evidence: %v", err)
	}
	_, res, err = s.SetNotes(ctx, "1", "evidence attached")
	if err != nil {
		t.Fatalf("set notes: %v", err)
	}
	if _, ok := findViolation(res, "compliant_without_evidence"); ok {
		t.Fatalf("finding must clear once evidence exists: %+v", res)
	}
}

func TestUnassessedBacklogAdvisory(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	// 11 of 12 still not assessed after the first mutation.
	_, res, err := s.SetStatus(ctx, "1", domain.StatusCompliant)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	v, ok := findViolation(res, "unassessed_backlog")
	if !ok {
		t.Fatalf("expected backlog finding, got %+v", res)
	}
	if v.Severity != domain.SeverityLog {
		t.Fatalf("backlog is informational, got %s", v.Severity)
	}

	for _, id := range []string{"2", "3", "4", "5", "6", "7"} {
		if _, _, err := s.SetStatus(ctx, id, domain.StatusPartial); err != nil {
			t.Fatalf("set status %s: %v", id, err)
		}
	}
	// 5 of 12 remaining: below the half threshold.
	_, res, err = s.SetStatus(ctx, "8", domain.StatusPartial)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if _, ok := findViolation(res, "unassessed_backlog"); ok {
		t.Fatalf("backlog finding should clear below half, got %+v", res)
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "freeze" }

func (blockingRule) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "freeze", Severity: domain.SeverityBlock}}}, nil
}

func TestBlockingRuleRejectsMutation(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockingRule{})
	blocked := New(kv.NewMemory(), WithRulesEngine(engine))
	ctx := context.Background()

	_, _, err := blocked.SetStatus(ctx, "1", domain.StatusCompliant)
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}
	got, ok, gErr := blocked.GetControl(ctx, "1")
	if gErr != nil || !ok {
		t.Fatalf("get: %v %v", ok, gErr)
	}
	if got.Status != domain.StatusNotAssessed {
		t.Fatalf("blocked mutation must not apply: %+v", got)
	}
}
