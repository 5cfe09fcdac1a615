package store

import (
	"context"
	"fmt"

	"compliancecore/pkg/domain"
)

// DefaultRulesEngine returns the advisory engine shipped with the store. All
// default rules emit warn or log findings only; mutations never fail rule
// evaluation with this engine.
func DefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(MissingMitigationPlanRule{})
	engine.Register(CompliantWithoutEvidenceRule{})
	engine.Register(UnassessedBacklogRule{})
	return engine
}

// MissingMitigationPlanRule warns when a failing control with elevated risk
// carries no mitigation plan.
type MissingMitigationPlanRule struct{}

// Name implements domain.Rule.
func (MissingMitigationPlanRule) Name() string { return "missing_mitigation_plan" }

// Evaluate implements domain.Rule.
func (MissingMitigationPlanRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var result domain.Result
	for _, change := range changes {
		after, ok := change.After.(domain.Control)
		if !ok {
			continue
		}
		failing := after.Status == domain.StatusNonCompliant || after.Status == domain.StatusPartial
		if failing && after.RiskRating.Elevated() && after.MitigationPlan == "" {
			result.Violations = append(result.Violations, domain.Violation{
				Rule:      "missing_mitigation_plan",
				Severity:  domain.SeverityWarn,
				Message:   fmt.Sprintf("%s is %s with %s risk and has no mitigation plan", after.ControlID, after.Status, after.RiskRating),
				ControlID: after.ID,
			})
		}
	}
	return result, nil
}

// CompliantWithoutEvidenceRule warns when a control is marked compliant with
// no supporting evidence attached.
type CompliantWithoutEvidenceRule struct{}

// Name implements domain.Rule.
func (CompliantWithoutEvidenceRule) Name() string { return "compliant_without_evidence" }

// Evaluate implements domain.Rule.
func (CompliantWithoutEvidenceRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var result domain.Result
	for _, change := range changes {
		after, ok := change.After.(domain.Control)
		if !ok {
			continue
		}
		if after.Status == domain.StatusCompliant && len(after.Evidence) == 0 {
			result.Violations = append(result.Violations, domain.Violation{
				Rule:      "compliant_without_evidence",
				Severity:  domain.SeverityWarn,
				Message:   fmt.Sprintf("%s is marked compliant without evidence", after.ControlID),
				ControlID: after.ID,
			})
		}
	}
	return result, nil
}

// UnassessedBacklogRule logs when more than half of the catalog is still
// not assessed after a mutation.
type UnassessedBacklogRule struct{}

// Name implements domain.Rule.
func (UnassessedBacklogRule) Name() string { return "unassessed_backlog" }

// Evaluate implements domain.Rule.
func (UnassessedBacklogRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	if len(changes) == 0 {
		return domain.Result{}, nil
	}
	controls := view.ListControls()
	if len(controls) == 0 {
		return domain.Result{}, nil
	}
	unassessed := 0
	for _, c := range controls {
		if c.Status == domain.StatusNotAssessed {
			unassessed++
		}
	}
	var result domain.Result
	if unassessed*2 > len(controls) {
		result.Violations = append(result.Violations, domain.Violation{
			Rule:     "unassessed_backlog",
			Severity: domain.SeverityLog,
			Message:  fmt.Sprintf("%d of %d controls are not assessed", unassessed, len(controls)),
		})
	}
	return result, nil
}
