// Package domain defines the persistent entities, value types, and advisory
// rule primitives used by compliancecore.
package domain

import "time"

// EntityType identifies the type of record captured in Change entries and
// persistence buckets.
type EntityType string

const (
	// EntityControl identifies a catalog control record.
	EntityControl EntityType = "control"
)

// Status represents the compliance assessment state of a control.
type Status string

// Canonical control statuses. The set is closed: invalid values are a
// programmer error, not a runtime condition.
const (
	StatusCompliant    Status = "compliant"
	StatusPartial      Status = "partial"
	StatusNonCompliant Status = "non-compliant"
	StatusNotAssessed  Status = "not-assessed"
)

// Statuses returns all control statuses in reporting order.
func Statuses() []Status {
	return []Status{StatusCompliant, StatusPartial, StatusNonCompliant, StatusNotAssessed}
}

// Valid reports whether s is one of the canonical statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusCompliant, StatusPartial, StatusNonCompliant, StatusNotAssessed:
		return true
	}
	return false
}

// RiskLevel classifies the residual risk carried by a control.
type RiskLevel string

// Canonical risk levels used for triage and reporting.
const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Valid reports whether r is one of the canonical risk levels.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// Elevated reports whether r places the control in the high-risk triage set.
func (r RiskLevel) Elevated() bool {
	return r == RiskHigh || r == RiskCritical
}

// Evidence is one artifact attached to a control in support of its assessed
// status. The URL is an opaque reference minted by the file-intake layer;
// the store never resolves it.
type Evidence struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	URL       string    `json:"url"`
	DateAdded time.Time `json:"dateAdded"`
}

// EvidenceInput carries the uploader-supplied fields of an evidence record.
// The store assigns the id and the add date.
type EvidenceInput struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Control is one catalog entry being assessed. ControlID, Title,
// Description, and Family are immutable catalog text; the remaining fields
// are mutable through the store only. JSON field names match the persisted
// snapshot format.
type Control struct {
	ID             string     `json:"id"`
	ControlID      string     `json:"controlId"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Family         string     `json:"family"`
	Status         Status     `json:"status"`
	RiskRating     RiskLevel  `json:"riskRating"`
	Notes          string     `json:"notes"`
	MitigationPlan string     `json:"mitigationPlan"`
	AssignedTo     *string    `json:"assignedTo,omitempty"`
	LastUpdated    time.Time  `json:"lastUpdated"`
	Evidence       []Evidence `json:"evidence"`
}

// Clone returns a deep copy of the control, including its evidence sequence.
func (c Control) Clone() Control {
	cp := c
	if c.AssignedTo != nil {
		v := *c.AssignedTo
		cp.AssignedTo = &v
	}
	cp.Evidence = append([]Evidence(nil), c.Evidence...)
	return cp
}

// CloneControls deep-copies a control slice preserving order.
func CloneControls(in []Control) []Control {
	out := make([]Control, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

// User is an actor with a role. Users are seeded from a static list; the
// store never authenticates beyond an email lookup.
type User struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Role   Role    `json:"role"`
	Avatar *string `json:"avatar,omitempty"`
}

// Clone returns a copy of the user with no shared pointers.
func (u User) Clone() User {
	cp := u
	if u.Avatar != nil {
		v := *u.Avatar
		cp.Avatar = &v
	}
	return cp
}

// Change describes a mutation applied to an entity during a store operation.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate the operations captured for advisory rules.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Severity captures advisory rule outcomes.
type Severity string

// Advisory severities. The default engine only emits warn and log; block
// exists for engines embedded outside the single-session store, where
// stricter surfacing is wanted.
const (
	SeverityBlock Severity = "block"
	SeverityWarn  Severity = "warn"
	SeverityLog   Severity = "log"
)

// Violation reports one advisory finding against a control.
type Violation struct {
	Rule      string
	Severity  Severity
	Message   string
	ControlID string
}

// Result aggregates findings from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends findings from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking findings.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking findings are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "operation blocked by rules"
}
