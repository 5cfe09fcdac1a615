// Package report builds a read-only compliance report projection from a set
// of controls. Build is a pure fold: the same controls and clock always
// produce the same Document, and renderers emit byte-identical output for
// identical documents.
package report

import (
	"time"

	"compliancecore/pkg/domain"
)

// Title is the fixed report heading.
const Title = "NIST 800-53 Compliance Report"

// Stats summarizes a control set by implementation status.
type Stats struct {
	Total        int `json:"total"`
	Compliant    int `json:"compliant"`
	Partial      int `json:"partial"`
	NonCompliant int `json:"nonCompliant"`
	NotAssessed  int `json:"notAssessed"`
}

// EvidenceRef is the per-entry evidence line: name plus attachment date.
type EvidenceRef struct {
	Name      string    `json:"name"`
	DateAdded time.Time `json:"dateAdded"`
}

// Entry is one control within a family section.
type Entry struct {
	ControlID      string           `json:"controlId"`
	Title          string           `json:"title"`
	Status         domain.Status    `json:"status"`
	Description    string           `json:"description"`
	Notes          string           `json:"notes,omitempty"`
	RiskRating     domain.RiskLevel `json:"riskRating"`
	MitigationPlan string           `json:"mitigationPlan,omitempty"`
	Evidence       []EvidenceRef    `json:"evidence,omitempty"`
}

// Section groups the entries of one control family.
type Section struct {
	Family  string  `json:"family"`
	Entries []Entry `json:"entries"`
}

// Document is the complete report projection.
type Document struct {
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generatedAt"`
	Stats       Stats     `json:"stats"`
	Sections    []Section `json:"sections"`
}

// Build folds the given controls into a Document. Stats cover exactly the
// input set; sections appear in first-appearance order of each family, and
// entries keep the input order within their family. Controls are read, never
// retained.
func Build(controls []domain.Control, now time.Time) Document {
	doc := Document{Title: Title, GeneratedAt: now}
	index := make(map[string]int)
	for _, c := range controls {
		doc.Stats.Total++
		switch c.Status {
		case domain.StatusCompliant:
			doc.Stats.Compliant++
		case domain.StatusPartial:
			doc.Stats.Partial++
		case domain.StatusNonCompliant:
			doc.Stats.NonCompliant++
		case domain.StatusNotAssessed:
			doc.Stats.NotAssessed++
		}

		i, ok := index[c.Family]
		if !ok {
			i = len(doc.Sections)
			index[c.Family] = i
			doc.Sections = append(doc.Sections, Section{Family: c.Family})
		}
		doc.Sections[i].Entries = append(doc.Sections[i].Entries, buildEntry(c))
	}
	return doc
}

func buildEntry(c domain.Control) Entry {
	entry := Entry{
		ControlID:      c.ControlID,
		Title:          c.Title,
		Status:         c.Status,
		Description:    c.Description,
		Notes:          c.Notes,
		RiskRating:     c.RiskRating,
		MitigationPlan: c.MitigationPlan,
	}
	for _, e := range c.Evidence {
		entry.Evidence = append(entry.Evidence, EvidenceRef{Name: e.Name, DateAdded: e.DateAdded})
	}
	return entry
}
