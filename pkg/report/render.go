package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

const (
	generatedLayout = "2006-01-02 15:04:05 MST"
	dateLayout      = "2006-01-02"
)

// RenderMarkdown emits the document in the report's canonical markdown
// layout: title, generation line, summary counts, then one section per
// family with a horizontal rule after every entry.
func RenderMarkdown(doc Document) []byte {
	buf := &strings.Builder{}
	fmt.Fprintf(buf, "# %s\n\n", doc.Title)
	fmt.Fprintf(buf, "Generated on: %s\n\n", doc.GeneratedAt.Format(generatedLayout))

	buf.WriteString("## Summary\n\n")
	fmt.Fprintf(buf, "Total Controls: %d\n", doc.Stats.Total)
	fmt.Fprintf(buf, "Compliant: %d\n", doc.Stats.Compliant)
	fmt.Fprintf(buf, "Partial: %d\n", doc.Stats.Partial)
	fmt.Fprintf(buf, "Non-Compliant: %d\n", doc.Stats.NonCompliant)
	fmt.Fprintf(buf, "Not Assessed: %d\n\n", doc.Stats.NotAssessed)

	for _, section := range doc.Sections {
		fmt.Fprintf(buf, "## %s\n\n", section.Family)
		for _, entry := range section.Entries {
			fmt.Fprintf(buf, "### %s: %s\n\n", entry.ControlID, entry.Title)
			fmt.Fprintf(buf, "Status: %s\n\n", entry.Status)
			fmt.Fprintf(buf, "Description: %s\n\n", entry.Description)
			if entry.Notes != "" {
				fmt.Fprintf(buf, "Notes: %s\n\n", entry.Notes)
			}
			fmt.Fprintf(buf, "Risk Rating: %s\n\n", entry.RiskRating)
			if entry.MitigationPlan != "" {
				fmt.Fprintf(buf, "Mitigation Plan: %s\n\n", entry.MitigationPlan)
			}
			if len(entry.Evidence) > 0 {
				buf.WriteString("Evidence:\n")
				for _, e := range entry.Evidence {
					fmt.Fprintf(buf, "- %s (Added: %s)\n", e.Name, e.DateAdded.Format(dateLayout))
				}
				buf.WriteString("\n")
			}
			buf.WriteString("---\n\n")
		}
	}
	return []byte(buf.String())
}

// RenderHTML emits a single-page table rendering of the document.
func RenderHTML(doc Document) []byte {
	buf := &strings.Builder{}
	buf.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>")
	buf.WriteString(html.EscapeString(doc.Title))
	buf.WriteString("</title></head><body>")
	fmt.Fprintf(buf, "<h1>%s</h1>", html.EscapeString(doc.Title))
	fmt.Fprintf(buf, "<p>Generated on: %s</p>", doc.GeneratedAt.Format(generatedLayout))
	fmt.Fprintf(buf, "<p>Total: %d | Compliant: %d | Partial: %d | Non-Compliant: %d | Not Assessed: %d</p>",
		doc.Stats.Total, doc.Stats.Compliant, doc.Stats.Partial, doc.Stats.NonCompliant, doc.Stats.NotAssessed)
	buf.WriteString("<table>")
	buf.WriteString("<thead><tr>")
	for _, column := range csvHeader {
		buf.WriteString("<th>")
		buf.WriteString(html.EscapeString(column))
		buf.WriteString("</th>")
	}
	buf.WriteString("</tr></thead><tbody>")
	for _, section := range doc.Sections {
		for _, entry := range section.Entries {
			buf.WriteString("<tr>")
			for _, cell := range entryRecord(section.Family, entry) {
				buf.WriteString("<td>")
				buf.WriteString(html.EscapeString(cell))
				buf.WriteString("</td>")
			}
			buf.WriteString("</tr>")
		}
	}
	buf.WriteString("</tbody></table></body></html>")
	return []byte(buf.String())
}

var csvHeader = []string{"family", "controlId", "title", "status", "riskRating", "notes", "mitigationPlan", "evidenceCount"}

// RenderCSV emits one row per entry with a fixed header.
func RenderCSV(doc Document) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, section := range doc.Sections {
		for _, entry := range section.Entries {
			if err := writer.Write(entryRecord(section.Family, entry)); err != nil {
				return nil, err
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderJSON emits the document via its JSON tags.
func RenderJSON(doc Document) ([]byte, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return payload, nil
}

func entryRecord(family string, entry Entry) []string {
	return []string{
		family,
		entry.ControlID,
		entry.Title,
		string(entry.Status),
		string(entry.RiskRating),
		entry.Notes,
		entry.MitigationPlan,
		fmt.Sprintf("%d", len(entry.Evidence)),
	}
}
