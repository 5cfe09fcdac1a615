// Command compliance-report renders the compliance posture report from the
// configured storage backend. Storage is selected through the
// COMPLIANCECORE_STORAGE_DRIVER environment the same way library consumers
// select it.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"compliancecore/internal/kv"
	"compliancecore/internal/store"
	"compliancecore/pkg/domain"
	"compliancecore/pkg/report"
)

var exitFunc = os.Exit

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("compliance-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		format   string
		outPath  string
		families string
		statuses string
	)
	fs.StringVar(&format, "format", "markdown", "output format: markdown|html|csv|json")
	fs.StringVar(&outPath, "out", "", "write to this file instead of stdout")
	fs.StringVar(&families, "family", "", "comma separated family filter")
	fs.StringVar(&statuses, "status", "", "comma separated status filter")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	statusFilter, err := parseStatuses(statuses)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	ctx := context.Background()
	persistence, err := kv.Open(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "open storage: %v\n", err)
		return 1
	}

	s := store.New(persistence)
	controls, err := s.FilterControls(ctx, splitList(families), statusFilter)
	if err != nil {
		fmt.Fprintf(stderr, "load controls: %v\n", err)
		return 1
	}

	doc := report.Build(controls, time.Now().UTC())
	payload, err := render(format, doc)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	if outPath == "" {
		if _, err := stdout.Write(payload); err != nil {
			fmt.Fprintf(stderr, "write report: %v\n", err)
			return 1
		}
		return 0
	}
	if err := os.WriteFile(outPath, payload, 0o644); err != nil {
		fmt.Fprintf(stderr, "write report: %v\n", err)
		return 1
	}
	return 0
}

func render(format string, doc report.Document) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "markdown", "md":
		return report.RenderMarkdown(doc), nil
	case "html":
		return report.RenderHTML(doc), nil
	case "csv":
		return report.RenderCSV(doc)
	case "json":
		return report.RenderJSON(doc)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseStatuses(value string) ([]domain.Status, error) {
	names := splitList(value)
	out := make([]domain.Status, 0, len(names))
	for _, name := range names {
		status := domain.Status(strings.ToLower(name))
		if !status.Valid() {
			return nil, fmt.Errorf("unknown status %q", name)
		}
		out = append(out, status)
	}
	return out, nil
}
