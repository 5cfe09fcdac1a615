package store

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorderRegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusMetricsRecorder(reg)
	ctx := context.Background()

	rec.Observe(ctx, "set_status", OutcomeSuccess, 3*time.Millisecond)
	rec.Observe(ctx, "set_status", OutcomeNoop, time.Millisecond)
	rec.Observe(ctx, "", OutcomeSuccess, time.Hour)
	rec.PersistFailure("add_evidence")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	byName := map[string]int{}
	for _, mf := range families {
		byName[mf.GetName()] = len(mf.GetMetric())
	}
	if byName["compliancecore_store_operations_total"] != 2 {
		t.Fatalf("expected two outcome series, got %+v", byName)
	}
	if byName["compliancecore_store_persist_failures_total"] != 1 {
		t.Fatalf("expected persist failure series, got %+v", byName)
	}
	if byName["compliancecore_store_operation_duration_seconds"] != 1 {
		t.Fatalf("expected duration series, got %+v", byName)
	}
}
