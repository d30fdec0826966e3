package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestOrderMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)

	m.IncCreated(SourceBatch, 3)
	m.IncCreated(SourceSingle, 1)
	m.IncCreated(SourceSingle, 0)
	m.IncFailure(SourceSingle, "INSUFFICIENT_STOCK")
	m.IncTransition("Pending", "Cancelled")
	m.ObserveImport(250*time.Millisecond, 2)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "orders_created_total", map[string]string{"source": SourceBatch}); err != nil {
		t.Fatalf("fetch created: %v", err)
	} else if got != 3 {
		t.Fatalf("expected batch created=3, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "orders_created_total", map[string]string{"source": SourceSingle}); err != nil {
		t.Fatalf("fetch created: %v", err)
	} else if got != 1 {
		t.Fatalf("expected single created=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "order_failures_total", map[string]string{"source": SourceSingle, "code": "INSUFFICIENT_STOCK"}); err != nil {
		t.Fatalf("fetch failures: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failures=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "order_status_transitions_total", map[string]string{"from": "Pending", "to": "Cancelled"}); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected transitions=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "order_import_rows_failed_total", nil); err != nil {
		t.Fatalf("fetch failed rows: %v", err)
	} else if got != 2 {
		t.Fatalf("expected failed rows=2, got %f", got)
	}

	mf := findMetricFamily(mfs, "order_import_duration_seconds")
	if mf == nil || len(mf.GetMetric()) != 1 {
		t.Fatalf("import duration histogram missing")
	}
	if sum := mf.GetMetric()[0].GetHistogram().GetSampleSum(); sum <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", sum)
	}
}

func TestOrderMetricsNilSafe(t *testing.T) {
	var m *OrderMetrics
	m.IncCreated(SourceSingle, 1)
	m.IncFailure(SourceSingle, "X")
	m.IncTransition("a", "b")
	m.ObserveImport(time.Second, 1)

	noop := NewOrderMetrics(nil)
	noop.IncCreated(SourceBatch, 2)
	noop.ObserveImport(time.Second, 1)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	for name, value := range want {
		found := false
		for _, pair := range pairs {
			if pair.GetName() == name && pair.GetValue() == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
