package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Order sources used as label values.
const (
	SourceSingle = "single"
	SourceBatch  = "batch"
)

// OrderMetrics records order placement, status transition, and import outcomes.
type OrderMetrics struct {
	created          *prometheus.CounterVec
	failures         *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	importDuration   prometheus.Histogram
	importRowsFailed prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders committed, by source.",
	}, []string{"source"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_failures_total",
		Help: "Order units that failed, by source and error code.",
	}, []string{"source", "code"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Applied order status transitions.",
	}, []string{"from", "to"})
	importDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_import_duration_seconds",
		Help:    "Duration of batch order imports in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	importRowsFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_import_rows_failed_total",
		Help: "Batch import rows that ended up in an error report.",
	})
	reg.MustRegister(created, failures, transitions, importDuration, importRowsFailed)
	return &OrderMetrics{
		created:          created,
		failures:         failures,
		transitions:      transitions,
		importDuration:   importDuration,
		importRowsFailed: importRowsFailed,
	}
}

func (m *OrderMetrics) IncCreated(source string, n int) {
	if m == nil || m.created == nil || n <= 0 {
		return
	}
	m.created.WithLabelValues(normalizeLabel(source)).Add(float64(n))
}

func (m *OrderMetrics) IncFailure(source, code string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(source), normalizeLabel(code)).Inc()
}

func (m *OrderMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// ObserveImport records one finished import run.
func (m *OrderMetrics) ObserveImport(duration time.Duration, failedRows int) {
	if m == nil || m.importDuration == nil {
		return
	}
	m.importDuration.Observe(duration.Seconds())
	if failedRows > 0 {
		m.importRowsFailed.Add(float64(failedRows))
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
