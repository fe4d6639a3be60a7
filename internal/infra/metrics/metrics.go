package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Spok95/batch-trace/internal/domain/errs"
)

var (
	operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trace_operations_total",
		Help: "Ledger operations by name and result kind.",
	}, []string{"op", "result"})

	durations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trace_operation_duration_seconds",
		Help:    "Ledger operation latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	auditDiscrepancies = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trace_audit_discrepancies",
		Help: "Lots whose on-hand quantity disagrees with receipts minus consumption at the last audit.",
	})
)

// Observe фиксирует результат и длительность операции. Вызывать через defer.
func Observe(op string, start time.Time, err error) {
	operations.WithLabelValues(op, errs.Kind(err)).Inc()
	durations.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func SetAuditDiscrepancies(n int) {
	auditDiscrepancies.Set(float64(n))
}
