package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Monitor observability: cycle timing plus counters for the failure modes
// that matter operationally (provider flakiness, terminal outcomes).
var (
	ScanCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "paywatch",
		Subsystem: "monitor",
		Name:      "scan_cycle_duration_seconds",
		Help:      "Wall-clock duration of a full scan cycle.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	PaymentsScanned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "paywatch",
		Subsystem: "monitor",
		Name:      "payments_scanned_total",
		Help:      "Pending payments evaluated across all cycles.",
	})

	PaymentsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "paywatch",
		Subsystem: "monitor",
		Name:      "payments_expired_total",
		Help:      "Pending payments bulk-transitioned to expired.",
	})

	PaymentsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paywatch",
		Subsystem: "monitor",
		Name:      "payments_finalized_total",
		Help:      "Terminal transitions by resulting status.",
	}, []string{"status"})

	ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paywatch",
		Subsystem: "monitor",
		Name:      "provider_errors_total",
		Help:      "Transient chain provider failures by network.",
	}, []string{"network"})
)
