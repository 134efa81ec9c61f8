// Package metrics exposes the Prometheus collectors of retailcore.
// Collectors register with the default registry and are served by promhttp at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "retailcore"

// Ledger outcomes.
const (
	OutcomeApplied        = "applied"
	OutcomeAlreadyApplied = "already_applied"
	OutcomeRejected       = "rejected"
)

// LedgerAppends counts movement writes by movement type and outcome.
var LedgerAppends = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "appends_total",
	Help:      "Movement appends by movement type and outcome.",
}, []string{"type", "outcome"})

// LedgerUnits counts units moved, split by direction.
var LedgerUnits = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "units_total",
	Help:      "Units recorded in newly applied movements by direction.",
}, []string{"direction"})

// SalesRegistered counts committed sales by channel code.
var SalesRegistered = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "sales",
	Name:      "registered_total",
	Help:      "Sales committed by channel.",
}, []string{"channel"})

// SalesRejected counts sales that did not commit, by reason code.
var SalesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "sales",
	Name:      "rejected_total",
	Help:      "Sales rejected before commit by reason.",
}, []string{"reason"})

// SalesVoided counts sales transitioned to VOID.
var SalesVoided = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "sales",
	Name:      "voided_total",
	Help:      "Sales voided.",
})

// ImportRows counts imported rows by outcome (ok, error, duplicate).
var ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "import",
	Name:      "rows_total",
	Help:      "Imported rows by outcome.",
}, []string{"outcome", "mode"})

// ImportDuration observes the wall time of a batch import.
var ImportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "import",
	Name:      "duration_seconds",
	Help:      "Batch import duration.",
	Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
}, []string{"mode"})

// StockAlerts reports the number of SKUs per traffic light at the last alert scan.
var StockAlerts = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "stock",
	Name:      "alerts",
	Help:      "SKUs per traffic light at the last alert scan.",
}, []string{"level"})

// Reason returns the label used for a rejected operation's error code.
func Reason(code string) string {
	if code == "" {
		return "internal"
	}
	return code
}

// HTTPRequests counts served requests by route template, method and status class.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by route, method and status.",
}, []string{"route", "method", "status"})

// HTTPDuration observes request latency by route template.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route", "method"})
