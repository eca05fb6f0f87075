// Package metrics exposes the dashboard's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Probe outcomes used as the "outcome" label of ProbesTotal.
const (
	OutcomeVisible       = "visible"
	OutcomeNotVisible    = "not_visible"
	OutcomeDeletedBySelf = "deleted_by_self"
	OutcomeUnknown       = "unknown"
)

var (
	// PollsTotal counts completed snapshot polls.
	PollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mvccview_polls_total",
		Help: "Total number of snapshot polls attempted",
	})

	// PollFailuresTotal counts polls whose snapshot fetch failed.
	PollFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mvccview_poll_failures_total",
		Help: "Number of snapshot polls that failed and kept the previous snapshot",
	})

	// MonotonicViolationsTotal counts active transactions whose modified rows shrank.
	MonotonicViolationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mvccview_modified_rows_violations_total",
		Help: "Active transactions observed with fewer modified rows than the previous poll",
	})

	// SnapshotRows reports the row count of the current snapshot.
	SnapshotRows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mvccview_snapshot_rows",
		Help: "Number of rows in the current snapshot",
	})

	// ActiveTransactions reports the number of active transactions in the current snapshot.
	ActiveTransactions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mvccview_active_transactions",
		Help: "Number of active transactions in the current snapshot",
	})

	// ChainRefreshesTotal counts version chain assemblies by trigger.
	ChainRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mvccview_chain_refreshes_total",
		Help: "Version chain assemblies by trigger (focus or change)",
	}, []string{"trigger"})

	// StaleChainsTotal counts chain results dropped because focus moved on.
	StaleChainsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mvccview_chain_stale_total",
		Help: "Version chain responses discarded after the focused row changed",
	})

	// StaleComparisonsTotal counts comparisons dropped because a later one started.
	StaleComparisonsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mvccview_comparison_stale_total",
		Help: "Comparisons discarded after a later comparison or a reset",
	})

	// ProbesTotal counts visibility probes by outcome.
	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mvccview_visibility_probes_total",
		Help: "Visibility probes issued for comparisons, by outcome",
	}, []string{"outcome"})

	// EngineRequestDuration observes engine round trips by operation.
	EngineRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mvccview_engine_request_duration_seconds",
		Help:    "Duration of requests to the storage engine",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"op"})

	// EngineErrorsTotal counts failed engine requests by operation.
	EngineErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mvccview_engine_errors_total",
		Help: "Failed requests to the storage engine, by operation",
	}, []string{"op"})
)

// Handler returns the scrape handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
