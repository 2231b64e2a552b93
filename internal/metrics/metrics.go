// Package metrics provides observability for the join gate.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the gate. A nil *Metrics
// is valid and records nothing, so tests can run without a registry.
type Metrics struct {
	// Updates pulled from the feed, by classified kind
	UpdatesReceived *prometheus.CounterVec

	// Handler failures by event kind
	HandlerFailures *prometheus.CounterVec

	// Approval attempts by outcome
	Approvals *prometheus.CounterVec

	// Reconciliation passes triggered by consent transitions or sweeps
	ReconcilePasses prometheus.Counter

	// Current size of the pending join queue
	PendingJoins prometheus.Gauge

	// Long-poll failures against the update feed
	PollErrors prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		UpdatesReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pledgegate_updates_received_total",
			Help: "Total updates received from the feed by kind",
		}, []string{"kind"}), // kind: "message", "interaction", "join_request", "unknown"

		HandlerFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pledgegate_handler_failures_total",
			Help: "Total event handler failures by kind",
		}, []string{"kind"}),

		Approvals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pledgegate_approvals_total",
			Help: "Total join approval attempts by outcome",
		}, []string{"outcome"}), // outcome: "approved", "already_resolved", "transient", "permanent"

		ReconcilePasses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pledgegate_reconcile_passes_total",
			Help: "Total reconciliation passes over pending joins",
		}),

		PendingJoins: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pledgegate_pending_joins",
			Help: "Current number of join requests waiting on consent",
		}),

		PollErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pledgegate_poll_errors_total",
			Help: "Total getUpdates failures",
		}),
	}
}

func (m *Metrics) IncUpdate(kind string) {
	if m != nil {
		m.UpdatesReceived.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncHandlerFailure(kind string) {
	if m != nil {
		m.HandlerFailures.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncApproval(outcome string) {
	if m != nil {
		m.Approvals.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncReconcilePass() {
	if m != nil {
		m.ReconcilePasses.Inc()
	}
}

func (m *Metrics) SetPendingJoins(count int) {
	if m != nil {
		m.PendingJoins.Set(float64(count))
	}
}

func (m *Metrics) IncPollError() {
	if m != nil {
		m.PollErrors.Inc()
	}
}
