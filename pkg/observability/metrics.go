package observability

import (
	"context"

	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine counters.
type Metrics struct {
	FlowsStarted  *prometheus.CounterVec
	NodesEntered  *prometheus.CounterVec
	FlowsEnded    *prometheus.CounterVec
	SessionEvents *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FlowsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "firstaid_flows_started_total",
				Help: "Emergency flows started, by classified emergency",
			},
			[]string{"emergency"},
		),
		NodesEntered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "firstaid_node_visits_total",
				Help: "Questions and steps surfaced to users",
			},
			[]string{"emergency", "kind"},
		),
		FlowsEnded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "firstaid_flows_ended_total",
				Help: "Flows that reached a terminal outcome",
			},
			[]string{"emergency", "kind"},
		),
		SessionEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "firstaid_session_events_total",
				Help: "Resets, idle timeouts, clarifications and classification misses",
			},
			[]string{"type"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.FlowsStarted, m.NodesEntered, m.FlowsEnded, m.SessionEvents)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFlowStart: func(ctx context.Context, e *domain.FlowEvent) {
			m.FlowsStarted.WithLabelValues(e.Emergency).Inc()
		},
		OnNodeEnter: func(ctx context.Context, e *domain.FlowEvent) {
			m.NodesEntered.WithLabelValues(e.Emergency, string(e.Kind)).Inc()
		},
		OnFlowEnd: func(ctx context.Context, e *domain.FlowEvent) {
			m.FlowsEnded.WithLabelValues(e.Emergency, string(e.Kind)).Inc()
		},
		OnSession: func(ctx context.Context, e *domain.SessionEvent) {
			m.SessionEvents.WithLabelValues(string(e.Type)).Inc()
		},
	}
}
