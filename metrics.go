package auth

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
)

// MetricsSink counts activity events and access decisions.
type MetricsSink struct {
	events    *prometheus.CounterVec
	decisions *prometheus.CounterVec
}

// NewMetricsSink registers the auth collectors on reg.
func NewMetricsSink(reg prometheus.Registerer) (*MetricsSink, error) {
	m := &MetricsSink{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "activity_events_total",
			Help:      "Activity events recorded, by event type.",
		}, []string{"event"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "access_decisions_total",
			Help:      "Access pipeline outcomes, by final state.",
		}, []string{"state"}),
	}

	for _, c := range []prometheus.Collector{m.events, m.decisions} {
		if err := reg.Register(c); err != nil {
			return nil, oops.Code(textCodeInvalidConfig).Wrapf(err, "register auth metrics")
		}
	}
	return m, nil
}

// Record implements ActivitySink.
func (m *MetricsSink) Record(_ context.Context, event ActivityEvent) error {
	m.events.WithLabelValues(string(event.EventType)).Inc()
	return nil
}

// ObserveRun counts the final state of a pipeline run.
func (m *MetricsSink) ObserveRun(run *PipelineRun) {
	if run == nil {
		return
	}
	m.decisions.WithLabelValues(string(run.State())).Inc()
}

// EventCounter exposes the per event counter, mostly for tests.
func (m *MetricsSink) EventCounter(event ActivityEventType) prometheus.Counter {
	return m.events.WithLabelValues(string(event))
}

// DecisionCounter exposes the per state counter, mostly for tests.
func (m *MetricsSink) DecisionCounter(state PipelineState) prometheus.Counter {
	return m.decisions.WithLabelValues(string(state))
}
