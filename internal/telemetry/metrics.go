package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/specialistvlad/stagegrid/internal/engine"
	"github.com/specialistvlad/stagegrid/internal/report"
)

// Metrics exports run progress as Prometheus collectors.
type Metrics struct {
	nodeDuration *prometheus.HistogramVec
	nodes        *prometheus.CounterVec
	items        *prometheus.CounterVec
	runs         *prometheus.CounterVec
	inflight     prometheus.Gauge
}

// NewMetrics registers the collectors on reg. A nil reg uses the default
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		nodeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stagegrid",
			Subsystem: "node",
			Name:      "duration_seconds",
			Help:      "Time spent inside a stage transform.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		nodes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stagegrid",
			Subsystem: "node",
			Name:      "resolved_total",
			Help:      "Resolved nodes by stage and outcome.",
		}, []string{"stage", "outcome"}),
		items: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stagegrid",
			Subsystem: "item",
			Name:      "outcomes_total",
			Help:      "Items by final state.",
		}, []string{"state"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stagegrid",
			Subsystem: "run",
			Name:      "finished_total",
			Help:      "Finished runs by result.",
		}, []string{"result"}),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "stagegrid",
			Subsystem: "node",
			Name:      "inflight",
			Help:      "Nodes currently dispatched to a worker.",
		}),
	}
}

func (m *Metrics) RunStarted(context.Context, engine.RunInfo) {}

func (m *Metrics) NodeDispatched(context.Context, engine.NodeEvent) {
	m.inflight.Inc()
}

func (m *Metrics) NodeFinished(_ context.Context, ev engine.NodeEvent) {
	m.inflight.Dec()
	m.nodeDuration.WithLabelValues(ev.Stage).Observe(ev.Finished.Sub(ev.Started).Seconds())
	outcome := "completed"
	if ev.Err != nil {
		outcome = "failed"
	}
	m.nodes.WithLabelValues(ev.Stage, outcome).Inc()
}

func (m *Metrics) NodeSkipped(_ context.Context, ev engine.NodeEvent) {
	m.nodes.WithLabelValues(ev.Stage, "skipped").Inc()
}

func (m *Metrics) RunFinished(_ context.Context, r *report.RunReport) {
	for _, o := range r.Items {
		m.items.WithLabelValues(string(o.State)).Inc()
	}
	result := "ok"
	switch {
	case r.Aborted:
		result = "aborted"
	case r.Cancelled:
		result = "cancelled"
	case r.FinalizeErr != nil:
		result = "finalize_failed"
	}
	m.runs.WithLabelValues(result).Inc()
}
