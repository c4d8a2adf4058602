package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "restock"

// Probe results
const (
	ProbeInStock    = "in_stock"
	ProbeOutOfStock = "out_of_stock"
	ProbeError      = "error"
)

// Metrics groups the collectors updated by monitoring runs.
type Metrics struct {
	registry *prometheus.Registry

	Runs          *prometheus.CounterVec // label: trigger
	RunDuration   prometheus.Histogram   // whole run, fan-out to last send
	Probes        *prometheus.CounterVec // labels: target, result
	Notifications *prometheus.CounterVec // labels: kind, outcome
	LastRun       prometheus.Gauge       // unix seconds of the last finished run
	TargetStatus  *prometheus.GaugeVec   // label: target; 1 in stock, 0 out
	Triggers      *prometheus.CounterVec // labels: force, accepted; HTTP triggers only
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Monitoring runs started, by trigger.",
		}, []string{"trigger"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a monitoring run.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 15, 30, 60},
		}),
		Probes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Target probes, by result.",
		}, []string{"target", "result"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Digest notifications, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		LastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Completion time of the last monitoring run.",
		}),
		TargetStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_in_stock",
			Help:      "Last successful probe result per target (1 in stock, 0 out of stock).",
		}, []string{"target"}),
		Triggers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_triggers_total",
			Help:      "Runs requested through the status page.",
		}, []string{"force", "accepted"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
