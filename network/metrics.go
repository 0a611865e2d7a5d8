package network

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the per-network counters and gauges. A nil registerer
// yields working but unregistered metrics, which is what the tests use.
type Metrics struct {
	LinesReceived  prometheus.Counter
	LinesSent      prometheus.Counter
	Reconnects     prometheus.Counter
	WorkerRestarts prometheus.Counter
	CrashLoops     prometheus.Counter
	Latency        prometheus.Gauge
}

// NewMetrics builds the metric set labelled with the network name.
func NewMetrics(reg prometheus.Registerer, network string) *Metrics {
	f := promauto.With(reg)
	labels := prometheus.Labels{"network": network}
	return &Metrics{
		LinesReceived: f.NewCounter(prometheus.CounterOpts{
			Name:        "shanghai_lines_received_total",
			Help:        "Number of protocol lines received.",
			ConstLabels: labels,
		}),
		LinesSent: f.NewCounter(prometheus.CounterOpts{
			Name:        "shanghai_lines_sent_total",
			Help:        "Number of protocol lines sent.",
			ConstLabels: labels,
		}),
		Reconnects: f.NewCounter(prometheus.CounterOpts{
			Name:        "shanghai_reconnects_total",
			Help:        "Number of reconnect attempts after a lost connection.",
			ConstLabels: labels,
		}),
		WorkerRestarts: f.NewCounter(prometheus.CounterOpts{
			Name:        "shanghai_worker_restarts_total",
			Help:        "Number of worker restarts after a handler loop crash.",
			ConstLabels: labels,
		}),
		CrashLoops: f.NewCounter(prometheus.CounterOpts{
			Name:        "shanghai_crash_loops_total",
			Help:        "Number of crash loop detections that shut the network down.",
			ConstLabels: labels,
		}),
		Latency: f.NewGauge(prometheus.GaugeOpts{
			Name:        "shanghai_server_latency_seconds",
			Help:        "Last measured keepalive round trip time.",
			ConstLabels: labels,
		}),
	}
}
