package feed

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are registered on a private registry so several servers can coexist
// in one process.
type Metrics struct {
	registry *prometheus.Registry

	Published prometheus.Counter
	Clients   prometheus.Gauge
	Evicted   prometheus.Counter
	Polls     prometheus.Counter
	Ingested  *prometheus.CounterVec
	Rejected  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lanify",
			Name:      "alerts_published_total",
			Help:      "Alert events published to monitoring clients.",
		}),
		Clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lanify",
			Name:      "websocket_clients",
			Help:      "Connected websocket clients.",
		}),
		Evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lanify",
			Name:      "websocket_clients_evicted_total",
			Help:      "Websocket clients disconnected for falling behind.",
		}),
		Polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lanify",
			Name:      "poll_requests_total",
			Help:      "Long-poll requests served.",
		}),
		Ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lanify",
			Name:      "alerts_ingested_total",
			Help:      "Dashcam alerts accepted, by severity.",
		}, []string{"severity"}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lanify",
			Name:      "alerts_rejected_total",
			Help:      "Dashcam alerts rejected, by reason.",
		}, []string{"reason"}),
	}
	m.registry.MustRegister(m.Published, m.Clients, m.Evicted, m.Polls, m.Ingested, m.Rejected)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
