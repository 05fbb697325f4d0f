package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors exported by the server.
type Metrics struct {
	decisions  *prometheus.CounterVec
	violations prometheus.Counter
}

// NewMetrics registers the limiter collectors with reg. activeClients feeds
// the live-occupancy gauge; it is read at scrape time.
func NewMetrics(reg prometheus.Registerer, activeClients func() float64) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "limitd_requests_total",
			Help: "Rate limit decisions, partitioned by outcome.",
		}, []string{"outcome"}),
		violations: factory.NewCounter(prometheus.CounterOpts{
			Name: "limitd_violations_total",
			Help: "Denied requests recorded as violations.",
		}),
	}
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "limitd_active_clients",
		Help: "Live client state table occupancy.",
	}, activeClients)
	return m
}

// RecordDecision counts one evaluated request by outcome.
func (m *Metrics) RecordDecision(allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
		m.violations.Inc()
	}
	m.decisions.WithLabelValues(outcome).Inc()
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
