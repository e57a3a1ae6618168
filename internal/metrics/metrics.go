// Package metrics exposes Prometheus counters for the relay.
package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the relay.
type Metrics struct {
	registry          *prometheus.Registry
	connectionsTotal  prometheus.Counter
	submissionsTotal  prometheus.Counter
	submitErrorsTotal prometheus.Counter
	eventsTotal       *prometheus.CounterVec
	pendingCommands   prometheus.Gauge
}

// New creates and registers Prometheus metrics for the relay.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	connectionsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mpvrelay_connections_total",
		Help: "Total number of ingest connections accepted",
	})
	submissionsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mpvrelay_submissions_total",
		Help: "Total number of locators submitted to mpv",
	})
	submitErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mpvrelay_submit_errors_total",
		Help: "Total number of locator submissions mpv failed",
	})
	eventsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mpvrelay_events_total",
		Help: "Total number of playback events observed, by event name",
	}, []string{"event"})
	pendingCommands := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mpvrelay_pending_commands",
		Help: "Number of locators waiting in the command channel",
	})

	registry.MustRegister(
		connectionsTotal,
		submissionsTotal,
		submitErrorsTotal,
		eventsTotal,
		pendingCommands,
	)

	return &Metrics{
		registry:          registry,
		connectionsTotal:  connectionsTotal,
		submissionsTotal:  submissionsTotal,
		submitErrorsTotal: submitErrorsTotal,
		eventsTotal:       eventsTotal,
		pendingCommands:   pendingCommands,
	}
}

// IncConnections increments the accepted connections counter.
func (m *Metrics) IncConnections() {
	m.connectionsTotal.Inc()
}

// IncSubmissions increments the submitted locators counter.
func (m *Metrics) IncSubmissions() {
	m.submissionsTotal.Inc()
}

// IncSubmitErrors increments the failed submissions counter.
func (m *Metrics) IncSubmitErrors() {
	m.submitErrorsTotal.Inc()
}

// IncEvents counts one observed event.
func (m *Metrics) IncEvents(name string) {
	m.eventsTotal.WithLabelValues(name).Inc()
}

// SetPending sets the pending commands gauge.
func (m *Metrics) SetPending(n int) {
	m.pendingCommands.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		h.ServeHTTP(w, r)
	})
}

// Router mounts /metrics and /healthz.
func (m *Metrics) Router(updateGauges func()) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", m.Handler(updateGauges))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return r
}
