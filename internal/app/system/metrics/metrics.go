// Package metrics exposes Prometheus instruments for ticket issuance,
// check-in and the event cache.
package metrics

import (
	"net/http"
	"time"

	"github.com/dalemusser/eventkey/internal/app/ticketing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	reg *prometheus.Registry

	TicketsIssued   *prometheus.CounterVec
	CheckIns        *prometheus.CounterVec
	CheckInLatency  prometheus.Histogram
	CacheLookups    *prometheus.CounterVec
	DashboardStream prometheus.Gauge
}

// New registers every instrument on a fresh registry, along with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,

		TicketsIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eventkey_tickets_issued_total",
			Help: "Ticket issuance requests by result",
		}, []string{"result"}), // result: "created", "existing"

		CheckIns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eventkey_checkins_total",
			Help: "Validation attempts by outcome",
		}, []string{"outcome"}),

		CheckInLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "eventkey_checkin_duration_seconds",
			Help:    "Duration of validate-and-check-in including store calls",
			Buckets: []float64{0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eventkey_event_cache_lookups_total",
			Help: "Event cache lookups by result",
		}, []string{"result"}), // result: "hit", "miss"

		DashboardStream: f.NewGauge(prometheus.GaugeOpts{
			Name: "eventkey_dashboard_streams",
			Help: "Open organizer dashboard streams",
		}),
	}
}

// TicketIssued implements ticketing.Recorder.
func (m *Metrics) TicketIssued(created bool) {
	if m == nil {
		return
	}
	result := "existing"
	if created {
		result = "created"
	}
	m.TicketsIssued.WithLabelValues(result).Inc()
}

// CheckIn implements ticketing.Recorder.
func (m *Metrics) CheckIn(outcome ticketing.Outcome, took time.Duration) {
	if m == nil {
		return
	}
	m.CheckIns.WithLabelValues(string(outcome)).Inc()
	m.CheckInLatency.Observe(took.Seconds())
}

// CacheLookup records an event cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// StreamOpened and StreamClosed track live dashboard subscribers.
func (m *Metrics) StreamOpened() {
	if m != nil {
		m.DashboardStream.Inc()
	}
}

func (m *Metrics) StreamClosed() {
	if m != nil {
		m.DashboardStream.Dec()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }
