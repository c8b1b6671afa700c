// Package metrics owns the Prometheus collectors of the service.  A nil
// *Metrics is valid and records nothing, which keeps tests and optional
// wiring simple.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contacts"

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	cache    *prometheus.CounterVec
	mail     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.  It panics if a
// collector is already registered, like prometheus.MustRegister.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "principal_cache",
			Name:      "lookups_total",
			Help:      "Principal cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
		mail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mail",
			Name:      "events_total",
			Help:      "Mail events by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	reg.MustRegister(m.requests, m.latency, m.cache, m.mail)
	return m
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

// CacheLookup records the result of a principal cache read.
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cache.WithLabelValues(result).Inc()
}

// MailEvent records a published, failed, delivered or rejected mail event.
func (m *Metrics) MailEvent(kind, outcome string) {
	if m == nil {
		return
	}
	m.mail.WithLabelValues(kind, outcome).Inc()
}

// Handler exposes the collectors of g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
