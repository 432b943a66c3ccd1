package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	UpstreamRequestsTotal *prometheus.CounterVec
	UpstreamDuration      *prometheus.HistogramVec

	ListFetchesTotal   *prometheus.CounterVec
	StaleFetchesTotal  *prometheus.CounterVec
	ExportsTotal       *prometheus.CounterVec
	StatusChangesTotal *prometheus.CounterVec

	LiveConnections prometheus.Gauge

	AuditEntriesTotal  prometheus.Counter
	AuditBufferDropped prometheus.Counter
}

// NewCollector registers every metric on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func NewCollector(serviceName string, reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)

	return &Collector{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		UpstreamRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Calls to the upstream API by operation and outcome kind.",
		}, []string{"op", "outcome"}),

		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Upstream API latency distribution.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"op"}),

		ListFetchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "listview",
			Name:      "fetches_total",
			Help:      "List page fetches by resource and result.",
		}, []string{"resource", "result"}),

		StaleFetchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "listview",
			Name:      "stale_responses_total",
			Help:      "Responses discarded because a newer fetch was issued.",
		}, []string{"resource"}),

		ExportsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "listview",
			Name:      "exports_total",
			Help:      "Spreadsheet exports by resource and result.",
		}, []string{"resource", "result"}),

		StatusChangesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "listview",
			Name:      "status_changes_total",
			Help:      "Approve/reject actions by resource, target status and result.",
		}, []string{"resource", "status", "result"}),

		LiveConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "live",
			Name:      "connections",
			Help:      "Open live list-view websocket connections.",
		}),

		AuditEntriesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total audit log entries written.",
		}),

		AuditBufferDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "buffer_dropped_total",
			Help:      "Audit entries dropped due to full buffer. Alert if non-zero.",
		}),
	}
}

// UpstreamCall implements upstream.Observer.
func (c *Collector) UpstreamCall(op, outcome string, seconds float64) {
	c.UpstreamRequestsTotal.WithLabelValues(op, outcome).Inc()
	c.UpstreamDuration.WithLabelValues(op).Observe(seconds)
}

// FetchCompleted implements listview.Observer.
func (c *Collector) FetchCompleted(resource string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.ListFetchesTotal.WithLabelValues(resource, result).Inc()
}

// FetchDiscarded implements listview.Observer.
func (c *Collector) FetchDiscarded(resource string) {
	c.StaleFetchesTotal.WithLabelValues(resource).Inc()
}

// ExportCompleted implements listview.Observer.
func (c *Collector) ExportCompleted(resource string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.ExportsTotal.WithLabelValues(resource, result).Inc()
}

// StatusChanged counts one approve/reject attempt.
func (c *Collector) StatusChanged(resource, status string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.StatusChangesTotal.WithLabelValues(resource, status, result).Inc()
}

// AuditWritten implements service.AuditMetrics.
func (c *Collector) AuditWritten() { c.AuditEntriesTotal.Inc() }

func (c *Collector) AuditDropped() { c.AuditBufferDropped.Inc() }

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
