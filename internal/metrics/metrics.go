// Package metrics exposes Prometheus collectors for request lifecycle
// operations and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the subset of metrics used by the service layer.
type Recorder interface {
	RecordOperation(op, outcome string)
	RecordEventPublish(eventType string, err error)
}

// Outcome labels.
const (
	OutcomeOK           = "ok"
	OutcomeValidation   = "validation"
	OutcomeNotFound     = "not_found"
	OutcomeForbidden    = "forbidden"
	OutcomeInvalidState = "invalid_state"
	OutcomeConflict     = "conflict"
	OutcomeError        = "error"
)

// Collector implements Recorder on top of Prometheus.
type Collector struct {
	operations   *prometheus.CounterVec
	events       *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volunteer_request_operations_total",
			Help: "Request lifecycle operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volunteer_request_events_published_total",
			Help: "Lifecycle events handed to the message queue, by type and result.",
		}, []string{"type", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volunteer_http_requests_total",
			Help: "HTTP responses by method and status code.",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "volunteer_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(c.operations, c.events, c.httpRequests, c.httpLatency)
	return c
}

// RecordOperation counts one lifecycle operation.
func (c *Collector) RecordOperation(op, outcome string) {
	c.operations.WithLabelValues(op, outcome).Inc()
}

// RecordEventPublish counts one event publish attempt.
func (c *Collector) RecordEventPublish(eventType string, err error) {
	result := OutcomeOK
	if err != nil {
		result = OutcomeError
	}
	c.events.WithLabelValues(eventType, result).Inc()
}

// RecordHTTP counts one HTTP response.
func (c *Collector) RecordHTTP(method string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordOperation(string, string)   {}
func (Nop) RecordEventPublish(string, error) {}
