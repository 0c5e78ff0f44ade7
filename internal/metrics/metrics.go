// Package metrics exposes pipeline counters in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the pipeline metrics and the registry they live in.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	Items          *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	FetchResponses *prometheus.CounterVec
	Runs           *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	items := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Identifiers or files handled per stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each stage",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"stage"},
	)

	fetchResponses := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_responses_total",
			Help:      "Upstream responses by HTTP status code",
		},
		[]string{"code"},
	)

	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by final status",
		},
		[]string{"status"},
	)

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "status"},
	)

	registry.MustRegister(items, stageDuration, fetchResponses, runs, httpRequests)

	return &Collector{
		registry:       registry,
		Items:          items,
		StageDuration:  stageDuration,
		FetchResponses: fetchResponses,
		Runs:           runs,
		HTTPRequests:   httpRequests,
	}
}

// Handler serves the registry for scraping
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveStage records the outcome counts and duration of one stage
func (c *Collector) ObserveStage(stage string, succeeded, failed, skipped int, d time.Duration) {
	if c == nil {
		return
	}
	c.Items.WithLabelValues(stage, "succeeded").Add(float64(succeeded))
	c.Items.WithLabelValues(stage, "failed").Add(float64(failed))
	c.Items.WithLabelValues(stage, "skipped").Add(float64(skipped))
	c.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveFetch counts one upstream response
func (c *Collector) ObserveFetch(code int) {
	if c == nil {
		return
	}
	c.FetchResponses.WithLabelValues(strconv.Itoa(code)).Inc()
}

// ObserveRun counts a finished run
func (c *Collector) ObserveRun(status string) {
	if c == nil {
		return
	}
	c.Runs.WithLabelValues(status).Inc()
}

// ObserveRequest counts one API request
func (c *Collector) ObserveRequest(method string, code int) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}
