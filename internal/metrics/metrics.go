// Package metrics exposes Prometheus metrics for pipeline runs, event delivery, rate limiting
// and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recruiter"

// Collector holds the service's Prometheus metrics
type Collector struct {
	registry *prometheus.Registry

	// pipeline
	runsStarted   prometheus.Counter
	runsFinished  *prometheus.CounterVec
	runDuration   prometheus.Histogram
	runsInFlight  prometheus.Gauge
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	sourced       prometheus.Counter
	pitches       *prometheus.CounterVec

	// events
	eventsEmitted *prometheus.CounterVec
	subscribers   prometheus.Gauge

	// http
	rateLimited     *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewCollector creates a collector registered on its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_started_total",
			Help:      "Total number of pipeline runs started",
		}),
		runsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_finished_total",
			Help:      "Total number of pipeline runs finished, by outcome",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_run_duration_seconds",
			Help:      "Pipeline run duration in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		runsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_in_flight",
			Help:      "Current number of running pipelines",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Agent stage duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 90},
		}, []string{"agent"}),
		stageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_errors_total",
			Help:      "Total number of failed agent stages",
		}, []string{"agent"}),
		sourced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_sourced_total",
			Help:      "Total number of candidates sourced and saved",
		}),
		pitches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pitches_pregenerated_total",
			Help:      "Total number of pitch pre-generation attempts, by result",
		}, []string{"result"}),
		eventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_emitted_total",
			Help:      "Total number of pipeline events emitted, by type and whether an observer received them",
		}, []string{"type", "delivered"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_subscribers",
			Help:      "Current number of attached event observers",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		}, []string{"action"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		c.runsStarted,
		c.runsFinished,
		c.runDuration,
		c.runsInFlight,
		c.stageDuration,
		c.stageErrors,
		c.sourced,
		c.pitches,
		c.eventsEmitted,
		c.subscribers,
		c.rateLimited,
		c.requests,
		c.requestDuration,
	)
	return c
}

// Registry returns the registry the collector's metrics live on
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RunStarted records a pipeline run starting
func (c *Collector) RunStarted() {
	c.runsStarted.Inc()
	c.runsInFlight.Inc()
}

// RunFinished records a pipeline run ending with outcome
func (c *Collector) RunFinished(outcome string, d time.Duration) {
	c.runsInFlight.Dec()
	c.runsFinished.WithLabelValues(outcome).Inc()
	c.runDuration.Observe(d.Seconds())
}

// StageCompleted records one agent stage
func (c *Collector) StageCompleted(agent string, d time.Duration, err error) {
	c.stageDuration.WithLabelValues(agent).Observe(d.Seconds())
	if err != nil {
		c.stageErrors.WithLabelValues(agent).Inc()
	}
}

// CandidatesSourced records n saved candidates
func (c *Collector) CandidatesSourced(n int) {
	c.sourced.Add(float64(n))
}

// PitchGenerated records one pitch pre-generation attempt
func (c *Collector) PitchGenerated(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	c.pitches.WithLabelValues(result).Inc()
}

// EventEmitted records an emitted pipeline event
func (c *Collector) EventEmitted(eventType string, delivered bool) {
	c.eventsEmitted.WithLabelValues(eventType, strconv.FormatBool(delivered)).Inc()
}

// SubscribersChanged records the number of attached observers
func (c *Collector) SubscribersChanged(active int) {
	c.subscribers.Set(float64(active))
}

// RateLimited records a rejected request
func (c *Collector) RateLimited(action string) {
	c.rateLimited.WithLabelValues(action).Inc()
}

// ObserveRequest records one HTTP request. route is the matched route pattern, not the raw path.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
