// Package metrics records service metrics with Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "forecaster"

// Recorder holds the service collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	predictions      *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	callbacks        *prometheus.CounterVec
	queueDepth       prometheus.Gauge
}

// New creates a recorder on its own registry, including Go runtime and
// process collectors
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry creates a recorder whose collectors live on reg
func NewWithRegistry(reg *prometheus.Registry) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method"},
		),
		predictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_total",
				Help:      "Forecast requests by execution mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		pipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_duration_seconds",
				Help:      "Duration of a full pipeline run in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"frequency"},
		),
		callbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "callback_deliveries_total",
				Help:      "Webhook deliveries by outcome",
			},
			[]string{"outcome"},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "callback_queue_depth",
				Help:      "Asynchronous jobs waiting for a worker",
			},
		),
	}
}

// ObserveHTTP records one served request
func (r *Recorder) ObserveHTTP(route, method, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, status).Inc()
	r.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// RecordPrediction counts a request outcome; mode is sync or async
func (r *Recorder) RecordPrediction(mode, outcome string) {
	if r == nil {
		return
	}
	r.predictions.WithLabelValues(mode, outcome).Inc()
}

// ObservePipeline records the duration of one pipeline run
func (r *Recorder) ObservePipeline(frequency string, d time.Duration) {
	if r == nil {
		return
	}
	r.pipelineDuration.WithLabelValues(frequency).Observe(d.Seconds())
}

// RecordCallback counts a webhook delivery outcome
func (r *Recorder) RecordCallback(outcome string) {
	if r == nil {
		return
	}
	r.callbacks.WithLabelValues(outcome).Inc()
}

// SetQueueDepth reports the number of queued asynchronous jobs
func (r *Recorder) SetQueueDepth(n int) {
	if r == nil {
		return
	}
	r.queueDepth.Set(float64(n))
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the exposition format for this recorder's registry
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
