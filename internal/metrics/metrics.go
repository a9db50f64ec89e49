package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ajiri"

// Collector holds every metric the server exports.
type Collector struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	ocrDuration   *prometheus.HistogramVec
	modelDuration *prometheus.HistogramVec
	documents     *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status.",
			}, []string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method", "route"},
		),
		ocrDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ocr_duration_seconds",
				Help:      "Textract call latency.",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 60},
			}, []string{"outcome"},
		),
		modelDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "model_invoke_duration_seconds",
				Help:      "Bedrock invoke latency.",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 60, 120},
			}, []string{"outcome"},
		),
		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_processed_total",
				Help:      "Processed documents by extraction kind and status.",
			}, []string{"kind", "status"},
		),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequests,
		c.httpDuration,
		c.ocrDuration,
		c.modelDuration,
		c.documents,
	)
	return c
}

func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveOCR(err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.ocrDuration.WithLabelValues(outcome(err)).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveModel(err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.modelDuration.WithLabelValues(outcome(err)).Observe(elapsed.Seconds())
}

func (c *Collector) IncDocument(kind, status string) {
	if c == nil {
		return
	}
	c.documents.WithLabelValues(kind, status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
