package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "survey3"

// Metrics holds the service collectors. A nil *Metrics records nothing, so
// components built without a registry need no special casing.
type Metrics struct {
	gatherer prometheus.Gatherer

	requests       *prometheus.CounterVec
	requestSeconds *prometheus.HistogramVec
	uploads        *prometheus.CounterVec
	uploadSeconds  prometheus.Histogram
	fetches        *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
}

// New registers the collectors with reg. Passing a fresh
// prometheus.NewRegistry() keeps tests independent of the default registry.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route pattern and status code",
		}, []string{"method", "route", "status"}),
		requestSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pin_uploads_total",
			Help:      "Blob uploads to the pinning service by result",
		}, []string{"result"}),
		uploadSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pin_upload_duration_seconds",
			Help:      "Latency of blob uploads to the pinning service",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_fetches_total",
			Help:      "Gateway blob fetches by result",
		}, []string{"result"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_cache_lookups_total",
			Help:      "Blob cache lookups by result (hit or miss)",
		}, []string{"result"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) ObserveUpload(err error, d time.Duration) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result(err)).Inc()
	m.uploadSeconds.Observe(d.Seconds())
}

// ObserveFetch counts one gateway fetch; retries count as separate fetches.
func (m *Metrics) ObserveFetch(err error) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
}
