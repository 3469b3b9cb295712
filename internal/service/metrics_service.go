package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation. A nil service is
// valid and drops every observation, so callers never need to guard.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	enrollDecisions *prometheus.CounterVec
	legajoRecomputs *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	enrollDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_decisions_total",
		Help: "Course enrollment attempts by outcome (accepted or rejection code)",
	}, []string{"outcome"})

	legajoRecomputs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "legajo_recomputations_total",
		Help: "Legajo checklist recomputations by resulting status",
	}, []string{"status"})

	registry.MustRegister(requestDuration, requestTotal, enrollDecisions, legajoRecomputs)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		enrollDecisions: enrollDecisions,
		legajoRecomputs: legajoRecomputs,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	if s == nil {
		return promhttp.Handler()
	}
	return s.handler
}

// ObserveHTTPRequest records one handled HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// IncEnrollmentDecision counts one enrollment attempt outcome.
func (s *MetricsService) IncEnrollmentDecision(outcome string) {
	if s == nil {
		return
	}
	s.enrollDecisions.WithLabelValues(outcome).Inc()
}

// IncLegajoRecompute counts one legajo recomputation.
func (s *MetricsService) IncLegajoRecompute(status string) {
	if s == nil {
		return
	}
	s.legajoRecomputs.WithLabelValues(status).Inc()
}
