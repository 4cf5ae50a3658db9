package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics хранит метрики Prometheus сервиса.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal        *prometheus.CounterVec
	HTTPRequestDuration      *prometheus.HistogramVec
	GraphQLOperationsTotal   *prometheus.CounterVec
	GraphQLOperationDuration *prometheus.HistogramVec
}

// NewMetrics регистрирует метрики в собственном реестре,
// поэтому ее можно вызывать несколько раз (например, в тестах).
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "showcase"
	}
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		GraphQLOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graphql_operations_total",
				Help:      "Total number of executed GraphQL operations",
			},
			[]string{"operation_type", "status"},
		),
		GraphQLOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "graphql_operation_duration_seconds",
				Help:      "GraphQL operation latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation_type"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GraphQLOperationsTotal,
		m.GraphQLOperationDuration,
	)
	return m
}

// RecordOperation учитывает выполненную GraphQL-операцию. Безопасно для nil.
func (m *Metrics) RecordOperation(operationType string, failed bool, d time.Duration) {
	if m == nil {
		return
	}
	status := statusSuccess
	if failed {
		status = statusError
	}
	m.GraphQLOperationsTotal.WithLabelValues(operationType, status).Inc()
	m.GraphQLOperationDuration.WithLabelValues(operationType).Observe(d.Seconds())
}

// Handler отдает метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware считает HTTP-запросы и их длительность.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
