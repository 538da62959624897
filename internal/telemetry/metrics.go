package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// LLMBuckets spans 50ms to 2 minutes, the range of a whole-response
// generation call.
var LLMBuckets = []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts inbound requests by method, matched route pattern
	// and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palm_gateway_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "palm_gateway_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// BackendRequestsTotal counts backend calls by operation and outcome
	// ("ok", "error", "unavailable").
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palm_gateway_backend_requests_total",
			Help: "Backend requests",
		},
		[]string{"operation", "outcome"},
	)

	BackendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "palm_gateway_backend_latency_seconds",
			Help:    "Backend latency",
			Buckets: LLMBuckets,
		},
		[]string{"operation"},
	)

	// FallbacksTotal counts synthetic candidates by reason
	// ("filter", "error", "empty").
	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palm_gateway_fallbacks_total",
			Help: "Synthetic candidates substituted for empty backend results",
		},
		[]string{"route", "reason"},
	)

	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "palm_gateway_streaming_connections_active",
			Help: "Active emulated streams",
		},
	)

	StreamChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palm_gateway_stream_chunks_total",
			Help: "Emulated stream chunks written",
		},
		[]string{"route"},
	)

	RateLimitRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "palm_gateway_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		BackendRequestsTotal,
		BackendLatency,
		FallbacksTotal,
		StreamingConnections,
		StreamChunksTotal,
		RateLimitRejectedTotal,
	)
}

// MetricsMiddleware records RequestsTotal and RequestDuration. The route
// label is chi's matched pattern, or "unmatched", which keeps cardinality
// bounded for arbitrary 404 paths.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		statusStr := strconv.Itoa(sw.status/100) + "xx"

		RequestsTotal.WithLabelValues(r.Method, route, statusStr).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

// Flush is required for SSE responses.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
