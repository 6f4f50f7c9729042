// Package metrics holds the Prometheus collectors for the timeline service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Structural edits by operation and outcome (changed / noop / rejected)
	EditTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_edit_total",
			Help: "Timeline edit previews by operation and result",
		},
		[]string{"operation", "result"},
	)

	// Validation errors reported, by code
	ValidationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_validation_errors_total",
			Help: "Validation errors reported by code",
		},
		[]string{"code"},
	)

	// Phases written per batch save
	BatchSavePhases = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "timeline_batch_save_phases",
			Help:    "Number of phases written per batch save",
			Buckets: prometheus.LinearBuckets(1, 2, 10),
		},
	)

	// HTTP request latency (seconds)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)
)

// Edit results
const (
	ResultChanged  = "changed"
	ResultNoop     = "noop"
	ResultRejected = "rejected"
)

// RecordEdit counts one edit preview.
func RecordEdit(operation, result string) {
	EditTotal.WithLabelValues(operation, result).Inc()
}

// RecordValidationError counts one reported validation error.
func RecordValidationError(code string) {
	ValidationErrorsTotal.WithLabelValues(code).Inc()
}

// RecordBatchSave observes the size of a saved batch.
func RecordBatchSave(phases int) {
	BatchSavePhases.Observe(float64(phases))
}

// Middleware times requests by chi route pattern, so path parameters do not
// explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
