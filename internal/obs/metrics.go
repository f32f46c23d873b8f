package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Domain metrics
var (
	AuditWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lms_audit_write_failures_total",
		Help: "Audit entries that could not be persisted.",
	})

	EnrollmentOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_enrollment_attempts_total",
			Help: "Enrollment attempts by outcome.",
		},
		[]string{"outcome"},
	)

	BackupsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lms_backups_created_total",
		Help: "Database backups written.",
	})

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lms_ready",
		Help: "1 when the last readiness probe succeeded.",
	})
)

var initOnce sync.Once

// Init registers metrics in the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			AuditWriteFailures, EnrollmentOutcomes, BackupsCreated, ready,
		)
	})
}

// SetReady records the outcome of a readiness probe.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
		return
	}
	ready.Set(0)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument measures request rate, latency and concurrency per canonical route.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

// CanonicalPath collapses identifiers in API paths so metric labels stay bounded.
// /api/courses/01J.../modules becomes /api/courses/:id/modules.
func CanonicalPath(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" {
		return "/"
	}
	if !strings.HasPrefix(raw, "/api/") {
		return raw
	}
	parts := strings.Split(strings.Trim(raw, "/"), "/")
	// parts[0] == "api", parts[1] == resource
	for i := 2; i < len(parts); i++ {
		switch {
		case parts[1] == "enrollments" && i == 2 && parts[i] == "check":
			if i+1 < len(parts) {
				parts[i+1] = ":id"
				i++
			}
		case parts[1] == "analytics" || parts[1] == "settings" || parts[1] == "auth":
		case parts[1] == "audit-logs" && parts[i] == "export":
		case parts[1] == "backup" && i == 2:
			parts[i] = ":file"
		case i == 2:
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush lets streamed downloads pass through the instrumented writer.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
