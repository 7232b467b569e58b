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

// Общие HTTP-метрики
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

// Метрики аутентификации
var (
	gateDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_gate_decisions_total",
			Help: "Request gate outcomes.",
		},
		[]string{"outcome"},
	)

	loginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)
)

// Gate outcomes.
const (
	GatePublic        = "public"
	GateAllowed       = "allowed"
	GateNoSession     = "no_session"
	GateExpired       = "expired"
	GateForbidden     = "forbidden"
	GateRedirected    = "redirected"
	GateBackendFailed = "backend_unavailable"
)

var initOnce sync.Once

// Init registers metrics in the default registry. Safe to call repeatedly.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration, gateDecisions, loginAttempts)
	})
}

// Handler exposes the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordGate counts one gate decision.
func RecordGate(outcome string) {
	gateDecisions.WithLabelValues(outcome).Inc()
}

// RecordLogin counts one login attempt.
func RecordLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}

// Instrument measures request rate, latency and concurrency.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := NewStatusWriter(w)
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.Status())
		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

// CanonicalPath collapses identifiers and asset names so label cardinality
// stays bounded.
func CanonicalPath(raw string) string {
	path := raw
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	for _, prefix := range []string{"/_next/", "/static/"} {
		if strings.HasPrefix(path, prefix) {
			return prefix + "*"
		}
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "department":
		return "/department/:id"
	case len(parts) == 3 && parts[0] == "api" && parts[1] == "users":
		return "/api/users/:id"
	}
	return path
}

// StatusWriter remembers the response status code.
type StatusWriter struct {
	http.ResponseWriter
	code int
}

func NewStatusWriter(w http.ResponseWriter) *StatusWriter {
	return &StatusWriter{ResponseWriter: w, code: http.StatusOK}
}

func (w *StatusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *StatusWriter) Status() int { return w.code }
