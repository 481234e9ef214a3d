// Package metrics exposes Prometheus instrumentation for the auth service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the service counters and the HTTP request instruments.
type Metrics struct {
	loginTotal    *prometheus.CounterVec
	registerTotal *prometheus.CounterVec
	refreshTotal  *prometheus.CounterVec
	logoutTotal   *prometheus.CounterVec
	reuseDetected prometheus.Counter

	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers and returns the service metrics. Double registration
// (tests constructing the app more than once) is tolerated.
func New(namespace string) *Metrics {
	m := &Metrics{
		loginTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "login_total",
				Help:      "Login attempts by outcome.",
			},
			[]string{"outcome"},
		),
		registerTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "register_total",
				Help:      "Registration attempts by role and outcome.",
			},
			[]string{"role", "outcome"},
		),
		refreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "refresh_total",
				Help:      "Refresh-token rotations by outcome.",
			},
			[]string{"outcome"},
		),
		logoutTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "logout_total",
				Help:      "Logouts by scope (single, all).",
			},
			[]string{"scope"},
		),
		reuseDetected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "refresh_reuse_detected_total",
				Help:      "Refresh tokens replayed after rotation.",
			},
		),
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method, path and status.",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	register(m.loginTotal)
	register(m.registerTotal)
	register(m.refreshTotal)
	register(m.logoutTotal)
	register(m.reuseDetected)
	register(m.requestCount)
	register(m.requestDuration)

	return m
}

func register(c prometheus.Collector) {
	if err := prometheus.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			panic(err)
		}
	}
}

// ObserveLogin records one login attempt.
func (m *Metrics) ObserveLogin(ok bool) {
	m.loginTotal.WithLabelValues(outcome(ok)).Inc()
}

// ObserveRegister records one registration attempt.
func (m *Metrics) ObserveRegister(role string, ok bool) {
	m.registerTotal.WithLabelValues(role, outcome(ok)).Inc()
}

// ObserveRefresh records one rotation attempt. Outcome is one of
// "success", "denied", "reuse".
func (m *Metrics) ObserveRefresh(result string) {
	m.refreshTotal.WithLabelValues(result).Inc()
}

// ObserveLogout records one logout by scope ("single" or "all").
func (m *Metrics) ObserveLogout(scope string) {
	m.logoutTotal.WithLabelValues(scope).Inc()
}

// ReuseDetected records one replayed rotated refresh token.
func (m *Metrics) ReuseDetected() {
	m.reuseDetected.Inc()
}

// Handler serves the Prometheus scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware instruments request count and latency. The route surface is
// small and fixed, so the raw path is a safe label.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(wrapped, r)

		m.requestCount.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(wrapped.status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
