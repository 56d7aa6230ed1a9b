package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the application's Prometheus metrics.
type Metrics struct {
	registry             *prometheus.Registry
	handler              http.Handler
	requestsTotal        *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	transactionsTotal    *prometheus.CounterVec
	payrollRunsTotal     *prometheus.CounterVec
	postingLinesObserved prometheus.Histogram
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grundbok_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grundbok_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	transactions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grundbok_transactions_total",
		Help: "Ledger transaction commits by outcome.",
	}, []string{"outcome"})
	payrollRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grundbok_payroll_runs_total",
		Help: "Payroll posting runs by outcome.",
	}, []string{"outcome"})
	postingLines := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "grundbok_posting_lines",
		Help:    "Posting line count per committed transaction.",
		Buckets: []float64{2, 5, 10, 20, 50, 100},
	})
	registry.MustRegister(requests, duration, transactions, payrollRuns, postingLines)
	return &Metrics{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:        requests,
		requestDuration:      duration,
		transactionsTotal:    transactions,
		payrollRunsTotal:     payrollRuns,
		postingLinesObserved: postingLines,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveTransaction counts one commit attempt by outcome and records the
// line count on success.
func (m *Metrics) ObserveTransaction(outcome string, lines int) {
	if m == nil {
		return
	}
	m.transactionsTotal.WithLabelValues(outcome).Inc()
	if outcome == "committed" {
		m.postingLinesObserved.Observe(float64(lines))
	}
}

// ObservePayrollRun counts one payroll posting run by outcome.
func (m *Metrics) ObservePayrollRun(outcome string) {
	if m == nil {
		return
	}
	m.payrollRunsTotal.WithLabelValues(outcome).Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
