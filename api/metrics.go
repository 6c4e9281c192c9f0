package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warp/leave-engine/leave"
)

// Metrics holds the Prometheus collectors exposed at /metrics.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	rosterEmployees *prometheus.GaugeVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leave",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leave",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leave",
			Name:      "request_transitions_total",
			Help:      "Leave request lifecycle operations by action and outcome.",
		}, []string{"action", "outcome"}),
		rosterEmployees: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "leave",
			Name:      "roster_employees",
			Help:      "Employees per manager in each status bucket for today.",
		}, []string{"manager", "bucket"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.transitions,
		m.rosterEmployees,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records count and latency per matched chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveTransition counts one lifecycle operation. A nil receiver is a no-op
// so handlers work with metrics disabled.
func (m *Metrics) ObserveTransition(action string, err error) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, outcome(err)).Inc()
}

// SetRoster publishes one manager's bucket sizes.
func (m *Metrics) SetRoster(managerID leave.EmployeeID, counts leave.StatusCounts) {
	if m == nil {
		return
	}
	id := string(managerID)
	m.rosterEmployees.WithLabelValues(id, "working").Set(float64(counts.Working))
	m.rosterEmployees.WithLabelValues(id, "on_leave").Set(float64(counts.OnLeave))
	m.rosterEmployees.WithLabelValues(id, "pending_leave").Set(float64(counts.PendingLeave))
}

// ResetRoster drops every roster gauge, e.g. after a scenario reload.
func (m *Metrics) ResetRoster() {
	if m == nil {
		return
	}
	m.rosterEmployees.Reset()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, leave.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, leave.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, leave.ErrValidation):
		return "invalid"
	case errors.Is(err, leave.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
