// Package metrics provides Prometheus instrumentation for the copy bot.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CyclesTotal counts decision cycles by decision and log status.
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "copybot_cycles_total",
		Help: "Total number of decision cycles",
	}, []string{"decision", "status"})

	// CycleDuration tracks how long one decision cycle takes.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "copybot_cycle_duration_seconds",
		Help:    "Decision cycle duration in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
	})

	// FillsTotal counts ledger fills by outcome.
	FillsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "copybot_fills_total",
		Help: "Total number of ledger fills",
	}, []string{"outcome"})

	// OracleRequestsTotal counts decision oracle requests by source.
	OracleRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "copybot_oracle_requests_total",
		Help: "Decision oracle requests by source",
	}, []string{"source"})

	// OracleFallbacks counts decisions served by the local fallback table.
	OracleFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copybot_oracle_fallbacks_total",
		Help: "Decisions served by the fallback table after a remote failure",
	})

	// BalancePollFailures counts balance polls that failed and were swallowed.
	BalancePollFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copybot_balance_poll_failures_total",
		Help: "Failed balance polls",
	})

	// EngineArmed is 1 while the copy engine is armed.
	EngineArmed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "copybot_engine_armed",
		Help: "Whether the copy engine is armed",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "copybot_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "copybot_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "copybot_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request metrics labelled by the chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack is needed by the websocket upgrader.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}
