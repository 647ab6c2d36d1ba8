package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medtriage_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medtriage_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medtriage_chat_turns_total",
			Help: "Chat turns by outcome (ok, fallback, rate_limited)",
		},
		[]string{"outcome"},
	)

	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medtriage_analyses_total",
			Help: "Risk analyses by outcome (ok, fallback)",
		},
		[]string{"outcome"},
	)

	remoteCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medtriage_reasoner_call_duration_seconds",
			Help:    "Reasoning service call latency in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 30},
		},
		[]string{"provider", "operation", "status"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "medtriage_active_sessions",
			Help: "Conversation sessions currently held in memory",
		},
	)

	initOnce sync.Once
)

// InitMetrics registers the collectors with the default registry.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			turnsTotal,
			analysesTotal,
			remoteCallDuration,
			activeSessions,
		)
	})
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

func RecordTurn(outcome string) {
	turnsTotal.WithLabelValues(outcome).Inc()
}

func RecordAnalysis(outcome string) {
	analysesTotal.WithLabelValues(outcome).Inc()
}

func RecordRemoteCall(provider, operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	remoteCallDuration.WithLabelValues(provider, operation, status).Observe(time.Since(start).Seconds())
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// HTTPMetrics records request counts and latency labelled by chi route pattern.
func HTTPMetrics(next http.Handler) http.Handler {
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
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
