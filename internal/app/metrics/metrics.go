package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "finterm",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finterm",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finterm",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	providerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finterm",
			Subsystem: "providers",
			Name:      "requests_total",
			Help:      "Total number of upstream provider fetch attempts.",
		},
		[]string{"provider", "panel", "outcome"},
	)

	fallbackDepth = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finterm",
			Subsystem: "providers",
			Name:      "fallback_depth",
			Help:      "Position in the fallback chain that served each refresh (1 = primary).",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
		[]string{"panel"},
	)

	refreshRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finterm",
			Subsystem: "refresh",
			Name:      "runs_total",
			Help:      "Total number of refresh job runs.",
		},
		[]string{"job", "result"},
	)

	refreshDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finterm",
			Subsystem: "refresh",
			Name:      "run_duration_seconds",
			Help:      "Duration of refresh job runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"job"},
	)

	quietSkips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finterm",
			Subsystem: "refresh",
			Name:      "quiet_hour_skips_total",
			Help:      "Refresh runs skipped because the quiet-hours window was active.",
		},
		[]string{"job"},
	)

	wsClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "finterm",
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Currently connected WebSocket clients.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		providerRequests,
		fallbackDepth,
		refreshRuns,
		refreshDuration,
		quietSkips,
		wsClients,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordProviderRequest counts one upstream fetch attempt.
func RecordProviderRequest(provider, panel string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	providerRequests.WithLabelValues(provider, panel, outcome).Inc()
}

// RecordFallbackDepth records which chain position served a refresh.
func RecordFallbackDepth(panel string, depth int) {
	if depth <= 0 {
		return
	}
	fallbackDepth.WithLabelValues(panel).Observe(float64(depth))
}

// RecordRefresh records the result and duration of a refresh job run.
func RecordRefresh(job, result string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	refreshRuns.WithLabelValues(job, result).Inc()
	refreshDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordQuietSkip counts a refresh skipped by the quiet-hours window.
func RecordQuietSkip(job string) {
	quietSkips.WithLabelValues(job).Inc()
}

// SetStreamClients updates the connected WebSocket client gauge.
func SetStreamClients(n int) {
	wsClients.Set(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// canonicalPath collapses identifier segments so the label set stays bounded.
func canonicalPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "panels" {
		parts[2] = ":id"
	}
	return "/" + strings.Join(parts, "/")
}
