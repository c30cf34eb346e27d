// Package metrics exposes Prometheus collectors for the crawl gateway.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal            *prometheus.CounterVec
	httpRequestDurationSeconds   *prometheus.HistogramVec
	authRejectionsTotal          *prometheus.CounterVec
	contentProbeTotal            *prometheus.CounterVec
	crawlDispatchTotal           *prometheus.CounterVec
	crawlDispatchDurationSeconds *prometheus.HistogramVec
	crawlBytesTotal              *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "route"},
		)

		authRejectionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_rejections_total",
				Help: "Requests rejected by the token validator, labeled by reason.",
			},
			[]string{"reason"},
		)

		contentProbeTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_probe_total",
				Help: "Content-type classifications, labeled by how the answer was reached.",
			},
			[]string{"result"},
		)

		crawlDispatchTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawl_dispatch_total",
				Help: "Crawl dispatches, labeled by strategy and outcome.",
			},
			[]string{"strategy", "outcome"},
		)

		crawlDispatchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawl_dispatch_duration_seconds",
				Help:    "Histogram of retrieval durations, labeled by strategy.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"strategy"},
		)

		crawlBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawl_bytes_total",
				Help: "Total number of content bytes returned, labeled by site.",
			},
			[]string{"site"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware is a chi middleware that records HTTP request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePattern = rctx.RoutePattern()
		}
		ObserveHTTPRequest(r.Method, routePattern, ww.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveAuthRejection counts a 401/403 decision.
func ObserveAuthRejection(reason string) {
	Init()
	authRejectionsTotal.WithLabelValues(reason).Inc()
}

// ObserveProbe counts a classification ("suffix", "probe_pdf", "probe_other", "probe_error", "parse_error").
func ObserveProbe(result string) {
	Init()
	contentProbeTotal.WithLabelValues(result).Inc()
}

// ObserveDispatch records one dispatch outcome and its duration.
func ObserveDispatch(strategy, outcome string, duration time.Duration) {
	Init()
	crawlDispatchTotal.WithLabelValues(strategy, outcome).Inc()
	crawlDispatchDurationSeconds.WithLabelValues(strategy).Observe(duration.Seconds())
}

// ObserveContentBytes adds returned content size for the URL's site.
func ObserveContentBytes(rawURL string, n int) {
	if n <= 0 {
		return
	}
	Init()
	crawlBytesTotal.WithLabelValues(SanitizeSite(rawURL)).Add(float64(n))
}
