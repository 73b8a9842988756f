// Package metrics provides Prometheus metrics for the firmware catalog.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Catalog load outcomes.
const (
	LoadReady = "ready"
	LoadEmpty = "empty"
	LoadError = "error"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firmware_catalog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "firmware_catalog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	catalogLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firmware_catalog_loads_total",
			Help: "Catalog loads by outcome",
		},
		[]string{"result"},
	)

	catalogBuilds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "firmware_catalog_builds",
			Help: "Number of build records in the current catalog",
		},
	)

	catalogLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "firmware_catalog_load_duration_seconds",
			Help:    "Time to fetch the releases feed and build the catalog",
			Buckets: prometheus.DefBuckets,
		},
	)

	downloadTriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firmware_catalog_download_triggers_total",
			Help: "Download triggers by gate decision",
		},
		[]string{"result"},
	)

	identityLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firmware_catalog_identity_lookups_total",
			Help: "Identity lookups by outcome",
		},
		[]string{"result"},
	)
)

// RecordCatalogLoad records one load and the resulting catalog size.
func RecordCatalogLoad(result string, builds int, d time.Duration) {
	catalogLoadsTotal.WithLabelValues(result).Inc()
	catalogBuilds.Set(float64(builds))
	catalogLoadDuration.Observe(d.Seconds())
}

// RecordDownload records a permitted or locked download trigger.
func RecordDownload(permitted bool) {
	result := "locked"
	if permitted {
		result = "permitted"
	}
	downloadTriggersTotal.WithLabelValues(result).Inc()
}

// RecordIdentityLookup records whether the identity lookup succeeded.
func RecordIdentityLookup(ok bool) {
	result := "fallback"
	if ok {
		result = "ok"
	}
	identityLookupsTotal.WithLabelValues(result).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware counts requests and observes their latency. pathLabel maps a
// request path to a bounded label so ids and URLs do not explode the series.
func Middleware(pathLabel func(string) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			path := pathLabel(r.URL.Path)
			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}
