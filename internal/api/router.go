package api

import (
	"net/http"
	"slices"
	"strings"

	"firmware-catalog/internal/api/handlers"
	"firmware-catalog/internal/metrics"

	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter wires HTTP routes to handlers.
func NewRouter(ch *handlers.CatalogHandler, wh *handlers.WebhookHandler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", handlers.Health)
	mux.Handle("/api/catalog", ch)
	mux.Handle("/api/catalog/reload", ch)
	mux.Handle("/api/builds", ch)
	mux.Handle("/api/filters", ch)
	mux.Handle("/api/selection", ch)
	mux.Handle("/api/download", ch)
	mux.Handle("/api/webhooks", wh)
	mux.Handle("/api/webhooks/", wh)
	mux.Handle("/metrics", metrics.Handler())

	// Swagger UI at /swagger/index.html
	mux.HandleFunc("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

var knownPaths = []string{
	"/api/health", "/api/catalog", "/api/catalog/reload", "/api/builds",
	"/api/filters", "/api/selection", "/api/download", "/api/webhooks", "/metrics",
}

// PathLabel collapses request paths into a bounded set of metric labels.
func PathLabel(path string) string {
	switch {
	case slices.Contains(knownPaths, path):
		return path
	case strings.HasPrefix(path, "/api/webhooks/"):
		return "/api/webhooks/{id}"
	case strings.HasPrefix(path, "/swagger/"):
		return "/swagger/"
	default:
		return "other"
	}
}
