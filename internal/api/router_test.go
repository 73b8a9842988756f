package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"firmware-catalog/internal/api/handlers"
	"firmware-catalog/internal/catalog"
	"firmware-catalog/internal/db"
	"firmware-catalog/internal/gate"
	"firmware-catalog/internal/session"
	"firmware-catalog/internal/webhook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emptyFeed struct{}

func (emptyFeed) Fetch(context.Context) ([]catalog.RawRelease, error) {
	return []catalog.RawRelease{}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "router.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	ctrl := session.New(emptyFeed{}, nil, gate.New(&gate.SQLiteStore{DB: database}, time.Minute))
	t.Cleanup(ctrl.Close)
	_ = ctrl.Init(context.Background())

	return NewRouter(
		&handlers.CatalogHandler{Session: ctrl},
		&handlers.WebhookHandler{Repo: &webhook.SQLiteRepo{DB: database}},
	)
}

func TestRoutes(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/health", http.StatusOK},
		{http.MethodGet, "/api/catalog", http.StatusOK},
		{http.MethodGet, "/api/builds", http.StatusOK},
		{http.MethodGet, "/api/filters", http.StatusOK},
		{http.MethodGet, "/api/selection", http.StatusOK},
		{http.MethodPost, "/api/download", http.StatusConflict},
		{http.MethodGet, "/api/webhooks", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, tc.want, rr.Code)
		})
	}
}

func TestEmptyCatalogBuildsIsArray(t *testing.T) {
	router := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/builds", nil))
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))
	assert.Contains(t, rr.Body.String(), `"status":"empty"`)
}

func TestPathLabel(t *testing.T) {
	assert.Equal(t, "/api/builds", PathLabel("/api/builds"))
	assert.Equal(t, "/api/webhooks/{id}", PathLabel("/api/webhooks/17"))
	assert.Equal(t, "/swagger/", PathLabel("/swagger/index.html"))
	assert.Equal(t, "other", PathLabel("/api/whatever"))
	assert.Equal(t, "other", PathLabel("/favicon.ico"))
}

func TestCORSPreflight(t *testing.T) {
	h := CORSMiddleware([]string{"http://localhost:5173"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/download", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEqual(t, http.StatusTeapot, rr.Code)
}
