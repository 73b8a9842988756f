package handlers

import (
	"net/http"
	"path/filepath"
	"testing"

	"firmware-catalog/internal/db"
	"firmware-catalog/internal/webhook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWebhookHandler(t *testing.T) *WebhookHandler {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return &WebhookHandler{Repo: &webhook.SQLiteRepo{DB: database}}
}

func TestWebhookLifecycle(t *testing.T) {
	h := newWebhookHandler(t)

	rr := do(t, h, http.MethodPost, "/api/webhooks", webhook.WebhookDTO{
		URL:    "https://hooks.example/dl",
		Events: []string{webhook.EventBuildDownloaded},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	created := decode[map[string]int64](t, rr)
	id := created["id"]
	require.Positive(t, id)

	hooks := decode[[]webhook.WebhookDTO](t, do(t, h, http.MethodGet, "/api/webhooks", nil))
	require.Len(t, hooks, 1)
	require.NotNil(t, hooks[0].Enabled)
	assert.True(t, *hooks[0].Enabled, "enabled defaults to true")

	disabled := false
	rr = do(t, h, http.MethodPut, "/api/webhooks/1", webhook.WebhookDTO{
		URL:     "https://hooks.example/dl",
		Events:  []string{webhook.EventCatalogFailed},
		Enabled: &disabled,
	})
	require.Equal(t, http.StatusOK, rr.Code)

	hooks = decode[[]webhook.WebhookDTO](t, do(t, h, http.MethodGet, "/api/webhooks", nil))
	assert.False(t, *hooks[0].Enabled)
	assert.Equal(t, []string{webhook.EventCatalogFailed}, hooks[0].Events)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodDelete, "/api/webhooks/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/webhooks/1", nil).Code)
}

func TestWebhookValidation(t *testing.T) {
	h := newWebhookHandler(t)

	rr := do(t, h, http.MethodPost, "/api/webhooks", webhook.WebhookDTO{URL: "https://hooks.example"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/webhooks", webhook.WebhookDTO{
		URL:    "https://hooks.example",
		Events: []string{"firmware.uploaded"},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/webhooks/abc", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodPatch, "/api/webhooks", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPut, "/api/webhooks/42", webhook.WebhookDTO{
		URL:    "https://hooks.example",
		Events: []string{webhook.EventCatalogLoaded},
	}).Code)
}
