package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"firmware-catalog/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "hooks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return &SQLiteRepo{DB: database}
}

func TestRepositoryCRUD(t *testing.T) {
	repo := newRepo(t)

	hooks, err := repo.List()
	require.NoError(t, err)
	assert.Empty(t, hooks)

	id, err := repo.Create(Webhook{URL: "https://a.example/hook", Events: []string{EventCatalogLoaded, EventBuildDownloaded}, Enabled: true})
	require.NoError(t, err)
	assert.Positive(t, id)

	hooks, err = repo.List()
	require.NoError(t, err)
	require.Len(t, hooks, 1)
	assert.Equal(t, []string{EventCatalogLoaded, EventBuildDownloaded}, hooks[0].Events)
	assert.True(t, hooks[0].Enabled)

	require.NoError(t, repo.Update(id, Webhook{URL: "https://b.example/hook", Events: []string{EventCatalogFailed}}))
	hooks, _ = repo.List()
	assert.Equal(t, "https://b.example/hook", hooks[0].URL)
	assert.False(t, hooks[0].Enabled)

	assert.ErrorIs(t, repo.Update(999, Webhook{}), ErrNotFound)
	require.NoError(t, repo.Delete(id))
	assert.ErrorIs(t, repo.Delete(id), ErrNotFound)
}

func TestDispatchDeliversSignedPayload(t *testing.T) {
	var (
		mu       sync.Mutex
		received []EventPayload
		sigOK    bool
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var p EventPayload
		_ = json.Unmarshal(body, &p)

		mu.Lock()
		received = append(received, p)
		sigOK = r.Header.Get(SignatureHeader) == Sign([]byte("s3cret"), body)
		mu.Unlock()
	}))
	defer ts.Close()

	repo := newRepo(t)
	_, err := repo.Create(Webhook{URL: ts.URL, Events: []string{EventBuildDownloaded}, Enabled: true})
	require.NoError(t, err)
	_, err = repo.Create(Webhook{URL: ts.URL, Events: []string{EventBuildDownloaded}, Enabled: false})
	require.NoError(t, err)
	_, err = repo.Create(Webhook{URL: ts.URL, Events: []string{EventCatalogLoaded}, Enabled: true})
	require.NoError(t, err)

	svc := &Service{Repo: repo, Secret: "s3cret", TimeoutSec: 2}
	svc.Dispatch(EventBuildDownloaded, DownloadEvent{DisplayName: "openwrt-x86-64", URL: "https://dl/x", Identity: "203.0.113.7"})
	svc.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1, "only the enabled subscriber of this event")
	assert.Equal(t, EventBuildDownloaded, received[0].Event)
	assert.True(t, sigOK)
}

func TestDeliverRetries(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	repo := newRepo(t)
	_, err := repo.Create(Webhook{URL: ts.URL, Events: []string{EventCatalogEmpty}, Enabled: true})
	require.NoError(t, err)

	svc := &Service{Repo: repo, TimeoutSec: 2, Retries: 3, Backoff: time.Millisecond}
	svc.Dispatch(EventCatalogEmpty, CatalogEvent{})
	svc.Wait()

	assert.Equal(t, int32(3), attempts.Load())
}

func TestNilServiceIsNoop(t *testing.T) {
	var svc *Service
	svc.Dispatch(EventCatalogLoaded, nil)
	svc.Wait()
}
