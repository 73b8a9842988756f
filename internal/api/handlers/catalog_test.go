package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"firmware-catalog/internal/catalog"
	"firmware-catalog/internal/gate"
	"firmware-catalog/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticFeed struct {
	releases []catalog.RawRelease
	err      error
}

func (f *staticFeed) Fetch(context.Context) ([]catalog.RawRelease, error) {
	return f.releases, f.err
}

type staticIdentity string

func (s staticIdentity) Resolve(context.Context) string { return string(s) }

const (
	x86URL    = "https://dl.example/openwrt-x86.img.gz"
	s905x4URL = "https://dl.example/immortalwrt-s905x4.img.gz"
)

func newCatalogHandler(t *testing.T, f *staticFeed) *CatalogHandler {
	t.Helper()
	ctrl := session.New(f, staticIdentity("198.51.100.4"), gate.New(gate.NewMemoryStore(), time.Minute))
	ctrl.Tick = time.Hour
	t.Cleanup(ctrl.Close)
	_ = ctrl.Init(context.Background())
	return &CatalogHandler{Session: ctrl}
}

func defaultFeed() *staticFeed {
	return &staticFeed{releases: []catalog.RawRelease{{
		PublishedAt: "2024-02-02T00:00:00Z",
		Assets: []catalog.RawAsset{
			{Name: "openwrt-x86-64-generic-20240202.img.gz", BrowserDownloadURL: x86URL, Size: 2048, DownloadCount: 1500},
			{Name: "immortalwrt-s905x4-20240202.img.gz", BrowserDownloadURL: s905x4URL, Size: 1024, DownloadCount: 4},
			{Name: "sha256sums", BrowserDownloadURL: "https://dl.example/sha256sums"},
		},
	}}}
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

func TestCatalogStatus(t *testing.T) {
	h := newCatalogHandler(t, defaultFeed())

	rr := do(t, h, http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	dto := decode[CatalogDTO](t, rr)
	assert.Equal(t, session.StatusReady, dto.Status)
	assert.Equal(t, "198.51.100.4", dto.Identity)
	assert.Equal(t, 2, dto.Facets.Total)
	assert.Equal(t, 1, dto.Facets.Categories[catalog.CategoryImmortalWrt])
	assert.Equal(t, 1, dto.Facets.Devices[catalog.DeviceX86_64])
	assert.Equal(t, 0, dto.Facets.Devices[catalog.DeviceNanoPi])
}

func TestCatalogReloadAfterFailure(t *testing.T) {
	f := &staticFeed{err: assert.AnError}
	h := newCatalogHandler(t, f)

	dto := decode[CatalogDTO](t, do(t, h, http.MethodGet, "/api/catalog", nil))
	assert.Equal(t, session.StatusError, dto.Status)
	assert.NotEmpty(t, dto.Error)

	f.err, f.releases = nil, defaultFeed().releases
	rr := do(t, h, http.MethodPost, "/api/catalog/reload", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	dto = decode[CatalogDTO](t, rr)
	assert.Equal(t, session.StatusReady, dto.Status)
	assert.Empty(t, dto.Error)
}

func TestBuildsHonourFilters(t *testing.T) {
	h := newCatalogHandler(t, defaultFeed())

	builds := decode[[]catalog.BuildDTO](t, do(t, h, http.MethodGet, "/api/builds", nil))
	require.Len(t, builds, 2)

	rr := do(t, h, http.MethodPut, "/api/filters", catalog.Filter{Device: "x86_64"})
	require.Equal(t, http.StatusOK, rr.Code)
	f := decode[catalog.Filter](t, rr)
	assert.Equal(t, catalog.FilterAll, f.Category)

	builds = decode[[]catalog.BuildDTO](t, do(t, h, http.MethodGet, "/api/builds", nil))
	require.Len(t, builds, 1)
	assert.Equal(t, "openwrt-x86-64-generic", builds[0].DisplayName)
	assert.Equal(t, "2.0 KB", builds[0].SizeLabel)
	assert.Equal(t, "1.5K", builds[0].DownloadCountLabel)
	assert.Equal(t, "02/02/2024", builds[0].DateLabel)
}

func TestFiltersRejectUnknownValues(t *testing.T) {
	h := newCatalogHandler(t, defaultFeed())

	rr := do(t, h, http.MethodPut, "/api/filters", catalog.Filter{Category: "lede"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = do(t, h, http.MethodPut, "/api/filters", catalog.Filter{Device: "toaster"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSelectAndDownload(t *testing.T) {
	h := newCatalogHandler(t, defaultFeed())

	rr := do(t, h, http.MethodPost, "/api/download", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodPut, "/api/selection", SelectRequest{URL: x86URL})
	require.Equal(t, http.StatusOK, rr.Code)
	sel := decode[SelectionDTO](t, rr)
	require.NotNil(t, sel.Build)
	assert.False(t, sel.Locked)
	assert.Equal(t, LabelDownload, sel.Label)
	assert.Equal(t, int64(1500), sel.Build.DownloadCount)

	rr = do(t, h, http.MethodPost, "/api/download", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, x86URL, decode[DownloadDTO](t, rr).URL)

	rr = do(t, h, http.MethodPost, "/api/download", nil)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	locked := decode[SelectionDTO](t, rr)
	assert.True(t, locked.Locked)
	assert.Positive(t, locked.RemainingMs)
	assert.Contains(t, locked.Label, "Wait... ")

	sel = decode[SelectionDTO](t, do(t, h, http.MethodGet, "/api/selection", nil))
	require.NotNil(t, sel.Build)
	assert.Equal(t, int64(1499), sel.Build.DownloadCount)
	assert.True(t, sel.Locked)
}

func TestSelectHiddenBuild(t *testing.T) {
	h := newCatalogHandler(t, defaultFeed())
	do(t, h, http.MethodPut, "/api/filters", catalog.Filter{Category: "openwrt"})

	rr := do(t, h, http.MethodPut, "/api/selection", SelectRequest{URL: s905x4URL})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodPut, "/api/selection", SelectRequest{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestClearSelection(t *testing.T) {
	h := newCatalogHandler(t, defaultFeed())
	do(t, h, http.MethodPut, "/api/selection", SelectRequest{URL: x86URL})

	rr := do(t, h, http.MethodDelete, "/api/selection", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	sel := decode[SelectionDTO](t, do(t, h, http.MethodGet, "/api/selection", nil))
	assert.Nil(t, sel.Build)
}

func TestMethodNotAllowed(t *testing.T) {
	h := newCatalogHandler(t, defaultFeed())
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodDelete, "/api/catalog", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/download", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodPost, "/api/selection", nil).Code)
}

func TestDownloadLabel(t *testing.T) {
	assert.Equal(t, "Download", DownloadLabel(gate.Unlocked))
	assert.Equal(t, "Wait... 0:59", DownloadLabel(gate.State{Locked: true, Remaining: 59 * time.Second}))
	assert.Equal(t, "Wait... 1:00", DownloadLabel(gate.State{Locked: true, Remaining: time.Minute}))
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestSelectionFollowsCountdown(t *testing.T) {
	clk := &testClock{t: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
	ctrl := session.New(defaultFeed(), staticIdentity("198.51.100.4"), gate.New(gate.NewMemoryStore(), time.Minute))
	ctrl.Now = clk.Now
	ctrl.Tick = 5 * time.Millisecond
	t.Cleanup(ctrl.Close)
	require.NoError(t, ctrl.Init(context.Background()))
	h := &CatalogHandler{Session: ctrl}

	do(t, h, http.MethodPut, "/api/selection", SelectRequest{URL: x86URL})
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/download", nil).Code)

	sel := decode[SelectionDTO](t, do(t, h, http.MethodGet, "/api/selection", nil))
	assert.Equal(t, "Wait... 1:00", sel.Label)

	clk.Advance(18 * time.Second)
	assert.Eventually(t, func() bool {
		sel := decode[SelectionDTO](t, do(t, h, http.MethodGet, "/api/selection", nil))
		return sel.Label == "Wait... 0:42" && sel.RemainingMs == 42000
	}, time.Second, 5*time.Millisecond)

	rr := do(t, h, http.MethodPost, "/api/download", nil)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "42", rr.Header().Get("Retry-After"))

	clk.Advance(time.Minute)
	assert.Eventually(t, func() bool {
		sel := decode[SelectionDTO](t, do(t, h, http.MethodGet, "/api/selection", nil))
		return !sel.Locked && sel.Label == LabelDownload
	}, time.Second, 5*time.Millisecond)
}
