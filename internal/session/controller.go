// Package session owns the single browsing session: identity, catalog,
// filters, selection and the download countdown.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"firmware-catalog/internal/catalog"
	"firmware-catalog/internal/gate"
	"firmware-catalog/internal/metrics"
	"firmware-catalog/internal/webhook"

	"github.com/rs/zerolog/log"
)

// ErrNoSelection is returned by Download when nothing is selected.
var ErrNoSelection = errors.New("no firmware selected")

// ErrNotVisible is returned by Select for a URL outside the visible list.
var ErrNotVisible = errors.New("build is not in the current list")

// Status is the outcome of the last catalog load.
type Status string

const (
	StatusIdle  Status = "idle"
	StatusReady Status = "ready"
	StatusEmpty Status = "empty"
	StatusError Status = "error"
)

// Feed provides raw releases.
type Feed interface {
	Fetch(ctx context.Context) ([]catalog.RawRelease, error)
}

// IdentityResolver provides the client identity; it never fails.
type IdentityResolver interface {
	Resolve(ctx context.Context) string
}

// Notifier receives session events.
type Notifier interface {
	Dispatch(event string, data any)
}

// Snapshot is a copy of the session state safe to hand to callers.
type Snapshot struct {
	Identity  string
	Status    Status
	LoadError string
	Catalog   []catalog.BuildRecord
	Filter    catalog.Filter
	Selection *catalog.BuildRecord
}

// Controller is the only owner of session state. Every exported method
// runs under one mutex, so user interactions never interleave.
type Controller struct {
	Feed     Feed
	Identity IdentityResolver
	Gate     *gate.Gate
	Builder  catalog.Builder
	Notifier Notifier

	// Tick is the countdown poll interval.
	Tick time.Duration
	// Now is the clock; defaults to time.Now.
	Now func() time.Time

	// loadMu keeps one feed load in flight; mu guards the state below.
	loadMu    sync.Mutex
	mu        sync.Mutex
	identity  string
	status    Status
	loadErr   string
	records   []catalog.BuildRecord
	filter    catalog.Filter
	selection *catalog.BuildRecord
	countdown *gate.Countdown

	// remaining is written by the countdown goroutine without taking mu.
	remaining atomic.Int64
}

// New returns a Controller with default filter and idle status.
func New(feed Feed, resolver IdentityResolver, g *gate.Gate) *Controller {
	return &Controller{
		Feed:     feed,
		Identity: resolver,
		Gate:     g,
		Tick:     time.Second,
		status:   StatusIdle,
		filter:   catalog.DefaultFilter(),
	}
}

func (c *Controller) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Init resolves the identity once, then loads the catalog.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	resolved := c.identity != ""
	c.mu.Unlock()

	if !resolved && c.Identity != nil {
		id := c.Identity.Resolve(ctx)
		c.mu.Lock()
		c.identity = id
		c.mu.Unlock()
		log.Info().Str("identity", id).Msg("Session identity resolved")
	}
	return c.Load(ctx)
}

// Load fetches the feed and rebuilds the catalog. On success the catalog is
// replaced; on failure or an empty result the previous catalog is dropped.
// Concurrent calls run one after the other, so the last call to start is the
// last to store its result. The returned error is informational: the state
// already reflects it.
func (c *Controller) Load(ctx context.Context) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	start := time.Now()
	var (
		records []catalog.BuildRecord
		err     error
	)
	releases, err := c.Feed.Fetch(ctx)
	if err == nil {
		records, err = c.Builder.Build(releases)
	}

	c.mu.Lock()
	c.stopCountdownLocked()
	c.selection = nil
	switch {
	case err == nil:
		c.records, c.status, c.loadErr = records, StatusReady, ""
	case errors.Is(err, catalog.ErrEmptyCatalog):
		c.records, c.status, c.loadErr = nil, StatusEmpty, err.Error()
	default:
		c.records, c.status, c.loadErr = nil, StatusError, err.Error()
	}
	status, n := c.status, len(c.records)
	c.mu.Unlock()

	metrics.RecordCatalogLoad(loadResult(status), n, time.Since(start))

	switch status {
	case StatusReady:
		log.Info().Int("builds", n).Msg("Catalog loaded")
		c.notify(webhook.EventCatalogLoaded, webhook.CatalogEvent{Builds: n})
	case StatusEmpty:
		log.Info().Msg("Catalog is empty")
		c.notify(webhook.EventCatalogEmpty, webhook.CatalogEvent{})
	default:
		log.Error().Err(err).Msg("Error loading firmware data")
		c.notify(webhook.EventCatalogFailed, webhook.CatalogEvent{Error: err.Error()})
	}
	return err
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Identity:  c.identity,
		Status:    c.status,
		LoadError: c.loadErr,
		Catalog:   c.records,
		Filter:    c.filter,
	}
	if c.selection != nil {
		sel := *c.selection
		s.Selection = &sel
	}
	return s
}

// SetFilter replaces the filter. A new category or device clears the
// selection and countdown; a query or sort change only re-filters the list.
func (c *Controller) SetFilter(f catalog.Filter) {
	if f.Category == "" {
		f.Category = catalog.FilterAll
	}
	if f.Device == "" {
		f.Device = catalog.FilterAll
	}
	f.Sort = catalog.ParseSortKey(string(f.Sort))

	c.mu.Lock()
	defer c.mu.Unlock()
	narrowed := f.Category != c.filter.Category || f.Device != c.filter.Device
	c.filter = f
	if narrowed {
		c.selection = nil
		c.stopCountdownLocked()
	}
}

// Visible returns the catalog subset for the current filter.
func (c *Controller) Visible() []catalog.BuildRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return catalog.Search(c.records, c.filter)
}

// Select makes the visible build with the given URL the selection. If the
// gate is locked the countdown starts.
func (c *Controller) Select(ctx context.Context, url string) (catalog.BuildRecord, gate.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var found *catalog.BuildRecord
	for _, r := range catalog.Search(c.records, c.filter) {
		if r.URL == url {
			found = &r
			break
		}
	}
	if found == nil {
		return catalog.BuildRecord{}, gate.Unlocked, ErrNotVisible
	}

	c.stopCountdownLocked()
	c.selection = found

	st, err := c.Gate.Check(ctx, c.identity, c.now())
	if err != nil {
		return *found, gate.Unlocked, err
	}
	if st.Locked {
		c.startCountdownLocked(st.Remaining)
	}
	return *found, st, nil
}

// ClearSelection drops the selection and cancels the countdown.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = nil
	c.stopCountdownLocked()
}

// GateState reports the gate for the session identity right now.
func (c *Controller) GateState(ctx context.Context) (gate.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Gate.Check(ctx, c.identity, c.now())
}

// Remaining is the last value published by the countdown, zero when no
// countdown is running.
func (c *Controller) Remaining() time.Duration {
	return time.Duration(c.remaining.Load())
}

// Countdown reports the gate state as last published by the running
// countdown. ok is false when no countdown has been started for the
// current selection.
func (c *Controller) Countdown() (st gate.State, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.countdown == nil {
		return gate.Unlocked, false
	}
	remaining := c.Remaining()
	return gate.State{Locked: remaining > 0, Remaining: remaining}, true
}

// Download triggers the gate for the selection and returns the URL to open.
// While locked it returns gate.ErrLocked with the current state.
func (c *Controller) Download(ctx context.Context) (string, gate.State, error) {
	c.mu.Lock()
	if c.selection == nil {
		c.mu.Unlock()
		return "", gate.Unlocked, ErrNoSelection
	}
	sel := *c.selection
	identity := c.identity

	st, err := c.Gate.Trigger(ctx, identity, sel.URL, c.now())
	if err != nil {
		if errors.Is(err, gate.ErrLocked) {
			metrics.RecordDownload(false)
			if c.countdown == nil {
				c.startCountdownLocked(st.Remaining)
			}
		}
		c.mu.Unlock()
		return "", st, err
	}
	metrics.RecordDownload(true)
	if st.Locked {
		c.startCountdownLocked(st.Remaining)
	}
	c.mu.Unlock()

	c.notify(webhook.EventBuildDownloaded, webhook.DownloadEvent{
		DisplayName: sel.DisplayName,
		URL:         sel.URL,
		Identity:    identity,
	})
	return sel.URL, st, nil
}

// AdjustedCount is the download count as shown to this client.
func (c *Controller) AdjustedCount(ctx context.Context, r catalog.BuildRecord) int64 {
	c.mu.Lock()
	identity := c.identity
	c.mu.Unlock()
	return c.Gate.AdjustedCount(ctx, identity, r.URL, r.DownloadCount)
}

// Close cancels the countdown. The controller must not be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopCountdownLocked()
}

func (c *Controller) startCountdownLocked(remaining time.Duration) {
	c.stopCountdownLocked()
	c.remaining.Store(int64(remaining))
	deadline := c.now().Add(remaining)
	c.countdown = gate.StartCountdown(deadline, c.Tick, c.Now, func(d time.Duration) {
		c.remaining.Store(int64(d))
	})
}

func (c *Controller) stopCountdownLocked() {
	c.countdown.Stop()
	c.countdown = nil
	c.remaining.Store(0)
}

func loadResult(s Status) string {
	switch s {
	case StatusReady:
		return metrics.LoadReady
	case StatusEmpty:
		return metrics.LoadEmpty
	default:
		return metrics.LoadError
	}
}

func (c *Controller) notify(event string, data any) {
	if c.Notifier != nil {
		c.Notifier.Dispatch(event, data)
	}
}
