// Package gate rate-limits download triggers per client identity.
//
// A client is Unlocked until it triggers a download, then Locked for the
// cooldown window. The transition back to Unlocked happens purely by
// elapsed time; nothing expires stored state. This shapes the client's own
// UI and is not a security control.
package gate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultCooldown is the window between two permitted downloads.
const DefaultCooldown = 60 * time.Second

// ErrLocked is returned by Trigger while the cooldown is running.
var ErrLocked = errors.New("download locked, cooldown in progress")

// State is the gate state for one identity at one instant.
type State struct {
	Locked    bool
	Remaining time.Duration // zero when unlocked
}

// Unlocked is the zero State.
var Unlocked = State{}

// Gate evaluates and records download triggers.
type Gate struct {
	Store    Store
	Cooldown time.Duration
}

// New returns a Gate over store. A non-positive cooldown uses DefaultCooldown.
func New(store Store, cooldown time.Duration) *Gate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Gate{Store: store, Cooldown: cooldown}
}

// DelayKey holds the last trigger time (epoch ms) for an identity.
func DelayKey(identity string) string {
	return "download_delay_" + identity
}

// DownloadedKey marks that identity has downloaded url at least once.
func DownloadedKey(url, identity string) string {
	return "downloaded_" + url + "_" + identity
}

// Check reports whether identity may trigger a download at now. An empty
// identity (not resolved yet) is always Unlocked. It never writes.
func (g *Gate) Check(ctx context.Context, identity string, now time.Time) (State, error) {
	if identity == "" {
		return Unlocked, nil
	}
	v, ok, err := g.Store.Get(ctx, DelayKey(identity))
	if err != nil {
		return Unlocked, fmt.Errorf("read gate state: %w", err)
	}
	if !ok {
		return Unlocked, nil
	}
	lastMs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Warn().
			Str("identity", identity).
			Str("value", v).
			Msg("Ignoring unparseable download delay")
		return Unlocked, nil
	}

	remaining := g.Cooldown - time.Duration(now.UnixMilli()-lastMs)*time.Millisecond
	if remaining <= 0 {
		return Unlocked, nil
	}
	return State{Locked: true, Remaining: remaining}, nil
}

// Trigger records a download of url by identity at now. While locked it
// records nothing and returns the current state with ErrLocked. An empty
// identity is permitted and nothing is recorded.
func (g *Gate) Trigger(ctx context.Context, identity, url string, now time.Time) (State, error) {
	st, err := g.Check(ctx, identity, now)
	if err != nil {
		return st, err
	}
	if st.Locked {
		log.Info().
			Str("identity", identity).
			Dur("remaining", st.Remaining).
			Msg("Download refused, cooldown in progress")
		return st, ErrLocked
	}
	if identity == "" {
		return Unlocked, nil
	}

	if err := g.Store.Set(ctx, DelayKey(identity), strconv.FormatInt(now.UnixMilli(), 10)); err != nil {
		return Unlocked, fmt.Errorf("write gate state: %w", err)
	}

	key := DownloadedKey(url, identity)
	_, seen, err := g.Store.Get(ctx, key)
	if err != nil {
		return Unlocked, fmt.Errorf("read download marker: %w", err)
	}
	if !seen {
		if err := g.Store.Set(ctx, key, "true"); err != nil {
			return Unlocked, fmt.Errorf("write download marker: %w", err)
		}
	}

	log.Info().
		Str("identity", identity).
		Str("url", url).
		Bool("first_download", !seen).
		Msg("Download permitted")
	return State{Locked: true, Remaining: g.Cooldown}, nil
}

// AdjustedCount hides the client's own earlier download from the displayed
// count. It is cosmetic and never affects the gate.
func (g *Gate) AdjustedCount(ctx context.Context, identity, url string, count int64) int64 {
	if identity == "" {
		return count
	}
	_, seen, err := g.Store.Get(ctx, DownloadedKey(url, identity))
	if err != nil || !seen {
		return count
	}
	return max(count-1, 0)
}

// FormatRemaining renders a countdown label as m:ss.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%d:%02d", ms/60000, (ms%60000)/1000)
}
