package gate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type tickLog struct {
	mu    sync.Mutex
	ticks []time.Duration
}

func (l *tickLog) add(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ticks = append(l.ticks, d)
}

func (l *tickLog) snapshot() []time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]time.Duration(nil), l.ticks...)
}

func TestCountdownStopsAtZero(t *testing.T) {
	var log tickLog
	c := StartCountdown(time.Now().Add(30*time.Millisecond), 5*time.Millisecond, nil, log.add)

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not finish on its own")
	}

	ticks := log.snapshot()
	if assert.NotEmpty(t, ticks) {
		assert.Equal(t, time.Duration(0), ticks[len(ticks)-1])
	}
	c.Stop() // idempotent after completion
}

func TestCountdownStop(t *testing.T) {
	var log tickLog
	c := StartCountdown(time.Now().Add(time.Hour), 5*time.Millisecond, nil, log.add)

	time.Sleep(30 * time.Millisecond)
	c.Stop()
	n := len(log.snapshot())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, len(log.snapshot()), "no ticks after Stop")
	c.Stop()
}

func TestCountdownUsesClock(t *testing.T) {
	fixed := time.Unix(1000, 0)
	var log tickLog
	c := StartCountdown(fixed.Add(42*time.Second), 5*time.Millisecond, func() time.Time { return fixed }, log.add)
	time.Sleep(20 * time.Millisecond)
	c.Stop()

	for _, d := range log.snapshot() {
		assert.Equal(t, 42*time.Second, d)
	}
}

func TestNilCountdownStop(t *testing.T) {
	var c *Countdown
	c.Stop()
}
