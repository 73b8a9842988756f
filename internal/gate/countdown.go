package gate

import (
	"context"
	"sync"
	"time"
)

// Countdown polls the time left until a deadline and reports it on every
// tick. It stops by itself once the remaining time reaches zero. The owner
// must call Stop whenever the countdown no longer applies.
type Countdown struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// StartCountdown reports deadline-now(), floored at zero, to onTick every
// interval until it reaches zero or the countdown is stopped. now defaults to
// time.Now.
func StartCountdown(deadline time.Time, interval time.Duration, now func() time.Time, onTick func(time.Duration)) *Countdown {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Countdown{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				remaining := max(deadline.Sub(now()), 0)
				onTick(remaining)
				if remaining == 0 {
					return
				}
			}
		}
	}()
	return c
}

// Stop cancels the countdown and waits for its goroutine to exit. onTick is
// never called after Stop returns. Safe on a nil or already stopped
// Countdown. Must not be called from inside onTick.
func (c *Countdown) Stop() {
	if c == nil {
		return
	}
	c.once.Do(c.cancel)
	<-c.done
}

// Done is closed when the countdown has finished or been stopped.
func (c *Countdown) Done() <-chan struct{} {
	return c.done
}
