package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window is a sliding-log limiter: no more than calls starts in any
// half-open interval of length period.
//
// Slots are reserved under the lock in arrival order, so waiters are served
// FIFO. A caller whose context ends before its slot gives the slot back.
type Window struct {
	mu     sync.Mutex
	calls  int
	period time.Duration
	clock  Clock

	// scheduled start times, ascending; entries older than one period are pruned
	log []time.Time
}

// NewWindow creates a sliding window limiter.
func NewWindow(calls int, period time.Duration, clock Clock) *Window {
	if clock == nil {
		clock = RealClock
	}
	return &Window{
		calls:  calls,
		period: period,
		clock:  clock,
		log:    make([]time.Time, 0, calls*2),
	}
}

// Wait reserves the next free slot and sleeps until it starts.
func (w *Window) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	at := w.reserve()
	delay := at.Sub(w.clock.Now())
	if delay <= 0 {
		return nil
	}

	select {
	case <-w.clock.After(delay):
		return nil
	case <-ctx.Done():
		w.release(at)
		return ctx.Err()
	}
}

func (w *Window) reserve() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()
	w.prune(now)

	at := now
	if n := len(w.log); n >= w.calls {
		if next := w.log[n-w.calls].Add(w.period); next.After(at) {
			at = next
		}
	}
	w.log = append(w.log, at)
	return at
}

// prune drops entries that can no longer share a window with a call
// starting at or after now.
func (w *Window) prune(now time.Time) {
	cutoff := now.Add(-w.period)
	i := 0
	for i < len(w.log) && !w.log[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.log = append(w.log[:0], w.log[i:]...)
	}
}

func (w *Window) release(at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := len(w.log) - 1; i >= 0; i-- {
		if w.log[i].Equal(at) {
			w.log = append(w.log[:i], w.log[i+1:]...)
			return
		}
	}
}
