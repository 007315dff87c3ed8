package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Smooth spaces calls evenly, period/calls apart, using a token bucket with
// a burst of one.
type Smooth struct {
	limiter *rate.Limiter
	clock   Clock
}

// NewSmooth creates an evenly spaced limiter.
func NewSmooth(calls int, period time.Duration, clock Clock) *Smooth {
	if clock == nil {
		clock = RealClock
	}
	return &Smooth{
		limiter: rate.NewLimiter(rate.Every(period/time.Duration(calls)), 1),
		clock:   clock,
	}
}

func (s *Smooth) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := s.clock.Now()
	r := s.limiter.ReserveN(now, 1)
	if !r.OK() {
		return fmt.Errorf("rate limiter: reservation refused")
	}

	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	select {
	case <-s.clock.After(delay):
		return nil
	case <-ctx.Done():
		r.CancelAt(s.clock.Now())
		return ctx.Err()
	}
}
