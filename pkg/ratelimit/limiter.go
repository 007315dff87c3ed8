// Package ratelimit caps how many calls may start within a fixed window.
//
// MangaDex allows 5 requests per second per client. Every request made by
// the mangadex package goes through a Limiter first, and callers block until
// their slot comes up.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Strategy names accepted by New.
const (
	StrategyWindow = "window"
	StrategySmooth = "smooth"
)

// Defaults match the MangaDex global limit.
const (
	DefaultCalls  = 5
	DefaultPeriod = time.Second
)

// Limiter blocks callers until they are allowed to proceed.
type Limiter interface {
	// Wait blocks until a call may start or ctx is done.
	Wait(ctx context.Context) error
}

// Clock lets tests drive time.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock is the wall clock.
var RealClock Clock = realClock{}

// New builds a limiter for the given strategy allowing calls per period.
func New(strategy string, calls int, period time.Duration) (Limiter, error) {
	return NewWithClock(strategy, calls, period, RealClock)
}

// NewWithClock is New with an explicit clock.
func NewWithClock(strategy string, calls int, period time.Duration, clock Clock) (Limiter, error) {
	if calls <= 0 {
		return nil, fmt.Errorf("calls must be positive, got %d", calls)
	}
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %s", period)
	}

	switch strategy {
	case "", StrategyWindow:
		return NewWindow(calls, period, clock), nil
	case StrategySmooth:
		return NewSmooth(calls, period, clock), nil
	default:
		return nil, fmt.Errorf("unknown rate limit strategy %q", strategy)
	}
}

// Unlimited never blocks. Useful when talking to a local test server.
type Unlimited struct{}

func (Unlimited) Wait(ctx context.Context) error {
	return ctx.Err()
}
