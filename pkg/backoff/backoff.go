// Package backoff provides a generic exponential backoff retry helper.
//
// The log and status pollers deliberately do not use it: on failure they
// pause and wait for a manual retry or the next successful tick instead of
// hammering the backend. It is intended for one-shot calls such as the
// initial health probe.
package backoff

import (
	"context"
	"time"
)

// Policy describes an exponential backoff schedule.
type Policy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	MaxAttempts  int
}

// Default is a conservative schedule: 500ms, 1s, 2s, 4s, 8s.
var Default = Policy{
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     8 * time.Second,
	Multiplier:   2.0,
	MaxAttempts:  5,
}

// Retry runs fn until it succeeds, the attempt budget is exhausted, or the
// context is cancelled. The last error is returned on failure.
func (p Policy) Retry(ctx context.Context, fn func(ctx context.Context) error) error {
	delay := p.InitialDelay
	if delay <= 0 {
		delay = Default.InitialDelay
	}
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = Default.MaxAttempts
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * p.multiplier())
			if p.MaxDelay > 0 && delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}

		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

func (p Policy) multiplier() float64 {
	if p.Multiplier <= 1 {
		return Default.Multiplier
	}
	return p.Multiplier
}
