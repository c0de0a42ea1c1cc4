// Package ratelimit paces outbound requests. The pipeline drives every
// contact lookup through one Limiter so a single session never bursts.
package ratelimit

import (
	"context"
	"math/rand"
	"time"
)

// Limiter spaces operations at a fixed interval with optional jitter on top.
// Safe for concurrent use, though the pipeline only ever waits from one
// goroutine.
type Limiter struct {
	ticker   *time.Ticker
	jitter   float64
	interval time.Duration
	ch       <-chan time.Time
}

// NewLimiter builds a limiter allowing rps operations per second. A jitter
// factor in [0, 1] stretches each wait by up to that fraction of the
// interval. With rps <= 0, Wait never blocks.
func NewLimiter(rps float64, jitter float64) *Limiter {
	if rps <= 0 {
		return &Limiter{jitter: jitter}
	}
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}

	interval := time.Duration(float64(time.Second) / rps)
	ticker := time.NewTicker(interval)
	return &Limiter{
		ticker:   ticker,
		jitter:   jitter,
		interval: interval,
		ch:       ticker.C,
	}
}

// Wait blocks until the next slot, plus any jitter, or until ctx is
// canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.ch == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ch:
	}

	if l.jitter == 0 {
		return nil
	}

	// Draw in [-1, 1); the ticker already enforces the minimum interval,
	// so only a positive draw adds a delay.
	extra := time.Duration(float64(l.interval) * l.jitter * ((rand.Float64() * 2) - 1))
	if extra <= 0 {
		return nil
	}
	select {
	case <-time.After(extra):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop releases the underlying ticker.
func (l *Limiter) Stop() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
}
