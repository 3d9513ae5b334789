// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package graph

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// RATE LIMITER
// =============================================================================

// Microsoft Graph throttles OneNote at roughly 120 requests per app per user
// in a rolling 10-minute window. We stay under it with a hard cap of 100 and
// additionally space requests at least 100ms apart so bursts of sequential
// fallback searches do not arrive as a spike.
const (
	windowLength   = 10 * time.Minute
	windowRequests = 100
	minGap         = 100 * time.Millisecond
)

// limiter enforces both constraints. Wait blocks until a request may be
// sent, or returns early when ctx is cancelled.
//
// limiter is safe for concurrent use.
type limiter struct {
	gap *rate.Limiter

	mu     sync.Mutex
	window []time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func newLimiter() *limiter {
	return &limiter{
		gap:   rate.NewLimiter(rate.Every(minGap), 1),
		now:   time.Now,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until both the minimum gap and the rolling window allow
// another request, then records it.
func (l *limiter) Wait(ctx context.Context) error {
	for {
		wait := l.reserveWindow()
		if wait == 0 {
			break
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
	return l.gap.Wait(ctx)
}

// reserveWindow records the request if the rolling window has room and
// returns 0, otherwise returns how long until the oldest entry ages out.
func (l *limiter) reserveWindow() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-windowLength)

	trimmed := l.window[:0]
	for _, t := range l.window {
		if t.After(cutoff) {
			trimmed = append(trimmed, t)
		}
	}
	l.window = trimmed

	if len(l.window) < windowRequests {
		l.window = append(l.window, now)
		return 0
	}
	return l.window[0].Sub(cutoff)
}

// InFlight reports how many requests are currently counted in the rolling
// window, for status output.
func (l *limiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-windowLength)
	n := 0
	for _, t := range l.window {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}
