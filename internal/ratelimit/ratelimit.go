// Package ratelimit gates pipeline invocations per user with a sliding
// window: at most Limit requests in any span of Window.
//
// A hit recorded at t counts against every instant in [t, t+Window).
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Store holds the hit log. Implementations must make TryAdd atomic with
// respect to concurrent callers sharing the store.
type Store interface {
	// Count returns the hits for key after since and the oldest of them.
	Count(ctx context.Context, key string, since time.Time) (int, time.Time, error)
	// Add records a hit unconditionally.
	Add(ctx context.Context, key string, at time.Time) error
	// TryAdd records a hit at now only if fewer than limit hits exist after
	// since. It returns the count before the attempt and the oldest hit.
	TryAdd(ctx context.Context, key string, now, since time.Time, limit int) (count int, oldest time.Time, added bool, err error)
}

// Decision is the outcome of a check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter applies a per-user sliding window over a Store.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New returns a Limiter allowing limit requests per window.
func New(store Store, limit int, window time.Duration, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("ratelimit: store is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("ratelimit: limit must be positive, got %d", limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("ratelimit: window must be positive, got %s", window)
	}
	l := &Limiter{store: store, limit: limit, window: window, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Check reports whether userID may make a request now without recording one.
func (l *Limiter) Check(ctx context.Context, userID int64) (Decision, error) {
	now := l.now()
	n, oldest, err := l.store.Count(ctx, key(userID), now.Add(-l.window))
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: check: %w", err)
	}
	return l.decide(now, n, oldest, false), nil
}

// Record counts one request for userID regardless of the current window.
func (l *Limiter) Record(ctx context.Context, userID int64) error {
	if err := l.store.Add(ctx, key(userID), l.now()); err != nil {
		return fmt.Errorf("ratelimit: record: %w", err)
	}
	return nil
}

// Allow checks and records in one atomic step. A denied request is not
// recorded, so the window never holds more than the limit.
func (l *Limiter) Allow(ctx context.Context, userID int64) (Decision, error) {
	now := l.now()
	n, oldest, added, err := l.store.TryAdd(ctx, key(userID), now, now.Add(-l.window), l.limit)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: allow: %w", err)
	}
	return l.decide(now, n, oldest, added), nil
}

func (l *Limiter) decide(now time.Time, n int, oldest time.Time, added bool) Decision {
	used := n
	if added {
		used++
	}
	d := Decision{Limit: l.limit, Remaining: max(l.limit-used, 0)}
	if added || n < l.limit {
		d.Allowed = true
		return d
	}
	if !oldest.IsZero() {
		d.RetryAfter = max(oldest.Add(l.window).Sub(now), 0)
	}
	return d
}

func key(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}
