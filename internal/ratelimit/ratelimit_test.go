package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func stores(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"sqlite": func() Store {
			s, err := OpenSQLiteStore(t.TempDir())
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := New(nil, 1, time.Minute)
	assert.Error(t, err)
	_, err = New(NewMemoryStore(), 0, time.Minute)
	assert.Error(t, err)
	_, err = New(NewMemoryStore(), 1, 0)
	assert.Error(t, err)
}

func TestAllow_ExactWindowBoundary(t *testing.T) {
	for name, mk := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := newFakeClock()
			l, err := New(mk(), 2, time.Minute, WithClock(clock.Now))
			require.NoError(t, err)

			d, err := l.Allow(ctx, 1)
			require.NoError(t, err)
			assert.True(t, d.Allowed)
			assert.Equal(t, 1, d.Remaining)

			clock.Advance(10 * time.Second)
			d, _ = l.Allow(ctx, 1)
			assert.True(t, d.Allowed)
			assert.Equal(t, 0, d.Remaining)

			d, _ = l.Allow(ctx, 1)
			assert.False(t, d.Allowed)
			assert.Equal(t, 50*time.Second, d.RetryAfter)

			// One nanosecond before the first hit expires: still denied.
			clock.Advance(50*time.Second - time.Nanosecond)
			d, _ = l.Allow(ctx, 1)
			assert.False(t, d.Allowed)
			assert.Equal(t, time.Nanosecond, d.RetryAfter)

			// Exactly one window after the first hit: a slot frees up.
			clock.Advance(time.Nanosecond)
			d, _ = l.Allow(ctx, 1)
			assert.True(t, d.Allowed)
			assert.Equal(t, 0, d.Remaining)
		})
	}
}

func TestAllow_DeniedCallsAreNotCounted(t *testing.T) {
	for name, mk := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := newFakeClock()
			store := mk()
			l, err := New(store, 1, time.Minute, WithClock(clock.Now))
			require.NoError(t, err)

			d, _ := l.Allow(ctx, 7)
			require.True(t, d.Allowed)
			for range 5 {
				d, _ = l.Allow(ctx, 7)
				assert.False(t, d.Allowed)
			}

			n, _, err := store.Count(ctx, key(7), clock.Now().Add(-time.Minute))
			require.NoError(t, err)
			assert.Equal(t, 1, n, "window must not exceed the cap")

			clock.Advance(time.Minute)
			d, _ = l.Allow(ctx, 7)
			assert.True(t, d.Allowed)
		})
	}
}

func TestAllow_UsersAreIndependent(t *testing.T) {
	ctx := context.Background()
	l, err := New(NewMemoryStore(), 1, time.Minute)
	require.NoError(t, err)

	d, _ := l.Allow(ctx, 1)
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, 2)
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, 1)
	assert.False(t, d.Allowed)
}

func TestCheckAndRecord(t *testing.T) {
	for name, mk := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := newFakeClock()
			l, err := New(mk(), 2, time.Minute, WithClock(clock.Now))
			require.NoError(t, err)

			d, err := l.Check(ctx, 3)
			require.NoError(t, err)
			assert.True(t, d.Allowed)
			assert.Equal(t, 2, d.Remaining)

			require.NoError(t, l.Record(ctx, 3))
			require.NoError(t, l.Record(ctx, 3))

			d, _ = l.Check(ctx, 3)
			assert.False(t, d.Allowed)
			assert.Equal(t, 0, d.Remaining)
			assert.Equal(t, time.Minute, d.RetryAfter)

			// Check never records.
			clock.Advance(time.Minute)
			d, _ = l.Check(ctx, 3)
			assert.True(t, d.Allowed)
			assert.Equal(t, 2, d.Remaining)
		})
	}
}

func TestAllow_ConcurrentCallersNeverExceedCap(t *testing.T) {
	const (
		limit   = 10
		callers = 40
	)
	for name, mk := range stores(t) {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			l, err := New(mk(), limit, time.Minute, WithClock(clock.Now))
			require.NoError(t, err)

			var allowed atomic.Int32
			var wg sync.WaitGroup
			for range callers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					d, err := l.Allow(context.Background(), 99)
					if err == nil && d.Allowed {
						allowed.Add(1)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(limit), allowed.Load())
		})
	}
}

func TestMemoryStore_OutOfOrderInsert(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	base := time.Unix(1000, 0)

	require.NoError(t, m.Add(ctx, "k", base.Add(2*time.Second)))
	require.NoError(t, m.Add(ctx, "k", base))

	n, oldest, err := m.Count(ctx, "k", base.Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, oldest.Equal(base))

	n, _, _ = m.Count(ctx, "k", base)
	assert.Equal(t, 1, n)
}
