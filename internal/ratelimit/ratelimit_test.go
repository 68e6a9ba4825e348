package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, limit rate.Limit, burst int) (*KeyedRateLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := New(limit, burst, WithClock(clock.Now), WithIdleTTL(time.Hour))
	t.Cleanup(rl.Stop)
	return rl, clock
}

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		burst    int
		calls    int
		wantPass int
	}{
		{"burst allows initial requests", 3, 3, 3},
		{"exceeding burst blocks", 2, 5, 2},
		{"single token", 1, 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl, _ := newTestLimiter(t, PerMinute(60), tt.burst)

			passed := 0
			for range tt.calls {
				if rl.Allow("client") {
					passed++
				}
			}
			assert.Equal(t, tt.wantPass, passed)
		})
	}
}

func TestKeyedRateLimiter_CheckReportsRetryAfter(t *testing.T) {
	rl, clock := newTestLimiter(t, PerMinute(60), 1)

	ok, wait := rl.Check("client")
	assert.True(t, ok)
	assert.Zero(t, wait)

	ok, wait = rl.Check("client")
	assert.False(t, ok)
	assert.InDelta(t, time.Second, wait, float64(10*time.Millisecond))

	// A refused request does not consume a token.
	clock.Advance(time.Second)
	ok, _ = rl.Check("client")
	assert.True(t, ok)
}

func TestKeyedRateLimiter_Refill(t *testing.T) {
	rl, clock := newTestLimiter(t, PerMinute(20), 2)

	assert.True(t, rl.Allow("client"))
	assert.True(t, rl.Allow("client"))
	assert.False(t, rl.Allow("client"))

	clock.Advance(3 * time.Second)
	assert.True(t, rl.Allow("client"))
	assert.False(t, rl.Allow("client"))
}

func TestKeyedRateLimiter_IndependentKeys(t *testing.T) {
	rl, _ := newTestLimiter(t, PerMinute(60), 1)

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 2, rl.Len())
}

func TestKeyedRateLimiter_EvictIdle(t *testing.T) {
	rl, clock := newTestLimiter(t, PerMinute(60), 1)

	rl.Allow("stale")
	clock.Advance(45 * time.Minute)
	rl.Allow("fresh")
	clock.Advance(30 * time.Minute)

	rl.evictIdle(clock.Now())
	assert.Equal(t, 1, rl.Len())

	// An evicted key starts over with a full bucket.
	assert.True(t, rl.Allow("stale"))
}

func TestKeyedRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := New(PerMinute(60), 1)
	rl.Stop()
	rl.Stop()
}
