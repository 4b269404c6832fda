package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		burst    int
		calls    int
		wantPass int
	}{
		{name: "burst allows initial requests", burst: 3, calls: 3, wantPass: 3},
		{name: "exceeding burst blocks", burst: 2, calls: 5, wantPass: 2},
		{name: "zero burst still allows one", burst: 0, calls: 2, wantPass: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(1, tt.burst, 0)
			defer rl.Stop()

			passed := 0
			for i := 0; i < tt.calls; i++ {
				if rl.Allow("1.2.3.4") {
					passed++
				}
			}
			assert.Equal(t, tt.wantPass, passed)
		})
	}
}

func TestKeyedRateLimiter_KeysIndependent(t *testing.T) {
	rl := New(1, 1, 0)
	defer rl.Stop()

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 2, rl.Len())
}

func TestKeyedRateLimiter_Evict(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := New(60, 5, time.Minute)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(50 * time.Second)
	rl.Allow("fresh")
	now = now.Add(20 * time.Second)

	assert.Equal(t, 1, rl.Evict())
	assert.Equal(t, 1, rl.Len())

	assert.Equal(t, 0, New(60, 5, 0).Evict())
}

func TestKeyedRateLimiter_RunStops(t *testing.T) {
	rl := New(60, 5, time.Millisecond)
	done := make(chan struct{})
	go func() {
		rl.Run(time.Millisecond)
		close(done)
	}()
	rl.Stop()
	rl.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
