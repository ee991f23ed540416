package ws

import (
	"testing"
	"time"
)

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := newRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }
	rl.lastCheck = now

	if !rl.allow() || !rl.allow() {
		t.Fatal("burst of 2 should be allowed")
	}
	if rl.allow() {
		t.Fatal("third call within the interval should be denied")
	}

	now = now.Add(500 * time.Millisecond)
	if !rl.allow() {
		t.Fatal("half interval refills one token")
	}
	if rl.allow() {
		t.Fatal("only one token should have been refilled")
	}

	now = now.Add(time.Hour)
	allowed := 0
	for i := 0; i < 5; i++ {
		if rl.allow() {
			allowed++
		}
	}
	if allowed != 2 {
		t.Errorf("refill is capped at capacity: got %d allowed, want 2", allowed)
	}
}

func TestRateLimiter_ClampsBadInput(t *testing.T) {
	rl := newRateLimiter(0, 0)
	if rl.capacity != 1 || rl.rate != 1 {
		t.Errorf("got capacity=%v rate=%v, want 1/1", rl.capacity, rl.rate)
	}
}
