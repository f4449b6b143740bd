package infra

import (
	"testing"
	"time"

	"ambilab-gateway/middleware/ratelimit/domain"
)

func TestTokenBuckets_GetSameKeyReturnsSameLimiter(t *testing.T) {
	s := NewTokenBuckets(10, 1)

	l1 := s.Get(domain.Key("k"))
	l2 := s.Get(domain.Key("k"))
	if l1 != l2 {
		t.Fatalf("expected same limiter pointer for same key")
	}
}

func TestTokenBuckets_LowBurstRejectsSecondImmediateAllow(t *testing.T) {
	s := NewTokenBuckets(0.02, 1)

	lim := s.Get(domain.Key("k"))
	if !lim.Allow() {
		t.Fatalf("expected first Allow to be true")
	}
	if lim.Allow() {
		t.Fatalf("expected second immediate Allow to be false (burst=1)")
	}
}

func TestTokenBuckets_CleanupRemovesIdleEntries(t *testing.T) {
	now := t0
	s := NewTokenBuckets(10, 1,
		WithIdleTTL(time.Minute),
		WithCleanupEvery(0),
		WithClock(func() time.Time { return now }),
	)

	before := s.Get(domain.Key("idle"))
	now = now.Add(30 * time.Second)
	_ = s.Get(domain.Key("busy"))
	now = now.Add(45 * time.Second)

	if removed := s.Cleanup(); removed != 1 {
		t.Fatalf("expected 1 idle bucket removed, got %d", removed)
	}

	after := s.Get(domain.Key("idle"))
	if before == after {
		t.Fatalf("expected limiter to be recreated after cleanup")
	}
}
