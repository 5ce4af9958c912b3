package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(MemoryLimiterConfig{Now: func() time.Time { return now }})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision, err := limiter.Allow(ctx, "client-a", 3, time.Minute)
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !decision.Allowed {
			t.Fatalf("hit %d denied inside the limit", i)
		}
		if decision.Remaining != 3-(i+1) {
			t.Fatalf("hit %d remaining = %d", i, decision.Remaining)
		}
	}

	decision, err := limiter.Allow(ctx, "client-a", 3, time.Minute)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if decision.Allowed {
		t.Fatalf("fourth hit allowed, want denied")
	}
	if decision.ResetAt != now.Add(time.Minute) {
		t.Fatalf("reset = %v, want %v", decision.ResetAt, now.Add(time.Minute))
	}

	// A fresh window opens once the old one elapses.
	now = now.Add(time.Minute + time.Second)
	decision, err = limiter.Allow(ctx, "client-a", 3, time.Minute)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("hit in new window denied")
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter(MemoryLimiterConfig{})
	ctx := context.Background()

	if d, _ := limiter.Allow(ctx, "client-a", 1, time.Minute); !d.Allowed {
		t.Fatalf("first hit for client-a denied")
	}
	if d, _ := limiter.Allow(ctx, "client-a", 1, time.Minute); d.Allowed {
		t.Fatalf("second hit for client-a allowed")
	}
	if d, _ := limiter.Allow(ctx, "client-b", 1, time.Minute); !d.Allowed {
		t.Fatalf("client-b starved by client-a's window")
	}
}

func TestMemoryLimiterZeroLimitDisables(t *testing.T) {
	limiter := NewMemoryLimiter(MemoryLimiterConfig{})
	d, err := limiter.Allow(context.Background(), "client-a", 0, time.Minute)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("zero limit should disable limiting")
	}
}

func TestMemoryLimiterSweepReclaimsExpiredKeys(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(MemoryLimiterConfig{
		Now:     func() time.Time { return now },
		MaxKeys: 2,
	})
	ctx := context.Background()

	if _, err := limiter.Allow(ctx, "client-a", 1, time.Minute); err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if _, err := limiter.Allow(ctx, "client-b", 1, time.Minute); err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if _, err := limiter.Allow(ctx, "client-c", 1, time.Minute); err == nil {
		t.Fatalf("expected capacity error with all windows live")
	}

	now = now.Add(2 * time.Minute)
	if d, err := limiter.Allow(ctx, "client-c", 1, time.Minute); err != nil || !d.Allowed {
		t.Fatalf("sweep did not reclaim expired windows: %v %+v", err, d)
	}
}
