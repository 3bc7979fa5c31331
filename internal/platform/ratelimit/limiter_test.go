package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/matchtrack/matchtrack/internal/platform/cache"
)

func TestLimiter_AllowUpToLimit(t *testing.T) {
	t.Parallel()

	limiter := NewLimiter(cache.NewStore(time.Minute))
	rule := Rule{Limit: 3, Window: time.Minute}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, retryAfter := limiter.Allow(ctx, "login:1.2.3.4", rule)
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if retryAfter != 0 {
			t.Fatalf("allowed request must not carry retry-after, got %v", retryAfter)
		}
	}

	allowed, retryAfter := limiter.Allow(ctx, "login:1.2.3.4", rule)
	if allowed {
		t.Fatalf("request over the limit should be rejected")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("unexpected retry-after: %v", retryAfter)
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	limiter := NewLimiter(cache.NewStore(time.Minute))
	rule := Rule{Limit: 1, Window: time.Minute}
	ctx := context.Background()

	if allowed, _ := limiter.Allow(ctx, "login:1.1.1.1", rule); !allowed {
		t.Fatalf("first key should be allowed")
	}
	if allowed, _ := limiter.Allow(ctx, "login:1.1.1.1", rule); allowed {
		t.Fatalf("first key should now be limited")
	}
	if allowed, _ := limiter.Allow(ctx, "login:2.2.2.2", rule); !allowed {
		t.Fatalf("second key must not share the first key's counter")
	}
}

func TestLimiter_ZeroRuleDisablesLimiting(t *testing.T) {
	t.Parallel()

	limiter := NewLimiter(cache.NewStore(time.Minute))
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if allowed, _ := limiter.Allow(ctx, "k", Rule{}); !allowed {
			t.Fatalf("zero rule must never limit")
		}
	}
}
