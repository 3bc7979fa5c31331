package ratelimit

import (
	"context"
	"time"
)

// CounterStore is the shared fixed-window counter backend. The cache store
// satisfies it; with multiple API instances the same interface is pointed at
// a shared store so limits are global, not per process.
type CounterStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration)
}

type Rule struct {
	Limit  int64
	Window time.Duration
}

// Limiter enforces fixed-window limits keyed by caller-supplied strings
// (typically "<route-class>:<ip>" or "<ip>:<username>").
type Limiter struct {
	store CounterStore
}

func NewLimiter(store CounterStore) *Limiter {
	return &Limiter{store: store}
}

// Allow records one hit and reports whether the caller is inside the limit.
// retryAfter is the remaining window when the limit is exceeded.
func (l *Limiter) Allow(ctx context.Context, key string, rule Rule) (bool, time.Duration) {
	if l == nil || l.store == nil || rule.Limit <= 0 || rule.Window <= 0 {
		return true, 0
	}

	count, remaining := l.store.Increment(ctx, key, rule.Window)
	if count > rule.Limit {
		return false, remaining
	}
	return true, 0
}
