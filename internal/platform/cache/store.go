package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/matchtrack/matchtrack/internal/platform/resilience"
)

// KeyPrefix namespaces every cache key the services write.
const KeyPrefix = "mt:dao:"

// Key builds a namespaced cache key: mt:dao:<domain>:<arg>:<arg>...
func Key(domain string, args ...any) string {
	var b strings.Builder
	b.WriteString(KeyPrefix)
	b.WriteString(domain)
	for _, arg := range args {
		b.WriteString(":")
		fmt.Fprintf(&b, "%v", arg)
	}
	return b.String()
}

type entry struct {
	value     any
	expiresAt time.Time
}

type counter struct {
	count    int64
	windowAt time.Time
}

// Store is an in-process TTL cache with prefix invalidation and singleflight
// loads. A nil *Store is valid and behaves as a disabled cache: reads miss,
// writes drop, GetOrLoad calls the loader directly.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]entry
	counters   map[string]counter
	defaultTTL time.Duration
	flight     resilience.SingleFlight
}

func NewStore(defaultTTL time.Duration) *Store {
	return &Store{
		entries:    make(map[string]entry),
		counters:   make(map[string]counter),
		defaultTTL: defaultTTL,
	}
}

func (s *Store) Get(_ context.Context, key string) (any, bool) {
	if s == nil || key == "" {
		return nil, false
	}

	now := time.Now()
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(now) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false
	}

	return e.value, true
}

func (s *Store) Set(_ context.Context, key string, value any, ttl time.Duration) {
	if s == nil || key == "" {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	expiresAt := time.Time{}
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry{value: value, expiresAt: expiresAt}
	s.mu.Unlock()
}

func (s *Store) Delete(_ context.Context, key string) {
	if s == nil || key == "" {
		return
	}

	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// DeletePrefix drops every entry whose key starts with prefix. Invalidation
// is best-effort: readers may still see stale values up to their TTL.
func (s *Store) DeletePrefix(_ context.Context, prefix string) {
	if s == nil || prefix == "" {
		return
	}

	s.mu.Lock()
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()
}

// GetOrLoad returns the cached value for key or runs loader once, caching the
// result for ttl. Concurrent misses on the same key share one loader call.
func (s *Store) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(context.Context) (any, error)) (any, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if s == nil || key == "" {
		return loader(ctx)
	}

	if value, ok := s.Get(ctx, key); ok {
		return value, nil
	}

	value, err, _ := s.flight.Do(key, func() (any, error) {
		if cached, ok := s.Get(ctx, key); ok {
			return cached, nil
		}

		loaded, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		s.Set(ctx, key, loaded, ttl)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

// Increment bumps a fixed-window counter and reports the count plus the time
// left in the current window. Rate limiting keys its shared counters here so
// limits hold across handlers.
func (s *Store) Increment(_ context.Context, key string, window time.Duration) (int64, time.Duration) {
	if s == nil || key == "" || window <= 0 {
		return 0, 0
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || !c.windowAt.After(now) {
		c = counter{count: 0, windowAt: now.Add(window)}
	}
	c.count++
	s.counters[key] = c

	return c.count, c.windowAt.Sub(now)
}
