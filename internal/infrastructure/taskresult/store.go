package taskresult

import (
	"context"
	"time"

	"github.com/matchtrack/matchtrack/internal/domain/ingest"
	"github.com/matchtrack/matchtrack/internal/platform/cache"
)

// Store keeps task results in the shared in-memory cache under a TTL, so a
// status poll after the window gets a clean not-found instead of stale state.
type Store struct {
	cache *cache.Store
	ttl   time.Duration
}

func NewStore(store *cache.Store, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{cache: store, ttl: ttl}
}

func key(taskID string) string {
	return cache.Key("task", taskID)
}

func (s *Store) Set(ctx context.Context, result ingest.TaskResult) error {
	if result.UpdatedAt.IsZero() {
		result.UpdatedAt = time.Now().UTC()
	}
	s.cache.Set(ctx, key(result.TaskID), result, s.ttl)
	return nil
}

func (s *Store) Get(ctx context.Context, taskID string) (ingest.TaskResult, bool, error) {
	value, ok := s.cache.Get(ctx, key(taskID))
	if !ok {
		return ingest.TaskResult{}, false, nil
	}
	result, ok := value.(ingest.TaskResult)
	if !ok {
		return ingest.TaskResult{}, false, nil
	}
	return result, true, nil
}
