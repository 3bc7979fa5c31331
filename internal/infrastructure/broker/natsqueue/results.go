package natsqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"

	"github.com/matchtrack/matchtrack/internal/domain/ingest"
)

const resultBucket = "TASK_RESULTS"

// ResultStore keeps task results in a JetStream key-value bucket so the API
// and worker processes see the same state. Bucket TTL handles expiry.
type ResultStore struct {
	kv nats.KeyValue
}

func NewResultStore(q *Queue, ttl time.Duration) (*ResultStore, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	kv, err := q.js.KeyValue(resultBucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = q.js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket: resultBucket,
			TTL:    ttl,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("task result bucket: %w", err)
	}

	return &ResultStore{kv: kv}, nil
}

func (s *ResultStore) Set(_ context.Context, result ingest.TaskResult) error {
	if result.UpdatedAt.IsZero() {
		result.UpdatedAt = time.Now().UTC()
	}
	payload, err := jsoniter.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal task result: %w", err)
	}
	if _, err := s.kv.Put(result.TaskID, payload); err != nil {
		return fmt.Errorf("store task result %s: %w", result.TaskID, err)
	}
	return nil
}

func (s *ResultStore) Get(_ context.Context, taskID string) (ingest.TaskResult, bool, error) {
	entry, err := s.kv.Get(taskID)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return ingest.TaskResult{}, false, nil
	}
	if err != nil {
		return ingest.TaskResult{}, false, fmt.Errorf("load task result %s: %w", taskID, err)
	}

	var result ingest.TaskResult
	if err := jsoniter.Unmarshal(entry.Value(), &result); err != nil {
		return ingest.TaskResult{}, false, fmt.Errorf("decode task result %s: %w", taskID, err)
	}
	return result, true, nil
}
