package ingest

import "context"

// Queue publishes ingestion jobs to the broker. Delivery is at-least-once;
// deduplication happens downstream via external_match_id.
type Queue interface {
	Publish(ctx context.Context, job Job) error
}

// ResultStore is the ephemeral key-value half of the broker pairing: task
// results live here under a TTL and expire on their own.
type ResultStore interface {
	Set(ctx context.Context, result TaskResult) error
	Get(ctx context.Context, taskID string) (TaskResult, bool, error)
}
