package memqueue

import (
	"context"
	"fmt"
	"sync"

	"github.com/matchtrack/matchtrack/internal/domain/ingest"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
	"github.com/matchtrack/matchtrack/internal/platform/tracectx"
)

// Handler mirrors the broker-side job handler so the in-process queue can
// stand in for JetStream in development and tests.
type Handler interface {
	Handle(ctx context.Context, job ingest.Job) error
}

// Queue is a channel-backed job queue for single-process deployments.
// Publish never blocks the request path unless the buffer is full.
type Queue struct {
	jobs    chan ingest.Job
	logger  *logging.Logger
	wg      sync.WaitGroup
	closing chan struct{}
	once    sync.Once
}

func New(buffer int, logger *logging.Logger) *Queue {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Queue{
		jobs:    make(chan ingest.Job, buffer),
		logger:  logger,
		closing: make(chan struct{}),
	}
}

func (q *Queue) Publish(ctx context.Context, job ingest.Job) error {
	select {
	case <-q.closing:
		return fmt.Errorf("queue is shutting down")
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start launches n consumer goroutines delivering jobs to the handler.
func (q *Queue) Start(handler Handler, n int) {
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for job := range q.jobs {
				ctx := tracectx.With(context.Background(), job.Trace)
				if err := handler.Handle(ctx, job); err != nil {
					q.logger.WarnContext(ctx, "in-process ingest job failed",
						"task_id", job.TaskID, "error", err)
				}
			}
		}()
	}
}

// Stop rejects new publishes, drains buffered jobs and waits for workers.
func (q *Queue) Stop() {
	q.once.Do(func() {
		close(q.closing)
		close(q.jobs)
	})
	q.wg.Wait()
}

func (q *Queue) Name() string { return "memqueue" }

func (q *Queue) Healthy(_ context.Context) error {
	select {
	case <-q.closing:
		return fmt.Errorf("queue is shutting down")
	default:
		return nil
	}
}
