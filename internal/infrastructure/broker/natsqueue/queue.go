package natsqueue

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/matchtrack/matchtrack/internal/domain/ingest"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
)

type Config struct {
	URL      string
	Stream   string
	Subject  string
	Consumer string
}

// Queue publishes ingestion jobs onto a JetStream stream. Delivery is
// at-least-once; the worker dedupes by external match id downstream.
type Queue struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	subject string
	logger  *logging.Logger
}

func Connect(cfg Config, logger *logging.Logger) (*Queue, error) {
	if logger == nil {
		logger = logging.Default()
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("matchtrack"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	if err := ensureStream(js, cfg); err != nil {
		conn.Close()
		return nil, err
	}

	return &Queue{conn: conn, js: js, subject: cfg.Subject, logger: logger}, nil
}

func ensureStream(js nats.JetStreamContext, cfg Config) error {
	_, err := js.StreamInfo(cfg.Stream)
	if err == nil {
		return nil
	}
	if err != nats.ErrStreamNotFound {
		return fmt.Errorf("stream info %s: %w", cfg.Stream, err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{cfg.Subject},
		Retention: nats.WorkQueuePolicy,
		Storage:   nats.FileStorage,
		MaxAge:    48 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("add stream %s: %w", cfg.Stream, err)
	}
	return nil
}

func (q *Queue) Publish(ctx context.Context, job ingest.Job) error {
	payload, err := jsoniter.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal ingest job: %w", err)
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("messaging.system", "nats"),
			attribute.String("messaging.destination", q.subject),
			attribute.String("ingest.task_id", job.TaskID),
		)
	}

	// MsgId gives JetStream a dedup window keyed by task, so a client retry
	// of the same enqueue does not produce two jobs.
	_, err = q.js.Publish(q.subject, payload, nats.MsgId(job.TaskID), nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("publish ingest job %s: %w", job.TaskID, err)
	}

	q.logger.InfoContext(ctx, "ingest job published",
		"task_id", job.TaskID, "subject", q.subject, "producer", job.Producer)
	return nil
}

func (q *Queue) Name() string { return "nats" }

func (q *Queue) Healthy(_ context.Context) error {
	if !q.conn.IsConnected() {
		return fmt.Errorf("nats connection %s", q.conn.Status())
	}
	return nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}
