package natsqueue

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"
	"github.com/panjf2000/ants/v2"

	"github.com/matchtrack/matchtrack/internal/domain/ingest"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
	"github.com/matchtrack/matchtrack/internal/platform/tracectx"
)

// JobHandler processes one ingestion job to completion. A nil return acks
// the message; an error leaves it for redelivery.
type JobHandler interface {
	Handle(ctx context.Context, job ingest.Job) error
}

type ConsumerConfig struct {
	Stream     string
	Subject    string
	Durable    string
	Workers    int
	JobTimeout time.Duration
}

// Consumer pulls ingestion jobs off the durable JetStream consumer and
// dispatches them onto a bounded goroutine pool.
type Consumer struct {
	queue   *Queue
	handler JobHandler
	cfg     ConsumerConfig
	pool    *ants.Pool
	logger  *logging.Logger
	sub     *nats.Subscription
	done    chan struct{}
}

func NewConsumer(queue *Queue, handler JobHandler, cfg ConsumerConfig, logger *logging.Logger) (*Consumer, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}

	pool, err := ants.NewPool(cfg.Workers, ants.WithNonblocking(false))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Consumer{
		queue:   queue,
		handler: handler,
		cfg:     cfg,
		pool:    pool,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Start subscribes and begins dispatching. It returns once the
// subscription is established; jobs run on the pool until Stop.
func (c *Consumer) Start() error {
	sub, err := c.queue.js.PullSubscribe(c.cfg.Subject, c.cfg.Durable,
		nats.BindStream(c.cfg.Stream),
		nats.ManualAck(),
		nats.AckWait(2*c.cfg.JobTimeout),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s/%s: %w", c.cfg.Stream, c.cfg.Durable, err)
	}
	c.sub = sub

	go c.fetchLoop()
	return nil
}

func (c *Consumer) fetchLoop() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		msgs, err := c.sub.Fetch(c.cfg.Workers, nats.MaxWait(5*time.Second))
		if err != nil {
			if err == nats.ErrTimeout || err == context.DeadlineExceeded {
				continue
			}
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("fetch ingest jobs", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range msgs {
			m := msg
			if err := c.pool.Submit(func() { c.dispatch(m) }); err != nil {
				c.logger.Warn("submit ingest job to pool", "error", err)
				_ = m.Nak()
			}
		}
	}
}

func (c *Consumer) dispatch(msg *nats.Msg) {
	var job ingest.Job
	if err := jsoniter.Unmarshal(msg.Data, &job); err != nil {
		// A payload that cannot be decoded will never succeed; drop it.
		c.logger.Error("decode ingest job", "error", err)
		_ = msg.Term()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.JobTimeout)
	defer cancel()
	ctx = tracectx.With(ctx, job.Trace)

	if err := c.handler.Handle(ctx, job); err != nil {
		c.logger.WarnContext(ctx, "ingest job failed, leaving for redelivery",
			"task_id", job.TaskID, "error", err)
		_ = msg.Nak()
		return
	}
	if err := msg.Ack(); err != nil {
		c.logger.WarnContext(ctx, "ack ingest job", "task_id", job.TaskID, "error", err)
	}
}

// Stop drains the subscription and waits for in-flight jobs.
func (c *Consumer) Stop() {
	close(c.done)
	if c.sub != nil {
		_ = c.sub.Drain()
	}
	c.pool.Release()
}
