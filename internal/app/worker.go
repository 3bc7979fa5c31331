package app

import (
	"context"
	"fmt"

	"github.com/matchtrack/matchtrack/internal/config"
	"github.com/matchtrack/matchtrack/internal/infrastructure/broker/natsqueue"
	"github.com/matchtrack/matchtrack/internal/infrastructure/repository/postgres"
	"github.com/matchtrack/matchtrack/internal/platform/cache"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

// NewWorker wires the standalone ingestion worker: it pulls jobs from the
// durable JetStream consumer and runs them on a bounded pool.
func NewWorker(ctx context.Context, cfg config.Config, logger *logging.Logger) (*natsqueue.Consumer, func(context.Context) error, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if !cfg.NATSEnabled {
		return nil, nil, fmt.Errorf("worker requires NATS_ENABLED=true")
	}

	db, err := OpenDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	queue, err := natsqueue.Connect(natsqueue.Config{
		URL:      cfg.NATSURL,
		Stream:   cfg.NATSStream,
		Subject:  cfg.NATSSubject,
		Consumer: cfg.NATSConsumer,
	}, logger)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	results, err := natsqueue.NewResultStore(queue, cfg.TaskResultTTL)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, nil, err
	}

	var store *cache.Store
	if cfg.CacheEnabled {
		store = cache.NewStore(cfg.CacheTTL)
	}

	worker := usecase.NewIngestWorker(
		postgres.NewMatchRepository(db),
		postgres.NewTeamRepository(db),
		postgres.NewLeagueRepository(db),
		postgres.NewDivisionRepository(db),
		postgres.NewSeasonRepository(db),
		postgres.NewAgeGroupRepository(db),
		results, store,
		usecase.IngestWorkerConfig{
			MaxAttempts:         cfg.WorkerMaxAttempts,
			BackoffBase:         cfg.WorkerBackoffBase,
			JobTimeout:          cfg.WorkerJobTimeout,
			AutocreateProducers: cfg.IngestAutocreateProducers,
		},
		logger,
	)

	consumer, err := natsqueue.NewConsumer(queue, worker, natsqueue.ConsumerConfig{
		Stream:     cfg.NATSStream,
		Subject:    cfg.NATSSubject,
		Durable:    cfg.NATSConsumer,
		Workers:    cfg.WorkerCount,
		JobTimeout: cfg.WorkerJobTimeout,
	}, logger)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, nil, err
	}

	cleanup := func(context.Context) error {
		consumer.Stop()
		queue.Close()
		return db.Close()
	}

	return consumer, cleanup, nil
}
