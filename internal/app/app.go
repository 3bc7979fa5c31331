package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/matchtrack/matchtrack/internal/config"
	"github.com/matchtrack/matchtrack/internal/domain/ingest"
	"github.com/matchtrack/matchtrack/internal/infrastructure/broker/memqueue"
	"github.com/matchtrack/matchtrack/internal/infrastructure/broker/natsqueue"
	"github.com/matchtrack/matchtrack/internal/infrastructure/idp"
	"github.com/matchtrack/matchtrack/internal/infrastructure/repository/postgres"
	"github.com/matchtrack/matchtrack/internal/infrastructure/taskresult"
	"github.com/matchtrack/matchtrack/internal/interfaces/httpapi"
	"github.com/matchtrack/matchtrack/internal/platform/cache"
	idgen "github.com/matchtrack/matchtrack/internal/platform/id"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
	"github.com/matchtrack/matchtrack/internal/platform/ratelimit"
	"github.com/matchtrack/matchtrack/internal/platform/token"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

// NewHTTPServer wires the full API: repositories, services, broker and
// router. The returned cleanup stops background components in reverse
// order of construction.
func NewHTTPServer(ctx context.Context, cfg config.Config, logger *logging.Logger) (*http.Server, func(context.Context) error, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := OpenDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	userRepo := postgres.NewUserRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	leagueRepo := postgres.NewLeagueRepository(db)
	divisionRepo := postgres.NewDivisionRepository(db)
	seasonRepo := postgres.NewSeasonRepository(db)
	ageGroupRepo := postgres.NewAgeGroupRepository(db)
	clubRepo := postgres.NewClubRepository(db)
	teamRepo := postgres.NewTeamRepository(db)
	matchRepo := postgres.NewMatchRepository(db)
	inviteRepo := postgres.NewInviteRepository(db)
	historyRepo := postgres.NewPlayerHistoryRepository(db)
	systemRepo := postgres.NewSystemRepository(db)

	// The counter store always lives: rate limits, login lockout and locally
	// stored task results are state, not cache. Read-through consumers get a
	// nil store when caching is disabled; a nil *cache.Store is a no-op.
	counterStore := cache.NewStore(cfg.CacheTTL)
	var readCache *cache.Store
	if cfg.CacheEnabled {
		readCache = counterStore
	}
	limiter := ratelimit.NewLimiter(counterStore)
	ids := idgen.NewRandomGenerator()

	signer, err := token.NewSigner(cfg.AuthTokenSecret, cfg.AuthTokenIssuer, cfg.AccessTokenTTL)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("build token signer: %w", err)
	}

	idpClient := idp.NewClient(idp.ClientConfig{
		BaseURL:        cfg.IDPBaseURL,
		VerifyPath:     cfg.IDPVerifyPath,
		UsersPath:      cfg.IDPUsersPath,
		APIKey:         cfg.IDPAPIKey,
		Timeout:        cfg.IDPTimeout,
		Logger:         logger,
		CircuitBreaker: cfg.IDPCircuit,
	})

	var (
		queue    ingest.Queue
		results  ingest.ResultStore
		checkers []usecase.HealthChecker
		stoppers []func()
	)
	if cfg.NATSEnabled {
		// Multi-process mode: the worker binary consumes the stream, and
		// task results live in a shared JetStream bucket.
		natsQueue, err := natsqueue.Connect(natsqueue.Config{
			URL:      cfg.NATSURL,
			Stream:   cfg.NATSStream,
			Subject:  cfg.NATSSubject,
			Consumer: cfg.NATSConsumer,
		}, logger)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		natsResults, err := natsqueue.NewResultStore(natsQueue, cfg.TaskResultTTL)
		if err != nil {
			natsQueue.Close()
			_ = db.Close()
			return nil, nil, err
		}
		queue = natsQueue
		results = natsResults
		checkers = append(checkers, natsQueue)
		stoppers = append(stoppers, natsQueue.Close)
	} else {
		// Single-process mode: jobs run on in-process workers and results
		// live in the local cache.
		localResults := taskresult.NewStore(counterStore, cfg.TaskResultTTL)
		worker := usecase.NewIngestWorker(
			matchRepo, teamRepo, leagueRepo, divisionRepo, seasonRepo, ageGroupRepo,
			localResults, readCache,
			usecase.IngestWorkerConfig{
				MaxAttempts:         cfg.WorkerMaxAttempts,
				BackoffBase:         cfg.WorkerBackoffBase,
				JobTimeout:          cfg.WorkerJobTimeout,
				AutocreateProducers: cfg.IngestAutocreateProducers,
			},
			logger,
		)
		memQueue := memqueue.New(256, logger)
		memQueue.Start(worker, cfg.WorkerCount)
		queue = memQueue
		results = localResults
		checkers = append(checkers, memQueue)
		stoppers = append(stoppers, memQueue.Stop)
	}
	checkers = append(checkers, idpClient)

	authz := usecase.NewAuthorizer(userRepo, logger)

	identitySvc := usecase.NewIdentityService(
		idpClient, userRepo, sessionRepo, signer, ids, counterStore,
		usecase.IdentityConfig{
			InternalDomain:     cfg.AuthInternalDomain,
			RefreshTokenTTL:    cfg.RefreshTokenTTL,
			LoginFailureLimit:  cfg.LoginFailureLimit,
			LoginFailureWindow: cfg.LoginFailureWindow,
		},
		logger,
	)

	inviteSvc := usecase.NewInviteService(
		inviteRepo, userRepo, teamRepo, seasonRepo, ageGroupRepo, historyRepo,
		ids, cfg.InviteConsumeRetries, logger,
	)
	identitySvc.SetInviteConsumer(inviteSvc)

	matchSvc := usecase.NewMatchService(matchRepo, teamRepo, authz, readCache, logger)
	teamSvc := usecase.NewTeamService(teamRepo, leagueRepo, ageGroupRepo, authz, readCache, logger)
	clubSvc := usecase.NewClubService(clubRepo, authz, readCache, logger)
	standingsSvc := usecase.NewStandingsService(matchRepo, teamRepo, readCache, cfg.StandingsCacheTTL, logger)
	ingestionSvc := usecase.NewIngestionService(queue, results, logger)
	systemSvc := usecase.NewSystemService(systemRepo, 5*time.Second, logger, checkers...)

	handler := httpapi.NewHandler(
		identitySvc, inviteSvc, matchSvc, teamSvc, clubSvc,
		standingsSvc, ingestionSvc, systemSvc, logger,
	)
	router := httpapi.NewRouter(handler, identitySvc, limiter, httpapi.RateLimits{
		Login:  ratelimit.Rule{Limit: cfg.LoginRateLimit, Window: cfg.RateLimitWindow},
		Signup: ratelimit.Rule{Limit: cfg.SignupRateLimit, Window: cfg.RateLimitWindow},
		Public: ratelimit.Rule{Limit: cfg.PublicRateLimit, Window: cfg.RateLimitWindow},
		Read:   ratelimit.Rule{Limit: cfg.ReadRateLimit, Window: cfg.RateLimitWindow},
		Write:  ratelimit.Rule{Limit: cfg.WriteRateLimit, Window: cfg.RateLimitWindow},
	}, logger, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		_ = db.Close()
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	cleanup := func(context.Context) error {
		for i := len(stoppers) - 1; i >= 0; i-- {
			stoppers[i]()
		}
		return db.Close()
	}

	return server, cleanup, nil
}
