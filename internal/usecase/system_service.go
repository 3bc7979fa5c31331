package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/matchtrack/matchtrack/internal/platform/logging"
)

// SystemStore exposes the store-level probes: connectivity and the applied
// schema version.
type SystemStore interface {
	Ping(ctx context.Context) error
	SchemaVersion(ctx context.Context) (uint, bool, error)
}

// HealthChecker is one named dependency probe (broker, identity provider).
type HealthChecker interface {
	Name() string
	Healthy(ctx context.Context) error
}

type ComponentHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

type HealthReport struct {
	Healthy       bool              `json:"healthy"`
	SchemaVersion uint              `json:"schema_version,omitempty"`
	SchemaDirty   bool              `json:"schema_dirty,omitempty"`
	Components    []ComponentHealth `json:"components"`
}

// SystemService answers liveness and the full dependency health check.
type SystemService struct {
	store    SystemStore
	checkers []HealthChecker
	timeout  time.Duration
	logger   *logging.Logger
}

func NewSystemService(store SystemStore, timeout time.Duration, logger *logging.Logger, checkers ...HealthChecker) *SystemService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SystemService{
		store:    store,
		checkers: checkers,
		timeout:  timeout,
		logger:   logger,
	}
}

// Check probes every dependency concurrently and aggregates. One slow probe
// delays nothing else; the shared timeout bounds the whole sweep.
func (s *SystemService) Check(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var mu sync.Mutex
	report := HealthReport{Healthy: true}

	record := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		component := ComponentHealth{Name: name, Healthy: err == nil}
		if err != nil {
			component.Error = err.Error()
			report.Healthy = false
		}
		report.Components = append(report.Components, component)
	}

	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		record("database", s.store.Ping(ctx))
		return nil
	})
	p.Go(func(ctx context.Context) error {
		version, dirty, err := s.store.SchemaVersion(ctx)
		mu.Lock()
		report.SchemaVersion = version
		report.SchemaDirty = dirty
		mu.Unlock()
		record("schema", err)
		return nil
	})
	for _, checker := range s.checkers {
		checker := checker
		p.Go(func(ctx context.Context) error {
			record(checker.Name(), checker.Healthy(ctx))
			return nil
		})
	}
	_ = p.Wait()

	if !report.Healthy {
		s.logger.WarnContext(ctx, "health check degraded", "components", len(report.Components))
	}
	return report
}
