package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	breaker := NewBreaker(BreakerConfig{
		Enabled:          true,
		FailureThreshold: 3,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	})

	for i := 0; i < 3; i++ {
		if err := breaker.Allow(); err != nil {
			t.Fatalf("closed breaker must allow, got %v", err)
		}
		breaker.RecordFailure()
	}

	if err := breaker.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen after %d failures, got %v", 3, err)
	}
	if state := breaker.State(); state != CircuitOpen {
		t.Fatalf("unexpected state: %s", state)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	breaker := NewBreaker(BreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	})

	breaker.RecordFailure()
	breaker.RecordSuccess()
	breaker.RecordFailure()

	if err := breaker.Allow(); err != nil {
		t.Fatalf("breaker must stay closed when failures are not consecutive, got %v", err)
	}
}

func TestBreaker_HalfOpenProbeRecovers(t *testing.T) {
	t.Parallel()

	breaker := NewBreaker(BreakerConfig{
		Enabled:          true,
		FailureThreshold: 1,
		OpenTimeout:      10 * time.Millisecond,
		HalfOpenMaxReq:   1,
	})

	breaker.RecordFailure()
	if err := breaker.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open breaker, got %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	if err := breaker.Allow(); err != nil {
		t.Fatalf("half-open probe must be allowed, got %v", err)
	}
	breaker.RecordSuccess()

	if state := breaker.State(); state != CircuitClosed {
		t.Fatalf("breaker should close after successful probe, got %s", state)
	}
	if err := breaker.Allow(); err != nil {
		t.Fatalf("closed breaker must allow, got %v", err)
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	breaker := NewBreaker(BreakerConfig{
		Enabled:          true,
		FailureThreshold: 1,
		OpenTimeout:      10 * time.Millisecond,
		HalfOpenMaxReq:   1,
	})

	breaker.RecordFailure()
	time.Sleep(20 * time.Millisecond)

	if err := breaker.Allow(); err != nil {
		t.Fatalf("half-open probe must be allowed, got %v", err)
	}
	breaker.RecordFailure()

	if err := breaker.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected breaker to reopen after failed probe, got %v", err)
	}
}

func TestBreaker_HalfOpenBoundsProbes(t *testing.T) {
	t.Parallel()

	breaker := NewBreaker(BreakerConfig{
		Enabled:          true,
		FailureThreshold: 1,
		OpenTimeout:      10 * time.Millisecond,
		HalfOpenMaxReq:   2,
	})

	breaker.RecordFailure()
	time.Sleep(20 * time.Millisecond)

	if err := breaker.Allow(); err != nil {
		t.Fatalf("first probe must be allowed, got %v", err)
	}
	if err := breaker.Allow(); err != nil {
		t.Fatalf("second probe must be allowed, got %v", err)
	}
	if err := breaker.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("third probe must be rejected, got %v", err)
	}
}

func TestNormalizeBreakerConfig_FillsDefaults(t *testing.T) {
	t.Parallel()

	cfg := NormalizeBreakerConfig(BreakerConfig{Enabled: true})
	defaults := DefaultBreakerConfig()

	if cfg.FailureThreshold != defaults.FailureThreshold {
		t.Fatalf("unexpected failure threshold: %d", cfg.FailureThreshold)
	}
	if cfg.OpenTimeout != defaults.OpenTimeout {
		t.Fatalf("unexpected open timeout: %v", cfg.OpenTimeout)
	}
	if cfg.HalfOpenMaxReq != defaults.HalfOpenMaxReq {
		t.Fatalf("unexpected half-open max: %d", cfg.HalfOpenMaxReq)
	}
}
