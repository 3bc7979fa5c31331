package config

import (
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setValidBase(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("AUTH_TOKEN_SECRET", testSecret)
	t.Setenv("UPTRACE_ENABLED", "false")
}

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	t.Setenv("AUTH_TOKEN_SECRET", testSecret)
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_TokenSecretLength(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("AUTH_TOKEN_SECRET", "short")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for short AUTH_TOKEN_SECRET")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setValidBase(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected HTTPAddr: %q", cfg.HTTPAddr)
	}
	if cfg.AuthInternalDomain != "users.matchtrack.internal" {
		t.Fatalf("unexpected AuthInternalDomain: %q", cfg.AuthInternalDomain)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("unexpected AccessTokenTTL: %s", cfg.AccessTokenTTL)
	}
	if cfg.WorkerMaxAttempts != 5 || cfg.WorkerBackoffBase != 2*time.Second {
		t.Fatalf("unexpected worker retry defaults: %d %s", cfg.WorkerMaxAttempts, cfg.WorkerBackoffBase)
	}
	if cfg.NATSEnabled {
		t.Fatalf("NATS must be opt-in")
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("unexpected CORS default: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_InternalDomainMustBeBare(t *testing.T) {
	setValidBase(t)
	t.Setenv("AUTH_INTERNAL_DOMAIN", "someone@users.matchtrack.internal")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for AUTH_INTERNAL_DOMAIN with @")
	}
}

func TestLoad_NATSRequiresURLWhenEnabled(t *testing.T) {
	setValidBase(t)
	t.Setenv("NATS_ENABLED", "true")
	t.Setenv("NATS_URL", "   ")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when NATS_ENABLED=true without NATS_URL")
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	setValidBase(t)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	setValidBase(t)
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}

func TestLoad_AutocreateProducersCSV(t *testing.T) {
	setValidBase(t)
	t.Setenv("INGEST_AUTOCREATE_PRODUCERS", "scraper-bot, league-import ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.IngestAutocreateProducers) != 2 {
		t.Fatalf("unexpected producers: %v", cfg.IngestAutocreateProducers)
	}
	if cfg.IngestAutocreateProducers[0] != "scraper-bot" || cfg.IngestAutocreateProducers[1] != "league-import" {
		t.Fatalf("unexpected producers: %v", cfg.IngestAutocreateProducers)
	}
}

func TestLoad_BreakerConfig(t *testing.T) {
	setValidBase(t)
	t.Setenv("IDP_CIRCUIT_FAILURE_COUNT", "7")
	t.Setenv("IDP_CIRCUIT_OPEN_TIMEOUT", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.IDPCircuit.FailureThreshold != 7 {
		t.Fatalf("unexpected failure threshold: %d", cfg.IDPCircuit.FailureThreshold)
	}
	if cfg.IDPCircuit.OpenTimeout != 30*time.Second {
		t.Fatalf("unexpected open timeout: %s", cfg.IDPCircuit.OpenTimeout)
	}

	t.Setenv("IDP_CIRCUIT_FAILURE_COUNT", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero failure count")
	}
}
