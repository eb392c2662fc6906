package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("UPLOAD_REFRESH_DELAY", "")
	t.Setenv("TOKEN_SOURCE", "")
	t.Setenv("VIEWER_ROLE", "")
	t.Setenv("TOKEN_OUTPUT_PATH", "")
	t.Setenv("RESILIENCE_RETRY_MAX_ATTEMPTS", "")
	t.Setenv("RESILIENCE_RETRY_MAX_BACKOFF", "")
	t.Setenv("RESILIENCE_BREAKER_MIN_REQUESTS", "")
	t.Setenv("RESILIENCE_BREAKER_OPEN_TIMEOUT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.UploadRefreshDelay != 3*time.Second {
		t.Fatalf("expected default refresh delay 3s, got %s", cfg.UploadRefreshDelay)
	}
	if cfg.TokenSource != "backend" {
		t.Fatalf("expected default token source backend, got %q", cfg.TokenSource)
	}
	if cfg.ViewerRole != "3d" {
		t.Fatalf("expected default viewer role 3d, got %q", cfg.ViewerRole)
	}
	if cfg.TokenOutputPath != "viewer/token.json" {
		t.Fatalf("expected default token output path, got %q", cfg.TokenOutputPath)
	}
	if cfg.ResilienceRetryMaxAttempts != 2 || cfg.ResilienceRetryMaxBackoff != 250*time.Millisecond {
		t.Fatalf("expected short interactive retries, got %d attempts up to %s", cfg.ResilienceRetryMaxAttempts, cfg.ResilienceRetryMaxBackoff)
	}
	if cfg.ResilienceBreakerMinRequests != 5 || cfg.ResilienceBreakerOpenTimeout != 15*time.Second {
		t.Fatalf("unexpected breaker defaults %d/%s", cfg.ResilienceBreakerMinRequests, cfg.ResilienceBreakerOpenTimeout)
	}
}

func TestLoadParsesDurations(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("UPLOAD_REFRESH_DELAY", "5")
	t.Setenv("BACKEND_TIMEOUT", "1500ms")
	t.Setenv("DISPATCH_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.UploadRefreshDelay != 5*time.Second {
		t.Fatalf("expected bare integer as seconds, got %s", cfg.UploadRefreshDelay)
	}
	if cfg.BackendTimeout != 1500*time.Millisecond {
		t.Fatalf("expected 1500ms backend timeout, got %s", cfg.BackendTimeout)
	}
	if cfg.DispatchTimeout != 2*time.Minute {
		t.Fatalf("expected fallback dispatch timeout, got %s", cfg.DispatchTimeout)
	}
}

func TestLoadAppliesFileBelowEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "browser.yaml")
	content := "backend_url: http://backend.internal:3000\nVIEWER_ROLE: 2d\nAPI_MAX_IN_FLIGHT: 4\nVIEWER_ENABLED: false\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("BACKEND_URL", "")
	t.Setenv("VIEWER_ROLE", "3d")
	t.Setenv("API_MAX_IN_FLIGHT", "")
	t.Setenv("VIEWER_ENABLED", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BackendURL != "http://backend.internal:3000" {
		t.Fatalf("expected backend url from file, got %q", cfg.BackendURL)
	}
	if cfg.ViewerRole != "3d" {
		t.Fatalf("expected environment to win, got %q", cfg.ViewerRole)
	}
	if cfg.APIMaxInFlight != 4 {
		t.Fatalf("expected max in flight 4, got %d", cfg.APIMaxInFlight)
	}
	if cfg.ViewerEnabled {
		t.Fatalf("expected viewer disabled from file")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
