package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("JOB_POLL_INTERVAL_SECONDS", "")
	t.Setenv("JOB_TIMEOUT_SECONDS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q want %q", cfg.Port, "8080")
	}
	if cfg.JobPollInterval != 3*time.Second {
		t.Fatalf("JobPollInterval mismatch: got %v", cfg.JobPollInterval)
	}
	if cfg.JobTimeout != 5*time.Minute {
		t.Fatalf("JobTimeout mismatch: got %v", cfg.JobTimeout)
	}
	if cfg.VideoProvider != "veo" {
		t.Fatalf("VideoProvider mismatch: got %q", cfg.VideoProvider)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("AllowedOrigins mismatch: %#v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "postgres://example")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig accepted empty JWT_SECRET")
	}
}

func TestLoadConfigParsesOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("JOB_POLL_INTERVAL_SECONDS", "1")
	t.Setenv("JOB_TIMEOUT_SECONDS", "120")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://studio.example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.JobPollInterval != time.Second {
		t.Fatalf("JobPollInterval mismatch: got %v", cfg.JobPollInterval)
	}
	if cfg.JobTimeout != 2*time.Minute {
		t.Fatalf("JobTimeout mismatch: got %v", cfg.JobTimeout)
	}
	want := []string{"https://app.example.com", "https://studio.example.com"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("AllowedOrigins mismatch: %#v", cfg.AllowedOrigins)
	}
	for i := range want {
		if cfg.AllowedOrigins[i] != want[i] {
			t.Fatalf("AllowedOrigins[%d] = %q, want %q", i, cfg.AllowedOrigins[i], want[i])
		}
	}
}

func TestLoadConfigRejectsNonPositiveTimeout(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("JOB_TIMEOUT_SECONDS", "0")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig accepted zero job timeout")
	}
}
