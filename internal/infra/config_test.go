package infra

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("SESSION_SECRET", "test-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.FalBaseURL != "https://queue.fal.run" {
		t.Fatalf("FalBaseURL mismatch: %q", cfg.FalBaseURL)
	}
	if cfg.FalModelID != "fal-ai/nano-banana/edit" {
		t.Fatalf("FalModelID mismatch: %q", cfg.FalModelID)
	}
	if cfg.RetryMaxAttempts != 3 || cfg.RetryBaseDelay != 500*time.Millisecond || cfg.RetryMaxDelay != 5*time.Second {
		t.Fatalf("retry defaults mismatch: %+v", cfg)
	}
	if cfg.CircuitFailureThreshold != 5 || cfg.CircuitOpenFor != 30*time.Second {
		t.Fatalf("circuit defaults mismatch: %+v", cfg)
	}
	if cfg.RateLimitMax != 100 || cfg.RateLimitWindow != 15*time.Minute {
		t.Fatalf("general rate limit defaults mismatch: %+v", cfg)
	}
	if cfg.TryOnRateLimitMax != 20 || cfg.TryOnRateLimitWindow != time.Minute {
		t.Fatalf("try-on rate limit defaults mismatch: %+v", cfg)
	}
	if cfg.MaxActiveJobsPerClient != 5 || cfg.ActiveJobTTL != 30*time.Minute {
		t.Fatalf("queue defaults mismatch: %+v", cfg)
	}
	if cfg.MaxRequestBodyBytes != 32*1024 {
		t.Fatalf("MaxRequestBodyBytes mismatch: %d", cfg.MaxRequestBodyBytes)
	}
	if cfg.DBMaxConns != 10 || cfg.DBMinConns != 1 {
		t.Fatalf("pool defaults mismatch: max=%d min=%d", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if cfg.HTTPReadHeaderTimeout != 5*time.Second {
		t.Fatalf("HTTPReadHeaderTimeout mismatch: %v", cfg.HTTPReadHeaderTimeout)
	}
}

func TestLoadConfigPoolSizing(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("DB_MIN_CONNS", "4")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.DBMaxConns != 25 || cfg.DBMinConns != 4 {
		t.Fatalf("pool sizing mismatch: max=%d min=%d", cfg.DBMaxConns, cfg.DBMinConns)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SESSION_SECRET", "test-secret")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}

func TestLoadConfigRequiresSessionSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("SESSION_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing SESSION_SECRET")
	}
}

func TestNormalizeModelID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", "fal-ai/nano-banana/edit"},
		{"  ", "fal-ai/nano-banana/edit"},
		{"nano-banana", "fal-ai/nano-banana"},
		{"fal-ai/flux/dev", "fal-ai/flux/dev"},
	}
	for _, tc := range tests {
		if got := normalizeModelID(tc.raw); got != tc.want {
			t.Fatalf("normalizeModelID(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestLoadConfigSplitsAllowedHosts(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FAL_ALLOWED_IMAGE_HOSTS", "Images.Example.com, cdn.example.com ,,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	want := []string{"images.example.com", "cdn.example.com"}
	if len(cfg.FalAllowedImageHosts) != len(want) {
		t.Fatalf("FalAllowedImageHosts mismatch: %#v", cfg.FalAllowedImageHosts)
	}
	for i, host := range want {
		if cfg.FalAllowedImageHosts[i] != host {
			t.Fatalf("FalAllowedImageHosts[%d] = %q, want %q", i, cfg.FalAllowedImageHosts[i], host)
		}
	}
}
