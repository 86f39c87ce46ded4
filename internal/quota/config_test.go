package quota

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(LoadOptions{Args: []string{}, Environ: []string{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPListenAddr != ":8080" || !cfg.EnableHTTP {
		t.Fatalf("unexpected http defaults: %+v", cfg)
	}
	if cfg.StoreOpTimeout != 500*time.Millisecond || cfg.MaxRetries != 3 || !cfg.FallbackEnabled {
		t.Fatalf("unexpected engine defaults: %+v", cfg)
	}
	if cfg.BreakerOptions.FailureThreshold != 5 || cfg.BreakerOptions.OpenDuration != time.Second {
		t.Fatalf("unexpected breaker defaults: %+v", cfg.BreakerOptions)
	}
	if cfg.DegradeThresh.StoreUnhealthyFor != 2*time.Second || cfg.DegradeThresh.StoreEmergencyAfter != 30*time.Second {
		t.Fatalf("unexpected degrade defaults: %+v", cfg.DegradeThresh)
	}
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "quotad.yaml")
	contents := `
http_listen_addr: ":9090"
redis_addr: "redis:6379"
max_retries: 5
fallback_enabled: false
breaker:
  failure_threshold: 10
  open_duration_ms: 2500
degrade:
  store_unhealthy_for_ms: 4000
policies:
  - resource_id: embeddings
    per_minute_requests:
      capacity: 500
    per_minute_units:
      capacity: 350000
    per_day_requests:
      capacity: 10000
  - resource_id: search
    per_minute_requests:
      capacity: 5
      window_seconds: 30
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(LoadOptions{ConfigPath: path, Args: []string{}, Environ: []string{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPListenAddr != ":9090" || cfg.RedisAddr != "redis:6379" {
		t.Fatalf("file overrides not applied: %+v", cfg)
	}
	if cfg.MaxRetries != 5 || cfg.FallbackEnabled {
		t.Fatalf("engine overrides not applied: %+v", cfg)
	}
	if cfg.BreakerOptions.FailureThreshold != 10 || cfg.BreakerOptions.OpenDuration != 2500*time.Millisecond {
		t.Fatalf("breaker overrides not applied: %+v", cfg.BreakerOptions)
	}
	if cfg.DegradeThresh.StoreUnhealthyFor != 4*time.Second {
		t.Fatalf("degrade override not applied: %+v", cfg.DegradeThresh)
	}
	if len(cfg.Policies) != 2 {
		t.Fatalf("expected 2 policies, got %d", len(cfg.Policies))
	}
	embeddings := cfg.Policies[0]
	if embeddings.ResourceID != "embeddings" || embeddings.PerMinuteUnits.Capacity != 350000 {
		t.Fatalf("unexpected policy: %+v", embeddings)
	}
	search := cfg.Policies[1]
	if search.PerMinuteRequests.Window != 30*time.Second {
		t.Fatalf("window override not applied: %+v", search)
	}
	// EnableHTTP was not in the file and must keep its default.
	if !cfg.EnableHTTP {
		t.Fatalf("unset file values must not clobber defaults: %+v", cfg)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "quotad.yaml")
	if err := os.WriteFile(path, []byte("redis_addr: \"file:6379\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(LoadOptions{
		ConfigPath: path,
		Args:       []string{},
		Environ: []string{
			"QUOTAD_REDIS_ADDR=env:6379",
			"QUOTAD_MAX_RETRIES=7",
			"QUOTAD_FALLBACK_ENABLED=false",
			"UNRELATED=ignored",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RedisAddr != "env:6379" {
		t.Fatalf("env must beat file, got %q", cfg.RedisAddr)
	}
	if cfg.MaxRetries != 7 || cfg.FallbackEnabled {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadConfig_FlagsBeatEnv(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(LoadOptions{
		Args:    []string{"-redis_addr", "flag:6379", "-max_retries", "9"},
		Environ: []string{"QUOTAD_REDIS_ADDR=env:6379", "QUOTAD_MAX_RETRIES=7"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RedisAddr != "flag:6379" || cfg.MaxRetries != 9 {
		t.Fatalf("flags must beat env: %+v", cfg)
	}
}

func TestLoadConfig_ConfigFlagSelectsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "quotad.yaml")
	if err := os.WriteFile(path, []byte("http_listen_addr: \":7070\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(LoadOptions{Args: []string{"-config", path}, Environ: []string{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPListenAddr != ":7070" {
		t.Fatalf("config flag not honored: %+v", cfg)
	}
}

func TestLoadConfig_RejectsBadValues(t *testing.T) {
	t.Parallel()

	if _, err := LoadConfig(LoadOptions{Args: []string{}, Environ: []string{"QUOTAD_MAX_RETRIES=abc"}}); err == nil {
		t.Fatal("expected error for non-numeric env value")
	}
	if _, err := LoadConfig(LoadOptions{Args: []string{"-max_retries", "abc"}, Environ: []string{}}); err == nil {
		t.Fatal("expected error for non-numeric flag value")
	}
	if _, err := LoadConfig(LoadOptions{ConfigPath: "/nonexistent/quotad.yaml", Args: []string{}, Environ: []string{}}); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
