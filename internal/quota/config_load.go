// Package quota provides configuration loading.
package quota

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadOptions controls config loading.
type LoadOptions struct {
	ConfigPath string
	Args       []string
	Environ    []string
}

// LoadConfig loads configuration from defaults, file, env, and flags, in
// that order of increasing precedence. Unset values never clobber
// defaults.
func LoadConfig(opts LoadOptions) (*Config, error) {
	args := opts.Args
	if args == nil {
		args = os.Args[1:]
	}
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}

	flags, err := parseFlagOverrides(args)
	if err != nil {
		return nil, err
	}
	configPath := opts.ConfigPath
	if flags.ConfigPath != nil {
		configPath = *flags.ConfigPath
	}

	cfg := defaultConfig()
	if configPath != "" {
		fileOverrides, err := loadConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		applyFileOverrides(cfg, fileOverrides)
	}
	if err := applyEnvOverrides(cfg, environ); err != nil {
		return nil, err
	}
	applyFlagOverrides(cfg, flags)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		HTTPListenAddr:  ":8080",
		EnableHTTP:      true,
		StoreOpTimeout:  500 * time.Millisecond,
		MaxRetries:      3,
		FallbackEnabled: true,
		BreakerOptions: CircuitOptions{
			FailureThreshold: 5,
			OpenDuration:     time.Second,
			HalfOpenMaxCalls: 2,
		},
		HealthInterval: time.Second,
		DegradeThresh: DegradeThresholds{
			StoreUnhealthyFor:   2 * time.Second,
			StoreEmergencyAfter: 30 * time.Second,
		},
		MaxBodyBytes: 1 << 20,
	}
}

type fileOverrides struct {
	HTTPListenAddr   *string            `yaml:"http_listen_addr"`
	EnableHTTP       *bool              `yaml:"enable_http"`
	RedisAddr        *string            `yaml:"redis_addr"`
	RedisPassword    *string            `yaml:"redis_password"`
	RedisDB          *int               `yaml:"redis_db"`
	StoreOpTimeoutMS *int64             `yaml:"store_op_timeout_ms"`
	MaxRetries       *int               `yaml:"max_retries"`
	FallbackEnabled  *bool              `yaml:"fallback_enabled"`
	Breaker          *breakerOverrides  `yaml:"breaker"`
	HealthIntervalMS *int64             `yaml:"health_interval_ms"`
	Degrade          *degradeOverrides  `yaml:"degrade"`
	MaxBodyBytes     *int64             `yaml:"max_body_bytes"`
	Policies         []policyOverride   `yaml:"policies"`
}

type breakerOverrides struct {
	FailureThreshold *int64 `yaml:"failure_threshold"`
	OpenDurationMS   *int64 `yaml:"open_duration_ms"`
	HalfOpenMaxCalls *int64 `yaml:"half_open_max_calls"`
}

type degradeOverrides struct {
	StoreUnhealthyForMS   *int64 `yaml:"store_unhealthy_for_ms"`
	StoreEmergencyAfterMS *int64 `yaml:"store_emergency_after_ms"`
}

type policyOverride struct {
	ResourceID        string             `yaml:"resource_id"`
	PerMinuteRequests classLimitOverride `yaml:"per_minute_requests"`
	PerMinuteUnits    classLimitOverride `yaml:"per_minute_units"`
	PerDayRequests    classLimitOverride `yaml:"per_day_requests"`
}

type classLimitOverride struct {
	Capacity      int64  `yaml:"capacity"`
	WindowSeconds *int64 `yaml:"window_seconds"`
}

func (o classLimitOverride) classLimit() ClassLimit {
	limit := ClassLimit{Capacity: o.Capacity}
	if o.WindowSeconds != nil {
		limit.Window = time.Duration(*o.WindowSeconds) * time.Second
	}
	return limit
}

func loadConfigFile(path string) (*fileOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var overrides fileOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &overrides, nil
}

func applyFileOverrides(cfg *Config, overrides *fileOverrides) {
	if cfg == nil || overrides == nil {
		return
	}
	if overrides.HTTPListenAddr != nil {
		cfg.HTTPListenAddr = *overrides.HTTPListenAddr
	}
	if overrides.EnableHTTP != nil {
		cfg.EnableHTTP = *overrides.EnableHTTP
	}
	if overrides.RedisAddr != nil {
		cfg.RedisAddr = *overrides.RedisAddr
	}
	if overrides.RedisPassword != nil {
		cfg.RedisPassword = *overrides.RedisPassword
	}
	if overrides.RedisDB != nil {
		cfg.RedisDB = *overrides.RedisDB
	}
	if overrides.StoreOpTimeoutMS != nil {
		cfg.StoreOpTimeout = time.Duration(*overrides.StoreOpTimeoutMS) * time.Millisecond
	}
	if overrides.MaxRetries != nil {
		cfg.MaxRetries = *overrides.MaxRetries
	}
	if overrides.FallbackEnabled != nil {
		cfg.FallbackEnabled = *overrides.FallbackEnabled
	}
	if overrides.Breaker != nil {
		if overrides.Breaker.FailureThreshold != nil {
			cfg.BreakerOptions.FailureThreshold = *overrides.Breaker.FailureThreshold
		}
		if overrides.Breaker.OpenDurationMS != nil {
			cfg.BreakerOptions.OpenDuration = time.Duration(*overrides.Breaker.OpenDurationMS) * time.Millisecond
		}
		if overrides.Breaker.HalfOpenMaxCalls != nil {
			cfg.BreakerOptions.HalfOpenMaxCalls = *overrides.Breaker.HalfOpenMaxCalls
		}
	}
	if overrides.HealthIntervalMS != nil {
		cfg.HealthInterval = time.Duration(*overrides.HealthIntervalMS) * time.Millisecond
	}
	if overrides.Degrade != nil {
		if overrides.Degrade.StoreUnhealthyForMS != nil {
			cfg.DegradeThresh.StoreUnhealthyFor = time.Duration(*overrides.Degrade.StoreUnhealthyForMS) * time.Millisecond
		}
		if overrides.Degrade.StoreEmergencyAfterMS != nil {
			cfg.DegradeThresh.StoreEmergencyAfter = time.Duration(*overrides.Degrade.StoreEmergencyAfterMS) * time.Millisecond
		}
	}
	if overrides.MaxBodyBytes != nil {
		cfg.MaxBodyBytes = *overrides.MaxBodyBytes
	}
	if len(overrides.Policies) > 0 {
		policies := make([]LimitPolicy, 0, len(overrides.Policies))
		for _, p := range overrides.Policies {
			policies = append(policies, LimitPolicy{
				ResourceID:        p.ResourceID,
				PerMinuteRequests: p.PerMinuteRequests.classLimit(),
				PerMinuteUnits:    p.PerMinuteUnits.classLimit(),
				PerDayRequests:    p.PerDayRequests.classLimit(),
			})
		}
		cfg.Policies = policies
	}
}

const envPrefix = "QUOTAD_"

func applyEnvOverrides(cfg *Config, environ []string) error {
	if cfg == nil {
		return nil
	}
	for _, entry := range environ {
		name, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(name, envPrefix) {
			continue
		}
		switch strings.TrimPrefix(name, envPrefix) {
		case "HTTP_ADDR":
			cfg.HTTPListenAddr = value
		case "ENABLE_HTTP":
			parsed, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			cfg.EnableHTTP = parsed
		case "REDIS_ADDR":
			cfg.RedisAddr = value
		case "REDIS_PASSWORD":
			cfg.RedisPassword = value
		case "REDIS_DB":
			parsed, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			cfg.RedisDB = parsed
		case "STORE_OP_TIMEOUT_MS":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			cfg.StoreOpTimeout = time.Duration(parsed) * time.Millisecond
		case "MAX_RETRIES":
			parsed, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			cfg.MaxRetries = parsed
		case "FALLBACK_ENABLED":
			parsed, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			cfg.FallbackEnabled = parsed
		case "HEALTH_INTERVAL_MS":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			cfg.HealthInterval = time.Duration(parsed) * time.Millisecond
		}
	}
	return nil
}

type flagOverrides struct {
	ConfigPath              *string
	HTTPListenAddr          *string
	EnableHTTP              *bool
	RedisAddr               *string
	MaxRetries              *int
	FallbackEnabled         *bool
	BreakerFailureThreshold *int
	BreakerOpenMS           *int
}

func parseFlagOverrides(args []string) (flagOverrides, error) {
	fs := flag.NewFlagSet("quotad", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	configPath := fs.String("config", "", "config file path")
	httpAddr := fs.String("http_addr", "", "http listen address")
	enableHTTP := fs.Bool("enable_http", false, "enable http")
	redisAddr := fs.String("redis_addr", "", "redis address")
	maxRetries := fs.Int("max_retries", 0, "max acquire retries")
	fallbackEnabled := fs.Bool("fallback_enabled", false, "enable local fallback")
	breakerFailure := fs.Int("breaker_failure_threshold", 0, "breaker failure threshold")
	breakerOpen := fs.Int("breaker_open_ms", 0, "breaker open ms")

	if err := fs.Parse(args); err != nil {
		return flagOverrides{}, errors.New("invalid flag values")
	}

	overrides := flagOverrides{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "config":
			overrides.ConfigPath = configPath
		case "http_addr":
			overrides.HTTPListenAddr = httpAddr
		case "enable_http":
			overrides.EnableHTTP = enableHTTP
		case "redis_addr":
			overrides.RedisAddr = redisAddr
		case "max_retries":
			overrides.MaxRetries = maxRetries
		case "fallback_enabled":
			overrides.FallbackEnabled = fallbackEnabled
		case "breaker_failure_threshold":
			overrides.BreakerFailureThreshold = breakerFailure
		case "breaker_open_ms":
			overrides.BreakerOpenMS = breakerOpen
		}
	})
	return overrides, nil
}

func applyFlagOverrides(cfg *Config, overrides flagOverrides) {
	if cfg == nil {
		return
	}
	if overrides.HTTPListenAddr != nil {
		cfg.HTTPListenAddr = *overrides.HTTPListenAddr
	}
	if overrides.EnableHTTP != nil {
		cfg.EnableHTTP = *overrides.EnableHTTP
	}
	if overrides.RedisAddr != nil {
		cfg.RedisAddr = *overrides.RedisAddr
	}
	if overrides.MaxRetries != nil {
		cfg.MaxRetries = *overrides.MaxRetries
	}
	if overrides.FallbackEnabled != nil {
		cfg.FallbackEnabled = *overrides.FallbackEnabled
	}
	if overrides.BreakerFailureThreshold != nil {
		cfg.BreakerOptions.FailureThreshold = int64(*overrides.BreakerFailureThreshold)
	}
	if overrides.BreakerOpenMS != nil {
		cfg.BreakerOptions.OpenDuration = time.Duration(*overrides.BreakerOpenMS) * time.Millisecond
	}
}
