// Package quota provides configuration for the application wiring.
package quota

import "time"

// Config captures dependency and runtime settings.
type Config struct {
	HTTPListenAddr  string
	EnableHTTP      bool
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	StoreOpTimeout  time.Duration
	MaxRetries      int
	FallbackEnabled bool
	BreakerOptions  CircuitOptions
	HealthInterval  time.Duration
	DegradeThresh   DegradeThresholds
	MaxBodyBytes    int64
	Policies        []LimitPolicy

	// Injected collaborators; defaults are constructed by NewApplication.
	Store   BucketStore
	Logger  Logger
	Metrics Metrics
}
