// Package quota wires application dependencies.
package quota

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Application holds core components for the service.
type Application struct {
	Config         *Config
	Resolver       *PolicyResolver
	Engine         *Engine
	Handler        *AcquireHandler
	Fallback       *FallbackLimiter
	Breaker        *CircuitBreaker
	DegradeControl *DegradeController
	HealthLoop     *HealthLoop
	Store          BucketStore

	ready         atomic.Bool
	httpTransport *HTTPTransport
	registry      *prometheus.Registry
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// NewApplication validates configuration and prepares the application.
func NewApplication(cfg *Config) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if len(cfg.Policies) == 0 {
		return nil, errors.New("at least one limit policy is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	logger := cfg.Logger
	if logger == nil {
		logger = NewStdLogger(os.Stderr)
	}

	store := cfg.Store
	if store == nil && cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		redisStore, err := NewRedisBucketStore(client, cfg.StoreOpTimeout)
		if err != nil {
			return nil, err
		}
		store = redisStore
	}
	if store == nil {
		store = NewInMemoryBucketStore(nil)
	}

	var registry *prometheus.Registry
	metrics := cfg.Metrics
	if metrics == nil {
		registry = prometheus.NewRegistry()
		metrics = NewPrometheusMetrics(registry)
	}

	resolver := NewPolicyResolver(cfg.Policies)
	fallback := NewFallbackLimiter(nil)
	breaker := NewCircuitBreaker(cfg.BreakerOptions)
	degrade := NewDegradeController(store, cfg.DegradeThresh, nil)
	degrade.SetLogger(logger)
	engine := NewEngine(store, resolver, fallback, breaker, EngineOptions{
		MaxRetries:      cfg.MaxRetries,
		FallbackEnabled: cfg.FallbackEnabled,
		Logger:          logger,
		Metrics:         metrics,
	})
	handler := NewAcquireHandler(engine, metrics, logger)
	health := &HealthLoop{degrade: degrade, interval: cfg.HealthInterval}

	app := &Application{
		Config:         cfg,
		Resolver:       resolver,
		Engine:         engine,
		Handler:        handler,
		Fallback:       fallback,
		Breaker:        breaker,
		DegradeControl: degrade,
		HealthLoop:     health,
		Store:          store,
		registry:       registry,
	}

	if cfg.EnableHTTP {
		transport := NewHTTPTransport(cfg.HTTPListenAddr, app.Ready)
		if err := transport.ServeQuota(app.Handler); err != nil {
			return nil, err
		}
		transport.mode = app.Mode
		transport.logger = logger
		if cfg.MaxBodyBytes > 0 {
			transport.maxBodyBytes = cfg.MaxBodyBytes
		}
		if registry != nil {
			transport.metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
		}
		app.httpTransport = transport
	}

	return app, nil
}

// Start begins background work for the application.
func (app *Application) Start(ctx context.Context) error {
	if app == nil {
		return errors.New("application is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	app.cancel = cancel

	if app.HealthLoop != nil {
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			_ = app.HealthLoop.Start(ctx)
		}()
	}
	if app.httpTransport != nil {
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			_ = app.httpTransport.Start()
		}()
	}

	app.ready.Store(true)
	return nil
}

// Shutdown stops background work for the application.
func (app *Application) Shutdown(ctx context.Context) error {
	if app == nil {
		return errors.New("application is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if app.cancel != nil {
		app.cancel()
	}
	app.ready.Store(false)
	if app.httpTransport != nil {
		_ = app.httpTransport.Shutdown(ctx)
	}
	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready reports whether the application has completed startup.
func (app *Application) Ready() bool {
	if app == nil {
		return false
	}
	return app.ready.Load()
}

// Mode returns the current operating mode.
func (app *Application) Mode() OperatingMode {
	if app == nil || app.DegradeControl == nil {
		return ModeNormal
	}
	return app.DegradeControl.Mode()
}
