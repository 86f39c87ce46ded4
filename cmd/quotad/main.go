// Command quotad starts the quota limiter service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"apiquota/internal/quota"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "help" {
		printUsage(os.Stdout)
		return
	}

	cfg, err := quota.LoadConfig(quota.LoadOptions{})
	if err != nil {
		printUsage(os.Stderr)
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := quota.NewApplication(cfg)
	if err != nil {
		log.Fatalf("failed to create application: %v", err)
	}
	if err := app.Start(ctx); err != nil {
		log.Fatalf("failed to start application: %v", err)
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("failed to shut down cleanly: %v", err)
	}
}
