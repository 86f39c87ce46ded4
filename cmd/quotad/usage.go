package main

import (
	"fmt"
	"io"
)

func printUsage(w io.Writer) {
	if w == nil {
		return
	}
	fmt.Fprintln(w, "Usage")
	fmt.Fprintln(w, "  quotad [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Flags")
	fmt.Fprintln(w, "  config string config file path (YAML)")
	fmt.Fprintln(w, "  http_addr string http listen address")
	fmt.Fprintln(w, "  enable_http bool enable http")
	fmt.Fprintln(w, "  redis_addr string redis address")
	fmt.Fprintln(w, "  max_retries int max acquire retries")
	fmt.Fprintln(w, "  fallback_enabled bool enable local fallback")
	fmt.Fprintln(w, "  breaker_failure_threshold int breaker failure threshold")
	fmt.Fprintln(w, "  breaker_open_ms int breaker open ms")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment")
	fmt.Fprintln(w, "  QUOTAD_HTTP_ADDR, QUOTAD_ENABLE_HTTP, QUOTAD_REDIS_ADDR,")
	fmt.Fprintln(w, "  QUOTAD_REDIS_PASSWORD, QUOTAD_REDIS_DB, QUOTAD_STORE_OP_TIMEOUT_MS,")
	fmt.Fprintln(w, "  QUOTAD_MAX_RETRIES, QUOTAD_FALLBACK_ENABLED, QUOTAD_HEALTH_INTERVAL_MS")
}
