// Package quota provides an HTTP transport.
package quota

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

const defaultMaxBodyBytes = 1 << 20

const requestIDHeader = "X-Request-Id"

// HTTPTransport serves the quota API over HTTP.
type HTTPTransport struct {
	addr           string
	srv            *http.Server
	quota          QuotaService
	appReady       func() bool
	mode           func() OperatingMode
	metricsHandler http.Handler
	logger         Logger
	maxBodyBytes   int64
	mux            http.Handler
	mu             sync.Mutex
}

// NewHTTPTransport constructs a transport bound to an address.
func NewHTTPTransport(addr string, ready func() bool) *HTTPTransport {
	if addr == "" {
		addr = ":8080"
	}
	if ready == nil {
		ready = func() bool { return false }
	}
	return &HTTPTransport{addr: addr, appReady: ready, maxBodyBytes: defaultMaxBodyBytes}
}

// ServeQuota registers the quota service.
func (t *HTTPTransport) ServeQuota(service QuotaService) error {
	if service == nil {
		return errors.New("quota service is required")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.quota = service
	return nil
}

// Start begins serving HTTP requests.
func (t *HTTPTransport) Start() error {
	if t == nil {
		return errors.New("http transport is nil")
	}
	handler, err := t.handler()
	if err != nil {
		return err
	}
	t.mu.Lock()
	if t.srv == nil {
		t.srv = &http.Server{Addr: t.addr, Handler: handler}
	}
	srv := t.srv
	t.mu.Unlock()

	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server.
func (t *HTTPTransport) Shutdown(ctx context.Context) error {
	if t == nil {
		return errors.New("http transport is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	t.mu.Lock()
	srv := t.srv
	t.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (t *HTTPTransport) Handler() (http.Handler, error) {
	return t.handler()
}

func (t *HTTPTransport) handler() (http.Handler, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mux != nil {
		return t.mux, nil
	}
	if t.quota == nil {
		return nil, errors.New("quota service must be registered before starting")
	}
	mux := http.NewServeMux()
	t.registerRoutes(mux)
	t.mux = requestIDMiddleware(mux)
	return t.mux, nil
}

func (t *HTTPTransport) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/quota/acquire", t.handleAcquire)
	mux.HandleFunc("/healthz", t.handleHealth)
	mux.HandleFunc("/readyz", t.handleReady)
	mux.HandleFunc("/mode", t.handleMode)
	if t.metricsHandler != nil {
		mux.Handle("/metrics", t.metricsHandler)
	}
}

// requestIDMiddleware stamps a request ID when the caller did not send one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
			r.Header.Set(requestIDHeader, requestID)
		}
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r)
	})
}

func (t *HTTPTransport) handleAcquire(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var httpReq httpAcquireRequest
	if err := t.decodeJSON(w, r, &httpReq); err != nil {
		t.writeError(w, http.StatusBadRequest, err)
		return
	}
	if httpReq.ResourceID == "" || httpReq.Units <= 0 {
		t.writeError(w, http.StatusBadRequest, ErrInvalidInput)
		return
	}
	resp, err := t.quota.Acquire(r.Context(), toAcquireRequest(httpReq, r.Header.Get(requestIDHeader)))
	if err != nil {
		switch CodeOf(err) {
		case CodeInvalidInput, CodeInvalidUnits, CodeUnknownClass, CodePolicyNotFound:
			t.writeError(w, http.StatusBadRequest, err)
		case CodeStoreUnavailable:
			t.writeError(w, http.StatusServiceUnavailable, err)
		default:
			t.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, fromAcquireResponse(resp))
}

func (t *HTTPTransport) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (t *HTTPTransport) handleReady(w http.ResponseWriter, r *http.Request) {
	if t.appReady != nil && t.appReady() {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
}

func (t *HTTPTransport) handleMode(w http.ResponseWriter, r *http.Request) {
	mode := ModeNormal
	if t.mode != nil {
		mode = t.mode()
	}
	writeJSON(w, http.StatusOK, httpModeResponse{Mode: ModeLabel(mode)})
}

func (t *HTTPTransport) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	maxBytes := t.maxBodyBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return Wrap(CodeInvalidInput, "invalid request body", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return Wrap(CodeInvalidInput, "unexpected trailing data", nil)
	}
	return nil
}

func (t *HTTPTransport) writeError(w http.ResponseWriter, status int, err error) {
	message := "internal error"
	if err != nil {
		message = err.Error()
	}
	writeJSON(w, status, httpErrorResponse{Error: message})
	if t.logger != nil && status >= http.StatusInternalServerError {
		t.logger.Error("http request failed", map[string]any{
			"status": status,
			"error":  message,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
