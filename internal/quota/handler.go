// Package quota provides the acquire request handler.
package quota

import (
	"context"
	"errors"
	"time"
)

// AcquireRequest captures a single admission request.
type AcquireRequest struct {
	RequestID  string
	ResourceID string
	Class      LimitClass
	Units      int64
}

// AcquireResponse reports the admission decision to callers.
type AcquireResponse struct {
	Admitted       bool
	UnitsGranted   int64
	UnitsRemaining int64
	RetryAfter     time.Duration
	Degraded       bool
	ErrorCode      string
}

// QuotaService evaluates acquire requests.
type QuotaService interface {
	Acquire(ctx context.Context, req *AcquireRequest) (*AcquireResponse, error)
}

// AcquireHandler validates requests and maps engine outcomes.
type AcquireHandler struct {
	engine  *Engine
	metrics Metrics
	logger  Logger
}

// NewAcquireHandler constructs an AcquireHandler.
func NewAcquireHandler(engine *Engine, metrics Metrics, logger Logger) *AcquireHandler {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &AcquireHandler{engine: engine, metrics: metrics, logger: logger}
}

// Acquire evaluates an admission request. Configuration errors are
// returned to the caller; everything else resolves to a response.
func (h *AcquireHandler) Acquire(ctx context.Context, req *AcquireRequest) (*AcquireResponse, error) {
	if req == nil || req.ResourceID == "" {
		return nil, ErrInvalidInput
	}
	if h == nil || h.engine == nil {
		return nil, errors.New("handler is not initialized")
	}
	start := time.Now()
	defer func() {
		h.metrics.ObserveAcquireLatency(time.Since(start))
	}()

	outcome, err := h.engine.Acquire(ctx, req.ResourceID, req.Class, req.Units)
	if err != nil {
		switch CodeOf(err) {
		case CodeInvalidInput, CodeInvalidUnits, CodeUnknownClass, CodePolicyNotFound:
			return nil, err
		}
		resp := &AcquireResponse{ErrorCode: string(CodeOf(err))}
		if resp.ErrorCode == "" {
			resp.ErrorCode = string(CodeStoreUnavailable)
		}
		h.metrics.IncAcquire("error", string(req.Class))
		return resp, nil
	}

	resp := &AcquireResponse{
		Admitted:       outcome.Admitted,
		UnitsGranted:   outcome.UnitsGranted,
		UnitsRemaining: outcome.UnitsRemaining,
		RetryAfter:     outcome.RetryAfter,
		Degraded:       outcome.Degraded,
	}
	h.metrics.IncAcquire(resultLabel(outcome), string(req.Class))
	return resp, nil
}

func resultLabel(outcome *AcquireOutcome) string {
	switch {
	case outcome == nil:
		return "error"
	case outcome.Admitted && outcome.Degraded:
		return "admitted_degraded"
	case outcome.Admitted:
		return "admitted"
	default:
		return "denied"
	}
}
