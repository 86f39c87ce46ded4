// Package quota provides HTTP wire models.
package quota

type httpAcquireRequest struct {
	ResourceID string `json:"resource_id"`
	LimitClass string `json:"limit_class"`
	Units      int64  `json:"units"`
}

type httpAcquireResponse struct {
	Admitted       bool   `json:"admitted"`
	UnitsGranted   int64  `json:"units_granted"`
	UnitsRemaining int64  `json:"units_remaining"`
	RetryAfterMS   int64  `json:"retry_after_ms,omitempty"`
	Degraded       bool   `json:"degraded,omitempty"`
	ErrorCode      string `json:"error_code,omitempty"`
}

type httpErrorResponse struct {
	Error string `json:"error"`
}

type httpModeResponse struct {
	Mode string `json:"mode"`
}

func toAcquireRequest(req httpAcquireRequest, requestID string) *AcquireRequest {
	return &AcquireRequest{
		RequestID:  requestID,
		ResourceID: req.ResourceID,
		Class:      LimitClass(req.LimitClass),
		Units:      req.Units,
	}
}

func fromAcquireResponse(resp *AcquireResponse) httpAcquireResponse {
	if resp == nil {
		return httpAcquireResponse{}
	}
	return httpAcquireResponse{
		Admitted:       resp.Admitted,
		UnitsGranted:   resp.UnitsGranted,
		UnitsRemaining: resp.UnitsRemaining,
		RetryAfterMS:   resp.RetryAfter.Milliseconds(),
		Degraded:       resp.Degraded,
		ErrorCode:      resp.ErrorCode,
	}
}
