package minimax

import (
	"errors"
	"fmt"
)

// Error is an API-level error reported in base_resp or by HTTP status.
type Error struct {
	// StatusCode is the MiniMax status code from base_resp.
	StatusCode int

	// StatusMsg is the status message from base_resp.
	StatusMsg string

	// TraceID identifies the request for support tickets.
	TraceID string

	// HTTPStatus is the HTTP status code of the response.
	HTTPStatus int
}

func (e *Error) Error() string {
	if e.TraceID != "" {
		return fmt.Sprintf("minimax: %s (code=%d, trace=%s)", e.StatusMsg, e.StatusCode, e.TraceID)
	}
	return fmt.Sprintf("minimax: %s (code=%d)", e.StatusMsg, e.StatusCode)
}

// IsRateLimit reports whether the request was rate limited.
func (e *Error) IsRateLimit() bool {
	return e.StatusCode == 1002 || e.HTTPStatus == 429
}

// IsInvalidAPIKey reports an authentication failure.
func (e *Error) IsInvalidAPIKey() bool {
	return e.StatusCode == 1001 || e.HTTPStatus == 401
}

// IsInsufficientQuota reports an exhausted account balance.
func (e *Error) IsInsufficientQuota() bool {
	return e.StatusCode == 1003
}

// IsInvalidRequest reports a request validation failure.
func (e *Error) IsInvalidRequest() bool {
	return e.StatusCode >= 2000 && e.StatusCode < 3000
}

// IsServerError reports a server-side failure.
func (e *Error) IsServerError() bool {
	return e.StatusCode >= 5000 || e.HTTPStatus >= 500
}

// Retryable reports whether retrying the request may succeed.
func (e *Error) Retryable() bool {
	return e.IsRateLimit() || e.IsServerError()
}

// AsError unwraps err into a *Error when it is one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
