package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// APIError is a non-2xx response decoded from the backend envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Code)
}

// CooldownError is a 429 on replay: the action is allowed again at
// RetryAfter. The client surfaces the server-provided time rather
// than inventing its own.
type CooldownError struct {
	RetryAfter time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("api: replay on cooldown until %s", e.RetryAfter.Format(time.RFC3339))
}

// statusOf extracts the HTTP status from an error chain, or 0.
func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports a 401 (session expired).
func IsUnauthorized(err error) bool { return statusOf(err) == http.StatusUnauthorized }

// IsForbidden reports a 403 (level/task locked). Local and recoverable,
// never a global redirect.
func IsForbidden(err error) bool { return statusOf(err) == http.StatusForbidden }

// IsPayloadTooLarge reports a 413.
func IsPayloadTooLarge(err error) bool { return statusOf(err) == http.StatusRequestEntityTooLarge }

// AsCooldown extracts a CooldownError from the chain.
func AsCooldown(err error) (*CooldownError, bool) {
	var cd *CooldownError
	if errors.As(err, &cd) {
		return cd, true
	}
	return nil, false
}
