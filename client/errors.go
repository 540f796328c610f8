package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel error kinds for API failures. Callers match them with
// errors.Is against the errors returned by Session methods.
var (
	// ErrBadQuery indicates the service rejected the request (HTTP 400).
	ErrBadQuery = errors.New("bad query")

	// ErrInvalidAPIKey indicates authentication failed (HTTP 401).
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrNoPermission indicates the credential lacks access (HTTP 403).
	ErrNoPermission = errors.New("no permission")

	// ErrMissingResource indicates the resource does not exist (HTTP 404).
	ErrMissingResource = errors.New("missing resource")

	// ErrTooManyRequests indicates transient rate limiting (HTTP 429).
	// The session retries these internally.
	ErrTooManyRequests = errors.New("too many requests")

	// ErrOverQuota indicates a longer-term usage cap was exceeded
	// (HTTP 429 with "quota" in the body). Never retried.
	ErrOverQuota = errors.New("over quota")

	// ErrServerError indicates a service-side failure (HTTP 500).
	ErrServerError = errors.New("server error")

	// ErrTooManyThrottles is returned by the session once the retry
	// budget for throttled responses is exhausted. It is distinct from
	// ErrTooManyRequests: the service may still be throttling, but the
	// session has given up.
	ErrTooManyThrottles = errors.New("too many throttles, giving up")

	// ErrStreamConsumed is returned when a Stream is opened more than once.
	ErrStreamConsumed = errors.New("stream already consumed")
)

// APIError is a failure response from the Stratus API. It carries the
// status code and body text, and unwraps to one of the sentinel kinds
// above when the status maps to one.
type APIError struct {
	StatusCode int
	Body       string

	kind error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.kind != nil {
		return fmt.Sprintf("%v (status %d): %s", e.kind, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// Unwrap exposes the sentinel kind for errors.Is matching.
func (e *APIError) Unwrap() error {
	return e.kind
}

// statusError maps a response status and body text to a typed error.
// Statuses below 300 map to nil. A 429 body containing "quota" in any
// case means the account is over quota rather than merely throttled.
func statusError(status int, body string) error {
	if status < http.StatusMultipleChoices {
		return nil
	}

	var kind error
	switch status {
	case http.StatusBadRequest:
		kind = ErrBadQuery
	case http.StatusUnauthorized:
		kind = ErrInvalidAPIKey
	case http.StatusForbidden:
		kind = ErrNoPermission
	case http.StatusNotFound:
		kind = ErrMissingResource
	case http.StatusTooManyRequests:
		kind = ErrTooManyRequests
		if strings.Contains(strings.ToLower(body), "quota") {
			kind = ErrOverQuota
		}
	case http.StatusInternalServerError:
		kind = ErrServerError
	}

	return &APIError{StatusCode: status, Body: body, kind: kind}
}
