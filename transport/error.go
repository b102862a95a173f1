package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// maxErrBodySize caps the amount of response body read when
// building an error for an unexpected status code. This prevents
// unbounded memory usage when a large response arrives with a
// wrong status.
const maxErrBodySize = 4 << 10 // 4KB

// execFn represents a func to operate on a response.
type execFn func(response *http.Response) error

var (
	// ErrUnexpectedStatusCode is the sentinel error wrapped by [UnexpectedStatusError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrAuthFailure is joined with [ErrUnexpectedStatusCode] when the node
	// responds with 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
)

// UnexpectedStatusError is returned when the node answers with a
// status other than 200 OK.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
	Err        error
	after      time.Duration
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *UnexpectedStatusError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the status is transient.
func (e *UnexpectedStatusError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// RetryAfter returns the delay requested by the node's Retry-After
// header, or zero.
func (e *UnexpectedStatusError) RetryAfter() time.Duration {
	return e.after
}

func newStatusError(resp *http.Response, body []byte) *UnexpectedStatusError {
	err := ErrUnexpectedStatusCode
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		err = fmt.Errorf("%w: %w", ErrAuthFailure, ErrUnexpectedStatusCode)
	}

	return &UnexpectedStatusError{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Err:        err,
		after:      parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// parseRetryAfter understands both the delay-seconds and HTTP-date forms.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}

	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}

	if at, err := http.ParseTime(v); err == nil {
		return max(time.Until(at), 0)
	}

	return 0
}
