package api

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("request is not authenticated")
)

// APIError is a rejection the backend answered with. The message is surfaced
// verbatim to the caller.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// NetworkError wraps a transport-level failure (timeout, connection refused)
// so callers can tell connectivity problems from server rejections.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
