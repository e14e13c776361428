package backend

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed backend call.
type ErrorKind string

const (
	// KindNetwork means the request never produced a response.
	KindNetwork ErrorKind = "network"
	// KindHTTP means the backend answered with a non-2xx status.
	KindHTTP ErrorKind = "http"
	// KindApplication means a 2xx body reported failure, either through
	// an "error" field or a status other than "success".
	KindApplication ErrorKind = "application"
)

// APIError is returned by every backend call that fails.
type APIError struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case KindNetwork:
		return fmt.Sprintf("%s: backend unreachable: %v", e.Op, e.Err)
	case KindHTTP:
		if e.Message != "" {
			return fmt.Sprintf("%s: %s (HTTP %d)", e.Op, e.Message, e.StatusCode)
		}
		return fmt.Sprintf("%s: unexpected HTTP status %d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// UserMessage returns the text shown in status banners: the backend's own
// message when it sent one, otherwise the full error.
func (e *APIError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error()
}

// KindOf reports the ErrorKind of err, or "" if err is not an APIError.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// Message returns the user-facing text for any error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return err.Error()
}
