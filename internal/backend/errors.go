package backend

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTransport matches any failure where the request never completed.
var ErrTransport = errors.New("backend unreachable")

// ErrDecode is returned when a 2xx body cannot be parsed.
var ErrDecode = errors.New("decode backend response")

// TransportError wraps a network-level failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrTransport) match.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// APIError is a non-2xx response with whatever detail the backend supplied.
type APIError struct {
	Op         string
	StatusCode int
	Detail     string
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Message
	}
	if msg == "" {
		msg = "unexpected status"
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, msg)
}

// NotFound reports a 404 from the backend.
func (e *APIError) NotFound() bool { return e.StatusCode == 404 }

const fallbackMessage = "An unexpected error occurred"

// ErrorMessage converts any client error into the text shown to the user:
// the backend detail, then its message, then the error text.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if d := strings.TrimSpace(apiErr.Detail); d != "" {
			return d
		}
		if m := strings.TrimSpace(apiErr.Message); m != "" {
			return m
		}
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallbackMessage
}
