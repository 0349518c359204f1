package ble

import (
	"errors"
	"fmt"
)

// ErrorType categorizes session failures so callers can decide what is
// worth retrying and what means the device is simply unreachable.
type ErrorType int

const (
	// ErrTypeConnection means connect retries were exhausted; the session
	// is left disconnected.
	ErrTypeConnection ErrorType = iota
	// ErrTypeWrite is a transient write failure, already retried with a
	// reconnect before being surfaced.
	ErrTypeWrite
	// ErrTypeTimeout means no notification arrived within the response
	// window. The link is assumed alive; the session stays connected.
	ErrTypeTimeout
	// ErrTypeMalformed means the device answered with a structurally
	// invalid frame.
	ErrTypeMalformed
	// ErrTypeClosed means the session was closed while an operation was
	// pending, or used after Close.
	ErrTypeClosed
)

// String returns a human-readable name for the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrTypeConnection:
		return "connection unavailable"
	case ErrTypeWrite:
		return "write failure"
	case ErrTypeTimeout:
		return "response timeout"
	case ErrTypeMalformed:
		return "malformed response"
	case ErrTypeClosed:
		return "session closed"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(et))
	}
}

// SessionError is a typed failure from a session operation, carrying the
// device identity and attempt count for logging and diagnostics.
type SessionError struct {
	Type     ErrorType
	Address  string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Address, e.Type)
	if e.Attempts > 0 {
		msg = fmt.Sprintf("%s after %d attempt(s)", msg, e.Attempts)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *SessionError) Unwrap() error {
	return e.Err
}

// IsType reports whether err is a SessionError of the given type.
func IsType(err error, t ErrorType) bool {
	var se *SessionError
	return errors.As(err, &se) && se.Type == t
}
