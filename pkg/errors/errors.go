package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the different classes of failure a scan can hit
type ErrorType string

const (
	ErrorTypeTransport     ErrorType = "transport"
	ErrorTypeInvalidSymbol ErrorType = "invalid_symbol"
	ErrorTypeWidthMismatch ErrorType = "width_mismatch"
	ErrorTypeStorage       ErrorType = "storage"
	ErrorTypeConfig        ErrorType = "config"
	ErrorTypeUnknown       ErrorType = "unknown"
)

// Error is a typed error. Two *Error values match under errors.Is when
// their types are equal, so the sentinels below can be used as targets.
type Error struct {
	Type    ErrorType
	Op      string
	Message string
	Code    int
	Err     error
}

// Sentinels for errors.Is checks
var (
	ErrTransport     = &Error{Type: ErrorTypeTransport}
	ErrInvalidSymbol = &Error{Type: ErrorTypeInvalidSymbol}
	ErrWidthMismatch = &Error{Type: ErrorTypeWidthMismatch}
	ErrStorage       = &Error{Type: ErrorTypeStorage}
	ErrConfig        = &Error{Type: ErrorTypeConfig}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s error: %s", e.Op, e.Type, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Type, msg)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// New creates a typed error with a message
func New(t ErrorType, op, message string) *Error {
	return &Error{Type: t, Op: op, Message: message}
}

// Wrap attaches a type and operation to an underlying error
func Wrap(t ErrorType, op string, err error) *Error {
	return &Error{Type: t, Op: op, Err: err}
}

// Storage wraps err as a storage failure
func Storage(op string, err error) *Error {
	return Wrap(ErrorTypeStorage, op, err)
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsFatal reports whether an error must abort a running scan.
// Only storage failures qualify: losing resumability is not acceptable,
// while transport failures are folded into not-found results.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrStorage)
}

// IsTransientStatusCode reports whether an HTTP status code points at a
// server-side or throttling condition rather than a definitive answer
func IsTransientStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 408, 429:
		return true
	default:
		return statusCode >= 500
	}
}
