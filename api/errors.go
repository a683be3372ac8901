// File: api/errors.go
// Author: momentics <momentics@gmail.com>
//
// Common error types for the taskloop scheduler API.

package api

import "fmt"

// ErrorCode enumerates the error conditions a scheduler call can report.
// The scheduler's own state remains valid after any of these; callbacks
// never propagate errors back into the scheduler.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeNotValid
	ErrCodeAlreadyExists
	ErrCodeNotFound
	ErrCodeLimit
	ErrCodeOutOfMemory
	ErrCodeIO
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeInvalidArgument:
		return "InvalidArgument"
	case ErrCodeNotValid:
		return "NotValid"
	case ErrCodeAlreadyExists:
		return "AlreadyExists"
	case ErrCodeNotFound:
		return "NotFound"
	case ErrCodeLimit:
		return "Limit"
	case ErrCodeOutOfMemory:
		return "OutOfMemory"
	case ErrCodeIO:
		return "IoError"
	default:
		return "OK"
	}
}

// Error is a structured error with a code and optional cause/context, the
// shape every caller-facing scheduler error uses.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if len(e.Context) > 0 {
		return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// WithContext attaches a key/value pair for diagnostics and returns the
// receiver for chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// NewError constructs a structured error of the given code.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// IoError wraps a platform adapter failure.
func IoError(cause error) *Error {
	return &Error{Code: ErrCodeIO, Message: "I/O error", Cause: cause}
}

var (
	ErrInvalidArgument = NewError(ErrCodeInvalidArgument, "invalid argument")
	ErrNotValid        = NewError(ErrCodeNotValid, "task is not valid")
	ErrAlreadyExists    = NewError(ErrCodeAlreadyExists, "already exists")
	ErrNotFound         = NewError(ErrCodeNotFound, "not found")
	ErrLimit            = NewError(ErrCodeLimit, "task limit exceeded")
	ErrOutOfMemory      = NewError(ErrCodeOutOfMemory, "out of memory")
	ErrNotSupported     = NewError(ErrCodeInvalidArgument, "operation not supported on this platform")
)

// CodeOf extracts the ErrorCode from err if it is (or wraps) an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return ErrCodeOK
	}
	return e.Code
}
