package model

import (
	"fmt"

	"github.com/Laisky/errors/v2"
)

// ErrorCode identifies a machine-stable store error.
type ErrorCode string

const (
	// ErrCodeNotFound means a version, backup or media file does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeStorageFailure means the underlying read or write failed.
	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"
	// ErrCodeInvalidArgument means the caller sent something unusable.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
)

// Error is a typed store error.
type Error struct {
	Code    ErrorCode
	Message string
	cause   error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e == nil {
		return "cms error: <nil>"
	}

	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", msg, e.cause.Error())
	}

	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// NewError constructs a typed error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NotFoundf builds a NOT_FOUND error.
func NotFoundf(format string, args ...any) error {
	return errors.WithStack(NewError(ErrCodeNotFound, fmt.Sprintf(format, args...)))
}

// InvalidArgumentf builds an INVALID_ARGUMENT error.
func InvalidArgumentf(format string, args ...any) error {
	return errors.WithStack(NewError(ErrCodeInvalidArgument, fmt.Sprintf(format, args...)))
}

// StorageFailure wraps an I/O error as STORAGE_FAILURE. Nil stays nil.
func StorageFailure(err error, message string) error {
	if err == nil {
		return nil
	}
	if typed, ok := AsError(err); ok && typed.Code == ErrCodeStorageFailure {
		return errors.Wrap(err, message)
	}

	return errors.WithStack(&Error{Code: ErrCodeStorageFailure, Message: message, cause: err})
}

// AsError extracts a typed error from the chain.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}

// IsCode reports whether the chain carries code.
func IsCode(err error, code ErrorCode) bool {
	typed, ok := AsError(err)
	return ok && typed.Code == code
}

// IsNotFound reports a NOT_FOUND error.
func IsNotFound(err error) bool {
	return IsCode(err, ErrCodeNotFound)
}

// IsStorageFailure reports a STORAGE_FAILURE error.
func IsStorageFailure(err error) bool {
	return IsCode(err, ErrCodeStorageFailure)
}
