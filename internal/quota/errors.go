// Package quota defines typed errors.
package quota

import "errors"

// ErrorCode represents a typed error code.
type ErrorCode string

const (
	CodeInvalidInput     ErrorCode = "INVALID_INPUT"
	CodeInvalidUnits     ErrorCode = "INVALID_UNITS"
	CodeUnknownClass     ErrorCode = "UNKNOWN_CLASS"
	CodePolicyNotFound   ErrorCode = "POLICY_NOT_FOUND"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
)

// AppError is a typed application error.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error returns the error message.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Wrap creates a new AppError.
func Wrap(code ErrorCode, msg string, err error) error {
	return &AppError{Code: code, Message: msg, Err: err}
}

// CodeOf returns the ErrorCode for an error.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ErrInvalidInput indicates validation failures.
var ErrInvalidInput = &AppError{Code: CodeInvalidInput, Message: "invalid input"}

// ErrVersionConflict indicates a lost optimistic-concurrency race.
var ErrVersionConflict = &AppError{Code: CodeConflict, Message: "version conflict"}

// ErrBucketExists indicates a create-if-absent race lost to another writer.
var ErrBucketExists = &AppError{Code: CodeAlreadyExists, Message: "bucket already exists"}

// ErrBucketNotFound indicates a conditional update against a missing bucket.
var ErrBucketNotFound = &AppError{Code: CodeNotFound, Message: "bucket not found"}

// ErrStoreUnavailable indicates the coordination store cannot be reached.
var ErrStoreUnavailable = &AppError{Code: CodeStoreUnavailable, Message: "store unavailable"}
