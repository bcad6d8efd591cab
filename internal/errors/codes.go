// Package errors defines the structured error taxonomy for the retrieval
// and generation engine.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies an engine failure.
type ErrorCode string

const (
	// ErrCodeBackendTransient indicates a network or rate-limit failure from
	// the embedding or generation backend. Retryable with backoff.
	ErrCodeBackendTransient ErrorCode = "BACKEND_TRANSIENT"
	// ErrCodeInvalidArgument indicates missing, empty, or malformed input.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeStoreCorrupted indicates the persisted store artifacts are
	// missing or mismatched.
	ErrCodeStoreCorrupted ErrorCode = "STORE_CORRUPTED"
	// ErrCodeRetriesExhausted indicates a backend call failed after all
	// retry attempts.
	ErrCodeRetriesExhausted ErrorCode = "RETRIES_EXHAUSTED"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
)

// EngineError is a classified error for engine operations.
type EngineError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// BackendTransient creates a transient backend error.
func BackendTransient(msg string, cause error) *EngineError {
	return &EngineError{Code: ErrCodeBackendTransient, Message: msg, Cause: cause}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *EngineError {
	return &EngineError{Code: ErrCodeInvalidArgument, Message: msg}
}

// StoreCorrupted creates a store corruption error.
func StoreCorrupted(msg string, cause error) *EngineError {
	return &EngineError{Code: ErrCodeStoreCorrupted, Message: msg, Cause: cause}
}

// RetriesExhausted creates a retries exhausted error.
func RetriesExhausted(msg string, cause error) *EngineError {
	return &EngineError{Code: ErrCodeRetriesExhausted, Message: msg, Cause: cause}
}

// ContextCanceled creates a context canceled error.
func ContextCanceled(cause error) *EngineError {
	return &EngineError{Code: ErrCodeContextCanceled, Message: "operation canceled", Cause: cause}
}

// Wrap wraps an existing error with a code.
func Wrap(cause error, code ErrorCode, msg string) *EngineError {
	return &EngineError{Code: code, Message: msg, Cause: cause}
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	var engineErr *EngineError
	if stderrors.As(err, &engineErr) {
		return engineErr.Code == code
	}
	return false
}
