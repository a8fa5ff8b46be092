package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Failure taxonomy. ResourceLocked is the only retry-eligible condition;
// CorruptedStore is recoverable exactly once by recreation.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrAlreadySent      = errors.New("draft already sent")
	ErrValidation       = errors.New("validation failed")
	ErrResourceLocked   = errors.New("resource locked")
	ErrPermissionDenied = errors.New("permission denied")
	ErrCorruptedStore   = errors.New("corrupted store")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDatabase         = errors.New("database error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsRetryable reports whether err is a transient condition worth a bounded
// retry (a writer blocked on another process holding the store lock).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrResourceLocked)
}

// gRPC error helpers for the exposed read APIs
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}
