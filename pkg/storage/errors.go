package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrAuthFailed       = errors.New("authentication failed")
	ErrConnFailed       = errors.New("connection failed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("file not found")
	ErrTimeout          = errors.New("operation timeout")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrAlreadyExists    = errors.New("file already exists")
	ErrIncompleteCopy   = errors.New("stored copy does not match source")
)

// IsRetryable returns true if error should trigger a retry
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConnFailed) || errors.Is(err, ErrTimeout)
}

// IsCritical returns true if error should stop all operations
func IsCritical(err error) bool {
	return errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrInvalidConfig)
}

// WrapError adds context to an error
func WrapError(backend, operation string, err error) error {
	return fmt.Errorf("%s (%s): %w", operation, backend, err)
}

// Classify tags transport errors with the sentinel the retry policy
// understands. Errors that already carry a sentinel are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{ErrAuthFailed, ErrConnFailed, ErrPermissionDenied, ErrNotFound, ErrTimeout, ErrInvalidConfig} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrConnFailed, err)
	}

	return err
}
