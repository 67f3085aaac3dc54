package rte

import (
	"errors"
	"fmt"
	"time"
)

// EngineError represents an error detected by the engine outside the SCORM
// error register: bad construction options, illegal lifecycle calls on the
// Go API, and persistence failures.
type EngineError struct {
	// Code identifies the error category.
	Code EngineErrorCode

	// Message is a human-readable description.
	Message string

	// SessionID identifies the affected session, if any.
	SessionID string

	// Err is the underlying cause.
	Err error
}

// EngineErrorCode categorizes engine errors.
type EngineErrorCode string

const (
	// ErrCodeInvalidOption indicates a malformed construction option.
	ErrCodeInvalidOption EngineErrorCode = "INVALID_OPTION"

	// ErrCodeInvalidState indicates a Go API call that the lifecycle forbids.
	ErrCodeInvalidState EngineErrorCode = "INVALID_STATE"

	// ErrCodePersistFailed indicates the SessionRegistry refused a snapshot.
	ErrCodePersistFailed EngineErrorCode = "PERSIST_FAILED"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.SessionID != "" {
		msg = fmt.Sprintf("%s (session=%s)", msg, e.SessionID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// IsInvalidOption reports whether err is an invalid-option error.
// Uses errors.As to handle wrapped errors.
func IsInvalidOption(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeInvalidOption
	}
	return false
}

// IsPersistError reports whether err is a persistence failure.
func IsPersistError(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodePersistFailed
	}
	return false
}

func invalidOption(format string, args ...any) *EngineError {
	return &EngineError{Code: ErrCodeInvalidOption, Message: fmt.Sprintf(format, args...)}
}

// CommitRateError is returned when Commit exceeds the rolling window limit.
type CommitRateError struct {
	Commits int           // commits already inside the window
	Limit   int           // maximum commits per window
	Window  time.Duration // window length
}

// Error implements the error interface.
func (e *CommitRateError) Error() string {
	return fmt.Sprintf("commit rate limit exceeded: %d commits in the last %s (limit %d)",
		e.Commits, e.Window, e.Limit)
}

// IsCommitRateError reports whether err is a CommitRateError.
func IsCommitRateError(err error) bool {
	var ce *CommitRateError
	return errors.As(err, &ce)
}
