package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected during a reconciliation run.
//
// Runtime errors include:
//   - Invalid row: a row's identity fields are empty or unparseable
//   - Storage failure: a store read or write failed
//   - Invalid config: a source spec names an unknown stream or format
//
// RuntimeError includes structured fields for diagnostics and recovery.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Source identifies the source feed (for ingest errors).
	Source string

	// Field names the offending field (for row errors).
	Field string

	// LotKey identifies the affected lot (for rule errors).
	LotKey string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeRowInvalid indicates a row failed normalization. Recovered
	// locally: the row is skipped and recorded in the batch's error list.
	ErrCodeRowInvalid RuntimeErrorCode = "ROW_INVALID"

	// ErrCodeStorageFailure indicates a store operation failed. Recorded
	// against the row or rule check it interrupted; the pass continues.
	ErrCodeStorageFailure RuntimeErrorCode = "STORAGE_FAILURE"

	// ErrCodeConfigInvalid indicates a source spec cannot be executed.
	// Fatal before any row is processed.
	ErrCodeConfigInvalid RuntimeErrorCode = "CONFIG_INVALID"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Source != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s (source=%s, field=%s)", e.Code, e.Message, e.Source, e.Field)
	}
	if e.Source != "" {
		return fmt.Sprintf("%s: %s (source=%s)", e.Code, e.Message, e.Source)
	}
	if e.LotKey != "" {
		return fmt.Sprintf("%s: %s (lot=%s)", e.Code, e.Message, e.LotKey)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsRowError returns true if the error is a row-level validation error.
// Uses errors.As to handle wrapped errors.
func IsRowError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeRowInvalid
	}
	return false
}

// IsStorageError returns true if the error is a storage failure.
// Uses errors.As to handle wrapped errors.
func IsStorageError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeStorageFailure
	}
	return false
}

// IsConfigError returns true if the error is a source configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeConfigInvalid
	}
	return false
}

// NewRowError creates a RuntimeError for a row that failed normalization.
func NewRowError(source, field, message string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeRowInvalid,
		Message: message,
		Source:  source,
		Field:   field,
	}
}

// NewStorageError creates a RuntimeError for a failed store operation.
func NewStorageError(op string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeStorageFailure,
		Message: fmt.Sprintf("%s: %v", op, cause),
	}
}

// NewConfigError creates a RuntimeError for an unusable source spec.
func NewConfigError(source, message string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeConfigInvalid,
		Message: message,
		Source:  source,
	}
}
