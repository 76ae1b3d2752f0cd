package service

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a rejected operation
type ErrorCode string

const (
	ErrorCodeNotFound           ErrorCode = "not_found"
	ErrorCodeInvalidTransition  ErrorCode = "invalid_transition"
	ErrorCodeForbidden          ErrorCode = "forbidden"
	ErrorCodeConflict           ErrorCode = "conflict"
	ErrorCodeComputationFailure ErrorCode = "computation_failure"
)

// DomainError is a structured rejection with a display-ready reason. It is
// returned as a value, not used as control flow; genuinely exceptional
// conditions (storage unavailable) stay plain wrapped errors.
type DomainError struct {
	Code   ErrorCode
	Reason string
}

func (e *DomainError) Error() string {
	return e.Reason
}

// NewNotFound builds a NotFound domain error
func NewNotFound(format string, args ...any) *DomainError {
	return &DomainError{Code: ErrorCodeNotFound, Reason: fmt.Sprintf(format, args...)}
}

// NewInvalidTransition builds an InvalidTransition domain error
func NewInvalidTransition(format string, args ...any) *DomainError {
	return &DomainError{Code: ErrorCodeInvalidTransition, Reason: fmt.Sprintf(format, args...)}
}

// NewForbidden builds a Forbidden domain error
func NewForbidden(format string, args ...any) *DomainError {
	return &DomainError{Code: ErrorCodeForbidden, Reason: fmt.Sprintf(format, args...)}
}

// NewConflict builds a Conflict domain error
func NewConflict(format string, args ...any) *DomainError {
	return &DomainError{Code: ErrorCodeConflict, Reason: fmt.Sprintf(format, args...)}
}

// NewComputationFailure builds a ComputationFailure domain error
func NewComputationFailure(format string, args ...any) *DomainError {
	return &DomainError{Code: ErrorCodeComputationFailure, Reason: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the error code from err, or empty when err is not a
// DomainError.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
