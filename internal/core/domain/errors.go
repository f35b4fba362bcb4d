package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a conversion failure for display and for deciding
// whether a batch should have started at all.
type ErrorKind string

const (
	ErrorKindAuth       ErrorKind = "auth"
	ErrorKindQuota      ErrorKind = "quota"
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindNetwork    ErrorKind = "network"
	ErrorKindIO         ErrorKind = "io"
)

// ConversionError is a kind-aware error surfaced at the job boundary. The
// orchestrator records its message on the failed job instead of propagating
// it up the stack.
type ConversionError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Err        error
}

// Error formats the failure for logs and job error messages.
func (e *ConversionError) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (http %d)", e.Kind, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *ConversionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewConversionError builds a kind-tagged error wrapping an optional cause.
func NewConversionError(kind ErrorKind, message string, err error) *ConversionError {
	return &ConversionError{Kind: kind, Message: message, Err: err}
}

// KindOf returns the error's kind, defaulting to network for untyped
// transport-level failures.
func KindOf(err error) ErrorKind {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrorKindNetwork
}
