package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable classifies failures of the language model invoker.
	// They are fatal to the current pipeline run.
	ErrUpstreamUnavailable = errors.New("language model unavailable")
	// ErrSchemaViolation classifies stages that never produced output matching their schema
	ErrSchemaViolation = errors.New("stage output did not match schema")
)

// UpstreamError reports that the model could not be reached or returned nothing usable
type UpstreamError struct {
	Stage string
	Cause error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Stage, ErrUpstreamUnavailable, e.Cause)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match ErrUpstreamUnavailable
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

// SchemaError reports that every attempt produced invalid output
type SchemaError struct {
	Stage    string
	Attempts int
	Cause    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %v after %d attempts: %v", e.Stage, ErrSchemaViolation, e.Attempts, e.Cause)
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match ErrSchemaViolation
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchemaViolation
}
