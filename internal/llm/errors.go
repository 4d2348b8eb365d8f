package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrNoContent is returned when the provider answers without usable text
	ErrNoContent = errors.New("no content in model response")
	// ErrToolBudgetExceeded is returned when a model keeps requesting tools after its call budget is spent
	ErrToolBudgetExceeded = errors.New("tool call budget exceeded")
)

// APICallError represents a failed call to the model provider
type APICallError struct {
	Provider Provider
	Model    string
	Message  string
	Cause    error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Model, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Model, e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}
