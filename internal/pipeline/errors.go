package pipeline

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery reports query text that could not be turned into a role, experience level and location
var ErrInvalidQuery = errors.New("invalid query")

// QueryError carries the text that failed to parse
type QueryError struct {
	Text  string
	Cause error
}

func (e *QueryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %v", ErrInvalidQuery, e.Cause)
	}
	return ErrInvalidQuery.Error()
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match ErrInvalidQuery
func (e *QueryError) Is(target error) bool {
	return target == ErrInvalidQuery
}
