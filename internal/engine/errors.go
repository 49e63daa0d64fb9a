package engine

import (
	"errors"
	"fmt"
)

// EngineError represents a rejected transport operation.
//
// Transport errors are advisory: the engine state is unchanged when one is
// returned, and callers may surface it as a transient notice.
type EngineError struct {
	// Code identifies the error category.
	Code EngineErrorCode

	// Message is a human-readable description.
	Message string
}

// EngineErrorCode categorizes engine errors.
type EngineErrorCode string

const (
	// ErrCodeEmptyRunList indicates Start was called with nothing to play.
	ErrCodeEmptyRunList EngineErrorCode = "EMPTY_RUN_LIST"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsEmptyRunList returns true if err reports an empty run list.
// Uses errors.As to handle wrapped errors.
func IsEmptyRunList(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeEmptyRunList
	}
	return false
}

func newEmptyRunListError() *EngineError {
	return &EngineError{
		Code:    ErrCodeEmptyRunList,
		Message: "no run list loaded",
	}
}
