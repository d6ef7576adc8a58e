package graph

import (
	"fmt"

	"github.com/vk/rosettago/internal/typing"
)

// TypeCheckError reports a slot that failed unification during AddNode or
// Validate. Construction is atomic: when AddNode returns this error the graph
// is unmodified.
type TypeCheckError struct {
	Operator string
	Slot     int
	Expected typing.Type
	Actual   typing.Type
	Cause    error
}

func (e *TypeCheckError) Error() string {
	return fmt.Sprintf("operator %q slot %d: expected %s, got %s: %v",
		e.Operator, e.Slot, e.Expected, e.Actual, e.Cause)
}

func (e *TypeCheckError) Unwrap() error { return e.Cause }
