package catalog

import (
	"errors"
	"fmt"
)

// ErrFrozen is returned by Register after Freeze. The catalog is read-only
// during a search run; late registration would make masking non-reproducible.
var ErrFrozen = errors.New("catalog is frozen")

// DuplicateNameError reports a second registration under an existing name.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("operator %q is already registered", e.Name)
}

// MalformedSignatureError reports a declaration the catalog refuses to accept.
// It is fatal to that entry only; a loader keeps going and aggregates these.
type MalformedSignatureError struct {
	Name   string
	Reason string
}

func (e *MalformedSignatureError) Error() string {
	return fmt.Sprintf("operator %q has a malformed signature: %s", e.Name, e.Reason)
}
