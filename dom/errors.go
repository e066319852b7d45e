package dom

import (
	"errors"
	"fmt"
)

// ErrDetached is returned when a mutation targets a node that is no longer
// part of its document.
var ErrDetached = errors.New("node is not attached to the document")

// DocumentError indicates a failure to parse, render or mutate markup.
type DocumentError struct {
	Op    string
	Cause error
}

func (e *DocumentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("dom %s: %v", e.Op, e.Cause)
	}
	return "dom " + e.Op
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}
