package framelai

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a translation pass is already running.
	ErrBusy = errors.New("translation pass already in progress")

	// ErrNotFramed is returned when a session is started on a top-level page.
	ErrNotFramed = errors.New("document is not an embedded frame")

	// ErrEmptyTranslation is returned when the remote side reports success
	// with nothing in it.
	ErrEmptyTranslation = errors.New("empty translation")
)

// ProviderError indicates a remote translation failure (transport error or
// an unsuccessful response).
type ProviderError struct {
	Message   string
	Cause     error
	Retryable bool // Whether the operation can be retried
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// ContentError indicates that the content container could not be used.
type ContentError struct {
	Message string
	ID      string // Identifier of the content container
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content error (#%s): %s", e.ID, e.Message)
}
