package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/factcheck/internal/util"
)

// CollaboratorError is a failed model invocation
type CollaboratorError struct {
	Provider   string
	StatusCode int // 0 when no HTTP status was observed
	Retryable  bool
	Err        error
}

func (e *CollaboratorError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("empty response")

// IsRetryable reports whether err is a transient collaborator failure
func IsRetryable(err error) bool {
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// newCollaboratorError classifies err by status code, then by transport
// failure. A cancelled caller context is never retryable.
func newCollaboratorError(provider string, status int, err error) *CollaboratorError {
	retryable := false
	switch {
	case errors.Is(err, context.Canceled):
	case status != 0:
		retryable = util.IsRetryableStatus(status)
	default:
		retryable = util.IsRetryableNetworkError(err)
	}
	return &CollaboratorError{
		Provider:   provider,
		StatusCode: status,
		Retryable:  retryable,
		Err:        err,
	}
}
