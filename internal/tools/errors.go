package tools

import (
	"errors"
	"fmt"

	"github.com/ppiankov/factcheck/internal/util"
)

// Tool names used in ToolError
const (
	ToolSearch = "search"
	ToolScrape = "scrape"
)

var (
	// ErrRobotsDisallowed is returned when robots.txt forbids a fetch
	ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

	// ErrUnsupportedContent is returned for non-text responses
	ErrUnsupportedContent = errors.New("unsupported content type")
)

// ToolError is a failed search or scrape call
type ToolError struct {
	Tool       string // search or scrape
	Backend    string
	Target     string // query or URL
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *ToolError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s (%s): status %d: %v", e.Backend, e.Tool, e.Target, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s (%s): %v", e.Backend, e.Tool, e.Target, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// TransientToolError is a retryable ToolError: rate limits, timeouts,
// 5xx responses and dropped connections
type TransientToolError struct {
	ToolError
}

func (e *TransientToolError) Unwrap() error {
	return &e.ToolError
}

// IsTransient reports whether err is a retryable tool failure
func IsTransient(err error) bool {
	var transient *TransientToolError
	if errors.As(err, &transient) {
		return true
	}
	var te *ToolError
	return errors.As(err, &te) && te.Retryable
}

// newToolError classifies err by HTTP status when one was observed,
// otherwise by the transport error
func newToolError(tool, backend, target string, status int, err error) error {
	retryable := false
	if status != 0 {
		retryable = util.IsRetryableStatus(status)
	} else if !errors.Is(err, ErrRobotsDisallowed) && !errors.Is(err, ErrUnsupportedContent) {
		retryable = util.IsRetryableNetworkError(err)
	}

	te := ToolError{
		Tool:       tool,
		Backend:    backend,
		Target:     target,
		StatusCode: status,
		Retryable:  retryable,
		Err:        err,
	}
	if retryable {
		return &TransientToolError{ToolError: te}
	}
	return &te
}
