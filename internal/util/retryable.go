package util

import (
	"context"
	"errors"
	"net"
	"strings"
)

// IsRetryableStatus reports whether an HTTP status is worth retrying:
// 429, 408 and any 5xx
func IsRetryableStatus(code int) bool {
	return code == 429 || code == 408 || (code >= 500 && code < 600)
}

// IsRetryableNetworkError reports whether err looks like a transient
// network failure. A cancelled context is never retryable.
func IsRetryableNetworkError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return IsRetryableMessage(err.Error())
}

// IsRetryableMessage checks error strings for transient failures
func IsRetryableMessage(errMsg string) bool {
	s := strings.ToLower(errMsg)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "timed out") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "eof") ||
		strings.Contains(s, "temporarily unavailable")
}
