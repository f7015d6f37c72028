package llm

import (
	"fmt"
	"time"
)

// Now is the clock used for prompt dates. Tests pin it.
var Now = time.Now

// WithDate prefixes a prompt with the current UTC date so the model can
// reason about recency
func WithDate(prompt string) string {
	return fmt.Sprintf("Current date: %s (UTC).\n\n%s", Now().UTC().Format("2006-01-02"), prompt)
}
