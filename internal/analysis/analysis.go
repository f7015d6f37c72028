// Package analysis turns raw input into claims and claims into research
// questions using an LLM collaborator.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/ppiankov/factcheck/internal/llm"
	"github.com/ppiankov/factcheck/internal/worker"
)

// Options configures the analysis stages
type Options struct {
	Retry worker.RetryPolicy

	// LowConfidenceThreshold forces high priority for questions about claims
	// whose structuring confidence is below it
	LowConfidenceThreshold float64

	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o Options) retry() worker.RetryPolicy {
	p := o.Retry
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 3
	}
	if p.Logger == nil {
		p.Logger = o.logger()
	}
	return p
}

// invoke calls the collaborator, retrying retryable failures
func invoke(ctx context.Context, c llm.Collaborator, policy worker.RetryPolicy, req llm.Request) (string, error) {
	var text string
	_, err := worker.Retry(ctx, policy, llm.IsRetryable, func(ctx context.Context) error {
		resp, err := c.Invoke(ctx, req)
		if err != nil {
			return err
		}
		if resp == nil || strings.TrimSpace(resp.Text) == "" {
			return llm.ErrEmptyResponse
		}
		text = resp.Text
		return nil
	})
	return text, err
}

// flexString accepts a JSON string or number
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

// flexFloat accepts a JSON number or a numeric string ("0.8", "NaN").
// Anything else decodes as NaN.
type flexFloat struct {
	value float64
	set   bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil || string(b) == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil {
		v = math.NaN()
	}
	f.value, f.set = v, true
	return nil
}
