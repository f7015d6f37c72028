package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/factcheck/internal/model"
)

// ErrInvalidOptions is returned by Run for unusable RunOptions
var ErrInvalidOptions = errors.New("invalid run options")

// RunOptions tune one run. Zero values take the configured defaults.
type RunOptions struct {
	Workers  int
	Quotas   model.TierQuotas
	Budget   int           // total tool calls; 0 = sum of question quotas
	Deadline time.Duration // run deadline; 0 = configured default
}

// withDefaults fills unset fields from def and validates the result
func (o RunOptions) withDefaults(def RunOptions) (RunOptions, error) {
	if o.Workers == 0 {
		o.Workers = def.Workers
	}
	if o.Quotas == (model.TierQuotas{}) {
		o.Quotas = def.Quotas
	}
	if o.Budget == 0 {
		o.Budget = def.Budget
	}
	if o.Deadline == 0 {
		o.Deadline = def.Deadline
	}

	var errs []error
	if o.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", o.Workers))
	}
	if err := o.Quotas.Validate(); err != nil {
		errs = append(errs, err)
	}
	if o.Budget < 0 {
		errs = append(errs, fmt.Errorf("budget must not be negative, got %d", o.Budget))
	}
	if o.Deadline < 0 {
		errs = append(errs, fmt.Errorf("deadline must not be negative, got %s", o.Deadline))
	}
	if len(errs) > 0 {
		return o, fmt.Errorf("%w: %w", ErrInvalidOptions, errors.Join(errs...))
	}
	return o, nil
}

// DefaultRunOptions reads run defaults from configuration
func DefaultRunOptions(cfg *model.Config) RunOptions {
	return RunOptions{
		Workers:  cfg.Research.Workers,
		Quotas:   cfg.Research.Quotas,
		Budget:   cfg.Research.Budget,
		Deadline: cfg.Research.Deadline,
	}
}
