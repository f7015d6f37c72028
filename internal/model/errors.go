package model

import (
	"errors"
	"fmt"
)

// Stage-level failure kinds. FatalPipelineError wraps one of these.
var (
	ErrEmptyInput    = errors.New("empty input")
	ErrDecomposition = errors.New("decomposition failed")
	ErrPlanning      = errors.New("planning failed")
	ErrAdjudication  = errors.New("adjudication failed")
	ErrSerialization = errors.New("report serialization failed")
)

// FatalPipelineError aborts a run; no report is produced
type FatalPipelineError struct {
	Stage string
	Err   error
}

func (e *FatalPipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *FatalPipelineError) Unwrap() error {
	return e.Err
}

// DegradedItemError is a per-question or per-claim failure.
// It never leaves its owning component: the item degrades to data
// (exhausted/failed status, CouldNotBeVerified verdict) instead.
type DegradedItemError struct {
	Stage  string
	ItemID string
	Err    error
}

func (e *DegradedItemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.ItemID, e.Err)
}

func (e *DegradedItemError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err aborted a run
func IsFatal(err error) bool {
	var fatal *FatalPipelineError
	return errors.As(err, &fatal)
}
