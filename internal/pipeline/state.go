package pipeline

import (
	"time"

	"github.com/ppiankov/factcheck/internal/model"
	"github.com/ppiankov/factcheck/internal/research"
)

// Stage is a step of the fact-check state machine
type Stage string

const (
	StageStructuring  Stage = "structuring"
	StagePlanning     Stage = "planning"
	StageResearching  Stage = "researching"
	StageAdjudicating Stage = "adjudicating"
	StageTransforming Stage = "transforming"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// next is the fixed stage topology
var next = map[Stage]Stage{
	StageStructuring:  StagePlanning,
	StagePlanning:     StageResearching,
	StageResearching:  StageAdjudicating,
	StageAdjudicating: StageTransforming,
	StageTransforming: StageDone,
}

// Terminal reports whether the run has ended
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// State is the pipeline state of one run. Each stage reads the fields the
// previous stages filled in; only structuring reads Input.
type State struct {
	RunID     string
	Stage     Stage
	Input     string
	StartedAt time.Time

	Claims    []model.Claim
	Questions []model.ResearchQuestion
	Research  *research.Outcome
	Verdicts  []model.Verdict
	Report    *model.Report

	Stages   []model.StageMetrics
	Degraded []error
	Err      error // set when Stage is StageFailed

	// DeadlineExceeded records that the run deadline cut adjudication short
	DeadlineExceeded bool
}

func newState(runID, input string, now time.Time) *State {
	return &State{
		RunID:     runID,
		Stage:     StageStructuring,
		Input:     input,
		StartedAt: now,
	}
}

func (s *State) fail(err error) {
	s.Err = &model.FatalPipelineError{Stage: string(s.Stage), Err: err}
	s.Stage = StageFailed
}

func (s *State) advance() {
	s.Stage = next[s.Stage]
}
