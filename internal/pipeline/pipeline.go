// Package pipeline runs the fact-check state machine:
// structuring, planning, researching, adjudicating, transforming.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/factcheck/internal/adjudicate"
	"github.com/ppiankov/factcheck/internal/analysis"
	"github.com/ppiankov/factcheck/internal/llm"
	"github.com/ppiankov/factcheck/internal/model"
	"github.com/ppiankov/factcheck/internal/report"
	"github.com/ppiankov/factcheck/internal/research"
	"github.com/ppiankov/factcheck/internal/tools"
	"github.com/ppiankov/factcheck/internal/worker"
)

// Archive persists finished reports
type Archive interface {
	Save(ctx context.Context, input string, r *model.Report) error
}

// Options wires an Orchestrator
type Options struct {
	Config       *model.Config
	Collaborator llm.Collaborator
	Tools        tools.Adapter

	// Provider and Model are recorded in report metadata
	Provider string
	Model    string

	Archive  Archive       // optional
	Observer StageObserver // optional
	Logger   *slog.Logger

	// Now is the clock for run timestamps and evidence retrieval; nil
	// means time.Now
	Now func() time.Time
}

// Orchestrator runs fact-checks. It holds no per-run state and is safe for
// concurrent runs.
type Orchestrator struct {
	cfg        *model.Config
	llm        llm.Collaborator
	researcher *research.Researcher
	defaults   RunOptions
	provider   string
	model      string
	archive    Archive
	observer   StageObserver
	logger     *slog.Logger

	now   func() time.Time
	newID func() string
}

// New creates an orchestrator
func New(opts Options) (*Orchestrator, error) {
	if opts.Collaborator == nil {
		return nil, errors.New("pipeline: collaborator is required")
	}
	if opts.Tools == nil {
		return nil, errors.New("pipeline: tools adapter is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	researcher := research.NewResearcher(research.ResearcherConfig{
		Tools:             opts.Tools,
		Authority:         research.NewAuthorityClassifier(&cfg.Authority),
		Retry:             retryPolicy(cfg),
		ScrapeTopN:        cfg.Research.ScrapeTopN,
		ScrapeParallelism: cfg.Research.ScrapeParallelism,
		Logger:            logger,
		Now:               now,
	})

	return &Orchestrator{
		cfg:        cfg,
		llm:        opts.Collaborator,
		researcher: researcher,
		defaults:   DefaultRunOptions(cfg),
		provider:   opts.Provider,
		model:      opts.Model,
		archive:    opts.Archive,
		observer:   opts.Observer,
		logger:     logger,
		now:        now,
		newID:      uuid.NewString,
	}, nil
}

func retryPolicy(cfg *model.Config) worker.RetryPolicy {
	return worker.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseBackoff: cfg.Retry.BaseBackoff,
		MaxBackoff:  30 * time.Second,
	}
}

// Check runs with the configured defaults
func (o *Orchestrator) Check(ctx context.Context, text string) (*model.Report, error) {
	return o.Run(ctx, text, RunOptions{})
}

// Run fact-checks text. It returns a report, or an error that is either
// ErrInvalidOptions or a *model.FatalPipelineError.
func (o *Orchestrator) Run(ctx context.Context, text string, opts RunOptions) (*model.Report, error) {
	opts, err := opts.withDefaults(o.defaults)
	if err != nil {
		return nil, err
	}

	state := newState(o.newID(), text, o.now().UTC())
	ctx, span := startRunSpan(ctx, state.RunID)
	logger := o.logger.With("run_id", state.RunID)
	logger.Info("pipeline: run started", "workers", opts.Workers, "budget", opts.Budget, "deadline", opts.Deadline)

	if strings.TrimSpace(text) == "" {
		state.fail(model.ErrEmptyInput)
	}

	// the deadline bounds every stage that waits on collaborators or
	// tools; transforming and archiving run on ctx so a report survives it
	runCtx, cancel := research.WithDeadline(ctx, opts.Deadline)
	defer cancel()

	calls := &countingCollaborator{next: o.llm}
	r := &run{o: o, opts: opts, llm: calls, logger: logger}

	for !state.Stage.Terminal() {
		stage := state.Stage
		parent := runCtx
		if stage == StageTransforming {
			parent = ctx
		}
		stageCtx, stageSpan := startStageSpan(parent, stage)
		start := o.now()
		callsBefore := calls.calls.Load()

		toolCalls, err := r.step(stageCtx, state)

		m := model.StageMetrics{
			Stage:             string(stage),
			DurationMs:        o.now().Sub(start).Milliseconds(),
			ToolCalls:         toolCalls,
			CollaboratorCalls: int(calls.calls.Load() - callsBefore),
		}
		state.Stages = append(state.Stages, m)
		if o.observer != nil {
			o.observer.ObserveStage(m)
		}
		endSpan(stageSpan, err)

		if err != nil {
			state.fail(err)
			break
		}
		state.advance()
	}

	elapsed := o.now().Sub(state.StartedAt)
	recordRun(ctx, state, elapsed.Seconds())
	endSpan(span, state.Err)

	if state.Stage == StageFailed {
		logger.Error("pipeline: run failed", "error", state.Err)
		if o.observer != nil {
			o.observer.ObserveRun(nil, state.Err)
		}
		return nil, state.Err
	}

	// stage metrics are complete only once transforming has been recorded
	state.Report.Metadata.Stages = state.Stages

	for _, d := range state.Degraded {
		logger.Debug("pipeline: degraded item", "error", d)
	}
	logger.Info("pipeline: run finished",
		"claims", len(state.Claims),
		"questions", len(state.Questions),
		"verdict", state.Report.Summary.Verdict,
		"duration_ms", elapsed.Milliseconds())

	if o.observer != nil {
		o.observer.ObserveRun(state.Report, nil)
	}
	if o.archive != nil {
		if err := o.archive.Save(ctx, text, state.Report); err != nil {
			logger.Warn("pipeline: archiving report failed", "error", err)
		}
	}
	return state.Report, nil
}

// run carries the per-run collaborators
type run struct {
	o      *Orchestrator
	opts   RunOptions
	llm    llm.Collaborator
	logger *slog.Logger
}

// step executes the current stage, filling its outputs into state. It
// returns the tool calls the stage consumed.
func (r *run) step(ctx context.Context, state *State) (int, error) {
	cfg := r.o.cfg
	analysisOpts := analysis.Options{
		Retry:                  retryPolicy(cfg),
		LowConfidenceThreshold: cfg.Research.LowConfidenceThreshold,
		Logger:                 r.logger,
	}

	switch state.Stage {
	case StageStructuring:
		claims, err := analysis.NewClaimStructurer(r.llm, analysisOpts).Structure(ctx, state.Input)
		if err != nil {
			return 0, err
		}
		state.Claims = claims
		return 0, nil

	case StagePlanning:
		questions, err := analysis.NewGapIdentifier(r.llm, analysisOpts).Identify(ctx, state.Claims)
		if err != nil {
			return 0, err
		}
		state.Questions = questions
		return 0, nil

	case StageResearching:
		claimTexts := make(map[string]string, len(state.Claims))
		for _, c := range state.Claims {
			claimTexts[c.ID] = c.Text
		}
		scheduler := research.NewScheduler(r.o.researcher, research.SchedulerConfig{
			Workers: r.opts.Workers,
			Quotas:  r.opts.Quotas,
			Budget:  r.opts.Budget,
			Logger:  r.logger,
		})
		outcome := scheduler.Run(ctx, state.Questions, claimTexts)
		state.Research = outcome
		state.Questions = outcome.Questions
		state.Degraded = append(state.Degraded, outcome.Degraded...)
		return outcome.TotalCalls, nil

	case StageAdjudicating:
		adj := adjudicate.NewAdjudicator(r.llm, adjudicate.Options{
			HighConfidenceThreshold: cfg.Adjudication.HighConfidenceThreshold,
			MaxEvidenceChars:        cfg.Adjudication.MaxEvidenceChars,
			Retry:                   retryPolicy(cfg),
			Logger:                  r.logger,
		})
		verdicts, degraded := adj.Adjudicate(ctx, adjudicate.Input{
			Claims:           state.Claims,
			Questions:        state.Questions,
			Evidence:         state.Research.Evidence,
			DeadlineExceeded: state.Research.DeadlineExceeded,
		})
		if ctx.Err() != nil {
			state.DeadlineExceeded = true
		}
		state.Verdicts = verdicts
		state.Degraded = append(state.Degraded, degraded...)
		return 0, nil

	case StageTransforming:
		finished := r.o.now().UTC()
		rep, err := report.Transform(report.Input{
			RunID:     state.RunID,
			Text:      state.Input,
			Claims:    state.Claims,
			Questions: state.Questions,
			Evidence:  state.Research.Evidence,
			Verdicts:  state.Verdicts,
			Metadata: model.RunMetadata{
				DurationMs:          finished.Sub(state.StartedAt).Milliseconds(),
				ToolCallsByPriority: state.Research.CallsByPriority,
				StartedAt:           state.StartedAt,
				FinishedAt:          finished,
				QuestionStatus:      state.Research.StatusCounts(),
				DeadlineExceeded:    state.Research.DeadlineExceeded || state.DeadlineExceeded,
				Provider:            r.o.provider,
				Model:               r.o.model,
			},
		})
		if err != nil {
			return 0, err
		}
		state.Report = rep
		return 0, nil
	}

	return 0, fmt.Errorf("unknown stage %q", state.Stage)
}
