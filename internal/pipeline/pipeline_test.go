package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/factcheck/internal/llm"
	"github.com/ppiankov/factcheck/internal/model"
	"github.com/ppiankov/factcheck/internal/tools"
	"github.com/ppiankov/factcheck/internal/worker"
)

// stageLLM answers each stage by recognising its system prompt
type stageLLM struct {
	structure string
	plan      string
	judge     string

	structureErr error
	planErr      error

	// judgeBlocks makes the judge wait for its context to end
	judgeBlocks bool

	mu    sync.Mutex
	calls map[string]int
}

func (s *stageLLM) Invoke(ctx context.Context, req llm.Request) (*llm.Response, error) {
	stage := "judge"
	switch {
	case strings.Contains(req.System, "claim structuring"):
		stage = "structure"
	case strings.Contains(req.System, "research planner"):
		stage = "plan"
	}

	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[stage]++
	s.mu.Unlock()

	switch stage {
	case "structure":
		if s.structureErr != nil {
			return nil, s.structureErr
		}
		return &llm.Response{Text: s.structure}, nil
	case "plan":
		if s.planErr != nil {
			return nil, s.planErr
		}
		return &llm.Response{Text: s.plan}, nil
	}
	if s.judgeBlocks {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &llm.Response{Text: s.judge}, nil
}

type stubTools struct {
	search func(ctx context.Context, query string) ([]tools.Snippet, error)
}

func (s *stubTools) Search(ctx context.Context, query string) ([]tools.Snippet, error) {
	return s.search(ctx, query)
}

func (s *stubTools) Scrape(_ context.Context, uri string) (*tools.Page, error) {
	return &tools.Page{URL: uri, Content: "page"}, nil
}

func wikipediaSearch(context.Context, string) ([]tools.Snippet, error) {
	return []tools.Snippet{{
		Title: "Eiffel Tower",
		URL:   "https://en.wikipedia.org/wiki/Eiffel_Tower",
		Text:  "The Eiffel Tower is a wrought-iron lattice tower on the Champ de Mars in Paris, France.",
		Rank:  1,
	}}, nil
}

func eiffelLLM() *stageLLM {
	return &stageLLM{
		structure: `{"claims": [{"text": "The Eiffel Tower is in Paris.", "confidence": 0.95}]}`,
		plan:      `{"questions": [{"claim_id": "C1", "text": "Where is the Eiffel Tower located?", "priority": "high"}]}`,
		judge:     `{"outcome": "True", "rationale": "Wikipedia places it in Paris [Q1-E1].", "evidence_ids": ["Q1-E1"]}`,
	}
}

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.Retry.BaseBackoff = 0
	cfg.Research.ScrapeTopN = 0
	cfg.Research.Workers = 2
	return cfg
}

type recordingArchive struct {
	mu      sync.Mutex
	reports []*model.Report
}

func (a *recordingArchive) Save(_ context.Context, _ string, r *model.Report) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reports = append(a.reports, r)
	return nil
}

type recordingObserver struct {
	mu     sync.Mutex
	stages []string
	runs   int
	errs   int
}

func (o *recordingObserver) ObserveStage(m model.StageMetrics) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, m.Stage)
}

func (o *recordingObserver) ObserveRun(_ *model.Report, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs++
	if err != nil {
		o.errs++
	}
}

func newTestOrchestrator(t *testing.T, collaborator llm.Collaborator, adapter tools.Adapter, opts ...func(*Options)) *Orchestrator {
	t.Helper()
	o := Options{Config: testConfig(), Collaborator: collaborator, Tools: adapter, Provider: "fake", Model: "fake-1"}
	for _, fn := range opts {
		fn(&o)
	}
	orch, err := New(o)
	require.NoError(t, err)
	orch.newID = func() string { return "run-test" }
	return orch
}

func TestRun_EiffelTower(t *testing.T) {
	archive := &recordingArchive{}
	observer := &recordingObserver{}
	orch := newTestOrchestrator(t, eiffelLLM(), &stubTools{search: wikipediaSearch}, func(o *Options) {
		o.Archive = archive
		o.Observer = observer
	})

	r, err := orch.Run(context.Background(), "The Eiffel Tower is in Paris.", RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, "run-test", r.RunID)
	require.Len(t, r.Claims, 1)
	assert.Equal(t, 0.95, r.Claims[0].Confidence)
	require.Len(t, r.Verdicts, 1)
	assert.Equal(t, model.OutcomeTrue, r.Verdicts[0].Outcome)
	require.Len(t, r.Verdicts[0].Evidence, 1)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Eiffel_Tower", r.Verdicts[0].Evidence[0].SourceURI)
	assert.Equal(t, model.TierSecondary, r.Verdicts[0].Evidence[0].Authority)

	assert.Equal(t, model.VerdictMostlyTrue, r.Summary.Verdict)
	assert.Equal(t, 1.0, r.Summary.Factuality)
	assert.Equal(t, "True — The Eiffel Tower is in Paris.", r.Summary.HeadlineMD)

	require.Len(t, r.Questions, 1)
	assert.Equal(t, model.StatusAnswered, r.Questions[0].Status)
	assert.Equal(t, 1, r.Metadata.ToolCallsByPriority[model.PriorityHigh])
	assert.Equal(t, "fake", r.Metadata.Provider)

	var stages []string
	for _, s := range r.Metadata.Stages {
		stages = append(stages, s.Stage)
	}
	assert.Equal(t, []string{"structuring", "planning", "researching", "adjudicating", "transforming"}, stages)
	assert.Equal(t, 1, r.Metadata.Stages[0].CollaboratorCalls)
	assert.Equal(t, 1, r.Metadata.Stages[2].ToolCalls)

	assert.Len(t, archive.reports, 1)
	assert.Equal(t, stages, observer.stages)
	assert.Equal(t, 1, observer.runs)
}

func TestRun_AllToolCallsFail(t *testing.T) {
	collaborator := eiffelLLM()
	adapter := &stubTools{search: func(context.Context, string) ([]tools.Snippet, error) {
		return nil, &tools.ToolError{Tool: tools.ToolSearch, Backend: "stub", StatusCode: 401, Err: errors.New("bad key")}
	}}
	orch := newTestOrchestrator(t, collaborator, adapter)

	r, err := orch.Run(context.Background(), "The Eiffel Tower is in Paris.", RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, model.StatusFailed, r.Questions[0].Status)
	assert.Equal(t, model.OutcomeCouldNotBeVerified, r.Verdicts[0].Outcome)
	assert.Empty(t, r.Verdicts[0].Evidence)
	assert.Contains(t, r.Verdicts[0].Rationale, "every research tool call failed")
	assert.Contains(t, r.Verdicts[0].Rationale, "high self-confidence")
	assert.Equal(t, model.VerdictUnverified, r.Summary.Verdict)
	assert.Zero(t, collaborator.calls["judge"], "no evidence, no adjudication call")
}

func TestRun_Deadline(t *testing.T) {
	adapter := &stubTools{search: func(ctx context.Context, _ string) ([]tools.Snippet, error) {
		<-ctx.Done()
		return nil, &tools.ToolError{Tool: tools.ToolSearch, Backend: "stub", Err: ctx.Err()}
	}}
	collaborator := eiffelLLM()
	collaborator.plan = `{"questions": [
		{"claim_id": "C1", "text": "a", "priority": "high"},
		{"claim_id": "C1", "text": "b", "priority": "medium"},
		{"claim_id": "C1", "text": "c", "priority": "low"},
		{"claim_id": "C1", "text": "d", "priority": "low"}
	]}`
	orch := newTestOrchestrator(t, collaborator, adapter)

	start := time.Now()
	r, err := orch.Run(context.Background(), "The Eiffel Tower is in Paris.", RunOptions{Workers: 1, Deadline: 50 * time.Millisecond})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.True(t, r.Metadata.DeadlineExceeded)
	for _, q := range r.Questions {
		assert.Equal(t, model.StatusExhausted, q.Status, q.ID)
	}
	assert.Equal(t, model.OutcomeCouldNotBeVerified, r.Verdicts[0].Outcome)
	assert.Contains(t, r.Verdicts[0].Rationale, "deadline")
	assert.Equal(t, 4, r.Metadata.QuestionStatus[model.StatusExhausted])
}

func TestRun_FatalStages(t *testing.T) {
	tests := []struct {
		name     string
		llm      *stageLLM
		input    string
		stage    string
		sentinel error
	}{
		{
			name:     "empty input",
			llm:      eiffelLLM(),
			input:    "   ",
			stage:    "structuring",
			sentinel: model.ErrEmptyInput,
		},
		{
			name: "decomposition",
			llm: func() *stageLLM {
				l := eiffelLLM()
				l.structure = `{"claims": []}`
				return l
			}(),
			input:    "The Eiffel Tower is in Paris.",
			stage:    "structuring",
			sentinel: model.ErrDecomposition,
		},
		{
			name: "planning",
			llm: func() *stageLLM {
				l := eiffelLLM()
				l.planErr = &llm.CollaboratorError{Provider: "fake", StatusCode: 400, Err: errors.New("bad request")}
				return l
			}(),
			input:    "The Eiffel Tower is in Paris.",
			stage:    "planning",
			sentinel: model.ErrPlanning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archive := &recordingArchive{}
			observer := &recordingObserver{}
			orch := newTestOrchestrator(t, tt.llm, &stubTools{search: wikipediaSearch}, func(o *Options) {
				o.Archive = archive
				o.Observer = observer
			})

			r, err := orch.Run(context.Background(), tt.input, RunOptions{})
			assert.Nil(t, r)
			require.Error(t, err)
			assert.True(t, model.IsFatal(err))
			assert.ErrorIs(t, err, tt.sentinel)

			var fatal *model.FatalPipelineError
			require.ErrorAs(t, err, &fatal)
			assert.Equal(t, tt.stage, fatal.Stage)
			assert.Empty(t, archive.reports)
			assert.Equal(t, 1, observer.errs)
		})
	}
}

func TestRun_NoQuestions(t *testing.T) {
	collaborator := eiffelLLM()
	collaborator.plan = `{"questions": []}`
	orch := newTestOrchestrator(t, collaborator, &stubTools{search: wikipediaSearch})

	r, err := orch.Run(context.Background(), "The Eiffel Tower is in Paris.", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeCouldNotBeVerified, r.Verdicts[0].Outcome)
	assert.Contains(t, r.Verdicts[0].Rationale, "No research questions")
	assert.Empty(t, r.Questions)
}

func TestRun_InvalidOptions(t *testing.T) {
	orch := newTestOrchestrator(t, eiffelLLM(), &stubTools{search: wikipediaSearch})

	_, err := orch.Run(context.Background(), "text", RunOptions{Quotas: model.TierQuotas{High: 1, Medium: 2, Low: 3}})
	assert.ErrorIs(t, err, ErrInvalidOptions)
	assert.False(t, model.IsFatal(err))

	_, err = orch.Run(context.Background(), "text", RunOptions{Workers: -1})
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestRun_Idempotent(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	orch := newTestOrchestrator(t, eiffelLLM(), &stubTools{search: wikipediaSearch}, func(o *Options) {
		o.Now = func() time.Time { return fixed }
	})

	first, err := orch.Run(context.Background(), "The Eiffel Tower is in Paris.", RunOptions{})
	require.NoError(t, err)
	second, err := orch.Run(context.Background(), "The Eiffel Tower is in Paris.", RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.Verdicts, second.Verdicts)
	assert.Equal(t, first.Claims, second.Claims)

	require.Len(t, first.Verdicts, 1)
	require.Len(t, first.Verdicts[0].Evidence, 1)
	assert.Equal(t, "Q1-E1", first.Verdicts[0].Evidence[0].ID)
	assert.Equal(t, fixed, first.Verdicts[0].Evidence[0].RetrievedAt)
	assert.Equal(t, fixed, first.Metadata.StartedAt)
}

func TestRun_DeadlineCoversAdjudication(t *testing.T) {
	collaborator := eiffelLLM()
	collaborator.judgeBlocks = true
	archive := &recordingArchive{}
	orch := newTestOrchestrator(t, collaborator, &stubTools{search: wikipediaSearch}, func(o *Options) {
		o.Archive = archive
	})

	start := time.Now()
	r, err := orch.Run(context.Background(), "The Eiffel Tower is in Paris.", RunOptions{Deadline: 100 * time.Millisecond})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	require.Len(t, r.Verdicts, 1)
	assert.Equal(t, model.OutcomeCouldNotBeVerified, r.Verdicts[0].Outcome)
	assert.Contains(t, r.Verdicts[0].Rationale, "deadline")
	assert.Empty(t, r.Verdicts[0].Evidence)
	assert.True(t, r.Metadata.DeadlineExceeded)
	assert.Equal(t, model.StatusAnswered, r.Questions[0].Status)
	assert.Equal(t, model.VerdictUnverified, r.Summary.Verdict)
	require.Len(t, archive.reports, 1, "the report is archived after the deadline")
}

func TestRun_EiffelTowerInBerlin(t *testing.T) {
	collaborator := &stageLLM{
		structure: `{"claims": [{"text": "The Eiffel Tower is in Berlin.", "confidence": 0.9}]}`,
		plan:      `{"questions": [{"claim_id": "C1", "text": "Which city is the Eiffel Tower in?", "priority": "high"}]}`,
		judge:     `{"outcome": "False", "rationale": "Wikipedia places the tower in Paris, not Berlin [Q1-E1].", "evidence_ids": ["Q1-E1"]}`,
	}
	orch := newTestOrchestrator(t, collaborator, &stubTools{search: wikipediaSearch})

	r, err := orch.Run(context.Background(), "The Eiffel Tower is in Berlin.", RunOptions{})
	require.NoError(t, err)

	require.Len(t, r.Claims, 1)
	assert.Equal(t, "The Eiffel Tower is in Berlin.", r.Claims[0].Text)
	require.Len(t, r.Questions, 1)
	assert.Equal(t, model.PriorityHigh, r.Questions[0].Priority)
	assert.Equal(t, model.StatusAnswered, r.Questions[0].Status)

	require.Len(t, r.Verdicts, 1)
	assert.Equal(t, model.OutcomeFalse, r.Verdicts[0].Outcome)
	require.Len(t, r.Verdicts[0].Evidence, 1)
	assert.Equal(t, "Q1-E1", r.Verdicts[0].Evidence[0].ID)
	assert.Equal(t, model.VerdictMostlyFalse, r.Summary.Verdict)
	assert.Zero(t, r.Summary.Factuality)
	assert.Equal(t, 1, r.Metadata.ToolCallsByPriority[model.PriorityHigh])
	assert.False(t, r.Metadata.DeadlineExceeded)
}

func TestRun_Batch(t *testing.T) {
	orch := newTestOrchestrator(t, eiffelLLM(), &stubTools{search: wikipediaSearch})
	orch.newID = func() string { return "" }

	results := worker.NewBatchProcessor(orch, 3).ProcessInputs(context.Background(), []string{
		"The Eiffel Tower is in Paris.",
		"The Eiffel Tower is in Paris!",
		"",
	})
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Error)
	assert.NoError(t, results[1].Error)
	assert.ErrorIs(t, results[2].Error, model.ErrEmptyInput)
	assert.Equal(t, model.OutcomeTrue, results[1].Report.Verdicts[0].Outcome)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{Tools: &stubTools{search: wikipediaSearch}})
	assert.Error(t, err)
	_, err = New(Options{Collaborator: eiffelLLM()})
	assert.Error(t, err)
}

func TestRunOptions_Defaults(t *testing.T) {
	def := DefaultRunOptions(model.DefaultConfig())
	got, err := RunOptions{Budget: 7}.withDefaults(def)
	require.NoError(t, err)
	assert.Equal(t, def.Workers, got.Workers)
	assert.Equal(t, def.Quotas, got.Quotas)
	assert.Equal(t, 7, got.Budget)
	assert.Equal(t, def.Deadline, got.Deadline)
}

func TestStage_Topology(t *testing.T) {
	s := newState("r", "x", time.Now())
	var seen []Stage
	for !s.Stage.Terminal() {
		seen = append(seen, s.Stage)
		s.advance()
	}
	assert.Equal(t, []Stage{StageStructuring, StagePlanning, StageResearching, StageAdjudicating, StageTransforming}, seen)
	assert.Equal(t, StageDone, s.Stage)
}
