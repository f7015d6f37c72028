package research

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ppiankov/factcheck/internal/model"
	"github.com/ppiankov/factcheck/internal/worker"
)

// SchedulerConfig configures a Scheduler
type SchedulerConfig struct {
	Workers int
	Quotas  model.TierQuotas
	Budget  int // 0 = sum of the quotas of the planned questions
	Logger  *slog.Logger
}

// Scheduler dispatches research questions by priority tier to a bounded
// worker pool under per-question quotas and a shared run budget
type Scheduler struct {
	researcher *Researcher
	cfg        SchedulerConfig
}

// NewScheduler creates a scheduler
func NewScheduler(researcher *Researcher, cfg SchedulerConfig) *Scheduler {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{researcher: researcher, cfg: cfg}
}

// Outcome is the result of a research stage
type Outcome struct {
	Questions        []model.ResearchQuestion    // input order, all terminal
	Evidence         map[string][]model.Evidence // by question id
	DispatchOrder    []string                    // question ids in submission order
	StartOrder       []string                    // question ids in the order workers picked them up
	CallsByPriority  map[model.Priority]int
	TotalCalls       int
	BudgetLimit      int
	DeadlineExceeded bool
	Degraded         []error
}

// StatusCounts tallies terminal statuses
func (o *Outcome) StatusCounts() map[model.QuestionStatus]int {
	counts := make(map[model.QuestionStatus]int)
	for _, q := range o.Questions {
		counts[q.Status]++
	}
	return counts
}

// questionJob researches one question on a pool worker
type questionJob struct {
	question  model.ResearchQuestion
	claimText string
	allowance *Allowance
	sched     *Scheduler
	started   func(id string)
}

func (j *questionJob) Execute(ctx context.Context) worker.Result {
	j.started(j.question.ID)
	return j.sched.researcher.Research(ctx, j.question, j.claimText, j.allowance)
}

// Run researches every question and returns with all of them terminal.
// claimTexts maps claim ids to the fallback query text. Run never fails:
// errors are folded into question statuses.
func (s *Scheduler) Run(ctx context.Context, questions []model.ResearchQuestion, claimTexts map[string]string) *Outcome {
	out := &Outcome{
		Questions:       make([]model.ResearchQuestion, len(questions)),
		Evidence:        make(map[string][]model.Evidence),
		CallsByPriority: map[model.Priority]int{model.PriorityHigh: 0, model.PriorityMedium: 0, model.PriorityLow: 0},
	}
	copy(out.Questions, questions)

	index := make(map[string]int, len(questions))
	for i := range out.Questions {
		if !out.Questions[i].Priority.Valid() {
			out.Questions[i].Priority = model.PriorityMedium
		}
		out.Questions[i].Status = model.StatusPending
		index[out.Questions[i].ID] = i
	}

	limit := s.cfg.Budget
	if limit <= 0 {
		for _, q := range out.Questions {
			limit += s.cfg.Quotas.For(q.Priority)
		}
	}
	out.BudgetLimit = limit
	budget := NewBudget(limit)

	order := dispatchOrder(out.Questions)
	if len(order) == 0 {
		return out
	}

	var startMu sync.Mutex
	started := func(id string) {
		startMu.Lock()
		out.StartOrder = append(out.StartOrder, id)
		out.Questions[index[id]].Status = model.StatusRunning
		startMu.Unlock()
	}

	allowances := make(map[string]*Allowance, len(order))
	pool := worker.NewPool(ctx, s.cfg.Workers)
	pool.Start()
	for _, i := range order {
		q := out.Questions[i]
		a := NewAllowance(s.cfg.Quotas.For(q.Priority), budget)
		allowances[q.ID] = a
		job := &questionJob{
			question:  q,
			claimText: claimTexts[q.ClaimID],
			allowance: a,
			sched:     s,
			started:   started,
		}
		if !pool.Submit(job) {
			break
		}
		out.DispatchOrder = append(out.DispatchOrder, q.ID)
	}
	results := pool.Wait()

	startMu.Lock()
	defer startMu.Unlock()

	for _, r := range results {
		qr := r.(*QuestionResult)
		i := index[qr.QuestionID]
		out.Questions[i].Status = qr.Status
		if len(qr.Evidence) > 0 {
			out.Evidence[qr.QuestionID] = qr.Evidence
		}
		if err := qr.GetError(); err != nil {
			out.Degraded = append(out.Degraded, err)
		}
	}

	deadlineErr := ctx.Err()
	out.DeadlineExceeded = deadlineErr != nil
	for i := range out.Questions {
		q := &out.Questions[i]
		if a, ok := allowances[q.ID]; ok {
			out.CallsByPriority[q.Priority] += a.Used()
			out.TotalCalls += a.Used()
		}
		if !q.Status.Terminal() {
			// never dispatched or abandoned when the deadline hit
			q.Status = model.StatusExhausted
			reason := deadlineErr
			if reason == nil {
				reason = errors.New("not dispatched")
			}
			out.Degraded = append(out.Degraded, &model.DegradedItemError{Stage: "research", ItemID: q.ID, Err: reason})
		}
		recordQuestion(ctx, *q)
	}

	s.cfg.Logger.Info("research: stage complete",
		"questions", len(out.Questions),
		"calls", out.TotalCalls,
		"budget", out.BudgetLimit,
		"deadline_exceeded", out.DeadlineExceeded)
	return out
}

// dispatchOrder returns question indexes high tier first, stable within a tier
func dispatchOrder(questions []model.ResearchQuestion) []int {
	order := make([]int, len(questions))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return questions[order[a]].Priority.Rank() < questions[order[b]].Priority.Rank()
	})
	return order
}

// WithDeadline derives the research context. A zero deadline means none.
func WithDeadline(ctx context.Context, deadline time.Duration) (context.Context, context.CancelFunc) {
	if deadline <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, deadline)
}
