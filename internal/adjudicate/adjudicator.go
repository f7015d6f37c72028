// Package adjudicate turns gathered evidence into one verdict per claim.
package adjudicate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/factcheck/internal/llm"
	"github.com/ppiankov/factcheck/internal/model"
	"github.com/ppiankov/factcheck/internal/worker"
)

const (
	reasonNoQuestions = "No research questions were generated for this claim."
	reasonToolsFailed = "Evidence unavailable: every research tool call failed."
	reasonNoEvidence  = "No evidence was found within the research budget."
	reasonDeadline    = "The run deadline was reached before evidence could be gathered."
	reasonLate        = "The run deadline was reached before the claim could be adjudicated."
	reasonFailed      = "adjudication failed"
)

// Options configures an Adjudicator
type Options struct {
	HighConfidenceThreshold float64 // default 0.9
	MaxEvidenceChars        int     // per evidence item in the prompt, 0 = unlimited
	Retry                   worker.RetryPolicy
	Logger                  *slog.Logger
}

// Adjudicator decides claims from admissible evidence
type Adjudicator struct {
	llm  llm.Collaborator
	opts Options
}

// NewAdjudicator creates an adjudicator
func NewAdjudicator(collaborator llm.Collaborator, opts Options) *Adjudicator {
	if opts.HighConfidenceThreshold <= 0 {
		opts.HighConfidenceThreshold = 0.9
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 3
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Retry.Logger == nil {
		opts.Retry.Logger = opts.Logger
	}
	return &Adjudicator{llm: collaborator, opts: opts}
}

// Input is the research state adjudication reads. Every question must be
// terminal.
type Input struct {
	Claims           []model.Claim
	Questions        []model.ResearchQuestion
	Evidence         map[string][]model.Evidence // by question id
	DeadlineExceeded bool
}

// Adjudicate returns one verdict per claim in claim order, plus the
// per-claim degradations that were turned into CouldNotBeVerified
func (a *Adjudicator) Adjudicate(ctx context.Context, in Input) ([]model.Verdict, []error) {
	byClaim := make(map[string][]model.ResearchQuestion)
	for _, q := range in.Questions {
		byClaim[q.ClaimID] = append(byClaim[q.ClaimID], q)
	}

	verdicts := make([]model.Verdict, 0, len(in.Claims))
	var degraded []error
	for _, claim := range in.Claims {
		v, err := a.AdjudicateClaim(ctx, claim, byClaim[claim.ID], in.Evidence, in.DeadlineExceeded)
		if err != nil {
			a.opts.Logger.Warn("adjudicate: claim degraded", "claim_id", claim.ID, "error", err)
			degraded = append(degraded, err)
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, degraded
}

// AdjudicateClaim decides one claim. questions are the claim's own
// questions; only evidence of answered ones is admissible. The returned
// verdict is always usable; a non-nil error reports why it degraded.
func (a *Adjudicator) AdjudicateClaim(ctx context.Context, claim model.Claim, questions []model.ResearchQuestion, evidence map[string][]model.Evidence, deadlineExceeded bool) (model.Verdict, error) {
	logger := a.opts.Logger.With("claim_id", claim.ID)

	admissible := admissibleEvidence(claim, questions, evidence)
	if len(admissible) == 0 {
		v := model.Verdict{
			ClaimID:     claim.ID,
			Outcome:     model.OutcomeCouldNotBeVerified,
			EvidenceIDs: []string{},
			Rationale:   a.noEvidenceRationale(claim, questions, deadlineExceeded),
		}
		logger.Debug("adjudicate: no admissible evidence")
		return v, nil
	}

	if err := ctx.Err(); err != nil {
		return a.late(claim, err)
	}

	text, err := a.invoke(ctx, claim, admissible)
	if err != nil {
		if ctx.Err() != nil {
			return a.late(claim, ctx.Err())
		}
		return a.failed(claim, err)
	}
	out, err := llm.DecodeJSON[adjudicationOutput](text)
	if err != nil {
		return a.failed(claim, err)
	}
	outcome, err := model.ParseOutcome(out.Outcome)
	if err != nil {
		return a.failed(claim, err)
	}

	cited := filterCitations(out.EvidenceIDs, admissible)
	rationale := strings.TrimSpace(out.Rationale)

	if outcome != model.OutcomeCouldNotBeVerified && len(cited) == 0 {
		logger.Warn("adjudicate: verdict cites no admissible evidence, degrading", "outcome", outcome)
		rationale = strings.TrimSpace(fmt.Sprintf("Degraded from %s: no admissible evidence was cited. %s", outcome, rationale))
		outcome = model.OutcomeCouldNotBeVerified
	}
	if len(cited) > 0 && !mentionsAny(rationale, cited) {
		rationale = strings.TrimSpace(fmt.Sprintf("%s [%s]", rationale, strings.Join(cited, ", ")))
	}

	return model.Verdict{
		ClaimID:     claim.ID,
		Outcome:     outcome,
		EvidenceIDs: cited,
		Rationale:   rationale,
	}, nil
}

type adjudicationOutput struct {
	Outcome     string   `json:"outcome"`
	Rationale   string   `json:"rationale"`
	EvidenceIDs []string `json:"evidence_ids"`
}

func (a *Adjudicator) invoke(ctx context.Context, claim model.Claim, admissible []model.Evidence) (string, error) {
	var listing strings.Builder
	for _, e := range admissible {
		content := e.Content
		if a.opts.MaxEvidenceChars > 0 && len([]rune(content)) > a.opts.MaxEvidenceChars {
			content = string([]rune(content)[:a.opts.MaxEvidenceChars]) + "..."
		}
		fmt.Fprintf(&listing, "[%s] (%s, %s) %s\nSource: %s\n%s\n\n", e.ID, e.Authority, e.Kind, e.Title, e.SourceURI, content)
	}

	req := llm.Request{
		System: llm.WithDate(adjudicationSystem),
		Prompt: fmt.Sprintf(adjudicationPrompt, claim.ID, claim.Text, listing.String()),
		JSON:   true,
	}

	var text string
	_, err := worker.Retry(ctx, a.opts.Retry, llm.IsRetryable, func(ctx context.Context) error {
		resp, err := a.llm.Invoke(ctx, req)
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

func (a *Adjudicator) noEvidenceRationale(claim model.Claim, questions []model.ResearchQuestion, deadlineExceeded bool) string {
	reason := reasonNoEvidence
	switch {
	case len(questions) == 0:
		reason = reasonNoQuestions
	case allFailed(questions):
		reason = reasonToolsFailed
	case deadlineExceeded:
		reason = reasonDeadline
	}
	if claim.Confidence > a.opts.HighConfidenceThreshold {
		reason += fmt.Sprintf(" Unverified but high self-confidence (%.2f).", claim.Confidence)
	}
	return reason
}

func (a *Adjudicator) unverified(claim model.Claim, rationale string) model.Verdict {
	return model.Verdict{
		ClaimID:     claim.ID,
		Outcome:     model.OutcomeCouldNotBeVerified,
		EvidenceIDs: []string{},
		Rationale:   rationale,
	}
}

// late marks a claim whose adjudication the run context cut off
func (a *Adjudicator) late(claim model.Claim, err error) (model.Verdict, error) {
	return a.unverified(claim, reasonLate), &model.DegradedItemError{Stage: "adjudication", ItemID: claim.ID, Err: err}
}

func (a *Adjudicator) failed(claim model.Claim, err error) (model.Verdict, error) {
	return a.unverified(claim, reasonFailed), &model.DegradedItemError{
		Stage:  "adjudication",
		ItemID: claim.ID,
		Err:    fmt.Errorf("%w: %w", model.ErrAdjudication, err),
	}
}

// admissibleEvidence collects the evidence of the claim's answered
// questions, in question order
func admissibleEvidence(claim model.Claim, questions []model.ResearchQuestion, evidence map[string][]model.Evidence) []model.Evidence {
	var out []model.Evidence
	for _, q := range questions {
		if q.ClaimID != claim.ID || q.Status != model.StatusAnswered {
			continue
		}
		out = append(out, evidence[q.ID]...)
	}
	return out
}

func allFailed(questions []model.ResearchQuestion) bool {
	for _, q := range questions {
		if q.Status != model.StatusFailed {
			return false
		}
	}
	return len(questions) > 0
}

// filterCitations keeps cited ids that are admissible, first occurrence
// order, matching ids case-insensitively and with optional brackets
func filterCitations(cited []string, admissible []model.Evidence) []string {
	known := make(map[string]string, len(admissible))
	for _, e := range admissible {
		known[strings.ToUpper(e.ID)] = e.ID
	}

	out := []string{}
	seen := make(map[string]bool)
	for _, id := range cited {
		key := strings.ToUpper(strings.Trim(strings.TrimSpace(id), "[]"))
		canonical, ok := known[key]
		if !ok || seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, canonical)
	}
	return out
}

func mentionsAny(rationale string, ids []string) bool {
	for _, id := range ids {
		if strings.Contains(rationale, id) {
			return true
		}
	}
	return false
}
