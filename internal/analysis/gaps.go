package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/factcheck/internal/llm"
	"github.com/ppiankov/factcheck/internal/model"
)

// GapIdentifier plans the research questions for a set of claims
type GapIdentifier struct {
	llm  llm.Collaborator
	opts Options
}

// NewGapIdentifier creates a gap identifier
func NewGapIdentifier(collaborator llm.Collaborator, opts Options) *GapIdentifier {
	return &GapIdentifier{llm: collaborator, opts: opts}
}

type rawQuestion struct {
	ClaimID  flexString `json:"claim_id"`
	Text     string     `json:"text"`
	Question string     `json:"question"`
	Priority flexString `json:"priority"`
	Type     string     `json:"type"`
}

type planningOutput struct {
	Questions []rawQuestion `json:"questions"`
}

// Identify returns pending research questions with ids Q1..Qn. A claim may
// get no questions. Any failure wraps model.ErrPlanning.
func (g *GapIdentifier) Identify(ctx context.Context, claims []model.Claim) ([]model.ResearchQuestion, error) {
	if len(claims) == 0 {
		return []model.ResearchQuestion{}, nil
	}
	logger := g.opts.logger()

	byID := make(map[string]model.Claim, len(claims))
	var listing strings.Builder
	for _, c := range claims {
		byID[c.ID] = c
		fmt.Fprintf(&listing, "- %s: %s\n", c.ID, c.Text)
	}

	out, err := invoke(ctx, g.llm, g.opts.retry(), llm.Request{
		System: llm.WithDate(planningSystem),
		Prompt: fmt.Sprintf(planningPrompt, listing.String()),
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrPlanning, err)
	}

	raw, err := decodeQuestions(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrPlanning, err)
	}

	questions := make([]model.ResearchQuestion, 0, len(raw))
	for _, rq := range raw {
		claimID := strings.ToUpper(strings.TrimSpace(string(rq.ClaimID)))
		if claimID != "" && !strings.HasPrefix(claimID, "C") {
			claimID = "C" + claimID
		}
		claim, ok := byID[claimID]
		if !ok {
			logger.Warn("analysis: dropping question for unknown claim", "claim_id", string(rq.ClaimID))
			continue
		}

		text := strings.TrimSpace(rq.Text)
		if text == "" {
			text = strings.TrimSpace(rq.Question)
		}
		if text == "" {
			continue
		}

		questions = append(questions, model.ResearchQuestion{
			ID:           fmt.Sprintf("Q%d", len(questions)+1),
			ClaimID:      claim.ID,
			Text:         text,
			Priority:     g.priority(claim, string(rq.Priority)),
			Status:       model.StatusPending,
			QuestionType: strings.ToLower(strings.TrimSpace(rq.Type)),
		})
	}

	logger.Debug("analysis: research planned", "claims", len(claims), "questions", len(questions))
	return questions, nil
}

// priority applies the tier heuristic: low-confidence claims are
// researched first, otherwise the model's tier, defaulting to medium
func (g *GapIdentifier) priority(claim model.Claim, suggested string) model.Priority {
	if claim.Confidence < g.opts.LowConfidenceThreshold {
		return model.PriorityHigh
	}
	p, err := model.ParsePriority(suggested)
	if err != nil {
		return model.PriorityMedium
	}
	return p
}

func decodeQuestions(text string) ([]rawQuestion, error) {
	if wrapped, err := llm.DecodeJSON[planningOutput](text); err == nil {
		return wrapped.Questions, nil
	}
	return llm.DecodeJSON[[]rawQuestion](text)
}
