// Package report maps pipeline state to the external report schema and
// renders it as JSON or Markdown.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/factcheck/internal/model"
)

const excerptMaxRunes = 280

// Input is everything the transformer reads
type Input struct {
	RunID     string
	Text      string // raw input, included in the report when IncludeInput is set
	Claims    []model.Claim
	Questions []model.ResearchQuestion
	Evidence  map[string][]model.Evidence
	Verdicts  []model.Verdict
	Metadata  model.RunMetadata

	IncludeInput bool
}

// Transform builds the report. It fails only when the report cannot be
// serialized; the error wraps model.ErrSerialization.
func Transform(in Input) (*model.Report, error) {
	evidenceByID := make(map[string]model.Evidence)
	for _, items := range in.Evidence {
		for _, e := range items {
			evidenceByID[e.ID] = e
		}
	}

	r := &model.Report{
		RunID:     in.RunID,
		Claims:    make([]model.ReportClaim, 0, len(in.Claims)),
		Verdicts:  make([]model.ReportVerdict, 0, len(in.Verdicts)),
		Questions: in.Questions,
		Summary:   Summarize(in.Claims, in.Verdicts),
		Metadata:  in.Metadata,
	}
	if in.IncludeInput {
		r.Input = in.Text
	}

	for _, c := range in.Claims {
		rc := model.ReportClaim{
			ID:         c.ID,
			Text:       c.Text,
			Confidence: model.ClampConfidence(c.Confidence),
		}
		if c.SourceSpan.Located() {
			span := c.SourceSpan
			rc.SourceSpan = &span
		}
		r.Claims = append(r.Claims, rc)
	}

	for _, v := range in.Verdicts {
		rv := model.ReportVerdict{
			ClaimID:   v.ClaimID,
			Outcome:   v.Outcome,
			Rationale: v.Rationale,
			Evidence:  make([]model.EvidenceRef, 0, len(v.EvidenceIDs)),
		}
		for _, id := range v.EvidenceIDs {
			e, ok := evidenceByID[id]
			if !ok {
				continue
			}
			rv.Evidence = append(rv.Evidence, model.EvidenceRef{
				ID:          e.ID,
				QuestionID:  e.QuestionID,
				SourceURI:   e.SourceURI,
				Title:       e.Title,
				Excerpt:     excerpt(e.Content, excerptMaxRunes),
				Authority:   e.Authority,
				RetrievedAt: e.RetrievedAt,
			})
		}
		r.Verdicts = append(r.Verdicts, rv)
	}

	if r.Metadata.ToolCallsByPriority == nil {
		r.Metadata.ToolCallsByPriority = map[model.Priority]int{}
	}

	if _, err := json.Marshal(r); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrSerialization, err)
	}
	return r, nil
}

// Marshal renders the report as indented JSON
func Marshal(r *model.Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrSerialization, err)
	}
	return data, nil
}

func excerpt(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
