package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/factcheck/internal/model"
)

// Renderer writes reports as JSON or Markdown
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the report JSON to path
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := Marshal(report)
	if err != nil {
		return err
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the Markdown report to path
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(r.Markdown(report)))
}

// Markdown renders a human-readable report
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder

	b.WriteString("# Fact-check report\n\n")
	fmt.Fprintf(&b, "**Verdict:** %s  \n", verdictLabel(report.Summary.Verdict))
	fmt.Fprintf(&b, "**Factuality:** %.2f  \n", report.Summary.Factuality)
	fmt.Fprintf(&b, "**Run:** `%s`\n\n", report.RunID)

	if report.Summary.HeadlineMD != "" {
		for _, line := range strings.Split(report.Summary.HeadlineMD, "\n") {
			fmt.Fprintf(&b, "> %s\n", line)
		}
		b.WriteString("\n")
	}

	claims := make(map[string]model.ReportClaim, len(report.Claims))
	for _, c := range report.Claims {
		claims[c.ID] = c
	}

	b.WriteString("## Claims\n\n")
	b.WriteString("| ID | Claim | Outcome | Confidence |\n")
	b.WriteString("|----|-------|---------|------------|\n")
	for _, v := range report.Verdicts {
		c := claims[v.ClaimID]
		fmt.Fprintf(&b, "| %s | %s | %s | %.2f |\n", v.ClaimID, escapeCell(c.Text), outcomeLabel(v.Outcome), c.Confidence)
	}
	b.WriteString("\n")

	for _, v := range report.Verdicts {
		fmt.Fprintf(&b, "### %s: %s\n\n", v.ClaimID, claims[v.ClaimID].Text)
		fmt.Fprintf(&b, "**%s.** %s\n\n", outcomeLabel(v.Outcome), v.Rationale)
		for _, e := range v.Evidence {
			title := e.Title
			if title == "" {
				title = e.SourceURI
			}
			fmt.Fprintf(&b, "- `%s` [%s](%s) (%s)\n", e.ID, title, e.SourceURI, e.Authority)
			if e.Excerpt != "" {
				fmt.Fprintf(&b, "  > %s\n", e.Excerpt)
			}
		}
		if len(v.Evidence) > 0 {
			b.WriteString("\n")
		}
	}

	if len(report.Questions) > 0 {
		b.WriteString("## Research\n\n")
		b.WriteString("| ID | Claim | Priority | Status | Question |\n")
		b.WriteString("|----|-------|----------|--------|----------|\n")
		for _, q := range report.Questions {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", q.ID, q.ClaimID, q.Priority, q.Status, escapeCell(q.Text))
		}
		b.WriteString("\n")
	}

	m := report.Metadata
	b.WriteString("## Run\n\n")
	fmt.Fprintf(&b, "- Duration: %d ms\n", m.DurationMs)
	if m.Provider != "" {
		fmt.Fprintf(&b, "- Model: %s/%s\n", m.Provider, m.Model)
	}
	fmt.Fprintf(&b, "- Tool calls: high %d, medium %d, low %d\n",
		m.ToolCallsByPriority[model.PriorityHigh],
		m.ToolCallsByPriority[model.PriorityMedium],
		m.ToolCallsByPriority[model.PriorityLow])
	if m.DeadlineExceeded {
		b.WriteString("- Research deadline exceeded\n")
	}
	for _, s := range m.Stages {
		fmt.Fprintf(&b, "- %s: %d ms\n", s.Stage, s.DurationMs)
	}

	if r.includeFooter {
		b.WriteString("\n---\n_Generated by factcheck. Verdicts rely only on the cited evidence._\n")
	}
	return b.String()
}

// RenderSummary prints a short summary
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	s := report.Summary
	fmt.Fprintf(w, "Verdict: %s (factuality %.2f)\n", verdictLabel(s.Verdict), s.Factuality)

	outcomes := make([]string, 0, len(s.Counts))
	for o := range s.Counts {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(w, "  %-20s %d\n", outcomeLabel(model.Outcome(o)), s.Counts[model.Outcome(o)])
	}
	if s.HeadlineMD != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, s.HeadlineMD)
	}
}

func verdictLabel(v model.OverallVerdict) string {
	return strings.ReplaceAll(string(v), "_", " ")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
