package report

import (
	"fmt"
	"strings"

	"github.com/ppiankov/factcheck/internal/model"
)

const headlineMaxWords = 30

// Summarize computes the run-level assessment from the verdicts
func Summarize(claims []model.Claim, verdicts []model.Verdict) model.Summary {
	counts := map[model.Outcome]int{
		model.OutcomeTrue:               0,
		model.OutcomeFalse:              0,
		model.OutcomeCouldNotBeVerified: 0,
	}
	for _, v := range verdicts {
		counts[v.Outcome]++
	}

	return model.Summary{
		Factuality: Factuality(counts),
		Verdict:    OverallVerdict(counts),
		Counts:     counts,
		HeadlineMD: headline(claims, verdicts),
		ReasonMD:   reason(claims, verdicts),
	}
}

// Factuality is (true + 0.5*unverified) / total, 0 for an empty run
func Factuality(counts map[model.Outcome]int) float64 {
	t, f, u := counts[model.OutcomeTrue], counts[model.OutcomeFalse], counts[model.OutcomeCouldNotBeVerified]
	total := t + f + u
	if total == 0 {
		return 0
	}
	return (float64(t) + 0.5*float64(u)) / float64(total)
}

// OverallVerdict maps outcome counts to the run-level judgment:
// unverified when undecided claims outnumber decided ones, otherwise by
// the true/false balance, mixed unless one side is at least twice the other
func OverallVerdict(counts map[model.Outcome]int) model.OverallVerdict {
	t, f, u := counts[model.OutcomeTrue], counts[model.OutcomeFalse], counts[model.OutcomeCouldNotBeVerified]
	decided := t + f

	switch {
	case decided == 0 || u > decided:
		return model.VerdictUnverified
	case t >= 2*f:
		return model.VerdictMostlyTrue
	case f >= 2*t:
		return model.VerdictMostlyFalse
	default:
		return model.VerdictMixed
	}
}

// headline renders up to three lines, True then False then Unverified,
// omitting outcomes with no claims
func headline(claims []model.Claim, verdicts []model.Verdict) string {
	grouped := groupClaims(claims, verdicts)

	var lines []string
	for _, o := range outcomeOrder {
		texts := grouped[o]
		if len(texts) == 0 {
			continue
		}
		line := texts[0]
		if len(texts) > 1 {
			line = fmt.Sprintf("%s (+%d more)", line, len(texts)-1)
		}
		lines = append(lines, fmt.Sprintf("%s — %s", outcomeLabel(o), limitWords(line, headlineMaxWords)))
	}
	return strings.Join(lines, "\n")
}

// reason renders one markdown section per outcome with the claims and
// their rationales
func reason(claims []model.Claim, verdicts []model.Verdict) string {
	text := make(map[string]string, len(claims))
	for _, c := range claims {
		text[c.ID] = c.Text
	}

	var b strings.Builder
	for _, o := range outcomeOrder {
		var items []string
		for _, v := range verdicts {
			if v.Outcome != o {
				continue
			}
			items = append(items, fmt.Sprintf("- **%s** %s: %s", v.ClaimID, text[v.ClaimID], v.Rationale))
		}
		if len(items) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s\n%s\n", outcomeLabel(o), strings.Join(items, "\n"))
	}
	return strings.TrimRight(b.String(), "\n")
}

var outcomeOrder = []model.Outcome{model.OutcomeTrue, model.OutcomeFalse, model.OutcomeCouldNotBeVerified}

func outcomeLabel(o model.Outcome) string {
	switch o {
	case model.OutcomeTrue:
		return "True"
	case model.OutcomeFalse:
		return "False"
	default:
		return "Unverified"
	}
}

func groupClaims(claims []model.Claim, verdicts []model.Verdict) map[model.Outcome][]string {
	text := make(map[string]string, len(claims))
	for _, c := range claims {
		text[c.ID] = c.Text
	}
	grouped := make(map[model.Outcome][]string)
	for _, v := range verdicts {
		if t := strings.TrimSpace(text[v.ClaimID]); t != "" {
			grouped[v.Outcome] = append(grouped[v.Outcome], t)
		}
	}
	return grouped
}

func limitWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}
