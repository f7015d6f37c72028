package model

import (
	"fmt"
	"strings"
)

// Outcome is the adjudicated result for a claim
type Outcome string

const (
	OutcomeTrue               Outcome = "True"
	OutcomeFalse              Outcome = "False"
	OutcomeCouldNotBeVerified Outcome = "CouldNotBeVerified"
)

// ParseOutcome normalizes the outcome labels a model tends to produce
func ParseOutcome(s string) (Outcome, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(norm)
	switch norm {
	case "true", "verified", "supported":
		return OutcomeTrue, nil
	case "false", "refuted", "contradicted":
		return OutcomeFalse, nil
	case "couldnotbeverified", "unverified", "insufficientevidence", "unknown":
		return OutcomeCouldNotBeVerified, nil
	default:
		return "", fmt.Errorf("unknown outcome: %q", s)
	}
}

// Verdict is the final adjudicated outcome for one claim
type Verdict struct {
	ClaimID     string   `json:"claim_id"`
	Outcome     Outcome  `json:"outcome"`
	EvidenceIDs []string `json:"evidence_ids"`
	Rationale   string   `json:"rationale"`
}
