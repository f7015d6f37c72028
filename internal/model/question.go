package model

import (
	"fmt"
	"strings"
)

// Priority is the scheduling weight of a research question
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists the tiers in dispatch order
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// Rank returns the dispatch rank of the tier (0 is dispatched first)
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Valid reports whether p is one of the known tiers
func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// ParsePriority accepts tier names and the numeric form 1=high, 2=medium, 3=low
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "1":
		return PriorityHigh, nil
	case "medium", "med", "2":
		return PriorityMedium, nil
	case "low", "3":
		return PriorityLow, nil
	default:
		return "", fmt.Errorf("unknown priority: %q", s)
	}
}

// QuestionStatus tracks a research question through the scheduler
type QuestionStatus string

const (
	StatusPending   QuestionStatus = "pending"
	StatusRunning   QuestionStatus = "running"
	StatusAnswered  QuestionStatus = "answered"  // At least one evidence item gathered
	StatusExhausted QuestionStatus = "exhausted" // Budget or deadline ran out with zero evidence
	StatusFailed    QuestionStatus = "failed"    // Every tool call raised a non-retryable error
)

// Terminal reports whether no further transition can happen within a run
func (s QuestionStatus) Terminal() bool {
	return s == StatusAnswered || s == StatusExhausted || s == StatusFailed
}

// ResearchQuestion is a targeted query whose answer provides evidence for a claim
type ResearchQuestion struct {
	ID           string         `json:"id"`
	ClaimID      string         `json:"claim_id"`
	Text         string         `json:"text"`
	Priority     Priority       `json:"priority"`
	Status       QuestionStatus `json:"status"`
	QuestionType string         `json:"question_type,omitempty"` // temporal, quantifiable, ambiguous, implicit
}
