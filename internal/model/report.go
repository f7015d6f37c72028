package model

import "time"

// Report is the terminal artifact of a fact-check run.
// Its JSON form is the external report schema.
type Report struct {
	RunID     string             `json:"run_id"`
	Input     string             `json:"input,omitempty"`
	Claims    []ReportClaim      `json:"claims"`
	Verdicts  []ReportVerdict    `json:"verdicts"`
	Questions []ResearchQuestion `json:"questions,omitempty"`
	Summary   Summary            `json:"summary"`
	Metadata  RunMetadata        `json:"metadata"`
}

// ReportClaim is the external view of a claim
type ReportClaim struct {
	ID         string      `json:"id"`
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	SourceSpan *SourceSpan `json:"source_span,omitempty"`
}

// ReportVerdict is the external view of a verdict with its evidence inlined
type ReportVerdict struct {
	ClaimID   string        `json:"claim_id"`
	Outcome   Outcome       `json:"outcome"`
	Rationale string        `json:"rationale"`
	Evidence  []EvidenceRef `json:"evidence"`
}

// EvidenceRef is a cited evidence item as it appears in the report
type EvidenceRef struct {
	ID          string        `json:"id"`
	QuestionID  string        `json:"question_id"`
	SourceURI   string        `json:"source_uri"`
	Title       string        `json:"title,omitempty"`
	Excerpt     string        `json:"excerpt"`
	Authority   AuthorityTier `json:"authority"`
	RetrievedAt time.Time     `json:"retrieved_at"`
}

// Summary is the aggregate assessment across all claims
type Summary struct {
	Factuality float64         `json:"factuality"` // (true + 0.5*unverified) / total
	Verdict    OverallVerdict  `json:"verdict"`
	Counts     map[Outcome]int `json:"counts"`
	HeadlineMD string          `json:"headline_md,omitempty"`
	ReasonMD   string          `json:"reason_md,omitempty"`
}

// OverallVerdict is the run-level judgment
type OverallVerdict string

const (
	VerdictMostlyTrue  OverallVerdict = "mostly_true"
	VerdictMostlyFalse OverallVerdict = "mostly_false"
	VerdictMixed       OverallVerdict = "mixed"
	VerdictUnverified  OverallVerdict = "unverified"
)

// RunMetadata records timing and tool usage for a run
type RunMetadata struct {
	DurationMs          int64                  `json:"duration_ms"`
	ToolCallsByPriority map[Priority]int       `json:"tool_calls_by_priority"`
	StartedAt           time.Time              `json:"started_at"`
	FinishedAt          time.Time              `json:"finished_at"`
	Stages              []StageMetrics         `json:"stages,omitempty"`
	QuestionStatus      map[QuestionStatus]int `json:"question_status,omitempty"`
	DeadlineExceeded    bool                   `json:"deadline_exceeded,omitempty"`
	Provider            string                 `json:"provider,omitempty"`
	Model               string                 `json:"model,omitempty"`
}

// StageMetrics records one pipeline stage
type StageMetrics struct {
	Stage             string `json:"stage"`
	DurationMs        int64  `json:"duration_ms"`
	ToolCalls         int    `json:"tool_calls"`
	CollaboratorCalls int    `json:"collaborator_calls"`
}
