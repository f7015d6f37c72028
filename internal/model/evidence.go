package model

import "time"

// Evidence is retrieved content associated with a research question.
// Evidence is append-only: once gathered it is never mutated.
type Evidence struct {
	ID          string        `json:"id"`          // <question_id>-E<n>
	QuestionID  string        `json:"question_id"` // Owning research question
	SourceURI   string        `json:"source_uri"`
	Title       string        `json:"title,omitempty"`
	Content     string        `json:"content"`
	Kind        EvidenceKind  `json:"kind"`
	Authority   AuthorityTier `json:"authority"`
	RetrievedAt time.Time     `json:"retrieved_at"`
}

// EvidenceKind classifies how the evidence was obtained
type EvidenceKind string

const (
	EvidenceKindSnippet EvidenceKind = "snippet" // Search result snippet
	EvidenceKindPage    EvidenceKind = "page"    // Scraped page content
)

// AuthorityTier represents the classification of source authority
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = 0 // Not yet classified
	TierPrimary   AuthorityTier = 1 // Official sources, filings, academic papers
	TierSecondary AuthorityTier = 2 // Encyclopedias, major publishers, reputable media
	TierTertiary  AuthorityTier = 3 // Blogs, forums, aggregators
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}

// MarshalText renders the tier by name in JSON and YAML
func (t AuthorityTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a tier name
func (t *AuthorityTier) UnmarshalText(b []byte) error {
	switch string(b) {
	case "primary", "1":
		*t = TierPrimary
	case "secondary", "2":
		*t = TierSecondary
	case "tertiary", "3":
		*t = TierTertiary
	default:
		*t = TierUnknown
	}
	return nil
}
