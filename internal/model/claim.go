package model

// Claim is an atomic, independently verifiable statement extracted from the input
type Claim struct {
	ID         string     `json:"id"`                 // C1, C2, ...
	Text       string     `json:"text"`               // The claim text itself
	Confidence float64    `json:"confidence"`         // Faithfulness of the decomposition, in [0,1]
	Category   string     `json:"category,omitempty"` // Optional topical category from the model
	SourceSpan SourceSpan `json:"source_span"`        // Where the claim came from in the raw input
}

// SourceSpan locates a claim inside the raw input text.
// Start and End are byte offsets (End exclusive); both are -1 when the claim
// could not be located.
type SourceSpan struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text,omitempty"`
}

// NoSpan is the span used for claims that cannot be located in the input
var NoSpan = SourceSpan{Start: -1, End: -1}

// Located reports whether the span points into the input
func (s SourceSpan) Located() bool {
	return s.Start >= 0 && s.End > s.Start
}

// ClampConfidence forces a confidence score into [0,1]. NaN maps to 0.
func ClampConfidence(c float64) float64 {
	if c != c { // NaN
		return 0
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
