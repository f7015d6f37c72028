package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/factcheck/internal/llm"
	"github.com/ppiankov/factcheck/internal/model"
)

// ClaimStructurer decomposes input text into atomic claims
type ClaimStructurer struct {
	llm  llm.Collaborator
	opts Options
}

// NewClaimStructurer creates a claim structurer
func NewClaimStructurer(collaborator llm.Collaborator, opts Options) *ClaimStructurer {
	return &ClaimStructurer{llm: collaborator, opts: opts}
}

type rawClaim struct {
	Text       string    `json:"text"`
	Claim      string    `json:"claim"` // some models use "claim" for the text
	Confidence flexFloat `json:"confidence"`
	Category   string    `json:"category"`
}

type structuringOutput struct {
	Claims []rawClaim `json:"claims"`
}

// Structure returns the claims of text in input order with ids C1..Cn.
// Any failure wraps model.ErrDecomposition.
func (s *ClaimStructurer) Structure(ctx context.Context, text string) ([]model.Claim, error) {
	if strings.TrimSpace(text) == "" {
		return nil, model.ErrEmptyInput
	}
	logger := s.opts.logger()

	out, err := invoke(ctx, s.llm, s.opts.retry(), llm.Request{
		System: llm.WithDate(structuringSystem),
		Prompt: fmt.Sprintf(structuringPrompt, text),
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDecomposition, err)
	}

	raw, err := decodeClaims(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDecomposition, err)
	}

	claims := make([]model.Claim, 0, len(raw))
	seen := make(map[string]bool)
	for _, rc := range raw {
		claimText := strings.TrimSpace(rc.Text)
		if claimText == "" {
			claimText = strings.TrimSpace(rc.Claim)
		}
		key := strings.ToLower(claimText)
		if claimText == "" || seen[key] {
			continue
		}
		seen[key] = true

		confidence := 0.5
		if rc.Confidence.set {
			confidence = model.ClampConfidence(rc.Confidence.value)
		}

		claims = append(claims, model.Claim{
			ID:         fmt.Sprintf("C%d", len(claims)+1),
			Text:       claimText,
			Confidence: confidence,
			Category:   strings.TrimSpace(rc.Category),
			SourceSpan: locateSpan(text, claimText),
		})
	}

	if len(claims) == 0 {
		return nil, fmt.Errorf("%w: model returned no claims", model.ErrDecomposition)
	}

	logger.Debug("analysis: claims structured", "claims", len(claims))
	return claims, nil
}

// decodeClaims accepts {"claims": [...]} or a bare array
func decodeClaims(text string) ([]rawClaim, error) {
	if wrapped, err := llm.DecodeJSON[structuringOutput](text); err == nil {
		return wrapped.Claims, nil
	}
	return llm.DecodeJSON[[]rawClaim](text)
}
