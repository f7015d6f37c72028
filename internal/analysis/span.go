package analysis

import (
	"strings"
	"unicode"

	"github.com/ppiankov/factcheck/internal/model"
)

// sentence is a sentence of the raw input with its byte offsets
type sentence struct {
	start, end int
	text       string
}

// splitSentences splits text on sentence terminators followed by
// whitespace, keeping byte offsets into the original text
func splitSentences(text string) []sentence {
	var out []sentence
	start := 0

	flush := func(end int) {
		raw := text[start:end]
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			lead := strings.Index(raw, trimmed)
			out = append(out, sentence{start: start + lead, end: start + lead + len(trimmed), text: trimmed})
		}
	}

	for i, r := range text {
		if r != '.' && r != '!' && r != '?' && r != '\n' {
			continue
		}
		// Look ahead to avoid splitting on decimals and abbreviations like "e.g."
		next := i + 1
		if r != '\n' && next < len(text) && text[next] != ' ' && text[next] != '\t' && text[next] != '\n' {
			continue
		}
		flush(next)
		start = next
	}
	if start < len(text) {
		flush(len(text))
	}
	return out
}

// locateSpan finds where a claim came from in the input. An exact
// case-insensitive match wins; otherwise the sentence sharing most words
// with the claim is used when the overlap is substantial.
func locateSpan(input, claim string) model.SourceSpan {
	claim = strings.TrimSpace(claim)
	if claim == "" {
		return model.NoSpan
	}

	// Offsets are only valid when lowercasing preserves byte lengths
	lowerInput, lowerClaim := strings.ToLower(input), strings.ToLower(claim)
	if len(lowerInput) == len(input) && len(lowerClaim) == len(claim) {
		if i := strings.Index(lowerInput, lowerClaim); i >= 0 {
			return model.SourceSpan{Start: i, End: i + len(claim), Text: input[i : i+len(claim)]}
		}
	}

	claimWords := wordSet(claim)
	if len(claimWords) == 0 {
		return model.NoSpan
	}

	best, bestScore := -1, 0.0
	sentences := splitSentences(input)
	for i, s := range sentences {
		words := wordSet(s.text)
		shared := 0
		for w := range claimWords {
			if words[w] {
				shared++
			}
		}
		score := float64(shared) / float64(len(claimWords))
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 || bestScore < 0.6 {
		return model.NoSpan
	}
	s := sentences[best]
	return model.SourceSpan{Start: s.start, End: s.end, Text: s.text}
}

func wordSet(s string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		if len(w) > 2 {
			set[w] = true
		}
	}
	return set
}
