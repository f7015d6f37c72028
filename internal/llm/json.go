package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON decodes a JSON value from model output. Markdown code fences
// and prose around the outermost object or array are tolerated.
func DecodeJSON[T any](text string) (T, error) {
	var out T
	payload := extractJSON(text)
	if payload == "" {
		return out, fmt.Errorf("no JSON found in model output")
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return out, fmt.Errorf("decode model output: %w", err)
	}
	return out, nil
}

func extractJSON(text string) string {
	s := strings.TrimSpace(text)

	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		// drop the language tag line
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		s = strings.TrimSpace(rest)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	open, closing := s[start], byte('}')
	if open == '[' {
		closing = ']'
	}
	end := strings.LastIndexByte(s, closing)
	if end < start {
		return ""
	}
	return s[start : end+1]
}
