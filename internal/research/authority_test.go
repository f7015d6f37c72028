package research

import (
	"testing"

	"github.com/ppiankov/factcheck/internal/model"
)

func TestAuthorityClassifier_Domains(t *testing.T) {
	config := &model.AuthorityConfig{
		PrimaryDomains:   []string{"legislation.gov.uk", "doi.org", "who.int"},
		SecondaryDomains: []string{"wikipedia.org", "britannica.com"},
	}

	classifier := NewAuthorityClassifier(config)

	tests := []struct {
		url      string
		expected model.AuthorityTier
		desc     string
	}{
		{url: "https://legislation.gov.uk/ukpga/1998/42", expected: model.TierPrimary, desc: "Primary domain exact match"},
		{url: "https://www.who.int/news-room", expected: model.TierPrimary, desc: "Primary domain with subdomain"},
		{url: "https://doi.org/10.1234/example", expected: model.TierPrimary, desc: "DOI primary source"},
		{url: "https://en.wikipedia.org/wiki/Eiffel_Tower", expected: model.TierSecondary, desc: "Wikipedia secondary source"},
		{url: "https://www.britannica.com/topic/Eiffel-Tower", expected: model.TierSecondary, desc: "Britannica secondary source"},
		{url: "https://notwikipedia.org/wiki/x", expected: model.TierTertiary, desc: "Suffix without dot boundary does not match"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			result := classifier.Classify(tt.url)
			if result != tt.expected {
				t.Errorf("Expected %v for %s, got %v", tt.expected, tt.url, result)
			}
		})
	}
}

func TestAuthorityClassifier_PathPatterns(t *testing.T) {
	config := &model.AuthorityConfig{
		PathPatterns: []model.PathPattern{
			{Pattern: "/statute/", Tier: "primary"},
			{Pattern: "^/press/", Tier: "secondary"},
			{Pattern: "([", Tier: "primary"}, // invalid, skipped
		},
	}

	classifier := NewAuthorityClassifier(config)

	tests := []struct {
		url      string
		expected model.AuthorityTier
		desc     string
	}{
		{url: "https://example.com/statute/42", expected: model.TierPrimary, desc: "Path pattern /statute/"},
		{url: "https://example.org/press/release", expected: model.TierSecondary, desc: "Anchored path pattern"},
		{url: "https://example.com/blog/post", expected: model.TierTertiary, desc: "No matching path pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			result := classifier.Classify(tt.url)
			if result != tt.expected {
				t.Errorf("Expected %v for %s, got %v", tt.expected, tt.url, result)
			}
		})
	}
}

func TestAuthorityClassifier_TLDHeuristics(t *testing.T) {
	classifier := NewAuthorityClassifier(&model.AuthorityConfig{})

	tests := []struct {
		url      string
		expected model.AuthorityTier
		desc     string
	}{
		{url: "https://whitehouse.gov/statements", expected: model.TierPrimary, desc: ".gov TLD should be primary"},
		{url: "https://mit.edu/research", expected: model.TierPrimary, desc: ".edu TLD should be primary"},
		{url: "https://oxford.ac.uk/research", expected: model.TierPrimary, desc: ".ac.uk should be primary"},
		{url: "https://data.gov.fr/datasets", expected: model.TierPrimary, desc: "National government domain"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			result := classifier.Classify(tt.url)
			if result != tt.expected {
				t.Errorf("Expected %v for %s, got %v", tt.expected, tt.url, result)
			}
		})
	}
}

func TestAuthorityClassifier_DomainMap(t *testing.T) {
	config := &model.AuthorityConfig{
		PrimaryDomains: []string{"example.gov"},
		DomainMap: map[string]string{
			"NYTimes.com":   "secondary",
			"myblog.com":    "tertiary",
			"example.gov":   "2",
			"bogus-map.com": "nonsense",
		},
	}

	classifier := NewAuthorityClassifier(config)

	tests := []struct {
		url      string
		expected model.AuthorityTier
		desc     string
	}{
		{url: "https://nytimes.com/article", expected: model.TierSecondary, desc: "Domain map is case-insensitive"},
		{url: "https://myblog.com/post", expected: model.TierTertiary, desc: "Explicit domain map to tertiary"},
		{url: "https://example.gov/page", expected: model.TierSecondary, desc: "Domain map wins over primary list"},
		{url: "https://bogus-map.com/", expected: model.TierTertiary, desc: "Unknown tier name maps to tertiary"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			result := classifier.Classify(tt.url)
			if result != tt.expected {
				t.Errorf("Expected %v for %s, got %v", tt.expected, tt.url, result)
			}
		})
	}
}

func TestAuthorityClassifier_Defaults(t *testing.T) {
	classifier := NewAuthorityClassifier(nil)

	tests := []struct {
		url      string
		expected model.AuthorityTier
		desc     string
	}{
		{url: "https://arxiv.org/abs/2101.00001", expected: model.TierPrimary, desc: "Default primary domain"},
		{url: "https://www.reuters.com/world", expected: model.TierSecondary, desc: "Default secondary domain"},
		{url: "https://randomsite.com/page", expected: model.TierTertiary, desc: "Unknown domain defaults to tertiary"},
		{url: "not-a-url", expected: model.TierTertiary, desc: "Invalid URL defaults to tertiary"},
		{url: "", expected: model.TierTertiary, desc: "Empty URL defaults to tertiary"},
		{url: "https://sec.gov:443/cgi-bin/browse-edgar", expected: model.TierPrimary, desc: "Port is ignored"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			result := classifier.Classify(tt.url)
			if result != tt.expected {
				t.Errorf("Expected %v for %s, got %v", tt.expected, tt.url, result)
			}
		})
	}
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		input    string
		expected model.AuthorityTier
	}{
		{input: "primary", expected: model.TierPrimary},
		{input: "Primary", expected: model.TierPrimary},
		{input: " 1 ", expected: model.TierPrimary},
		{input: "secondary", expected: model.TierSecondary},
		{input: "2", expected: model.TierSecondary},
		{input: "tertiary", expected: model.TierTertiary},
		{input: "unknown", expected: model.TierTertiary},
		{input: "", expected: model.TierTertiary},
	}

	for _, tt := range tests {
		if got := parseTier(tt.input); got != tt.expected {
			t.Errorf("parseTier(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}
