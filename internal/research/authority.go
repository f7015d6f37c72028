package research

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/factcheck/internal/model"
)

// AuthorityClassifier assigns sources to authority tiers. Higher-authority
// search results are scraped first.
type AuthorityClassifier struct {
	domainMap    map[string]model.AuthorityTier
	primary      []string
	secondary    []string
	pathPatterns []compiledPattern
}

type compiledPattern struct {
	pattern *regexp.Regexp
	tier    model.AuthorityTier
}

// NewAuthorityClassifier builds a classifier. A nil config uses the defaults.
// Invalid path patterns are skipped.
func NewAuthorityClassifier(config *model.AuthorityConfig) *AuthorityClassifier {
	if config == nil {
		config = &model.DefaultConfig().Authority
	}

	c := &AuthorityClassifier{
		domainMap: make(map[string]model.AuthorityTier, len(config.DomainMap)),
	}
	for host, tier := range config.DomainMap {
		c.domainMap[strings.ToLower(host)] = parseTier(tier)
	}
	for _, d := range config.PrimaryDomains {
		c.primary = append(c.primary, strings.ToLower(d))
	}
	for _, d := range config.SecondaryDomains {
		c.secondary = append(c.secondary, strings.ToLower(d))
	}
	for _, pp := range config.PathPatterns {
		if re, err := regexp.Compile(pp.Pattern); err == nil {
			c.pathPatterns = append(c.pathPatterns, compiledPattern{pattern: re, tier: parseTier(pp.Tier)})
		}
	}
	return c
}

// Classify returns the authority tier of a URL
func (a *AuthorityClassifier) Classify(rawURL string) model.AuthorityTier {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return model.TierTertiary
	}

	host := strings.ToLower(parsed.Hostname())

	if tier, ok := a.domainMap[host]; ok {
		return tier
	}
	if matchesDomain(host, a.primary) {
		return model.TierPrimary
	}
	if matchesDomain(host, a.secondary) {
		return model.TierSecondary
	}
	for _, cp := range a.pathPatterns {
		if cp.pattern.MatchString(parsed.Path) {
			return cp.tier
		}
	}

	// Government and academic hosts
	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".edu") ||
		strings.HasSuffix(host, ".ac.uk") || strings.Contains(host, ".gov.") {
		return model.TierPrimary
	}

	return model.TierTertiary
}

// matchesDomain reports whether host equals or is a subdomain of any domain
func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func parseTier(tier string) model.AuthorityTier {
	var t model.AuthorityTier
	_ = t.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(tier))))
	if t == model.TierUnknown {
		return model.TierTertiary
	}
	return t
}
