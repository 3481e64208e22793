package sources

import (
	"net/url"
	"strings"

	"github.com/ameins/delver/internal/model"
)

// TierClassifier maps source hosts to credibility tiers
type TierClassifier struct {
	config       *model.SourcesConfig
	primaryMap   map[string]bool
	secondaryMap map[string]bool
}

// NewTierClassifier creates a classifier; nil config uses the defaults
func NewTierClassifier(config *model.SourcesConfig) *TierClassifier {
	if config == nil {
		config = &model.DefaultConfig().Sources
	}

	classifier := &TierClassifier{
		config:       config,
		primaryMap:   make(map[string]bool),
		secondaryMap: make(map[string]bool),
	}

	for _, domain := range config.PrimaryDomains {
		classifier.primaryMap[domain] = true
	}
	for _, domain := range config.SecondaryDomains {
		classifier.secondaryMap[domain] = true
	}

	return classifier
}

// Classify maps a URL to a credibility tier
func (c *TierClassifier) Classify(rawURL string) model.SourceTier {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return model.TierTertiary
	}

	host := parsed.Host

	// Remove port from host
	if idx := strings.Index(host, ":"); idx > 0 {
		host = host[:idx]
	}

	// Explicit host overrides from config
	if c.config.DomainMap != nil {
		if tierStr, ok := c.config.DomainMap[host]; ok {
			return parseTierString(tierStr)
		}
	}

	if matchesDomain(host, c.primaryMap) {
		return model.TierPrimary
	}
	if matchesDomain(host, c.secondaryMap) {
		return model.TierSecondary
	}

	// Government and academic TLDs
	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".edu") || strings.HasSuffix(host, ".ac.uk") {
		return model.TierPrimary
	}

	return model.TierTertiary
}

// matchesDomain checks host against the set by exact or suffix match,
// so sub.example.org matches a configured example.org
func matchesDomain(host string, domains map[string]bool) bool {
	if domains[host] {
		return true
	}
	for domain := range domains {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// parseTierString converts a tier string to SourceTier
func parseTierString(tier string) model.SourceTier {
	switch strings.ToLower(tier) {
	case "primary", "1":
		return model.TierPrimary
	case "secondary", "2":
		return model.TierSecondary
	default:
		return model.TierTertiary
	}
}
