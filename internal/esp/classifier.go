package esp

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"spfwatch/internal/cache"
	"spfwatch/internal/spf"
)

const defaultCacheTTL = time.Hour

// Override supplies operator-maintained profiles, typically from the
// database. It reports false when no override exists for the domain.
type Override func(includeDomain string) (Profile, bool)

// Classifier maps include domains to ESP stability profiles. Classification
// is advisory: it never blocks flattening, it only influences whether the
// monitor allows unattended updates.
type Classifier struct {
	cache    cache.Provider
	ttl      time.Duration
	override Override
}

type Option func(*Classifier)

func WithTTL(ttl time.Duration) Option {
	return func(c *Classifier) { c.ttl = ttl }
}

// WithOverride installs a profile source consulted before the curated table.
func WithOverride(override Override) Option {
	return func(c *Classifier) { c.override = override }
}

func NewClassifier(provider cache.Provider, opts ...Option) *Classifier {
	c := &Classifier{
		cache: provider,
		ttl:   defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify resolves an include domain to a fully populated profile.
// Precedence is: cache, operator override, exact table match, longest suffix
// table match, conservative unknown default. The result is always complete;
// callers never see partial fields.
func (c *Classifier) Classify(includeDomain string) Profile {
	domain := spf.NormalizeDomain(includeDomain)
	if domain == "" {
		return UnknownProfile(includeDomain)
	}

	if c.cache != nil {
		if data, ok := c.cache.Get(cacheKey(domain)); ok {
			var profile Profile
			if err := json.Unmarshal(data, &profile); err == nil {
				return profile
			}
			c.cache.Invalidate(cacheKey(domain))
		}
	}

	profile := c.resolve(domain)

	if c.cache != nil {
		if data, err := json.Marshal(profile); err == nil {
			c.cache.Set(cacheKey(domain), data, c.ttl)
		} else {
			log.Warn("esp: failed to cache profile", "domain", domain, "error", err)
		}
	}

	return profile
}

func (c *Classifier) resolve(domain string) Profile {
	if c.override != nil {
		if profile, ok := c.override(domain); ok {
			profile.IncludeDomain = domain
			profile.Known = true
			return profile
		}
	}

	if profile, ok := knownProviders[domain]; ok {
		profile.IncludeDomain = domain
		profile.Known = true
		return profile
	}

	// Longest suffix wins so include1.spf.example beats spf.example.
	var best Profile
	bestLen := 0
	for suffix, profile := range knownProviders {
		if strings.HasSuffix(domain, "."+suffix) && len(suffix) > bestLen {
			best = profile
			bestLen = len(suffix)
		}
	}
	if bestLen > 0 {
		best.IncludeDomain = domain
		best.Known = true
		return best
	}

	return UnknownProfile(domain)
}

// Rate adapts the classifier to the analysis package's StabilityRater shape.
func (c *Classifier) Rate(includeDomain string) (string, bool) {
	profile := c.Classify(includeDomain)
	if !profile.Known {
		return "", false
	}
	return profile.ESPName, profile.IsStable
}

func cacheKey(domain string) string {
	return "esp-profile:" + domain
}
