package spf

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/idna"

	"spfwatch/internal/resolver"
)

// Build renders a mechanism sequence back into SPF TXT form.
func Build(mechanisms []Mechanism) string {
	parts := make([]string, 0, len(mechanisms)+1)
	parts = append(parts, Version)
	for _, m := range mechanisms {
		parts = append(parts, m.String())
	}
	return strings.Join(parts, " ")
}

// NormalizeDomain lowercases a domain, strips the trailing dot and converts
// internationalized names to their ASCII (punycode) form.
func NormalizeDomain(domain string) string {
	domain = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(domain)), ".")
	if ascii, err := idna.Lookup.ToASCII(domain); err == nil {
		return ascii
	}
	return domain
}

// Fetch resolves a domain's TXT records and parses its SPF record. A domain
// that resolves but publishes no SPF record yields an invalid Record rather
// than an error, so callers can still render the absence to users.
func Fetch(ctx context.Context, r resolver.Resolver, domain string) (*Record, error) {
	domain = NormalizeDomain(domain)
	if domain == "" {
		return nil, fmt.Errorf("spf: empty domain")
	}

	txts, err := r.LookupTXT(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("spf: resolve TXT for %s: %w", domain, err)
	}

	raw, ok := Find(txts)
	if !ok {
		return &Record{
			Domain: domain,
			Errors: []string{"domain publishes no SPF record"},
		}, nil
	}

	return Parse(domain, raw), nil
}
