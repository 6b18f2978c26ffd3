package spf

import (
	"fmt"
	"net"
	"strings"
)

const (
	Version = "v=spf1"

	// MaxLookups is the RFC 7208 budget of DNS-lookup-costing mechanisms.
	MaxLookups = 10

	// Practical DNS TXT limits. A single character-string caps at 255 bytes;
	// past roughly 450 bytes a record needs splitting across strings and
	// starts breaking lenient resolvers.
	maxTXTStringLength = 255
	maxRecordLength    = 450
)

// Record is the parsed representation of one domain's SPF TXT value.
// Validation failures populate Errors and clear Valid, but the mechanism list
// is always best-effort so that broken records can still be analyzed.
type Record struct {
	Raw          string      `json:"raw"`
	Domain       string      `json:"domain"`
	Mechanisms   []Mechanism `json:"mechanisms"`
	TotalLookups int         `json:"totalLookups"`
	Valid        bool        `json:"valid"`
	Errors       []string    `json:"errors,omitempty"`

	// LengthIssues holds TXT length limit violations, kept apart from the
	// structural Errors so callers that publish oversize records split
	// across multiple strings can treat them as advisory.
	LengthIssues []string `json:"lengthIssues,omitempty"`
}

// Parse turns a raw SPF TXT string into a Record. Structurally unparseable
// tokens are kept as unknown mechanisms and reported as validation errors;
// Parse itself never fails.
func Parse(domain, raw string) *Record {
	rec := &Record{
		Raw:    strings.TrimSpace(raw),
		Domain: domain,
	}

	tokens := strings.Fields(rec.Raw)
	if len(tokens) == 0 {
		rec.Errors = append(rec.Errors, "record is empty")
		return rec
	}

	if !strings.EqualFold(tokens[0], Version) {
		rec.Errors = append(rec.Errors, fmt.Sprintf("record must start with %q", Version))
	} else {
		tokens = tokens[1:]
	}

	allCount := 0
	for _, token := range tokens {
		mech := parseMechanism(token)
		rec.Mechanisms = append(rec.Mechanisms, mech)

		switch {
		case mech.Type == TypeUnknown:
			rec.Errors = append(rec.Errors, fmt.Sprintf("unknown mechanism %q", token))
		case mech.Type == TypeAll:
			allCount++
		case mech.Type == TypeIP4:
			if !validIP(mech.Value, false) {
				rec.Errors = append(rec.Errors, fmt.Sprintf("invalid ip4 value %q", mech.Value))
			}
		case mech.Type == TypeIP6:
			if !validIP(mech.Value, true) {
				rec.Errors = append(rec.Errors, fmt.Sprintf("invalid ip6 value %q", mech.Value))
			}
		case (mech.Type == TypeInclude || mech.Type == TypeExists || mech.Type == TypeRedirect) && mech.Value == "":
			rec.Errors = append(rec.Errors, fmt.Sprintf("mechanism %q requires a domain", token))
		}

		if mech.CostsLookup() {
			rec.TotalLookups++
		}
	}

	if allCount > 1 {
		rec.Errors = append(rec.Errors, "record contains multiple all mechanisms")
	}
	if rec.TotalLookups > MaxLookups {
		rec.Errors = append(rec.Errors, fmt.Sprintf("record requires %d DNS lookups, exceeding the limit of %d", rec.TotalLookups, MaxLookups))
	}
	if len(rec.Raw) > maxTXTStringLength {
		rec.LengthIssues = append(rec.LengthIssues, fmt.Sprintf("record is %d characters, exceeding the 255 character TXT string limit", len(rec.Raw)))
	}
	if len(rec.Raw) > maxRecordLength {
		rec.LengthIssues = append(rec.LengthIssues, fmt.Sprintf("record is %d characters, exceeding the practical %d character limit", len(rec.Raw), maxRecordLength))
	}

	rec.Valid = len(rec.Errors) == 0 && len(rec.LengthIssues) == 0
	return rec
}

func parseMechanism(token string) Mechanism {
	mech := Mechanism{Qualifier: "+", Raw: token}

	body := token
	switch {
	case strings.HasPrefix(body, "+"), strings.HasPrefix(body, "-"),
		strings.HasPrefix(body, "~"), strings.HasPrefix(body, "?"):
		mech.Qualifier = body[:1]
		body = body[1:]
	}

	lower := strings.ToLower(body)

	switch {
	case lower == "all":
		mech.Type = TypeAll
	case lower == "ptr":
		mech.Type = TypePtr
	case strings.HasPrefix(lower, "ptr:"):
		mech.Type = TypePtr
		mech.Value = body[len("ptr:"):]
	case strings.HasPrefix(lower, "include:"):
		mech.Type = TypeInclude
		mech.Value = body[len("include:"):]
	case strings.HasPrefix(lower, "exists:"):
		mech.Type = TypeExists
		mech.Value = body[len("exists:"):]
	case strings.HasPrefix(lower, "redirect="):
		mech.Type = TypeRedirect
		mech.Value = body[len("redirect="):]
	case strings.HasPrefix(lower, "ip4:"):
		mech.Type = TypeIP4
		mech.Value = body[len("ip4:"):]
	case strings.HasPrefix(lower, "ip6:"):
		mech.Type = TypeIP6
		mech.Value = body[len("ip6:"):]
	case lower == "a" || strings.HasPrefix(lower, "a:") || strings.HasPrefix(lower, "a/"):
		mech.Type = TypeA
		parseDomainSpec(body[1:], &mech)
	case lower == "mx" || strings.HasPrefix(lower, "mx:") || strings.HasPrefix(lower, "mx/"):
		mech.Type = TypeMX
		parseDomainSpec(body[2:], &mech)
	default:
		mech.Type = TypeUnknown
	}

	return mech
}

// parseDomainSpec handles the [":" domain]["/" prefix] tail of a and mx.
func parseDomainSpec(rest string, mech *Mechanism) {
	if rest == "" {
		return
	}

	if strings.HasPrefix(rest, ":") {
		rest = rest[1:]
		if slash := strings.Index(rest, "/"); slash >= 0 {
			mech.Value = rest[:slash]
			mech.Prefix = rest[slash+1:]
		} else {
			mech.Value = rest
		}
		return
	}

	if strings.HasPrefix(rest, "/") {
		mech.Prefix = rest[1:]
	}
}

func validIP(value string, wantV6 bool) bool {
	addr := value
	if strings.Contains(value, "/") {
		ip, _, err := net.ParseCIDR(value)
		if err != nil {
			return false
		}
		addr = ip.String()
	}

	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}

	isV4 := ip.To4() != nil
	return isV4 != wantV6
}

// IsSPF reports whether a TXT value is an SPF record.
func IsSPF(txt string) bool {
	return strings.HasPrefix(strings.TrimSpace(strings.ToLower(txt)), Version)
}

// Find returns the first SPF record among a domain's TXT values.
func Find(txts []string) (string, bool) {
	for _, txt := range txts {
		if IsSPF(txt) {
			return txt, true
		}
	}
	return "", false
}
