package spf

import "strings"

type MechanismType string

const (
	TypeAll      MechanismType = "all"
	TypeA        MechanismType = "a"
	TypeMX       MechanismType = "mx"
	TypePtr      MechanismType = "ptr"
	TypeIP4      MechanismType = "ip4"
	TypeIP6      MechanismType = "ip6"
	TypeInclude  MechanismType = "include"
	TypeExists   MechanismType = "exists"
	TypeRedirect MechanismType = "redirect"
	TypeUnknown  MechanismType = "unknown"
)

// Mechanism is one directive of an SPF record. It is immutable once parsed.
type Mechanism struct {
	Type      MechanismType
	Qualifier string // "+", "-", "~" or "?"; "+" when absent in the source
	Value     string // domain, IP or CIDR, depending on Type
	Prefix    string // CIDR prefix length for a/<n> and mx/<n> forms
	Raw       string // original token text
}

// lookupTypes are the mechanism types that cost a DNS query during SPF
// evaluation. mx and ptr are counted as one lookup per directive, which
// undercounts the per-resolved-record cost of RFC 7208 but keeps the number
// comparable across records. That approximation is deliberate.
var lookupTypes = map[MechanismType]bool{
	TypeInclude: true,
	TypeA:       true,
	TypeMX:      true,
	TypePtr:     true,
	TypeExists:  true,
}

func (m Mechanism) CostsLookup() bool {
	return lookupTypes[m.Type]
}

// String renders the mechanism in SPF TXT form. The default "+" qualifier is
// omitted everywhere except on all, where it is conventional to spell it out.
func (m Mechanism) String() string {
	var b strings.Builder

	if m.Qualifier != "" && m.Qualifier != "+" {
		b.WriteString(m.Qualifier)
	}

	switch m.Type {
	case TypeRedirect:
		b.WriteString("redirect=")
		b.WriteString(m.Value)
	case TypeAll:
		b.WriteString("all")
	case TypeA, TypeMX:
		b.WriteString(string(m.Type))
		if m.Value != "" {
			b.WriteString(":")
			b.WriteString(m.Value)
		}
		if m.Prefix != "" {
			b.WriteString("/")
			b.WriteString(m.Prefix)
		}
	case TypePtr:
		b.WriteString("ptr")
		if m.Value != "" {
			b.WriteString(":")
			b.WriteString(m.Value)
		}
	case TypeUnknown:
		return m.Raw
	default: // ip4, ip6, include, exists
		b.WriteString(string(m.Type))
		b.WriteString(":")
		b.WriteString(m.Value)
	}

	return b.String()
}
