package flatten

const (
	// DefaultMaxDepth bounds recursive include resolution. Ten matches the
	// SPF lookup budget; a legitimate chain deeper than that is already
	// unevaluable by receivers.
	DefaultMaxDepth = 10

	// DefaultMinCIDRGroupSize is the consolidation slack threshold: a /24
	// (or /64 for IPv6) is emitted only when at least this many resolved
	// addresses fall inside it. Below it, the overshoot of a whole block
	// outweighs the mechanism saved.
	DefaultMinCIDRGroupSize = 8

	DefaultMaxIPsPerRecord = 40
)

// Options controls one flattening run.
type Options struct {
	// ConsolidateCIDR groups resolved addresses into /24 (IPv4) or /64
	// (IPv6) blocks when enough of them share the prefix. Heuristic, not a
	// covering-set computation.
	ConsolidateCIDR bool `json:"consolidateCIDR"`

	// PreserveOrder keeps untouched mechanisms in their original position
	// and inserts synthesized IP mechanisms where the include used to be.
	// When unset, IP mechanisms are appended ahead of the trailing all.
	PreserveOrder bool `json:"preserveOrder"`

	// IncludeSubdomains resolves bare a/mx mechanisms inside nested include
	// records against the include's own domain. Disabling it skips those
	// mechanisms with a warning.
	IncludeSubdomains bool `json:"includeSubdomains"`

	// MaxIPsPerRecord caps the synthesized mechanism count. Zero applies
	// DefaultMaxIPsPerRecord.
	MaxIPsPerRecord int `json:"maxIPsPerRecord"`

	// MinCIDRGroupSize overrides the consolidation slack threshold. Zero
	// applies DefaultMinCIDRGroupSize.
	MinCIDRGroupSize int `json:"minCIDRGroupSize"`

	// MaxDepth overrides the recursion guard. Zero applies DefaultMaxDepth.
	MaxDepth int `json:"maxDepth"`

	// SplitOversize selects the caller policy for records that exceed the
	// TXT or mechanism-count limits: note a multi-string split in the
	// implementation notes instead of failing the run.
	SplitOversize bool `json:"splitOversize"`
}

func (o Options) maxDepth() int {
	if o.MaxDepth > 0 {
		return o.MaxDepth
	}
	return DefaultMaxDepth
}

func (o Options) minGroupSize() int {
	if o.MinCIDRGroupSize > 0 {
		return o.MinCIDRGroupSize
	}
	return DefaultMinCIDRGroupSize
}

func (o Options) maxIPs() int {
	if o.MaxIPsPerRecord > 0 {
		return o.MaxIPsPerRecord
	}
	return DefaultMaxIPsPerRecord
}

// DefaultOptions are used for scheduler-driven re-flattening, where nobody is
// around to tune the run.
func DefaultOptions() Options {
	return Options{
		ConsolidateCIDR:   true,
		PreserveOrder:     true,
		IncludeSubdomains: true,
	}
}
