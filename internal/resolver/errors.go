package resolver

import "errors"

// Typed resolution failures. Callers branch on these to distinguish a domain
// that does not exist from a resolver that is unhealthy.
var (
	ErrNXDomain = errors.New("resolver: no such domain")
	ErrServFail = errors.New("resolver: server failure")
	ErrTimeout  = errors.New("resolver: query timed out")
	ErrRefused  = errors.New("resolver: query refused")
)
