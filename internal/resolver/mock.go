package resolver

import (
	"context"
	"fmt"
	"net"
	"slices"
	"sync"
)

// MockResolver is a Resolver used for testing. Record maps are keyed by bare
// domain name (no trailing dot).
type MockResolver struct {
	mu  sync.Mutex
	TXT map[string][]string
	A   map[string][]string
	MX  map[string][]*net.MX

	// Fail lists lookups that return ErrServFail, formatted "type name",
	// e.g. "txt example.com" or "ip spf.example.net".
	Fail []string

	// Timeout lists lookups that return ErrTimeout, same format as Fail.
	Timeout []string

	calls map[string]int
}

var _ Resolver = (*MockResolver)(nil)

func (r *MockResolver) record(kind, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	key := kind + " " + name
	r.calls[key]++

	if slices.Contains(r.Timeout, key) {
		return fmt.Errorf("%w: %s", ErrTimeout, name)
	}
	if slices.Contains(r.Fail, key) {
		return fmt.Errorf("%w: %s", ErrServFail, name)
	}
	return nil
}

// Calls reports how often a lookup of the given kind and name was made.
func (r *MockResolver) Calls(kind, name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[kind+" "+name]
}

func (r *MockResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.record("txt", name); err != nil {
		return nil, err
	}

	records, ok := r.TXT[name]
	if !ok || len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNXDomain, name)
	}
	return slices.Clone(records), nil
}

func (r *MockResolver) LookupIP(ctx context.Context, name string) ([]net.IP, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.record("ip", name); err != nil {
		return nil, err
	}

	raw, ok := r.A[name]
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNXDomain, name)
	}

	ips := make([]net.IP, 0, len(raw))
	for _, s := range raw {
		if ip := net.ParseIP(s); ip != nil {
			ips = append(ips, ip)
		}
	}
	return ips, nil
}

func (r *MockResolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.record("mx", name); err != nil {
		return nil, err
	}

	records, ok := r.MX[name]
	if !ok || len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNXDomain, name)
	}
	return slices.Clone(records), nil
}
