package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	mdns "github.com/miekg/dns"
)

// Resolver is the DNS surface the SPF core depends on. Implementations must
// honour context cancellation and surface the typed errors from errors.go.
type Resolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
	LookupIP(ctx context.Context, name string) ([]net.IP, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// Config controls the DNS client behaviour.
type Config struct {
	// Nameservers to query (host:port). When empty, servers from
	// /etc/resolv.conf are used, falling back to public resolvers.
	Nameservers []string

	// Timeout for a single DNS query. Defaults to 5 seconds. Queries are not
	// retried beyond Retries within one lookup.
	Timeout time.Duration

	// Retries per nameserver for failed queries. Defaults to 1.
	Retries int
}

// DNSResolver resolves records through github.com/miekg/dns.
type DNSResolver struct {
	config Config
	client *mdns.Client
}

func New(config Config) *DNSResolver {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.Retries <= 0 {
		config.Retries = 1
	}
	if len(config.Nameservers) == 0 {
		config.Nameservers = systemNameservers()
	}

	return &DNSResolver{
		config: config,
		client: &mdns.Client{Timeout: config.Timeout},
	}
}

func systemNameservers() []string {
	config, err := mdns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(config.Servers) == 0 {
		return []string{"8.8.8.8:53", "1.1.1.1:53"}
	}

	servers := make([]string, 0, len(config.Servers))
	for _, s := range config.Servers {
		if !strings.Contains(s, ":") {
			s = s + ":53"
		}
		servers = append(servers, s)
	}
	return servers
}

func ensureAbsolute(name string) string {
	if !strings.HasSuffix(name, ".") {
		return name + "."
	}
	return name
}

func (r *DNSResolver) query(ctx context.Context, name string, qtype uint16) (*mdns.Msg, error) {
	m := new(mdns.Msg)
	m.SetQuestion(ensureAbsolute(name), qtype)
	m.RecursionDesired = true

	var lastErr error

	for i := 0; i < r.config.Retries; i++ {
		for _, server := range r.config.Nameservers {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			resp, _, err := r.client.ExchangeContext(ctx, m, server)
			if err != nil {
				if isTimeout(err) {
					lastErr = fmt.Errorf("%w: %s", ErrTimeout, name)
				} else {
					lastErr = fmt.Errorf("dns query for %s failed: %w", name, err)
				}
				continue
			}

			switch resp.Rcode {
			case mdns.RcodeSuccess:
				return resp, nil
			case mdns.RcodeNameError:
				return nil, fmt.Errorf("%w: %s", ErrNXDomain, name)
			case mdns.RcodeServerFailure:
				lastErr = fmt.Errorf("%w: %s", ErrServFail, name)
			case mdns.RcodeRefused:
				lastErr = fmt.Errorf("%w: %s", ErrRefused, name)
			default:
				lastErr = fmt.Errorf("dns: unexpected rcode %d for %s", resp.Rcode, name)
			}
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %s", ErrServFail, name)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// LookupTXT returns the TXT records for name. Multi-string records are joined
// per RFC 7208 section 3.3.
func (r *DNSResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	resp, err := r.query(ctx, name, mdns.TypeTXT)
	if err != nil {
		return nil, err
	}

	var records []string
	for _, rr := range resp.Answer {
		if txt, ok := rr.(*mdns.TXT); ok {
			records = append(records, strings.Join(txt.Txt, ""))
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNXDomain, name)
	}
	return records, nil
}

// LookupIP returns both A and AAAA records for name. A failure on one record
// type does not hide addresses found on the other.
func (r *DNSResolver) LookupIP(ctx context.Context, name string) ([]net.IP, error) {
	var ips []net.IP
	var lastErr error

	resp, err := r.query(ctx, name, mdns.TypeA)
	if err != nil && !errors.Is(err, ErrNXDomain) {
		lastErr = err
	} else if resp != nil {
		for _, rr := range resp.Answer {
			if a, ok := rr.(*mdns.A); ok {
				ips = append(ips, a.A)
			}
		}
	}

	resp, err = r.query(ctx, name, mdns.TypeAAAA)
	if err != nil && !errors.Is(err, ErrNXDomain) {
		if lastErr == nil {
			lastErr = err
		}
	} else if resp != nil {
		for _, rr := range resp.Answer {
			if aaaa, ok := rr.(*mdns.AAAA); ok {
				ips = append(ips, aaaa.AAAA)
			}
		}
	}

	if len(ips) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, fmt.Errorf("%w: %s", ErrNXDomain, name)
	}
	return ips, nil
}

// LookupMX returns the MX records for name.
func (r *DNSResolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	resp, err := r.query(ctx, name, mdns.TypeMX)
	if err != nil {
		return nil, err
	}

	var records []*net.MX
	for _, rr := range resp.Answer {
		if mx, ok := rr.(*mdns.MX); ok {
			records = append(records, &net.MX{Host: mx.Mx, Pref: mx.Preference})
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNXDomain, name)
	}
	return records, nil
}
