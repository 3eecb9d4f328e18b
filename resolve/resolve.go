// Package resolve wraps miekg/dns to answer "up to two resolved IPv4
// addresses for this host" against a small, configured set of resolvers.
// Like v2/ipam.Manager it is a single focused job behind a mutex: here the
// guarded state is a cached *dns.Client rather than a lease table.
package resolve

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/miekg/dns"
)

var wellKnown = map[string][]string{
	"cloudflare": {"1.1.1.1:53", "1.0.0.1:53"},
	"google":     {"8.8.8.8:53", "8.8.4.4:53"},
	"quad9":      {"9.9.9.9:53", "149.112.112.112:53"},
}

// Resolver answers A-record lookups against the servers named by a
// client.dnsServer config value: one of the well-known names, "system"
// (read from /etc/resolv.conf), or a comma-separated list of addresses.
type Resolver struct {
	mu      sync.Mutex
	client  *dns.Client
	servers []string
}

// New parses spec per client.dnsServer's documented forms.
func New(spec string) (*Resolver, error) {
	servers, err := serversFor(spec)
	if err != nil {
		return nil, err
	}
	return &Resolver{client: new(dns.Client), servers: servers}, nil
}

func serversFor(spec string) ([]string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || spec == "system" {
		cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil || cfg == nil || len(cfg.Servers) == 0 {
			return []string{"1.1.1.1:53"}, nil
		}
		out := make([]string, 0, len(cfg.Servers))
		for _, s := range cfg.Servers {
			out = append(out, net.JoinHostPort(s, cfg.Port))
		}
		return out, nil
	}
	if known, ok := wellKnown[spec]; ok {
		return known, nil
	}
	var out []string
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(part); err != nil {
			part = net.JoinHostPort(part, "53")
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("resolve: no usable servers in %q", spec)
	}
	return out, nil
}

// ResolveIPv4 returns up to two IPv4 addresses for host, querying each
// configured server in order and returning the first successful answer.
func (r *Resolver) ResolveIPv4(host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil && ip.To4() != nil {
		return []net.IP{ip}, nil
	}

	r.mu.Lock()
	client := r.client
	servers := r.servers
	r.mu.Unlock()

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeA)

	var lastErr error
	for _, server := range servers {
		resp, _, err := client.Exchange(m, server)
		if err != nil {
			lastErr = err
			continue
		}
		var ips []net.IP
		for _, ans := range resp.Answer {
			if a, ok := ans.(*dns.A); ok {
				ips = append(ips, a.A)
				if len(ips) == 2 {
					break
				}
			}
		}
		if len(ips) > 0 {
			return ips, nil
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("resolve: %s: %w", host, lastErr)
	}
	return nil, fmt.Errorf("resolve: %s: no A records", host)
}
