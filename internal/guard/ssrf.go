package guard

import (
	"context"
	"net"
	"net/url"
	"strings"

	sharedErrors "github.com/khanhnv2901/siteaudit/internal/shared/errors"
)

// Guard validates audit targets before any network fetch is attempted.
// It blocks URLs whose host resolves to private, loopback, or link-local
// address space so the service can never be used to probe internal
// infrastructure (SSRF).
type Guard struct {
	resolver *net.Resolver
}

// New returns a Guard backed by the default resolver.
func New() *Guard {
	return &Guard{resolver: &net.Resolver{PreferGo: true}}
}

// CheckURL validates the target URL. It re-resolves the host on every
// call rather than caching answers, otherwise a DNS rebind between the
// check and the fetch could smuggle a private address past the guard.
//
// Returns ErrInvalidURL for unparseable URLs or unsupported schemes and
// ErrBlockedTarget when any resolved address falls in a blocked range.
func (g *Guard) CheckURL(ctx context.Context, rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return sharedErrors.ErrEmptyURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return sharedErrors.ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return sharedErrors.ErrInvalidURL
	}

	host := u.Hostname()
	if host == "" {
		return sharedErrors.ErrInvalidURL
	}

	// IP literals are judged directly, no lookup needed.
	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return sharedErrors.ErrBlockedTarget
		}
		return nil
	}

	addrs, err := g.resolver.LookupIPAddr(ctx, host)
	if err != nil || len(addrs) == 0 {
		// A host we cannot resolve is a host we cannot vouch for.
		return sharedErrors.ErrBlockedTarget
	}

	for _, addr := range addrs {
		if isBlockedIP(addr.IP) {
			return sharedErrors.ErrBlockedTarget
		}
	}

	return nil
}

// blockedCIDRs covers RFC 1918 private ranges, loopback, link-local, and
// their IPv6 equivalents (unique-local fc00::/7 and link-local fe80::/10).
var blockedCIDRs = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

func isBlockedIP(ip net.IP) bool {
	if ip.IsUnspecified() {
		return true
	}
	for _, cidr := range blockedCIDRs {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

func mustParseCIDRs(specs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(specs))
	for _, spec := range specs {
		_, n, err := net.ParseCIDR(spec)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}
