package safety

import (
	"context"
	"net/url"
	"strings"
	"time"

	wildcard "github.com/IGLOU-EU/go-wildcard/v2"
	"github.com/rs/dnscache"
)

// DefaultAllowedHosts is the local-only default: a
// transport that hasn't been given an explicit allow-list may only ever
// reach the loopback interface.
var DefaultAllowedHosts = []string{"localhost", "127.0.0.1", "::1"}

// HostAllowList gates outbound transport targets against a set of
// wildcard-capable host patterns. Patterns are matched
// with github.com/IGLOU-EU/go-wildcard, so "*.internal.example.com" is a
// valid entry. A resolver cache avoids a DNS round trip on every check.
type HostAllowList struct {
	patterns []string
	resolver *dnscache.Resolver
	stop     chan struct{}
}

// NewHostAllowList builds an allow-list from patterns. An empty patterns
// list falls back to DefaultAllowedHosts. Call Close when done with it to
// stop the background resolver-refresh goroutine.
func NewHostAllowList(patterns []string) *HostAllowList {
	if len(patterns) == 0 {
		patterns = DefaultAllowedHosts
	}
	h := &HostAllowList{
		patterns: patterns,
		resolver: &dnscache.Resolver{},
		stop:     make(chan struct{}),
	}
	go h.refreshLoop()
	return h
}

// Close stops the background resolver-refresh goroutine. Safe to call more
// than once.
func (h *HostAllowList) Close() {
	select {
	case <-h.stop:
	default:
		close(h.stop)
	}
}

func (h *HostAllowList) refreshLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.resolver.Refresh(true)
		case <-h.stop:
			return
		}
	}
}

// Allowed reports whether host matches any configured pattern.
func (h *HostAllowList) Allowed(host string) bool {
	host = strings.ToLower(host)
	for _, pat := range h.patterns {
		if wildcard.Match(strings.ToLower(pat), host) {
			return true
		}
	}
	return false
}

// CheckURL extracts the hostname from rawURL and checks it, plus resolves
// it through the cache so the same lookup during the actual dial is
// cheap. Used both for the initial target and for re-checking redirect
// Locations.
func (h *HostAllowList) CheckURL(rawURL string) (allowed bool, host string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, "", err
	}
	host = u.Hostname()
	if !h.Allowed(host) {
		return false, host, nil
	}
	// Warm the resolver cache; failure to resolve doesn't change the
	// allow-list verdict, only the dialer's latency.
	_, _ = h.resolver.LookupHost(context.Background(), host)
	return true, host, nil
}

// SameOrigin reports whether candidate shares a host with original, used
// to decide whether a redirect needs a fresh allow-list check at all:
// same-origin redirects are implicitly fine, cross-origin ones must pass
// Allowed again.
func SameOrigin(original, candidate string) bool {
	a, errA := url.Parse(original)
	b, errB := url.Parse(candidate)
	if errA != nil || errB != nil {
		return false
	}
	return strings.EqualFold(a.Hostname(), b.Hostname())
}
