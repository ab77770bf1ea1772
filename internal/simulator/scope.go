package simulator

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// parseTarget accepts only absolute http(s) URLs with a host.
func parseTarget(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, &ValidationError{Field: "target url", Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &ValidationError{Field: "target url", Reason: fmt.Sprintf("scheme must be http or https, got %q", u.Scheme)}
	}
	if u.Host == "" {
		return nil, &ValidationError{Field: "target url", Reason: "missing host"}
	}
	return u, nil
}

// registrableDomain returns the eTLD+1 of host, or the host itself for IPs,
// single-label names and public suffixes.
func registrableDomain(host string) string {
	host = strings.ToLower(host)
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}

// inScope reports whether candidate may be followed from a run started at target.
func inScope(target *url.URL, candidate string, scope NavigateScope) bool {
	u, err := url.Parse(candidate)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	switch scope {
	case ScopeAny:
		return true
	case ScopeSameHost:
		return strings.EqualFold(u.Hostname(), target.Hostname())
	default:
		return registrableDomain(u.Hostname()) == registrableDomain(target.Hostname())
	}
}

// eligibleLinks filters links to those in scope, dropping fragments-only
// variations of the current page and duplicates.
func eligibleLinks(target *url.URL, current string, links []string, scope NavigateScope) []string {
	seen := make(map[string]struct{}, len(links))
	currentBase := stripFragment(current)
	var out []string
	for _, l := range links {
		if !inScope(target, l, scope) {
			continue
		}
		base := stripFragment(l)
		if base == currentBase {
			continue
		}
		if _, dup := seen[base]; dup {
			continue
		}
		seen[base] = struct{}{}
		out = append(out, l)
	}
	return out
}

func stripFragment(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		return raw[:i]
	}
	return raw
}
