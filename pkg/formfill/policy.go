package formfill

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// TargetPolicy decides which hosts the engine may navigate to. Patterns are
// globs over host names with '.' as the separator, so "*.lever.co" matches
// "jobs.lever.co" but not "a.b.lever.co"; use "**.lever.co" for any depth.
type TargetPolicy struct {
	allowed []glob.Glob
	denied  []glob.Glob
}

// NewTargetPolicy compiles allow and deny patterns. Denied patterns take
// precedence; with no allowed patterns every host not denied is allowed.
func NewTargetPolicy(allowed, denied []string) (*TargetPolicy, error) {
	p := &TargetPolicy{}

	for _, pattern := range allowed {
		g, err := glob.Compile(strings.ToLower(pattern), '.')
		if err != nil {
			return nil, fmt.Errorf("invalid allowed host pattern '%s': %w", pattern, err)
		}
		p.allowed = append(p.allowed, g)
	}

	for _, pattern := range denied {
		g, err := glob.Compile(strings.ToLower(pattern), '.')
		if err != nil {
			return nil, fmt.Errorf("invalid denied host pattern '%s': %w", pattern, err)
		}
		p.denied = append(p.denied, g)
	}

	return p, nil
}

// Allows reports whether host may be visited. A nil policy allows everything.
func (p *TargetPolicy) Allows(host string) bool {
	if p == nil {
		return true
	}
	host = strings.ToLower(host)

	for _, g := range p.denied {
		if g.Match(host) {
			return false
		}
	}

	if len(p.allowed) == 0 {
		return true
	}

	for _, g := range p.allowed {
		if g.Match(host) {
			return true
		}
	}
	return false
}

// parseTarget checks that raw is an absolute http(s) URL.
func parseTarget(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("URL %q has no host", raw)
	}
	return u, nil
}
