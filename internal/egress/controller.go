// Package egress decides whether the orchestrator may open an outbound
// connection to a given host (spec §4.3).
package egress

import (
	"fmt"
	"net/url"
	"strings"
)

// DeniedError is returned when a host does not match the allowlist
// (spec §7: EgressDenied).
type DeniedError struct {
	Host string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("egress denied for host %q", e.Host)
}

// IsAllowed reports whether host matches the allowlist: exact match or
// parent-domain suffix match, case-insensitively (spec §4.3, §8).
func IsAllowed(host string, allowlist []string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, entry := range allowlist {
		e := strings.ToLower(strings.TrimSuffix(entry, "."))
		if e == "" {
			continue
		}
		if host == e || strings.HasSuffix(host, "."+e) {
			return true
		}
	}
	return false
}

// ValidateProbeURL parses rawURL, extracts its hostname, and checks it
// against allowlist. It never panics or propagates a parse error; an
// unparseable URL is simply not allowed (spec §4.3).
func ValidateProbeURL(rawURL string, allowlist []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "" {
		return false
	}
	return IsAllowed(host, allowlist)
}

// Check returns nil if host is allowed, else a *DeniedError suitable
// for surfacing at the HTTP layer as 502/403 (spec §7).
func Check(host string, allowlist []string) error {
	if IsAllowed(host, allowlist) {
		return nil
	}
	return &DeniedError{Host: host}
}
