package ssrf

import (
	"net/url"
	"regexp"
	"strings"
)

// localhostAliases are hostname strings rejected outright.
var localhostAliases = map[string]bool{
	"localhost":             true,
	"localhost.localdomain": true,
}

// privateHostPatterns is the fixed deny-list applied to the literal hostname
// string. Matching is textual, not resolution-based; see the package comment.
var privateHostPatterns = []*regexp.Regexp{
	// IPv4 private, loopback, link-local, and "this network" ranges
	regexp.MustCompile(`^10\.\d{1,3}\.\d{1,3}\.\d{1,3}$`),
	regexp.MustCompile(`^172\.(1[6-9]|2\d|3[01])\.\d{1,3}\.\d{1,3}$`),
	regexp.MustCompile(`^192\.168\.\d{1,3}\.\d{1,3}$`),
	regexp.MustCompile(`^169\.254\.\d{1,3}\.\d{1,3}$`),
	regexp.MustCompile(`^127\.\d{1,3}\.\d{1,3}\.\d{1,3}$`),
	regexp.MustCompile(`^0\.\d{1,3}\.\d{1,3}\.\d{1,3}$`),
	// IPv6 loopback, unspecified, link-local, unique-local
	regexp.MustCompile(`^::1$`),
	regexp.MustCompile(`^::$`),
	regexp.MustCompile(`^fe80:`),
	regexp.MustCompile(`^f[cd][0-9a-f]{2}:`),
}

// ValidateURL parses raw as an absolute URL and checks it against the egress
// policy: http or https scheme only, and a hostname that is neither a
// localhost alias nor a textual match for any private, loopback, or
// link-local address pattern. It returns the parsed URL on success and an
// *Error describing the first failed check otherwise.
func ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, newInvalidURLError(raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, newInvalidURLError(raw, nil)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, newDisallowedSchemeError(u.Scheme)
	}

	hostname := strings.ToLower(u.Hostname())
	if hostname == "" {
		return nil, newInvalidURLError(raw, nil)
	}

	if localhostAliases[hostname] {
		return nil, newPrivateAddressError(hostname)
	}

	for _, pattern := range privateHostPatterns {
		if pattern.MatchString(hostname) {
			return nil, newPrivateAddressError(hostname)
		}
	}

	return u, nil
}

// IsURLSafe reports whether raw passes ValidateURL, swallowing the error.
func IsURLSafe(raw string) bool {
	_, err := ValidateURL(raw)
	return err == nil
}
