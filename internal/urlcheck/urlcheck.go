// Package urlcheck vets externally supplied URLs before the gateway makes any
// network call on their behalf. It is the SSRF guard for image and webhook
// inputs: only public http(s) hosts pass, optionally narrowed further by an
// explicit allow-list.
package urlcheck

import (
	"net/netip"
	"net/url"
	"strings"
)

// DefaultMaxLength caps URL input length when a validator does not override it.
const DefaultMaxLength = 2048

// Reason identifies why a URL was rejected.
type Reason string

const (
	ReasonInvalidLength      Reason = "URL_INVALID_LENGTH"
	ReasonMalformed          Reason = "URL_MALFORMED"
	ReasonProtocolNotAllowed Reason = "URL_PROTOCOL_NOT_ALLOWED"
	ReasonPrivateHost        Reason = "URL_PRIVATE_HOST"
	ReasonHostNotWhitelisted Reason = "URL_HOST_NOT_WHITELISTED"
)

// Result carries the outcome of a validation. Parsed is set only when Valid.
type Result struct {
	Valid  bool
	Parsed *url.URL
	Reason Reason
}

// Validator holds the validation policy. The zero value applies the default
// max length and no host allow-list.
type Validator struct {
	MaxLength    int
	AllowedHosts []string
}

var privateHostnames = map[string]struct{}{
	"localhost": {},
	"127.0.0.1": {},
	"::1":       {},
}

// Validate checks a raw URL against the policy. Checks run in order and the
// first failure wins. Pure: no I/O, no side effects.
func (v Validator) Validate(raw string) Result {
	maxLength := v.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	if raw == "" || len(raw) > maxLength {
		return Result{Reason: ReasonInvalidLength}
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return Result{Reason: ReasonMalformed}
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Result{Reason: ReasonProtocolNotAllowed}
	}

	hostname := strings.ToLower(parsed.Hostname())

	if isPrivateHost(hostname) {
		return Result{Reason: ReasonPrivateHost}
	}

	if len(v.AllowedHosts) > 0 && !containsHost(v.AllowedHosts, hostname) {
		return Result{Reason: ReasonHostNotWhitelisted}
	}

	return Result{Valid: true, Parsed: parsed}
}

func isPrivateHost(hostname string) bool {
	if _, ok := privateHostnames[hostname]; ok {
		return true
	}
	addr, err := netip.ParseAddr(hostname)
	if err != nil {
		return false
	}
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast()
}

func containsHost(hosts []string, hostname string) bool {
	for _, host := range hosts {
		if host == hostname {
			return true
		}
	}
	return false
}
