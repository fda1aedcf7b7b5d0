// Package urlnorm validates and canonicalizes diagnosis target URLs.
// The normalized form is the identity key for cached diagnoses, so two
// semantically equivalent URLs must normalize to the same string.
package urlnorm

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

const maxURLLength = 2083

var blockedHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"0.0.0.0":   true,
	"::1":       true,
}

var schemePrefix = regexp.MustCompile(`^https?://`)

// ValidationError describes a rejected input URL. The pipeline never
// starts for a URL that fails validation.
type ValidationError struct {
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid url %q: %s", e.Input, e.Reason)
}

// Result carries the normalized URL plus non-fatal warnings.
type Result struct {
	Normalized string
	Warnings   []string
}

// Normalize validates inputURL and returns its canonical form:
// explicit lowercase scheme and host, no trailing-slash-only path,
// sorted query parameters, no fragment. Idempotent.
func Normalize(inputURL string) (Result, error) {
	var res Result

	trimmed := strings.TrimSpace(inputURL)
	if trimmed == "" {
		return res, &ValidationError{Input: inputURL, Reason: "empty"}
	}
	if len(trimmed) > maxURLLength {
		return res, &ValidationError{Input: inputURL, Reason: fmt.Sprintf("longer than %d characters", maxURLLength)}
	}

	// Bare domains get https completed.
	if !schemePrefix.MatchString(strings.ToLower(trimmed)) {
		if strings.Contains(trimmed, "://") {
			return res, &ValidationError{Input: inputURL, Reason: "unsupported protocol"}
		}
		trimmed = "https://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return res, &ValidationError{Input: inputURL, Reason: "malformed"}
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return res, &ValidationError{Input: inputURL, Reason: "unsupported protocol " + u.Scheme}
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return res, &ValidationError{Input: inputURL, Reason: "missing host"}
	}
	if blockedHosts[host] {
		return res, &ValidationError{Input: inputURL, Reason: "host is not allowed"}
	}
	if port := u.Port(); port != "" {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}

	if isIPAddress(host) {
		res.Warnings = append(res.Warnings, "target is an IP address; prefer a domain name")
	}
	if u.Scheme == "http" {
		res.Warnings = append(res.Warnings, "target is not served over https")
	}

	if u.Path == "/" {
		u.Path = ""
	}

	// url.Values.Encode writes keys in sorted order, which is exactly
	// the canonical parameter ordering the cache key needs.
	if u.RawQuery != "" {
		u.RawQuery = u.Query().Encode()
	}
	u.Fragment = ""

	res.Normalized = u.String()
	return res, nil
}

func isIPAddress(host string) bool {
	return net.ParseIP(host) != nil
}
