package analyzer

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var schemePrefix = regexp.MustCompile(`^[a-zA-Z]+://`)

// SanitizeURL validates and canonicalizes a user-supplied string into a safe
// absolute URL. It prepends https:// when no scheme is present, rejects any
// scheme other than http/https, upgrades http to https, strips the fragment
// and removes utm_* tracking parameters. It performs no network I/O.
func SanitizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if !schemePrefix.MatchString(s) {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w (%q)", ErrInvalidURL, raw)
	}

	// SSRF boundary: never let file:, gopher:, data: and friends through.
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w (got %q)", ErrUnsupportedProtocol, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w (missing host)", ErrInvalidURL)
	}

	u.Scheme = "https"
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	u.RawQuery = stripTrackingParams(u.RawQuery)

	return u.String(), nil
}

// stripTrackingParams removes every query parameter whose name starts with
// utm_ (case-insensitive), keeping the remaining parameters in their original
// order and encoding.
func stripTrackingParams(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	pairs := strings.Split(rawQuery, "&")
	kept := pairs[:0]
	for _, pair := range pairs {
		key := pair
		if i := strings.Index(pair, "="); i >= 0 {
			key = pair[:i]
		}
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if strings.HasPrefix(strings.ToLower(key), "utm_") {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

// NormalizeURL strips the fragment from a URL for identity comparison. Unlike
// SanitizeURL it does not force https or touch query parameters, since it is
// also applied to third-party-declared values (canonical tags) verbatim. On a
// parse failure it falls back to the trimmed input instead of failing; this
// path gates nothing, it only feeds informational comparison.
func NormalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	u, err := url.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	u.Fragment = ""
	return u.String()
}
