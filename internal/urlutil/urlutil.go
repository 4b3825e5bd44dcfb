package urlutil

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	duplicateSlashes = regexp.MustCompile(`([^:]/)/+`)
	schemePrefix     = regexp.MustCompile(`^(.+://)?`)
)

// ParseURL parses free-text input as an absolute URL. Duplicate slashes are
// collapsed and an empty path is normalized to "/" so that two spellings of
// the same server URL compare equal.
func ParseURL(raw string) (*url.URL, error) {
	cleaned := duplicateSlashes.ReplaceAllString(strings.TrimSpace(raw), "$1")
	u, err := url.Parse(cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("not an absolute URL: %q", raw)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

// IsValidURL reports whether the input is a well-formed http or https URL.
func IsValidURL(raw string) bool {
	u, err := ParseURL(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// IsValidURI reports whether the input carries a URI scheme of any kind,
// e.g. a typo'd "htpst://example.com".
func IsValidURI(raw string) bool {
	_, err := ParseURL(raw)
	return err == nil
}

// ForceHTTPS replaces any existing scheme prefix with https://, or prepends
// it when the input has none.
func ForceHTTPS(raw string) string {
	return schemePrefix.ReplaceAllString(raw, "https://")
}

// IsTypingProtocol reports whether the input is a strict prefix of "http://"
// or "https://", i.e. the user is still typing the protocol. Validation must
// not guess a completed URL in that case.
func IsTypingProtocol(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix("https://", lower) || strings.HasPrefix("http://", lower)
}

// FormattedPathName lowercases a URL path and guarantees a trailing slash.
func FormattedPathName(pathname string) string {
	p := strings.ToLower(pathname)
	if p == "" {
		return "/"
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// Origin returns scheme://host for a URL, the part that survives path
// rewriting when deep links are joined onto a server.
func Origin(u *url.URL) string {
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host)
}

// EqualIgnoringSubpath compares only the origins of two URLs.
func EqualIgnoringSubpath(a, b *url.URL, ignoreScheme bool) bool {
	if ignoreScheme {
		return strings.EqualFold(a.Host, b.Host)
	}
	return strings.EqualFold(Origin(a), Origin(b))
}

// CleanPath strips a server's mount path from an in-app path so that paths
// stay relative to the server root.
func CleanPath(basePathName, pathName string) string {
	if basePathName == "/" {
		return pathName
	}
	if strings.HasPrefix(pathName, basePathName) {
		return strings.TrimPrefix(pathName, basePathName)
	}
	return pathName
}

// StripTrailingSlash removes a single trailing slash, used when echoing a URL
// back to a user who is still typing.
func StripTrailingSlash(s string) string {
	return strings.TrimSuffix(s, "/")
}
