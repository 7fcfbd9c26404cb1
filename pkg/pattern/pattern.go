// Package pattern recognizes TikTok URLs and pulls the post reference out of them.
package pattern

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Service is the service name every match carries.
const Service = "tiktok"

var (
	// ErrUnsupportedURL is returned for URLs that are not TikTok post links.
	ErrUnsupportedURL = errors.New("unsupported url")

	postIDRegex    = regexp.MustCompile(`^\d+$`)
	shortLinkRegex = regexp.MustCompile(`^[A-Za-z0-9]+$`)

	// Path shapes on the main domain, matched against the slash-trimmed path.
	userPostRegex = regexp.MustCompile(`^@([^/]+)/(video|photo)/([^/]+)$`)
	legacyRegex   = regexp.MustCompile(`^v/([^/]+)\.html$`)
	shortPathRgx  = regexp.MustCompile(`^t/([^/]+)$`)
)

// IsPostID reports whether s has the shape of a numeric post identifier.
func IsPostID(s string) bool {
	return postIDRegex.MatchString(s)
}

// IsShortLink reports whether s has the shape of a short-link token.
func IsShortLink(s string) bool {
	return shortLinkRegex.MatchString(s)
}

// Match is the structured result of a recognized URL.
// Exactly one of PostID or ShortLink is set.
type Match struct {
	Service   string
	Host      string
	User      string
	PostID    string
	ShortLink string
}

// Extract parses rawURL and returns the post reference it encodes.
func Extract(rawURL string) (*Match, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	sub, ok := subdomain(host)
	if !ok {
		return nil, fmt.Errorf("%w: host %q", ErrUnsupportedURL, host)
	}
	path := strings.Trim(u.Path, "/")
	m := &Match{Service: Service, Host: host}

	switch sub {
	case "vt", "vm":
		if !IsShortLink(path) {
			return nil, fmt.Errorf("%w: short link %q", ErrUnsupportedURL, path)
		}
		m.ShortLink = path
		return m, nil
	case "", "www", "m":
	default:
		return nil, fmt.Errorf("%w: host %q", ErrUnsupportedURL, host)
	}

	if parts := userPostRegex.FindStringSubmatch(path); parts != nil {
		m.User = parts[1]
		m.PostID = parts[3]
	} else if parts := legacyRegex.FindStringSubmatch(path); parts != nil {
		m.PostID = parts[1]
	} else if parts := shortPathRgx.FindStringSubmatch(path); parts != nil {
		if !IsShortLink(parts[1]) {
			return nil, fmt.Errorf("%w: short link %q", ErrUnsupportedURL, parts[1])
		}
		m.ShortLink = parts[1]
		return m, nil
	} else {
		return nil, fmt.Errorf("%w: path %q", ErrUnsupportedURL, path)
	}

	if !IsPostID(m.PostID) {
		return nil, fmt.Errorf("%w: post id %q", ErrUnsupportedURL, m.PostID)
	}
	return m, nil
}

// subdomain returns the label in front of tiktok.com, or "" for the bare domain.
func subdomain(host string) (string, bool) {
	if host == "tiktok.com" {
		return "", true
	}
	if !strings.HasSuffix(host, ".tiktok.com") {
		return "", false
	}
	return strings.TrimSuffix(host, ".tiktok.com"), true
}
