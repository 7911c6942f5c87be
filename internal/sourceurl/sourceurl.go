// Package sourceurl recognizes and normalizes URLs for supported video
// sources. It is the fast InvalidInput gate in front of the session resolver:
// no strategy attempt is spent on a URL that cannot possibly resolve.
package sourceurl

import (
	"errors"
	"net/url"
	"strings"
)

// Well-known host aliases. Key: input host. Value: canonical domain.
//
// Keep this intentionally conservative: only hosts that are truly the same
// source website from a user perspective.
var canonicalDomainByHost = map[string]string{
	"youtube.com":       "youtube.com",
	"www.youtube.com":   "youtube.com",
	"m.youtube.com":     "youtube.com",
	"music.youtube.com": "youtube.com",
	"youtu.be":          "youtube.com",
}

// ErrUnrecognized means the URL does not point at a supported video source.
var ErrUnrecognized = errors.New("unrecognized video source")

// Normalize validates a user-provided URL and returns it with a canonical
// scheme and host. A missing scheme is treated as https.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("missing url")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		u, err = url.Parse("https://" + raw)
		if err != nil {
			return "", err
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrUnrecognized
	}

	host := normalizeHost(u.Host)
	canon, ok := canonicalDomainByHost[host]
	if !ok {
		return "", ErrUnrecognized
	}

	// Shortlinks keep their host: the extractor understands them natively.
	if host != "youtu.be" {
		u.Host = canon
	}
	u.Scheme = "https"
	u.Fragment = ""
	u.User = nil

	return u.String(), nil
}

// Recognized reports whether raw points at a supported video source.
func Recognized(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}

func normalizeHost(hostport string) string {
	h := strings.TrimSpace(strings.ToLower(hostport))
	if h == "" {
		return ""
	}
	// url.URL.Host may include a port.
	if strings.Contains(h, ":") {
		if parsed, err := url.Parse("//" + h); err == nil && parsed.Hostname() != "" {
			h = parsed.Hostname()
		}
	}
	return strings.TrimSuffix(h, ".")
}
