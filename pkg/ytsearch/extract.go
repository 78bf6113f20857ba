package ytsearch

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	plainIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	embedIDRe = regexp.MustCompile(`(?:v=|/embed/|\.be/)([A-Za-z0-9_-]{11})`)
)

// ExtractVideoID pulls an 11-character video id out of a pasted value: a
// bare id, a youtu.be short link, or a watch?v= URL. Returns "" when nothing
// matches.
func ExtractVideoID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if plainIDRe.MatchString(raw) {
		return raw
	}

	if u, err := url.Parse(raw); err == nil {
		if strings.Contains(u.Hostname(), "youtu.be") {
			return strings.TrimPrefix(u.Path, "/")
		}
		if v := u.Query().Get("v"); v != "" {
			return v
		}
	}

	if m := embedIDRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}

	return ""
}
