package util

import (
	"fmt"
	"net/url"
	"strings"
)

type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformGeneric   Platform = "generic"
)

// IsRemote reports whether s looks like an http(s) URL rather than a local path.
func IsRemote(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	}
	return false
}

var platformHosts = map[string]Platform{
	"youtube.com":       PlatformYouTube,
	"m.youtube.com":     PlatformYouTube,
	"music.youtube.com": PlatformYouTube,
	"youtu.be":          PlatformYouTube,
	"instagram.com":     PlatformInstagram,
	"m.instagram.com":   PlatformInstagram,
	"instagr.am":        PlatformInstagram,
}

// parseLoose parses raw, assuming https when the scheme is missing.
func parseLoose(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	if u.Scheme == "" || u.Host == "" {
		if u, err = url.Parse("https://" + raw); err != nil {
			return nil, false
		}
	}
	return u, u.Host != "" && strings.Contains(u.Host, ".")
}

func bareHost(u *url.URL) string {
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// DetectPlatform classifies the host of raw. Hosts the downloader may still
// handle are PlatformGeneric; only unparseable input is an error.
func DetectPlatform(raw string) (Platform, *url.URL, error) {
	u, ok := parseLoose(raw)
	if !ok {
		return "", nil, fmt.Errorf("invalid URL %q", raw)
	}
	if p, known := platformHosts[bareHost(u)]; known {
		return p, u, nil
	}
	return PlatformGeneric, u, nil
}

// NormalizeURL rewrites short, shorts and mobile YouTube links to the
// canonical watch URL. Other URLs are returned unchanged.
func NormalizeURL(raw string, platform Platform) string {
	if platform != PlatformYouTube {
		return raw
	}
	u, ok := parseLoose(raw)
	if !ok {
		return raw
	}
	var id string
	switch host := bareHost(u); {
	case host == "youtu.be":
		id = strings.Trim(u.Path, "/")
	case strings.HasPrefix(u.Path, "/shorts/"):
		id = strings.Trim(strings.TrimPrefix(u.Path, "/shorts/"), "/")
	case host == "m.youtube.com" && u.Path == "/watch":
		id = u.Query().Get("v")
	}
	if id == "" {
		return raw
	}
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
}
