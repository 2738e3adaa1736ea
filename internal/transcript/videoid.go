package transcript

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// pathPrefixes are the path forms that carry the id as the next segment.
var pathPrefixes = map[string]bool{
	"shorts": true,
	"embed":  true,
	"live":   true,
	"v":      true,
}

// ExtractVideoID returns the video id named by rawURL. Accepted forms are
// watch URLs (?v=ID), youtu.be/ID, /shorts/ID, /embed/ID, /live/ID and a bare id.
func ExtractVideoID(rawURL string) (string, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return "", newFetchError(KindInvalidURL, "", ErrInvalidURL)
	}
	if videoIDPattern.MatchString(raw) {
		return raw, nil
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", newFetchError(KindInvalidURL, "", fmt.Errorf("%w: %v", ErrInvalidURL, err))
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	var id string

	switch strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.") {
	case "youtu.be":
		id = segments[0]
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if v := u.Query().Get("v"); v != "" {
			id = v
		} else if len(segments) >= 2 && pathPrefixes[segments[0]] {
			id = segments[1]
		}
	}

	if !videoIDPattern.MatchString(id) {
		return "", newFetchError(KindInvalidURL, "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL))
	}
	return id, nil
}
