package transcript

import (
	"encoding/xml"
	"html"
	"regexp"
	"strconv"
	"strings"
)

// YouTube endpoints, wire types and parsing helpers.

const (
	defaultBaseURL      = "https://www.youtube.com"
	innertubePlayerPath = "/youtubei/v1/player"
	androidVersion      = "20.10.38"
	androidUserAgent    = "com.google.android.youtube/" + androidVersion + " (Linux; U; Android 11) gzip"
	browserUserAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	// playerResponseMarker precedes the player response JSON in watch page HTML.
	playerResponseMarker = "ytInitialPlayerResponse = "

	maxWatchPageBytes = 6 << 20
	maxTimedTextBytes = 2 << 20
	maxPlayerBytes    = 3 << 20
)

type innertubeRequest struct {
	VideoID        string           `json:"videoId"`
	Context        innertubeContext `json:"context"`
	RacyCheckOk    bool             `json:"racyCheckOk"`
	ContentCheckOk bool             `json:"contentCheckOk"`
}

type innertubeContext struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

type playerResponse struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

// Timed text comes in two shapes: the classic <transcript><text start dur> list
// and the srv3 <timedtext><body><p t d> list with times in milliseconds.
type timedTextClassic struct {
	Lines []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Text  string `xml:",chardata"`
	} `xml:"text"`
}

type timedTextSrv3 struct {
	Body struct {
		Paragraphs []struct {
			T     string `xml:"t,attr"`
			D     string `xml:"d,attr"`
			Inner string `xml:",innerxml"`
		} `xml:"p"`
	} `xml:"body"`
}

var tagRe = regexp.MustCompile(`<[^>]+>`)

// cleanCaption strips inline markup, decodes entities and collapses whitespace.
func cleanCaption(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

func parseSeconds(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseMillis(s string) float64 {
	return parseSeconds(s) / 1000
}

// parseTimedText decodes a timed text XML document into segments, skipping empty lines.
func parseTimedText(body []byte) ([]Segment, error) {
	var classic timedTextClassic
	if err := xml.Unmarshal(body, &classic); err == nil && len(classic.Lines) > 0 {
		segments := make([]Segment, 0, len(classic.Lines))
		for _, line := range classic.Lines {
			text := cleanCaption(line.Text)
			if text == "" {
				continue
			}
			segments = append(segments, Segment{
				Text:     text,
				Start:    parseSeconds(line.Start),
				Duration: parseSeconds(line.Dur),
			})
		}
		return segments, nil
	}

	var srv3 timedTextSrv3
	if err := xml.Unmarshal(body, &srv3); err != nil {
		return nil, err
	}
	segments := make([]Segment, 0, len(srv3.Body.Paragraphs))
	for _, p := range srv3.Body.Paragraphs {
		text := cleanCaption(p.Inner)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Text:     text,
			Start:    parseMillis(p.T),
			Duration: parseMillis(p.D),
		})
	}
	return segments, nil
}

// needsPoToken reports whether a caption track URL only works inside a browser.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickTrack selects the best usable caption track for the given language preferences:
// a manual track in a preferred language, then an auto-generated one, then any English
// track, then the first usable track.
func pickTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

// extractJSONObject returns the balanced JSON object at the start of data, or nil.
func extractJSONObject(data []byte) []byte {
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	depth := 0
	inString := false
	escaped := false
	for i, b := range data {
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return data[:i+1]
			}
		}
	}
	return nil
}
