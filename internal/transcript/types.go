// Package transcript retrieves caption tracks for YouTube videos and turns them
// into a single document string.
package transcript

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidURL is wrapped by fetch errors for input that names no video.
var ErrInvalidURL = errors.New("no video id found in URL")

// Segment is one timed caption unit.
type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Transcript is the fetched caption track of one video.
type Transcript struct {
	VideoID  string
	Language string
	Segments []Segment
	// Document is the concatenated text of all segments.
	Document string
}

// JoinSegments concatenates segment texts in order, separated by a single space.
func JoinSegments(segments []Segment) string {
	texts := make([]string, 0, len(segments))
	for _, s := range segments {
		texts = append(texts, s.Text)
	}
	return strings.Join(texts, " ")
}

// ErrorKind classifies a FetchError.
type ErrorKind string

const (
	KindInvalidURL  ErrorKind = "invalid_url"
	KindUnavailable ErrorKind = "unavailable"
	KindDisabled    ErrorKind = "disabled"
	KindNetwork     ErrorKind = "network"
	KindParse       ErrorKind = "parse"
)

func (k ErrorKind) describe() string {
	switch k {
	case KindInvalidURL:
		return "invalid video URL"
	case KindUnavailable:
		return "video is unavailable"
	case KindDisabled:
		return "transcripts are disabled"
	case KindNetwork:
		return "transcript request failed"
	case KindParse:
		return "unexpected transcript response"
	}
	return "transcript error"
}

// FetchError is returned for every transcript failure.
type FetchError struct {
	Kind    ErrorKind
	VideoID string
	Err     error
}

func (e *FetchError) Error() string {
	if e.VideoID == "" {
		return fmt.Sprintf("%s: %v", e.Kind.describe(), e.Err)
	}
	return fmt.Sprintf("%s for video %s: %v", e.Kind.describe(), e.VideoID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func newFetchError(kind ErrorKind, videoID string, err error) *FetchError {
	return &FetchError{Kind: kind, VideoID: videoID, Err: err}
}

// rank orders kinds by how much they tell the user; used to pick between
// the errors of two fetch strategies.
func (k ErrorKind) rank() int {
	switch k {
	case KindUnavailable, KindDisabled:
		return 2
	case KindParse:
		return 1
	}
	return 0
}
