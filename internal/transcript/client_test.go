package transcript

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lexiqai/knowledge-extractor/internal/resilience"
)

const testVideoID = "dQw4w9WgXcQ"

const classicTimedText = `<?xml version="1.0" encoding="utf-8" ?><transcript>
<text start="0.0" dur="1.5">Cats are mammals.</text>
<text start="1.5" dur="2.25">Cats purr.</text>
</transcript>`

// fakeYouTube serves a watch page, the player endpoint and a timed text track.
type fakeYouTube struct {
	watchPage      func(base string) string
	playerResponse func(base string) string
	timedText      string
	timedTextFails int32

	timedTextCalls atomic.Int32
	playerCalls    atomic.Int32
}

func (f *fakeYouTube) server(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/watch":
			if r.URL.Query().Get("v") != testVideoID {
				http.NotFound(w, r)
				return
			}
			fmt.Fprint(w, f.watchPage(srv.URL))
		case innertubePlayerPath:
			f.playerCalls.Add(1)
			if f.playerResponse == nil {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			fmt.Fprint(w, f.playerResponse(srv.URL))
		case "/api/timedtext":
			if f.timedTextCalls.Add(1) <= f.timedTextFails {
				http.Error(w, "busy", http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, f.timedText)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func captionsJSON(base string, tracks ...string) string {
	var entries []string
	for _, lang := range tracks {
		entries = append(entries, fmt.Sprintf(`{"baseUrl":"%s/api/timedtext?v=%s&lang=%s","languageCode":"%s","kind":"asr"}`, base, testVideoID, lang, lang))
	}
	return `{"playabilityStatus":{"status":"OK"},"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[` +
		strings.Join(entries, ",") + `]}}}`
}

func watchPageWith(playerJSON string) string {
	return `<html><head><script>var ytInitialPlayerResponse = ` + playerJSON +
		`;var meta = {"x": "}"};</script></head><body></body></html>`
}

func newTestClient(base string) *Client {
	return NewClient(
		WithBaseURL(base),
		WithHTTPClient(&http.Client{Timeout: 5 * time.Second}),
		WithRetryConfig(&resilience.RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    time.Millisecond,
			MaxBackoff:        5 * time.Millisecond,
			BackoffMultiplier: 2,
		}),
	)
}

func TestClient_Fetch(t *testing.T) {
	fake := &fakeYouTube{
		watchPage: func(base string) string { return watchPageWith(captionsJSON(base, "en")) },
		timedText: classicTimedText,
	}
	srv := fake.server(t)

	tr, err := newTestClient(srv.URL).Fetch(context.Background(), "https://www.youtube.com/watch?v="+testVideoID)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if tr.Document != "Cats are mammals. Cats purr." {
		t.Errorf("Expected space-joined document, got %q", tr.Document)
	}
	if tr.VideoID != testVideoID || tr.Language != "en" {
		t.Errorf("Unexpected metadata: id=%q lang=%q", tr.VideoID, tr.Language)
	}
	if len(tr.Segments) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(tr.Segments))
	}
	if tr.Segments[1].Start != 1.5 || tr.Segments[1].Duration != 2.25 {
		t.Errorf("Unexpected timing for second segment: %+v", tr.Segments[1])
	}
	if fake.playerCalls.Load() != 0 {
		t.Error("Expected the player endpoint not to be used when the watch page works")
	}
}

func TestClient_Fetch_InvalidURLMakesNoRequest(t *testing.T) {
	fake := &fakeYouTube{watchPage: func(string) string { t.Error("unexpected request"); return "" }}
	srv := fake.server(t)

	_, err := newTestClient(srv.URL).Fetch(context.Background(), "https://www.youtube.com/playlist?list=PL1")

	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindInvalidURL {
		t.Fatalf("Expected invalid URL fetch error, got %v", err)
	}
}

func TestClient_Fetch_FallsBackToPlayer(t *testing.T) {
	fake := &fakeYouTube{
		watchPage:      func(string) string { return "<html>consent wall</html>" },
		playerResponse: func(base string) string { return captionsJSON(base, "en") },
		timedText:      classicTimedText,
	}
	srv := fake.server(t)

	tr, err := newTestClient(srv.URL).Fetch(context.Background(), testVideoID)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if tr.Document != "Cats are mammals. Cats purr." {
		t.Errorf("Unexpected document %q", tr.Document)
	}
	if fake.playerCalls.Load() != 1 {
		t.Errorf("Expected 1 player call, got %d", fake.playerCalls.Load())
	}
}

func TestClient_Fetch_Disabled(t *testing.T) {
	noCaptions := `{"playabilityStatus":{"status":"OK"}}`
	fake := &fakeYouTube{
		watchPage:      func(string) string { return watchPageWith(noCaptions) },
		playerResponse: func(string) string { return noCaptions },
	}
	srv := fake.server(t)

	_, err := newTestClient(srv.URL).Fetch(context.Background(), testVideoID)

	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindDisabled {
		t.Fatalf("Expected disabled fetch error, got %v", err)
	}
	if fe.VideoID != testVideoID {
		t.Errorf("Expected video id on error, got %q", fe.VideoID)
	}
}

func TestClient_Fetch_Unavailable(t *testing.T) {
	unavailable := `{"playabilityStatus":{"status":"ERROR","reason":"Video unavailable"}}`
	fake := &fakeYouTube{
		watchPage: func(string) string { return watchPageWith(unavailable) },
	}
	srv := fake.server(t)

	_, err := newTestClient(srv.URL).Fetch(context.Background(), testVideoID)

	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindUnavailable {
		t.Fatalf("Expected unavailable fetch error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Video unavailable") {
		t.Errorf("Expected reason in message, got %q", err.Error())
	}
}

func TestClient_Fetch_RetriesTransientFailures(t *testing.T) {
	fake := &fakeYouTube{
		watchPage:      func(base string) string { return watchPageWith(captionsJSON(base, "en")) },
		timedText:      classicTimedText,
		timedTextFails: 2,
	}
	srv := fake.server(t)

	tr, err := newTestClient(srv.URL).Fetch(context.Background(), testVideoID)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if tr.Document == "" {
		t.Error("Expected a document after retries")
	}
	if got := fake.timedTextCalls.Load(); got != 3 {
		t.Errorf("Expected 3 timed text calls, got %d", got)
	}
}

func TestClient_Fetch_NetworkError(t *testing.T) {
	fake := &fakeYouTube{
		watchPage:      func(base string) string { return watchPageWith(captionsJSON(base, "en")) },
		timedText:      classicTimedText,
		timedTextFails: 100,
	}
	srv := fake.server(t)

	_, err := newTestClient(srv.URL).Fetch(context.Background(), testVideoID)

	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindNetwork {
		t.Fatalf("Expected network fetch error, got %v", err)
	}
}

func TestClient_Segments_PrefersConfiguredLanguage(t *testing.T) {
	fake := &fakeYouTube{
		watchPage: func(base string) string { return watchPageWith(captionsJSON(base, "en", "de")) },
		timedText: classicTimedText,
	}
	srv := fake.server(t)

	client := newTestClient(srv.URL)
	WithLanguages("de", "en")(client)

	_, lang, err := client.Segments(context.Background(), testVideoID)
	if err != nil {
		t.Fatalf("Segments: %v", err)
	}
	if lang != "de" {
		t.Errorf("Expected the German track, got %q", lang)
	}
}

func TestJoinSegments(t *testing.T) {
	got := JoinSegments([]Segment{{Text: "one"}, {Text: "two"}, {Text: "three"}})
	if got != "one two three" {
		t.Errorf("Expected 'one two three', got %q", got)
	}
	if JoinSegments(nil) != "" {
		t.Error("Expected empty document for no segments")
	}
}

func TestFetchError_Message(t *testing.T) {
	err := newFetchError(KindDisabled, testVideoID, errors.New("no caption tracks"))
	want := "transcripts are disabled for video dQw4w9WgXcQ: no caption tracks"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}
