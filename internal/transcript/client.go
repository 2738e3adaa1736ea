package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/knowledge-extractor/internal/observability"
	"github.com/lexiqai/knowledge-extractor/internal/resilience"
)

// Client fetches transcripts from YouTube.
//
// The watch page is scraped first because it works from most IPs; when it yields no
// usable caption track the ANDROID Innertube /player endpoint is tried.
type Client struct {
	httpClient *http.Client
	baseURL    string
	languages  []string
	retry      *resilience.RetryConfig
	logger     zerolog.Logger
}

// Option is a functional option for Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides https://www.youtube.com.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = base
	}
}

// WithLanguages sets the caption language preference order.
func WithLanguages(langs ...string) Option {
	return func(c *Client) {
		c.languages = langs
	}
}

// WithRetryConfig sets the retry policy for transient HTTP failures.
func WithRetryConfig(rc *resilience.RetryConfig) Option {
	return func(c *Client) {
		c.retry = rc
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a transcript client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		languages:  []string{"en"},
		retry:      resilience.DefaultRetryConfig(),
		logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fetch resolves rawURL to a video id and returns its transcript. All failures are *FetchError.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Transcript, error) {
	videoID, err := ExtractVideoID(rawURL)
	if err != nil {
		observability.RecordTranscriptFetch(string(KindInvalidURL))
		return nil, err
	}

	segments, lang, err := c.Segments(ctx, videoID)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			observability.RecordTranscriptFetch(string(fe.Kind))
		}
		return nil, err
	}
	observability.RecordTranscriptFetch("success")

	return &Transcript{
		VideoID:  videoID,
		Language: lang,
		Segments: segments,
		Document: JoinSegments(segments),
	}, nil
}

// Segments returns the caption segments of videoID and the language of the chosen track.
func (c *Client) Segments(ctx context.Context, videoID string) ([]Segment, string, error) {
	logger := c.logger.With().Str("video_id", videoID).Logger()

	segments, lang, err := c.segmentsViaWatchPage(ctx, videoID)
	if err == nil {
		return segments, lang, nil
	}
	if ctx.Err() != nil {
		return nil, "", err
	}
	logger.Warn().Err(err).Msg("Watch page scrape failed, trying player endpoint")

	segments, lang, fallbackErr := c.segmentsViaPlayer(ctx, videoID)
	if fallbackErr == nil {
		return segments, lang, nil
	}
	logger.Warn().Err(fallbackErr).Msg("Player endpoint failed")

	return nil, "", moreSpecific(err, fallbackErr)
}

func (c *Client) segmentsViaWatchPage(ctx context.Context, videoID string) ([]Segment, string, error) {
	watchURL := c.baseURL + "/watch?" + url.Values{"v": {videoID}}.Encode()

	body, err := c.do(ctx, maxWatchPageBytes, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", browserUserAgent)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return req, nil
	})
	if err != nil {
		return nil, "", newFetchError(KindNetwork, videoID, fmt.Errorf("watch page: %w", err))
	}

	idx := bytes.Index(body, []byte(playerResponseMarker))
	if idx < 0 {
		return nil, "", newFetchError(KindParse, videoID, errors.New("player response not found in watch page"))
	}
	raw := extractJSONObject(body[idx+len(playerResponseMarker):])
	if raw == nil {
		return nil, "", newFetchError(KindParse, videoID, errors.New("malformed player response in watch page"))
	}

	var player playerResponse
	if err := json.Unmarshal(raw, &player); err != nil {
		return nil, "", newFetchError(KindParse, videoID, fmt.Errorf("decode player response: %w", err))
	}
	return c.segmentsFromPlayer(ctx, videoID, &player)
}

func (c *Client) segmentsViaPlayer(ctx context.Context, videoID string) ([]Segment, string, error) {
	payload, err := json.Marshal(innertubeRequest{
		VideoID: videoID,
		Context: innertubeContext{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     androidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return nil, "", err
	}

	body, err := c.do(ctx, maxPlayerBytes, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+innertubePlayerPath+"?prettyPrint=false", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", androidUserAgent)
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", androidVersion)
		return req, nil
	})
	if err != nil {
		return nil, "", newFetchError(KindNetwork, videoID, fmt.Errorf("player: %w", err))
	}

	var player playerResponse
	if err := json.Unmarshal(body, &player); err != nil {
		return nil, "", newFetchError(KindParse, videoID, fmt.Errorf("decode player: %w", err))
	}
	return c.segmentsFromPlayer(ctx, videoID, &player)
}

func (c *Client) segmentsFromPlayer(ctx context.Context, videoID string, player *playerResponse) ([]Segment, string, error) {
	if player.Captions == nil {
		if ps := player.PlayabilityStatus; ps != nil && ps.Status != "" && ps.Status != "OK" {
			reason := ps.Reason
			if reason == "" {
				reason = ps.Status
			}
			return nil, "", newFetchError(KindUnavailable, videoID, errors.New(reason))
		}
		return nil, "", newFetchError(KindDisabled, videoID, errors.New("no captions in player response"))
	}

	tracks := player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, "", newFetchError(KindDisabled, videoID, errors.New("no caption tracks"))
	}
	track, ok := pickTrack(tracks, c.languages)
	if !ok {
		return nil, "", newFetchError(KindDisabled, videoID, errors.New("all caption tracks require a browser session"))
	}

	body, err := c.do(ctx, maxTimedTextBytes, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.BaseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", browserUserAgent)
		return req, nil
	})
	if err != nil {
		return nil, "", newFetchError(KindNetwork, videoID, fmt.Errorf("timed text: %w", err))
	}

	segments, err := parseTimedText(body)
	if err != nil {
		return nil, "", newFetchError(KindParse, videoID, fmt.Errorf("parse timed text: %w", err))
	}
	if len(segments) == 0 {
		return nil, "", newFetchError(KindDisabled, videoID, errors.New("caption track is empty"))
	}
	return segments, track.LanguageCode, nil
}

// do sends the request built by build, retrying transient failures, and returns
// at most limit bytes of a 200 response body.
func (c *Client) do(ctx context.Context, limit int64, build func() (*http.Request, error)) ([]byte, error) {
	var body []byte
	err := resilience.Retry(ctx, func() error {
		req, err := build()
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return resilience.NewRetryableError(fmt.Errorf("HTTP %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, snippet)
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, limit))
		return err
	}, c.retry, isTransient)
	return body, err
}

func isTransient(err error) bool {
	return resilience.IsRetryable(err) || resilience.IsRetryableNetworkError(err)
}

// moreSpecific picks whichever of two strategy errors says more about the video.
func moreSpecific(first, second error) error {
	var a, b *FetchError
	if !errors.As(first, &a) {
		return second
	}
	if !errors.As(second, &b) {
		return first
	}
	if b.Kind.rank() > a.Kind.rank() {
		return second
	}
	return first
}
