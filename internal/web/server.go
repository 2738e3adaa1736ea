// Package web serves the extraction page, its form fallback, a JSON API and a
// WebSocket progress stream.
package web

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/knowledge-extractor/internal/observability"
	"github.com/lexiqai/knowledge-extractor/internal/orchestrator"
	"github.com/lexiqai/knowledge-extractor/internal/transcript"
)

const (
	correlationHeader = "X-Correlation-ID"
	msgMissingURL     = "Please enter a YouTube URL"
)

// Runner executes one extraction. *orchestrator.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, rawURL string, progress orchestrator.ProgressFunc) (*orchestrator.Result, error)
}

// Server holds the HTTP handlers of the presentation layer.
type Server struct {
	runner Runner
	logger zerolog.Logger
}

// Option is a functional option for Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a Server backed by runner.
func NewServer(runner Runner, opts ...Option) *Server {
	s := &Server{
		runner: runner,
		logger: zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register adds the page, form, API and WebSocket routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.Handle("GET /{$}", s.withRequestLogging(http.HandlerFunc(s.handleIndex)))
	mux.Handle("POST /extract", s.withRequestLogging(http.HandlerFunc(s.handleExtractForm)))
	mux.Handle("POST /api/extract", s.withRequestLogging(http.HandlerFunc(s.handleExtractAPI)))
	mux.Handle("GET /ws", s.withRequestLogging(http.HandlerFunc(s.handleWS)))
}

// Handler returns a mux with only the presentation routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

// withRequestLogging assigns a correlation id to the request and logs its outcome.
func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(correlationHeader)
		if id == "" {
			id = observability.NewCorrelationID()
		}
		w.Header().Set(correlationHeader, id)

		logger := s.logger.With().Str("correlation_id", id).Logger()
		ctx := orchestrator.WithCorrelationID(r.Context(), id)
		ctx = logger.WithContext(ctx)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// userMessage is the warning text shown for a failed run.
func userMessage(err error) string {
	return "Error: " + err.Error()
}

// statusFor maps a run error to an HTTP status for the JSON API.
func statusFor(err error) int {
	var fe *transcript.FetchError
	switch {
	case errors.Is(err, transcript.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.As(err, &fe), errors.Is(err, orchestrator.ErrNoQuestions):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

// Hijack lets the WebSocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	r.wroteHeader = true
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
