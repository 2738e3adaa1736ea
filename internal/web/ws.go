package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lexiqai/knowledge-extractor/internal/observability"
	"github.com/lexiqai/knowledge-extractor/internal/orchestrator"
)

const (
	writeWait       = 10 * time.Second
	maxMessageBytes = 4096
	eventProgress   = "progress"
	eventResult     = "result"
	eventError      = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// wsRequest is sent by the page to start a run.
type wsRequest struct {
	URL string `json:"url"`
}

// wsEvent is streamed back to the page.
type wsEvent struct {
	Type    string               `json:"type"`
	Stage   orchestrator.Stage   `json:"stage,omitempty"`
	Message string               `json:"message,omitempty"`
	Result  *orchestrator.Result `json:"result,omitempty"`
}

// streamSession serves one WebSocket connection. Runs are handled one at a time,
// each under its own correlation id.
type streamSession struct {
	conn   *websocket.Conn
	runner Runner
	logger zerolog.Logger

	writeMu sync.Mutex
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	session := &streamSession{
		conn:   conn,
		runner: s.runner,
		logger: *logger,
	}
	session.logger.Info().Msg("WebSocket session started")
	session.serve(r.Context())
	session.logger.Info().Msg("WebSocket session ended")
}

func (s *streamSession) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer s.conn.Close()

	s.conn.SetReadLimit(maxMessageBytes)

	requests := make(chan string)
	go func() {
		defer close(requests)
		// A closed connection cancels the run in progress.
		defer cancel()
		for {
			_, message, err := s.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Warn().Err(err).Msg("WebSocket read error")
				}
				return
			}

			var req wsRequest
			if err := json.Unmarshal(message, &req); err != nil {
				s.send(wsEvent{Type: eventError, Message: userMessage(err)})
				continue
			}

			select {
			case requests <- strings.TrimSpace(req.URL):
			case <-ctx.Done():
				return
			}
		}
	}()

	for rawURL := range requests {
		s.run(ctx, rawURL)
	}
}

func (s *streamSession) run(ctx context.Context, rawURL string) {
	if rawURL == "" {
		s.send(wsEvent{Type: eventError, Message: msgMissingURL})
		return
	}

	runID := observability.NewCorrelationID()
	ctx = orchestrator.WithCorrelationID(ctx, runID)
	logger := s.logger.With().Str("run_id", runID).Logger()
	logger.Info().Str("url", rawURL).Msg("Extraction requested")

	result, err := s.runner.Run(ctx, rawURL, func(p orchestrator.Progress) {
		s.send(wsEvent{Type: eventProgress, Stage: p.Stage, Message: p.Message})
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Extraction failed")
		s.send(wsEvent{Type: eventError, Message: userMessage(err)})
		return
	}
	s.send(wsEvent{Type: eventResult, Result: result})
}

func (s *streamSession) send(ev wsEvent) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(ev); err != nil {
		s.logger.Debug().Err(err).Str("type", ev.Type).Msg("Failed to send WebSocket event")
	}
}
