package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

const maxRequestBytes = 64 << 10

type extractRequest struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleExtractAPI accepts {"url": "..."} and responds with the Result as JSON.
func (s *Server) handleExtractAPI(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: msgMissingURL})
		return
	}

	result, err := s.runner.Run(r.Context(), rawURL, nil)
	if err != nil {
		writeJSON(w, r, statusFor(err), errorResponse{Error: userMessage(err)})
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to write JSON response")
	}
}
