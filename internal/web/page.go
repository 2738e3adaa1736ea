package web

import (
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lexiqai/knowledge-extractor/internal/orchestrator"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	URL     string
	Warning string
	Result  *orchestrator.Result
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageData{})
}

// handleExtractForm runs the pipeline synchronously for browsers without JavaScript.
func (s *Server) handleExtractForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, pageData{Warning: userMessage(err)})
		return
	}

	rawURL := strings.TrimSpace(r.PostFormValue("url"))
	if rawURL == "" {
		s.render(w, r, http.StatusBadRequest, pageData{Warning: msgMissingURL})
		return
	}

	result, err := s.runner.Run(r.Context(), rawURL, nil)
	if err != nil {
		s.render(w, r, statusFor(err), pageData{URL: rawURL, Warning: userMessage(err)})
		return
	}
	s.render(w, r, http.StatusOK, pageData{URL: rawURL, Result: result})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, code int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := pageTemplate.Execute(w, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render page")
	}
}
