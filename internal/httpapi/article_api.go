package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/johnrirwin/dailylens/internal/archive"
	"github.com/johnrirwin/dailylens/internal/logging"
	"github.com/johnrirwin/dailylens/internal/models"
	"github.com/johnrirwin/dailylens/internal/summarize"
)

const maxSummarizeBody = 1 << 20

// handleArticle serves GET /api/articles/{slug} from the archive.
func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	slug := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/articles/"), "/")
	if slug == "" || s.articles == nil {
		s.writeError(w, http.StatusNotFound, "Article not found")
		return
	}

	article, err := s.articles.GetBySlug(r.Context(), slug)
	if errors.Is(err, archive.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "Article not found")
		return
	}
	if err != nil {
		s.logger.Error("Failed to load article", logging.WithFields(map[string]interface{}{
			"slug":  slug,
			"error": err.Error(),
		}))
		s.writeError(w, http.StatusInternalServerError, "Failed to load article")
		return
	}

	s.writeJSON(w, http.StatusOK, article)
}

// handleSummarize serves POST /api/summarize.
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.summarizer == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Summarization is not available")
		return
	}

	var req models.SummaryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSummarizeBody)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.summarizer.Summarize(r.Context(), req)
	switch {
	case errors.Is(err, summarize.ErrEmptyContent):
		s.writeError(w, http.StatusBadRequest, "No content to summarize")
		return
	case errors.Is(err, summarize.ErrUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, "Summarization is not available")
		return
	case err != nil:
		s.logger.Error("Failed to summarize article", logging.WithField("error", err.Error()))
		s.writeError(w, http.StatusInternalServerError, "Failed to summarize article")
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}
