package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/johnrirwin/dailylens/internal/logging"
	"github.com/johnrirwin/dailylens/internal/models"
	"github.com/johnrirwin/dailylens/internal/registry"
)

const (
	defaultSection  = "news"
	defaultLanguage = "en"
)

func selector(r *http.Request) (section, language, category string) {
	query := r.URL.Query()
	section = query.Get("section")
	if section == "" {
		section = defaultSection
	}
	language = query.Get("lang")
	if language == "" {
		language = defaultLanguage
	}
	return section, language, query.Get("category")
}

// handleRSS serves GET /api/rss?section=&lang=&category=.
func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	section, language, category := selector(r)

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	res, articles, err := s.agg.Select(ctx, section, language, category)
	switch {
	case errors.Is(err, registry.ErrInvalidSectionOrLanguage):
		s.writeError(w, http.StatusBadRequest, "Invalid section or language")
		return
	case errors.Is(err, registry.ErrInvalidCategory):
		s.writeError(w, http.StatusBadRequest, "Invalid category")
		return
	case err != nil:
		name := res.Category
		if name == "" {
			name = category
		}
		s.logger.Error("Failed to aggregate feeds", logging.WithFields(map[string]interface{}{
			"section":  section,
			"language": language,
			"category": name,
			"error":    err.Error(),
		}))
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch RSS feed for "+name)
		return
	}

	if articles == nil {
		articles = []models.Article{}
	}
	s.writeJSON(w, http.StatusOK, articles)
}

type categoriesResponse struct {
	Section    string   `json:"section"`
	Language   string   `json:"language"`
	Categories []string `json:"categories"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	section, language, _ := selector(r)
	names, err := s.agg.Registry().Categories(section, language)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid section or language")
		return
	}

	s.writeJSON(w, http.StatusOK, categoriesResponse{
		Section:    section,
		Language:   language,
		Categories: names,
	})
}

func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"sections": s.agg.Registry().Sections(),
	})
}
