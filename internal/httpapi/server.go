package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/johnrirwin/dailylens/internal/aggregator"
	"github.com/johnrirwin/dailylens/internal/archive"
	"github.com/johnrirwin/dailylens/internal/logging"
	"github.com/johnrirwin/dailylens/internal/summarize"
)

const requestIDHeader = "X-Request-ID"

type Server struct {
	agg            *aggregator.Aggregator
	articles       archive.Store
	summarizer     summarize.Summarizer
	logger         *logging.Logger
	requestTimeout time.Duration
	server         *http.Server
}

// New builds the API server. articles and summarizer may be nil; their
// endpoints then answer 404 and 503 respectively.
func New(agg *aggregator.Aggregator, articles archive.Store, summarizer summarize.Summarizer, requestTimeout time.Duration, logger *logging.Logger) *Server {
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	return &Server{
		agg:            agg,
		articles:       articles,
		summarizer:     summarizer,
		logger:         logger,
		requestTimeout: requestTimeout,
	}
}

// Handler returns the routed handler with request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/rss", s.corsMiddleware(s.handleRSS))
	mux.HandleFunc("/api/categories", s.corsMiddleware(s.handleCategories))
	mux.HandleFunc("/api/sections", s.corsMiddleware(s.handleSections))
	mux.HandleFunc("/api/articles/", s.corsMiddleware(s.handleArticle))
	mux.HandleFunc("/api/summarize", s.corsMiddleware(s.handleSummarize))

	mux.HandleFunc("/health", s.handleHealth)

	return s.requestMiddleware(mux)
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.requestTimeout + 15*time.Second,
	}

	s.logger.Info("HTTP API server starting", logging.WithField("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestMiddleware tags each request with an id and logs its outcome.
func (s *Server) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("Request handled", logging.WithFields(map[string]interface{}{
			"request_id":  id,
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
