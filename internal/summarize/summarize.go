// Package summarize produces a short summary and a sentiment label for an
// article body using a generative model.
package summarize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/johnrirwin/dailylens/internal/cache"
	"github.com/johnrirwin/dailylens/internal/htmltext"
	"github.com/johnrirwin/dailylens/internal/logging"
	"github.com/johnrirwin/dailylens/internal/models"
	"github.com/johnrirwin/dailylens/internal/normalize"
)

var (
	ErrEmptyContent = errors.New("no article content to summarize")
	ErrUnavailable  = errors.New("summarizer is not configured")
)

// Summarizer is the collaborator behind POST /api/summarize.
type Summarizer interface {
	Summarize(ctx context.Context, req models.SummaryRequest) (*models.SummaryResult, error)
}

// Generator sends one prompt to a model and returns its text reply.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	Timeout  time.Duration
	CacheTTL time.Duration
	MaxChars int
}

func DefaultConfig() Config {
	return Config{
		Timeout:  30 * time.Second,
		CacheTTL: 24 * time.Hour,
		MaxChars: 6000,
	}
}

type Service struct {
	gen    Generator
	cache  cache.Cache
	config Config
	logger *logging.Logger
}

func NewService(gen Generator, c cache.Cache, config Config, logger *logging.Logger) *Service {
	defaults := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaults.CacheTTL
	}
	if config.MaxChars <= 0 {
		config.MaxChars = defaults.MaxChars
	}
	return &Service{gen: gen, cache: c, config: config, logger: logger}
}

func (s *Service) Summarize(ctx context.Context, req models.SummaryRequest) (*models.SummaryResult, error) {
	if s == nil || s.gen == nil {
		return nil, ErrUnavailable
	}

	content := PrepareContent(req.Content, s.config.MaxChars)
	if content == "" {
		return nil, ErrEmptyContent
	}
	language := strings.TrimSpace(req.Language)

	key := cacheKey(content, language)
	var cached models.SummaryResult
	if cache.GetJSON(ctx, s.cache, key, &cached) {
		return &cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.gen.Generate(ctx, buildPrompt(content, language))
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary: %w", err)
	}

	result, err := parseResult(raw)
	if err != nil {
		s.logger.Warn("Unparseable summary response", logging.WithFields(map[string]interface{}{
			"error":  err.Error(),
			"length": len(raw),
		}))
		return nil, err
	}

	s.logger.Debug("Generated summary", logging.WithFields(map[string]interface{}{
		"sentiment":   result.Sentiment,
		"duration_ms": time.Since(start).Milliseconds(),
	}))

	if err := cache.SetJSON(ctx, s.cache, key, result, s.config.CacheTTL); err != nil {
		s.logger.Warn("Failed to cache summary", logging.WithField("error", err.Error()))
	}
	return result, nil
}

// PrepareContent reduces an article body to plain text capped at maxChars
// runes. Placeholder bodies produced by the normalizer yield "".
func PrepareContent(content string, maxChars int) string {
	text := htmltext.Text(content)
	if text == normalize.NoContent || text == normalize.NoSummary {
		return ""
	}
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	runes := []rune(text)
	trimmed := string(runes[:maxChars])
	if idx := strings.LastIndex(trimmed, ". "); idx > maxChars/5 {
		trimmed = trimmed[:idx+1]
	}
	return trimmed
}

func buildPrompt(content, language string) string {
	var b strings.Builder
	b.WriteString("You are a news article summarizer. Summarize the following article in a concise manner, ")
	b.WriteString("and determine the sentiment of the article as one of positive, negative, neutral or mixed.\n")
	if language != "" {
		fmt.Fprintf(&b, "Write the summary in the language with code %q.\n", language)
	}
	b.WriteString("Respond with a JSON object with the fields \"summary\" and \"sentiment\".\n\nArticle:\n")
	b.WriteString(content)
	return b.String()
}

var sentiments = map[string]bool{
	"positive": true,
	"negative": true,
	"neutral":  true,
	"mixed":    true,
}

func parseResult(raw string) (*models.SummaryResult, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var result models.SummaryResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &result); err != nil {
		return nil, fmt.Errorf("could not parse model response: %w", err)
	}

	result.Summary = strings.TrimSpace(result.Summary)
	if result.Summary == "" {
		return nil, errors.New("could not parse model response: empty summary")
	}
	result.Sentiment = strings.ToLower(strings.TrimSpace(result.Sentiment))
	if !sentiments[result.Sentiment] {
		result.Sentiment = "neutral"
	}
	return &result, nil
}

func cacheKey(content, language string) string {
	sum := sha256.Sum256([]byte(language + "\x00" + content))
	return "summary:" + hex.EncodeToString(sum[:16])
}
