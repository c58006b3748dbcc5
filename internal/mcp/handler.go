package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/johnrirwin/dailylens/internal/aggregator"
	"github.com/johnrirwin/dailylens/internal/archive"
	"github.com/johnrirwin/dailylens/internal/logging"
	"github.com/johnrirwin/dailylens/internal/models"
	"github.com/johnrirwin/dailylens/internal/summarize"
)

const defaultArticleLimit = 20

type Handler struct {
	agg        *aggregator.Aggregator
	articles   archive.Store
	summarizer summarize.Summarizer
	logger     *logging.Logger
}

// NewHandler wires the tool set. articles and summarizer may be nil.
func NewHandler(agg *aggregator.Aggregator, articles archive.Store, summarizer summarize.Summarizer, logger *logging.Logger) *Handler {
	return &Handler{
		agg:        agg,
		articles:   articles,
		summarizer: summarizer,
		logger:     logger,
	}
}

type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

type GetArticlesParams struct {
	Section  string `json:"section"`
	Language string `json:"lang"`
	Category string `json:"category"`
	Limit    int    `json:"limit"`
}

type ListCategoriesParams struct {
	Section  string `json:"section"`
	Language string `json:"lang"`
}

type SummarizeArticleParams struct {
	Slug     string `json:"slug"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

func (h *Handler) GetTools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "get_articles",
			Description: "Get the latest normalized articles for a section, language and category, newest first.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"section": {
						"type": "string",
						"description": "Section name (default: news)"
					},
					"lang": {
						"type": "string",
						"description": "Language code (default: en)"
					},
					"category": {
						"type": "string",
						"description": "Category name; the first category of the section is used when empty"
					},
					"limit": {
						"type": "integer",
						"description": "Maximum number of articles to return (default: 20)"
					}
				}
			}`),
		},
		{
			Name:        "list_categories",
			Description: "List the categories of a section and language, or every section when no section is given.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"section": {
						"type": "string",
						"description": "Section name"
					},
					"lang": {
						"type": "string",
						"description": "Language code (default: en)"
					}
				}
			}`),
		},
		{
			Name:        "summarize_article",
			Description: "Summarize an archived article by slug, or arbitrary article text, and classify its sentiment.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"slug": {
						"type": "string",
						"description": "Slug of an article returned by get_articles"
					},
					"content": {
						"type": "string",
						"description": "Article text, used when no slug is given"
					},
					"language": {
						"type": "string",
						"description": "Language to write the summary in"
					}
				}
			}`),
		},
	}
}

func (h *Handler) HandleToolCall(ctx context.Context, name string, arguments json.RawMessage) (interface{}, error) {
	switch name {
	case "get_articles":
		return h.handleGetArticles(ctx, arguments)
	case "list_categories":
		return h.handleListCategories(arguments)
	case "summarize_article":
		return h.handleSummarize(ctx, arguments)
	default:
		return nil, &ToolError{Message: "Unknown tool: " + name}
	}
}

func decodeArgs(arguments json.RawMessage, dst interface{}) error {
	if len(arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(arguments, dst); err != nil {
		return &ToolError{Message: "Invalid arguments: " + err.Error()}
	}
	return nil
}

func (h *Handler) handleGetArticles(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var params GetArticlesParams
	if err := decodeArgs(arguments, &params); err != nil {
		return nil, err
	}
	if params.Section == "" {
		params.Section = "news"
	}
	if params.Language == "" {
		params.Language = "en"
	}
	if params.Limit <= 0 {
		params.Limit = defaultArticleLimit
	}

	res, articles, err := h.agg.Select(ctx, params.Section, params.Language, params.Category)
	if err != nil {
		return nil, &ToolError{Message: err.Error()}
	}

	total := len(articles)
	if len(articles) > params.Limit {
		articles = articles[:params.Limit]
	}
	if articles == nil {
		articles = []models.Article{}
	}

	return map[string]interface{}{
		"section":  res.Section,
		"language": res.Language,
		"category": res.Category,
		"articles": articles,
		"count":    len(articles),
		"total":    total,
	}, nil
}

func (h *Handler) handleListCategories(arguments json.RawMessage) (interface{}, error) {
	var params ListCategoriesParams
	if err := decodeArgs(arguments, &params); err != nil {
		return nil, err
	}

	reg := h.agg.Registry()
	if params.Section == "" {
		return map[string]interface{}{
			"sections": reg.Sections(),
		}, nil
	}
	if params.Language == "" {
		params.Language = "en"
	}

	names, err := reg.Categories(params.Section, params.Language)
	if err != nil {
		return nil, &ToolError{Message: err.Error()}
	}
	return map[string]interface{}{
		"section":    params.Section,
		"language":   params.Language,
		"categories": names,
	}, nil
}

func (h *Handler) handleSummarize(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var params SummarizeArticleParams
	if err := decodeArgs(arguments, &params); err != nil {
		return nil, err
	}
	if h.summarizer == nil {
		return nil, &ToolError{Message: summarize.ErrUnavailable.Error()}
	}

	content := params.Content
	if slug := strings.TrimSpace(params.Slug); slug != "" {
		if h.articles == nil {
			return nil, &ToolError{Message: archive.ErrNotFound.Error()}
		}
		article, err := h.articles.GetBySlug(ctx, slug)
		if err != nil {
			return nil, &ToolError{Message: err.Error()}
		}
		content = article.Content
	}

	result, err := h.summarizer.Summarize(ctx, models.SummaryRequest{
		Content:  content,
		Language: params.Language,
	})
	if err != nil {
		if !errors.Is(err, summarize.ErrEmptyContent) {
			h.logger.Warn("Summarize tool failed", logging.WithField("error", err.Error()))
		}
		return nil, &ToolError{Message: err.Error()}
	}
	return result, nil
}

type ToolError struct {
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}
