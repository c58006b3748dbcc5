package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/johnrirwin/dailylens/internal/aggregator"
	"github.com/johnrirwin/dailylens/internal/archive"
	"github.com/johnrirwin/dailylens/internal/models"
	"github.com/johnrirwin/dailylens/internal/normalize"
	"github.com/johnrirwin/dailylens/internal/registry"
	"github.com/johnrirwin/dailylens/internal/summarize"
	"github.com/johnrirwin/dailylens/internal/testutil"
)

const testCatalog = `
sections:
  - name: news
    languages:
      - code: en
        categories:
          - name: World
            feeds: https://feeds.example.com/world.rss
          - name: Business
            feeds: https://feeds.example.com/business.rss
`

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, url string) (*models.ParsedFeed, error) {
	items := make([]models.RawFeedItem, 0, 3)
	for i, title := range []string{"One", "Two", "Three"} {
		items = append(items, models.RawFeedItem{
			Title:   title,
			Link:    "https://example.com/story/" + strings.ToLower(title),
			GUID:    title,
			Content: "Body of " + title + " " + string(rune('a'+i)),
		})
	}
	return &models.ParsedFeed{URL: url, Title: "Example", Items: items}, nil
}

type echoSummarizer struct{}

func (echoSummarizer) Summarize(_ context.Context, req models.SummaryRequest) (*models.SummaryResult, error) {
	if req.Content == "" {
		return nil, summarize.ErrEmptyContent
	}
	return &models.SummaryResult{Summary: "summary of: " + req.Content, Sentiment: "neutral"}, nil
}

func newTestServer(t *testing.T, summarizer summarize.Summarizer) (*Server, *archive.MemoryStore) {
	t.Helper()

	file, err := registry.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatal(err)
	}
	reg, err := registry.New(file)
	if err != nil {
		t.Fatal(err)
	}

	logger := testutil.NullLogger()
	store := archive.NewMemoryStore(10)
	agg := aggregator.New(reg, stubFetcher{}, normalize.New(nil), nil, store, aggregator.Config{}, logger)
	return NewServer(NewHandler(agg, store, summarizer, logger), logger), store
}

func serve(t *testing.T, s *Server, lines ...string) []Response {
	t.Helper()

	var out strings.Builder
	in := strings.NewReader(strings.Join(lines, "\n"))
	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	var responses []Response
	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for scanner.Scan() {
		var resp Response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("bad response line %q: %v", scanner.Text(), err)
		}
		responses = append(responses, resp)
	}
	return responses
}

// toolText extracts the JSON text payload of a tools/call result.
func toolText(t *testing.T, resp Response) (string, bool) {
	t.Helper()
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatal(err)
	}
	var result CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Content) != 1 {
		t.Fatalf("content items = %d, want 1", len(result.Content))
	}
	return result.Content[0].Text, result.IsError
}

func TestServe_Handshake(t *testing.T) {
	s, _ := newTestServer(t, nil)

	responses := serve(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":4,"method":"resources/list"}`,
		`not json`,
	)

	if len(responses) != 5 {
		t.Fatalf("responses = %d, want 5", len(responses))
	}
	if responses[0].Error != nil {
		t.Errorf("initialize error = %+v", responses[0].Error)
	}

	raw, _ := json.Marshal(responses[1].Result)
	var list ToolsListResult
	if err := json.Unmarshal(raw, &list); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	if got := strings.Join(names, ","); got != "get_articles,list_categories,summarize_article" {
		t.Errorf("tools = %s", got)
	}

	if responses[2].Error != nil {
		t.Errorf("ping error = %+v", responses[2].Error)
	}
	if responses[3].Error == nil || responses[3].Error.Code != codeMethodNotFound {
		t.Errorf("unknown method response = %+v", responses[3])
	}
	if responses[4].Error == nil || responses[4].Error.Code != codeParseError {
		t.Errorf("parse error response = %+v", responses[4])
	}
}

func TestServe_ProtocolErrors(t *testing.T) {
	s, _ := newTestServer(t, nil)

	responses := serve(t, s,
		`{"jsonrpc":"1.0","id":"a","method":"ping"}`,
		`{"jsonrpc":"2.0","id":"b"}`,
		`{"jsonrpc":"2.0","method":"tools/list"}`,
		`{"jsonrpc":"2.0","method":"unknown/notification"}`,
		`{"jsonrpc":"2.0","id":"c","method":"tools/call","params":{"arguments":{}}}`,
		`{"jsonrpc":"2.0","id":"d","method":"tools/call","params":"oops"}`,
	)

	tests := []struct {
		id   string
		code int
	}{
		{`"a"`, codeInvalidRequest},
		{`"b"`, codeInvalidRequest},
		{`"c"`, codeInvalidParams},
		{`"d"`, codeInvalidParams},
	}
	if len(responses) != len(tests) {
		t.Fatalf("responses = %d, want %d (notifications must not be answered)", len(responses), len(tests))
	}
	for i, tt := range tests {
		if string(responses[i].ID) != tt.id {
			t.Errorf("response %d id = %s, want %s", i, responses[i].ID, tt.id)
		}
		if responses[i].Error == nil || responses[i].Error.Code != tt.code {
			t.Errorf("response %d error = %+v, want code %d", i, responses[i].Error, tt.code)
		}
	}
}

func TestServe_InitializeAdvertisesServer(t *testing.T) {
	s, _ := newTestServer(t, nil)

	responses := serve(t, s,
		`{"jsonrpc":"2.0","id":7,"method":"initialize","params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"inspector","version":"0.1"}}}`,
	)
	if len(responses) != 1 {
		t.Fatalf("responses = %d, want 1", len(responses))
	}

	raw, _ := json.Marshal(responses[0].Result)
	var init InitializeResult
	if err := json.Unmarshal(raw, &init); err != nil {
		t.Fatal(err)
	}
	if init.ServerInfo.Name != "dailylens" || init.ProtocolVersion != protocolVersion {
		t.Errorf("initialize result = %+v", init)
	}
	if init.Capabilities.Tools == nil {
		t.Error("tools capability should be advertised")
	}
	if string(responses[0].ID) != "7" {
		t.Errorf("id = %s, want 7", responses[0].ID)
	}
}

func TestServe_StopsOnCanceledContext(t *testing.T) {
	s, _ := newTestServer(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out strings.Builder
	err := s.Serve(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &out)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
	if out.Len() != 0 {
		t.Errorf("output = %q, want nothing after cancel", out.String())
	}
}

func TestGetArticlesTool(t *testing.T) {
	s, _ := newTestServer(t, nil)

	responses := serve(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_articles","arguments":{"category":"Business","limit":2}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_articles","arguments":{"category":"Weather"}}}`,
	)
	if len(responses) != 2 {
		t.Fatalf("responses = %d, want 2", len(responses))
	}

	text, isErr := toolText(t, responses[0])
	if isErr {
		t.Fatalf("get_articles failed: %s", text)
	}
	var payload struct {
		Category string           `json:"category"`
		Articles []models.Article `json:"articles"`
		Count    int              `json:"count"`
		Total    int              `json:"total"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Category != "Business" || payload.Count != 2 || payload.Total != 3 {
		t.Errorf("payload = %+v", payload)
	}
	if len(payload.Articles) != 2 {
		t.Errorf("articles = %d, want 2", len(payload.Articles))
	}

	if text, isErr := toolText(t, responses[1]); !isErr || !strings.Contains(text, "invalid category") {
		t.Errorf("unknown category result = %s (isError=%v)", text, isErr)
	}
}

func TestListCategoriesTool(t *testing.T) {
	h := newHandler(t, nil)

	result, err := h.HandleToolCall(context.Background(), "list_categories", json.RawMessage(`{"section":"news","lang":"en"}`))
	if err != nil {
		t.Fatal(err)
	}
	got := result.(map[string]interface{})["categories"].([]string)
	if strings.Join(got, ",") != "World,Business" {
		t.Errorf("categories = %v", got)
	}

	result, err = h.HandleToolCall(context.Background(), "list_categories", nil)
	if err != nil {
		t.Fatal(err)
	}
	sections := result.(map[string]interface{})["sections"].([]registry.SectionInfo)
	if len(sections) != 1 || sections[0].Name != "news" {
		t.Errorf("sections = %+v", sections)
	}

	if _, err := h.HandleToolCall(context.Background(), "list_categories", json.RawMessage(`{"section":"sports"}`)); err == nil {
		t.Error("expected error for unknown section")
	}
}

func TestSummarizeArticleTool(t *testing.T) {
	h := newHandler(t, echoSummarizer{})
	ctx := context.Background()

	if _, err := h.HandleToolCall(ctx, "get_articles", json.RawMessage(`{"category":"World"}`)); err != nil {
		t.Fatal(err)
	}

	result, err := h.HandleToolCall(ctx, "summarize_article", json.RawMessage(`{"slug":"one"}`))
	if err != nil {
		t.Fatalf("summarize by slug: %v", err)
	}
	if got := result.(*models.SummaryResult).Summary; got != "summary of: Body of One a" {
		t.Errorf("Summary = %q", got)
	}

	result, err = h.HandleToolCall(ctx, "summarize_article", json.RawMessage(`{"content":"plain text"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := result.(*models.SummaryResult).Summary; got != "summary of: plain text" {
		t.Errorf("Summary = %q", got)
	}

	_, err = h.HandleToolCall(ctx, "summarize_article", json.RawMessage(`{"slug":"missing"}`))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("missing slug error = %v", err)
	}

	_, err = h.HandleToolCall(ctx, "summarize_article", json.RawMessage(`{}`))
	if err == nil {
		t.Error("expected error for empty content")
	}
}

func TestSummarizeArticleTool_Unavailable(t *testing.T) {
	h := newHandler(t, nil)

	_, err := h.HandleToolCall(context.Background(), "summarize_article", json.RawMessage(`{"content":"x"}`))
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("error = %v, want *ToolError", err)
	}
}

func TestHandleToolCall_Errors(t *testing.T) {
	h := newHandler(t, nil)

	tests := []struct {
		name string
		tool string
		args string
	}{
		{"unknown tool", "get_drone_news", `{}`},
		{"bad arguments", "get_articles", `{"limit":"ten"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.HandleToolCall(context.Background(), tt.tool, json.RawMessage(tt.args)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func newHandler(t *testing.T, summarizer summarize.Summarizer) *Handler {
	s, _ := newTestServer(t, summarizer)
	return s.handler
}
