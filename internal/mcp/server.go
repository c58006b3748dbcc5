package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/johnrirwin/dailylens/internal/logging"
)

const (
	protocolVersion = "2024-11-05"
	serverName      = "dailylens"
	serverVersion   = "1.0.0"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// Server speaks MCP over newline-delimited JSON-RPC 2.0.
type Server struct {
	handler *Handler
	logger  *logging.Logger
}

func NewServer(handler *Handler, logger *logging.Logger) *Server {
	return &Server{
		handler: handler,
		logger:  logger,
	}
}

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// isNotification reports whether the caller expects no reply.
func (r Request) isNotification() bool {
	return len(r.ID) == 0 || strings.HasPrefix(r.Method, "notifications/")
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type InitializeParams struct {
	ProtocolVersion string     `json:"protocolVersion"`
	ClientInfo      ServerInfo `json:"clientInfo"`
}

type InitializeResult struct {
	ProtocolVersion string     `json:"protocolVersion"`
	ServerInfo      ServerInfo `json:"serverInfo"`
	Capabilities    Caps       `json:"capabilities"`
	Instructions    string     `json:"instructions,omitempty"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Caps struct {
	Tools *ToolsCap `json:"tools,omitempty"`
}

type ToolsCap struct {
	ListChanged bool `json:"listChanged"`
}

type ToolsListResult struct {
	Tools []ToolDefinition `json:"tools"`
}

type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type CallToolResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func result(id json.RawMessage, v interface{}) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: v}
}

func rpcError(id json.RawMessage, code int, message string) *Response {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}

// Run serves JSON-RPC requests on stdin and writes responses to stdout.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads newline-delimited JSON-RPC requests from r until EOF or ctx is
// done. Notifications produce no output.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)

	s.logger.Info("MCP server ready", logging.WithFields(map[string]interface{}{
		"protocol": protocolVersion,
		"tools":    len(s.handler.GetTools()),
	}))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			if werr := s.respond(ctx, w, line); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			s.logger.Info("MCP client closed the stream")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}
	}
}

func (s *Server) respond(ctx context.Context, w io.Writer, line []byte) error {
	response := s.handleRequest(ctx, line)
	if response == nil {
		return nil
	}

	data, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("Failed to marshal MCP response", logging.WithField("error", err.Error()))
		data, _ = json.Marshal(rpcError(response.ID, codeInternalError, "Internal error"))
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func (s *Server) handleRequest(ctx context.Context, data []byte) *Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return rpcError(nil, codeParseError, "Parse error")
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		if req.isNotification() {
			return nil
		}
		return rpcError(req.ID, codeInvalidRequest, "Invalid request")
	}

	s.logger.Debug("MCP request", logging.WithFields(map[string]interface{}{
		"method": req.Method,
		"id":     string(req.ID),
	}))

	if req.isNotification() {
		return nil
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "tools/list":
		return result(req.ID, ToolsListResult{Tools: s.handler.GetTools()})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return result(req.ID, map[string]interface{}{})
	default:
		return rpcError(req.ID, codeMethodNotFound, "Method not found: "+req.Method)
	}
}

func (s *Server) handleInitialize(req Request) *Response {
	var params InitializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return rpcError(req.ID, codeInvalidParams, "Invalid params: "+err.Error())
		}
	}

	s.logger.Info("MCP client connected", logging.WithFields(map[string]interface{}{
		"client":             params.ClientInfo.Name,
		"client_version":     params.ClientInfo.Version,
		"requested_protocol": params.ProtocolVersion,
	}))

	return result(req.ID, InitializeResult{
		ProtocolVersion: protocolVersion,
		ServerInfo:      ServerInfo{Name: serverName, Version: serverVersion},
		Capabilities:    Caps{Tools: &ToolsCap{ListChanged: false}},
		Instructions:    "Use list_categories to discover sections and categories, get_articles to read them, and summarize_article on a returned slug.",
	})
}

// handleToolsCall reports tool failures inside the result with isError set,
// so the model sees them; only malformed calls are JSON-RPC errors.
func (s *Server) handleToolsCall(ctx context.Context, req Request) *Response {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		msg := "Invalid params: tool name is required"
		if err != nil {
			msg = "Invalid params: " + err.Error()
		}
		return rpcError(req.ID, codeInvalidParams, msg)
	}

	out, err := s.handler.HandleToolCall(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Debug("MCP tool failed", logging.WithFields(map[string]interface{}{
			"tool":  params.Name,
			"error": err.Error(),
		}))
		return result(req.ID, toolResult(map[string]string{"error": err.Error()}, true))
	}
	return result(req.ID, toolResult(out, false))
}

func toolResult(v interface{}, isError bool) CallToolResult {
	text, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		text = []byte(fmt.Sprintf(`{"error": %q}`, err.Error()))
		isError = true
	}
	return CallToolResult{
		Content: []ContentItem{{Type: "text", Text: string(text)}},
		IsError: isError,
	}
}
