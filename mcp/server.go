// Package mcp exposes registered tools over a JSON-RPC 2.0 server so
// any MCP-speaking host can list and call them.
package mcp

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/neighborhood/mcp/transport"
	"github.com/effective-security/neighborhood/tools"
	"github.com/effective-security/neighborhood/utils"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/neighborhood", "mcp")

const protocolVersion = "2024-11-05"

const (
	methodInitialize  = "initialize"
	methodPing        = "ping"
	methodToolsList   = "tools/list"
	methodToolsCall   = "tools/call"
	methodListChanged = "notifications/tools/list_changed"
)

// ContentTypeText is the only content type this server emits.
const ContentTypeText = "text"

// Content is one block of a tool response.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// NewTextContent creates a text content block.
func NewTextContent(text string) Content {
	return Content{Type: ContentTypeText, Text: text}
}

// ToolResponse is the tools/call result.
type ToolResponse struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// NewToolResponse creates a response from content blocks.
func NewToolResponse(content ...Content) *ToolResponse {
	return &ToolResponse{Content: content}
}

// ToolInfo is one catalog entry of the tools/list result.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"inputSchema"`
}

// ToolsResponse is the tools/list result.
type ToolsResponse struct {
	Tools []ToolInfo `json:"tools"`
}

// ServerInfo identifies the server to the client.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResponse is the initialize result.
type InitializeResponse struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      ServerInfo     `json:"serverInfo"`
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Server dispatches JSON-RPC requests to registered tools.
type Server struct {
	transport transport.Transport

	mu      sync.RWMutex
	tools   map[string]tools.ITool
	started bool

	info ServerInfo
}

// NewServer creates a server over the given transport.
func NewServer(t transport.Transport) *Server {
	return &Server{
		transport: t,
		tools:     make(map[string]tools.ITool),
		info: ServerInfo{
			Name:    "neighborhood-intelligence",
			Version: "1.0.0",
		},
	}
}

// WithInfo overrides the advertised server identity.
func (s *Server) WithInfo(name, version string) *Server {
	s.info = ServerInfo{Name: name, Version: version}
	return s
}

// RegisterTool adds a tool to the catalog. Registering after Serve
// notifies connected clients that the list changed.
func (s *Server) RegisterTool(tool tools.ITool) error {
	s.mu.Lock()
	name := tool.Name()
	if _, ok := s.tools[name]; ok {
		s.mu.Unlock()
		return errors.Errorf("tool already registered: %s", name)
	}
	s.tools[name] = tool
	started := s.started
	s.mu.Unlock()

	if started {
		s.notifyListChanged()
	}
	return nil
}

// DeregisterTool removes a tool from the catalog.
func (s *Server) DeregisterTool(name string) error {
	s.mu.Lock()
	if _, ok := s.tools[name]; !ok {
		s.mu.Unlock()
		return errors.Errorf("unknown tool: %s", name)
	}
	delete(s.tools, name)
	started := s.started
	s.mu.Unlock()

	if started {
		s.notifyListChanged()
	}
	return nil
}

// Serve attaches the message handler and starts the transport. It
// blocks for as long as the transport's Start does.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	s.transport.SetErrorHandler(func(err error) {
		logger.KV(xlog.WARNING, "reason", "transport_error", "err", err.Error())
	})
	s.transport.SetMessageHandler(s.handleMessage)
	return s.transport.Start(ctx)
}

// Close shuts the transport down.
func (s *Server) Close() error {
	return s.transport.Close()
}

func (s *Server) handleMessage(ctx context.Context, msg *transport.BaseJsonRpcMessage) {
	switch msg.Type {
	case transport.BaseMessageTypeJSONRPCNotificationType:
		// Nothing to do for notifications/initialized and friends.
		logger.ContextKV(ctx, xlog.DEBUG, "notification", msg.JsonRpcNotification.Method)
	case transport.BaseMessageTypeJSONRPCRequestType:
		s.handleRequest(ctx, msg.JsonRpcRequest)
	default:
		logger.ContextKV(ctx, xlog.DEBUG, "ignored", msg.Type)
	}
}

func (s *Server) handleRequest(ctx context.Context, req *transport.BaseJSONRPCRequest) {
	var result any
	switch req.Method {
	case methodInitialize:
		result = s.handleInitialize()
	case methodPing:
		result = map[string]any{}
	case methodToolsList:
		result = s.handleListTools()
	case methodToolsCall:
		result = s.handleToolCall(ctx, req.Params)
	default:
		s.sendError(ctx, req.Id, transport.ErrCodeMethodNotFound, "method not found: "+req.Method)
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		s.sendError(ctx, req.Id, transport.ErrCodeInternalError, err.Error())
		return
	}
	err = s.transport.Send(ctx, transport.NewBaseMessageResponse(&transport.BaseJSONRPCResponse{
		Jsonrpc: transport.ProtocolVersion,
		Id:      req.Id,
		Result:  raw,
	}))
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING, "reason", "send_failed", "err", err.Error())
	}
}

func (s *Server) handleInitialize() InitializeResponse {
	return InitializeResponse{
		ProtocolVersion: protocolVersion,
		Capabilities: map[string]any{
			"tools": map[string]any{"listChanged": true},
		},
		ServerInfo: s.info,
	}
}

func (s *Server) handleListTools() ToolsResponse {
	s.mu.RLock()
	list := make([]ToolInfo, 0, len(s.tools))
	for _, tool := range s.tools {
		list = append(list, ToolInfo{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.Parameters(),
		})
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return ToolsResponse{Tools: list}
}

// handleToolCall never surfaces a protocol error for tool failures:
// unknown tools, bad arguments, tool errors and panics all come back
// as text content so the calling model can read and react to them.
func (s *Server) handleToolCall(ctx context.Context, params json.RawMessage) (resp *ToolResponse) {
	defer func() {
		if r := recover(); r != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "tool_panic", "r", r)
			resp = &ToolResponse{
				Content: []Content{NewTextContent(errors.Errorf("Error: %v", r).Error())},
				IsError: true,
			}
		}
	}()

	var call toolCallParams
	if err := json.Unmarshal(params, &call); err != nil {
		return &ToolResponse{
			Content: []Content{NewTextContent("Error: " + err.Error())},
			IsError: true,
		}
	}

	s.mu.RLock()
	tool := s.tools[call.Name]
	s.mu.RUnlock()
	if tool == nil {
		return NewToolResponse(NewTextContent("Unknown tool: " + call.Name))
	}

	args := string(call.Arguments)
	if args == "" {
		args = "{}"
	}
	out, err := tool.Call(ctx, args)
	if err != nil {
		return &ToolResponse{
			Content: []Content{NewTextContent("Error: " + err.Error())},
			IsError: true,
		}
	}
	return NewToolResponse(NewTextContent(utils.JSONIndent(out)))
}

func (s *Server) sendError(ctx context.Context, id transport.RequestId, code int, message string) {
	err := s.transport.Send(ctx, transport.NewBaseMessageError(&transport.BaseJSONRPCError{
		Jsonrpc: transport.ProtocolVersion,
		Id:      id,
		Error: transport.JSONRPCErrorDetail{
			Code:    code,
			Message: message,
		},
	}))
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING, "reason", "send_failed", "err", err.Error())
	}
}

func (s *Server) notifyListChanged() {
	err := s.transport.Send(context.Background(), transport.NewBaseMessageNotification(&transport.BaseJSONRPCNotification{
		Jsonrpc: transport.ProtocolVersion,
		Method:  methodListChanged,
	}))
	if err != nil {
		logger.KV(xlog.DEBUG, "reason", "notify_failed", "err", err.Error())
	}
}
