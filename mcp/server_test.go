package mcp_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/effective-security/neighborhood/mcp"
	"github.com/effective-security/neighborhood/mcp/transport"
	"github.com/effective-security/neighborhood/mcp/transport/localtransport"
	"github.com/effective-security/neighborhood/tools/commute"
	"github.com/effective-security/neighborhood/tools/demographics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panicTool struct{}

func (panicTool) Name() string                                  { return "panic-tool" }
func (panicTool) Description() string                           { return "Tool that panics" }
func (panicTool) Parameters() any                               { return map[string]any{"type": "object"} }
func (panicTool) Call(_ context.Context, _ string) (string, error) {
	panic("tool exploded")
}

func newServer(t *testing.T) (*mcp.Server, *localtransport.Transport) {
	t.Helper()
	tr := localtransport.New()
	server := mcp.NewServer(tr)
	require.NoError(t, server.RegisterTool(demographics.New()))
	require.NoError(t, server.RegisterTool(commute.New("")))
	require.NoError(t, server.RegisterTool(panicTool{}))
	require.NoError(t, server.Serve(context.Background()))
	return server, tr
}

func roundTrip(t *testing.T, tr *localtransport.Transport, payload string) json.RawMessage {
	t.Helper()
	msg, err := tr.HandleMessage(context.Background(), []byte(payload))
	require.NoError(t, err)
	require.NotNil(t, msg.JsonRpcResponse)
	return msg.JsonRpcResponse.Result
}

func Test_Server_Initialize(t *testing.T) {
	_, tr := newServer(t)

	result := roundTrip(t, tr, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)

	var init mcp.InitializeResponse
	require.NoError(t, json.Unmarshal(result, &init))
	assert.Equal(t, "2024-11-05", init.ProtocolVersion)
	assert.Equal(t, "neighborhood-intelligence", init.ServerInfo.Name)
	assert.Contains(t, init.Capabilities, "tools")
}

func Test_Server_ListTools(t *testing.T) {
	_, tr := newServer(t)

	result := roundTrip(t, tr, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)

	var list mcp.ToolsResponse
	require.NoError(t, json.Unmarshal(result, &list))
	require.Len(t, list.Tools, 3)
	// sorted by name
	assert.Equal(t, "commute", list.Tools[0].Name)
	assert.Equal(t, "demographics", list.Tools[1].Name)
	assert.Equal(t, "panic-tool", list.Tools[2].Name)
	assert.NotNil(t, list.Tools[0].InputSchema)
	assert.NotEmpty(t, list.Tools[0].Description)
}

func Test_Server_CallTool(t *testing.T) {
	_, tr := newServer(t)

	result := roundTrip(t, tr,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"demographics","arguments":{"lat":30.6,"lon":-96.3}}}`)

	var resp mcp.ToolResponse
	require.NoError(t, json.Unmarshal(result, &resp))
	assert.False(t, resp.IsError)
	require.Len(t, resp.Content, 1)
	assert.Equal(t, mcp.ContentTypeText, resp.Content[0].Type)
	assert.Contains(t, resp.Content[0].Text, `"$68,500"`)
	// result text is indented JSON
	assert.Contains(t, resp.Content[0].Text, "\n  ")
}

func Test_Server_CallTool_DefaultsApplied(t *testing.T) {
	_, tr := newServer(t)

	// no arguments at all: the tool applies its documented defaults
	result := roundTrip(t, tr,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"commute"}}`)

	var resp mcp.ToolResponse
	require.NoError(t, json.Unmarshal(result, &resp))
	assert.False(t, resp.IsError)
	assert.Contains(t, resp.Content[0].Text, commute.DefaultDestination)
	assert.Contains(t, resp.Content[0].Text, "15-25 minutes")
}

func Test_Server_CallTool_Unknown(t *testing.T) {
	_, tr := newServer(t)

	result := roundTrip(t, tr,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"nope","arguments":{}}}`)

	var resp mcp.ToolResponse
	require.NoError(t, json.Unmarshal(result, &resp))
	assert.False(t, resp.IsError)
	require.Len(t, resp.Content, 1)
	assert.Equal(t, "Unknown tool: nope", resp.Content[0].Text)
}

func Test_Server_CallTool_Panic(t *testing.T) {
	_, tr := newServer(t)

	result := roundTrip(t, tr,
		`{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"panic-tool","arguments":{}}}`)

	var resp mcp.ToolResponse
	require.NoError(t, json.Unmarshal(result, &resp))
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.Content[0].Text, "Error: tool exploded")
}

func Test_Server_CallTool_BadArguments(t *testing.T) {
	_, tr := newServer(t)

	result := roundTrip(t, tr,
		`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"demographics","arguments":"not an object"}}`)

	var resp mcp.ToolResponse
	require.NoError(t, json.Unmarshal(result, &resp))
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.Content[0].Text, "Error:")
}

func Test_Server_MethodNotFound(t *testing.T) {
	_, tr := newServer(t)

	msg, err := tr.HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","id":8,"method":"prompts/list"}`))
	require.NoError(t, err)
	require.NotNil(t, msg.JsonRpcError)
	assert.Equal(t, transport.ErrCodeMethodNotFound, msg.JsonRpcError.Error.Code)
	assert.Contains(t, msg.JsonRpcError.Error.Message, "prompts/list")
}

func Test_Server_DuplicateRegistration(t *testing.T) {
	tr := localtransport.New()
	server := mcp.NewServer(tr)
	require.NoError(t, server.RegisterTool(demographics.New()))
	err := server.RegisterTool(demographics.New())
	assert.EqualError(t, err, "tool already registered: demographics")

	require.NoError(t, server.DeregisterTool("demographics"))
	assert.EqualError(t, server.DeregisterTool("demographics"), "unknown tool: demographics")
}
