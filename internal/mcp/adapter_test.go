package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/pubsub"
	"github.com/zjrosen/dispatch/internal/registry"
)

func testAdapter(t *testing.T) (*Adapter, *atomic.Int64) {
	t.Helper()
	reg := registry.New()
	calls := &atomic.Int64{}

	reg.MustRegister(
		command.NewDefinition("todo-create").
			Description("Create a new todo").
			Category("todo").
			Mutation().
			Schema(command.NewObjectSchema(
				command.Field{Name: "title", Type: command.FieldString, Required: true},
			)).
			Handler(func(ctx context.Context, input any, ec *command.ExecutionContext) command.Result {
				calls.Add(1)
				return command.Success(map[string]any{"id": "t1", "title": input.(map[string]any)["title"]})
			}).
			MustBuild(),
		command.NewDefinition("todo-delete").
			Description("Delete a todo").
			Category("todo").
			Mutation().
			Destructive("Really delete?").
			Schema(command.NewObjectSchema(
				command.Field{Name: "id", Type: command.FieldString, Required: true},
			)).
			Handler(func(ctx context.Context, input any, ec *command.ExecutionContext) command.Result {
				return command.Failure(command.NotFound("Todo", "missing"))
			}).
			MustBuild(),
		command.NewDefinition("internal-only").
			Description("Hidden from MCP").
			Category("internal").
			Expose(command.SurfaceMCP, false).
			Schema(command.EmptySchema()).
			Handler(func(ctx context.Context, input any, ec *command.ExecutionContext) command.Result {
				calls.Add(1)
				return command.Success(nil)
			}).
			MustBuild(),
	)

	return NewAdapter(reg, AdapterConfig{
		Info:         ServerInfo{Name: "dispatch-test", Version: "1.2.3"},
		Instructions: "Call registry-help first.",
	}), calls
}

func handle(t *testing.T, a *Adapter, msg string) Response {
	t.Helper()
	raw := a.HandleMessage(context.Background(), []byte(msg))
	require.NotNil(t, raw)

	var resp Response
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

func TestAdapter_Initialize(t *testing.T) {
	a, _ := testAdapter(t)
	resp := handle(t, a, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]any)
	require.Equal(t, ProtocolVersion, result["protocolVersion"])
	require.Contains(t, result["capabilities"], "tools")
	require.Equal(t, "dispatch-test", result["serverInfo"].(map[string]any)["name"])
	require.Equal(t, "Call registry-help first.", result["instructions"])
	require.True(t, a.Initialized())

	// Idempotent
	again := handle(t, a, `{"jsonrpc":"2.0","id":2,"method":"initialize","params":{}}`)
	require.Nil(t, again.Error)
}

func TestAdapter_Ping(t *testing.T) {
	a, _ := testAdapter(t)
	resp := handle(t, a, `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	require.Nil(t, resp.Error)
	require.Equal(t, map[string]any{}, resp.Result)
}

func TestAdapter_ToolsList(t *testing.T) {
	a, _ := testAdapter(t)
	resp := handle(t, a, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result ListToolsResult
	require.NoError(t, json.Unmarshal(raw, &result))

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	require.Contains(t, names, "todo-create")
	require.Contains(t, names, "todo-delete")
	require.NotContains(t, names, "internal-only")

	for _, tool := range result.Tools {
		require.NotNil(t, tool.Annotations)
		require.Equal(t, "object", tool.InputSchema["type"])
		switch tool.Name {
		case "todo-create":
			require.False(t, tool.Annotations.ReadOnlyHint)
			require.False(t, tool.Annotations.DestructiveHint)
		case "todo-delete":
			require.False(t, tool.Annotations.ReadOnlyHint)
			require.True(t, tool.Annotations.DestructiveHint)
		}
	}
}

func TestAdapter_ToolsCall_Success(t *testing.T) {
	a, _ := testAdapter(t)
	resp := handle(t, a,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"todo-create","arguments":{"title":"Buy milk"}}}`)
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result CallToolResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	require.Equal(t, "text", result.Content[0].Type)

	var inner command.Result
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &inner))
	require.True(t, inner.Success)
	require.NotNil(t, inner.Metadata)
	require.NotEmpty(t, inner.Metadata.TraceID)
}

func TestAdapter_ToolsCall_CommandFailureIsNotRPCError(t *testing.T) {
	a, _ := testAdapter(t)
	resp := handle(t, a,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"todo-delete","arguments":{"id":"missing"}}}`)
	require.Nil(t, resp.Error, "command failures travel inside the tool result")

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result CallToolResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.True(t, result.IsError)

	var inner command.Result
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &inner))
	require.False(t, inner.Success)
	require.Equal(t, command.CodeNotFound, inner.Error.Code)
}

func TestAdapter_ToolsCall_UnknownToolInsideResult(t *testing.T) {
	a, _ := testAdapter(t)
	resp := handle(t, a,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"nope","arguments":{}}}`)
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result CallToolResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.True(t, result.IsError)
	require.Contains(t, result.Content[0].Text, command.CodeCommandNotFound)
}

func TestAdapter_ToolsCall_NotExposedHandlerNeverRuns(t *testing.T) {
	a, calls := testAdapter(t)
	resp := handle(t, a,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"internal-only","arguments":{}}}`)
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result CallToolResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.True(t, result.IsError)
	require.Contains(t, result.Content[0].Text, command.CodeCommandNotExposed)
	require.Zero(t, calls.Load())
}

func TestAdapter_ToolsCall_MissingName(t *testing.T) {
	a, _ := testAdapter(t)
	resp := handle(t, a, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{}}`)
	require.NotNil(t, resp.Error)
	require.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestAdapter_UnknownMethod(t *testing.T) {
	a, _ := testAdapter(t)
	resp := handle(t, a, `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`)
	require.NotNil(t, resp.Error)
	require.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestAdapter_ParseError(t *testing.T) {
	a, _ := testAdapter(t)
	resp := handle(t, a, `{not json`)
	require.NotNil(t, resp.Error)
	require.Equal(t, CodeParseError, resp.Error.Code)
}

func TestAdapter_NotificationsGetNoResponse(t *testing.T) {
	a, _ := testAdapter(t)
	require.Nil(t, a.HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)))
	require.Nil(t, a.HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","method":"notifications/cancelled","params":{}}`)))
}

func TestAdapter_PublishesToolCallEvents(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(
		command.NewDefinition("echo").
			Description("echo").
			Category("test").
			Schema(command.EmptySchema()).
			Handler(func(ctx context.Context, input any, ec *command.ExecutionContext) command.Result {
				return command.Success(nil)
			}).
			MustBuild(),
	)

	broker := pubsub.NewBroker[ToolCallEvent]()
	defer broker.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := broker.Subscribe(ctx)

	a := NewAdapter(reg, AdapterConfig{Events: broker})
	a.HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo"}}`))

	select {
	case event := <-events:
		require.Equal(t, pubsub.ExecutedEvent, event.Type)
		require.Equal(t, "echo", event.Payload.Tool)
		require.False(t, event.Payload.IsError)
	case <-time.After(time.Second):
		t.Fatal("no tool-call event published")
	}
}

func TestStdioServer_RoundTrip(t *testing.T) {
	a, _ := testAdapter(t)

	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	}, "\n") + "\n")
	var out strings.Builder

	server := NewStdioServerWithIO(a, in, &out)
	require.NoError(t, server.Serve(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2, "notification must not produce a response")

	var first Response
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Equal(t, json.RawMessage("1"), first.ID)
	var second Response
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	require.Equal(t, json.RawMessage("2"), second.ID)
}

func TestHTTPServer_Messages(t *testing.T) {
	a, _ := testAdapter(t)
	server := NewHTTPServer(a, "127.0.0.1:0", nil)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	body := `{"jsonrpc":"2.0","id":1,"method":"ping"}`
	resp, err := ts.Client().Post(ts.URL+"/mcp/messages", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var rpcResp Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpcResp))
	require.Nil(t, rpcResp.Error)
}

func TestHTTPServer_Health(t *testing.T) {
	a, _ := testAdapter(t)
	server := NewHTTPServer(a, "127.0.0.1:0", nil)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.Equal(t, "ok", health["status"])
	require.Equal(t, "dispatch-test", health["name"])
}

func TestHTTPServer_SSE(t *testing.T) {
	a, _ := testAdapter(t)
	broker := pubsub.NewBroker[ToolCallEvent]()
	defer broker.Close()

	server := NewHTTPServer(a, "127.0.0.1:0", broker)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/mcp/sse", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Give the subscription time to register, then publish.
	time.Sleep(50 * time.Millisecond)
	broker.Publish(pubsub.ExecutedEvent, ToolCallEvent{Tool: "echo", DurationMs: 1.5})

	buf := make([]byte, 4096)
	n, err := resp.Body.Read(buf)
	require.NoError(t, err)
	require.Contains(t, string(buf[:n]), "event: executed")
	require.Contains(t, string(buf[:n]), `"tool":"echo"`)
}
