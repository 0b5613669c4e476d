package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentworkforce/workspacestate/internal/workspacestate"
)

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type toolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func newTestServer(t *testing.T) (*Server, *workspacestate.Store) {
	t.Helper()
	store := workspacestate.NewStore(workspacestate.StoreOptions{
		Backend: workspacestate.NewJSONFileStateBackend(filepath.Join(t.TempDir(), "workspace-state.json")),
		Logger:  slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Now:     func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	srv, err := New(Options{Store: store, Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))})
	require.NoError(t, err)

	resp := rpc(t, srv, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "test", "version": "0"},
	})
	require.Nil(t, resp.Error)
	return srv, store
}

func rpc(t *testing.T, srv *Server, method string, params any) rpcResponse {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)
	out := srv.MCPServer().HandleMessage(context.Background(), raw)
	data, err := json.Marshal(out)
	require.NoError(t, err)
	var resp rpcResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) toolResult {
	t.Helper()
	resp := rpc(t, srv, "tools/call", map[string]any{"name": name, "arguments": args})
	require.Nil(t, resp.Error, "unexpected rpc error")
	var result toolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.NotEmpty(t, result.Content)
	return result
}

func TestToolsList(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := rpc(t, srv, "tools/list", map[string]any{})
	require.Nil(t, resp.Error)

	var listed struct {
		Tools []struct {
			Name        string          `json:"name"`
			Description string          `json:"description"`
			InputSchema json.RawMessage `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &listed))

	descriptions := map[string]string{}
	for _, tool := range listed.Tools {
		descriptions[tool.Name] = tool.Description
	}
	assert.Equal(t, map[string]string{
		"track_workspace":   "Track workspace initialization or updates",
		"record_metric":     "Record a workspace metric",
		"update_compliance": "Update compliance status",
	}, descriptions)
}

func TestGenerateSchemaRequiredFields(t *testing.T) {
	var schema struct {
		Type       string   `json:"type"`
		Required   []string `json:"required"`
		Properties map[string]struct {
			Type        string   `json:"type"`
			Enum        []string `json:"enum"`
			Description string   `json:"description"`
		} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(GenerateSchema[TrackWorkspaceArgs](), &schema))
	assert.Equal(t, "object", schema.Type)
	assert.ElementsMatch(t, []string{"workspacePath", "action"}, schema.Required)
	assert.Equal(t, []string{"init", "sync", "audit"}, schema.Properties["action"].Enum)
	assert.Equal(t, "Path to the workspace", schema.Properties["workspacePath"].Description)
	assert.Equal(t, "object", schema.Properties["metadata"].Type)

	require.NoError(t, json.Unmarshal(GenerateSchema[RecordMetricArgs](), &schema))
	assert.ElementsMatch(t, []string{"workspacePath", "metricName", "value"}, schema.Required)
	assert.Equal(t, "number", schema.Properties["value"].Type)
}

func TestTrackWorkspaceTool(t *testing.T) {
	srv, store := newTestServer(t)

	result := callTool(t, srv, "track_workspace", map[string]any{
		"workspacePath": "/w",
		"action":        "init",
		"metadata":      map[string]any{"by": "ci"},
	})
	assert.False(t, result.IsError)
	assert.Equal(t, "Tracked init for workspace: /w", result.Content[0].Text)

	ws := store.Load(context.Background()).Workspaces[workspacestate.DeriveKey("/w")]
	require.NotNil(t, ws)
	assert.Equal(t, map[string]any{"by": "ci"}, ws.Actions[0].Metadata)
}

func TestRecordMetricTool(t *testing.T) {
	srv, _ := newTestServer(t)

	result := callTool(t, srv, "record_metric", map[string]any{
		"workspacePath": "/w",
		"metricName":    "coverage",
		"value":         87.5,
	})
	assert.False(t, result.IsError)
	assert.Equal(t, "Recorded coverage = 87.5 for /w", result.Content[0].Text)
}

func TestUpdateComplianceTool(t *testing.T) {
	srv, store := newTestServer(t)

	result := callTool(t, srv, "update_compliance", map[string]any{
		"workspacePath": "/w",
		"category":      "security",
		"status":        "warn",
		"issues":        []string{"outdated dependency"},
	})
	assert.False(t, result.IsError)
	assert.Equal(t, "Updated security compliance status to warn for /w", result.Content[0].Text)

	entry := store.Load(context.Background()).ComplianceStatus[workspacestate.DeriveKey("/w")]["security"]
	assert.Equal(t, []string{"outdated dependency"}, entry.Issues)
}

func TestToolArgumentValidation(t *testing.T) {
	srv, store := newTestServer(t)

	cases := map[string]struct {
		tool string
		args map[string]any
	}{
		"unknown action":   {tool: "track_workspace", args: map[string]any{"workspacePath": "/w", "action": "deploy"}},
		"missing path":     {tool: "track_workspace", args: map[string]any{"action": "init"}},
		"string value":     {tool: "record_metric", args: map[string]any{"workspacePath": "/w", "metricName": "m", "value": "high"}},
		"missing value":    {tool: "record_metric", args: map[string]any{"workspacePath": "/w", "metricName": "m"}},
		"unknown status":   {tool: "update_compliance", args: map[string]any{"workspacePath": "/w", "category": "c", "status": "maybe"}},
		"issues not array": {tool: "update_compliance", args: map[string]any{"workspacePath": "/w", "category": "c", "status": "pass", "issues": "x"}},
		"no arguments":     {tool: "record_metric", args: nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			result := callTool(t, srv, tc.tool, tc.args)
			assert.True(t, result.IsError)
			assert.Contains(t, result.Content[0].Text, "invalid arguments for "+tc.tool)
		})
	}

	doc := store.Load(context.Background())
	assert.Empty(t, doc.Workspaces)
	assert.Empty(t, doc.Metrics)
	assert.Empty(t, doc.ComplianceStatus)
}

func TestStoreErrorsBecomeToolErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	result := callTool(t, srv, "track_workspace", map[string]any{"workspacePath": "  ", "action": "init"})
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "invalid input")
}

func TestUnknownTool(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := rpc(t, srv, "tools/call", map[string]any{"name": "delete_workspace", "arguments": map[string]any{}})
	require.NotNil(t, resp.Error)
}

func TestResourcesList(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := rpc(t, srv, "resources/list", map[string]any{})
	require.Nil(t, resp.Error)

	var listed struct {
		Resources []workspacestate.ResourceDescriptor `json:"resources"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &listed))
	assert.ElementsMatch(t, workspacestate.Resources(), listed.Resources)
}

func TestResourceRead(t *testing.T) {
	srv, _ := newTestServer(t)
	callTool(t, srv, "track_workspace", map[string]any{"workspacePath": "/w", "action": "sync"})

	resp := rpc(t, srv, "resources/read", map[string]any{"uri": "workspace://state"})
	require.Nil(t, resp.Error)
	var read struct {
		Contents []struct {
			URI      string `json:"uri"`
			MIMEType string `json:"mimeType"`
			Text     string `json:"text"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &read))
	require.Len(t, read.Contents, 1)
	assert.Equal(t, "workspace://state", read.Contents[0].URI)
	assert.Equal(t, "application/json", read.Contents[0].MIMEType)

	var workspaces map[string]workspacestate.Workspace
	require.NoError(t, json.Unmarshal([]byte(read.Contents[0].Text), &workspaces))
	assert.Equal(t, "/w", workspaces[workspacestate.DeriveKey("/w")].Path)

	resp = rpc(t, srv, "resources/read", map[string]any{"uri": "workspace://compliance"})
	require.Nil(t, resp.Error)
	require.NoError(t, json.Unmarshal(resp.Result, &read))
	assert.Equal(t, "{}", read.Contents[0].Text)
}

func TestResourceReadUnknown(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := rpc(t, srv, "resources/read", map[string]any{"uri": "workspace://secrets"})
	require.NotNil(t, resp.Error)
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

// recordingSession is an initialized client session that buffers the
// notifications sent to it.
type recordingSession struct {
	id            string
	notifications chan mcp.JSONRPCNotification
}

func newRecordingSession(t *testing.T, srv *Server) *recordingSession {
	t.Helper()
	session := &recordingSession{
		id:            "recording-" + t.Name(),
		notifications: make(chan mcp.JSONRPCNotification, 16),
	}
	require.NoError(t, srv.MCPServer().RegisterSession(context.Background(), session))
	t.Cleanup(func() { srv.MCPServer().UnregisterSession(context.Background(), session.id) })
	return session
}

func (s *recordingSession) Initialize()       {}
func (s *recordingSession) Initialized() bool { return true }
func (s *recordingSession) SessionID() string { return s.id }
func (s *recordingSession) NotificationChannel() chan<- mcp.JSONRPCNotification {
	return s.notifications
}

func TestStoreChangesNotifyClients(t *testing.T) {
	srv, _ := newTestServer(t)
	session := newRecordingSession(t, srv)

	result := callTool(t, srv, "track_workspace", map[string]any{"workspacePath": "/w", "action": "init"})
	require.False(t, result.IsError)

	select {
	case n := <-session.notifications:
		assert.Equal(t, methodResourcesListChanged, n.Method)
	case <-time.After(time.Second):
		t.Fatal("expected a resource change notification")
	}

	result = callTool(t, srv, "track_workspace", map[string]any{"workspacePath": "/w", "action": "bogus"})
	require.True(t, result.IsError)
	select {
	case n := <-session.notifications:
		t.Fatalf("rejected call should not notify, got %s", n.Method)
	default:
	}
}

func TestExternalEditsNotifyClients(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workspace-state.json")
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	store := workspacestate.NewStore(workspacestate.StoreOptions{
		Backend: workspacestate.NewJSONFileStateBackend(path),
		Logger:  logger,
	})
	srv, err := New(Options{Store: store, Logger: logger, WatchPath: path})
	require.NoError(t, err)
	session := newRecordingSession(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	in, inWriter := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, in, io.Discard)
	}()
	t.Cleanup(func() {
		cancel()
		_ = inWriter.Close()
		<-done
	})

	other := workspacestate.NewStore(workspacestate.StoreOptions{
		Backend: workspacestate.NewJSONFileStateBackend(path),
		Logger:  logger,
	})
	value := 0.0
	require.Eventually(t, func() bool {
		value++
		_, err := other.RecordMetric(context.Background(), workspacestate.RecordMetricInput{
			WorkspacePath: "/w",
			MetricName:    "edits",
			Value:         value,
		})
		if err != nil {
			return false
		}
		select {
		case n := <-session.notifications:
			return n.Method == methodResourcesListChanged
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)
}
