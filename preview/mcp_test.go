package preview

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testMCPImpl = &mcp.Implementation{Name: "previewd-test", Version: "0.1.0"}

func mcpSession(t *testing.T, e *Engine) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	RegisterMCP(srv, e)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if result.IsError {
		t.Fatalf("CallTool(%s) tool error: %v", name, result.Content)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

func TestMCP_UpdateAndStatus(t *testing.T) {
	e := testEngine(t)
	session := mcpSession(t, e)

	text := mcpCallTool(t, session, "preview_update", map[string]any{
		"files": map[string]string{"App.jsx": "export default () => null"},
	})

	var updateResp struct {
		Generation uint64 `json:"generation"`
	}
	if err := json.Unmarshal([]byte(text), &updateResp); err != nil {
		t.Fatalf("unmarshal update: %v", err)
	}
	if updateResp.Generation != 1 {
		t.Errorf("generation: got %d, want 1", updateResp.Generation)
	}

	text = mcpCallTool(t, session, "preview_status", nil)
	var st Status
	if err := json.Unmarshal([]byte(text), &st); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if st.State != "running" || !st.EntryMounted {
		t.Errorf("status: got %+v", st)
	}
}

func TestMCP_UpdateRejectsEmptyProject(t *testing.T) {
	e := testEngine(t)
	session := mcpSession(t, e)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "preview_update",
		Arguments: map[string]any{"files": map[string]string{}},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !result.IsError {
		t.Error("empty project accepted")
	}
}

func TestMCP_EventsExposeDiagnostics(t *testing.T) {
	e := testEngine(t)
	session := mcpSession(t, e)

	mcpCallTool(t, session, "preview_update", map[string]any{
		"files": map[string]string{"App.jsx": "export default ("},
	})

	text := mcpCallTool(t, session, "preview_events", nil)
	var resp struct {
		Logs []LogEntry `json:"logs"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal events: %v", err)
	}
	if len(resp.Logs) != 1 {
		t.Fatalf("logs: got %d, want 1 error diagnostic", len(resp.Logs))
	}
	if resp.Logs[0].Kind != "error" {
		t.Errorf("diagnostic kind: got %q, want error", resp.Logs[0].Kind)
	}
}

func TestMCP_Reload(t *testing.T) {
	e := testEngine(t)
	session := mcpSession(t, e)

	mcpCallTool(t, session, "preview_update", map[string]any{
		"files": map[string]string{"App.jsx": "export default () => null"},
	})
	text := mcpCallTool(t, session, "preview_reload", nil)

	var resp struct {
		Generation uint64 `json:"generation"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal reload: %v", err)
	}
	if resp.Generation != 2 {
		t.Errorf("generation after reload: got %d, want 2", resp.Generation)
	}
}
