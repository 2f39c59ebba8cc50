package preview

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/previewd/kit"
)

// RegisterMCP exposes the engine as MCP tools, so an agent generating
// project files can push them into the preview and read the telemetry
// back without touching HTTP.
func RegisterMCP(srv *mcp.Server, e *Engine) {
	registerUpdateTool(srv, e)
	registerReloadTool(srv, e)
	registerEventsTool(srv, e)
	registerStatusTool(srv, e)
	registerFixTool(srv, e)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	sc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sc["required"] = required
	}
	return sc
}

// --- update ---

type updateReq struct {
	Files map[string]string `json:"files"`
}

func registerUpdateTool(srv *mcp.Server, e *Engine) {
	tool := &mcp.Tool{
		Name:        "preview_update",
		Description: "Replace the whole preview project (path → source) and rebuild the sandbox.",
		InputSchema: inputSchema(map[string]any{
			"files": map[string]any{
				"type":        "object",
				"description": "Complete project snapshot: logical file path to source text",
			},
		}, []string{"files"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*updateReq)
		if len(r.Files) == 0 {
			return nil, fmt.Errorf("empty project")
		}
		if err := e.Update(ctx, ProjectMap(r.Files)); err != nil {
			return nil, err
		}
		return map[string]any{
			"generation": e.Generation(),
			"status":     e.Status(),
		}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r updateReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- reload ---

func registerReloadTool(srv *mcp.Server, e *Engine) {
	tool := &mcp.Tool{
		Name:        "preview_reload",
		Description: "Rebuild and remount the current project under a fresh generation.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		if err := e.Reload(ctx); err != nil {
			return nil, err
		}
		return map[string]any{"generation": e.Generation()}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- events ---

func registerEventsTool(srv *mcp.Server, e *Engine) {
	tool := &mcp.Tool{
		Name:        "preview_events",
		Description: "Read the console and network histories of the current build.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		c := e.Consumer()
		return map[string]any{
			"generation": e.Generation(),
			"logs":       c.Logs(),
			"requests":   c.Requests(),
		}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- status ---

func registerStatusTool(srv *mcp.Server, e *Engine) {
	tool := &mcp.Tool{
		Name:        "preview_status",
		Description: "Get engine state: lifecycle phase, generation, module count, consumer counters.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return e.Status(), nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- fix ---

type fixReq struct {
	ID string `json:"id"`
}

func registerFixTool(srv *mcp.Server, e *Engine) {
	tool := &mcp.Tool{
		Name:        "preview_fix",
		Description: "Request an auto-fix proposal for an error log entry. Asynchronous: poll preview_events for the proposal.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Log entry ID from preview_events"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*fixReq)
		if err := e.Consumer().RequestFix(context.WithoutCancel(ctx), r.ID); err != nil {
			return nil, err
		}
		return map[string]string{"id": r.ID, "state": string(FixPending)}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r fixReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
