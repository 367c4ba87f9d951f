package liveedit

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/liveedit/edit"
	"github.com/hazyhaar/liveedit/horosafe"
	"github.com/hazyhaar/liveedit/kit"
)

// RegisterMCP registers the liveedit tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerApplyTool(srv)
	s.registerUndoTool(srv)
	s.registerHistoryTool(srv)
	s.registerReportTool(srv)
	s.registerSaveTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	m := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		m["required"] = required
	}
	return m
}

var sessionProp = map[string]any{"type": "string", "description": "Editing session ID"}

func decodeSession(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r sessionReq
	if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
		return nil, err
	}
	if r.SessionID == "" {
		return nil, errors.New("session_id is required")
	}
	if err := horosafe.ValidateIdentifier(r.SessionID); err != nil {
		return nil, err
	}
	return &kit.MCPDecodeResult{
		Request:   &r,
		EnrichCtx: func(ctx context.Context) context.Context { return kit.WithSessionID(ctx, r.SessionID) },
	}, nil
}

// --- apply ---

func (s *Service) registerApplyTool(srv *mcp.Server) {
	kinds := make([]string, len(edit.Kinds))
	for i, k := range edit.Kinds {
		kinds[i] = string(k)
	}
	tool := &mcp.Tool{
		Name:        "liveedit_apply",
		Description: "Apply one edit to a session's document. The locator is a CSS selector or text:<visible text>.",
		InputSchema: inputSchema(map[string]any{
			"session_id":  sessionProp,
			"kind":        map[string]any{"type": "string", "enum": kinds},
			"locator":     map[string]any{"type": "string", "description": "CSS selector, or text:<literal> to match by visible text"},
			"value":       map[string]any{"type": "string", "description": "New text, color, size or attribute value"},
			"styles":      map[string]any{"type": "object", "description": "CSS property to value, for kind=style", "additionalProperties": map[string]any{"type": "string"}},
			"attribute":   map[string]any{"type": "string", "description": "Attribute name, for kind=attribute"},
			"remove_text": map[string]any{"type": "string", "description": "Substring to delete instead of the whole element, for kind=delete"},
			"markup":      map[string]any{"type": "string", "description": "HTML for kind=replace or kind=insert; sanitized before use"},
		}, []string{"session_id", "kind", "locator"}),
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		dec, err := decodeSession(req)
		if err != nil {
			return nil, err
		}
		r := &applyReq{SessionID: dec.Request.(*sessionReq).SessionID}
		if err := json.Unmarshal(req.Params.Arguments, &r.Instruction); err != nil {
			return nil, err
		}
		dec.Request = r
		return dec, nil
	}

	kit.RegisterMCPTool(srv, tool, s.ep.apply, decode)
}

// --- undo ---

func (s *Service) registerUndoTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "liveedit_undo",
		Description: "Revert the most recent edit of a session.",
		InputSchema: inputSchema(map[string]any{"session_id": sessionProp}, []string{"session_id"}),
	}

	kit.RegisterMCPTool(srv, tool, s.ep.undo, decodeSession)
}

// --- history ---

func (s *Service) registerHistoryTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "liveedit_history",
		Description: "List a session's applied edits, oldest first.",
		InputSchema: inputSchema(map[string]any{"session_id": sessionProp}, []string{"session_id"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		records, err := s.History(req.(*sessionReq).SessionID)
		if err != nil {
			return nil, err
		}
		if records == nil {
			records = []edit.Record{}
		}
		return map[string]any{"records": records, "count": len(records)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeSession)
}

// --- report ---

type reportReq struct {
	SessionID string `json:"session_id"`
	Format    string `json:"format"`
}

func (s *Service) registerReportTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "liveedit_report",
		Description: "Render a session's change log for whoever updates the page sources.",
		InputSchema: inputSchema(map[string]any{
			"session_id": sessionProp,
			"format":     map[string]any{"type": "string", "enum": []string{FormatMarkdown, FormatHTML}, "description": "Default: markdown"},
		}, []string{"session_id"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*reportReq)
		if r.Format == "" {
			r.Format = FormatMarkdown
		}
		out, err := s.Report(r.SessionID, r.Format)
		if err != nil {
			return nil, err
		}
		return map[string]string{"format": r.Format, "report": out}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r reportReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		if r.SessionID == "" {
			return nil, errors.New("session_id is required")
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- save ---

func (s *Service) registerSaveTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "liveedit_save",
		Description: "Store a session's current document and change log; returns the saved document id.",
		InputSchema: inputSchema(map[string]any{"session_id": sessionProp}, []string{"session_id"}),
	}
	kit.RegisterMCPTool(srv, tool, s.ep.save, decodeSession)
}
