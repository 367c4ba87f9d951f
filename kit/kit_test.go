package kit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				order = append(order, name+"_before")
				resp, err := next(ctx, req)
				order = append(order, name+"_after")
				return resp, err
			}
		}
	}
	base := func(context.Context, any) (any, error) {
		order = append(order, "endpoint")
		return "ok", nil
	}

	resp, err := Chain(mw("a"), mw("b"))(base)(context.Background(), nil)
	if err != nil || resp != "ok" {
		t.Fatalf("got %v, %v", resp, err)
	}
	want := []string{"a_before", "b_before", "endpoint", "b_after", "a_after"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	failing := func(context.Context, any) (any, error) { return nil, errors.New("boom") }

	ctx := WithSessionID(WithTransport(context.Background(), "mcp"), "sess_1")
	if _, err := Logging(logger, "apply")(failing)(ctx, nil); err == nil {
		t.Fatal("error swallowed")
	}
	out := buf.String()
	for _, want := range []string{`"op":"apply"`, `"transport":"mcp"`, `"session_id":"sess_1"`, `"error":"boom"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %s: %s", want, out)
		}
	}
}

func TestContext_Defaults(t *testing.T) {
	ctx := context.Background()
	if GetTransport(ctx) != "http" {
		t.Fatalf("default transport = %q", GetTransport(ctx))
	}
	if GetRequestID(ctx) != "" || GetSessionID(ctx) != "" || GetUser(ctx) != "" {
		t.Fatal("expected empty defaults")
	}
	ctx = WithUser(WithRequestID(ctx, "req_1"), "alice")
	if GetRequestID(ctx) != "req_1" || GetUser(ctx) != "alice" {
		t.Fatalf("values not stored: %q %q", GetRequestID(ctx), GetUser(ctx))
	}
}

var testImpl = &mcp.Implementation{Name: "kit-test", Version: "0.1.0"}

func TestRegisterMCPTool(t *testing.T) {
	srv := mcp.NewServer(testImpl, nil)
	type echoReq struct {
		Word string `json:"word"`
	}
	var sawTransport string
	RegisterMCPTool(srv, &mcp.Tool{
		Name:        "echo",
		InputSchema: map[string]any{"type": "object"},
	}, func(ctx context.Context, req any) (any, error) {
		sawTransport = GetTransport(ctx)
		r := req.(*echoReq)
		if r.Word == "" {
			return nil, errors.New("word required")
		}
		return map[string]string{"echo": r.Word}, nil
	}, func(req *mcp.CallToolRequest) (*MCPDecodeResult, error) {
		var r echoReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &MCPDecodeResult{Request: &r}, nil
	})

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()
	session, err := mcp.NewClient(testImpl, nil).Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "echo", Arguments: map[string]any{"word": "hi"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %+v", res.Content)
	}
	if txt := res.Content[0].(*mcp.TextContent).Text; txt != `{"echo":"hi"}` {
		t.Errorf("content = %s", txt)
	}
	if sawTransport != "mcp" {
		t.Errorf("transport = %q, want mcp", sawTransport)
	}

	res, err = session.CallTool(ctx, &mcp.CallToolParams{Name: "echo", Arguments: map[string]any{}})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("endpoint error should surface as a tool error")
	}
}
