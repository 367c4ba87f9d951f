package mcpquic

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/liveedit/kit"
)

func TestMagicBytes(t *testing.T) {
	var buf bytes.Buffer
	if err := SendMagicBytes(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != MagicBytesMCP {
		t.Fatalf("magic: got %q", buf.String())
	}
	if err := ValidateMagicBytes(&buf); err != nil {
		t.Fatal(err)
	}

	if err := ValidateMagicBytes(strings.NewReader("HTTP")); !errors.Is(err, ErrInvalidMagicBytes) {
		t.Fatalf("expected ErrInvalidMagicBytes, got %v", err)
	}
	if err := ValidateMagicBytes(strings.NewReader("MC")); err == nil {
		t.Fatal("short preamble accepted")
	}
}

func TestProductionQUICConfig(t *testing.T) {
	cfg := ProductionQUICConfig()
	if cfg.MaxIdleTimeout != DefaultIdleTimeout || cfg.KeepAlivePeriod != DefaultKeepAlive {
		t.Fatalf("config = %+v", cfg)
	}
	if cfg.Allow0RTT {
		t.Fatal("0-RTT should be disabled")
	}
}

func TestTLSConfigs(t *testing.T) {
	base, err := SelfSignedTLSConfig()
	if err != nil {
		t.Fatal(err)
	}
	if base.MinVersion != tls.VersionTLS13 || len(base.Certificates) != 1 {
		t.Fatalf("self-signed = %+v", base)
	}
	if len(base.NextProtos) != 1 || base.NextProtos[0] != ALPNProtocolMCP {
		t.Fatalf("ALPN = %v", base.NextProtos)
	}

	h3 := H3TLSConfig(base)
	if len(h3.NextProtos) != 1 || h3.NextProtos[0] != "h3" {
		t.Fatalf("h3 ALPN = %v", h3.NextProtos)
	}
	if base.NextProtos[0] != ALPNProtocolMCP {
		t.Fatal("base config mutated")
	}

	if !ClientTLSConfig(true).InsecureSkipVerify || ClientTLSConfig(false).InsecureSkipVerify {
		t.Fatal("InsecureSkipVerify not honoured")
	}
	if c := NewClient("localhost:1", nil); c.tlsCfg.InsecureSkipVerify {
		t.Fatal("default client TLS must verify")
	}
}

func TestConnectionError(t *testing.T) {
	inner := errors.New("timeout")
	ce := &ConnectionError{RemoteAddr: "127.0.0.1:8443", Code: ConnErrorProtocolViolation, Err: inner}
	if msg := ce.Error(); !strings.Contains(msg, "127.0.0.1:8443") || !strings.Contains(msg, "0x03") {
		t.Fatalf("message = %s", msg)
	}
	if !errors.Is(ce, inner) {
		t.Fatal("Unwrap should return inner error")
	}
}

func TestClient_NotConnected(t *testing.T) {
	c := NewClient("localhost:1234", nil)
	ctx := context.Background()
	if _, err := c.ListTools(ctx); err == nil {
		t.Fatal("ListTools on unconnected client")
	}
	if _, err := c.CallTool(ctx, "x", nil); err == nil {
		t.Fatal("CallTool on unconnected client")
	}
	if err := c.Ping(ctx); err == nil {
		t.Fatal("Ping on unconnected client")
	}
}

func TestLoopback(t *testing.T) {
	srv := mcp.NewServer(&mcp.Implementation{Name: "quic-test", Version: "0.1.0"}, nil)
	kit.RegisterMCPTool(srv, &mcp.Tool{Name: "transport", InputSchema: map[string]any{"type": "object"}},
		func(ctx context.Context, _ any) (any, error) {
			return map[string]string{"transport": kit.GetTransport(ctx)}, nil
		},
		func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error) { return &kit.MCPDecodeResult{}, nil },
	)

	tlsCfg, err := SelfSignedTLSConfig()
	if err != nil {
		t.Fatal(err)
	}
	l, err := NewListener("127.0.0.1:0", tlsCfg, srv, nil)
	if err != nil {
		t.Skipf("udp listener unavailable: %v", err)
	}
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go l.Serve(ctx)

	c := NewClient(l.Addr().String(), ClientTLSConfig(true))
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	tools, err := c.ListTools(ctx)
	if err != nil || len(tools.Tools) != 1 {
		t.Fatalf("tools = %+v, %v", tools, err)
	}
	res, err := c.CallTool(ctx, "transport", map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]string
	json.Unmarshal([]byte(res.Content[0].(*mcp.TextContent).Text), &out)
	if out["transport"] == "" {
		t.Fatalf("result = %v", out)
	}
}
