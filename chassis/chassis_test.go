package chassis

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/liveedit/mcpquic"
)

func TestNew_SelfSigned(t *testing.T) {
	s, err := New(Config{Addr: ":0", Handler: http.NewServeMux()})
	if err != nil {
		t.Fatal(err)
	}
	if s.tlsCfg == nil || len(s.tlsCfg.Certificates) != 1 {
		t.Fatal("TLS config should be generated")
	}
	if s.mcpHandler != nil {
		t.Fatal("mcpHandler should be nil without an MCP server")
	}
	if len(s.tlsCfg.NextProtos) != 1 || s.tlsCfg.NextProtos[0] != "h3" {
		t.Fatalf("ALPN = %v", s.tlsCfg.NextProtos)
	}
	if s.Addr() != nil {
		t.Fatal("Addr before listen should be nil")
	}
}

func TestNew_WithMCP(t *testing.T) {
	srv := mcp.NewServer(&mcp.Implementation{Name: "chassis-test", Version: "0.1.0"}, nil)
	s, err := New(Config{Addr: ":0", Handler: http.NewServeMux(), MCPServer: srv})
	if err != nil {
		t.Fatal(err)
	}
	if s.mcpHandler == nil {
		t.Fatal("mcpHandler missing")
	}
	found := false
	for _, p := range s.tlsCfg.NextProtos {
		if p == mcpquic.ALPNProtocolMCP {
			found = true
		}
	}
	if !found {
		t.Fatalf("MCP ALPN missing from %v", s.tlsCfg.NextProtos)
	}
}

func TestNew_BadCertificate(t *testing.T) {
	if _, err := New(Config{Addr: ":0", CertFile: "/nonexistent.pem", KeyFile: "/nonexistent.key"}); err == nil {
		t.Fatal("missing certificate accepted")
	}
}

func TestAltSvc(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	for addr, want := range map[string]string{
		":9443":  `h3=":9443"; ma=86400`,
		"noport": `h3=":8443"; ma=86400`,
	} {
		rec := httptest.NewRecorder()
		AltSvc(addr, inner).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		if got := rec.Header().Get("Alt-Svc"); got != want {
			t.Errorf("AltSvc(%q) = %q, want %q", addr, got, want)
		}
	}
}
