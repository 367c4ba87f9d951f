// Package chassis serves HTTP/3 and MCP-over-QUIC on a single UDP socket,
// dispatching each QUIC connection by its negotiated ALPN.
package chassis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"

	"github.com/hazyhaar/liveedit/mcpquic"
)

const alpnH3 = "h3"

// Config configures a Server. An empty CertFile generates a self-signed
// certificate; a nil MCPServer disables the MCP protocol.
type Config struct {
	Addr      string
	Handler   http.Handler
	MCPServer *mcp.Server
	CertFile  string
	KeyFile   string
	Logger    *slog.Logger
}

// Server is the QUIC side of the service.
type Server struct {
	addr       string
	tlsCfg     *tls.Config
	h3         *http3.Server
	mcpHandler *mcpquic.Handler
	logger     *slog.Logger

	mu       sync.Mutex
	listener *quic.Listener
}

// New prepares a Server without binding.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		tlsCfg *tls.Config
		err    error
	)
	if cfg.CertFile != "" {
		tlsCfg, err = mcpquic.ServerTLSConfig(cfg.CertFile, cfg.KeyFile)
	} else {
		logger.Warn("chassis: no certificate configured, using a self-signed one")
		tlsCfg, err = mcpquic.SelfSignedTLSConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("chassis: tls: %w", err)
	}

	s := &Server{
		addr:   cfg.Addr,
		tlsCfg: tlsCfg,
		h3:     &http3.Server{Handler: cfg.Handler},
		logger: logger,
	}
	tlsCfg.NextProtos = []string{alpnH3}
	if cfg.MCPServer != nil {
		s.mcpHandler = mcpquic.NewHandler(cfg.MCPServer, logger)
		tlsCfg.NextProtos = append(tlsCfg.NextProtos, mcpquic.ALPNProtocolMCP)
	}
	return s, nil
}

// ListenAndServe binds the UDP socket and serves until ctx is done or Close
// is called.
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := quic.ListenAddr(s.addr, s.tlsCfg, mcpquic.ProductionQUICConfig())
	if err != nil {
		return fmt.Errorf("chassis: listen %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
	s.logger.Info("chassis: listening", "addr", l.Addr().String(), "alpn", s.tlsCfg.NextProtos)

	for {
		conn, err := l.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("chassis: accept: %w", err)
		}

		switch alpn := conn.ConnectionState().TLS.NegotiatedProtocol; {
		case alpn == alpnH3:
			go func() {
				if err := s.h3.ServeQUICConn(conn); err != nil {
					s.logger.Debug("chassis: h3 connection ended", "remote", conn.RemoteAddr().String(), "error", err)
				}
			}()
		case alpn == mcpquic.ALPNProtocolMCP && s.mcpHandler != nil:
			go s.mcpHandler.ServeConn(ctx, conn)
		default:
			conn.CloseWithError(mcpquic.ConnErrorUnsupportedALPN, "unsupported ALPN: "+alpn)
		}
	}
}

// Addr returns the bound address, or nil before ListenAndServe.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops the listener and the HTTP/3 server.
func (s *Server) Close() error {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	err := s.h3.Close()
	if l != nil {
		if lerr := l.Close(); err == nil {
			err = lerr
		}
	}
	return err
}

// AltSvc advertises the HTTP/3 endpoint on responses served over TCP.
func AltSvc(quicAddr string, next http.Handler) http.Handler {
	port := "8443"
	if _, p, err := net.SplitHostPort(quicAddr); err == nil && p != "" {
		port = p
	}
	value := fmt.Sprintf(`h3=":%s"; ma=86400`, port)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Alt-Svc", value)
		next.ServeHTTP(w, r)
	})
}
