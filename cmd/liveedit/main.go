// Command liveedit serves the live-edit API.
//
// Usage:
//
//	liveedit -config liveedit.yaml          # run with config file
//	liveedit -db liveedit.db -addr :8090    # run with defaults
//	liveedit -mcp stdio                     # serve MCP tools on stdin/stdout
//	liveedit -classify "make the title red" # classify a request and exit
//	liveedit -hash-password s3cret          # print a bcrypt hash for auth.users
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/liveedit/chassis"
	"github.com/hazyhaar/liveedit/classify"
	"github.com/hazyhaar/liveedit/liveedit"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to liveedit.yaml config file")
	dbPath := flag.String("db", "", "path to SQLite database")
	addr := flag.String("addr", "", "HTTP listen address")
	mcpMode := flag.String("mcp", "", `serve MCP instead of HTTP: "stdio"`)
	classifyText := flag.String("classify", "", "classify a change request and exit")
	hashPassword := flag.String("hash-password", "", "print the bcrypt hash of a password and exit")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// One-shot: classify.
	if *classifyText != "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(classify.Explain(*classifyText))
		return
	}

	// One-shot: password hash.
	if *hashPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*hashPassword), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("liveedit: hash password", "error", err)
			os.Exit(1)
		}
		fmt.Println(string(hash))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *dbPath, *addr, *mcpMode); err != nil {
		logger.Error("liveedit: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, dbPath, addr, mcpMode string) error {
	cfg, err := resolveConfig(configPath, dbPath, addr)
	if err != nil {
		return err
	}

	svc, err := liveedit.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer svc.Close()
	svc.Start(ctx)

	mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "liveedit", Version: version}, nil)
	svc.RegisterMCP(mcpSrv)

	switch mcpMode {
	case "":
	case "stdio":
		logger.Info("liveedit: serving MCP on stdio")
		return mcpSrv.Run(ctx, &mcp.StdioTransport{})
	default:
		return fmt.Errorf("unknown -mcp mode %q", mcpMode)
	}

	handler := svc.Routes()
	errc := make(chan error, 2)

	var quicSrv *chassis.Server
	if cfg.HTTP3.Addr != "" {
		quicSrv, err = chassis.New(chassis.Config{
			Addr:      cfg.HTTP3.Addr,
			Handler:   handler,
			MCPServer: mcpSrv,
			CertFile:  cfg.HTTP3.CertFile,
			KeyFile:   cfg.HTTP3.KeyFile,
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		handler = chassis.AltSvc(cfg.HTTP3.Addr, handler)
		go func() { errc <- quicSrv.ListenAndServe(ctx) }()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("liveedit: listening", "addr", cfg.Addr, "db", cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errc:
		if err != nil {
			logger.Error("liveedit: listener failed", "error", err)
		}
	}

	logger.Info("liveedit: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if quicSrv != nil {
		quicSrv.Close()
	}
	if serr := srv.Shutdown(shutdownCtx); serr != nil && err == nil {
		err = serr
	}
	return err
}

func resolveConfig(configPath, dbPath, addr string) (*liveedit.Config, error) {
	cfg := &liveedit.Config{}
	if configPath != "" {
		var err error
		if cfg, err = liveedit.LoadConfigFile(configPath); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if addr != "" {
		cfg.Addr = addr
	}
	return cfg, nil
}
