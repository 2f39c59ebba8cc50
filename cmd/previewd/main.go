// Command previewd is the live preview daemon: it builds AI-generated
// multi-file UI projects into self-contained sandbox documents, executes
// them in a disposable headless Chrome frame, and exposes the collected
// console and network telemetry over HTTP and MCP.
//
// Usage:
//
//	previewd -db project.db                  # watch a project store
//	previewd -config previewd.yaml           # full configuration
//	previewd -db project.db -mcp             # plus MCP tools on stdio
package main

import (
	"context"
	"database/sql"
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
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/previewd/preview"
	"github.com/hazyhaar/previewd/watch"
)

func main() {
	configPath := flag.String("config", "", "path to previewd.yaml config file")
	dbPath := flag.String("db", "", "path to the SQLite project store (overrides config)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	useMCP := flag.Bool("mcp", false, "serve MCP tools on stdio")
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *dbPath, *addr, *useMCP); err != nil {
		logger.Error("previewd: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, dbPath, addr string, useMCP bool) error {
	cfg := preview.Default()
	if configPath != "" {
		loaded, err := preview.LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	if addr != "" {
		cfg.HTTP.Addr = addr
		cfg.HTTP.SandboxURL = ""
		cfg.ApplyDefaults()
	}

	opts := []preview.EngineOption{preview.WithLogger(logger)}
	for _, sc := range cfg.Sinks {
		switch sc.Type {
		case "stdout":
			opts = append(opts, preview.WithSinks(preview.NewStdoutSink(nil)))
		case "webhook":
			opts = append(opts, preview.WithSinks(preview.NewWebhookSink(sc.URL, logger)))
		default:
			logger.Warn("previewd: unknown sink type", "type", sc.Type)
		}
	}

	var (
		st *preview.ProjectStore
		db *sql.DB
	)
	if cfg.Store.Path != "" {
		var err error
		st, db, err = preview.OpenStore(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer db.Close()
		opts = append(opts, preview.WithStore(st))
	}

	engine := preview.NewEngine(cfg, opts...)
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("engine start: %w", err)
	}
	defer engine.Close()

	// Initial build from whatever the store already holds.
	if st != nil {
		if err := engine.Refresh(ctx); err != nil {
			logger.Warn("previewd: initial build failed", "error", err)
		}
	}

	// The watcher drives rebuilds whenever the editor replaces the project.
	if db != nil {
		w := watch.New(db, watch.Options{
			Interval: cfg.Store.PollInterval,
			Debounce: cfg.Store.Debounce,
			Detector: watch.MaxColumnDetector("project_files", "updated_at"),
			Logger:   logger,
		})
		go w.OnChange(ctx, func() error { return engine.Refresh(ctx) })
	}

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: preview.NewServer(engine, st).Handler(),
	}
	go func() {
		logger.Info("previewd: http listening", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("previewd: http server", "error", err)
		}
	}()

	if useMCP {
		srv := mcp.NewServer(&mcp.Implementation{Name: "previewd", Version: "0.1.0"}, nil)
		preview.RegisterMCP(srv, engine)
		go func() {
			if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				logger.Error("previewd: mcp server", "error", err)
			}
		}()
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("previewd: http shutdown", "error", err)
	}
	return nil
}
