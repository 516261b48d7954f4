package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/purgedom/cleaner"
	"github.com/hazyhaar/purgedom/cleaner/store"
	"github.com/hazyhaar/purgedom/mcpquic"
)

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to purgedom.yaml")
	pageURL := fs.String("url", "", "open a single page")
	dbPath := fs.String("db", "", "selector database (overrides store.path)")
	listen := fs.String("listen", "", "command channel address (overrides listen)")
	display := fs.String("display", "", "window, headless or xvfb (overrides browser.display)")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	cfg := cleaner.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = cleaner.LoadConfigFile(*configPath); err != nil {
			return err
		}
	}
	if *pageURL != "" {
		cfg.Pages = append(cfg.Pages, cleaner.PageConfig{ID: "main", URL: *pageURL})
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *display != "" {
		cfg.Browser.Display = *display
	}
	if len(cfg.Pages) == 0 {
		return fmt.Errorf("no pages: pass -url or list pages in -config")
	}

	backend, err := store.OpenSQLite(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer backend.Close()

	c := cleaner.New(cfg, backend, logger)
	if err := c.Start(ctx); err != nil {
		c.Stop()
		return err
	}
	defer c.Stop()

	mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "purgedom", Version: version}, nil)
	cleaner.RegisterMCP(mcpSrv, c, logger)

	return serveChannels(ctx, cfg, cleaner.Router(c, logger), mcpSrv, logger)
}

// serveChannels runs the HTTP command channel, the streamable MCP endpoint
// and the optional MCP QUIC listener until ctx ends. Nothing is started
// unless every listener could be set up.
func serveChannels(ctx context.Context, cfg *cleaner.Config, router chi.Router, mcpSrv *mcp.Server, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MCP.HTTPPath != "-" {
		router.Handle(cfg.MCP.HTTPPath, mcp.NewStreamableHTTPHandler(
			func(*http.Request) *mcp.Server { return mcpSrv }, nil))
	}
	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var ql *mcpquic.Listener
	if cfg.MCP.QUICAddr != "" {
		tlsCfg, err := quicTLS(cfg.MCP)
		if err != nil {
			return err
		}
		if ql, err = mcpquic.NewListener(cfg.MCP.QUICAddr, tlsCfg, mcpSrv, logger); err != nil {
			return fmt.Errorf("mcp quic: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("purgedom: command channel listening", "addr", cfg.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if ql != nil {
		g.Go(func() error {
			if err := ql.Serve(gctx); err != nil && gctx.Err() == nil {
				return fmt.Errorf("mcp quic: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return ql.Close()
		})
	}

	return g.Wait()
}

func quicTLS(m cleaner.MCPConfig) (*tls.Config, error) {
	if m.TLSCert != "" {
		return mcpquic.ServerTLSConfig(m.TLSCert, m.TLSKey)
	}
	return mcpquic.SelfSignedTLSConfig()
}
