package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hazyhaar/purgedom/cleaner"
	"github.com/hazyhaar/purgedom/cleaner/store"
)

func runRender(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to purgedom.yaml (for store.path)")
	dbPath := fs.String("db", "", "selector database (overrides store.path)")
	format := fs.String("format", cleaner.FormatHTML, "html or markdown")
	output := fs.String("o", "", "write to file instead of stdout")
	logLevel := fs.String("log-level", "warn", "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("render: usage: render [flags] <url>")
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
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}

	backend, err := store.OpenSQLite(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer backend.Close()

	w := stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		defer f.Close()
		w = f
	}

	res, err := cleaner.Render(ctx, backend, cleaner.RenderOptions{
		URL:    fs.Arg(0),
		Format: *format,
		Logger: logger,
	}, w)
	if err != nil {
		return err
	}
	logger.Info("purgedom: rendered", "url", res.URL, "page", res.PageKey, "removed", res.Removed)
	return nil
}
