// Command purgedom hides page elements you click on and keeps them hidden.
//
// Usage:
//
//	purgedom [serve] -config purgedom.yaml     # drive the configured pages
//	purgedom serve -url https://example.com    # quick single-page session
//	purgedom ctl <page-id> clean|undo|modes|restore-all|set-clean on|set-undo off
//	purgedom ctl pages
//	purgedom render -format markdown https://example.com
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"
)

const version = "0.3.0"

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && (args[0] == "serve" || args[0] == "ctl" || args[0] == "render" || args[0] == "version") {
		cmd, args = args[0], args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "serve":
		err = runServe(ctx, args)
	case "ctl":
		err = runCtl(ctx, args, os.Stdout)
	case "render":
		err = runRender(ctx, args, os.Stdout)
	case "version":
		fmt.Println("purgedom", version)
	}
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "purgedom:", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
