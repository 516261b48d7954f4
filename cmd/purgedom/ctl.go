package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/hazyhaar/purgedom/cleaner"
	"github.com/hazyhaar/purgedom/mcpquic"
)

// ctlAction is one ctl verb: the command it sends and its MCP tool.
type ctlAction struct {
	tool       string
	command    string
	needsState bool // takes on|off
}

var ctlActions = map[string]ctlAction{
	"modes":       {"purgedom_get_modes", cleaner.CmdGetModes, false},
	"clean":       {"purgedom_toggle_clean", cleaner.CmdToggleClean, false},
	"undo":        {"purgedom_toggle_undo", cleaner.CmdToggleUndo, false},
	"set-clean":   {"purgedom_set_clean", cleaner.CmdSetClean, true},
	"set-undo":    {"purgedom_set_undo", cleaner.CmdSetUndo, true},
	"restore-all": {"purgedom_restore_all", cleaner.CmdRestoreAll, false},
}

func runCtl(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("ctl", flag.ContinueOnError)
	addr := fs.String("addr", "http://127.0.0.1:8087", "command channel URL")
	quicAddr := fs.String("quic", "", "use MCP over QUIC at host:port instead of HTTP")
	insecure := fs.Bool("insecure", false, "accept a self-signed QUIC certificate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("ctl: usage: ctl pages | ctl <page-id> %s", "modes|clean|undo|set-clean on|set-undo on|restore-all")
	}

	var err error
	if *quicAddr != "" {
		err = ctlQUIC(ctx, mcpquic.NewClient(*quicAddr, mcpquic.ClientTLSConfig(*insecure), mcpquic.WithImplementation("purgedom-ctl", version)), rest, out)
	} else {
		err = ctlHTTP(ctx, cleaner.NewClient(*addr), rest, out)
	}
	if errors.Is(err, cleaner.ErrUnavailable) {
		return fmt.Errorf("unavailable on this page")
	}
	return err
}

func parseAction(rest []string) (pageID string, a ctlAction, on bool, err error) {
	if len(rest) < 2 {
		return "", a, false, fmt.Errorf("ctl: missing action for page %q", rest[0])
	}
	a, ok := ctlActions[rest[1]]
	if !ok {
		return "", a, false, fmt.Errorf("ctl: unknown action %q", rest[1])
	}
	if a.needsState {
		if len(rest) < 3 || (rest[2] != "on" && rest[2] != "off") {
			return "", a, false, fmt.Errorf("ctl: %s needs on or off", rest[1])
		}
		on = rest[2] == "on"
	}
	return rest[0], a, on, nil
}

func ctlHTTP(ctx context.Context, cl *cleaner.Client, rest []string, out io.Writer) error {
	if rest[0] == "pages" {
		pages, err := cl.Pages(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, pages)
	}
	pageID, a, on, err := parseAction(rest)
	if err != nil {
		return err
	}

	var state cleaner.ModeState
	switch a.command {
	case cleaner.CmdToggleClean:
		state, err = cl.ToggleClean(ctx, pageID)
	case cleaner.CmdToggleUndo:
		state, err = cl.ToggleUndo(ctx, pageID)
	case cleaner.CmdSetClean:
		state, err = cl.SetClean(ctx, pageID, on)
	case cleaner.CmdSetUndo:
		state, err = cl.SetUndo(ctx, pageID, on)
	case cleaner.CmdRestoreAll:
		state, err = cl.RestoreAll(ctx, pageID)
	default:
		state, err = cl.Modes(ctx, pageID)
	}
	if err != nil {
		return err
	}
	return printJSON(out, state)
}

func ctlQUIC(ctx context.Context, cl *mcpquic.Client, rest []string, out io.Writer) error {
	tool := "purgedom_list_pages"
	callArgs := map[string]any{}
	if rest[0] != "pages" {
		pageID, a, on, err := parseAction(rest)
		if err != nil {
			return err
		}
		tool = a.tool
		callArgs["page_id"] = pageID
		if a.needsState {
			callArgs["enabled"] = on
		}
	}

	if err := cl.Connect(ctx); err != nil {
		return fmt.Errorf("%w: %v", cleaner.ErrUnavailable, err)
	}
	defer cl.Close()

	var v any
	if err := cl.Call(ctx, tool, callArgs, &v); err != nil {
		return fmt.Errorf("%w: %v", cleaner.ErrUnavailable, err)
	}
	return printJSON(out, v)
}
