package cleaner

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/purgedom/kit"
)

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

var pageIDProp = map[string]any{"type": "string", "description": "Page ID as listed by purgedom_list_pages"}

// commandTools maps each MCP tool to the command it sends.
var commandTools = []struct {
	name, command, description string
	takesEnabled               bool
}{
	{"purgedom_get_modes", CmdGetModes, "Report whether clean mode and undo mode are active on a page.", false},
	{"purgedom_toggle_clean", CmdToggleClean, "Toggle clean mode: clicked elements are hidden and remembered.", false},
	{"purgedom_toggle_undo", CmdToggleUndo, "Toggle undo mode: clicked hidden elements are restored.", false},
	{"purgedom_set_clean", CmdSetClean, "Turn clean mode on or off.", true},
	{"purgedom_set_undo", CmdSetUndo, "Turn undo mode on or off.", true},
	{"purgedom_restore_all", CmdRestoreAll, "Restore every hidden element on a page and forget its removals.", false},
}

// RegisterMCP registers the purgedom tools on srv. Every command tool goes
// through the same command table as the HTTP channel.
func RegisterMCP(srv *mcp.Server, ctrl Controller, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	command := commandEndpoint(ctrl)

	for _, t := range commandTools {
		props := map[string]any{"page_id": pageIDProp}
		required := []string{"page_id"}
		if t.takesEnabled {
			props["enabled"] = map[string]any{"type": "boolean", "description": "Desired state"}
			required = append(required, "enabled")
		}
		tool := &mcp.Tool{
			Name:        t.name,
			Description: t.description,
			InputSchema: inputSchema(props, required),
		}
		name := t.command
		decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
			args, err := kit.DecodeArgs[struct {
				PageID  string `json:"page_id"`
				Enabled bool   `json:"enabled"`
			}](req)
			if err != nil {
				return nil, err
			}
			return &kit.MCPDecodeResult{
				Request: &commandRequest{PageID: args.PageID, Command: Command{Type: name, Enabled: args.Enabled}},
				EnrichCtx: func(ctx context.Context) context.Context {
					return kit.WithPageID(ctx, args.PageID)
				},
			}, nil
		}
		kit.RegisterMCPTool(srv, tool, kit.Logging(logger, t.name)(command), decode)
	}

	kit.RegisterMCPTool(srv,
		&mcp.Tool{
			Name:        "purgedom_list_pages",
			Description: "List the pages open for cleaning with their mode and number of hidden selectors.",
			InputSchema: inputSchema(map[string]any{}, nil),
		},
		kit.Logging(logger, "purgedom_list_pages")(pagesEndpoint(ctrl)),
		func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
			return &kit.MCPDecodeResult{}, nil
		})
}
