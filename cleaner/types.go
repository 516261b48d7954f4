package cleaner

import (
	"github.com/hazyhaar/purgedom/cleaner/internal/config"
	"github.com/hazyhaar/purgedom/cleaner/internal/session"
)

// Config is the top-level purgedom configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome.
type BrowserConfig = config.BrowserConfig

// MCPConfig controls the MCP transports.
type MCPConfig = config.MCPConfig

// PageConfig is a page opened at startup.
type PageConfig = config.PageConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}

// Command is one controller request.
type Command = session.Command

// ModeState is the reply to a recognised command.
type ModeState = session.ModeState

// Command names.
const (
	CmdGetModes     = session.CmdGetModes
	CmdGetCleanMode = session.CmdGetCleanMode
	CmdToggleClean  = session.CmdToggleClean
	CmdToggleUndo   = session.CmdToggleUndo
	CmdSetClean     = session.CmdSetClean
	CmdSetUndo      = session.CmdSetUndo
	CmdRestoreAll   = session.CmdRestoreAll
)

// KnownCommand reports whether name is a recognised command.
func KnownCommand(name string) bool {
	return session.Known(name)
}
