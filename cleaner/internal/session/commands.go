package session

// Command names accepted by Dispatch.
const (
	CmdGetModes     = "GET_MODES"
	CmdGetCleanMode = "GET_CLEAN_MODE" // older controllers
	CmdToggleClean  = "TOGGLE_CLEAN_MODE"
	CmdToggleUndo   = "TOGGLE_UNDO_MODE"
	CmdSetClean     = "SET_CLEAN_MODE"
	CmdSetUndo      = "SET_UNDO_MODE"
	CmdRestoreAll   = "RESTORE_ALL"
)

// Command is one request from a controller.
type Command struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled,omitempty"`
}

// ModeState is the reply to every recognised command. Enabled mirrors
// CleanEnabled for controllers that predate undo mode.
type ModeState struct {
	Enabled      bool `json:"enabled"`
	CleanEnabled bool `json:"cleanEnabled"`
	UndoEnabled  bool `json:"undoEnabled"`
}

type handler func(s *Session, cmd Command)

var commands = map[string]handler{
	CmdGetModes:     func(*Session, Command) {},
	CmdGetCleanMode: func(*Session, Command) {},
	CmdToggleClean: func(s *Session, _ Command) {
		if s.mode == Clean {
			s.DisableClean()
		} else {
			s.EnableClean()
		}
	},
	CmdToggleUndo: func(s *Session, _ Command) {
		if s.mode == Undo {
			s.DisableUndo()
		} else {
			s.EnableUndo()
		}
	},
	CmdSetClean: func(s *Session, cmd Command) {
		if cmd.Enabled {
			s.EnableClean()
		} else {
			s.DisableClean()
		}
	},
	CmdSetUndo: func(s *Session, cmd Command) {
		if cmd.Enabled {
			s.EnableUndo()
		} else {
			s.DisableUndo()
		}
	},
	CmdRestoreAll: func(s *Session, _ Command) { s.RestoreAll() },
}

// Known reports whether name is a recognised command.
func Known(name string) bool {
	_, ok := commands[name]
	return ok
}

// Dispatch runs cmd and returns the resulting mode state. ok is false for
// unrecognised commands, which change nothing and get no reply.
func (s *Session) Dispatch(cmd Command) (state ModeState, ok bool) {
	h, ok := commands[cmd.Type]
	if !ok {
		s.logger.Debug("session: unhandled command", "type", cmd.Type)
		return ModeState{}, false
	}
	h(s, cmd)
	return s.State(), true
}
