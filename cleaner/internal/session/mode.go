package session

import "github.com/hazyhaar/purgedom/cleaner/dom"

// EnableClean leaves Undo if needed and enters Clean.
func (s *Session) EnableClean() {
	if s.mode == Clean {
		return
	}
	s.DisableUndo()
	s.ensureStyle()
	s.mode = Clean
	s.modeClass(dom.CleanModeClass, true)
	s.attach()
	s.logger.Info("session: clean mode on")
}

// DisableClean leaves Clean. It is a no-op in other modes.
func (s *Session) DisableClean() {
	if s.mode != Clean {
		return
	}
	s.mode = Off
	s.modeClass(dom.CleanModeClass, false)
	s.detach()
	s.hl.Clear()
	s.logger.Info("session: clean mode off")
}

// EnableUndo leaves Clean if needed, shows the undo panel and re-applies
// every persisted removal so the hidden elements can be picked.
func (s *Session) EnableUndo() {
	if s.mode == Undo {
		return
	}
	s.DisableClean()
	s.ensureStyle()
	s.ensureUndoPanel()
	s.mode = Undo
	s.modeClass(dom.UndoModeClass, true)
	s.attach()
	s.rec.Pass()
	s.refreshRestoreAll()
	s.logger.Info("session: undo mode on")
}

// DisableUndo leaves Undo. It is a no-op in other modes.
func (s *Session) DisableUndo() {
	if s.mode != Undo {
		return
	}
	s.mode = Off
	s.modeClass(dom.UndoModeClass, false)
	s.detach()
	s.hl.Clear()
	s.refreshRestoreAll()
	s.logger.Info("session: undo mode off")
}

// DisableAll leaves whichever mode is active.
func (s *Session) DisableAll() {
	s.DisableClean()
	s.DisableUndo()
}

func (s *Session) attach() {
	if s.listening {
		return
	}
	s.listening = true
	s.doc.Listen(true)
}

func (s *Session) detach() {
	if !s.listening || s.mode != Off {
		return
	}
	s.listening = false
	s.doc.Listen(false)
}

// modeClass sets or clears a mode class on the document element. The mode
// itself changes even when the host cannot reach the element.
func (s *Session) modeClass(class string, on bool) {
	root := s.doc.Root()
	if root == nil {
		s.logger.Debug("session: document element unavailable", "class", class)
		return
	}
	if on {
		root.AddClass(class)
		return
	}
	root.RemoveClass(class)
}
