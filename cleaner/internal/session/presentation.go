package session

import (
	_ "embed"

	"github.com/hazyhaar/purgedom/cleaner/dom"
)

//go:embed style.css
var stylesheet string

const (
	undoPanelLabel      = "Undo mode"
	restoreAllLabel     = "Restore all cleaned elements"
	restoreAllButtonSel = "." + dom.RestoreAllButtonClass
)

// ensureStyle injects the stylesheet once per document.
func (s *Session) ensureStyle() {
	if s.doc.ElementByID(dom.StyleID) != nil {
		return
	}
	root := s.doc.Root()
	style := s.doc.CreateElement("style")
	if root == nil || style == nil {
		s.logger.Debug("session: stylesheet not injected, host lookup failed")
		return
	}
	style.SetAttr("id", dom.StyleID)
	style.SetText(stylesheet)
	root.AppendChild(style)
}

// ensureUndoPanel creates the undo panel with its restore-all button, or
// adopts one left in the document by an earlier session.
func (s *Session) ensureUndoPanel() {
	if s.panel != nil && s.button != nil {
		return
	}

	panel := s.doc.ElementByID(dom.UndoPanelID)
	if panel == nil {
		panel = s.buildUndoPanel()
		if panel == nil {
			s.logger.Debug("session: undo panel not created, host lookup failed")
			return
		}
	}
	s.panel = panel

	buttons, err := s.doc.QueryAll("#" + dom.UndoPanelID + " " + restoreAllButtonSel)
	if err != nil || len(buttons) == 0 {
		s.logger.Warn("session: restore-all button missing", "error", err)
		return
	}
	s.button = buttons[0]
	s.refreshRestoreAll()
}

// buildUndoPanel appends a new panel to the document element, or returns
// nil without touching the document if any element cannot be made.
func (s *Session) buildUndoPanel() dom.Element {
	root := s.doc.Root()
	panel := s.doc.CreateElement("div")
	label := s.doc.CreateElement("div")
	button := s.doc.CreateElement("button")
	if root == nil || panel == nil || label == nil || button == nil {
		return nil
	}

	panel.SetAttr("id", dom.UndoPanelID)
	label.AddClass(dom.UndoPanelLabelClass)
	label.SetText(undoPanelLabel)
	button.SetAttr("type", "button")
	button.AddClass(dom.RestoreAllButtonClass)
	button.SetText(restoreAllLabel)

	panel.AppendChild(label)
	panel.AppendChild(button)
	root.AppendChild(panel)
	return panel
}

// refreshRestoreAll enables the restore-all button iff something is persisted.
func (s *Session) refreshRestoreAll() {
	if s.button == nil {
		return
	}
	if s.store.Len() == 0 {
		s.button.SetAttr("disabled", "")
		return
	}
	s.button.RemoveAttr("disabled")
}
