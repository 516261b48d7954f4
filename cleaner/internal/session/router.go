package session

import (
	"github.com/hazyhaar/purgedom/cleaner/dom"
	"github.com/hazyhaar/purgedom/cleaner/selector"
)

// HandleEvent routes one input event. Events arriving while no mode is
// active are ignored.
func (s *Session) HandleEvent(ev *dom.Event) {
	if ev == nil || !s.listening {
		return
	}
	switch ev.Type {
	case dom.PointerMove:
		s.onPointerMove(ev)
	case dom.Click:
		s.onClick(ev)
	case dom.KeyDown, dom.KeyUp:
		s.onKey(ev)
	}
}

func (s *Session) onPointerMove(ev *dom.Event) {
	switch s.mode {
	case Clean:
		if !s.cleanable(ev.Target) {
			s.hl.Clear()
			return
		}
		s.hl.Set(ev.Target, dom.CleanHighlightClass)
	case Undo:
		target := s.restoreTarget(ev.Target)
		if target == nil {
			s.hl.Clear()
			return
		}
		s.hl.Set(target, dom.RestoreHighlightClass)
	}
}

func (s *Session) onClick(ev *dom.Event) {
	switch s.mode {
	case Clean:
		s.cleanClick(ev)
	case Undo:
		if btn := restoreAllButton(ev.Target); btn != nil {
			if _, disabled := btn.Attr("disabled"); !disabled {
				ev.Suppress()
				s.RestoreAll()
			}
			return
		}
		s.undoClick(ev)
	}
}

func (s *Session) cleanClick(ev *dom.Event) {
	target := ev.Target
	if !s.cleanable(target) {
		return
	}
	sel, ok := selector.Build(s.doc, target)
	if !ok {
		return
	}
	ev.Suppress()

	s.store.Add(sel)
	s.markBySelector(sel)
	s.hl.Clear()
	s.logger.Info("session: cleaned", "selector", sel)
}

func (s *Session) undoClick(ev *dom.Event) {
	target := s.restoreTarget(ev.Target)
	if target == nil {
		return
	}
	ev.Suppress()

	sel := dom.Origin(target)
	if sel == "" {
		s.restore(target)
		s.hl.Clear()
		return
	}

	if s.restoreBySelector(sel) == 0 {
		s.restore(target)
	}
	s.store.Remove(sel)
	s.hl.Clear()
	s.logger.Info("session: restored", "selector", sel)
}

func (s *Session) onKey(ev *dom.Event) {
	if s.mode == Off || !ev.IsEscape() {
		return
	}
	ev.Suppress()
	s.DisableAll()
}

func (s *Session) cleanable(el dom.Element) bool {
	return dom.Removable(s.doc, el) && !dom.Marked(el)
}

func (s *Session) restoreTarget(el dom.Element) dom.Element {
	target := dom.ClosestMarked(el)
	if !dom.Removable(s.doc, target) {
		return nil
	}
	return target
}

func restoreAllButton(el dom.Element) dom.Element {
	for cur := el; cur != nil; cur = cur.Parent() {
		if cur.HasClass(dom.RestoreAllButtonClass) {
			return cur
		}
	}
	return nil
}
