package session

import "github.com/hazyhaar/purgedom/cleaner/dom"

// markBySelector hides every element currently matching sel.
func (s *Session) markBySelector(sel string) int {
	els, err := s.doc.QueryAll(sel)
	if err != nil {
		s.logger.Debug("session: selector skipped", "selector", sel, "error", err)
		return 0
	}
	for _, el := range els {
		s.mark(el, sel)
	}
	return len(els)
}

// restoreBySelector reveals every marked element whose originating selector
// is sel. Elements are found by their marker, not by re-matching sel, so
// this still works after the page has been restructured.
func (s *Session) restoreBySelector(sel string) int {
	n := 0
	for _, el := range s.markedElements() {
		if dom.Origin(el) != sel {
			continue
		}
		s.restore(el)
		n++
	}
	return n
}

func (s *Session) markedElements() []dom.Element {
	els, err := s.doc.QueryAll(dom.RemovedSelector)
	if err != nil {
		s.logger.Warn("session: marker query failed", "error", err)
		return nil
	}
	return els
}

// RestoreAll reveals every hidden element and empties the persisted set.
// It returns the number of elements restored.
func (s *Session) RestoreAll() int {
	restored := 0
	for _, sel := range s.store.Selectors() {
		restored += s.restoreBySelector(sel)
	}
	for _, el := range s.markedElements() {
		s.restore(el)
		restored++
	}
	s.store.Clear()
	s.hl.Clear()
	s.refreshRestoreAll()
	s.logger.Info("session: restored all", "elements", restored)
	return restored
}
