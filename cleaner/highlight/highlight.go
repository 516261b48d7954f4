// Package highlight tracks the single element currently outlined under the
// pointer.
package highlight

import "github.com/hazyhaar/purgedom/cleaner/dom"

// Tracker owns at most one highlighted element.
type Tracker struct {
	el    dom.Element
	class string
}

// Set highlights el with class, clearing any previous highlight first.
// Setting the same element and class again is a no-op.
func (t *Tracker) Set(el dom.Element, class string) {
	if el == nil {
		t.Clear()
		return
	}
	if t.el != nil && t.el.Same(el) && t.class == class && el.HasClass(class) {
		return
	}
	t.Clear()
	t.el = el
	t.class = class
	el.AddClass(class)
}

// Clear removes both highlight classes from the tracked element and drops it.
func (t *Tracker) Clear() {
	if t.el == nil {
		return
	}
	t.el.RemoveClass(dom.CleanHighlightClass, dom.RestoreHighlightClass)
	t.el = nil
	t.class = ""
}

// Release forgets el without touching its classes. Used when marking or
// restoring has already stripped the highlight.
func (t *Tracker) Release(el dom.Element) {
	if t.el != nil && el != nil && t.el.Same(el) {
		t.el = nil
		t.class = ""
	}
}

// Current returns the highlighted element and its class, or nil.
func (t *Tracker) Current() (dom.Element, string) {
	return t.el, t.class
}
