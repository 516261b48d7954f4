package dom

// Removable reports whether el may be hidden: any element other than the
// document element and <body>.
func Removable(doc Document, el Element) bool {
	if el == nil {
		return false
	}
	if root := doc.Root(); root != nil && el.Same(root) {
		return false
	}
	if body := doc.Body(); body != nil && el.Same(body) {
		return false
	}
	return true
}

// Marked reports whether el carries the removed marker.
func Marked(el Element) bool {
	if el == nil {
		return false
	}
	v, ok := el.Attr(RemovedAttr)
	return ok && v == "1"
}

// ClosestMarked returns el or its nearest ancestor carrying the removed
// marker, or nil.
func ClosestMarked(el Element) Element {
	for cur := el; cur != nil; cur = cur.Parent() {
		if Marked(cur) {
			return cur
		}
	}
	return nil
}

// Mark hides el on behalf of selector. Re-marking is harmless.
func Mark(el Element, selector string) {
	el.RemoveClass(CleanHighlightClass, RestoreHighlightClass)
	el.SetAttr(RemovedAttr, "1")
	el.SetAttr(RemovedSelectorAttr, selector)
}

// Unmark clears both marker attributes and any highlight.
func Unmark(el Element) {
	el.RemoveClass(CleanHighlightClass, RestoreHighlightClass)
	el.RemoveAttr(RemovedAttr)
	el.RemoveAttr(RemovedSelectorAttr)
}

// Origin returns the selector recorded on a marked element.
func Origin(el Element) string {
	v, _ := el.Attr(RemovedSelectorAttr)
	return v
}
