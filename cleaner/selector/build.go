// Package selector derives and evaluates structural selectors.
//
// A structural selector is a positional path from <body> to an element:
//
//	body > div:nth-of-type(2) > ul:nth-of-type(1) > li:nth-of-type(3)
//
// It does not rely on ids or classes, so it stays usable on pages whose
// identifying attributes are unstable. Inserting or removing earlier siblings
// of the same tag shifts the ordinals and the selector then points elsewhere
// (or nowhere). That fragility is accepted.
package selector

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/purgedom/cleaner/dom"
)

// Build returns the structural selector for el. It fails when el is the
// document element or <body>, or when el is not attached under <body>.
func Build(doc dom.Document, el dom.Element) (string, bool) {
	if el == nil {
		return "", false
	}
	body := doc.Body()
	if body == nil {
		return "", false
	}
	root := doc.Root()

	var segments []string
	reached := false
	for cur := el; cur != nil; {
		if cur.Same(body) {
			reached = true
			break
		}
		if root != nil && cur.Same(root) {
			break
		}
		parent := cur.Parent()
		if parent == nil {
			break
		}
		segments = append(segments, segment(cur))
		cur = parent
	}
	if !reached || len(segments) == 0 {
		return "", false
	}

	// Collected leaf first.
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return "body > " + strings.Join(segments, " > "), true
}

func segment(el dom.Element) string {
	return fmt.Sprintf("%s:nth-of-type(%d)", el.TagName(), ordinal(el))
}

// ordinal is el's 1-based position among preceding siblings sharing its tag.
func ordinal(el dom.Element) int {
	tag := el.TagName()
	idx := 1
	for sib := el.PreviousSibling(); sib != nil; sib = sib.PreviousSibling() {
		if sib.TagName() == tag {
			idx++
		}
	}
	return idx
}
