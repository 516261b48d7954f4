// Package dom defines the document contract the cleaner core runs against.
//
// Two hosts implement it: htmldom (an in-memory tree over golang.org/x/net/html)
// and the rod-backed page in cleaner/internal/browser. The core never touches
// a host directly; it only sees Document, Element and Event.
package dom

// Element is a live element node.
type Element interface {
	// TagName returns the lower-case tag name.
	TagName() string
	// Parent returns the parent element, or nil at the document element.
	Parent() Element
	// PreviousSibling returns the previous element sibling, or nil.
	PreviousSibling() Element

	Attr(name string) (string, bool)
	SetAttr(name, value string)
	RemoveAttr(name string)

	HasClass(class string) bool
	AddClass(class string)
	RemoveClass(classes ...string)

	// AppendChild moves child to the end of this element's children.
	AppendChild(child Element)
	// SetText replaces the element's children with a single text node.
	SetText(text string)

	// Same reports whether other refers to the same node.
	Same(other Element) bool
}

// Document is a host page.
type Document interface {
	// Root returns the document element (<html>), or nil when the host
	// cannot reach it.
	Root() Element
	// Body returns <body>, or nil if the page has none yet.
	Body() Element
	// QueryAll returns every element matching a CSS selector in document
	// order. An invalid or unsupported selector is an error.
	QueryAll(selector string) ([]Element, error)
	// ElementByID returns the element with the given id, or nil.
	ElementByID(id string) Element
	// CreateElement returns a new detached element, or nil on host failure.
	CreateElement(tag string) Element

	// Observe subscribes fn to childList mutations anywhere in the document.
	// The returned func unsubscribes.
	Observe(fn func()) (stop func())
	// Listen turns forwarding of pointer and keyboard input on or off.
	Listen(on bool)
}
