// Package htmldom implements dom.Document over an in-memory
// golang.org/x/net/html tree.
//
// It is the host for tests and for offline rendering. Mutations made through
// its API notify observers synchronously, the way a MutationObserver would
// fire after a script task.
package htmldom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/purgedom/cleaner/dom"
	"github.com/hazyhaar/purgedom/cleaner/selector"
)

// Document is an in-memory page.
type Document struct {
	doc       *html.Node
	observers map[int]func()
	nextObs   int
	listening bool
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	n, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmldom: parse: %w", err)
	}
	return &Document{doc: n, observers: make(map[int]func())}, nil
}

// ParseString reads an HTML document from a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// MustParse is ParseString for fixtures.
func MustParse(s string) *Document {
	d, err := ParseString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Document) wrap(n *html.Node) dom.Element {
	if n == nil {
		return nil
	}
	return &Element{d: d, n: n}
}

func (d *Document) Root() dom.Element {
	return d.wrap(d.rootNode())
}

func (d *Document) rootNode() *html.Node {
	for c := d.doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Html {
			return c
		}
	}
	return nil
}

func (d *Document) Body() dom.Element {
	root := d.rootNode()
	if root == nil {
		return nil
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Body {
			return d.wrap(c)
		}
	}
	return nil
}

// QueryAll evaluates sel against every element in document order.
func (d *Document) QueryAll(sel string) ([]dom.Element, error) {
	s, err := selector.Parse(sel)
	if err != nil {
		return nil, fmt.Errorf("htmldom: query %q: %w", sel, err)
	}
	var out []dom.Element
	d.walk(func(n *html.Node) bool {
		el := d.wrap(n)
		if s.Match(el) {
			out = append(out, el)
		}
		return true
	})
	return out, nil
}

func (d *Document) ElementByID(id string) dom.Element {
	var found *html.Node
	d.walk(func(n *html.Node) bool {
		if attr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return d.wrap(found)
}

func (d *Document) CreateElement(tag string) dom.Element {
	tag = strings.ToLower(tag)
	return d.wrap(&html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	})
}

func (d *Document) Observe(fn func()) (stop func()) {
	id := d.nextObs
	d.nextObs++
	d.observers[id] = fn
	return func() { delete(d.observers, id) }
}

func (d *Document) Listen(on bool) { d.listening = on }

// Listening reports the last Listen call.
func (d *Document) Listening() bool { return d.listening }

// Observers returns the number of active mutation subscriptions.
func (d *Document) Observers() int { return len(d.observers) }

func (d *Document) notify() {
	fns := make([]func(), 0, len(d.observers))
	for _, fn := range d.observers {
		fns = append(fns, fn)
	}
	for _, fn := range fns {
		fn()
	}
}

// walk visits element nodes depth-first until fn returns false.
func (d *Document) walk(fn func(*html.Node) bool) {
	var visit func(*html.Node) bool
	visit = func(n *html.Node) bool {
		if n.Type == html.ElementNode && !fn(n) {
			return false
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	visit(d.doc)
}

// AppendHTML parses fragment in the context of parent, appends the
// resulting nodes and returns the new top-level elements.
func (d *Document) AppendHTML(parent dom.Element, fragment string) ([]dom.Element, error) {
	p := node(parent)
	nodes, err := html.ParseFragment(strings.NewReader(fragment), p)
	if err != nil {
		return nil, fmt.Errorf("htmldom: parse fragment: %w", err)
	}
	var added []dom.Element
	for _, n := range nodes {
		p.AppendChild(n)
		if n.Type == html.ElementNode {
			added = append(added, d.wrap(n))
		}
	}
	d.notify()
	return added, nil
}

// InsertBefore inserts child into parent before ref (nil appends).
func (d *Document) InsertBefore(parent, child, ref dom.Element) {
	c := node(child)
	if c.Parent != nil {
		c.Parent.RemoveChild(c)
	}
	var r *html.Node
	if ref != nil {
		r = node(ref)
	}
	node(parent).InsertBefore(c, r)
	d.notify()
}

// Remove detaches el from the tree.
func (d *Document) Remove(el dom.Element) {
	n := node(el)
	if n.Parent == nil {
		return
	}
	n.Parent.RemoveChild(n)
	d.notify()
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.doc)
}

// HTML returns the rendered document.
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return "", fmt.Errorf("htmldom: render: %w", err)
	}
	return buf.String(), nil
}

func node(el dom.Element) *html.Node {
	return el.(*Element).n
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
