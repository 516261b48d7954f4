package htmldom

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/purgedom/cleaner/dom"
)

// Element is an element node of a Document.
type Element struct {
	d *Document
	n *html.Node
}

func (e *Element) TagName() string { return strings.ToLower(e.n.Data) }

func (e *Element) Parent() dom.Element {
	p := e.n.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return e.d.wrap(p)
}

func (e *Element) PreviousSibling() dom.Element {
	for s := e.n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return e.d.wrap(s)
		}
	}
	return nil
}

func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (e *Element) SetAttr(name, value string) {
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			e.n.Attr[i].Val = value
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: value})
}

func (e *Element) RemoveAttr(name string) {
	kept := e.n.Attr[:0]
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		kept = append(kept, a)
	}
	e.n.Attr = kept
}

func (e *Element) classes() []string {
	v, _ := e.Attr("class")
	return strings.Fields(v)
}

func (e *Element) HasClass(class string) bool {
	for _, c := range e.classes() {
		if c == class {
			return true
		}
	}
	return false
}

func (e *Element) AddClass(class string) {
	if e.HasClass(class) {
		return
	}
	e.SetAttr("class", strings.Join(append(e.classes(), class), " "))
}

func (e *Element) RemoveClass(classes ...string) {
	if _, ok := e.Attr("class"); !ok {
		return
	}
	drop := make(map[string]bool, len(classes))
	for _, c := range classes {
		drop[c] = true
	}
	var kept []string
	for _, c := range e.classes() {
		if !drop[c] {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		e.RemoveAttr("class")
		return
	}
	e.SetAttr("class", strings.Join(kept, " "))
}

func (e *Element) AppendChild(child dom.Element) {
	c := node(child)
	if c.Parent != nil {
		c.Parent.RemoveChild(c)
	}
	e.n.AppendChild(c)
	e.d.notify()
}

func (e *Element) SetText(text string) {
	for c := e.n.FirstChild; c != nil; {
		next := c.NextSibling
		e.n.RemoveChild(c)
		c = next
	}
	e.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	e.d.notify()
}

func (e *Element) Same(other dom.Element) bool {
	o, ok := other.(*Element)
	return ok && o != nil && o.n == e.n
}

// Text returns the concatenated text content.
func (e *Element) Text() string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.n)
	return b.String()
}
