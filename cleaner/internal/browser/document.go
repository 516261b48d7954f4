package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/purgedom/cleaner/dom"
)

// Document is the live document of a Tab seen through CDP.
//
// dom.Document has no error returns: CDP failures (a navigation racing a
// call, a detached node) are logged at debug level and read as "nothing".
// A Document must be used from a single goroutine, the page's loop.
type Document struct {
	page      *rod.Page
	ctx       context.Context
	logger    *slog.Logger
	observers map[int]func()
	nextObs   int
}

// NewDocument wraps the tab's current document.
func NewDocument(ctx context.Context, t *Tab) *Document {
	return &Document{
		page:      t.Page,
		ctx:       ctx,
		logger:    t.logger,
		observers: make(map[int]func()),
	}
}

func (d *Document) p() *rod.Page {
	return d.page.Context(d.ctx).Sleeper(rod.NotFoundSleeper)
}

func (d *Document) elementByJS(js string, args ...any) dom.Element {
	el, err := d.p().ElementByJS(rod.Eval(js, args...))
	if err != nil {
		if !notFound(err) {
			d.logger.Debug("browser: element lookup failed", "error", err)
		}
		return nil
	}
	return d.wrap(el)
}

func (d *Document) wrap(el *rod.Element) dom.Element {
	if el == nil {
		return nil
	}
	return &Element{d: d, el: el}
}

func (d *Document) Root() dom.Element {
	return d.elementByJS(`() => document.documentElement`)
}

func (d *Document) Body() dom.Element {
	return d.elementByJS(`() => document.body`)
}

func (d *Document) QueryAll(selector string) ([]dom.Element, error) {
	els, err := d.page.Context(d.ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: query %q: %w", selector, err)
	}
	out := make([]dom.Element, 0, len(els))
	for _, el := range els {
		out = append(out, d.wrap(el))
	}
	return out, nil
}

func (d *Document) ElementByID(id string) dom.Element {
	return d.elementByJS(`(id) => document.getElementById(id)`, id)
}

func (d *Document) CreateElement(tag string) dom.Element {
	return d.elementByJS(`(tag) => document.createElement(tag)`, tag)
}

func (d *Document) Observe(fn func()) (stop func()) {
	id := d.nextObs
	d.nextObs++
	d.observers[id] = fn
	if len(d.observers) == 1 {
		d.bridge("observe", true)
	}
	return func() {
		if _, ok := d.observers[id]; !ok {
			return
		}
		delete(d.observers, id)
		if len(d.observers) == 0 {
			d.bridge("observe", false)
		}
	}
}

func (d *Document) Listen(on bool) {
	d.bridge("listen", on)
}

// Mutated delivers a mutation report from the bridge to every observer.
func (d *Document) Mutated() {
	fns := make([]func(), 0, len(d.observers))
	for _, fn := range d.observers {
		fns = append(fns, fn)
	}
	for _, fn := range fns {
		fn()
	}
}

// Event resolves a bridge input message into a dom event. The target
// element is fetched from the bridge, which holds it until taken.
func (d *Document) Event(msg Message) (*dom.Event, bool) {
	typ, ok := msg.EventType()
	if !ok {
		return nil, false
	}
	ev := &dom.Event{Type: typ, Key: msg.Key, Code: msg.Code, KeyCode: msg.KeyCode}
	if msg.ID != 0 {
		ev.Target = d.elementByJS(`(id) => window.__purgedom && window.__purgedom.take(id)`, msg.ID)
		if ev.Target == nil && typ != dom.KeyDown && typ != dom.KeyUp {
			return nil, false
		}
	}
	return ev, true
}

func (d *Document) bridge(method string, on bool) {
	_, err := d.page.Context(d.ctx).Eval(
		`(method, on) => window.__purgedom && window.__purgedom[method](on)`, method, on)
	if err != nil {
		d.logger.Debug("browser: bridge call failed", "method", method, "error", err)
	}
}

func notFound(err error) bool {
	var nf *rod.ElementNotFoundError
	return errors.As(err, &nf)
}

// Element is a live element handle.
type Element struct {
	d       *Document
	el      *rod.Element
	backend proto.DOMBackendNodeID
}

func (e *Element) eval(js string, args ...any) *proto.RuntimeRemoteObject {
	res, err := e.el.Context(e.d.ctx).Eval(js, args...)
	if err != nil {
		e.d.logger.Debug("browser: element call failed", "error", err)
		return nil
	}
	return res
}

func (e *Element) TagName() string {
	if res := e.eval(`() => this.tagName.toLowerCase()`); res != nil {
		return res.Value.Str()
	}
	return ""
}

func (e *Element) Parent() dom.Element {
	return e.relative(`() => this.parentElement`)
}

func (e *Element) PreviousSibling() dom.Element {
	return e.relative(`() => this.previousElementSibling`)
}

func (e *Element) relative(js string) dom.Element {
	el, err := e.el.Context(e.d.ctx).ElementByJS(rod.Eval(js))
	if err != nil {
		if !notFound(err) {
			e.d.logger.Debug("browser: element lookup failed", "error", err)
		}
		return nil
	}
	return e.d.wrap(el)
}

func (e *Element) Attr(name string) (string, bool) {
	v, err := e.el.Context(e.d.ctx).Attribute(name)
	if err != nil || v == nil {
		return "", false
	}
	return *v, true
}

func (e *Element) SetAttr(name, value string) {
	e.eval(`(n, v) => this.setAttribute(n, v)`, name, value)
}

func (e *Element) RemoveAttr(name string) {
	e.eval(`(n) => this.removeAttribute(n)`, name)
}

func (e *Element) HasClass(class string) bool {
	res := e.eval(`(c) => this.classList.contains(c)`, class)
	return res != nil && res.Value.Bool()
}

func (e *Element) AddClass(class string) {
	e.eval(`(c) => this.classList.add(c)`, class)
}

func (e *Element) RemoveClass(classes ...string) {
	args := make([]any, len(classes))
	for i, c := range classes {
		args[i] = c
	}
	e.eval(`(...cs) => this.classList.remove(...cs)`, args...)
}

func (e *Element) AppendChild(child dom.Element) {
	c, ok := child.(*Element)
	if !ok {
		return
	}
	e.eval(`(c) => { this.appendChild(c) }`, c.el.Object)
}

func (e *Element) SetText(text string) {
	e.eval(`(t) => { this.textContent = t }`, text)
}

// Same compares backend node IDs, which are stable across remote handles.
func (e *Element) Same(other dom.Element) bool {
	o, ok := other.(*Element)
	if !ok || o == nil {
		return false
	}
	a, b := e.backendID(), o.backendID()
	return a != 0 && a == b
}

func (e *Element) backendID() proto.DOMBackendNodeID {
	if e.backend != 0 {
		return e.backend
	}
	node, err := e.el.Context(e.d.ctx).Describe(0, false)
	if err != nil {
		e.d.logger.Debug("browser: describe node failed", "error", err)
		return 0
	}
	e.backend = node.BackendNodeID
	return e.backend
}
