package session

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/hazyhaar/purgedom/cleaner/dom"
	"github.com/hazyhaar/purgedom/cleaner/htmldom"
	"github.com/hazyhaar/purgedom/cleaner/reconcile"
	"github.com/hazyhaar/purgedom/cleaner/store"
)

const pageKey = "https://shop.example/list?page=2"

const listPage = `<html><head><title>t</title></head><body>
<header><a href="/">home</a></header>
<ul><li>one</li><li><span>two</span></li><li>three</li></ul>
</body></html>`

type fixture struct {
	doc    *htmldom.Document
	frames *reconcile.FrameQueue
	mem    *store.Memory
	s      *Session
}

func newFixture(t *testing.T, page string, mem *store.Memory) *fixture {
	t.Helper()
	if mem == nil {
		mem = store.NewMemory()
	}
	doc := htmldom.MustParse(page)
	frames := &reconcile.FrameQueue{}
	st := store.Open(context.Background(), mem, pageKey)
	s := New(Config{Doc: doc, Store: st, Scheduler: frames})
	t.Cleanup(func() {
		if err := st.Flush(context.Background()); err != nil {
			t.Errorf("flush: %v", err)
		}
	})
	return &fixture{doc: doc, frames: frames, mem: mem, s: s}
}

func (f *fixture) query(t *testing.T, sel string) []dom.Element {
	t.Helper()
	els, err := f.doc.QueryAll(sel)
	if err != nil {
		t.Fatal(err)
	}
	return els
}

func (f *fixture) one(t *testing.T, sel string) dom.Element {
	t.Helper()
	els := f.query(t, sel)
	if len(els) != 1 {
		t.Fatalf("%s matched %d elements, want 1", sel, len(els))
	}
	return els[0]
}

func (f *fixture) click(el dom.Element) *dom.Event {
	ev := &dom.Event{Type: dom.Click, Target: el}
	f.s.HandleEvent(ev)
	return ev
}

func (f *fixture) hover(el dom.Element) {
	f.s.HandleEvent(&dom.Event{Type: dom.PointerMove, Target: el})
}

func (f *fixture) persisted(t *testing.T) []string {
	t.Helper()
	if err := f.s.Store().Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	got, _ := f.mem.Get(context.Background(), pageKey)
	return got
}

func TestClean_SecondListItem(t *testing.T) {
	f := newFixture(t, listPage, nil)
	f.s.EnableClean()

	items := f.query(t, "li")
	ev := f.click(items[1])
	if !ev.Suppressed() {
		t.Error("click not suppressed")
	}

	marked := f.query(t, dom.RemovedSelector)
	if len(marked) != 1 || !marked[0].Same(items[1]) {
		t.Fatalf("marked %d elements, want only the second li", len(marked))
	}
	sels := f.persisted(t)
	if len(sels) != 1 || !strings.HasSuffix(sels[0], "li:nth-of-type(2)") {
		t.Fatalf("persisted = %v", sels)
	}
	if dom.Origin(items[1]) != sels[0] {
		t.Errorf("origin = %q, want %q", dom.Origin(items[1]), sels[0])
	}
	if f.s.Highlighted() != nil {
		t.Error("highlight left after click")
	}
}

func TestClean_IneligibleTargets(t *testing.T) {
	f := newFixture(t, listPage, nil)
	f.s.EnableClean()

	for _, el := range []dom.Element{f.doc.Root(), f.doc.Body(), f.one(t, "title")} {
		if ev := f.click(el); ev.Suppressed() {
			t.Errorf("click on <%s> suppressed", el.TagName())
		}
	}
	if f.s.Store().Len() != 0 {
		t.Errorf("persisted %d selectors", f.s.Store().Len())
	}

	li := f.query(t, "li")[0]
	f.click(li)
	if ev := f.click(li); ev.Suppressed() {
		t.Error("click on already removed element suppressed")
	}
	if f.s.Store().Len() != 1 {
		t.Errorf("Len = %d, want 1", f.s.Store().Len())
	}
}

func TestPointer_CleanHighlight(t *testing.T) {
	f := newFixture(t, listPage, nil)
	f.s.EnableClean()

	li := f.query(t, "li")[0]
	f.hover(li)
	if !li.HasClass(dom.CleanHighlightClass) {
		t.Fatal("hovered element not highlighted")
	}
	f.hover(f.doc.Body())
	if li.HasClass(dom.CleanHighlightClass) || f.s.Highlighted() != nil {
		t.Error("highlight kept when hovering body")
	}
}

func TestPointer_UndoHighlightsClosestMarked(t *testing.T) {
	f := newFixture(t, listPage, nil)
	f.s.EnableClean()
	li := f.query(t, "li")[1]
	f.click(li)

	f.s.EnableUndo()
	span := f.one(t, "span")
	f.hover(span)
	if !li.HasClass(dom.RestoreHighlightClass) {
		t.Fatal("marked ancestor not highlighted for restore")
	}
	f.hover(f.query(t, "li")[0])
	if li.HasClass(dom.RestoreHighlightClass) || f.s.Highlighted() != nil {
		t.Error("restore highlight kept over unmarked element")
	}
}

// After reload a persisted selector matches two elements, one of them
// rendered late from a repeated template. Undo mode shows both and one
// click restores both.
func TestUndo_ReloadRestoresAllMatches(t *testing.T) {
	sel := "section > div:nth-of-type(1)"
	mem := store.NewMemory()
	if err := mem.Put(context.Background(), pageKey, []string{sel}); err != nil {
		t.Fatal(err)
	}

	f := newFixture(t, `<html><body><section><div>ad</div><p>x</p></section></body></html>`, mem)
	if !dom.Marked(f.query(t, "div")[0]) {
		t.Fatal("persisted removal not applied at load")
	}

	if _, err := f.doc.AppendHTML(f.doc.Body(), "<section><div>ad</div><p>y</p></section>"); err != nil {
		t.Fatal(err)
	}
	f.s.PageLoaded()
	f.frames.Run()

	f.s.EnableUndo()
	marked := f.query(t, dom.RemovedSelector)
	if len(marked) != 2 {
		t.Fatalf("undo mode shows %d elements, want 2", len(marked))
	}

	f.click(marked[1])
	if n := len(f.query(t, dom.RemovedSelector)); n != 0 {
		t.Errorf("%d elements still marked", n)
	}
	if sels := f.persisted(t); len(sels) != 0 {
		t.Errorf("persisted = %v, want none", sels)
	}
}

// Drift: the persisted selector no longer matches anything, but an element
// still carries it as its origin.
func TestUndo_SelectorDrift(t *testing.T) {
	f := newFixture(t, listPage, nil)
	f.s.EnableClean()
	items := f.query(t, "li")
	f.click(items[2])
	sel := dom.Origin(items[2])

	f.doc.Remove(items[0])
	f.doc.Remove(items[1])
	f.frames.Run()
	if els, _ := f.doc.QueryAll(sel); len(els) != 0 {
		t.Fatalf("selector %q still matches after restructuring", sel)
	}
	if !dom.Marked(items[2]) {
		t.Fatal("drifted element lost its marker")
	}

	f.s.EnableUndo()
	if ev := f.click(items[2]); !ev.Suppressed() {
		t.Error("undo click not suppressed")
	}
	if dom.Marked(items[2]) {
		t.Error("clicked element not restored")
	}
	if f.s.Store().Has(sel) {
		t.Error("selector still persisted")
	}
}

func TestUndo_ClickWithoutOriginRestoresOnlyTarget(t *testing.T) {
	f := newFixture(t, listPage, nil)
	f.s.EnableClean()
	f.click(f.query(t, "li")[0])

	stray := f.query(t, "li")[2]
	stray.SetAttr(dom.RemovedAttr, "1")

	f.s.EnableUndo()
	f.click(stray)
	if dom.Marked(stray) {
		t.Error("stray element not restored")
	}
	if f.s.Store().Len() != 1 {
		t.Errorf("persisted set changed: %v", f.s.Store().Selectors())
	}
}

func TestUndo_ClickOnUnmarkedIgnored(t *testing.T) {
	f := newFixture(t, listPage, nil)
	f.s.EnableUndo()
	if ev := f.click(f.query(t, "li")[0]); ev.Suppressed() {
		t.Error("click on visible element suppressed in undo mode")
	}
}

func TestRoundTrip_NoMarkersLeft(t *testing.T) {
	f := newFixture(t, listPage, nil)
	f.s.EnableClean()
	li := f.query(t, "li")[0]
	f.click(li)
	sel := dom.Origin(li)

	f.s.markBySelector(sel)
	if n := f.s.restoreBySelector(sel); n != 1 {
		t.Fatalf("restored %d, want 1", n)
	}
	for _, el := range f.query(t, dom.RemovedSelector) {
		if dom.Origin(el) == sel {
			t.Errorf("element still traces to %q", sel)
		}
	}
}

func TestRestoreAll(t *testing.T) {
	f := newFixture(t, listPage, nil)
	f.s.EnableClean()
	for _, li := range f.query(t, "li")[:2] {
		f.click(li)
	}
	f.one(t, "a").SetAttr(dom.RemovedAttr, "1")

	f.s.EnableUndo()
	btn := f.one(t, "."+dom.RestoreAllButtonClass)
	if _, disabled := btn.Attr("disabled"); disabled {
		t.Fatal("restore-all disabled with persisted selectors")
	}
	if ev := f.click(btn); !ev.Suppressed() {
		t.Error("restore-all click not suppressed")
	}

	if n := len(f.query(t, dom.RemovedSelector)); n != 0 {
		t.Errorf("%d elements still marked", n)
	}
	if sels := f.persisted(t); len(sels) != 0 {
		t.Errorf("persisted = %v", sels)
	}
	if _, disabled := btn.Attr("disabled"); !disabled {
		t.Error("restore-all still enabled on empty set")
	}
	if f.s.Reconciler().Observing() {
		t.Error("reconciler observing an empty set")
	}

	// Disabled button ignores clicks.
	if ev := f.click(btn); ev.Suppressed() {
		t.Error("disabled restore-all handled a click")
	}
}

func TestRestoreAll_FromEmpty(t *testing.T) {
	f := newFixture(t, listPage, nil)
	if n := f.s.RestoreAll(); n != 0 {
		t.Errorf("restored %d from an empty page", n)
	}
	if f.s.Store().Len() != 0 {
		t.Error("store not empty")
	}
}

func TestModes_MutualExclusion(t *testing.T) {
	f := newFixture(t, listPage, nil)
	root := f.doc.Root()
	steps := []func(){
		f.s.EnableClean, f.s.EnableUndo, f.s.EnableUndo, f.s.DisableClean,
		f.s.EnableClean, f.s.DisableUndo, f.s.DisableAll, f.s.EnableUndo,
		f.s.EnableClean, f.s.DisableClean, f.s.DisableClean,
	}
	for i, step := range steps {
		step()
		clean := root.HasClass(dom.CleanModeClass)
		undo := root.HasClass(dom.UndoModeClass)
		if clean && undo {
			t.Fatalf("step %d: both modes active", i)
		}
		st := f.s.State()
		if st.CleanEnabled != clean || st.UndoEnabled != undo || st.Enabled != clean {
			t.Fatalf("step %d: state %+v disagrees with root classes", i, st)
		}
		if f.doc.Listening() != (f.s.Mode() != Off) {
			t.Fatalf("step %d: listening=%v in mode %s", i, f.doc.Listening(), f.s.Mode())
		}
	}
}

func TestEscape(t *testing.T) {
	for _, ev := range []dom.Event{
		{Type: dom.KeyDown, Key: "Escape"},
		{Type: dom.KeyUp, Key: "Esc"},
		{Type: dom.KeyDown, Code: "Escape"},
		{Type: dom.KeyDown, KeyCode: 27},
	} {
		f := newFixture(t, listPage, nil)
		f.s.EnableUndo()
		f.s.HandleEvent(&ev)
		if f.s.Mode() != Off {
			t.Errorf("%+v left mode %s", ev, f.s.Mode())
		}
		if !ev.Suppressed() {
			t.Errorf("%+v not suppressed", ev)
		}
	}

	f := newFixture(t, listPage, nil)
	f.s.EnableClean()
	other := &dom.Event{Type: dom.KeyDown, Key: "a"}
	f.s.HandleEvent(other)
	if f.s.Mode() != Clean || other.Suppressed() {
		t.Error("non-Escape key handled")
	}
}

func TestPresentation_Singletons(t *testing.T) {
	f := newFixture(t, listPage, nil)
	for range 3 {
		f.s.EnableUndo()
		f.s.EnableClean()
	}
	if n := len(f.query(t, "#"+dom.StyleID)); n != 1 {
		t.Errorf("%d stylesheets", n)
	}
	if n := len(f.query(t, "#"+dom.UndoPanelID)); n != 1 {
		t.Errorf("%d undo panels", n)
	}
	for _, name := range []string{
		dom.CleanModeClass, dom.UndoModeClass, dom.CleanHighlightClass,
		dom.RestoreHighlightClass, dom.UndoPanelID, dom.RestoreAllButtonClass,
		dom.RemovedSelector,
	} {
		if !strings.Contains(stylesheet, name) {
			t.Errorf("stylesheet does not reference %s", name)
		}
	}
}

func TestStylesheetInjectedWhileOff(t *testing.T) {
	f := newFixture(t, listPage, nil)
	if f.s.Mode() != Off {
		t.Fatal("new session not off")
	}
	f.one(t, "#"+dom.StyleID)
}

func TestDispatch(t *testing.T) {
	f := newFixture(t, listPage, nil)
	cases := []struct {
		cmd   Command
		clean bool
		undo  bool
	}{
		{Command{Type: CmdGetModes}, false, false},
		{Command{Type: CmdToggleClean}, true, false},
		{Command{Type: CmdToggleUndo}, false, true},
		{Command{Type: CmdToggleUndo}, false, false},
		{Command{Type: CmdSetUndo, Enabled: true}, false, true},
		{Command{Type: CmdSetClean, Enabled: true}, true, false},
		{Command{Type: CmdGetCleanMode}, true, false},
		{Command{Type: CmdSetClean}, false, false},
		{Command{Type: CmdSetUndo}, false, false},
	}
	for _, c := range cases {
		st, ok := f.s.Dispatch(c.cmd)
		if !ok {
			t.Fatalf("%s unhandled", c.cmd.Type)
		}
		if st.CleanEnabled != c.clean || st.UndoEnabled != c.undo || st.Enabled != c.clean {
			t.Errorf("%+v -> %+v", c.cmd, st)
		}
	}

	if _, ok := f.s.Dispatch(Command{Type: "PING"}); ok {
		t.Error("unknown command handled")
	}
	if Known("PING") || !Known(CmdRestoreAll) {
		t.Error("Known disagrees with the command table")
	}
}

func TestDispatch_RestoreAll(t *testing.T) {
	f := newFixture(t, listPage, nil)
	f.s.EnableClean()
	f.click(f.query(t, "li")[0])

	st, ok := f.s.Dispatch(Command{Type: CmdRestoreAll})
	if !ok || !st.CleanEnabled {
		t.Fatalf("restore-all -> %+v, %v", st, ok)
	}
	if f.s.Store().Len() != 0 || len(f.query(t, dom.RemovedSelector)) != 0 {
		t.Error("restore-all command left removals")
	}
}

func TestStoreMutationsDriveObserver(t *testing.T) {
	f := newFixture(t, listPage, nil)
	if f.doc.Observers() != 0 {
		t.Fatal("observing with nothing persisted")
	}
	f.s.EnableClean()
	li := f.query(t, "li")[0]
	f.click(li)
	if f.doc.Observers() != 1 {
		t.Fatal("not observing after add")
	}
	f.s.EnableUndo()
	f.click(li)
	if f.doc.Observers() != 0 {
		t.Error("still observing after last remove")
	}
}

func TestClose(t *testing.T) {
	f := newFixture(t, listPage, nil)
	f.s.EnableClean()
	f.click(f.query(t, "li")[0])
	f.s.Close()
	if f.s.Mode() != Off || f.doc.Listening() || f.doc.Observers() != 0 {
		t.Error("Close left the session active")
	}
	if !slices.Equal(f.persisted(t), f.s.Store().Selectors()) {
		t.Error("persisted state diverged after Close")
	}
}

// unreachableDoc fails Root and CreateElement once broken is set, as a live
// tab does when a navigation races a command.
type unreachableDoc struct {
	*htmldom.Document
	broken bool
}

func (d *unreachableDoc) Root() dom.Element {
	if d.broken {
		return nil
	}
	return d.Document.Root()
}

func (d *unreachableDoc) CreateElement(tag string) dom.Element {
	if d.broken {
		return nil
	}
	return d.Document.CreateElement(tag)
}

func TestDispatch_HostLookupsFail(t *testing.T) {
	doc := &unreachableDoc{Document: htmldom.MustParse(listPage)}
	st := store.Open(context.Background(), store.NewMemory(), pageKey)
	s := New(Config{Doc: doc, Store: st, Scheduler: &reconcile.FrameQueue{}})
	if err := st.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	doc.broken = true

	state, ok := s.Dispatch(Command{Type: CmdSetUndo, Enabled: true})
	if !ok || !state.UndoEnabled || s.Mode() != Undo {
		t.Fatalf("set undo = %+v, %v; mode %s", state, ok, s.Mode())
	}
	if doc.ElementByID(dom.UndoPanelID) != nil {
		t.Error("half-built undo panel left in the document")
	}

	state, ok = s.Dispatch(Command{Type: CmdToggleClean})
	if !ok || !state.CleanEnabled || state.UndoEnabled {
		t.Fatalf("toggle clean = %+v, %v", state, ok)
	}
	state, ok = s.Dispatch(Command{Type: CmdSetClean, Enabled: false})
	if !ok || state.CleanEnabled || s.Mode() != Off {
		t.Fatalf("set clean off = %+v, %v", state, ok)
	}

	doc.broken = false
	if _, ok := s.Dispatch(Command{Type: CmdSetUndo, Enabled: true}); !ok {
		t.Fatal("set undo after recovery not handled")
	}
	if doc.ElementByID(dom.UndoPanelID) == nil {
		t.Error("undo panel not built once the host recovered")
	}
	if !doc.Document.Root().HasClass(dom.UndoModeClass) {
		t.Error("undo class missing once the host recovered")
	}
}
