package cleaner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hazyhaar/purgedom/cleaner/dom"
	"github.com/hazyhaar/purgedom/cleaner/htmldom"
	"github.com/hazyhaar/purgedom/cleaner/internal/browser"
	"github.com/hazyhaar/purgedom/cleaner/store"
)

const (
	newsURL = "https://news.example/today#top"
	newsKey = "https://news.example/today"
)

const newsPage = `<html><head></head><body>
<nav>menu</nav>
<main><p class="ad">buy now</p><p class="story">story</p></main>
</body></html>`

func attached(t *testing.T, mem *store.Memory) *Cleaner {
	t.Helper()
	if mem == nil {
		mem = store.NewMemory()
	}
	c := New(nil, mem, nil)
	t.Cleanup(c.Stop)
	if err := c.Attach(context.Background(), "news", newsURL, htmldom.MustParse(newsPage)); err != nil {
		t.Fatal(err)
	}
	return c
}

// click delivers a click on the first match of sel through the page loop.
func click(t *testing.T, c *Cleaner, sel string) {
	t.Helper()
	p := c.lookup("news")
	var found bool
	err := p.loop.Do(context.Background(), func() {
		els, err := p.doc.QueryAll(sel)
		if err != nil || len(els) == 0 {
			return
		}
		found = true
		p.sess.HandleEvent(&dom.Event{Type: dom.Click, Target: els[0]})
	})
	if err != nil || !found {
		t.Fatalf("click %s: found=%v err=%v", sel, found, err)
	}
}

func markedCount(t *testing.T, c *Cleaner) int {
	t.Helper()
	var n int
	err := c.Do(context.Background(), "news", func(doc dom.Document) {
		els, _ := doc.QueryAll(dom.RemovedSelector)
		n = len(els)
	})
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestDispatch_Modes(t *testing.T) {
	c := attached(t, nil)
	ctx := context.Background()

	state, ok, err := c.Dispatch(ctx, "news", Command{Type: CmdToggleClean})
	if err != nil || !ok {
		t.Fatalf("toggle: %v %v", ok, err)
	}
	if !state.CleanEnabled || !state.Enabled || state.UndoEnabled {
		t.Fatalf("state = %+v", state)
	}

	state, _, _ = c.Dispatch(ctx, "news", Command{Type: CmdSetUndo, Enabled: true})
	if state.CleanEnabled || !state.UndoEnabled {
		t.Fatalf("undo state = %+v", state)
	}

	_, ok, err = c.Dispatch(ctx, "news", Command{Type: "OPEN_POD_BAY_DOORS"})
	if err != nil || ok {
		t.Fatalf("unknown command: ok=%v err=%v", ok, err)
	}
}

func TestDispatch_Unavailable(t *testing.T) {
	c := attached(t, nil)
	ctx := context.Background()

	if _, _, err := c.Dispatch(ctx, "nope", Command{Type: CmdGetModes}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("unknown page: %v", err)
	}

	if err := c.Attach(ctx, "blank", "about:blank", htmldom.MustParse("<p>x</p>")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Dispatch(ctx, "blank", Command{Type: CmdGetModes}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("page without key: %v", err)
	}

	if err := c.ClosePage(ctx, "news"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Dispatch(ctx, "news", Command{Type: CmdGetModes}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("closed page: %v", err)
	}
}

func TestAttach_Duplicate(t *testing.T) {
	c := attached(t, nil)
	if err := c.Attach(context.Background(), "news", newsURL, htmldom.MustParse(newsPage)); err == nil {
		t.Fatal("duplicate page id accepted")
	}
	for _, id := range []string{"", "a/b", "x y"} {
		if err := c.Attach(context.Background(), id, newsURL, htmldom.MustParse(newsPage)); err == nil {
			t.Errorf("page id %q accepted", id)
		}
	}
}

func TestClean_PersistsAcrossPages(t *testing.T) {
	mem := store.NewMemory()
	c := attached(t, mem)
	ctx := context.Background()

	if _, _, err := c.Dispatch(ctx, "news", Command{Type: CmdSetClean, Enabled: true}); err != nil {
		t.Fatal(err)
	}
	click(t, c, "p.ad")
	if n := markedCount(t, c); n != 1 {
		t.Fatalf("marked = %d", n)
	}
	c.Flush()
	sels, err := mem.Get(ctx, newsKey)
	if err != nil || len(sels) != 1 {
		t.Fatalf("persisted = %v, %v", sels, err)
	}

	// A fresh load of the same page hides the element without any mode.
	again := attached(t, mem)
	if n := markedCount(t, again); n != 1 {
		t.Fatalf("reload marked = %d", n)
	}
	state, _, _ := again.Dispatch(ctx, "news", Command{Type: CmdGetModes})
	if state.CleanEnabled || state.UndoEnabled {
		t.Fatalf("reload state = %+v", state)
	}
}

func TestRestoreAll_Command(t *testing.T) {
	mem := store.NewMemory()
	c := attached(t, mem)
	ctx := context.Background()

	c.Dispatch(ctx, "news", Command{Type: CmdSetClean, Enabled: true})
	click(t, c, "p.ad")
	click(t, c, "nav")
	if n := markedCount(t, c); n != 2 {
		t.Fatalf("marked = %d", n)
	}

	if _, ok, err := c.Dispatch(ctx, "news", Command{Type: CmdRestoreAll}); err != nil || !ok {
		t.Fatalf("restore all: %v %v", ok, err)
	}
	if n := markedCount(t, c); n != 0 {
		t.Fatalf("marked after restore = %d", n)
	}
	c.Flush()
	if sels, _ := mem.Get(ctx, newsKey); len(sels) != 0 {
		t.Fatalf("persisted after restore = %v", sels)
	}
}

func TestPages(t *testing.T) {
	c := attached(t, nil)
	ctx := context.Background()
	if err := c.Attach(ctx, "blank", "about:blank", htmldom.MustParse("<p>x</p>")); err != nil {
		t.Fatal(err)
	}
	c.Dispatch(ctx, "news", Command{Type: CmdSetClean, Enabled: true})

	pages := c.Pages(ctx)
	if len(pages) != 2 {
		t.Fatalf("pages = %+v", pages)
	}
	if pages[0].ID != "blank" || pages[0].Live {
		t.Errorf("blank = %+v", pages[0])
	}
	if pages[1].ID != "news" || !pages[1].Live || pages[1].Mode != "clean" || pages[1].URL != newsURL {
		t.Errorf("news = %+v", pages[1])
	}
}

func TestDispatch_TimedOutCommandNotApplied(t *testing.T) {
	c := attached(t, nil)
	ctx := context.Background()
	p := c.lookup("news")

	release := make(chan struct{})
	p.loop.Post(func() { <-release })

	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, _, err := c.Dispatch(short, "news", Command{Type: CmdToggleClean})
	close(release)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("dispatch on a busy page: %v", err)
	}

	state, ok, err := c.Dispatch(ctx, "news", Command{Type: CmdGetModes})
	if err != nil || !ok {
		t.Fatalf("get modes: %v %v", ok, err)
	}
	if state.CleanEnabled {
		t.Fatal("toggle reported as failed was applied")
	}
}

func TestNavigation_RebuildsForNewPage(t *testing.T) {
	const (
		sportURL = "https://news.example/sport?d=1#live"
		sportKey = "https://news.example/sport?d=1"
	)
	mem := store.NewMemory()
	ctx := context.Background()
	if err := mem.Put(ctx, sportKey, []string{"p.ad"}); err != nil {
		t.Fatal(err)
	}
	c := attached(t, mem)
	if _, _, err := c.Dispatch(ctx, "news", Command{Type: CmdSetClean, Enabled: true}); err != nil {
		t.Fatal(err)
	}

	p := c.lookup("news")
	var newsDoc dom.Document
	sportDoc := htmldom.MustParse(newsPage)
	err := p.loop.Do(ctx, func() {
		newsDoc = p.doc
		c.navigated(p, sportURL)
		p.newDoc = func(context.Context) dom.Document { return sportDoc }
	})
	if err != nil {
		t.Fatal(err)
	}
	if newsDoc.Root().HasClass(dom.CleanModeClass) {
		t.Error("left page still in clean mode")
	}

	if _, _, err := c.Dispatch(ctx, "news", Command{Type: CmdGetModes}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("between pages: %v", err)
	}
	if pages := c.Pages(ctx); len(pages) != 1 || pages[0].Live || pages[0].URL != sportURL {
		t.Fatalf("pages between navigations = %+v", pages)
	}

	deliver := func(typ string) {
		t.Helper()
		if err := p.loop.Do(ctx, func() { c.handleMessage(ctx, p, browser.Message{Type: typ}) }); err != nil {
			t.Fatal(err)
		}
	}
	deliver(browser.MsgReady)

	state, ok, err := c.Dispatch(ctx, "news", Command{Type: CmdGetModes})
	if err != nil || !ok || state.CleanEnabled || state.UndoEnabled {
		t.Fatalf("new page state = %+v, %v, %v", state, ok, err)
	}
	if n := markedCount(t, c); n != 1 {
		t.Fatalf("new page marked = %d, want the stored p.ad", n)
	}
	var key string
	c.Do(ctx, "news", func(dom.Document) { key = p.sess.Store().Key() })
	if key != sportKey {
		t.Errorf("session key = %q", key)
	}

	// load after ready keeps the session built by ready.
	sess := p.sess
	deliver(browser.MsgLoad)
	var same bool
	c.Do(ctx, "news", func(dom.Document) { same = p.sess == sess })
	if !same {
		t.Error("load rebuilt a live session")
	}
}
