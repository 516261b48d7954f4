package cleaner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/purgedom/cleaner/dom"
	"github.com/hazyhaar/purgedom/cleaner/internal/browser"
	"github.com/hazyhaar/purgedom/cleaner/internal/session"
	"github.com/hazyhaar/purgedom/cleaner/reconcile"
	"github.com/hazyhaar/purgedom/cleaner/store"
)

// page is one hosted document. Fields below loop are owned by the loop
// goroutine and must only be touched from tasks posted to it.
type page struct {
	id     string
	tab    *browser.Tab // nil for attached documents
	newDoc func(ctx context.Context) dom.Document
	cancel context.CancelFunc
	log    *slog.Logger
	loop   *session.Loop

	url    string
	doc    dom.Document
	sess   *session.Session
	frames *reconcile.TimerScheduler
}

func (c *Cleaner) newPage(id string) *page {
	log := c.logger.With("page_id", id)
	return &page{id: id, log: log, loop: session.NewLoop(log)}
}

// host registers p, starts its loop and builds the first session.
func (c *Cleaner) host(ctx context.Context, p *page, pageURL string) error {
	c.mu.Lock()
	if _, dup := c.pages[p.id]; dup {
		c.mu.Unlock()
		return fmt.Errorf("cleaner: page %q already open", p.id)
	}
	c.pages[p.id] = p
	c.mu.Unlock()

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		p.loop.Run(loopCtx)
	}()

	err := p.loop.Do(ctx, func() {
		p.url = pageURL
		c.build(loopCtx, p)
	})
	if err != nil {
		c.mu.Lock()
		delete(c.pages, p.id)
		c.mu.Unlock()
		cancel()
		return fmt.Errorf("cleaner: start page: %w", err)
	}
	return nil
}

// build replaces the page's session with a fresh one for its current URL.
// Pages without a usable key (about:blank, data: URLs) get no session.
func (c *Cleaner) build(ctx context.Context, p *page) {
	c.teardown(p)

	key, err := store.PageKey(p.url)
	if err != nil {
		p.log.Info("cleaner: page not cleanable", "url", p.url, "error", err)
		return
	}
	p.doc = p.newDoc(ctx)
	st := store.Open(ctx, c.backend, key,
		store.WithLogger(p.log),
		store.WithSequencer(c.seq))
	p.frames = reconcile.NewTimerScheduler(c.cfg.FrameInterval, func(fn func()) {
		p.loop.Post(fn)
	})
	p.sess = session.New(session.Config{
		Doc:       p.doc,
		Store:     st,
		Scheduler: p.frames,
		Logger:    p.log,
	})
}

// teardown discards the page's session. Queued selector writes still land.
func (c *Cleaner) teardown(p *page) {
	if p.sess != nil {
		p.sess.Close()
		p.sess = nil
	}
	if p.frames != nil {
		p.frames.Close()
		p.frames = nil
	}
	p.doc = nil
}

// watch pumps bridge messages and navigations onto the page loop until the
// loop stops.
func (c *Cleaner) watch(p *page) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-p.loop.Done()
		cancel()
	}()

	p.tab.Watch(ctx,
		func(msg browser.Message) {
			p.loop.Post(func() { c.handleMessage(ctx, p, msg) })
		},
		func(url string) {
			p.loop.Post(func() { c.navigated(p, url) })
		},
	)
}

// navigated discards the session of the page being left. The next ready
// or load message builds one for url.
func (c *Cleaner) navigated(p *page, url string) {
	c.teardown(p)
	p.url = url
	p.log.Debug("cleaner: navigated", "url", url)
}

func (c *Cleaner) handleMessage(ctx context.Context, p *page, msg browser.Message) {
	switch msg.Type {
	case browser.MsgReady:
		if p.sess == nil {
			c.build(ctx, p)
		}
		return
	case browser.MsgLoad:
		if p.sess == nil {
			c.build(ctx, p)
		}
		if p.sess != nil {
			p.sess.PageLoaded()
		}
		return
	}

	bd, ok := p.doc.(*browser.Document)
	if !ok || p.sess == nil {
		return
	}
	if msg.Type == browser.MsgMutation {
		bd.Mutated()
		return
	}
	if ev, ok := bd.Event(msg); ok {
		p.sess.HandleEvent(ev)
	}
}

func (c *Cleaner) closePage(ctx context.Context, p *page) {
	if err := p.loop.Do(ctx, func() { c.teardown(p) }); err != nil {
		p.log.Debug("cleaner: teardown skipped", "error", err)
	}
	p.loop.Close()
	if p.cancel != nil {
		p.cancel()
	}
	if p.tab != nil {
		if err := p.tab.Close(); err != nil {
			p.log.Debug("cleaner: tab close", "error", err)
		}
	}
}
