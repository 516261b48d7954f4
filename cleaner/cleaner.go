// Package cleaner lets a user hide page elements by clicking them, keeps the
// removals per page across reloads, and restores them on demand.
//
// A Cleaner drives Chrome tabs (or caller-supplied documents). Each page gets
// its own single-threaded loop; browser events, reconcile frames and
// controller commands all run on it. Controllers reach pages through
// Dispatch, exposed over HTTP (Router), MCP (RegisterMCP) and the Client.
package cleaner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/hazyhaar/purgedom/cleaner/dom"
	"github.com/hazyhaar/purgedom/cleaner/internal/browser"
	"github.com/hazyhaar/purgedom/cleaner/internal/config"
	"github.com/hazyhaar/purgedom/cleaner/internal/queue"
	"github.com/hazyhaar/purgedom/cleaner/internal/session"
	"github.com/hazyhaar/purgedom/cleaner/store"
	"github.com/hazyhaar/purgedom/idgen"
)

// ErrUnavailable means the page has no live cleaning context: unknown ID,
// a page between navigations, or a closed page.
var ErrUnavailable = errors.New("cleaner: unavailable on this page")

// Controller is what the command channel transports need from a Cleaner.
type Controller interface {
	Dispatch(ctx context.Context, pageID string, cmd Command) (ModeState, bool, error)
	Pages(ctx context.Context) []PageInfo
}

// PageInfo describes one open page.
type PageInfo struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Live    bool   `json:"live"`
	Mode    string `json:"mode,omitempty"`
	Removed int    `json:"removed"`
}

// Cleaner owns the browser, the selector backend and every open page.
type Cleaner struct {
	cfg     *Config
	backend store.Backend
	seq     *queue.Sequencer
	mgr     *browser.Manager
	logger  *slog.Logger

	mu    sync.Mutex
	pages map[string]*page
	wg    sync.WaitGroup
}

// New creates a Cleaner. Selector writes from all pages go through one
// write queue on backend.
func New(cfg *Config, backend store.Backend, logger *slog.Logger) *Cleaner {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		cfg:     cfg,
		backend: backend,
		seq:     queue.New(queue.WithLogger(logger)),
		logger:  logger,
		pages:   make(map[string]*page),
	}
}

// Start launches the browser and opens every configured page.
func (c *Cleaner) Start(ctx context.Context) error {
	display, err := browser.ParseDisplay(c.cfg.Browser.Display)
	if err != nil {
		return fmt.Errorf("cleaner: %w", err)
	}
	c.mgr = browser.NewManager(browser.Config{
		RemoteURL:        c.cfg.Browser.Remote,
		Display:          display,
		ResourceBlocking: c.cfg.Browser.ResourceBlocking,
		XvfbDisplay:      c.cfg.Browser.XvfbDisplay,
		Logger:           c.logger,
	})
	if _, err := c.mgr.Start(ctx); err != nil {
		return fmt.Errorf("cleaner: start browser: %w", err)
	}

	for _, p := range c.cfg.Pages {
		if _, err := c.OpenPage(ctx, p.ID, p.URL); err != nil {
			c.logger.Error("cleaner: failed to open page", "url", p.URL, "error", err)
		}
	}
	return nil
}

// OpenPage opens pageURL in a new tab and starts cleaning it. An empty id
// gets a generated one, which is returned.
func (c *Cleaner) OpenPage(ctx context.Context, id, pageURL string) (string, error) {
	if c.mgr == nil {
		return "", fmt.Errorf("cleaner: browser not started")
	}
	if id == "" {
		id = idgen.Page()
	}
	if err := config.ValidateID(id); err != nil {
		return "", fmt.Errorf("cleaner: %w", err)
	}
	if c.lookup(id) != nil {
		return "", fmt.Errorf("cleaner: page %q already open", id)
	}

	tab, err := browser.OpenTab(ctx, c.mgr, pageURL, id)
	if err != nil {
		return "", fmt.Errorf("cleaner: open tab: %w", err)
	}

	p := c.newPage(id)
	p.tab = tab
	p.newDoc = func(ctx context.Context) dom.Document { return browser.NewDocument(ctx, tab) }
	if err := c.host(ctx, p, tab.URL()); err != nil {
		tab.Close()
		return "", err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.watch(p)
	}()

	c.logger.Info("cleaner: page open", "id", id, "url", pageURL)
	return id, nil
}

// Attach hosts a document the caller drives, such as an in-memory one.
func (c *Cleaner) Attach(ctx context.Context, id, pageURL string, doc dom.Document) error {
	if err := config.ValidateID(id); err != nil {
		return fmt.Errorf("cleaner: attach: %w", err)
	}
	if c.lookup(id) != nil {
		return fmt.Errorf("cleaner: page %q already open", id)
	}
	p := c.newPage(id)
	p.newDoc = func(context.Context) dom.Document { return doc }
	return c.host(ctx, p, pageURL)
}

// Do runs fn on the page's loop with its current document, or fails with
// ErrUnavailable. Attached documents must only be touched this way.
func (c *Cleaner) Do(ctx context.Context, pageID string, fn func(doc dom.Document)) error {
	p := c.lookup(pageID)
	if p == nil {
		return ErrUnavailable
	}
	var live bool
	err := p.loop.Do(ctx, func() {
		if p.sess == nil {
			return
		}
		live = true
		fn(p.doc)
	})
	return unavailable(err, live)
}

// Dispatch runs a command on a page. ok is false for unrecognised
// commands, which get no reply.
func (c *Cleaner) Dispatch(ctx context.Context, pageID string, cmd Command) (ModeState, bool, error) {
	p := c.lookup(pageID)
	if p == nil {
		return ModeState{}, false, ErrUnavailable
	}
	var (
		state    ModeState
		ok, live bool
	)
	err := p.loop.Do(ctx, func() {
		if p.sess == nil {
			return
		}
		live = true
		state, ok = p.sess.Dispatch(cmd)
	})
	if err := unavailable(err, live); err != nil {
		return ModeState{}, false, err
	}
	return state, ok, nil
}

func unavailable(err error, live bool) error {
	switch {
	case errors.Is(err, session.ErrLoopClosed):
		return ErrUnavailable
	case err != nil:
		return fmt.Errorf("cleaner: %w", err)
	case !live:
		return ErrUnavailable
	}
	return nil
}

// pageInfoTimeout bounds how long Pages waits on a busy loop.
const pageInfoTimeout = 2 * time.Second

// Pages lists open pages by ID.
func (c *Cleaner) Pages(ctx context.Context) []PageInfo {
	c.mu.Lock()
	pages := make([]*page, 0, len(c.pages))
	for _, p := range c.pages {
		pages = append(pages, p)
	}
	c.mu.Unlock()

	out := make([]PageInfo, 0, len(pages))
	for _, p := range pages {
		ctx, cancel := context.WithTimeout(ctx, pageInfoTimeout)
		info := PageInfo{ID: p.id}
		_ = p.loop.Do(ctx, func() {
			info.URL = p.url
			if p.sess != nil {
				info.Live = true
				info.Mode = p.sess.Mode().String()
				info.Removed = p.sess.Store().Len()
			}
		})
		cancel()
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b PageInfo) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// ClosePage ends cleaning on a page and closes its tab.
func (c *Cleaner) ClosePage(ctx context.Context, id string) error {
	c.mu.Lock()
	p := c.pages[id]
	delete(c.pages, id)
	c.mu.Unlock()
	if p == nil {
		return ErrUnavailable
	}
	c.closePage(ctx, p)
	return nil
}

// Flush waits until every selector write enqueued so far has settled.
func (c *Cleaner) Flush() {
	c.seq.Wait()
}

// Stop closes every page, waits for pending selector writes and shuts the
// browser down.
func (c *Cleaner) Stop() {
	c.mu.Lock()
	pages := c.pages
	c.pages = make(map[string]*page)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for id, p := range pages {
		c.closePage(ctx, p)
		c.logger.Info("cleaner: page closed", "id", id)
	}
	c.wg.Wait()
	c.seq.Wait()

	if c.mgr != nil {
		if err := c.mgr.Close(); err != nil {
			c.logger.Warn("cleaner: browser close", "error", err)
		}
	}
}

func (c *Cleaner) lookup(id string) *page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pages[id]
}
