package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// navigateTimeout bounds the initial navigation of a tab.
const navigateTimeout = 30 * time.Second

// Tab is one page under the cleaner's control, with the bridge installed.
type Tab struct {
	Page *rod.Page
	ID   string

	mu     sync.Mutex
	url    string
	router *rod.HijackRouter
	logger *slog.Logger
}

// OpenTab creates a tab, installs the binding and the bridge so that every
// document it loads reports input and mutations, then navigates to pageURL.
func OpenTab(ctx context.Context, mgr *Manager, pageURL, pageID string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	log := mgr.cfg.Logger.With("page_id", pageID)

	var (
		page *rod.Page
		err  error
	)
	if mgr.cfg.RemoteURL == "" && mgr.cfg.Display != DisplayWindow {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	t := &Tab{Page: page, ID: pageID, url: pageURL, logger: log}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		t.router = blockResources(page, newResourceFilter(mgr.cfg.ResourceBlocking))
	}

	if err := (proto.RuntimeAddBinding{Name: BindingName}).Call(page); err != nil {
		t.Close()
		return nil, fmt.Errorf("browser: add binding: %w", err)
	}
	if _, err := page.EvalOnNewDocument(BridgeScript()); err != nil {
		t.Close()
		return nil, fmt.Errorf("browser: install bridge: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, navigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		t.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		log.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	if info, err := page.Context(navCtx).Info(); err == nil {
		t.url = info.URL
	}
	return t, nil
}

// URL returns the URL of the tab's current main-frame document.
func (t *Tab) URL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url
}

// Watch delivers bridge messages and main-frame navigations until ctx is
// done. Callbacks run on the event goroutine and must not block on CDP
// calls; hand work to the page's loop instead.
func (t *Tab) Watch(ctx context.Context, onMessage func(Message), onNavigate func(url string)) {
	t.Page.Context(ctx).EachEvent(
		func(e *proto.RuntimeBindingCalled) {
			if e.Name != BindingName {
				return
			}
			msg, err := DecodeMessage(e.Payload)
			if err != nil {
				t.logger.Debug("browser: bad bridge message", "error", err)
				return
			}
			onMessage(msg)
		},
		func(e *proto.PageFrameNavigated) {
			if e.Frame == nil || e.Frame.ParentID != "" {
				return
			}
			t.mu.Lock()
			t.url = e.Frame.URL
			t.mu.Unlock()
			onNavigate(e.Frame.URL)
		},
	)()
}

// HTML serialises the current document.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	res, err := t.Page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: get DOM: %w", err)
	}
	return res.Value.Str(), nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.router != nil {
		_ = t.router.Stop()
		t.router = nil
	}
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
