// Package session is the per-page context of the cleaner: the mode
// controller, the interaction router, the restore paths, the injected
// presentation and the command table.
//
// A Session is built when a page loads and discarded on navigation. It is
// single-threaded: every method must run on the page's Loop (or, in tests,
// on one goroutine).
package session

import (
	"log/slog"

	"github.com/hazyhaar/purgedom/cleaner/dom"
	"github.com/hazyhaar/purgedom/cleaner/highlight"
	"github.com/hazyhaar/purgedom/cleaner/reconcile"
	"github.com/hazyhaar/purgedom/cleaner/store"
)

// Mode is the interactive state of a page.
type Mode int

const (
	Off Mode = iota
	Clean
	Undo
)

func (m Mode) String() string {
	switch m {
	case Clean:
		return "clean"
	case Undo:
		return "undo"
	default:
		return "off"
	}
}

// Config wires a Session to its host page.
type Config struct {
	Doc       dom.Document
	Store     *store.Store
	Scheduler reconcile.Scheduler
	Logger    *slog.Logger
}

// Session holds all mutable state for one page.
type Session struct {
	doc    dom.Document
	store  *store.Store
	rec    *reconcile.Reconciler
	hl     highlight.Tracker
	logger *slog.Logger

	mode      Mode
	listening bool
	panel     dom.Element
	button    dom.Element
}

// New builds the session for a freshly loaded page: it injects the
// stylesheet, hides every persisted removal and starts observing if
// anything is persisted.
func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		doc:    cfg.Doc,
		store:  cfg.Store,
		logger: logger.With("page", cfg.Store.Key()),
	}
	s.rec = reconcile.New(reconcile.Config{
		Doc:       cfg.Doc,
		Scheduler: cfg.Scheduler,
		Selectors: cfg.Store.Selectors,
		Mark:      s.mark,
		Logger:    s.logger,
	})
	s.store.Subscribe(func(n int) {
		s.rec.Sync(n > 0)
		s.refreshRestoreAll()
	})

	s.ensureStyle()
	s.rec.Pass()
	s.rec.Sync(s.store.Len() > 0)
	s.logger.Debug("session: started", "persisted", s.store.Len())
	return s
}

// Mode returns the active mode.
func (s *Session) Mode() Mode { return s.mode }

// State returns the mode flags as reported to controllers.
func (s *Session) State() ModeState {
	return ModeState{
		Enabled:      s.mode == Clean,
		CleanEnabled: s.mode == Clean,
		UndoEnabled:  s.mode == Undo,
	}
}

// Store returns the page's persisted selector set.
func (s *Session) Store() *store.Store { return s.store }

// Reconciler returns the page's reconciler.
func (s *Session) Reconciler() *reconcile.Reconciler { return s.rec }

// Highlighted returns the element under the highlight, or nil.
func (s *Session) Highlighted() dom.Element {
	el, _ := s.hl.Current()
	return el
}

// PageLoaded runs once the host reports the load event.
func (s *Session) PageLoaded() {
	s.rec.PageLoaded()
}

// Close leaves every mode and stops observing. Enqueued writes keep
// running on the store's queue.
func (s *Session) Close() {
	s.DisableAll()
	s.rec.Close()
}

func (s *Session) mark(el dom.Element, selector string) {
	if !dom.Removable(s.doc, el) {
		return
	}
	dom.Mark(el, selector)
	s.hl.Release(el)
}

func (s *Session) restore(el dom.Element) {
	dom.Unmark(el)
	s.hl.Release(el)
}
