// Package reconcile keeps the live document consistent with the persisted
// selector set.
//
// The reconciler observes childList mutations only while at least one
// selector is persisted. Each notification requests a pass; requests are
// coalesced so that at most one pass is pending per frame. A pass marks
// every element matching a persisted selector. It never unmarks.
package reconcile

import (
	"log/slog"

	"github.com/hazyhaar/purgedom/cleaner/dom"
)

// Config wires a Reconciler to its session.
type Config struct {
	Doc       dom.Document
	Scheduler Scheduler
	// Selectors returns the current persisted set.
	Selectors func() []string
	// Mark hides one element on behalf of selector. Default: dom.Mark.
	Mark func(el dom.Element, selector string)
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Reconciler re-applies removal markers as the document mutates.
type Reconciler struct {
	cfg     Config
	stop    func()
	pending bool
	passes  int
}

// New creates an idle reconciler.
func New(cfg Config) *Reconciler {
	if cfg.Mark == nil {
		cfg.Mark = dom.Mark
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Selectors == nil {
		cfg.Selectors = func() []string { return nil }
	}
	return &Reconciler{cfg: cfg}
}

// Sync starts observing when active and stops otherwise.
func (r *Reconciler) Sync(active bool) {
	switch {
	case active && r.stop == nil:
		r.stop = r.cfg.Doc.Observe(r.Request)
		r.cfg.Logger.Debug("reconcile: observing")
	case !active && r.stop != nil:
		r.stop()
		r.stop = nil
		r.cfg.Logger.Debug("reconcile: idle")
	}
}

// Observing reports whether mutation notifications are subscribed.
func (r *Reconciler) Observing() bool { return r.stop != nil }

// Request schedules a pass for the next frame unless one is already pending.
func (r *Reconciler) Request() {
	if r.pending {
		return
	}
	r.pending = true
	r.cfg.Scheduler.RequestFrame(func() {
		r.pending = false
		r.Pass()
	})
}

// Pending reports whether a pass is scheduled.
func (r *Reconciler) Pending() bool { return r.pending }

// PageLoaded schedules the pass that catches content rendered after the
// session started.
func (r *Reconciler) PageLoaded() {
	r.Request()
}

// Pass marks every element matching a persisted selector and returns the
// number of elements marked. A selector the host cannot evaluate matches
// nothing.
func (r *Reconciler) Pass() int {
	r.passes++
	marked := 0
	for _, sel := range r.cfg.Selectors() {
		els, err := r.cfg.Doc.QueryAll(sel)
		if err != nil {
			r.cfg.Logger.Debug("reconcile: selector skipped", "selector", sel, "error", err)
			continue
		}
		for _, el := range els {
			r.cfg.Mark(el, sel)
			marked++
		}
	}
	return marked
}

// Passes returns how many passes have run.
func (r *Reconciler) Passes() int { return r.passes }

// Close stops observing. A pass already scheduled still runs.
func (r *Reconciler) Close() {
	r.Sync(false)
}
