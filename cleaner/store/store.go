// Package store holds the persisted selector set for one page and flushes it
// to a Backend through an ordered write queue.
//
// The in-memory set is authoritative for the session. Every mutation
// enqueues a write of the current snapshot; writes for a page key run one at
// a time in submission order, so a rapid add followed by a remove can never
// land in the reverse order. Backend failures are logged and swallowed.
package store

import (
	"context"
	"log/slog"
	"slices"

	"github.com/hazyhaar/purgedom/cleaner/internal/queue"
)

// Store is the persisted selector set for a single page key.
// It is not safe for concurrent use; the session loop owns it.
type Store struct {
	key       string
	backend   Backend
	seq       *queue.Sequencer
	selectors []string
	subs      []func(n int)
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithSequencer shares a write queue between stores. Stores for different
// pages on the same backend should share one.
func WithSequencer(seq *queue.Sequencer) Option {
	return func(s *Store) { s.seq = seq }
}

// Open creates the store for page key and loads its persisted selectors.
func Open(ctx context.Context, backend Backend, key string, opts ...Option) *Store {
	s := &Store{
		key:     key,
		backend: backend,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.seq == nil {
		s.seq = queue.New(queue.WithLogger(s.logger))
	}
	s.selectors = s.Load(ctx)
	return s
}

// Load reads the durable selectors for the page. Absent or malformed data
// and read failures all yield an empty set.
func (s *Store) Load(ctx context.Context) []string {
	sels, err := s.backend.Get(ctx, s.key)
	if err != nil {
		s.logger.Warn("store: load failed, starting empty", "page", s.key, "error", err)
		return nil
	}
	return sels
}

// Key returns the page key.
func (s *Store) Key() string { return s.key }

// Len returns the number of persisted selectors.
func (s *Store) Len() int { return len(s.selectors) }

// Has reports whether selector is persisted.
func (s *Store) Has(selector string) bool { return slices.Contains(s.selectors, selector) }

// Selectors returns a copy of the set in insertion order.
func (s *Store) Selectors() []string { return slices.Clone(s.selectors) }

// Subscribe registers fn to run with the new size after every mutation.
func (s *Store) Subscribe(fn func(n int)) {
	s.subs = append(s.subs, fn)
}

// Add appends selector. It is a no-op for empty or already present
// selectors and reports whether the set changed.
func (s *Store) Add(selector string) bool {
	if selector == "" || s.Has(selector) {
		return false
	}
	s.selectors = append(s.selectors, selector)
	s.changed()
	return true
}

// Remove drops selector and reports whether the set changed.
func (s *Store) Remove(selector string) bool {
	if selector == "" {
		return false
	}
	next := slices.DeleteFunc(slices.Clone(s.selectors), func(v string) bool { return v == selector })
	if len(next) == len(s.selectors) {
		return false
	}
	s.selectors = next
	s.changed()
	return true
}

// Clear empties the set with a single write.
func (s *Store) Clear() bool {
	if len(s.selectors) == 0 {
		return false
	}
	s.selectors = nil
	s.changed()
	return true
}

// Flush waits until every write enqueued so far has settled.
func (s *Store) Flush(ctx context.Context) error {
	return s.seq.Flush(ctx, s.key)
}

func (s *Store) changed() {
	for _, fn := range s.subs {
		fn(len(s.selectors))
	}
	s.enqueueSave()
}

func (s *Store) enqueueSave() {
	snapshot := slices.Clone(s.selectors)
	key := s.key
	s.seq.Enqueue(key, func(ctx context.Context) error {
		if err := s.backend.Put(ctx, key, snapshot); err != nil {
			s.logger.Warn("store: flush failed", "page", key, "selectors", len(snapshot), "error", err)
		}
		return nil
	})
}
