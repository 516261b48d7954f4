// Package queue runs asynchronous tasks strictly in submission order per key.
//
// Each Enqueue chains the task behind the previous task for the same key:
// it starts only after that one settles, whether it succeeded or failed.
// Different keys run independently. In-flight tasks are never cancelled.
package queue

import (
	"context"
	"log/slog"
	"sync"
)

// Task is one unit of work. A returned error is logged and does not stop
// the chain.
type Task func(ctx context.Context) error

// Sequencer chains tasks per key.
type Sequencer struct {
	mu     sync.Mutex
	tails  map[string]chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	logger *slog.Logger
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithLogger sets the logger used for failed tasks.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sequencer) { s.logger = l }
}

// WithContext sets the context handed to every task. Default: Background.
func WithContext(ctx context.Context) Option {
	return func(s *Sequencer) { s.ctx = ctx }
}

// New creates an empty Sequencer.
func New(opts ...Option) *Sequencer {
	s := &Sequencer{
		tails:  make(map[string]chan struct{}),
		ctx:    context.Background(),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Enqueue appends task to key's chain and returns immediately.
func (s *Sequencer) Enqueue(key string, task Task) {
	done := make(chan struct{})

	s.mu.Lock()
	prev := s.tails[key]
	s.tails[key] = done
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)

		if prev != nil {
			<-prev
		}
		if err := task(s.ctx); err != nil {
			s.logger.Warn("queue: task failed", "key", key, "error", err)
		}

		s.mu.Lock()
		if s.tails[key] == done {
			delete(s.tails, key)
		}
		s.mu.Unlock()
	}()
}

// Flush blocks until every task enqueued for key before the call has
// settled, or ctx is done.
func (s *Sequencer) Flush(ctx context.Context, key string) error {
	s.mu.Lock()
	tail := s.tails[key]
	s.mu.Unlock()

	if tail == nil {
		return nil
	}
	select {
	case <-tail:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until all enqueued tasks for all keys have settled.
func (s *Sequencer) Wait() {
	s.wg.Wait()
}

// Pending returns the number of keys with unsettled tasks.
func (s *Sequencer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tails)
}
