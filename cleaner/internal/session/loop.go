package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrLoopClosed is returned when work is posted to a stopped Loop.
var ErrLoopClosed = errors.New("session: loop closed")

// Loop is the single execution context of a page. Host events, frame
// callbacks and controller commands are all posted to it and run one at a
// time, each to completion.
type Loop struct {
	tasks  chan func()
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

// NewLoop creates a Loop. It does nothing until Run is called.
func NewLoop(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		tasks:  make(chan func(), 64),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Run executes posted work until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	defer l.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.tasks:
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("session: task panicked", "panic", r)
		}
	}()
	fn()
}

// Post queues fn and returns without waiting. It reports false once the
// loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish. If ctx ends while fn
// is still queued, fn is skipped and ctx.Err() returned; once fn has
// started, Do waits for it whatever ctx does, so an error always means fn
// did not run.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	const (
		queued int32 = iota
		started
		abandoned
	)
	var state atomic.Int32
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		if !state.CompareAndSwap(queued, started) {
			return
		}
		fn()
	}) {
		return ErrLoopClosed
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
	}
	if state.CompareAndSwap(queued, abandoned) {
		return ctx.Err()
	}
	<-finished
	return nil
}

// Close stops the loop. Work still queued is dropped.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} { return l.done }
