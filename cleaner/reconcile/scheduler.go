package reconcile

import (
	"sync"
	"time"
)

// Scheduler runs a callback at the next frame boundary.
type Scheduler interface {
	RequestFrame(fn func())
}

// TimerScheduler fires frames on a fixed interval and hands the callback to
// post, which must run it on the session's execution context.
type TimerScheduler struct {
	interval time.Duration
	post     func(func())

	mu     sync.Mutex
	timers map[*time.Timer]struct{}
	closed bool
}

// NewTimerScheduler creates a scheduler with the given frame interval.
// Default interval: 16ms.
func NewTimerScheduler(interval time.Duration, post func(func())) *TimerScheduler {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &TimerScheduler{
		interval: interval,
		post:     post,
		timers:   make(map[*time.Timer]struct{}),
	}
}

func (s *TimerScheduler) RequestFrame(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(s.interval, func() {
		s.mu.Lock()
		delete(s.timers, t)
		closed := s.closed
		s.mu.Unlock()
		if !closed {
			s.post(fn)
		}
	})
	s.timers[t] = struct{}{}
}

// Close cancels every pending frame. Later requests are dropped.
func (s *TimerScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for t := range s.timers {
		t.Stop()
	}
	clear(s.timers)
}

// FrameQueue is a Scheduler driven by hand: callbacks wait until Run.
// Offline rendering and tests use it.
type FrameQueue struct {
	pending []func()
}

func (q *FrameQueue) RequestFrame(fn func()) {
	q.pending = append(q.pending, fn)
}

// Len returns the number of callbacks waiting for the next frame.
func (q *FrameQueue) Len() int { return len(q.pending) }

// Run fires one frame: every callback queued before the call.
// Callbacks queued while running wait for the next frame.
func (q *FrameQueue) Run() int {
	batch := q.pending
	q.pending = nil
	for _, fn := range batch {
		fn()
	}
	return len(batch)
}
