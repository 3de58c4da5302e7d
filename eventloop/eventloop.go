package eventloop

import (
	"context"
	"log"
	"sync"
)

// Loop is the single-threaded coordinator: work posted from any goroutine
// runs in order on whichever thread drains it (the Win32 message pump in
// the application, Run in tests and headless use).
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   func()
	notify chan struct{}
}

// New creates an open loop.
func New() *Loop {
	return &Loop{notify: make(chan struct{}, 1)}
}

// SetWake installs a function called after every successful Post. The
// Win32 pump uses it to post itself a message.
func (l *Loop) SetWake(fn func()) {
	l.mu.Lock()
	l.wake = fn
	l.mu.Unlock()
}

// Post queues fn and returns immediately. It returns false once the loop is
// closed.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	wake := l.wake
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
	if wake != nil {
		wake()
	}
	return true
}

// Drain runs everything queued so far and returns how many functions ran.
// Work posted while draining runs on the next Drain.
func (l *Loop) Drain() int {
	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, fn := range batch {
		l.run(fn)
	}
	return len(batch)
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in event loop: %v", r)
		}
	}()
	fn()
}

// Pending returns the number of queued functions.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Run drains the queue on the calling goroutine until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.Drain()
			return ctx.Err()
		case <-l.notify:
			l.Drain()
		}
	}
}

// Close rejects further posts. Work already queued can still be drained.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}
