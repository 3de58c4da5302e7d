package capture

import (
	"image"
	"image/draw"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"region-share/geometry"
)

// Options wires a Loop to its collaborators. Cursor may be nil.
type Options struct {
	Rect       RectSource
	Grabber    Grabber
	Cursor     CursorSource
	Sink       Sink
	Dispatcher Dispatcher
}

// Stats are cumulative tick counters.
type Stats struct {
	Ticks     uint64
	Skipped   uint64
	Failed    uint64
	Empty     uint64
	Published uint64
}

// Loop periodically samples the capture rectangle into a frame buffer and
// publishes it to the sink on the UI thread. A tick that fires while the
// previous one is still in flight is dropped.
type Loop struct {
	opts Options

	mu    sync.Mutex
	state State
	stop  chan struct{}
	done  chan struct{}

	armed    atomic.Bool
	inFlight atomic.Bool
	seq      atomic.Uint64

	ticks     atomic.Uint64
	skipped   atomic.Uint64
	failed    atomic.Uint64
	empty     atomic.Uint64
	published atomic.Uint64
}

// New creates an idle loop.
func New(opts Options) *Loop {
	return &Loop{opts: opts}
}

// Start arms the timer. It fails if the loop is already capturing.
func (l *Loop) Start(interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Capturing {
		return ErrAlreadyRunning
	}

	l.state = Capturing
	l.armed.Store(true)
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go l.run(interval, l.stop, l.done)
	log.Printf("CAPTURE: started, interval %v", interval)
	return nil
}

// Stop disarms the timer. A tick already in flight finishes on its own.
// Stop is safe to call at any time, also when idle.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.state != Capturing {
		l.mu.Unlock()
		return
	}
	l.state = Idle
	l.armed.Store(false)
	close(l.stop)
	done := l.done
	l.mu.Unlock()

	<-done
	log.Printf("CAPTURE: stopped after %d ticks (%d skipped, %d failed)", l.ticks.Load(), l.skipped.Load(), l.failed.Load())
}

// State returns the current loop state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Busy reports whether a tick currently holds the in-flight guard.
func (l *Loop) Busy() bool { return l.inFlight.Load() }

func (l *Loop) Stats() Stats {
	return Stats{
		Ticks:     l.ticks.Load(),
		Skipped:   l.skipped.Load(),
		Failed:    l.failed.Load(),
		Empty:     l.empty.Load(),
		Published: l.published.Load(),
	}
}

func (l *Loop) run(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			// ticks run off the timer goroutine so a slow capture cannot
			// stall the timer; the in-flight guard provides back-pressure
			go l.tick()
		}
	}
}

// tick runs one capture cycle.
func (l *Loop) tick() {
	if !l.armed.Load() {
		return
	}
	l.ticks.Add(1)
	if !l.inFlight.CompareAndSwap(false, true) {
		l.skipped.Add(1)
		return
	}

	handedOff := false
	defer func() {
		if !handedOff {
			l.inFlight.Store(false)
		}
	}()

	frame, ok := l.sample()
	if !ok {
		return
	}

	if l.opts.Dispatcher == nil {
		l.publish(frame)
		return
	}
	handedOff = l.opts.Dispatcher.Post(func() {
		defer l.inFlight.Store(false)
		l.publish(frame)
	})
}

// sample performs steps 2-4 of a tick. Any failure, including a panic from
// a platform call on a window that went away, turns the tick into a no-op.
func (l *Loop) sample() (frame Frame, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			l.failed.Add(1)
			log.Printf("CAPTURE: tick panicked: %v", r)
			ok = false
		}
	}()

	rect, ok := l.opts.Rect.CaptureRect()
	if !ok || rect.Empty() {
		l.empty.Add(1)
		return Frame{}, false
	}

	img, err := l.opts.Grabber.Grab(rect)
	if err != nil {
		l.failed.Add(1)
		log.Printf("CAPTURE: grab %v failed: %v", rect, err)
		return Frame{}, false
	}
	if img == nil {
		l.failed.Add(1)
		return Frame{}, false
	}

	if l.opts.Cursor != nil {
		c, err := l.opts.Cursor.Cursor()
		if err != nil {
			log.Printf("CAPTURE: cursor query failed: %v", err)
		} else {
			CompositeCursor(img, c, rect.Origin())
		}
	}

	return Frame{Image: img, Origin: rect.Origin(), Seq: l.seq.Add(1)}, true
}

func (l *Loop) publish(f Frame) {
	defer func() {
		if r := recover(); r != nil {
			l.failed.Add(1)
			log.Printf("CAPTURE: sink panicked: %v", r)
		}
	}()
	if l.opts.Sink != nil {
		l.opts.Sink.Publish(f)
	}
	l.published.Add(1)
}

// CompositeCursor draws the cursor icon into dst at its screen position
// relative to origin. Parts outside dst are clipped.
func CompositeCursor(dst *image.RGBA, c Cursor, origin geometry.DevicePoint) {
	if !c.Visible || c.Icon == nil {
		return
	}
	at := c.Position.Sub(origin)
	ib := c.Icon.Bounds()
	r := image.Rect(at.X, at.Y, at.X+ib.Dx(), at.Y+ib.Dy()).Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	sp := ib.Min.Add(r.Min.Sub(image.Pt(at.X, at.Y)))
	draw.Draw(dst, r, c.Icon, sp, draw.Over)
}
