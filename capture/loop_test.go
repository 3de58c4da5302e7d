package capture

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"region-share/geometry"
)

type fixedRect struct {
	r  geometry.DeviceRect
	ok bool
}

func (f fixedRect) CaptureRect() (geometry.DeviceRect, bool) { return f.r, f.ok }

type slowGrabber struct {
	delay   time.Duration
	current atomic.Int32
	max     atomic.Int32
	calls   atomic.Int32
}

func (g *slowGrabber) Grab(r geometry.DeviceRect) (*image.RGBA, error) {
	g.calls.Add(1)
	n := g.current.Add(1)
	defer g.current.Add(-1)
	for {
		m := g.max.Load()
		if n <= m || g.max.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(g.delay)
	return image.NewRGBA(image.Rect(0, 0, r.Width(), r.Height())), nil
}

type grabFunc func(r geometry.DeviceRect) (*image.RGBA, error)

func (fn grabFunc) Grab(r geometry.DeviceRect) (*image.RGBA, error) { return fn(r) }

// queue is a Dispatcher that runs posted work when drained.
type queue struct {
	mu     sync.Mutex
	fns    []func()
	reject bool
}

func (q *queue) Post(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.reject {
		return false
	}
	q.fns = append(q.fns, fn)
	return true
}

func (q *queue) drain() int {
	q.mu.Lock()
	fns := q.fns
	q.fns = nil
	q.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

var testRect = fixedRect{r: geometry.DeviceRect{Left: 10, Top: 20, Right: 50, Bottom: 60}, ok: true}

func armed(opts Options) *Loop {
	l := New(opts)
	l.armed.Store(true)
	return l
}

func TestSlowCaptureNeverOverlaps(t *testing.T) {
	g := &slowGrabber{delay: 20 * time.Millisecond}
	var frames atomic.Int32
	l := New(Options{
		Rect:    testRect,
		Grabber: g,
		Sink:    SinkFunc(func(Frame) { frames.Add(1) }),
	})

	if err := l.Start(time.Millisecond); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	l.Stop()
	// let the last in-flight tick finish
	deadline := time.Now().Add(time.Second)
	for l.Busy() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if m := g.max.Load(); m > 1 {
		t.Errorf("max concurrent grabs = %d, want 1", m)
	}
	st := l.Stats()
	if st.Skipped == 0 {
		t.Errorf("expected skipped ticks with a slow grabber, got %+v", st)
	}
	if frames.Load() == 0 {
		t.Error("expected at least one published frame")
	}
	t.Logf("stats: %+v, grabs: %d", st, g.calls.Load())
}

func TestTickSkippedWhileInFlight(t *testing.T) {
	q := &queue{}
	var calls int
	l := armed(Options{
		Rect:       testRect,
		Grabber:    grabFunc(func(r geometry.DeviceRect) (*image.RGBA, error) { calls++; return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil }),
		Dispatcher: q,
	})

	l.tick()
	if !l.Busy() {
		t.Fatal("guard should be held until the posted publish runs")
	}
	l.tick()
	l.tick()
	if calls != 1 {
		t.Errorf("grab calls = %d, want 1", calls)
	}
	if st := l.Stats(); st.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", st.Skipped)
	}

	if n := q.drain(); n != 1 {
		t.Fatalf("drained %d posts, want 1", n)
	}
	if l.Busy() {
		t.Fatal("guard should be released after publication")
	}
	l.tick()
	if calls != 2 {
		t.Errorf("grab calls = %d after release, want 2", calls)
	}
}

func TestFailingTicksKeepLoopAlive(t *testing.T) {
	tests := []struct {
		name string
		grab grabFunc
	}{
		{"error", func(geometry.DeviceRect) (*image.RGBA, error) { return nil, errors.New("window gone") }},
		{"panic", func(geometry.DeviceRect) (*image.RGBA, error) { panic("invalid handle") }},
		{"nil image", func(geometry.DeviceRect) (*image.RGBA, error) { return nil, nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var published int
			l := armed(Options{Rect: testRect, Grabber: tt.grab, Sink: SinkFunc(func(Frame) { published++ })})
			l.tick()
			l.tick()
			if l.Busy() {
				t.Error("guard leaked after failed tick")
			}
			st := l.Stats()
			if st.Failed != 2 || st.Skipped != 0 {
				t.Errorf("stats = %+v, want 2 failed and none skipped", st)
			}
			if published != 0 {
				t.Errorf("published %d frames from failed ticks", published)
			}
		})
	}
}

func TestSinkPanicReleasesGuard(t *testing.T) {
	q := &queue{}
	l := armed(Options{
		Rect:       testRect,
		Grabber:    grabFunc(func(geometry.DeviceRect) (*image.RGBA, error) { return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil }),
		Sink:       SinkFunc(func(Frame) { panic("surface destroyed") }),
		Dispatcher: q,
	})
	l.tick()
	q.drain()
	if l.Busy() {
		t.Fatal("guard should be released after a panicking sink")
	}
}

func TestRejectedPostReleasesGuard(t *testing.T) {
	q := &queue{reject: true}
	l := armed(Options{
		Rect:       testRect,
		Grabber:    grabFunc(func(geometry.DeviceRect) (*image.RGBA, error) { return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil }),
		Dispatcher: q,
	})
	l.tick()
	if l.Busy() {
		t.Fatal("guard should be released when the UI thread refuses the post")
	}
}

func TestEmptyRectSkipsGrab(t *testing.T) {
	grabbed := false
	g := grabFunc(func(geometry.DeviceRect) (*image.RGBA, error) { grabbed = true; return nil, nil })

	for _, src := range []fixedRect{
		{ok: false},
		{r: geometry.DeviceRect{Left: 10, Top: 10, Right: 10, Bottom: 50}, ok: true},
	} {
		l := armed(Options{Rect: src, Grabber: g})
		l.tick()
		if st := l.Stats(); st.Empty != 1 {
			t.Errorf("%v: empty = %d, want 1", src.r, st.Empty)
		}
	}
	if grabbed {
		t.Error("Grab must not be called for an empty rectangle")
	}
}

func TestFrameSizeAndOrigin(t *testing.T) {
	var got Frame
	g := &slowGrabber{}
	l := armed(Options{Rect: testRect, Grabber: g, Sink: SinkFunc(func(f Frame) { got = f })})
	l.tick()
	if got.Image == nil {
		t.Fatal("no frame published")
	}
	if got.Width() != 40 || got.Height() != 40 {
		t.Errorf("frame size = %dx%d, want 40x40", got.Width(), got.Height())
	}
	if got.Origin != (geometry.DevicePoint{X: 10, Y: 20}) || got.Seq != 1 {
		t.Errorf("frame origin/seq = %v/%d", got.Origin, got.Seq)
	}
}

func TestTickAfterStopIsDropped(t *testing.T) {
	g := &slowGrabber{}
	l := New(Options{Rect: testRect, Grabber: g})
	l.tick()
	if g.calls.Load() != 0 || l.Stats().Ticks != 0 {
		t.Error("tick on a disarmed loop should do nothing")
	}
}

func TestStartStop(t *testing.T) {
	l := New(Options{Rect: testRect, Grabber: &slowGrabber{}})

	if err := l.Start(0); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("Start(0) = %v, want ErrInvalidInterval", err)
	}
	if err := l.Start(time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := l.Start(time.Hour); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}
	if l.State() != Capturing {
		t.Errorf("state = %v, want capturing", l.State())
	}
	l.Stop()
	l.Stop()
	if l.State() != Idle {
		t.Errorf("state = %v, want idle", l.State())
	}
	if err := l.Start(time.Hour); err != nil {
		t.Errorf("restart: %v", err)
	}
	l.Stop()
}

func TestStopDuringInFlightTick(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	l := New(Options{
		Rect: testRect,
		Grabber: grabFunc(func(geometry.DeviceRect) (*image.RGBA, error) {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
			return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
		}),
	})
	if err := l.Start(time.Millisecond); err != nil {
		t.Fatal(err)
	}
	<-started

	stopped := make(chan struct{})
	go func() {
		l.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on the in-flight tick")
	}

	close(release)
	deadline := time.Now().Add(time.Second)
	for l.Busy() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if l.Busy() {
		t.Error("in-flight tick never released the guard")
	}
}

func TestCompositeCursor(t *testing.T) {
	icon := image.NewRGBA(image.Rect(0, 0, 4, 4))
	red := color.RGBA{R: 255, A: 255}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			icon.SetRGBA(x, y, red)
		}
	}
	origin := geometry.DevicePoint{X: 100, Y: 100}

	dst := image.NewRGBA(image.Rect(0, 0, 10, 10))
	CompositeCursor(dst, Cursor{Visible: true, Position: geometry.DevicePoint{X: 103, Y: 105}, Icon: icon}, origin)
	if dst.RGBAAt(3, 5) != red || dst.RGBAAt(6, 8) != red {
		t.Error("cursor not drawn at position minus origin")
	}
	if dst.RGBAAt(2, 5) == red || dst.RGBAAt(7, 5) == red {
		t.Error("cursor drawn outside its box")
	}

	// clipped at the top-left corner
	dst = image.NewRGBA(image.Rect(0, 0, 10, 10))
	CompositeCursor(dst, Cursor{Visible: true, Position: geometry.DevicePoint{X: 98, Y: 98}, Icon: icon}, origin)
	if dst.RGBAAt(0, 0) != red || dst.RGBAAt(1, 1) != red || dst.RGBAAt(2, 2) == red {
		t.Error("clipped cursor drawn incorrectly")
	}

	// fully outside and hidden cursors leave the buffer untouched
	dst = image.NewRGBA(image.Rect(0, 0, 10, 10))
	CompositeCursor(dst, Cursor{Visible: true, Position: geometry.DevicePoint{X: 500, Y: 500}, Icon: icon}, origin)
	CompositeCursor(dst, Cursor{Visible: false, Position: geometry.DevicePoint{X: 101, Y: 101}, Icon: icon}, origin)
	for _, p := range dst.Pix {
		if p != 0 {
			t.Fatal("buffer modified")
		}
	}
}

func TestIntervalFor(t *testing.T) {
	if got := IntervalFor(15); got != time.Second/15 {
		t.Errorf("IntervalFor(15) = %v", got)
	}
	if got := IntervalFor(0); got != IntervalFor(DefaultFrameRate) {
		t.Errorf("IntervalFor(0) = %v, want default", got)
	}
}
