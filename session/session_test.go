package session

import (
	"errors"
	"testing"
	"time"

	"region-share/geometry"
	"region-share/region"
	"region-share/settings"
	"region-share/zorder"
)

const (
	frameHandle region.Handle = 1
	sepHandle   region.Handle = 2
)

var border = geometry.Thickness{Left: 4, Top: 16, Right: 4, Bottom: 4}

type events []string

func (e *events) add(s string) { *e = append(*e, s) }

type host struct {
	log    *events
	next   region.Handle
	bounds map[region.Handle]geometry.DeviceRect
}

func (h *host) Create(role region.Role, r geometry.DeviceRect) (region.Handle, error) {
	h.log.add("create " + role.String())
	h.next++
	h.bounds[h.next] = r
	return h.next, nil
}

func (h *host) Destroy(hd region.Handle) error {
	h.log.add("destroy")
	delete(h.bounds, hd)
	return nil
}

func (h *host) SetBounds(hd region.Handle, r geometry.DeviceRect) error {
	h.bounds[hd] = r
	return nil
}

func (h *host) Bounds(hd region.Handle) (geometry.DeviceRect, error) {
	r, ok := h.bounds[hd]
	if !ok {
		return geometry.DeviceRect{}, errors.New("invalid window handle")
	}
	return r, nil
}

type sampler struct {
	log       *events
	intervals []time.Duration
	stops     int
	fail      error
}

func (s *sampler) Start(d time.Duration) error {
	s.log.add("start")
	if s.fail != nil {
		return s.fail
	}
	s.intervals = append(s.intervals, d)
	return nil
}

func (s *sampler) Stop() {
	s.log.add("stop")
	s.stops++
}

type fixture struct {
	log     *events
	host    *host
	sync    *region.Synchronizer
	sampler *sampler
	rec     *zorder.Recorder
	sess    *Session
	modes   []Mode
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{log: &events{}}
	f.host = &host{log: f.log, next: 10, bounds: map[region.Handle]geometry.DeviceRect{}}
	f.sync = region.New(f.host, region.Options{Border: border})

	tr := geometry.IdentityTransformations()
	frame := geometry.Rect{Left: 100, Top: 100, Width: 400, Height: 300}
	f.host.bounds[frameHandle] = tr.RectToDevice(frame)
	f.host.bounds[sepHandle] = geometry.DeviceRect{}
	f.sync.Attach(region.RoleFrame, frameHandle, frame, tr)
	f.sync.Attach(region.RoleSeparation, sepHandle, geometry.Rect{}, tr)

	f.rec = zorder.NewRecorder(frameHandle, sepHandle)
	f.rec.Fail = func(op zorder.Op) error {
		f.log.add("zorder")
		return nil
	}
	f.sampler = &sampler{log: f.log}
	f.sess = New(f.sync, f.sampler, zorder.New(f.rec, f.sync), Options{
		FrameRate:     30,
		OnModeChanged: func(m Mode) { f.modes = append(f.modes, m) },
	})
	return f
}

func (f *fixture) reset() {
	*f.log = nil
	f.rec.Reset()
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStartRecordingOrder(t *testing.T) {
	f := newFixture(t)

	if err := f.sess.StartRecording(); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}

	want := []string{"create capture", "start", "zorder", "zorder"}
	if !equal(*f.log, want) {
		t.Errorf("event order = %v, want %v", *f.log, want)
	}
	if f.sess.Mode() != Recording {
		t.Errorf("mode = %v", f.sess.Mode())
	}
	if len(f.sampler.intervals) != 1 || f.sampler.intervals[0] != time.Second/30 {
		t.Errorf("sampler intervals = %v", f.sampler.intervals)
	}
	if f.rec.Index(sepHandle)-f.rec.Index(frameHandle) != 1 || f.rec.Hidden(sepHandle) {
		t.Error("frame should sit directly above a visible separation layer")
	}

	rect, ok := f.sync.CaptureRect()
	if !ok {
		t.Fatal("no capture rect published")
	}
	if !rect.StrictlyInside(f.sync.FrameDeviceRect()) {
		t.Errorf("capture rect %v not strictly inside frame %v", rect, f.sync.FrameDeviceRect())
	}

	if err := f.sess.StartRecording(); !errors.Is(err, region.ErrAlreadyRecording) {
		t.Errorf("second StartRecording = %v", err)
	}
}

func TestStopRecordingOrder(t *testing.T) {
	f := newFixture(t)
	if err := f.sess.StartRecording(); err != nil {
		t.Fatal(err)
	}
	captureHandle := f.sync.Handle(region.RoleCapture)
	// the user dragged the recording surface
	f.host.bounds[captureHandle] = geometry.DeviceRect{Left: 300, Top: 200, Right: 700, Bottom: 500}
	f.reset()

	if err := f.sess.StopRecording(); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}

	want := []string{"stop", "destroy", "zorder", "zorder"}
	if !equal(*f.log, want) {
		t.Errorf("event order = %v, want %v", *f.log, want)
	}
	if f.rec.Topmost() != frameHandle || !f.rec.Hidden(sepHandle) {
		t.Error("frame should be topmost with the separation layer hidden")
	}
	wantFrame := geometry.DeviceRect{Left: 296, Top: 184, Right: 704, Bottom: 504}
	if got := f.host.bounds[frameHandle]; got != wantFrame {
		t.Errorf("frame = %v, want %v", got, wantFrame)
	}
	if _, ok := f.sync.CaptureRect(); ok {
		t.Error("capture rect should be cleared after recording")
	}
	if err := f.sess.StopRecording(); !errors.Is(err, region.ErrNotRecording) {
		t.Errorf("second StopRecording = %v", err)
	}
	if len(f.modes) != 2 || f.modes[0] != Recording || f.modes[1] != Editing {
		t.Errorf("mode notifications = %v", f.modes)
	}
}

func TestStartRollsBackWhenLoopFails(t *testing.T) {
	f := newFixture(t)
	f.sampler.fail = errors.New("timer unavailable")

	if err := f.sess.StartRecording(); err == nil {
		t.Fatal("expected error")
	}
	if f.sess.Mode() != Editing || f.sync.Recording() {
		t.Error("failed start must leave the session editing without a capture surface")
	}
	if len(f.rec.Ops()) != 0 {
		t.Errorf("no z-order change expected, got %v", f.rec.Ops())
	}
}

func TestToggle(t *testing.T) {
	f := newFixture(t)
	for i, want := range []Mode{Recording, Editing, Recording} {
		if err := f.sess.Toggle(); err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		if f.sess.Mode() != want {
			t.Fatalf("toggle %d: mode = %v, want %v", i, f.sess.Mode(), want)
		}
	}
}

func TestSeparationPointerDown(t *testing.T) {
	f := newFixture(t)
	f.sess.OnSeparationPointerDown()
	if len(f.rec.Ops()) != 0 {
		t.Error("pointer-down while editing must not touch z-order")
	}

	if err := f.sess.StartRecording(); err != nil {
		t.Fatal(err)
	}
	// a click on the frame area raised it
	_ = f.rec.Apply(zorder.Op{Target: frameHandle, Anchor: zorder.Anchor{Kind: zorder.Top}})
	f.reset()

	f.sess.OnSeparationPointerDown()
	ops := f.rec.Ops()
	if len(ops) != 2 || ops[0].Target != sepHandle || ops[1].Anchor.Handle != sepHandle {
		t.Errorf("expected SendToBack, got %v", ops)
	}
}

func TestFrameActivated(t *testing.T) {
	f := newFixture(t)
	f.sess.OnFrameActivated()
	if ops := f.rec.Ops(); len(ops) != 2 || ops[1].Anchor.Kind != zorder.Top {
		t.Errorf("expected BringToFront, got %v", ops)
	}

	if err := f.sess.StartRecording(); err != nil {
		t.Fatal(err)
	}
	f.reset()
	f.sess.OnFrameActivated()
	if len(f.rec.Ops()) != 0 {
		t.Error("activation while recording must not raise the frame")
	}
}

func TestApplyPreset(t *testing.T) {
	f := newFixture(t)
	if err := f.sess.ApplyPreset(settings.Size{Width: 1280, Height: 1024}); err != nil {
		t.Fatal(err)
	}
	want := geometry.DeviceRect{Left: 100, Top: 100, Right: 1388, Bottom: 1144}
	if got := f.host.bounds[frameHandle]; got != want {
		t.Errorf("frame = %v, want %v", got, want)
	}

	if err := f.sess.StartRecording(); err != nil {
		t.Fatal(err)
	}
	rect, _ := f.sync.CaptureRect()
	if rect.Width() != 1280 || rect.Height() != 1024 {
		t.Errorf("capture area = %v, want 1280x1024", rect)
	}
	if err := f.sess.ApplyPreset(settings.Size{Width: 800, Height: 600}); !errors.Is(err, region.ErrAlreadyRecording) {
		t.Errorf("preset while recording = %v", err)
	}
}

func TestFrameRateDefault(t *testing.T) {
	s := New(nil, nil, nil, Options{})
	if s.FrameRate() != 15 {
		t.Errorf("default frame rate = %d", s.FrameRate())
	}
	s.SetFrameRate(0)
	if s.FrameRate() != 15 {
		t.Error("zero rate must be ignored")
	}
}
