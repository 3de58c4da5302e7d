package region

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"region-share/geometry"
)

// Role tags the three cooperating surfaces.
type Role int

const (
	RoleFrame Role = iota
	RoleSeparation
	RoleCapture
	roleCount
)

func (r Role) String() string {
	switch r {
	case RoleFrame:
		return "frame"
	case RoleSeparation:
		return "separation"
	case RoleCapture:
		return "capture"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Handle is an opaque platform window handle.
type Handle uintptr

// Surface is the synchronizer's record of one live on-screen surface.
type Surface struct {
	Role       Role
	Handle     Handle
	Bounds     geometry.Rect
	Transforms geometry.Transformations
	Minimized  bool
}

// Host performs the platform side of geometry changes. All coordinates are
// device pixels on the virtual desktop.
type Host interface {
	Create(role Role, bounds geometry.DeviceRect) (Handle, error)
	Destroy(h Handle) error
	SetBounds(h Handle, bounds geometry.DeviceRect) error
	Bounds(h Handle) (geometry.DeviceRect, error)
}

// Dispatcher queues work onto the UI thread. Post returns false when the
// queue no longer accepts work.
type Dispatcher interface {
	Post(fn func()) bool
}

var (
	ErrAlreadyRecording = errors.New("capture surface already active")
	ErrNotRecording     = errors.New("no active capture surface")
	ErrNoFrame          = errors.New("frame surface not attached")
)

// Options configures a Synchronizer.
type Options struct {
	// Border is the chrome band between the frame and the capture area,
	// in logical units.
	Border geometry.Thickness
	// DebugOffset shifts the separation surface away from the frame.
	DebugOffset geometry.DevicePoint
	// Dispatcher receives coalesced geometry flushes. When nil, requests
	// are applied immediately.
	Dispatcher Dispatcher
	// OnFrameChanged is called after the frame geometry was applied.
	OnFrameChanged func(frame geometry.DeviceRect)
}

// Synchronizer keeps the frame, separation and capture surfaces consistent.
// Every method except CaptureRect must be called from the UI thread.
type Synchronizer struct {
	host    Host
	opts    Options
	surface [roleCount]*Surface

	captureRect atomic.Pointer[geometry.DeviceRect]

	pending   [roleCount]*geometry.DeviceRect
	scheduled bool
	coalesced uint64
}

// New returns a synchronizer that drives host.
func New(host Host, opts Options) *Synchronizer {
	return &Synchronizer{host: host, opts: opts}
}

// Attach registers a surface the platform created on its own (the frame at
// startup and the separation layer right after it).
func (s *Synchronizer) Attach(role Role, h Handle, bounds geometry.Rect, tr geometry.Transformations) {
	s.surface[role] = &Surface{Role: role, Handle: h, Bounds: bounds, Transforms: tr}
	log.Printf("REGION: attached %s surface %#x at %v", role, uintptr(h), bounds)
	if role == RoleFrame || role == RoleSeparation {
		if f := s.surface[RoleFrame]; f != nil && !f.Minimized {
			s.applyFrame(f.Bounds)
		}
	}
}

// Detach forgets a surface that the platform destroyed.
func (s *Synchronizer) Detach(role Role) {
	s.surface[role] = nil
	s.pending[role] = nil
	if role == RoleCapture {
		s.captureRect.Store(nil)
	}
}

// Surface returns a copy of the record for role.
func (s *Synchronizer) Surface(role Role) (Surface, bool) {
	if role < 0 || role >= roleCount || s.surface[role] == nil {
		return Surface{}, false
	}
	return *s.surface[role], true
}

// Handle returns the platform handle for role, or zero.
func (s *Synchronizer) Handle(role Role) Handle {
	if sf, ok := s.Surface(role); ok {
		return sf.Handle
	}
	return 0
}

// Recording reports whether a capture surface is live.
func (s *Synchronizer) Recording() bool {
	return s.surface[RoleCapture] != nil
}

// Border returns the configured chrome thickness in logical units.
func (s *Synchronizer) Border() geometry.Thickness { return s.opts.Border }

// CaptureRect returns the rectangle last published for sampling. It is
// safe to call from any goroutine.
func (s *Synchronizer) CaptureRect() (geometry.DeviceRect, bool) {
	p := s.captureRect.Load()
	if p == nil {
		return geometry.DeviceRect{}, false
	}
	return *p, true
}

// FrameDeviceRect returns the frame rectangle in device pixels.
func (s *Synchronizer) FrameDeviceRect() geometry.DeviceRect {
	f := s.surface[RoleFrame]
	if f == nil {
		return geometry.DeviceRect{}
	}
	return f.Transforms.RectToDevice(f.Bounds)
}

// Coalesced returns how many requests were superseded before being applied.
func (s *Synchronizer) Coalesced() uint64 { return s.coalesced }

func (s *Synchronizer) publish(r geometry.DeviceRect) {
	r = r.Normalize()
	s.captureRect.Store(&r)
}
