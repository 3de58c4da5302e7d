package capture

import (
	"errors"
	"image"
	"time"

	"region-share/geometry"
)

var (
	ErrAlreadyRunning  = errors.New("capture loop already running")
	ErrInvalidInterval = errors.New("capture interval must be positive")
)

// State of a Loop.
type State int32

const (
	Idle State = iota
	Capturing
)

func (s State) String() string {
	if s == Capturing {
		return "capturing"
	}
	return "idle"
}

// Frame is one sampled image of the capture rectangle.
type Frame struct {
	Image  *image.RGBA
	Origin geometry.DevicePoint
	Seq    uint64
}

func (f Frame) Width() int  { return f.Image.Bounds().Dx() }
func (f Frame) Height() int { return f.Image.Bounds().Dy() }

// Cursor is the pointer state sampled on a tick.
type Cursor struct {
	Visible  bool
	Position geometry.DevicePoint
	Icon     image.Image
}

// RectSource yields the most recently published capture rectangle.
type RectSource interface {
	CaptureRect() (geometry.DeviceRect, bool)
}

// Grabber copies a block of screen pixels into a new buffer of the
// rectangle's size.
type Grabber interface {
	Grab(r geometry.DeviceRect) (*image.RGBA, error)
}

// CursorSource queries the pointer.
type CursorSource interface {
	Cursor() (Cursor, error)
}

// Sink receives completed frames on the UI thread.
type Sink interface {
	Publish(f Frame)
}

// Dispatcher hands work to the UI thread.
type Dispatcher interface {
	Post(fn func()) bool
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(f Frame)

func (fn SinkFunc) Publish(f Frame) { fn(f) }

// ValidFrameRates are the selectable capture rates.
var ValidFrameRates = []int{5, 10, 15, 20, 30, 60}

// DefaultFrameRate is used when no valid rate is configured.
const DefaultFrameRate = 15

// IntervalFor returns the timer period for a frame rate.
func IntervalFor(fps int) time.Duration {
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	return time.Second / time.Duration(fps)
}
