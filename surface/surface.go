// Package surface hosts the frame, separation and capture windows on the
// desktop and routes their window events into the geometry synchronizer and
// the recording session.
package surface

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"region-share/geometry"
	"region-share/region"
	"region-share/screenshot"
	"region-share/session"
)

var ErrUnsupported = errors.New("desktop surfaces are only implemented on Windows")

// Grip is the chrome band drawn inside the capture surface, in logical
// units. The capture surface is excluded from screen capture, so the band
// never shows up in sampled frames.
var Grip = geometry.Thickness{Left: 3, Top: 8, Right: 3, Bottom: 3}

const closeSize = 14

// Geometry is the part of region.Synchronizer the window layer reports to.
type Geometry interface {
	Attach(role region.Role, h region.Handle, bounds geometry.Rect, tr geometry.Transformations)
	Detach(role region.Role)
	Surface(role region.Role) (region.Surface, bool)
	RequestFrameGeometry(r geometry.DeviceRect)
	RequestCaptureGeometry(r geometry.DeviceRect)
	OnMinimized(role region.Role)
	OnRestored(role region.Role)
	OnScaleChanged(role region.Role, tr geometry.Transformations)
}

// Controller receives the user's gestures on the surfaces.
type Controller interface {
	Mode() session.Mode
	StartRecording() error
	StopRecording() error
	OnSeparationPointerDown()
	OnFrameActivated()
}

// Queue is the UI work queue drained on the window thread.
type Queue interface {
	Post(fn func()) bool
	SetWake(fn func())
	Drain() int
}

type Options struct {
	Title  string
	Border geometry.Thickness
	Theme  color.RGBA
	// Placement is the stored frame rectangle. It is ignored when it is not
	// visible on any display.
	Placement *geometry.DeviceRect
	Queue     Queue
}

// CloseBox is the logical rectangle of the stop button on a capture surface
// of the given logical width.
func CloseBox(width float64) geometry.Rect {
	return geometry.Rect{Left: width - Grip.Right - closeSize, Top: 0, Width: closeSize, Height: closeSize}
}

func overClose(width float64) func(geometry.Point) bool {
	box := CloseBox(width)
	return func(p geometry.Point) bool {
		return p.X >= box.Left && p.X < box.Right() && p.Y >= box.Top && p.Y < box.Bottom()
	}
}

// InitialPlacement picks the frame rectangle at startup: the stored one if
// any display shows it, otherwise a default frame centered on the first
// display.
func InitialPlacement(stored *geometry.DeviceRect, displays []image.Rectangle, def geometry.DeviceRect) geometry.DeviceRect {
	if stored != nil && screenshot.Visible(*stored, displays) {
		return *stored
	}
	if len(displays) == 0 {
		return def
	}
	d := displays[0]
	w, h := def.Width(), def.Height()
	left := d.Min.X + (d.Dx()-w)/2
	top := d.Min.Y + (d.Dy()-h)/2
	return geometry.DeviceRectFromSize(left, top, w, h)
}

// Caption is the text shown in the frame's top band.
func Caption(title string, mode session.Mode, capture geometry.DeviceRect) string {
	s := fmt.Sprintf("%s  %dx%d", title, capture.Width(), capture.Height())
	if mode == session.Recording {
		return s + "  (sharing)"
	}
	return s
}

// toBGRA copies img into a top-down 32bpp DIB buffer of the same size.
func toBGRA(dst []byte, img *image.RGBA) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+w*4]
		row := dst[y*w*4 : (y+1)*w*4]
		for x := 0; x < w*4; x += 4 {
			row[x] = src[x+2]
			row[x+1] = src[x+1]
			row[x+2] = src[x]
			row[x+3] = 0xff
		}
	}
}
