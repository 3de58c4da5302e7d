package screenshot

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"region-share/geometry"
)

// Grabber copies screen pixels with kbinani/screenshot.
type Grabber struct{}

// Grab captures r from the virtual desktop. The returned image has its
// origin at (0,0) and the size of r.
func (Grabber) Grab(r geometry.DeviceRect) (*image.RGBA, error) {
	if r.Empty() {
		return nil, fmt.Errorf("invalid region dimensions: width=%d, height=%d", r.Width(), r.Height())
	}

	img, err := screenshot.CaptureRect(image.Rect(r.Left, r.Top, r.Right, r.Bottom))
	if err != nil {
		return nil, fmt.Errorf("failed to capture region %v: %w", r, err)
	}
	return img, nil
}

// Displays returns the bounds of all active displays.
func Displays() []image.Rectangle {
	n := screenshot.NumActiveDisplays()
	out := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, screenshot.GetDisplayBounds(i))
	}
	return out
}

// Visible reports whether r overlaps at least one of displays.
func Visible(r geometry.DeviceRect, displays []image.Rectangle) bool {
	rr := image.Rect(r.Left, r.Top, r.Right, r.Bottom)
	for _, d := range displays {
		if rr.Overlaps(d) {
			return true
		}
	}
	return false
}
