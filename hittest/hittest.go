package hittest

import (
	"region-share/geometry"
)

// Region is the non-client classification of a hit point.
type Region int

const (
	Client Region = iota
	Caption
	Left
	Right
	Top
	Bottom
	TopLeft
	TopRight
	BottomLeft
	BottomRight
	Transparent
)

var regionNames = [...]string{
	Client:      "client",
	Caption:     "caption",
	Left:        "left",
	Right:       "right",
	Top:         "top",
	Bottom:      "bottom",
	TopLeft:     "top-left",
	TopRight:    "top-right",
	BottomLeft:  "bottom-left",
	BottomRight: "bottom-right",
	Transparent: "transparent",
}

func (r Region) String() string {
	if r < 0 || int(r) >= len(regionNames) {
		return "unknown"
	}
	return regionNames[r]
}

// Code returns the WM_NCHITTEST result for the region.
func (r Region) Code() int32 {
	switch r {
	case Caption:
		return 2 // HTCAPTION
	case Left:
		return 10 // HTLEFT
	case Right:
		return 11 // HTRIGHT
	case Top:
		return 12 // HTTOP
	case TopLeft:
		return 13 // HTTOPLEFT
	case TopRight:
		return 14 // HTTOPRIGHT
	case Bottom:
		return 15 // HTBOTTOM
	case BottomLeft:
		return 16 // HTBOTTOMLEFT
	case BottomRight:
		return 17 // HTBOTTOMRIGHT
	case Transparent:
		return -1 // HTTRANSPARENT
	default:
		return 1 // HTCLIENT
	}
}

// State is the show state of the surface being tested.
type State int

const (
	Normal State = iota
	Minimized
	Maximized
)

// Options carries the surface state that gates chrome classification.
type Options struct {
	State     State
	Resizable bool

	// OverControl reports whether the logical client point lies over an
	// interactive child control such as a close button. May be nil.
	OverControl func(client geometry.Point) bool

	// NoCaption reports the top band as a resize edge instead of a drag
	// handle.
	NoCaption bool
}

// Classify maps a device-pixel hit point to a chrome region of a surface
// whose window rectangle is rect. border is in logical units and is scaled
// with tr before comparison.
func Classify(rect geometry.DeviceRect, hit geometry.DevicePoint, border geometry.Thickness, tr geometry.Transformations, opts Options) Region {
	if opts.State != Normal || !opts.Resizable {
		return Client
	}

	left, top, right, bottom := rect.Left, rect.Top, rect.Right, rect.Bottom
	if hit.X < left || hit.X > right || hit.Y < top || hit.Y > bottom {
		return Transparent
	}

	if opts.OverControl != nil {
		client := tr.VectorFromDevice(hit.Sub(rect.Origin()))
		if opts.OverControl(client) {
			return Client
		}
	}

	b := tr.ThicknessToDevice(border)
	inTop := float64(hit.Y) < float64(top)+b.Top
	inBottom := float64(hit.Y) > float64(bottom)-b.Bottom
	inLeft := float64(hit.X) < float64(left)+b.Left
	inRight := float64(hit.X) > float64(right)-b.Right

	switch {
	case inTop && inLeft:
		return TopLeft
	case inTop && inRight:
		return TopRight
	case inBottom && inLeft:
		return BottomLeft
	case inBottom && inRight:
		return BottomRight
	case inTop && opts.NoCaption:
		return Top
	case inTop:
		return Caption
	case inBottom:
		return Bottom
	case inLeft:
		return Left
	case inRight:
		return Right
	}
	return Client
}
