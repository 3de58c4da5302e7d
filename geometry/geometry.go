package geometry

import (
	"fmt"
	"math"
)

// Point is a position in logical (resolution independent) units.
type Point struct {
	X float64
	Y float64
}

// Rect is a logical rectangle as a window toolkit reports it.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

func (r Rect) Right() float64  { return r.Left + r.Width }
func (r Rect) Bottom() float64 { return r.Top + r.Height }

func (r Rect) String() string {
	return fmt.Sprintf("(%.2f,%.2f %.2fx%.2f)", r.Left, r.Top, r.Width, r.Height)
}

// Thickness holds the four edge widths of a border band.
type Thickness struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// Uniform returns a thickness with the same width on every edge.
func Uniform(v float64) Thickness {
	return Thickness{Left: v, Top: v, Right: v, Bottom: v}
}

func (t Thickness) IsZero() bool {
	return t.Left == 0 && t.Top == 0 && t.Right == 0 && t.Bottom == 0
}

// DevicePoint is a position in physical pixels on the virtual desktop.
// Coordinates can be negative (monitor left of or above the primary one).
type DevicePoint struct {
	X int
	Y int
}

func (p DevicePoint) Sub(o DevicePoint) DevicePoint {
	return DevicePoint{X: p.X - o.X, Y: p.Y - o.Y}
}

// DeviceRect is an integer pixel rectangle. Right and Bottom are never
// smaller than Left and Top once the rectangle went through Normalize.
type DeviceRect struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// DeviceRectFromSize builds a rectangle from its origin and size.
func DeviceRectFromSize(left, top, width, height int) DeviceRect {
	return DeviceRect{Left: left, Top: top, Right: left + width, Bottom: top + height}.Normalize()
}

func (r DeviceRect) Width() int  { return r.Right - r.Left }
func (r DeviceRect) Height() int { return r.Bottom - r.Top }

// Empty reports whether the rectangle has zero or negative area.
func (r DeviceRect) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

func (r DeviceRect) Origin() DevicePoint { return DevicePoint{X: r.Left, Y: r.Top} }

// Normalize collapses a negative-sized rectangle onto its top-left corner.
func (r DeviceRect) Normalize() DeviceRect {
	if r.Right < r.Left {
		r.Right = r.Left
	}
	if r.Bottom < r.Top {
		r.Bottom = r.Top
	}
	return r
}

// Offset moves the rectangle without changing its size.
func (r DeviceRect) Offset(dx, dy int) DeviceRect {
	return DeviceRect{Left: r.Left + dx, Top: r.Top + dy, Right: r.Right + dx, Bottom: r.Bottom + dy}
}

// Deflate shrinks the rectangle by a device-space thickness. Each positive
// edge is rounded up to a whole pixel so a thin border never vanishes.
// When the bands overlap, the result collapses to an empty rectangle that
// still lies within r.
func (r DeviceRect) Deflate(t Thickness) DeviceRect {
	r = r.Normalize()
	d := DeviceRect{
		Left:   r.Left + pixels(t.Left),
		Top:    r.Top + pixels(t.Top),
		Right:  r.Right - pixels(t.Right),
		Bottom: r.Bottom - pixels(t.Bottom),
	}
	if d.Right < d.Left {
		d.Left = min(d.Left, r.Right)
		d.Right = d.Left
	}
	if d.Bottom < d.Top {
		d.Top = min(d.Top, r.Bottom)
		d.Bottom = d.Top
	}
	return d
}

// Inflate is the inverse of Deflate.
func (r DeviceRect) Inflate(t Thickness) DeviceRect {
	return DeviceRect{
		Left:   r.Left - pixels(t.Left),
		Top:    r.Top - pixels(t.Top),
		Right:  r.Right + pixels(t.Right),
		Bottom: r.Bottom + pixels(t.Bottom),
	}.Normalize()
}

// Contains reports whether p lies inside r (right and bottom exclusive).
func (r DeviceRect) Contains(p DevicePoint) bool {
	return p.X >= r.Left && p.X < r.Right && p.Y >= r.Top && p.Y < r.Bottom
}

// StrictlyInside reports whether r lies inside o without touching any of
// o's outer edges.
func (r DeviceRect) StrictlyInside(o DeviceRect) bool {
	return r.Left > o.Left && r.Top > o.Top && r.Right < o.Right && r.Bottom < o.Bottom
}

func (r DeviceRect) String() string {
	return fmt.Sprintf("[%d,%d - %d,%d %dx%d]", r.Left, r.Top, r.Right, r.Bottom, r.Width(), r.Height())
}

// pixels converts a device-space edge width to whole pixels.
func pixels(v float64) int {
	if v <= 0 {
		return 0
	}
	// tolerate float noise from the matrix product (4*1.25 = 5.000000001)
	return int(math.Ceil(v - 1e-6))
}
