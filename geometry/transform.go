package geometry

import "math"

const baseDPI = 96

// Matrix is a 2-D affine transform laid out as
//
//	| M11 M12 0 |
//	| M21 M22 0 |
//	| OffsetX OffsetY 1 |
//
// and applied to row vectors.
type Matrix struct {
	M11, M12 float64
	M21, M22 float64
	OffsetX  float64
	OffsetY  float64
}

// Identity is the transform that leaves every point where it is.
var Identity = Matrix{M11: 1, M22: 1}

// Scale returns a pure scaling matrix.
func Scale(sx, sy float64) Matrix {
	return Matrix{M11: sx, M22: sy}
}

func (m Matrix) Determinant() float64 {
	return m.M11*m.M22 - m.M12*m.M21
}

// Transform maps a point, translation included.
func (m Matrix) Transform(p Point) Point {
	return Point{
		X: p.X*m.M11 + p.Y*m.M21 + m.OffsetX,
		Y: p.X*m.M12 + p.Y*m.M22 + m.OffsetY,
	}
}

// TransformVector maps a direction or a size; translation is ignored.
func (m Matrix) TransformVector(v Point) Point {
	return Point{
		X: v.X*m.M11 + v.Y*m.M21,
		Y: v.X*m.M12 + v.Y*m.M22,
	}
}

// Invert returns the inverse matrix. ok is false for singular matrices.
func (m Matrix) Invert() (inv Matrix, ok bool) {
	det := m.Determinant()
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return Identity, false
	}
	inv = Matrix{
		M11: m.M22 / det,
		M12: -m.M12 / det,
		M21: -m.M21 / det,
		M22: m.M11 / det,
	}
	inv.OffsetX = -(m.OffsetX*inv.M11 + m.OffsetY*inv.M21)
	inv.OffsetY = -(m.OffsetX*inv.M12 + m.OffsetY*inv.M22)
	return inv, true
}

// Transformations is the matrix pair a surface uses to move between its
// logical units and device pixels. FromDevice is always the inverse of
// ToDevice.
type Transformations struct {
	ToDevice   Matrix
	FromDevice Matrix
}

// NewTransformations derives the pair from a to-device matrix. A singular
// matrix yields the identity pair.
func NewTransformations(toDevice Matrix) Transformations {
	inv, ok := toDevice.Invert()
	if !ok {
		return Transformations{ToDevice: Identity, FromDevice: Identity}
	}
	return Transformations{ToDevice: toDevice, FromDevice: inv}
}

// IdentityTransformations is the 96 DPI pair.
func IdentityTransformations() Transformations {
	return Transformations{ToDevice: Identity, FromDevice: Identity}
}

// ForDPI returns the pair for a monitor running at dpi (96 is 100%).
func ForDPI(dpi int) Transformations {
	if dpi <= 0 {
		dpi = baseDPI
	}
	s := float64(dpi) / baseDPI
	return NewTransformations(Scale(s, s))
}

// ScaleFactor returns the horizontal device/logical ratio.
func (t Transformations) ScaleFactor() float64 {
	return t.ToDevice.M11
}

// RectToDevice converts a logical rectangle to pixels, rounding both corners
// to the nearest pixel.
func (t Transformations) RectToDevice(r Rect) DeviceRect {
	tl := t.ToDevice.Transform(Point{X: r.Left, Y: r.Top})
	br := t.ToDevice.Transform(Point{X: r.Right(), Y: r.Bottom()})
	return DeviceRect{
		Left:   round(math.Min(tl.X, br.X)),
		Top:    round(math.Min(tl.Y, br.Y)),
		Right:  round(math.Max(tl.X, br.X)),
		Bottom: round(math.Max(tl.Y, br.Y)),
	}.Normalize()
}

// RectFromDevice converts a pixel rectangle back to logical units.
func (t Transformations) RectFromDevice(d DeviceRect) Rect {
	d = d.Normalize()
	tl := t.FromDevice.Transform(Point{X: float64(d.Left), Y: float64(d.Top)})
	br := t.FromDevice.Transform(Point{X: float64(d.Right), Y: float64(d.Bottom)})
	left, top := math.Min(tl.X, br.X), math.Min(tl.Y, br.Y)
	return Rect{
		Left:   left,
		Top:    top,
		Width:  math.Max(tl.X, br.X) - left,
		Height: math.Max(tl.Y, br.Y) - top,
	}
}

// ThicknessToDevice scales a logical border to device units. The two
// corners are transformed as vectors so the window position plays no role.
func (t Transformations) ThicknessToDevice(th Thickness) Thickness {
	return transformThickness(t.ToDevice, th)
}

func (t Transformations) PointToDevice(p Point) DevicePoint {
	d := t.ToDevice.Transform(p)
	return DevicePoint{X: round(d.X), Y: round(d.Y)}
}

func (t Transformations) PointFromDevice(p DevicePoint) Point {
	return t.FromDevice.Transform(Point{X: float64(p.X), Y: float64(p.Y)})
}

// VectorFromDevice converts a pixel offset (for example a point relative to
// a window origin) to logical units.
func (t Transformations) VectorFromDevice(p DevicePoint) Point {
	return t.FromDevice.TransformVector(Point{X: float64(p.X), Y: float64(p.Y)})
}

func transformThickness(m Matrix, th Thickness) Thickness {
	tl := m.TransformVector(Point{X: th.Left, Y: th.Top})
	br := m.TransformVector(Point{X: th.Right, Y: th.Bottom})
	return Thickness{Left: tl.X, Top: tl.Y, Right: br.X, Bottom: br.Y}
}

func round(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(v))
}
