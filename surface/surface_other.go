//go:build !windows

package surface

import (
	"context"

	"region-share/capture"
	"region-share/geometry"
	"region-share/region"
	"region-share/zorder"
)

// Desktop is a stub for platforms without a window layer.
type Desktop struct {
	opts Options
}

func New(opts Options) (*Desktop, error) {
	return &Desktop{opts: opts}, nil
}

func (d *Desktop) Bind(g Geometry, c Controller) {}

func (d *Desktop) Open() error { return ErrUnsupported }

func (d *Desktop) Wake() {}

func (d *Desktop) Run(ctx context.Context) error { return ErrUnsupported }

func (d *Desktop) Placement() geometry.DeviceRect {
	if d.opts.Placement != nil {
		return *d.opts.Placement
	}
	return geometry.DeviceRect{}
}

func (d *Desktop) Create(role region.Role, r geometry.DeviceRect) (region.Handle, error) {
	return 0, ErrUnsupported
}

func (d *Desktop) Destroy(h region.Handle) error { return ErrUnsupported }

func (d *Desktop) SetBounds(h region.Handle, r geometry.DeviceRect) error { return ErrUnsupported }

func (d *Desktop) Bounds(h region.Handle) (geometry.DeviceRect, error) {
	return geometry.DeviceRect{}, ErrUnsupported
}

func (d *Desktop) Apply(op zorder.Op) error { return ErrUnsupported }

func (d *Desktop) Publish(f capture.Frame) {}
