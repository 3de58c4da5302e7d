package region

import (
	"fmt"
	"log"

	"region-share/geometry"
)

// OnFrameGeometryChanged applies a new logical rectangle of the frame
// surface: the capture rectangle (while recording) becomes the frame minus
// its border and the separation layer follows the frame.
func (s *Synchronizer) OnFrameGeometryChanged(r geometry.Rect) {
	f := s.surface[RoleFrame]
	if f == nil {
		return
	}
	if f.Minimized {
		log.Printf("REGION: frame minimized, ignoring geometry %v", r)
		return
	}
	if r.Width <= 0 || r.Height <= 0 {
		log.Printf("REGION: ignoring degenerate frame geometry %v", r)
		return
	}
	s.applyFrame(r)
}

func (s *Synchronizer) applyFrame(r geometry.Rect) {
	f := s.surface[RoleFrame]
	f.Bounds = r
	frameDev := f.Transforms.RectToDevice(r)

	if c := s.surface[RoleCapture]; c != nil {
		captureDev := frameDev.Deflate(f.Transforms.ThicknessToDevice(s.opts.Border))
		prev, _ := s.CaptureRect()
		s.publish(captureDev)
		// keep the outline on the sampled area when the frame moved on its own
		if !c.Minimized && captureDev != prev {
			if err := s.host.SetBounds(c.Handle, captureDev); err != nil {
				log.Printf("REGION: failed to move capture surface: %v", err)
			}
			c.Bounds = c.Transforms.RectFromDevice(captureDev)
		}
	}

	if sep := s.surface[RoleSeparation]; sep != nil {
		sepDev := frameDev.Offset(-s.opts.DebugOffset.X, -s.opts.DebugOffset.Y)
		if err := s.host.SetBounds(sep.Handle, sepDev); err != nil {
			log.Printf("REGION: failed to move separation layer: %v", err)
		}
		sep.Bounds = sep.Transforms.RectFromDevice(sepDev)
	}

	if s.opts.OnFrameChanged != nil {
		s.opts.OnFrameChanged(frameDev)
	}
}

// OnCaptureGeometryChanged applies a new logical rectangle of the capture
// surface (the user dragged or resized it). The capture rectangle follows
// immediately and the frame is pushed to the capture area plus border.
func (s *Synchronizer) OnCaptureGeometryChanged(r geometry.Rect) {
	c := s.surface[RoleCapture]
	f := s.surface[RoleFrame]
	if c == nil || f == nil {
		return
	}
	if c.Minimized {
		log.Printf("REGION: capture surface minimized, ignoring geometry %v", r)
		return
	}
	if r.Width <= 0 || r.Height <= 0 {
		log.Printf("REGION: ignoring degenerate capture geometry %v", r)
		return
	}

	c.Bounds = r
	captureDev := c.Transforms.RectToDevice(r)
	s.publish(captureDev)

	frameDev := captureDev.Inflate(f.Transforms.ThicknessToDevice(s.opts.Border))
	s.pushFrame(frameDev)
}

// pushFrame moves the frame surface and re-applies its geometry.
func (s *Synchronizer) pushFrame(frameDev geometry.DeviceRect) {
	f := s.surface[RoleFrame]
	if err := s.host.SetBounds(f.Handle, frameDev); err != nil {
		log.Printf("REGION: failed to move frame: %v", err)
	}
	if f.Minimized {
		f.Bounds = f.Transforms.RectFromDevice(frameDev)
		return
	}
	s.applyFrame(f.Transforms.RectFromDevice(frameDev))
}

// RequestFrameGeometry queues a frame geometry change reported in device
// pixels. Requests arriving before the queued flush runs replace the
// pending one. Conversion to logical units happens at flush time, with the
// transformations current then.
func (s *Synchronizer) RequestFrameGeometry(r geometry.DeviceRect) { s.request(RoleFrame, r) }

// RequestCaptureGeometry is RequestFrameGeometry for the capture surface.
func (s *Synchronizer) RequestCaptureGeometry(r geometry.DeviceRect) { s.request(RoleCapture, r) }

func (s *Synchronizer) request(role Role, r geometry.DeviceRect) {
	if s.pending[role] != nil {
		s.coalesced++
	}
	s.pending[role] = &r
	if s.scheduled {
		return
	}
	if s.opts.Dispatcher == nil {
		s.flush()
		return
	}
	s.scheduled = true
	if !s.opts.Dispatcher.Post(s.flush) {
		s.scheduled = false
		s.pending = [roleCount]*geometry.DeviceRect{}
		log.Printf("REGION: dispatcher closed, dropping %s geometry", role)
	}
}

func (s *Synchronizer) flush() {
	s.scheduled = false
	// frame first so a capture drag, which pushes the frame, wins over a
	// stale frame echo
	if p := s.pending[RoleFrame]; p != nil {
		s.pending[RoleFrame] = nil
		if f := s.surface[RoleFrame]; f != nil {
			s.OnFrameGeometryChanged(f.Transforms.RectFromDevice(*p))
		}
	}
	if p := s.pending[RoleCapture]; p != nil {
		s.pending[RoleCapture] = nil
		if c := s.surface[RoleCapture]; c != nil {
			s.OnCaptureGeometryChanged(c.Transforms.RectFromDevice(*p))
		}
	}
}

// OnMinimized stops geometry propagation for role until OnRestored.
func (s *Synchronizer) OnMinimized(role Role) {
	if sf := s.surface[role]; sf != nil {
		sf.Minimized = true
		s.pending[role] = nil
	}
}

// OnRestored re-enables propagation and recomputes geometry once from the
// live rectangle of the surface.
func (s *Synchronizer) OnRestored(role Role) {
	sf := s.surface[role]
	if sf == nil {
		return
	}
	sf.Minimized = false
	s.refresh(sf)
}

// OnScaleChanged installs new transformations after the surface moved to a
// monitor with a different scale factor and recomputes its geometry.
func (s *Synchronizer) OnScaleChanged(role Role, tr geometry.Transformations) {
	sf := s.surface[role]
	if sf == nil {
		return
	}
	sf.Transforms = tr
	// refresh reads the live rectangle, a queued one is redundant
	s.pending[role] = nil
	log.Printf("REGION: %s scale factor now %.2f", role, tr.ScaleFactor())
	if !sf.Minimized {
		s.refresh(sf)
	}
}

func (s *Synchronizer) refresh(sf *Surface) {
	live, err := s.host.Bounds(sf.Handle)
	if err != nil {
		log.Printf("REGION: cannot read %s bounds: %v", sf.Role, err)
		return
	}
	logical := sf.Transforms.RectFromDevice(live)
	switch sf.Role {
	case RoleFrame:
		s.OnFrameGeometryChanged(logical)
	case RoleCapture:
		s.OnCaptureGeometryChanged(logical)
	case RoleSeparation:
		if f := s.surface[RoleFrame]; f != nil && !f.Minimized {
			s.applyFrame(f.Bounds)
		}
	}
}

// BeginCapture creates the capture surface over the frame interior and
// publishes the first capture rectangle.
func (s *Synchronizer) BeginCapture() error {
	if s.surface[RoleCapture] != nil {
		return ErrAlreadyRecording
	}
	f := s.surface[RoleFrame]
	if f == nil {
		return ErrNoFrame
	}

	frameDev := f.Transforms.RectToDevice(f.Bounds)
	captureDev := frameDev.Deflate(f.Transforms.ThicknessToDevice(s.opts.Border))

	h, err := s.host.Create(RoleCapture, captureDev)
	if err != nil {
		return fmt.Errorf("failed to create capture surface: %w", err)
	}

	s.surface[RoleCapture] = &Surface{
		Role:       RoleCapture,
		Handle:     h,
		Bounds:     f.Transforms.RectFromDevice(captureDev),
		Transforms: f.Transforms,
	}
	s.publish(captureDev)
	log.Printf("REGION: capture started, frame %v capture %v", frameDev, captureDev)
	return nil
}

// EndCapture destroys the capture surface. The frame inherits the final
// capture rectangle plus its border.
func (s *Synchronizer) EndCapture() error {
	c := s.surface[RoleCapture]
	if c == nil {
		return ErrNotRecording
	}

	final := c.Transforms.RectToDevice(c.Bounds)
	if live, err := s.host.Bounds(c.Handle); err == nil && !c.Minimized && !live.Empty() {
		final = live
	}

	if err := s.host.Destroy(c.Handle); err != nil {
		log.Printf("REGION: failed to destroy capture surface: %v", err)
	}
	s.Detach(RoleCapture)

	f := s.surface[RoleFrame]
	if f == nil {
		return ErrNoFrame
	}
	frameDev := final.Inflate(f.Transforms.ThicknessToDevice(s.opts.Border))
	log.Printf("REGION: capture ended, frame restored to %v", frameDev)
	s.pushFrame(frameDev)
	return nil
}

// ResizeCaptureArea resizes the frame so that its interior is exactly
// width x height device pixels. The frame keeps its top-left corner.
func (s *Synchronizer) ResizeCaptureArea(width, height int) error {
	f := s.surface[RoleFrame]
	if f == nil {
		return ErrNoFrame
	}
	if s.surface[RoleCapture] != nil {
		return ErrAlreadyRecording
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid capture size %dx%d", width, height)
	}
	cur := f.Transforms.RectToDevice(f.Bounds)
	frameDev := geometry.DeviceRectFromSize(0, 0, width, height).Inflate(f.Transforms.ThicknessToDevice(s.opts.Border))
	s.pushFrame(frameDev.Offset(cur.Left-frameDev.Left, cur.Top-frameDev.Top))
	return nil
}
