package session

import (
	"errors"
	"fmt"
	"log"
	"time"

	"region-share/capture"
	"region-share/region"
	"region-share/settings"
)

// Mode is the user-facing state of the frame.
type Mode int

const (
	Editing Mode = iota
	Recording
)

func (m Mode) String() string {
	if m == Recording {
		return "recording"
	}
	return "editing"
}

// Geometry is the part of region.Synchronizer a session drives.
type Geometry interface {
	BeginCapture() error
	EndCapture() error
	ResizeCaptureArea(width, height int) error
}

// Sampler is the part of capture.Loop a session drives.
type Sampler interface {
	Start(interval time.Duration) error
	Stop()
}

// Stacker arbitrates the z-order of frame and separation layer.
type Stacker interface {
	BringToFront() error
	SendToBack() error
}

type Options struct {
	FrameRate     int
	OnModeChanged func(Mode)
}

// Session owns the Editing/Recording transitions. Every transition runs its
// steps in a fixed order, and it is the only caller of the geometry hand-off
// and z-order operations. All methods run on the UI thread.
type Session struct {
	geometry Geometry
	sampler  Sampler
	stacker  Stacker
	opts     Options
	mode     Mode
}

func New(g Geometry, sampler Sampler, stacker Stacker, opts Options) *Session {
	if opts.FrameRate <= 0 {
		opts.FrameRate = capture.DefaultFrameRate
	}
	return &Session{geometry: g, sampler: sampler, stacker: stacker, opts: opts}
}

func (s *Session) Mode() Mode { return s.mode }

// FrameRate is the rate the next recording starts with.
func (s *Session) FrameRate() int { return s.opts.FrameRate }

// SetFrameRate changes the rate for the next recording.
func (s *Session) SetFrameRate(fps int) {
	if fps > 0 {
		s.opts.FrameRate = fps
	}
}

// StartRecording creates the capture surface, starts sampling and moves the
// frame out of the way.
func (s *Session) StartRecording() error {
	if s.mode == Recording {
		return region.ErrAlreadyRecording
	}
	if err := s.geometry.BeginCapture(); err != nil {
		return fmt.Errorf("failed to start recording: %w", err)
	}
	if err := s.sampler.Start(capture.IntervalFor(s.opts.FrameRate)); err != nil {
		if endErr := s.geometry.EndCapture(); endErr != nil {
			log.Printf("SESSION: rollback failed: %v", endErr)
		}
		return fmt.Errorf("failed to start capture loop: %w", err)
	}
	if err := s.stacker.SendToBack(); err != nil {
		log.Printf("SESSION: send to back: %v", err)
	}
	s.setMode(Recording)
	return nil
}

// StopRecording stops sampling, hands the final capture rectangle back to
// the frame and raises it for editing.
func (s *Session) StopRecording() error {
	if s.mode != Recording {
		return region.ErrNotRecording
	}
	s.sampler.Stop()
	if err := s.geometry.EndCapture(); err != nil && !errors.Is(err, region.ErrNotRecording) {
		log.Printf("SESSION: end capture: %v", err)
	}
	if err := s.stacker.BringToFront(); err != nil {
		log.Printf("SESSION: bring to front: %v", err)
	}
	s.setMode(Editing)
	return nil
}

// Toggle switches between the two modes.
func (s *Session) Toggle() error {
	if s.mode == Recording {
		return s.StopRecording()
	}
	return s.StartRecording()
}

// OnSeparationPointerDown drops the editing UI out of the way again after
// a stray click while recording.
func (s *Session) OnSeparationPointerDown() {
	if s.mode != Recording {
		return
	}
	if err := s.stacker.SendToBack(); err != nil {
		log.Printf("SESSION: send to back: %v", err)
	}
}

// OnFrameActivated raises the frame when the user starts editing it.
func (s *Session) OnFrameActivated() {
	if s.mode != Editing {
		return
	}
	if err := s.stacker.BringToFront(); err != nil {
		log.Printf("SESSION: bring to front: %v", err)
	}
}

// ApplyPreset resizes the capture area to a preset while editing.
func (s *Session) ApplyPreset(sz settings.Size) error {
	if s.mode == Recording {
		return region.ErrAlreadyRecording
	}
	if err := s.geometry.ResizeCaptureArea(sz.Width, sz.Height); err != nil {
		return fmt.Errorf("failed to apply preset %v: %w", sz, err)
	}
	log.Printf("SESSION: applied preset %v", sz)
	return nil
}

func (s *Session) setMode(m Mode) {
	s.mode = m
	log.Printf("SESSION: now %s", m)
	if s.opts.OnModeChanged != nil {
		s.opts.OnModeChanged(m)
	}
}
