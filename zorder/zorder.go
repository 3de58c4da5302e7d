package zorder

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"region-share/region"
)

// AnchorKind selects where an Op places its target in the z-order.
type AnchorKind int

const (
	// Keep leaves the z-order position untouched.
	Keep AnchorKind = iota
	Top
	Bottom
	// After places the target directly above Anchor.Handle.
	After
)

// Anchor is the insert-after argument of an Op.
type Anchor struct {
	Kind   AnchorKind
	Handle region.Handle
}

// Op is one z-order placement. Size and position are never changed.
type Op struct {
	Target     region.Handle
	Anchor     Anchor
	Show       bool
	Hide       bool
	NoActivate bool
}

func (o Op) String() string {
	where := "keep"
	switch o.Anchor.Kind {
	case Top:
		where = "top"
	case Bottom:
		where = "bottom"
	case After:
		where = fmt.Sprintf("above %#x", uintptr(o.Anchor.Handle))
	}
	s := fmt.Sprintf("%#x -> %s", uintptr(o.Target), where)
	if o.Show {
		s += " show"
	}
	if o.Hide {
		s += " hide"
	}
	if o.NoActivate {
		s += " noactivate"
	}
	return s
}

// Platform applies z-order operations (SetWindowPos on Windows).
type Platform interface {
	Apply(op Op) error
}

// Surfaces resolves the current frame and separation handles.
type Surfaces interface {
	Handle(role region.Role) region.Handle
}

// Controller arbitrates the z-order of the frame and separation surfaces.
type Controller struct {
	mu       sync.Mutex
	platform Platform
	surfaces Surfaces
}

func New(platform Platform, surfaces Surfaces) *Controller {
	return &Controller{platform: platform, surfaces: surfaces}
}

// BringToFront hides the separation layer and raises the frame to the top
// so the user can edit it.
func (c *Controller) BringToFront() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	frame, sep := c.handles()
	if frame == 0 {
		return nil
	}
	var errs []error
	if sep != 0 {
		errs = append(errs, c.apply(Op{Target: sep, Anchor: Anchor{Kind: Bottom}, Hide: true}))
	}
	errs = append(errs, c.apply(Op{Target: frame, Anchor: Anchor{Kind: Top}}))
	return errors.Join(errs...)
}

// SendToBack shows the separation layer at the very bottom and places the
// frame directly above it.
func (c *Controller) SendToBack() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	frame, sep := c.handles()
	if frame == 0 {
		return nil
	}
	if sep == 0 {
		return c.apply(Op{Target: frame, Anchor: Anchor{Kind: Bottom}, NoActivate: true})
	}
	return errors.Join(
		c.apply(Op{Target: sep, Anchor: Anchor{Kind: Bottom}, Show: true, NoActivate: true}),
		c.apply(Op{Target: frame, Anchor: Anchor{Kind: After, Handle: sep}, NoActivate: true}),
	)
}

func (c *Controller) handles() (frame, sep region.Handle) {
	return c.surfaces.Handle(region.RoleFrame), c.surfaces.Handle(region.RoleSeparation)
}

func (c *Controller) apply(op Op) error {
	if err := c.platform.Apply(op); err != nil {
		log.Printf("ZORDER: %v failed: %v", op, err)
		return fmt.Errorf("z-order %v: %w", op, err)
	}
	return nil
}
