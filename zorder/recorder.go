package zorder

import (
	"sync"

	"region-share/region"
)

// Recorder is a Platform that logs every Op and simulates the resulting
// z-order. Index 0 of Stack is the topmost window.
type Recorder struct {
	mu     sync.Mutex
	ops    []Op
	stack  []region.Handle
	hidden map[region.Handle]bool
	Fail   func(op Op) error
}

// NewRecorder starts with the given stack, topmost first.
func NewRecorder(stack ...region.Handle) *Recorder {
	return &Recorder{stack: append([]region.Handle(nil), stack...), hidden: map[region.Handle]bool{}}
}

func (r *Recorder) Apply(op Op) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ops = append(r.ops, op)
	if r.Fail != nil {
		if err := r.Fail(op); err != nil {
			return err
		}
	}

	switch op.Anchor.Kind {
	case Top:
		r.remove(op.Target)
		r.stack = append([]region.Handle{op.Target}, r.stack...)
	case Bottom:
		r.remove(op.Target)
		r.stack = append(r.stack, op.Target)
	case After:
		r.remove(op.Target)
		i := r.index(op.Anchor.Handle)
		if i < 0 {
			i = 0
		}
		r.stack = append(r.stack[:i], append([]region.Handle{op.Target}, r.stack[i:]...)...)
	}
	if op.Show {
		r.hidden[op.Target] = false
	}
	if op.Hide {
		r.hidden[op.Target] = true
	}
	return nil
}

// Ops returns a copy of the recorded operations.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// Reset clears the op log but keeps the simulated state.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.ops = nil
	r.mu.Unlock()
}

// Index returns the z position of h (0 is topmost) or -1.
func (r *Recorder) Index(h region.Handle) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index(h)
}

// Topmost returns the topmost visible window.
func (r *Recorder) Topmost() region.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.stack {
		if !r.hidden[h] {
			return h
		}
	}
	return 0
}

func (r *Recorder) Hidden(h region.Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hidden[h]
}

func (r *Recorder) index(h region.Handle) int {
	for i, s := range r.stack {
		if s == h {
			return i
		}
	}
	return -1
}

func (r *Recorder) remove(h region.Handle) {
	if i := r.index(h); i >= 0 {
		r.stack = append(r.stack[:i], r.stack[i+1:]...)
	}
}
