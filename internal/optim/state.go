package optim

import "fmt"

// State is the persistent, serializable part of the optimizer: the CG warm
// start and the current damping. The zero warm start (nil) matches a
// freshly constructed optimizer that has not stepped yet.
type State struct {
	X0      []float64 `json:"x0,omitempty"`
	Damping float64   `json:"damping"`
}

// State returns a copy of the optimizer's persistent state, suitable for
// checkpointing an optimization run.
func (o *HessianFree) State() State {
	s := State{Damping: o.damping}
	if o.x0 != nil {
		s.X0 = make([]float64, len(o.x0))
		copy(s.X0, o.x0)
	}
	return s
}

// LoadState restores state captured by State. The warm start must match the
// parameter dimension and the damping must be >= 0.
func (o *HessianFree) LoadState(s State) error {
	if s.X0 != nil && len(s.X0) != len(o.params) {
		return fmt.Errorf("%w: warm start has %d elements, parameters have %d",
			ErrStateDim, len(s.X0), len(o.params))
	}
	if s.Damping < 0 {
		return fmt.Errorf("%w: got %v", ErrDamping, s.Damping)
	}
	if s.X0 == nil {
		o.x0 = nil
	} else {
		o.x0 = make([]float64, len(s.X0))
		copy(o.x0, s.X0)
	}
	o.damping = s.Damping
	return nil
}
