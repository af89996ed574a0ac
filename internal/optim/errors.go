package optim

import "errors"

// Configuration and state errors. New and LoadState wrap these with the
// offending value, so callers can match them with errors.Is.
var (
	// ErrCurvature reports an unknown curvature model selector.
	ErrCurvature = errors.New("hessfree: unsupported curvature model")

	// ErrDamping reports a negative damping value.
	ErrDamping = errors.New("hessfree: damping must be >= 0")

	// ErrLearningRate reports a non-positive learning rate.
	ErrLearningRate = errors.New("hessfree: learning rate must be > 0")

	// ErrCGMaxIter reports an invalid CG iteration cap. Zero is valid and
	// selects the problem dimension.
	ErrCGMaxIter = errors.New("hessfree: cg iteration cap must be >= 1 or 0 for the problem dimension")

	// ErrStateDim reports a warm-start vector whose length does not match
	// the parameter vector.
	ErrStateDim = errors.New("hessfree: state dimension mismatch")
)
