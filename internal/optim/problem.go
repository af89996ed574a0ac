package optim

import "github.com/hessfree-ml/hessfree/internal/cg"

// Problem bundles the callables the optimizer drives during one step.
//
// The optimizer owns the parameter vector, so every callable is evaluated
// at whatever the vector currently holds: Step rewrites it before each
// trial evaluation and commits the final update before returning. Gradient
// and the curvature products always refer to the pre-step parameters (they
// are requested before any trial point is written).
//
// Forward and Gradient are required. A step needs exactly one curvature
// source: MVP when set, otherwise the product matching the configured
// Curvature. Missing callables are programming errors and panic; errors
// inside the callables themselves are the caller's to handle and propagate
// unmodified.
type Problem struct {
	// Forward evaluates the objective. The second return value carries
	// whatever the GGN product needs from the forward pass, typically the
	// model outputs; it may be nil and is ignored under CurvatureHessian
	// or an MVP override.
	Forward func() (loss float64, outputs []float64)

	// Gradient returns the gradient of the objective at the current
	// parameters. Called once per step.
	Gradient func() []float64

	// HessProd applies the Hessian at the pre-step parameters to v.
	// Required under CurvatureHessian when MVP is nil.
	HessProd func(v []float64) []float64

	// GGNProd applies the generalized Gauss-Newton operator to v, given
	// the outputs Forward returned at the pre-step parameters. Required
	// under CurvatureGGN when MVP is nil.
	GGNProd func(outputs, v []float64) []float64

	// MVP overrides the curvature product entirely. When set, HessProd,
	// GGNProd and the configured Curvature are ignored for this step.
	MVP func(v []float64) []float64

	// Precond optionally approximates the inverse of the damped curvature
	// operator for the CG run.
	Precond cg.Preconditioner
}

// StepResult reports what a single Step did. It is diagnostic only: when
// Step returns, the parameter update has already been committed.
type StepResult struct {
	// InitialLoss is the objective at the pre-step parameters.
	InitialLoss float64

	// FinalLoss is the objective at the accepted step, as evaluated by the
	// line search. It is NaN when line search is disabled, since the
	// commit is not re-evaluated then.
	FinalLoss float64

	// Alpha is the multiplier applied to the chosen step direction.
	Alpha float64

	// CGIters counts the CG iterations performed.
	CGIters int

	// CGStatus reports why CG stopped.
	CGStatus cg.Status

	// Checkpoint is the trajectory index the step was taken from: the last
	// checkpoint unless backtracking selected an earlier one.
	Checkpoint int

	// Rho is the reduction ratio the damping adaptation used. NaN when
	// adaptation is disabled or the ratio was skipped.
	Rho float64

	// Damping is the damping value after adaptation.
	Damping float64

	// LineSearchOK reports whether the line search met its decrease
	// condition. It stays true when line search is disabled; false means
	// the deterministic fallback multiplier was committed.
	LineSearchOK bool
}
