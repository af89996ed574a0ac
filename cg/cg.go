// Copyright 2026 Hessfree ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cg

import (
	"github.com/hessfree-ml/hessfree/internal/cg"
)

// Operator applies a symmetric positive definite matrix to a vector.
type Operator = cg.Operator

// Preconditioner approximately applies the inverse of the operator.
type Preconditioner = cg.Preconditioner

// Config controls a single CG run. The zero value is usable.
type Config = cg.Config

// Trajectory is the result of a run: the checkpointed iterates, their
// quadratic model values, and the stopping status.
type Trajectory = cg.Trajectory

// Status reports why a CG run stopped.
type Status = cg.Status

const (
	Converged = cg.Converged
	MaxIter   = cg.MaxIter
	Stalled   = cg.Stalled
	Breakdown = cg.Breakdown
)

// Default residual tolerances used when Config leaves them zero.
const (
	DefaultTol  = cg.DefaultTol
	DefaultAtol = cg.DefaultAtol
)

// Solve runs preconditioned conjugate gradients on a*x = b.
//
// Example:
//
//	tr := cg.Solve(operator, b, cg.Config{MaxIter: 100})
//	x := tr.Final()
//	fmt.Println(tr.Status, tr.Iterations())
func Solve(a Operator, b []float64, cfg Config) Trajectory {
	return cg.Solve(a, b, cfg)
}

// Backtrack evaluates f at every checkpoint and returns the index and value
// of the best one, preferring earlier checkpoints on ties.
func Backtrack(f func(step []float64) float64, steps [][]float64) (int, float64) {
	return cg.Backtrack(f, steps)
}

// DiagonalPreconditioner scales residuals by (diag + damping)^-exponent
// elementwise. Martens suggests exponent 0.75 with a Fisher diagonal.
func DiagonalPreconditioner(diag []float64, damping, exponent float64) Preconditioner {
	return cg.DiagonalPreconditioner(diag, damping, exponent)
}
