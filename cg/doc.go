// Copyright 2026 Hessfree ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cg provides preconditioned conjugate gradients for symmetric
// positive definite systems given only as matrix-vector products.
//
// # Overview
//
// This package contains:
//   - Solve: the PCG loop, returning a checkpointed Trajectory
//   - Backtrack: selection of the best checkpoint under an outer objective
//   - DiagonalPreconditioner: the standard damped diagonal scaling
//
// The solver never materializes the matrix. It tracks the quadratic model
// value q(x) = 0.5 x'Ax - b'x incrementally, records iterates on a
// geometric checkpoint grid, and supports the Martens early-stopping rule
// that ends a run once the model value stops making relative progress.
//
// # Basic Usage
//
//	import "github.com/hessfree-ml/hessfree/cg"
//
//	a := func(v []float64) []float64 { ... } // SPD matrix-vector product
//	b := []float64{...}
//
//	tr := cg.Solve(a, b, cg.Config{
//	    MaxIter:   250,
//	    EarlyStop: true,
//	})
//	x := tr.Final()
//
// # Checkpoints
//
// Trajectory.Steps holds copies of selected iterates: the initial guess
// first, then iterates on a geometric grid, then the final iterate. An
// outer optimizer re-evaluates its true objective at each and steps to the
// best via Backtrack. Config.Checkpoints overrides the grid with explicit
// iteration indices; an empty non-nil slice keeps only the endpoints.
//
// Reference: Martens, "Deep learning via Hessian-free optimization",
// ICML 2010, section 4.
package cg
