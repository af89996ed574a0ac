// Copyright 2026 Hessfree ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides Hessian-free optimization: a truncated-Newton
// method that needs only gradients and curvature-vector products, never a
// materialized curvature matrix.
//
// # Overview
//
// This package contains:
//   - HessianFree: the optimizer, committing one Newton-like update per Step
//   - Config: validated construction-time settings
//   - Problem: the caller-supplied forward, gradient, and curvature callables
//   - StepResult: per-step diagnostics (loss, CG effort, step size, damping)
//
// Each step solves the damped curvature system with preconditioned
// conjugate gradients, picks the best trajectory checkpoint under the true
// objective, line searches the chosen direction, and adapts the damping
// with the Levenberg-Marquardt reduction ratio.
//
// # Basic Usage
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/hessfree-ml/hessfree/optim"
//	)
//
//	func main() {
//	    params := []float64{-1.2, 1.0}
//
//	    // The callables read params directly: the optimizer writes trial
//	    // points into the slice before invoking them.
//	    problem := optim.Problem{
//	        Forward:  func() (float64, []float64) { return loss(params), nil },
//	        Gradient: func() []float64 { return gradient(params) },
//	        HessProd: func(v []float64) []float64 { return hessProd(params, v) },
//	    }
//
//	    cfg := optim.DefaultConfig()
//	    cfg.Curvature = optim.CurvatureHessian
//	    opt, err := optim.New(params, cfg)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    for i := 0; i < 50; i++ {
//	        res := opt.Step(problem)
//	        fmt.Printf("step %d: loss %g, cg %d its\n", i, res.InitialLoss, res.CGIters)
//	    }
//	}
//
// # Curvature Models
//
// Two models drive the Newton system. CurvatureGGN (the default) uses
// generalized Gauss-Newton products, positive semidefinite by construction
// and the standard choice for nonconvex losses:
//
//	problem := optim.Problem{
//	    Forward:  forward, // returns (loss, network outputs)
//	    Gradient: gradient,
//	    GGNProd:  func(outputs, v []float64) []float64 { ... },
//	}
//
// CurvatureHessian uses exact Hessian products. A step can also supply
// Problem.MVP to override the configured model entirely.
//
// # Checkpointing
//
// State captures the persistent part of a run (the CG warm start and the
// adapted damping) for serialization alongside the parameters:
//
//	s := opt.State()
//	// ... persist s, later:
//	if err := opt.LoadState(s); err != nil {
//	    log.Fatal(err)
//	}
//
// Reference: Martens, "Deep learning via Hessian-free optimization",
// ICML 2010.
package optim
