// Copyright 2026 Hessfree ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/hessfree-ml/hessfree/internal/optim"
)

// HessianFree is the truncated-Newton optimizer. One instance drives one
// optimization run over a flat parameter vector.
type HessianFree = optim.HessianFree

// Config holds the construction-time settings, validated by New.
type Config = optim.Config

// Problem bundles the per-step callables: the forward pass, the gradient,
// and a curvature-vector product.
type Problem = optim.Problem

// StepResult reports what a single Step did.
type StepResult = optim.StepResult

// State is the persistent part of the optimizer, for checkpointing runs.
type State = optim.State

// Curvature selects the curvature model for the Newton system.
type Curvature = optim.Curvature

const (
	// CurvatureGGN uses generalized Gauss-Newton products, the default.
	CurvatureGGN = optim.CurvatureGGN
	// CurvatureHessian uses exact Hessian products.
	CurvatureHessian = optim.CurvatureHessian
)

// Configuration errors returned by New and LoadState.
var (
	ErrCurvature    = optim.ErrCurvature
	ErrDamping      = optim.ErrDamping
	ErrLearningRate = optim.ErrLearningRate
	ErrCGMaxIter    = optim.ErrCGMaxIter
	ErrStateDim     = optim.ErrStateDim
)

// New creates a HessianFree optimizer over params. The slice is retained:
// Step evaluates the Problem callables through it and commits the update
// into it.
//
// Example:
//
//	params := []float64{-1.2, 1.0}
//	opt, err := optim.New(params, optim.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for i := 0; i < 100; i++ {
//	    res := opt.Step(optim.Problem{
//	        Forward:  forward,
//	        Gradient: gradient,
//	        GGNProd:  ggnProd,
//	    })
//	    fmt.Println(i, res.InitialLoss)
//	}
func New(params []float64, cfg Config) (*HessianFree, error) {
	return optim.New(params, cfg)
}

// DefaultConfig returns the standard settings: GGN curvature, damping 1.0
// with adaptation, CG capped at the problem dimension, backtracking and
// line search enabled.
func DefaultConfig() Config {
	return optim.DefaultConfig()
}

// ParseCurvature converts the names "ggn" and "hessian" into selectors,
// for wiring command line or file configuration.
func ParseCurvature(s string) (Curvature, error) {
	return optim.ParseCurvature(s)
}
