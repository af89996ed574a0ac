// Package optim implements the Hessian-free optimizer: a truncated-Newton
// method that minimizes a scalar objective using only gradient and
// curvature-vector products, never a materialized curvature matrix.
//
// This package provides:
//   - HessianFree: the optimizer, one instance per optimization run
//   - Config: construction-time settings, validated by New
//   - Problem: the per-step callables (forward pass, gradient, curvature)
//
// Each Step solves the damped Newton system with preconditioned conjugate
// gradients, keeps the best trajectory checkpoint under the true objective,
// line searches the chosen direction, commits the parameter update, and
// adapts the damping with the Levenberg-Marquardt reduction ratio. The warm
// start for the next CG run persists on the optimizer between steps.
//
// Design inspired by PyTorch's torch.optim interface but adapted for Go:
// the optimizer owns a flat []float64 parameter vector and drives caller
// supplied closures instead of an autograd graph.
//
// Reference: Martens, "Deep learning via Hessian-free optimization",
// ICML 2010.
package optim

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/hessfree-ml/hessfree/internal/cg"
)

// Curvature selects the curvature model driving the Newton system when no
// explicit matrix-vector product is supplied for a step.
type Curvature int

const (
	// CurvatureGGN uses generalized Gauss-Newton products. Positive
	// semidefinite by construction, the usual choice for nonconvex losses.
	CurvatureGGN Curvature = iota
	// CurvatureHessian uses exact Hessian products.
	CurvatureHessian
)

func (c Curvature) String() string {
	switch c {
	case CurvatureGGN:
		return "ggn"
	case CurvatureHessian:
		return "hessian"
	}
	return fmt.Sprintf("Curvature(%d)", int(c))
}

// ParseCurvature converts the names "ggn" and "hessian" into selectors.
func ParseCurvature(s string) (Curvature, error) {
	switch s {
	case "ggn":
		return CurvatureGGN, nil
	case "hessian":
		return CurvatureHessian, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrCurvature, s)
}

// Config holds the construction-time settings of the optimizer. Start from
// DefaultConfig; New validates and rejects invalid values instead of
// silently fixing them.
type Config struct {
	// Curvature selects Hessian or generalized Gauss-Newton products for
	// steps that do not supply Problem.MVP. (default: CurvatureGGN)
	Curvature Curvature

	// Damping is the initial Tikhonov term added to the curvature operator
	// before solving. Must be >= 0. Zero disables damping and forces
	// AdaptDamping off. (default: 1.0)
	Damping float64

	// AdaptDamping adjusts Damping after each step from the reduction
	// ratio between true and predicted improvement. (default: true)
	AdaptDamping bool

	// CGMaxIter caps the CG iterations per step. Zero selects the problem
	// dimension. Large models typically cap far lower.
	CGMaxIter int

	// CGDecayX0 scales the final CG iterate into the warm start for the
	// next step's solve. (default: 0.95)
	CGDecayX0 float64

	// Backtracking re-evaluates the objective at the stored CG checkpoints
	// and steps to the best one instead of the final iterate.
	// (default: true)
	Backtracking bool

	// LR is the initial step-size multiplier: the line search starts
	// there, and with LineSearch off it is applied as a constant learning
	// rate. Must be > 0. (default: 1.0)
	LR float64

	// LineSearch enables the Armijo backtracking search along the chosen
	// direction. (default: true)
	LineSearch bool

	// Verbose prints a progress line per step to LogWriter. It never
	// affects the computed update. (default: false)
	Verbose bool

	// LogWriter receives warnings and, with Verbose, progress lines.
	// nil means os.Stdout.
	LogWriter io.Writer
}

// DefaultConfig returns the standard settings: GGN curvature, damping 1.0
// with adaptation on, CG capped at the problem dimension, warm-start decay
// 0.95, backtracking and line search enabled, learning rate 1.0.
func DefaultConfig() Config {
	return Config{
		Curvature:    CurvatureGGN,
		Damping:      1.0,
		AdaptDamping: true,
		CGDecayX0:    0.95,
		Backtracking: true,
		LR:           1.0,
		LineSearch:   true,
	}
}

// HessianFree is a truncated-Newton optimizer over a flat parameter vector.
//
// The optimizer retains the slice passed to New: Step writes trial values
// into it while evaluating the Problem callables and leaves the committed
// update in it on return, so the callables always see the point the
// optimizer wants evaluated.
//
// Persistent state (the CG warm start and the damping value) is owned by
// the instance and mutated once per step. A HessianFree is not safe for
// concurrent use; callers must not interleave Step invocations.
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
type HessianFree struct {
	params  []float64
	cfg     Config
	damping float64
	x0      []float64
	log     io.Writer
}

// New creates a HessianFree optimizer over params. The slice is retained
// and updated in place by Step. Invalid configuration is rejected here,
// never at step time.
func New(params []float64, cfg Config) (*HessianFree, error) {
	switch cfg.Curvature {
	case CurvatureGGN, CurvatureHessian:
	default:
		return nil, fmt.Errorf("%w: %d", ErrCurvature, int(cfg.Curvature))
	}
	if cfg.Damping < 0 {
		return nil, fmt.Errorf("%w: got %v", ErrDamping, cfg.Damping)
	}
	if cfg.LR <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrLearningRate, cfg.LR)
	}
	if cfg.CGMaxIter < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrCGMaxIter, cfg.CGMaxIter)
	}

	if cfg.LogWriter == nil {
		cfg.LogWriter = os.Stdout
	}
	o := &HessianFree{
		params:  params,
		cfg:     cfg,
		damping: cfg.Damping,
		log:     cfg.LogWriter,
	}
	if cfg.Damping == 0 && cfg.AdaptDamping {
		// Adaptation would only rescale zero.
		o.cfg.AdaptDamping = false
		o.warnf("initial damping is 0, damping adaptation disabled")
	}
	return o, nil
}

// GetLR returns the configured base learning rate.
func (o *HessianFree) GetLR() float64 { return o.cfg.LR }

// Damping returns the current damping value.
func (o *HessianFree) Damping() float64 { return o.damping }

// Dim returns the parameter dimension.
func (o *HessianFree) Dim() int { return len(o.params) }

// DiagPreconditioner builds a CG preconditioner from a diagonal curvature
// estimate, reading the optimizer's current damping at every application so
// later adaptation is picked up automatically. The exponent tempers the
// scaling; 0.75 is the usual choice. The diagonal is copied.
func (o *HessianFree) DiagPreconditioner(diag []float64, exponent float64) cg.Preconditioner {
	d := make([]float64, len(diag))
	copy(d, diag)
	return func(r []float64) []float64 {
		if len(r) != len(d) {
			panic("hessfree: preconditioner dimension mismatch")
		}
		z := make([]float64, len(r))
		for i, v := range r {
			z[i] = v * math.Pow(d[i]+o.damping, -exponent)
		}
		return z
	}
}

func (o *HessianFree) warnf(format string, args ...any) {
	fmt.Fprintf(o.log, "hessfree: warning: "+format+"\n", args...)
}
