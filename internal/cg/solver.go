// Package cg implements the preconditioned conjugate gradient method for the
// damped curvature systems that arise in Hessian-free optimization.
//
// This package provides:
//   - Solve: matrix-free preconditioned CG, returning a checkpointed
//     trajectory of iterates with their quadratic model values
//   - Backtrack: best-of-trajectory selection under the true objective
//   - DiagonalPreconditioner: elementwise scaling from a curvature diagonal
//
// The solver never materializes the system matrix. It only applies the
// Operator callable, which makes it suitable for curvature operators that
// exist exclusively as Hessian-vector or Gauss-Newton-vector products. The
// cost of a run is therefore dominated by one Operator application per
// iteration (plus one more when a nonzero initial guess is given).
//
// Reference: Martens, "Deep learning via Hessian-free optimization",
// ICML 2010.
package cg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Operator applies a symmetric linear operator to a vector, returning the
// product as a new slice. Implementations must not retain or modify v.
type Operator func(v []float64) []float64

// Preconditioner applies an approximate inverse of the system operator to a
// residual, returning the result as a new slice. Implementations must not
// retain or modify r.
type Preconditioner func(r []float64) []float64

// Default residual tolerances used when Config leaves them zero.
const (
	DefaultTol  = 1e-5
	DefaultAtol = 1e-6
)

// earlyStopTol is the relative-progress threshold of the early-stopping
// criterion: once the model value improves by less than this fraction over
// the trailing window, further iterations are not worth their operator cost.
const earlyStopTol = 1e-4

// gridGamma spaces the automatic checkpoint grid. Checkpoints fall on
// ceil(gridGamma^j), so the grid is dense for early iterations and sparse
// for late ones.
const gridGamma = 1.3

// Status reports why a CG run stopped.
type Status int

const (
	// Converged means the residual norm dropped below max(Tol*||b||, Atol).
	Converged Status = iota
	// MaxIter means the iteration cap was reached first.
	MaxIter
	// Stalled means the early-stopping criterion fired: the quadratic model
	// stopped making relative progress.
	Stalled
	// Breakdown means a curvature or residual inner product reached zero
	// and the run returned the trajectory collected so far instead of
	// dividing by it.
	Breakdown
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case MaxIter:
		return "max iterations"
	case Stalled:
		return "stalled"
	case Breakdown:
		return "breakdown"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Config controls a single CG run. The zero value is usable: zero initial
// guess, no preconditioning, iteration cap equal to the system dimension,
// default tolerances, no early stopping, automatic checkpoint grid.
type Config struct {
	// X0 is the initial guess. nil means the zero vector.
	X0 []float64

	// M applies approximate inverse preconditioning. nil means identity.
	M Preconditioner

	// MaxIter caps the iteration count. Zero means len(b).
	MaxIter int

	// Tol and Atol define the residual stopping rule
	// ||r|| <= max(Tol*||b||, Atol). Zero values select DefaultTol and
	// DefaultAtol.
	Tol  float64
	Atol float64

	// EarlyStop enables the relative-progress criterion: at iteration i,
	// with k = max(1, i/10), stop once the model value is negative and
	// (q_i - q_{i-k}) / q_i falls below a small threshold. Leave it off
	// for runs that must reach numerical convergence.
	EarlyStop bool

	// Checkpoints lists the iteration indices whose iterates are recorded.
	// nil selects the automatic geometric grid. An empty non-nil slice
	// records only the initial guess and the final iterate, which are
	// always present regardless of the grid.
	Checkpoints []int
}

// Trajectory is the checkpointed path of one CG run. Steps[0] is always the
// initial guess and the last entry is always the final iterate; Values holds
// the quadratic model q(x) = 0.5*x'Ax - b'x at the same points, and Iters
// the iteration index of each entry.
type Trajectory struct {
	Steps  [][]float64
	Values []float64
	Iters  []int
	Status Status
}

// Final returns the last iterate.
func (t Trajectory) Final() []float64 { return t.Steps[len(t.Steps)-1] }

// FinalValue returns the quadratic model value at the last iterate.
func (t Trajectory) FinalValue() float64 { return t.Values[len(t.Values)-1] }

// Iterations returns the number of iterations the run performed.
func (t Trajectory) Iterations() int { return t.Iters[len(t.Iters)-1] }

// Solve runs preconditioned conjugate gradients on A x = b and returns the
// checkpointed trajectory.
//
// The model value q is tracked incrementally: the CG identities give
// q(x_{i+1}) = q(x_i) - 0.5*alpha*(r'z), so no operator application beyond
// the one per iteration is ever spent on it. Termination checks run in
// order: residual convergence, iteration cap (loop bound), early stop,
// breakdown. On breakdown the trajectory collected so far is returned.
func Solve(a Operator, b []float64, cfg Config) Trajectory {
	n := len(b)
	maxIter := cfg.MaxIter
	if maxIter <= 0 {
		maxIter = n
	}
	tol := cfg.Tol
	if tol == 0 {
		tol = DefaultTol
	}
	atol := cfg.Atol
	if atol == 0 {
		atol = DefaultAtol
	}
	threshold := math.Max(tol*floats.Norm(b, 2), atol)
	grid := checkpointGrid(cfg.Checkpoints, maxIter)

	// State: iterate, residual b - A*x, and the model value at x.
	x := make([]float64, n)
	r := make([]float64, n)
	q := 0.0
	if cfg.X0 != nil {
		if len(cfg.X0) != n {
			panic("cg: initial guess dimension mismatch")
		}
		copy(x, cfg.X0)
		ax := a(x)
		floats.SubTo(r, b, ax)
		q = 0.5*floats.Dot(x, ax) - floats.Dot(b, x)
	} else {
		copy(r, b)
	}

	tr := Trajectory{Status: MaxIter}
	record := func(iter int) {
		xc := make([]float64, n)
		copy(xc, x)
		tr.Steps = append(tr.Steps, xc)
		tr.Values = append(tr.Values, q)
		tr.Iters = append(tr.Iters, iter)
	}
	record(0)

	if floats.Norm(r, 2) <= threshold {
		tr.Status = Converged
		return tr
	}

	z := precondition(cfg.M, r)
	p := make([]float64, n)
	copy(p, z)
	rz := floats.Dot(r, z)

	hist := make([]float64, 1, maxIter+1)
	hist[0] = q

	last := 0
	for i := 1; i <= maxIter; i++ {
		ap := a(p)
		pap := floats.Dot(p, ap)
		if pap == 0 {
			tr.Status = Breakdown
			break
		}
		alpha := rz / pap
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, ap)
		q -= 0.5 * alpha * rz
		hist = append(hist, q)
		last = i

		if grid[i] {
			record(i)
		}
		if floats.Norm(r, 2) <= threshold {
			tr.Status = Converged
			break
		}
		if cfg.EarlyStop && stalled(hist, i) {
			tr.Status = Stalled
			break
		}

		z = precondition(cfg.M, r)
		rzNext := floats.Dot(r, z)
		if rzNext == 0 {
			tr.Status = Breakdown
			break
		}
		beta := rzNext / rz
		for j := range p {
			p[j] = z[j] + beta*p[j]
		}
		rz = rzNext
	}

	// The caller always needs the true endpoint, even under a coarse grid.
	if tr.Iters[len(tr.Iters)-1] != last {
		record(last)
	}
	return tr
}

// stalled evaluates the relative-progress criterion at iteration i over the
// model value history hist, where hist[j] is the value after iteration j.
func stalled(hist []float64, i int) bool {
	cur := hist[i]
	if cur >= 0 {
		return false
	}
	k := i / 10
	if k < 1 {
		k = 1
	}
	return (cur-hist[i-k])/cur < earlyStopTol
}

// checkpointGrid returns the set of iteration indices to record. A nil spec
// selects the automatic grid ceil(gridGamma^j) up to maxIter. Index 0 and
// the final iterate are handled by the solver and need not appear here.
func checkpointGrid(spec []int, maxIter int) map[int]bool {
	grid := make(map[int]bool)
	if spec != nil {
		for _, i := range spec {
			grid[i] = true
		}
		return grid
	}
	for e := 0.0; ; e++ {
		i := int(math.Ceil(math.Pow(gridGamma, e)))
		if i > maxIter {
			break
		}
		grid[i] = true
	}
	return grid
}

func precondition(m Preconditioner, r []float64) []float64 {
	if m == nil {
		z := make([]float64, len(r))
		copy(z, r)
		return z
	}
	return m(r)
}
