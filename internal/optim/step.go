package optim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/hessfree-ml/hessfree/internal/cg"
	"github.com/hessfree-ml/hessfree/internal/linesearch"
)

// Step performs one Hessian-free optimization step and commits the update
// to the parameter vector. Per step, in order:
//
//  1. Evaluate the objective and the gradient at the current parameters.
//  2. Build the damped operator v -> mvp(v) + damping*v.
//  3. Solve it against -gradient with CG, warm started from the previous
//     step's decayed solution.
//  4. Persist CGDecayX0 times the final iterate as the next warm start.
//  5. Adapt the damping from the reduction ratio over the CG run.
//  6. Backtrack to the best trajectory checkpoint under the true objective.
//  7. Line search the chosen direction starting at LR.
//  8. Commit params += alpha * step, the only external side effect.
//
// Stages 5 to 7 run only when their Config flags are set. Step never
// returns an error: configuration is validated at construction and the
// numerical components recover from degeneracies internally. Nil required
// callables and mis-sized vectors panic.
func (o *HessianFree) Step(p Problem) StepResult {
	if p.Forward == nil {
		panic("hessfree: Problem.Forward is nil")
	}
	if p.Gradient == nil {
		panic("hessfree: Problem.Gradient is nil")
	}
	n := len(o.params)
	base := make([]float64, n)
	copy(base, o.params)

	loss, outputs := p.Forward()
	grad := p.Gradient()
	if len(grad) != n {
		panic(fmt.Sprintf("hessfree: gradient has %d elements, parameters have %d", len(grad), n))
	}

	mvp := o.curvatureProduct(p, outputs)
	damping := o.damping
	damped := func(v []float64) []float64 {
		av := mvp(v)
		if len(av) != n {
			panic(fmt.Sprintf("hessfree: curvature product has %d elements, parameters have %d", len(av), n))
		}
		out := make([]float64, n)
		floats.AddScaledTo(out, av, damping, v)
		return out
	}

	b := make([]float64, n)
	floats.ScaleTo(b, -1, grad)
	maxIter := o.cfg.CGMaxIter
	if maxIter == 0 {
		maxIter = n
	}
	tr := cg.Solve(damped, b, cg.Config{
		X0:        o.x0,
		M:         p.Precond,
		MaxIter:   maxIter,
		EarlyStop: true,
	})
	step := tr.Final()

	o.x0 = make([]float64, n)
	floats.ScaleTo(o.x0, o.cfg.CGDecayX0, step)

	// tryStep evaluates the true objective at base + s. The parameter
	// vector is the communication channel to the forward callable, exactly
	// as in the final commit.
	tryStep := func(s []float64) float64 {
		floats.AddTo(o.params, base, s)
		l, _ := p.Forward()
		return l
	}

	res := StepResult{
		InitialLoss:  loss,
		FinalLoss:    math.NaN(),
		CGIters:      tr.Iterations(),
		CGStatus:     tr.Status,
		Checkpoint:   len(tr.Steps) - 1,
		Rho:          math.NaN(),
		LineSearchOK: true,
	}

	if o.cfg.AdaptDamping {
		f0 := tryStep(tr.Steps[0])
		fStep := tryStep(step)
		res.Rho = o.adaptDamping(f0, fStep, tr.Values[0], tr.FinalValue())
	}
	res.Damping = o.damping

	if o.cfg.Backtracking {
		idx, _ := cg.Backtrack(tryStep, tr.Steps)
		res.Checkpoint = idx
		step = tr.Steps[idx]
	}

	alpha := o.cfg.LR
	if o.cfg.LineSearch {
		var fval float64
		var ok bool
		alpha, fval, ok = linesearch.Backtracking(tryStep, grad, step, o.cfg.LR)
		res.FinalLoss = fval
		res.LineSearchOK = ok
		if !ok {
			o.warnf("line search exhausted its budget, committing alpha=%.3e", alpha)
		}
	}
	res.Alpha = alpha

	// Commit.
	floats.AddScaledTo(o.params, base, alpha, step)

	if o.cfg.Verbose {
		final := res.FinalLoss
		if math.IsNaN(final) {
			// Print-only evaluation at the committed parameters.
			final, _ = p.Forward()
		}
		fmt.Fprintf(o.log, "hessfree: loss %.6e -> %.6e, cg %d its (%s), checkpoint %d, alpha %.3e, damping %.3e\n",
			loss, final, res.CGIters, res.CGStatus, res.Checkpoint, alpha, o.damping)
	}
	return res
}

// curvatureProduct resolves the matrix-vector product for this step: the
// explicit override when given, otherwise the product matching the
// configured curvature model.
func (o *HessianFree) curvatureProduct(p Problem, outputs []float64) func([]float64) []float64 {
	if p.MVP != nil {
		return p.MVP
	}
	if o.cfg.Curvature == CurvatureHessian {
		if p.HessProd == nil {
			panic("hessfree: Problem.HessProd is nil and no MVP override was given")
		}
		return p.HessProd
	}
	// CurvatureGGN; anything else was rejected at construction.
	if p.GGNProd == nil {
		panic("hessfree: Problem.GGNProd is nil and no MVP override was given")
	}
	return func(v []float64) []float64 { return p.GGNProd(outputs, v) }
}
