// Package linesearch provides the scalar step-size search applied to the
// update direction a Hessian-free step has chosen.
package linesearch

import "gonum.org/v1/gonum/floats"

// Search constants: the Armijo slope factor, the geometric shrink applied
// between attempts, and the attempt budget that bounds the search.
const (
	SufficientDecrease = 0.01
	Shrink             = 0.8
	MaxAttempts        = 30
)

// Backtracking finds a multiplier alpha on dir satisfying the Armijo
// sufficient-decrease condition
//
//	f(alpha*dir) <= f(0) + SufficientDecrease * alpha * (grad . dir)
//
// by shrinking geometrically from initAlpha. It returns the accepted
// multiplier and its objective value, so the caller never re-evaluates the
// accepted point. f(0) is obtained through the callable itself; including
// it, the search costs at most MaxAttempts+1 evaluations.
//
// When no attempt within the budget satisfies the condition, the smallest
// multiplier tried is returned together with its objective value and ok is
// false. The fallback is deterministic: initAlpha * Shrink^(MaxAttempts-1).
func Backtracking(f func(step []float64) float64, grad, dir []float64, initAlpha float64) (alpha, fval float64, ok bool) {
	if len(grad) != len(dir) {
		panic("linesearch: gradient and direction dimensions differ")
	}
	slope := SufficientDecrease * floats.Dot(grad, dir)
	f0 := f(make([]float64, len(dir)))

	alpha = initAlpha
	trial := make([]float64, len(dir))
	for i := 0; ; i++ {
		floats.ScaleTo(trial, alpha, dir)
		fval = f(trial)
		if fval <= f0+alpha*slope {
			return alpha, fval, true
		}
		if i == MaxAttempts-1 {
			return alpha, fval, false
		}
		alpha *= Shrink
	}
}
