package cg

import "math"

// DiagonalPreconditioner builds a Preconditioner from a diagonal estimate of
// the curvature operator. Each residual entry is scaled by
//
//	(diag[i] + damping)^(-exponent)
//
// where damping matches the Tikhonov term of the system being solved. A
// fractional exponent tempers the scaling; 0.75 is the usual choice for
// curvature diagonals with a large dynamic range.
//
// The diagonal is copied, so the caller may reuse its slice.
func DiagonalPreconditioner(diag []float64, damping, exponent float64) Preconditioner {
	scale := make([]float64, len(diag))
	for i, d := range diag {
		scale[i] = math.Pow(d+damping, -exponent)
	}
	return func(r []float64) []float64 {
		if len(r) != len(scale) {
			panic("cg: preconditioner dimension mismatch")
		}
		z := make([]float64, len(r))
		for i, v := range r {
			z[i] = scale[i] * v
		}
		return z
	}
}
