package cg

// Backtrack evaluates f at every checkpoint of a CG trajectory and returns
// the index of the lowest value together with that value.
//
// The final CG iterate is optimal under the local quadratic model but can
// overshoot under the true objective when the curvature is approximate;
// scanning the stored checkpoints recovers the best step actually available.
// Every checkpoint is evaluated, so f is called exactly len(steps) times.
// Ties keep the earliest checkpoint. A single-entry trajectory returns 0.
func Backtrack(f func(step []float64) float64, steps [][]float64) (int, float64) {
	if len(steps) == 0 {
		panic("cg: Backtrack requires at least one checkpoint")
	}
	best := 0
	bestVal := f(steps[0])
	for i := 1; i < len(steps); i++ {
		if v := f(steps[i]); v < bestVal {
			best = i
			bestVal = v
		}
	}
	return best, bestVal
}
