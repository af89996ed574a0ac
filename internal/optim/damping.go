package optim

import "math"

// Damping adaptation thresholds and factors of the Levenberg-Marquardt
// heuristic.
const (
	rhoLow     = 0.25
	rhoHigh    = 0.75
	dampGrow   = 1.5
	dampShrink = 2.0 / 3.0
)

// adaptDamping applies the Levenberg-Marquardt rule to the persistent
// damping value and returns the reduction ratio it used.
//
// The ratio compares the true objective change between the CG start and end
// points against the change the quadratic model predicted. A small ratio
// means the model promised more than the objective delivered, so the
// damping grows; a large ratio means the model was conservative, so the
// damping shrinks. A flat model (zero denominator) skips the update. A
// negative ratio warns of a poor warm start for the next CG run but still
// follows the rule.
func (o *HessianFree) adaptDamping(f0, fStep, m0, mStep float64) float64 {
	denom := mStep - m0
	if denom == 0 {
		o.warnf("reduction ratio skipped, the quadratic model is flat over this step")
		return math.NaN()
	}
	rho := (fStep - f0) / denom
	if rho < 0 {
		o.warnf("reduction ratio is negative (%.3e), expect a poor warm start for the next cg run", rho)
	}
	switch {
	case rho < rhoLow:
		o.damping *= dampGrow
	case rho > rhoHigh:
		o.damping *= dampShrink
	}
	return rho
}
