package optim

import (
	"bytes"
	"io"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hessfree-ml/hessfree/internal/cg"
)

// spdSystem returns a random symmetric positive definite matrix and a right
// hand side. The dim*I shift keeps the spectrum comfortably away from zero.
func spdSystem(dim int, seed int64) (*mat.Dense, []float64) {
	rng := rand.New(rand.NewSource(seed))
	m := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			m.Set(i, j, rng.NormFloat64())
		}
	}
	a := mat.NewDense(dim, dim, nil)
	a.Mul(m.T(), m)
	for i := 0; i < dim; i++ {
		a.Set(i, i, a.At(i, i)+float64(dim))
	}
	b := make([]float64, dim)
	for i := range b {
		b[i] = rng.NormFloat64()
	}
	return a, b
}

// argmin solves Ax = -b, the minimizer of 0.5 x'Ax + b'x.
func argmin(a *mat.Dense, b []float64) []float64 {
	n := len(b)
	neg := make([]float64, n)
	floats.ScaleTo(neg, -1, b)
	var x mat.VecDense
	if err := x.SolveVec(a, mat.NewVecDense(n, neg)); err != nil {
		panic(err)
	}
	return x.RawVector().Data
}

// quadratic wires f(x) = 0.5 x'Ax + b'x + 3 into Problem callables that read
// the live parameter vector, counting objective evaluations.
type quadratic struct {
	a        *mat.Dense
	b        []float64
	params   []float64
	forwards int
}

func (q *quadratic) mul(v []float64) []float64 {
	var out mat.VecDense
	out.MulVec(q.a, mat.NewVecDense(len(v), v))
	return out.RawVector().Data
}

func (q *quadratic) problem() Problem {
	return Problem{
		Forward: func() (float64, []float64) {
			q.forwards++
			ax := q.mul(q.params)
			return 0.5*floats.Dot(q.params, ax) + floats.Dot(q.b, q.params) + 3, nil
		},
		Gradient: func() []float64 {
			g := q.mul(q.params)
			floats.Add(g, q.b)
			return g
		},
		HessProd: q.mul,
	}
}

func TestStepNewton(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for _, dim := range []int{3, 5, 10} {
		a, b := spdSystem(dim, int64(dim))
		params := make([]float64, dim)
		for i := range params {
			params[i] = rng.NormFloat64()
		}
		q := &quadratic{a: a, b: b, params: params}

		opt, err := New(params, Config{Curvature: CurvatureHessian, LR: 1, LogWriter: io.Discard})
		require.NoError(t, err)

		res := opt.Step(q.problem())
		assert.Equal(t, cg.Converged, res.CGStatus, "dim %d", dim)
		assert.InDeltaSlice(t, argmin(a, b), params, 1e-3, "dim %d", dim)
		assert.Equal(t, 1.0, res.Alpha)
		assert.True(t, res.LineSearchOK)
		assert.False(t, math.IsNaN(res.InitialLoss))
		assert.True(t, math.IsNaN(res.FinalLoss), "no line search ran")
		assert.True(t, math.IsNaN(res.Rho), "no adaptation ran")
	}
}

func TestStepMVPOverride(t *testing.T) {
	a, b := spdSystem(5, 5)
	q := &quadratic{a: a, b: b, params: make([]float64, 5)}

	// GGNProd stays nil: the explicit product takes precedence over the
	// configured curvature model.
	p := q.problem()
	p.HessProd = nil
	p.MVP = q.mul

	opt, err := New(q.params, Config{LR: 1, LogWriter: io.Discard})
	require.NoError(t, err)
	opt.Step(p)
	assert.InDeltaSlice(t, argmin(a, b), q.params, 1e-3)
}

func TestStepWithPreconditioner(t *testing.T) {
	a, b := spdSystem(6, 13)
	q := &quadratic{a: a, b: b, params: make([]float64, 6)}

	opt, err := New(q.params, Config{Curvature: CurvatureHessian, LR: 1, LogWriter: io.Discard})
	require.NoError(t, err)

	diag := make([]float64, 6)
	for i := range diag {
		diag[i] = a.At(i, i)
	}
	p := q.problem()
	p.Precond = opt.DiagPreconditioner(diag, 1)

	opt.Step(p)
	assert.InDeltaSlice(t, argmin(a, b), q.params, 1e-3)
}

func TestStepEvaluationCounts(t *testing.T) {
	cases := []struct {
		name                         string
		adapt, backtrack, lineSearch bool
		want                         int
	}{
		{"all disabled", false, false, false, 1},
		{"adapt only", true, false, false, 3},
		{"backtrack only", false, true, false, 3},
		{"line search only", false, false, true, 3},
		{"all enabled", true, true, true, 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, b := spdSystem(4, 11)
			params := []float64{0.3, -0.7, 1.1, 0.2}
			q := &quadratic{a: a, b: b, params: params}

			opt, err := New(params, Config{
				Curvature:    CurvatureHessian,
				Damping:      1,
				AdaptDamping: tc.adapt,
				CGMaxIter:    1,
				CGDecayX0:    0.95,
				Backtracking: tc.backtrack,
				LR:           1,
				LineSearch:   tc.lineSearch,
				LogWriter:    io.Discard,
			})
			require.NoError(t, err)

			res := opt.Step(q.problem())
			assert.Equal(t, tc.want, q.forwards)
			assert.Equal(t, 1, res.CGIters)
			if tc.lineSearch {
				assert.True(t, res.LineSearchOK, "first Armijo attempt holds on a damped quadratic")
			}
		})
	}
}

func TestStepWarmStartDecay(t *testing.T) {
	a, b := spdSystem(4, 7)
	params := make([]float64, 4)
	q := &quadratic{a: a, b: b, params: params}

	opt, err := New(params, Config{
		Curvature: CurvatureHessian,
		CGDecayX0: 0.95,
		LR:        1,
		LogWriter: io.Discard,
	})
	require.NoError(t, err)

	base := append([]float64(nil), params...)
	opt.Step(q.problem())

	require.Len(t, opt.x0, 4)
	for i := range opt.x0 {
		step := params[i] - base[i]
		assert.InDelta(t, 0.95*step, opt.x0[i], 1e-12)
	}

	// The warm start feeds the next solve without upsetting it.
	res := opt.Step(q.problem())
	assert.False(t, math.IsNaN(res.InitialLoss))
}

// rosenbrock wires f(x, y) = (1-x)^2 + 100(y-x^2)^2 into Problem callables
// with exact Hessian products.
type rosenbrock struct {
	params []float64
}

func (r *rosenbrock) value() float64 {
	x, y := r.params[0], r.params[1]
	return (1-x)*(1-x) + 100*(y-x*x)*(y-x*x)
}

func (r *rosenbrock) problem() Problem {
	return Problem{
		Forward: func() (float64, []float64) {
			return r.value(), nil
		},
		Gradient: func() []float64 {
			x, y := r.params[0], r.params[1]
			return []float64{
				-2*(1-x) - 400*x*(y-x*x),
				200 * (y - x*x),
			}
		},
		HessProd: func(v []float64) []float64 {
			x, y := r.params[0], r.params[1]
			h11 := 2 - 400*y + 1200*x*x
			h12 := -400 * x
			return []float64{h11*v[0] + h12*v[1], h12*v[0] + 200*v[1]}
		},
	}
}

func TestStepRosenbrock(t *testing.T) {
	params := []float64{-1.2, 1}
	r := &rosenbrock{params: params}

	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Curvature = CurvatureHessian
	cfg.Verbose = true
	cfg.LogWriter = &buf

	opt, err := New(params, cfg)
	require.NoError(t, err)

	initial := r.value()
	var last StepResult
	for i := 0; i < 3; i++ {
		last = opt.Step(r.problem())
		assert.Greater(t, last.Alpha, 0.0)
		assert.GreaterOrEqual(t, last.CGIters, 1)
	}
	assert.LessOrEqual(t, r.value(), initial)
	assert.False(t, math.IsNaN(last.FinalLoss))
	assert.False(t, math.IsNaN(last.Rho))
	assert.Contains(t, buf.String(), "hessfree: loss")
}

// ggnRosenbrock treats Rosenbrock as least squares over the residuals
// r1 = 1-x, r2 = 10(y-x^2), with f = r1^2 + r2^2 and curvature 2 J'J.
type ggnRosenbrock struct {
	params     []float64
	sawOutputs bool
}

func (r *ggnRosenbrock) residuals() []float64 {
	x, y := r.params[0], r.params[1]
	return []float64{1 - x, 10 * (y - x*x)}
}

func (r *ggnRosenbrock) problem() Problem {
	return Problem{
		Forward: func() (float64, []float64) {
			res := r.residuals()
			return res[0]*res[0] + res[1]*res[1], res
		},
		Gradient: func() []float64 {
			x := r.params[0]
			res := r.residuals()
			return []float64{
				2 * (-res[0] - 20*x*res[1]),
				2 * 10 * res[1],
			}
		},
		GGNProd: func(outputs, v []float64) []float64 {
			if len(outputs) == 2 {
				r.sawOutputs = true
			}
			x := r.params[0]
			jv0 := -v[0]
			jv1 := -20*x*v[0] + 10*v[1]
			return []float64{
				2 * (-jv0 - 20*x*jv1),
				2 * 10 * jv1,
			}
		},
	}
}

func TestStepRosenbrockGGN(t *testing.T) {
	params := []float64{-1.2, 1}
	r := &ggnRosenbrock{params: params}

	cfg := DefaultConfig()
	cfg.LogWriter = io.Discard
	opt, err := New(params, cfg)
	require.NoError(t, err)

	initial := r.residuals()
	f0 := initial[0]*initial[0] + initial[1]*initial[1]
	for i := 0; i < 3; i++ {
		opt.Step(r.problem())
	}
	final := r.residuals()
	assert.LessOrEqual(t, final[0]*final[0]+final[1]*final[1], f0)
	assert.True(t, r.sawOutputs, "forward outputs reach the curvature product")
}

func TestStepVerboseNoEffect(t *testing.T) {
	a, b := spdSystem(3, 21)
	quiet := &quadratic{a: a, b: b, params: []float64{0.5, -0.25, 1}}
	loud := &quadratic{a: a, b: b, params: []float64{0.5, -0.25, 1}}

	cfg := Config{Curvature: CurvatureHessian, LR: 1, LogWriter: io.Discard}
	optQuiet, err := New(quiet.params, cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	cfg.Verbose = true
	cfg.LogWriter = &buf
	optLoud, err := New(loud.params, cfg)
	require.NoError(t, err)

	optQuiet.Step(quiet.problem())
	optLoud.Step(loud.problem())

	assert.True(t, floats.Equal(quiet.params, loud.params), "verbose must not change the update")
	assert.Equal(t, quiet.forwards+1, loud.forwards, "verbose adds one print only evaluation")
	assert.Contains(t, buf.String(), "hessfree: loss")
}

func TestStepPanics(t *testing.T) {
	newOpt := func(cfg Config) *HessianFree {
		cfg.LR = 1
		cfg.LogWriter = io.Discard
		opt, err := New(make([]float64, 2), cfg)
		require.NoError(t, err)
		return opt
	}
	fwd := func() (float64, []float64) { return 0, nil }
	grad := func() []float64 { return []float64{1, 1} }

	require.PanicsWithValue(t, "hessfree: Problem.Forward is nil", func() {
		newOpt(Config{}).Step(Problem{Gradient: grad})
	})
	require.PanicsWithValue(t, "hessfree: Problem.Gradient is nil", func() {
		newOpt(Config{}).Step(Problem{Forward: fwd})
	})
	require.PanicsWithValue(t, "hessfree: Problem.GGNProd is nil and no MVP override was given", func() {
		newOpt(Config{}).Step(Problem{Forward: fwd, Gradient: grad})
	})
	require.PanicsWithValue(t, "hessfree: Problem.HessProd is nil and no MVP override was given", func() {
		newOpt(Config{Curvature: CurvatureHessian}).Step(Problem{Forward: fwd, Gradient: grad})
	})
	require.Panics(t, func() {
		newOpt(Config{}).Step(Problem{Forward: fwd, Gradient: func() []float64 { return []float64{1} }})
	})
	require.Panics(t, func() {
		newOpt(Config{}).Step(Problem{
			Forward:  fwd,
			Gradient: grad,
			MVP:      func(v []float64) []float64 { return []float64{1} },
		})
	})
}
