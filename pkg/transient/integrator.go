// Package transient implements the full-order explicit transient solver:
// an adaptive embedded Runge-Kutta-Cash-Karp (5,4) stepper over
// dx/dt = invC*(-G*x) + invC*B*u(t) + invC*htc*refT, with capacitance-free
// node pre-elimination and an Observer/Recorder callback matching
// original_source's ThermalNetworkTransientSolver (threaded block RHS
// evaluation) and spec.md §4.4/§9 (the RK45 coefficients and pre-elimination
// contract themselves, for which the original has no Go-portable
// equivalent — it uses Boost.odeint).
package transient

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrStepUnderflow is returned when the adaptive step size has shrunk to
// dtMin and the step still fails the error test — an IntegratorFailure per
// the error taxonomy.
var ErrStepUnderflow = errors.New("transient: step size underflow")

// ErrObserverCancel is the sentinel an Observer returns to stop integration
// cleanly without it being treated as a failure.
var ErrObserverCancel = errors.New("transient: observer requested cancellation")

const dtMin = 1e-12

// Model evaluates dx/dt at a given state and time. Implementations may
// parallelize internally (e.g. per-block CSR matvecs); a single call to
// Eval must be safe to invoke from the integrator's own goroutine.
type Model interface {
	Dim() int
	Eval(t float64, x, dxdt []float64)
}

// Observer is invoked at every accepted integration step, in order, with
// strictly increasing t. Returning ErrObserverCancel stops the integration
// cleanly; any other non-nil error aborts it.
type Observer interface {
	Observe(t float64, x []float64) error
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(t float64, x []float64) error

// Observe calls f.
func (f ObserverFunc) Observe(t float64, x []float64) error { return f(t, x) }

// Recorder accumulates elapsed time and only forwards to probes/Sink once
// count reaches Interval, matching the original's Recorder (count += t -
// prev; emit and reset when count >= interval).
type Recorder struct {
	Interval float64
	Probes   []int // indices into x to emit, in this order
	Sink     func(t float64, values []float64)

	prev    float64
	count   float64
	started bool
}

// Observe implements Observer.
func (r *Recorder) Observe(t float64, x []float64) error {
	if !r.started {
		r.prev = t
		r.started = true
	}
	r.count += t - r.prev
	r.prev = t
	if r.count >= r.Interval {
		vals := make([]float64, len(r.Probes))
		for i, p := range r.Probes {
			vals[i] = x[p]
		}
		r.Sink(t, vals)
		r.count = 0
	}
	return nil
}

// Result reports how an Integrate call terminated.
type Result struct {
	AcceptedSteps int
	FinalT        float64
	Canceled      bool
}

// Cash-Karp RK45 tableau (Cash & Karp, 1990).
var (
	ckA = [6][5]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{3.0 / 10, -9.0 / 10, 6.0 / 5},
		{-11.0 / 54, 5.0 / 2, -70.0 / 27, 35.0 / 27},
		{1631.0 / 55296, 175.0 / 512, 575.0 / 13824, 44275.0 / 110592, 253.0 / 4096},
	}
	ckC  = [6]float64{0, 1.0 / 5, 3.0 / 10, 3.0 / 5, 1, 7.0 / 8}
	ck5  = [6]float64{37.0 / 378, 0, 250.0 / 621, 125.0 / 594, 0, 512.0 / 1771}
	ck4  = [6]float64{2825.0 / 27648, 0, 18575.0 / 48384, 13525.0 / 55296, 277.0 / 14336, 1.0 / 4}
)

// Integrate advances model's state x (modified in place, final value left
// in x on return) from t0 over duration, starting with step dt0, calling
// observer at every accepted step. Step size is clamped to
// [dtMin, duration/10] per spec.md §9.
func Integrate(model Model, x []float64, t0, duration, dt0, absTol, relTol float64, observer Observer) (Result, error) {
	n := model.Dim()
	dtMax := duration / 10
	if dtMax <= 0 {
		dtMax = duration
	}
	dt := clamp(dt0, dtMin, dtMax)

	t := t0
	tEnd := t0 + duration

	if err := observer.Observe(t, x); err != nil {
		if errors.Is(err, ErrObserverCancel) {
			return Result{FinalT: t, Canceled: true}, nil
		}
		return Result{FinalT: t}, err
	}

	k := make([][]float64, 6)
	for i := range k {
		k[i] = make([]float64, n)
	}
	tmp := make([]float64, n)
	x5 := make([]float64, n)
	x4 := make([]float64, n)
	scaleVec := make([]float64, n)
	diff := make([]float64, n)

	res := Result{FinalT: t}

	for t < tEnd {
		if t+dt > tEnd {
			dt = tEnd - t
		}

		model.Eval(t, x, k[0])
		for stage := 1; stage < 6; stage++ {
			copy(tmp, x)
			for j := 0; j < stage; j++ {
				floats.AddScaled(tmp, dt*ckA[stage][j], k[j])
			}
			model.Eval(t+ckC[stage]*dt, tmp, k[stage])
		}

		copy(x5, x)
		copy(x4, x)
		for j := 0; j < 6; j++ {
			floats.AddScaled(x5, dt*ck5[j], k[j])
			floats.AddScaled(x4, dt*ck4[j], k[j])
		}

		for i := 0; i < n; i++ {
			scaleVec[i] = absTol + relTol*math.Max(math.Abs(x[i]), math.Abs(x5[i]))
			if scaleVec[i] == 0 {
				scaleVec[i] = absTol
			}
		}
		floats.SubTo(diff, x5, x4)
		floats.DivTo(diff, diff, scaleVec)
		errNorm := floats.Norm(diff, math.Inf(1))

		if errNorm <= 1 {
			t += dt
			copy(x, x5)
			res.AcceptedSteps++
			res.FinalT = t

			if err := observer.Observe(t, x); err != nil {
				if errors.Is(err, ErrObserverCancel) {
					return Result{AcceptedSteps: res.AcceptedSteps, FinalT: t, Canceled: true}, nil
				}
				return res, err
			}

			if errNorm > 0 {
				dt = nextStep(dt, errNorm, dtMax)
			}
		} else {
			if dt <= dtMin {
				return res, ErrStepUnderflow
			}
			dt = nextStep(dt, errNorm, dtMax)
		}
	}
	return res, nil
}

func nextStep(dt, errNorm, dtMax float64) float64 {
	const safety = 0.9
	var factor float64
	if errNorm == 0 {
		factor = 5
	} else {
		exp := 0.2
		if errNorm > 1 {
			exp = 0.25
		}
		factor = safety * math.Pow(1/errNorm, exp)
	}
	factor = clamp(factor, 0.1, 5)
	return clamp(dt*factor, dtMin, dtMax)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
