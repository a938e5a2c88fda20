// Package solver implements the steady-state MNA solve: G*x = B*u, with an
// iterative-refinement outer loop for temperature-dependent conductivity.
// Grounded on original_source's ThermalNetworkSolver.hpp (SolveEigen, both
// the CG path it runs and the commented-out direct LU/Cholesky path) and on
// the teacher's analysis/op.go outer-loop shape (reused here for
// re-linearisation instead of Newton-Raphson).
package solver

import (
	"errors"
	"fmt"

	"github.com/edp1096/sparse"
	"gonum.org/v1/gonum/floats"

	"github.com/ecad-oss/thermalnet/pkg/config"
	"github.com/ecad-oss/thermalnet/pkg/mna"
	"github.com/ecad-oss/thermalnet/pkg/network"
	"github.com/ecad-oss/thermalnet/pkg/sparsemat"
)

// ErrSingular is returned when the direct backend's factorization fails.
var ErrSingular = errors.New("solver: singular conductance matrix")

// ErrNonConvergence is returned when the CG backend fails to reach the
// requested tolerance within the iteration budget. The last best-effort
// solution is still written back to the network (§7: NonConvergence is a
// best-effort-plus-warning condition, not fatal).
var ErrNonConvergence = errors.New("solver: conjugate gradient failed to converge")

// Method selects the linear-solve backend for one MNA system.
type Method int

const (
	// CG runs an unpreconditioned/Jacobi-preconditioned conjugate-gradient
	// iteration, appropriate for G's SPD structure. Default per spec.md.
	CG Method = iota
	// Direct factors G with github.com/edp1096/sparse (teacher's own
	// dependency) and solves by back-substitution.
	Direct
)

// Extractor is implemented by extraction front-ends that want a chance to
// re-linearize temperature-dependent material properties between outer
// iterations (e.g. k(T) updates after each steady-state solve).
type Extractor interface {
	// Relinearize updates net's edge resistances/capacitances from the
	// just-solved temperatures. It returns the max relative change in any
	// updated resistance, used as the outer-loop's convergence metric.
	Relinearize(net *network.ThermalNetwork) (delta float64, err error)
}

// SteadyState solves one or more steady-state MNA systems.
type SteadyState struct {
	Method Method
}

// NewSteadyState constructs a solver using the given backend.
func NewSteadyState(method Method) *SteadyState {
	return &SteadyState{Method: method}
}

// Result reports the outcome of one Solve call.
type Result struct {
	X              []float64 // node temperatures, length N
	OuterIters     int       // outer re-linearization iterations performed
	LinSolveIters  int       // inner linear-solve iterations of the last pass (CG only)
	LinSolveResid  float64   // inner linear-solve residual of the last pass (CG only)
	Converged      bool      // outer loop converged within cfg.Residual
}

// Solve assembles net's MNA system and solves G*x = B*u for x, writing the
// result back into net's node temperatures. When extractor is non-nil and
// cfg.Iteration > 0, it re-linearizes and re-solves until the outer
// residual drops below cfg.Residual or the iteration budget is exhausted.
func (s *SteadyState) Solve(net *network.ThermalNetwork, cfg *config.Config, extractor Extractor) (*Result, error) {
	res := &Result{}
	maxOuter := cfg.Iteration
	if maxOuter == 0 {
		maxOuter = 1 // always solve at least once
	}

	for outer := 0; outer < maxOuter; outer++ {
		res.OuterIters = outer + 1

		m, err := mna.NewBuilder(net).Assemble(nil)
		if err != nil {
			return nil, fmt.Errorf("solver: assembly: %w", err)
		}
		u := m.RhsU(net, cfg.RefT)
		b := m.B.MulVec(u)
		dRhs := m.DirichletRhs(net)
		for i := range b {
			b[i] += dRhs[i]
		}

		var x []float64
		switch s.Method {
		case Direct:
			x, err = s.solveDirect(m.G, b)
		default:
			x, res.LinSolveIters, res.LinSolveResid, err = s.solveCG(m.G, b, cfg)
		}
		if err != nil && !errors.Is(err, ErrNonConvergence) {
			return nil, err
		}
		nonConverged := errors.Is(err, ErrNonConvergence)

		for i := 0; i < net.Size(); i++ {
			if net.Node(i).IsFixed() {
				continue // Dirichlet node: pinned by bc.Apply, not overwritten
			}
			net.SetT(i, x[i])
		}
		res.X = x

		if extractor == nil || maxOuter == 1 {
			res.Converged = !nonConverged
			if nonConverged {
				return res, ErrNonConvergence
			}
			return res, nil
		}

		delta, rerr := extractor.Relinearize(net)
		if rerr != nil {
			return res, fmt.Errorf("solver: relinearize: %w", rerr)
		}
		if delta < cfg.Residual {
			res.Converged = true
			return res, nil
		}
	}
	return res, nil
}

// solveCG runs conjugate gradient on the SPD system g*x=b with a Jacobi
// (diagonal) preconditioner, iterating until the residual norm falls below
// cfg.AbsTol + cfg.RelTol*||b|| or cfg.Iteration-independent cap is hit.
func (s *SteadyState) solveCG(g *sparsemat.CSR, b []float64, cfg *config.Config) ([]float64, int, float64, error) {
	return SolveCG(g, b, cfg.AbsTol, cfg.RelTol)
}

// SolveCG runs conjugate gradient on the SPD system g*x=b with a Jacobi
// (diagonal) preconditioner, exported so other packages needing repeated
// SPD solves against G (e.g. the MOR Krylov basis builder) can reuse it
// instead of driving the whole SteadyState machinery.
func SolveCG(g *sparsemat.CSR, b []float64, absTol, relTol float64) ([]float64, int, float64, error) {
	n := len(b)
	x := make([]float64, n)

	diag := g.Diag()
	precond := func(r []float64) []float64 {
		z := make([]float64, n)
		for i, d := range diag {
			if d != 0 {
				z[i] = r[i] / d
			} else {
				z[i] = r[i]
			}
		}
		return z
	}

	r := make([]float64, n)
	copy(r, b) // r0 = b - G*x0, x0 = 0
	z := precond(r)
	p := make([]float64, n)
	copy(p, z)

	bNorm := floats.Norm(b, 2)
	if bNorm == 0 {
		return x, 0, 0, nil
	}
	tol := absTol + relTol*bNorm
	rz := floats.Dot(r, z)

	maxIter := 10 * n
	if maxIter < 100 {
		maxIter = 100
	}

	var resid float64
	for iter := 0; iter < maxIter; iter++ {
		ap := g.MulVec(p)
		pap := floats.Dot(p, ap)
		if pap == 0 {
			return x, iter, floats.Norm(r, 2), ErrNonConvergence
		}
		alpha := rz / pap
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, ap)
		resid = floats.Norm(r, 2)
		if resid < tol {
			return x, iter + 1, resid, nil
		}
		z = precond(r)
		rzNew := floats.Dot(r, z)
		beta := rzNew / rz
		floats.ScaleTo(p, beta, p)
		floats.Add(p, z)
		rz = rzNew
	}
	return x, maxIter, resid, ErrNonConvergence
}

// solveDirect factors g with github.com/edp1096/sparse and solves for b.
func (s *SteadyState) solveDirect(g *sparsemat.CSR, b []float64) ([]float64, error) {
	n := g.NRows
	cfg := &sparse.Configuration{
		Real:           true,
		Expandable:     true,
		ModifiedNodal:  true,
		TiesMultiplier: 5,
		PrinterWidth:   140,
	}
	mat, err := sparse.Create(int64(n), cfg)
	if err != nil {
		return nil, fmt.Errorf("solver: direct backend create: %w", err)
	}
	defer mat.Destroy()

	for r := 0; r < n; r++ {
		for k := g.RowPtr[r]; k < g.RowPtr[r+1]; k++ {
			c := g.ColIdx[k]
			mat.GetElement(int64(r+1), int64(c+1)).Real += g.Val[k]
		}
	}

	rhs := make([]float64, n+1)
	for i, v := range b {
		rhs[i+1] = v
	}

	if err := mat.Factor(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	sol, err := mat.Solve(rhs)
	if err != nil {
		return nil, fmt.Errorf("solver: direct solve: %w", err)
	}

	x := make([]float64, n)
	copy(x, sol[1:n+1])
	return x, nil
}

