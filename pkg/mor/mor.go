// Package mor implements model-order reduction for the thermal MNA system:
// a block-Arnoldi Krylov basis, descriptor regularisation separating
// differential from algebraic reduced variables, and state lifting between
// full and reduced space. Grounded on spec.md §4.5 directly — the original
// ecad project's MOR stage is out of scope of the retrieved source, so this
// package's algorithm comes from the specification rather than a ported
// file; its dense linear algebra (the VᵀGV/VᵀCV/VᵀB projections, the
// algebraic-block solve, Cholesky factorisation of the regularised Ĉ') uses
// gonum.org/v1/gonum/mat, the only dense-algebra library present anywhere in
// the corpus, while the Krylov orthonormalisation uses gonum's floats
// vector helpers.
package mor

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ecad-oss/thermalnet/pkg/excitation"
	"github.com/ecad-oss/thermalnet/pkg/mna"
	"github.com/ecad-oss/thermalnet/pkg/solver"
	"github.com/ecad-oss/thermalnet/pkg/transient"
)

var _ transient.Model = (*Model)(nil)

// ErrSingularReduced is returned when the regularised Ĉ' is not SPD — the
// MOR abort condition of §4.5/§7 (no silent pseudo-inverse).
var ErrSingularReduced = errors.New("mor: regularised capacitance matrix is not positive-definite")

// Reduced holds a projected (Ĝ, Ĉ, B̂) system plus the machinery to lift
// input temperatures into reduced space and project reduced state back to
// probe outputs.
type Reduced struct {
	k int // reduced dimension before regularisation
	n int // original dimension

	v *mat.Dense // N x k orthonormal Krylov basis

	// Post-regularisation differential/algebraic partition of the reduced
	// k-dim space (mirrors transient.PreEliminate's structural split, but
	// performed on the dense reduced pencil instead of the sparse full one).
	diffIdx []int
	algIdx  []int

	coeffA [][]float64 // invCd' .* (-Gred'), kd x kd
	inputB [][]float64 // invCd' .* Bred', kd x S
	rL     *mat.Dense  // kd x N lifting operator: input2State(x) = rL*x

	excites []excitation.Excitation
}

// Reducer builds reduced-order models from an assembled MNA system.
type Reducer struct {
	// Order is the Krylov block-order multiplier; reduced dimension before
	// regularisation is k = S*Order.
	Order int
}

// NewReducer constructs a Reducer with the given Krylov order (clamped to
// >=1, matching config.Config's mor_order contract).
func NewReducer(order int) *Reducer {
	if order < 1 {
		order = 1
	}
	return &Reducer{Order: order}
}

// Reduce builds the Krylov basis and regularised reduced system for m.
func (rd *Reducer) Reduce(m *mna.MNA, excites []excitation.Excitation) (*Reduced, error) {
	n := m.N
	s := m.S
	k := s * rd.Order
	if k > n {
		k = n
	}

	v, err := buildKrylovBasis(m, k)
	if err != nil {
		return nil, fmt.Errorf("mor: krylov basis: %w", err)
	}
	kActual := v.RawMatrix().Cols

	g := m.G.Dense()
	c := m.C.Dense()
	b := m.B.Dense()

	gDense := mat.NewDense(n, n, nil)
	cDense := mat.NewDense(n, n, nil)
	bDense := mat.NewDense(n, s, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			gDense.Set(i, j, g[i][j])
			cDense.Set(i, j, c[i][j])
		}
		for j := 0; j < s; j++ {
			bDense.Set(i, j, b[i][j])
		}
	}

	var vtg, vtc, ghat, chat, bhat mat.Dense
	vtg.Mul(v.T(), gDense)
	ghat.Mul(&vtg, v)
	vtc.Mul(v.T(), cDense)
	chat.Mul(&vtc, v)
	bhat.Mul(v.T(), bDense)

	diffIdx, algIdx := partitionByDiagTolerance(&chat, kActual)
	if len(algIdx) == 0 {
		return regularizedFromFull(&ghat, &chat, &bhat, v, diffIdx, m, excites, n, kActual)
	}
	return regularizeReduced(&ghat, &chat, &bhat, v, diffIdx, algIdx, m, excites, n, kActual)
}

// partitionByDiagTolerance separates reduced indices whose Ĉ diagonal is
// numerically zero (algebraic, from capacitance-free subspace contributions)
// from the rest (differential).
func partitionByDiagTolerance(chat *mat.Dense, k int) (diff, alg []int) {
	const tol = 1e-14
	for i := 0; i < k; i++ {
		if chat.At(i, i) > tol {
			diff = append(diff, i)
		} else {
			alg = append(alg, i)
		}
	}
	return diff, alg
}

func regularizedFromFull(ghat, chat, bhat *mat.Dense, v *mat.Dense, diffIdx []int, m *mna.MNA, excites []excitation.Excitation, n, k int) (*Reduced, error) {
	return finishReduced(ghat, chat, bhat, v, allIdx(k), nil, m, excites, n, k)
}

// regularizeReduced eliminates the algebraic reduced block via the same
// Schur-complement structure as transient.PreEliminate, applied to the
// dense reduced pencil instead of the sparse full one.
func regularizeReduced(ghat, chat, bhat *mat.Dense, v *mat.Dense, diffIdx, algIdx []int, m *mna.MNA, excites []excitation.Excitation, n, k int) (*Reduced, error) {
	na, nd := len(algIdx), len(diffIdx)
	s := bhat.RawMatrix().Cols

	gaa := mat.NewDense(na, na, nil)
	for i, gi := range algIdx {
		for j, gj := range algIdx {
			gaa.Set(i, j, ghat.At(gi, gj))
		}
	}
	rhsCols := nd + s
	rhs := mat.NewDense(na, rhsCols, nil)
	for i, gi := range algIdx {
		for j, dj := range diffIdx {
			rhs.Set(i, j, ghat.At(gi, dj))
		}
		for j := 0; j < s; j++ {
			rhs.Set(i, nd+j, bhat.At(gi, j))
		}
	}
	var sol mat.Dense
	if err := sol.Solve(gaa, rhs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularReduced, err)
	}

	gred := mat.NewDense(nd, nd, nil)
	bred := mat.NewDense(nd, s, nil)
	for i, di := range diffIdx {
		for j, dj := range diffIdx {
			val := ghat.At(di, dj)
			for ai, gi := range algIdx {
				val -= ghat.At(di, gi) * sol.At(ai, j)
			}
			gred.Set(i, j, val)
		}
		for j := 0; j < s; j++ {
			val := bhat.At(di, j)
			for ai, gi := range algIdx {
				val -= ghat.At(di, gi) * sol.At(ai, nd+j)
			}
			bred.Set(i, j, val)
		}
	}

	cred := mat.NewDense(nd, nd, nil)
	for i, di := range diffIdx {
		for j, dj := range diffIdx {
			cred.Set(i, j, chat.At(di, dj))
		}
	}

	return finishReduced(gred, cred, bred, v, diffIdx, algIdx, m, excites, n, k)
}

// finishReduced factors the (possibly already-differential) reduced
// capacitance matrix via Cholesky, forms the invC'*(-G'), invC'*B'
// operators, and assembles the lifting operator rL = selector(diffIdx) * Vᵀ.
func finishReduced(gred, cred, bred *mat.Dense, v *mat.Dense, diffIdx, algIdx []int, m *mna.MNA, excites []excitation.Excitation, n, k int) (*Reduced, error) {
	nd, _ := gred.Dims()
	s := bred.RawMatrix().Cols

	var chol mat.Cholesky
	if ok := chol.Factorize(mat.NewSymDense(nd, flattenSym(cred, nd))); !ok {
		return nil, ErrSingularReduced
	}

	var negGred mat.Dense
	negGred.Scale(-1, gred)

	var coeffDense, inputDense mat.Dense
	if err := chol.SolveTo(&coeffDense, &negGred); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularReduced, err)
	}
	if err := chol.SolveTo(&inputDense, bred); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularReduced, err)
	}

	coeffA := make([][]float64, nd)
	inputB := make([][]float64, nd)
	for i := 0; i < nd; i++ {
		coeffA[i] = mat.Row(nil, i, &coeffDense)
		inputB[i] = mat.Row(nil, i, &inputDense)
	}

	// rL selects the differential rows of Vᵀ: input2State(xFull) projects
	// the full N-dim state into reduced differential space via Vᵀ then
	// the diffIdx row selection.
	vt := v.T()
	rL := mat.NewDense(nd, n, nil)
	for i, di := range diffIdx {
		for col := 0; col < n; col++ {
			rL.Set(i, col, vt.At(di, col))
		}
	}

	_ = s
	_ = m

	return &Reduced{
		k:       k,
		n:       n,
		v:       v,
		diffIdx: diffIdx,
		algIdx:  algIdx,
		coeffA:  coeffA,
		inputB:  inputB,
		rL:      rL,
		excites: excites,
	}, nil
}

func allIdx(k int) []int {
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func flattenSym(m *mat.Dense, n int) []float64 {
	out := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out[i*n+j] = m.At(i, j)
		}
	}
	return out
}

// Dim returns the reduced differential dimension.
func (r *Reduced) Dim() int { return len(r.diffIdx) }

// InputToState projects a full N-dim temperature vector into reduced
// differential-state space: reduced = rL * inTemp.
func (r *Reduced) InputToState(inTemp []float64) []float64 {
	x := mat.NewVecDense(r.n, inTemp)
	var out mat.VecDense
	out.MulVec(r.rL, x)
	return mat.Col(nil, 0, &out)
}

// StateToOutput lifts reduced state back to a projection of the original
// probe space: probes = rLᵀ * reduced.
func (r *Reduced) StateToOutput(reduced []float64) []float64 {
	x := mat.NewVecDense(len(reduced), reduced)
	var out mat.VecDense
	out.MulVec(r.rL.T(), x)
	return mat.Col(nil, 0, &out)
}

// Model adapts Reduced to transient.Model so the same RK45 stepper
// integrates the reduced ODE.
type Model struct {
	red  *Reduced
	hf0  []float64
}

// AsModel builds a transient.Model for this reduced system. hf0 gives the
// per-source base heat flow (in the original S-dimensional source space,
// already reduced through B̂ during Reduce), modulated by excites exactly
// as transient.FullOrderModel does.
func (r *Reduced) AsModel(hf0 []float64) *Model {
	return &Model{red: r, hf0: hf0}
}

// Dim implements transient.Model.
func (m *Model) Dim() int { return m.red.Dim() }

// Eval implements transient.Model.
func (m *Model) Eval(t float64, x, dxdt []float64) {
	nd := len(m.red.diffIdx)
	u := make([]float64, len(m.hf0))
	for s := range u {
		e := 1.0
		if s < len(m.red.excites) && m.red.excites[s] != nil {
			e = m.red.excites[s].Value(t)
		}
		u[s] = m.hf0[s] * e
	}
	for i := 0; i < nd; i++ {
		var sum float64
		row := m.red.coeffA[i]
		for j := 0; j < nd; j++ {
			sum += row[j] * x[j]
		}
		for s2, val := range m.red.inputB[i] {
			sum += val * u[s2]
		}
		dxdt[i] = sum
	}
}

// buildKrylovBasis constructs a block-Arnoldi Krylov basis of dimension k
// for the pencil (G,C,B), PRIMA-style: R0 = G^-1*B, then repeatedly
// R_{j} = G^-1*C*V_{j-1}, each block orthonormalised against all previous
// columns (modified Gram-Schmidt) before being appended. G^-1 applications
// reuse solver.SolveCG rather than a fresh factorisation per column.
func buildKrylovBasis(m *mna.MNA, k int) (*mat.Dense, error) {
	n, s := m.N, m.S
	if s == 0 {
		return nil, fmt.Errorf("network has no source nodes to build a Krylov basis from")
	}

	cols := make([][]float64, 0, k)

	block := make([][]float64, s)
	bDense := m.B.Dense()
	for col := 0; col < s; col++ {
		rhs := make([]float64, n)
		for i := 0; i < n; i++ {
			rhs[i] = bDense[i][col]
		}
		x, _, _, err := solver.SolveCG(m.G, rhs, 1e-12, 1e-10)
		if err != nil && !errors.Is(err, solver.ErrNonConvergence) {
			return nil, err
		}
		block[col] = x
	}

	for len(cols) < k {
		for _, col := range block {
			if len(cols) >= k {
				break
			}
			ortho := orthogonalize(col, cols)
			if norm(ortho) < 1e-13 {
				continue // deflate: this direction is already spanned
			}
			normalize(ortho)
			cols = append(cols, ortho)
		}
		if len(cols) >= k {
			break
		}
		// next block: C * V_{j-1} then G^-1 applied column-wise
		next := make([][]float64, s)
		start := len(cols) - s
		if start < 0 {
			start = 0
		}
		for i, col := range cols[start:] {
			if i >= s {
				break
			}
			cv := m.C.MulVec(col)
			x, _, _, err := solver.SolveCG(m.G, cv, 1e-12, 1e-10)
			if err != nil && !errors.Is(err, solver.ErrNonConvergence) {
				return nil, err
			}
			next[i] = x
		}
		if allZero(next) {
			break // Krylov sequence exhausted before reaching k
		}
		block = next
	}

	out := mat.NewDense(n, len(cols), nil)
	for j, col := range cols {
		for i := 0; i < n; i++ {
			out.Set(i, j, col[i])
		}
	}
	return out, nil
}

func orthogonalize(col []float64, basis [][]float64) []float64 {
	out := make([]float64, len(col))
	copy(out, col)
	for _, b := range basis {
		d := floats.Dot(out, b)
		floats.AddScaled(out, -d, b)
	}
	return out
}

func normalize(v []float64) {
	nrm := norm(v)
	if nrm == 0 {
		return
	}
	floats.Scale(1/nrm, v)
}

func norm(a []float64) float64 {
	return floats.Norm(a, 2)
}

func allZero(cols [][]float64) bool {
	for _, c := range cols {
		if norm(c) > 1e-13 {
			return false
		}
	}
	return true
}
