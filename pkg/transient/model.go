package transient

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/ecad-oss/thermalnet/pkg/excitation"
	"github.com/ecad-oss/thermalnet/pkg/mna"
	"github.com/ecad-oss/thermalnet/pkg/network"
	"github.com/ecad-oss/thermalnet/pkg/sparsemat"
)

// FullOrderModel evaluates dx/dt = invC*(-G*x) + invC*B*(e(t) ⊙ hf0) +
// invC*htc*refT directly on the assembled N-dimensional system, splitting
// the evaluation into per-block goroutines the way original_source's
// ThermalNetworkTransientSolver splits UpdateDxDt across its thread pool.
// Only valid when every node has c>0; capacitance-free networks must go
// through PreEliminate first.
type FullOrderModel struct {
	negG    *sparsemat.CSR
	invCB   *sparsemat.CSR
	invC    []float64
	htcRhs  []float64 // invC .* htc .* refT, per original N-dim index
	hf0     []float64 // per-source base heat flow
	excites []excitation.Excitation
	threads int
	n       int
}

// NewFullOrderModel builds the full-order RHS evaluator from an assembled
// MNA system. excites may be shorter than the source count or contain nil
// entries; a nil/missing entry is treated as a constant excitation of 1
// (i.e. the source's hf0 is applied unmodulated).
func NewFullOrderModel(m *mna.MNA, net *network.ThermalNetwork, refT float64, excites []excitation.Excitation, threads int) *FullOrderModel {
	invC, negG := m.InvCNegG()
	hf0 := make([]float64, m.S)
	for s, idx := range m.SourceNodes() {
		hf0[s] = net.Node(idx).HF
	}
	if threads < 1 {
		threads = 1
	}
	invCDiag := invC.Diag()
	htcRhs := m.HTCContribRhs(net, refT)
	for i := range htcRhs {
		htcRhs[i] *= invCDiag[i]
	}
	return &FullOrderModel{
		negG:    negG,
		invCB:   m.InvCB(),
		invC:    invCDiag,
		htcRhs:  htcRhs,
		hf0:     hf0,
		excites: excites,
		threads: threads,
		n:       m.N,
	}
}

// Dim returns the state dimension N.
func (f *FullOrderModel) Dim() int { return f.n }

// Eval computes dxdt in place, splitting rows across f.threads goroutines.
func (f *FullOrderModel) Eval(t float64, x, dxdt []float64) {
	u := make([]float64, len(f.hf0))
	for s := range u {
		e := 1.0
		if s < len(f.excites) && f.excites[s] != nil {
			e = f.excites[s].Value(t)
		}
		u[s] = f.hf0[s] * e
	}

	if f.threads == 1 {
		f.updateRange(x, dxdt, u, 0, f.n)
		return
	}

	blockSize := f.n / f.threads
	var wg sync.WaitGroup
	begin := 0
	for i := 0; i < f.threads && blockSize > 0; i++ {
		end := begin + blockSize
		if i == f.threads-1 {
			end = f.n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			f.updateRange(x, dxdt, u, start, end)
		}(begin, end)
		begin = end
	}
	if begin < f.n {
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			f.updateRange(x, dxdt, u, start, end)
		}(begin, f.n)
	}
	wg.Wait()
}

func (f *FullOrderModel) updateRange(x, dxdt, u []float64, start, end int) {
	negGx := make([]float64, f.n)
	invCBu := make([]float64, f.n)
	f.negG.MulVecRange(negGx, x, start, end)
	f.invCB.MulVecRange(invCBu, u, start, end)
	for i := start; i < end; i++ {
		dxdt[i] = f.invC[i]*negGx[i] + invCBu[i] + f.htcRhs[i]
	}
}

// ReducedModel is the differential-only system produced by PreEliminate:
// the capacitance-free (algebraic) rows have been solved in closed form
// and substituted out via a Schur complement, per spec.md §9.
type ReducedModel struct {
	diffIdx []int
	algIdx  []int

	// Reduced dense differential operators, already invC-scaled.
	coeffA [][]float64 // invCd .* (-Gred), len(diffIdx) x len(diffIdx)
	inputB [][]float64 // invCd .* Bred, len(diffIdx) x S
	constC []float64   // invCd .* constRed, len(diffIdx)

	// Algebraic-state reconstruction: xa(t) = gaaInvBa*u(t) + gaaInvHtcA - gaaInvGad*xd(t).
	gaaInvGad [][]float64 // len(algIdx) x len(diffIdx)
	gaaInvBa  [][]float64 // len(algIdx) x S
	gaaInvHtcA []float64  // len(algIdx)

	hf0     []float64
	excites []excitation.Excitation
	n       int // original full dimension
}

// Dim returns the reduced (differential-only) dimension.
func (r *ReducedModel) Dim() int { return len(r.diffIdx) }

// Eval computes the reduced dxd/dt.
func (r *ReducedModel) Eval(t float64, xd, dxdt []float64) {
	u := r.excitationVec(t)
	k := len(r.diffIdx)
	for i := 0; i < k; i++ {
		var s float64
		row := r.coeffA[i]
		for j := 0; j < k; j++ {
			s += row[j] * xd[j]
		}
		for s2, val := range r.inputB[i] {
			s += val * u[s2]
		}
		dxdt[i] = s + r.constC[i]
	}
}

func (r *ReducedModel) excitationVec(t float64) []float64 {
	u := make([]float64, len(r.hf0))
	for s := range u {
		e := 1.0
		if s < len(r.excites) && r.excites[s] != nil {
			e = r.excites[s].Value(t)
		}
		u[s] = r.hf0[s] * e
	}
	return u
}

// Lift reconstructs the full N-dimensional state at time t from the
// reduced differential state xd, filling in the algebraic nodes via the
// closed-form substitution computed during pre-elimination.
func (r *ReducedModel) Lift(xd []float64, t float64) []float64 {
	full := make([]float64, r.n)
	for i, idx := range r.diffIdx {
		full[idx] = xd[i]
	}
	u := r.excitationVec(t)
	for ai, idx := range r.algIdx {
		v := r.gaaInvHtcA[ai]
		for s, val := range r.gaaInvBa[ai] {
			v += val * u[s]
		}
		for j, val := range r.gaaInvGad[ai] {
			v -= val * xd[j]
		}
		full[idx] = v
	}
	return full
}

// PreEliminate partitions net's nodes into differential (c>0) and
// algebraic (c=0) sets and eliminates the algebraic block from G,B,htc via
// a Schur complement, producing a ReducedModel whose dimension equals the
// differential node count. Returns an error if the algebraic block (Gaa)
// is singular — an algebraic node with no resistive or HTC coupling at
// all, which has no well-defined steady value.
func PreEliminate(m *mna.MNA, net *network.ThermalNetwork, refT float64, excites []excitation.Excitation) (*ReducedModel, error) {
	nodes := net.Nodes()
	var diffIdx, algIdx []int
	for i := range nodes {
		if nodes[i].C > 0 {
			diffIdx = append(diffIdx, i)
		} else {
			algIdx = append(algIdx, i)
		}
	}

	g := m.G.Dense()
	b := m.B.Dense()
	srcNodes := m.SourceNodes()
	s := len(srcNodes)

	na, nd := len(algIdx), len(diffIdx)
	if na == 0 {
		return nil, fmt.Errorf("transient: PreEliminate called on a network with no capacitance-free nodes")
	}

	gaa := mat.NewDense(na, na, nil)
	for i, gi := range algIdx {
		for j, gj := range algIdx {
			gaa.Set(i, j, g[gi][gj])
		}
	}

	rhsCols := nd + s + 1
	rhs := mat.NewDense(na, rhsCols, nil)
	for i, gi := range algIdx {
		for j, dj := range diffIdx {
			rhs.Set(i, j, g[gi][dj])
		}
		for j := 0; j < s; j++ {
			rhs.Set(i, nd+j, b[gi][j])
		}
		rhs.Set(i, nd+s, nodes[gi].HTC*refT)
	}

	var sol mat.Dense
	if err := sol.Solve(gaa, rhs); err != nil {
		return nil, fmt.Errorf("transient: algebraic block singular during pre-elimination: %w", err)
	}

	gaaInvGad := denseRows(&sol, na, 0, nd)
	gaaInvBa := denseRows(&sol, na, nd, nd+s)
	gaaInvHtcA := make([]float64, na)
	for i := 0; i < na; i++ {
		gaaInvHtcA[i] = sol.At(i, nd+s)
	}

	// Gred = Gdd - Gda*gaaInvGad ; Bred = Bd - Gda*gaaInvBa
	// constRed = htcD*refT - Gda*gaaInvHtcA
	coeffA := make([][]float64, nd)
	inputB := make([][]float64, nd)
	constC := make([]float64, nd)
	invCd := make([]float64, nd)
	for i, di := range diffIdx {
		invCd[i] = 1 / nodes[di].C
	}

	for i, di := range diffIdx {
		gredRow := make([]float64, nd)
		for j, dj := range diffIdx {
			gredRow[j] = g[di][dj]
		}
		bredRow := make([]float64, s)
		copy(bredRow, b[di])
		constRow := nodes[di].HTC * refT

		for ai, gi := range algIdx {
			gda := g[di][gi]
			if gda == 0 {
				continue
			}
			for j := 0; j < nd; j++ {
				gredRow[j] -= gda * gaaInvGad[ai][j]
			}
			for j := 0; j < s; j++ {
				bredRow[j] -= gda * gaaInvBa[ai][j]
			}
			constRow -= gda * gaaInvHtcA[ai]
		}

		coeffRow := make([]float64, nd)
		for j := range gredRow {
			coeffRow[j] = -invCd[i] * gredRow[j]
		}
		coeffA[i] = coeffRow

		inRow := make([]float64, s)
		for j := range bredRow {
			inRow[j] = invCd[i] * bredRow[j]
		}
		inputB[i] = inRow

		constC[i] = invCd[i] * constRow
	}

	hf0 := make([]float64, s)
	for si, idx := range srcNodes {
		hf0[si] = nodes[idx].HF
	}

	return &ReducedModel{
		diffIdx:    diffIdx,
		algIdx:     algIdx,
		coeffA:     coeffA,
		inputB:     inputB,
		constC:     constC,
		gaaInvGad:  gaaInvGad,
		gaaInvBa:   gaaInvBa,
		gaaInvHtcA: gaaInvHtcA,
		hf0:        hf0,
		excites:    excites,
		n:          net.Size(),
	}, nil
}

func denseRows(m *mat.Dense, rows, colStart, colEnd int) [][]float64 {
	out := make([][]float64, rows)
	width := colEnd - colStart
	for i := 0; i < rows; i++ {
		row := make([]float64, width)
		for j := 0; j < width; j++ {
			row[j] = m.At(i, colStart+j)
		}
		out[i] = row
	}
	return out
}
