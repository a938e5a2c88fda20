// Package mna assembles the modified-nodal-analysis matrices G, C, B, L
// from a network.ThermalNetwork, plus derived operators used by the
// solvers. It is a near-direct port of original_source's
// thermal/model/ThermalNetwork.hpp makeMNA/makeRhs/makeInvCandNegG/
// makeSourceProjMatrix functions, restructured as a Builder over
// sparsemat.CSR instead of Eigen::SparseMatrix.
package mna

import (
	"fmt"

	"github.com/ecad-oss/thermalnet/pkg/network"
	"github.com/ecad-oss/thermalnet/pkg/sparsemat"
)

// MNA holds the assembled system: G*x + C*dx/dt = B*u, y = L*x.
type MNA struct {
	G *sparsemat.CSR // N x N, SPD
	C *sparsemat.CSR // N x N, diagonal, PSD
	B *sparsemat.CSR // N x S
	L *sparsemat.CSR // N x P (identity when no probes given)

	N int // node count
	S int // source count
	P int // probe count (== N when L is identity)

	// srcNodes[s] is the network index of the s-th source node, in
	// ascending-index order — the basis that defines B's columns.
	srcNodes []int

	// fixedNodes holds the network indices of every Dirichlet (pinned-
	// temperature) node, ascending. Their rows in G are the trivial
	// identity x_i = T_i; DirichletRhs supplies the substituted value.
	fixedNodes []int
}

// Builder assembles MNA systems from a ThermalNetwork.
type Builder struct {
	net *network.ThermalNetwork
}

// NewBuilder wraps net for assembly.
func NewBuilder(net *network.ThermalNetwork) *Builder {
	return &Builder{net: net}
}

// Assemble performs the full MNA assembly described in spec.md §4.2, with
// the §4.3/§4.8 Dirichlet substitution folded in:
//  1. for every node i, for every neighbor (j,r) with j>i and r>0, stamp
//     the off-diagonal conductance and accumulate both diagonals — unless
//     either endpoint is Fixed, in which case the coupling is moved out of
//     G entirely: a free node's diagonal still accumulates 1/r (the edge
//     still loads that node thermally), but no off-diagonal entry is
//     stamped, since the fixed endpoint's temperature is a known constant,
//     not a solved unknown. DirichletRhs supplies the resulting g*T term.
//  2. add htc_i to the diagonal (free nodes only);
//  3. set C's diagonal to c_i (free nodes only);
//  4. walk nodes ascending, appending one B column per free source node;
//  5. build L as identity, or as a probe-selection matrix when probes is
//     non-empty (probe indices must all be in [0,N), else Assemble returns
//     an error — an InvalidInput per §7).
// Every Fixed node still gets a row in G: a trivial identity (G[i][i]=1,
// no off-diagonal), so G stays N x N and every downstream consumer indexed
// by the original network index keeps working — the row just carries no
// coupling to the rest of the system, matching "excluded from the solved
// subsystem via substitution" in spirit without changing the matrix rank.
func (b *Builder) Assemble(probes []int) (*MNA, error) {
	n := b.net.Size()
	nodes := b.net.Nodes()

	tG := &sparsemat.Triplets{}
	tC := &sparsemat.Triplets{}
	tB := &sparsemat.Triplets{}

	var srcNodes []int
	var fixedNodes []int
	s := 0
	for i := 0; i < n; i++ {
		node := &nodes[i]
		if node.Fixed {
			tG.Add(i, i, 1)
			fixedNodes = append(fixedNodes, i)
		}

		ns, rs := node.Neighbors()
		for k, j := range ns {
			if j <= i {
				continue // canonical i<j iteration avoids double counting
			}
			r := rs[k]
			if r <= 0 {
				continue // non-positive resistance ignored by assembly contract
			}
			g := 1 / r
			switch {
			case node.Fixed && nodes[j].Fixed:
				// both endpoints known; no free unknown is coupled.
			case node.Fixed:
				tG.Add(j, j, g)
			case nodes[j].Fixed:
				tG.Add(i, i, g)
			default:
				tG.Add(i, j, -g)
				tG.Add(j, i, -g)
				tG.Add(i, i, g)
				tG.Add(j, j, g)
			}
		}

		if node.Fixed {
			continue
		}
		if node.HTC != 0 {
			tG.Add(i, i, node.HTC)
		}
		if node.C > 0 {
			tC.Add(i, i, node.C)
		}
		if node.IsSource() {
			tB.Add(i, s, 1)
			srcNodes = append(srcNodes, i)
			s++
		}
	}

	m := &MNA{
		G:          sparsemat.FromTriplets(n, n, tG),
		C:          sparsemat.FromTriplets(n, n, tC),
		B:          sparsemat.FromTriplets(n, s, tB),
		N:          n,
		S:          s,
		srcNodes:   srcNodes,
		fixedNodes: fixedNodes,
	}

	if len(probes) == 0 {
		m.L = sparsemat.NewIdentity(n)
		m.P = n
	} else {
		tL := &sparsemat.Triplets{}
		for j, p := range probes {
			if p < 0 || p >= n {
				return nil, fmt.Errorf("mna: probe index %d out of range [0,%d)", p, n)
			}
			tL.Add(p, j, 1)
		}
		m.L = sparsemat.FromTriplets(n, len(probes), tL)
		m.P = len(probes)
	}
	return m, nil
}

// RhsU returns the length-S source excitation vector: rhsU[s] = hf_src(s) +
// htc_src(s)*refT.
func (m *MNA) RhsU(net *network.ThermalNetwork, refT float64) []float64 {
	u := make([]float64, m.S)
	for s, idx := range m.srcNodes {
		node := net.Node(idx)
		u[s] = node.HF + node.HTC*refT
	}
	return u
}

// HTCContribRhs returns the length-N vector htc_i*refT, used by the
// full-state transient solver when sources are modulated separately from
// the constant ambient-coupling term.
func (m *MNA) HTCContribRhs(net *network.ThermalNetwork, refT float64) []float64 {
	n := net.Size()
	v := make([]float64, n)
	for i := 0; i < n; i++ {
		v[i] = net.Node(i).HTC * refT
	}
	return v
}

// SourceProjection returns B, the same matrix assembly produced — exposed
// under its spec name for callers that only need the projection.
func (m *MNA) SourceProjection() *sparsemat.CSR { return m.B }

// SourceNodes returns the network indices of the source nodes, in the order
// that defines B's columns (ascending index).
func (m *MNA) SourceNodes() []int { return m.srcNodes }

// FixedNodes returns the network indices of every Dirichlet (pinned-
// temperature) node, ascending.
func (m *MNA) FixedNodes() []int { return m.fixedNodes }

// DirichletRhs returns the length-N vector that substitutes every Dirichlet
// node's known temperature into the right-hand side: each fixed node i
// contributes its own pinned value (since G's row i is the trivial
// identity x_i = T_i), and each free neighbor j of a fixed node i
// contributes g_ij*T_i, the coupling term dropped from G during assembly.
// Add this to B*u to form the full solved right-hand side.
func (m *MNA) DirichletRhs(net *network.ThermalNetwork) []float64 {
	v := make([]float64, m.N)
	nodes := net.Nodes()
	for _, i := range m.fixedNodes {
		v[i] = nodes[i].T
	}
	for i := 0; i < m.N; i++ {
		if nodes[i].Fixed {
			continue
		}
		ns, rs := nodes[i].Neighbors()
		for k, j := range ns {
			if !nodes[j].Fixed {
				continue
			}
			r := rs[k]
			if r <= 0 {
				continue
			}
			v[i] += nodes[j].T / r
		}
	}
	return v
}

// InvCNegG returns the pair (invC, -G) used directly by the full-order
// transient ODE dx/dt = invC*(-G*x) + ..., ported from makeInvCandNegG.
// Nodes with C==0 contribute a zero row/col here; the transient solver is
// responsible for capacitance-free pre-elimination (§9) before using this.
func (m *MNA) InvCNegG() (invC, negG *sparsemat.CSR) {
	n := m.N
	diag := m.C.Diag()
	invDiag := make([]float64, n)
	for i, c := range diag {
		if c > 0 {
			invDiag[i] = 1 / c
		}
	}
	invC = sparsemat.NewDiagonal(invDiag)

	tNegG := &sparsemat.Triplets{}
	for r := 0; r < m.G.NRows; r++ {
		for k := m.G.RowPtr[r]; k < m.G.RowPtr[r+1]; k++ {
			tNegG.Add(r, m.G.ColIdx[k], -m.G.Val[k])
		}
	}
	negG = sparsemat.FromTriplets(n, n, tNegG)
	return invC, negG
}

// InvCB returns invC * B, precomputed for solvers that want the input
// operator fused with the capacitance inverse.
func (m *MNA) InvCB() *sparsemat.CSR {
	diag := m.C.Diag()
	t := &sparsemat.Triplets{}
	for r := 0; r < m.B.NRows; r++ {
		if diag[r] <= 0 {
			continue
		}
		invC := 1 / diag[r]
		for k := m.B.RowPtr[r]; k < m.B.RowPtr[r+1]; k++ {
			t.Add(r, m.B.ColIdx[k], m.B.Val[k]*invC)
		}
	}
	return sparsemat.FromTriplets(m.B.NRows, m.B.NCols, t)
}
