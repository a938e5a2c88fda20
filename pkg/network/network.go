// Package network implements the thermal resistor-capacitor network data
// model: undirected resistive edges with parallel-conductance merging, plus
// per-node capacitance, injected heat flow and heat-transfer-coefficient
// (HTC) annotations.
//
// It is grounded directly on original_source's
// thermal/model/ThermalNetwork.hpp: the same field shape (t, c, hf, htc,
// neighbor index/resistance slices), the same SetR parallel-merge contract,
// and the same Source() predicate (hf != 0 || htc != 0).
package network

import (
	"fmt"

	"github.com/ecad-oss/thermalnet/internal/consts"
)

// UnknownT is the sentinel temperature of an unsolved node.
const UnknownT = consts.UnknownT

// Node is one vertex of a ThermalNetwork.
type Node struct {
	T     float64 // temperature (K), UnknownT until solved
	C     float64 // thermal capacitance (J/K), C>=0
	HF    float64 // injected heat flow (W), may be signed
	HTC   float64 // coupling conductance to reference ambient (W/K), HTC>=0
	Fixed bool    // true once a Temperature boundary condition has pinned T

	// neighbors, stored twice (once per endpoint) so that MNA assembly and
	// extraction can walk a node's neighborhood in O(deg) without a
	// separate edge index.
	ns []int
	rs []float64
}

// Neighbors returns the node's (peerIndex, resistance) pairs in insertion
// order. The returned slices are read-only views.
func (n *Node) Neighbors() ([]int, []float64) {
	return n.ns, n.rs
}

func (n *Node) degree() int { return len(n.ns) }

// IsSource reports whether this node carries injected heat flow or a finite
// coupling to ambient — the predicate that defines B's column ordering.
func (n *Node) IsSource() bool {
	return n.HF != 0 || n.HTC != 0
}

// IsFixed reports whether this node is a Dirichlet (pinned-temperature)
// node, excluded from the assembled conductance unknowns per spec.md §4.8.
func (n *Node) IsFixed() bool {
	return n.Fixed
}

// ThermalNetwork is an adjacency-list undirected resistor graph with
// per-node capacitance, heat flow and HTC. Node indices are stable for the
// network's lifetime; AppendNode is the only way to grow it.
//
// Adjacency lists (rather than a triplet/edge-list store) are chosen
// because edges are mutated frequently during extraction (parallel-merge on
// repeated SetR) and because MNA assembly walks each node's neighbors
// exactly once; see ThermalNetwork.hpp for the original rationale.
type ThermalNetwork struct {
	nodes []Node
}

// New constructs a network with a fixed initial node count. All nodes start
// with T = UnknownT, C = 0, HF = 0, HTC = 0 and no edges.
func New(nodeCount int) *ThermalNetwork {
	nodes := make([]Node, nodeCount)
	for i := range nodes {
		nodes[i].T = UnknownT
	}
	return &ThermalNetwork{nodes: nodes}
}

// Size returns the current node count.
func (t *ThermalNetwork) Size() int { return len(t.nodes) }

// AppendNode adds a new node (e.g. a virtual power-block aggregator) and
// returns its stable index. O(1) amortised.
func (t *ThermalNetwork) AppendNode(temp float64) int {
	idx := len(t.nodes)
	t.nodes = append(t.nodes, Node{T: temp})
	return idx
}

// Node returns a pointer to node i for read access. Out-of-range access is
// a programming error and panics, matching the original's at()-style
// bounds-checked access on debug builds and operator[] on release ones —
// here there is only one access path, so it always checks.
func (t *ThermalNetwork) Node(i int) *Node {
	return &t.nodes[i]
}

// Nodes returns the full node slice. Callers must not resize it directly;
// use AppendNode.
func (t *ThermalNetwork) Nodes() []Node { return t.nodes }

// SetT sets node i's temperature.
func (t *ThermalNetwork) SetT(i int, temp float64) { t.nodes[i].T = temp }

// SetFixed marks node i as a Dirichlet (pinned-temperature) node. Assembly
// excludes fixed nodes from the solved unknowns, substituting their
// temperature into neighboring free nodes' right-hand sides instead.
func (t *ThermalNetwork) SetFixed(i int, fixed bool) { t.nodes[i].Fixed = fixed }

// SetC sets node i's thermal capacitance. C=0 marks a capacitance-free
// (purely resistive) node.
func (t *ThermalNetwork) SetC(i int, c float64) { t.nodes[i].C = c }

// SetHF sets node i's injected heat flow.
func (t *ThermalNetwork) SetHF(i int, hf float64) { t.nodes[i].HF = hf }

// AddHF accumulates onto node i's injected heat flow (boundary conditions
// on shared faces contribute additively).
func (t *ThermalNetwork) AddHF(i int, hf float64) { t.nodes[i].HF += hf }

// SetHTC sets node i's coupling conductance to the reference ambient.
func (t *ThermalNetwork) SetHTC(i int, htc float64) { t.nodes[i].HTC = htc }

// AddHTC accumulates onto node i's HTC.
func (t *ThermalNetwork) AddHTC(i int, htc float64) { t.nodes[i].HTC += htc }

// SetR inserts or updates the resistive edge (a,b). If an edge already
// exists between a and b, the two resistances are combined in parallel:
// r_new = r_old*r/(r_old+r), and both endpoints' mirrored records are
// updated. Otherwise a new mirrored pair of adjacency records is appended.
// Self-loops are rejected. r<=0 is accepted here (assembly silently ignores
// non-positive resistances per the documented contract) but a<b is not
// required — a == b is the only rejected case.
func (t *ThermalNetwork) SetR(a, b int, r float64) {
	if a == b {
		panic(fmt.Sprintf("network: self-loop rejected (node %d)", a))
	}
	na, nb := &t.nodes[a], &t.nodes[b]
	for i, peer := range na.ns {
		if peer == b {
			rOld := na.rs[i]
			rNew := rOld * r / (rOld + r)
			na.rs[i] = rNew
			for j, p2 := range nb.ns {
				if p2 == a {
					nb.rs[j] = rNew
					break
				}
			}
			return
		}
	}
	na.ns = append(na.ns, b)
	na.rs = append(na.rs, r)
	nb.ns = append(nb.ns, a)
	nb.rs = append(nb.rs, r)
}

// SourceCount returns the number of nodes with hf != 0 || htc != 0 — the
// column count of the MNA input-projection matrix B.
func (t *ThermalNetwork) SourceCount() int {
	n := 0
	for i := range t.nodes {
		if t.nodes[i].IsSource() {
			n++
		}
	}
	return n
}

// TotalHF sums injected heat flow across all nodes.
func (t *ThermalNetwork) TotalHF() float64 {
	var total float64
	for i := range t.nodes {
		total += t.nodes[i].HF
	}
	return total
}
