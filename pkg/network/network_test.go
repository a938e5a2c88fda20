package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetRSymmetry(t *testing.T) {
	n := New(2)
	n.SetR(0, 1, 10)

	ns, rs := n.Node(0).Neighbors()
	require.Len(t, ns, 1)
	assert.Equal(t, 1, ns[0])
	assert.Equal(t, 10.0, rs[0])

	ns, rs = n.Node(1).Neighbors()
	require.Len(t, ns, 1)
	assert.Equal(t, 0, ns[0])
	assert.Equal(t, 10.0, rs[0])
}

func TestSetRParallelMerge(t *testing.T) {
	n := New(2)
	n.SetR(0, 1, 2)
	n.SetR(0, 1, 3)

	_, rs := n.Node(0).Neighbors()
	require.Len(t, rs, 1)
	assert.InDelta(t, 1.2, rs[0], 1e-12)

	_, rs = n.Node(1).Neighbors()
	require.Len(t, rs, 1)
	assert.InDelta(t, 1.2, rs[0], 1e-12)
}

func TestSetRRepeatedMergeConvergesToHarmonicSum(t *testing.T) {
	n := New(2)
	rValues := []float64{5, 7, 11}
	var invSum float64
	for _, r := range rValues {
		n.SetR(0, 1, r)
		invSum += 1 / r
	}
	_, rs := n.Node(0).Neighbors()
	require.Len(t, rs, 1)
	assert.InDelta(t, 1/invSum, rs[0], 1e-9)
}

func TestSetRSelfLoopPanics(t *testing.T) {
	n := New(1)
	assert.Panics(t, func() { n.SetR(0, 0, 5) })
}

func TestSourceCount(t *testing.T) {
	n := New(3)
	n.SetHF(0, 1.0)
	n.SetHTC(1, 0.5)
	assert.Equal(t, 2, n.SourceCount())
}

func TestAppendNodeStableIndex(t *testing.T) {
	n := New(2)
	idx := n.AppendNode(300)
	assert.Equal(t, 2, idx)
	assert.Equal(t, 3, n.Size())
	assert.Equal(t, 300.0, n.Node(idx).T)
}

func TestTotalHF(t *testing.T) {
	n := New(3)
	n.SetHF(0, 1.5)
	n.SetHF(1, -0.5)
	assert.InDelta(t, 1.0, n.TotalHF(), 1e-12)
}
