package mna

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecad-oss/thermalnet/pkg/network"
)

func twoNodeHTCNetwork() *network.ThermalNetwork {
	// node 0: heater, hf=10W; node 1: ambient-coupled, htc=2 W/K.
	// r(0,1) = 5 ohm(K/W).
	n := network.New(2)
	n.SetR(0, 1, 5)
	n.SetHF(0, 10)
	n.SetHTC(1, 2)
	n.SetC(0, 1)
	n.SetC(1, 1)
	return n
}

func TestAssembleGStamping(t *testing.T) {
	n := twoNodeHTCNetwork()
	m, err := NewBuilder(n).Assemble(nil)
	require.NoError(t, err)

	g := m.G.Dense()
	assert.InDelta(t, 0.2, g[0][0], 1e-12)
	assert.InDelta(t, -0.2, g[0][1], 1e-12)
	assert.InDelta(t, -0.2, g[1][0], 1e-12)
	assert.InDelta(t, 2.2, g[1][1], 1e-12) // 0.2 (edge) + 2 (htc)
}

func TestAssembleSourceOrderingAndB(t *testing.T) {
	n := twoNodeHTCNetwork()
	m, err := NewBuilder(n).Assemble(nil)
	require.NoError(t, err)

	require.Equal(t, 2, m.S)
	assert.Equal(t, []int{0, 1}, m.SourceNodes())

	b := m.B.Dense()
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, b)
}

func TestRhsU(t *testing.T) {
	n := twoNodeHTCNetwork()
	m, err := NewBuilder(n).Assemble(nil)
	require.NoError(t, err)

	u := m.RhsU(n, 300)
	require.Len(t, u, 2)
	assert.InDelta(t, 10, u[0], 1e-12)  // hf only
	assert.InDelta(t, 600, u[1], 1e-12) // htc*refT
}

func TestAssembleCDiagonal(t *testing.T) {
	n := twoNodeHTCNetwork()
	m, err := NewBuilder(n).Assemble(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, m.C.Diag())
}

func TestAssembleProbeOutOfRange(t *testing.T) {
	n := twoNodeHTCNetwork()
	_, err := NewBuilder(n).Assemble([]int{5})
	assert.Error(t, err)
}

func TestAssembleIdentityProbeWhenUnspecified(t *testing.T) {
	n := twoNodeHTCNetwork()
	m, err := NewBuilder(n).Assemble(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, m.P)
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, m.L.Dense())
}

func TestInvCNegG(t *testing.T) {
	n := twoNodeHTCNetwork()
	m, err := NewBuilder(n).Assemble(nil)
	require.NoError(t, err)

	invC, negG := m.InvCNegG()
	assert.Equal(t, []float64{1, 1}, invC.Diag())

	g := m.G.Dense()
	ng := negG.Dense()
	for i := range g {
		for j := range g[i] {
			assert.InDelta(t, -g[i][j], ng[i][j], 1e-12)
		}
	}
}

func TestInvCBMatchesManualDivision(t *testing.T) {
	n := twoNodeHTCNetwork()
	n.SetC(1, 4) // make invC non-trivial
	m, err := NewBuilder(n).Assemble(nil)
	require.NoError(t, err)

	invCB := m.InvCB().Dense()
	assert.InDelta(t, 1.0, invCB[0][0], 1e-12)  // B[0][0]=1, C[0]=1
	assert.InDelta(t, 0.25, invCB[1][1], 1e-12) // B[1][1]=1, C[1]=4
}

func TestHTCContribRhs(t *testing.T) {
	n := twoNodeHTCNetwork()
	m, err := NewBuilder(n).Assemble(nil)
	require.NoError(t, err)

	v := m.HTCContribRhs(n, 300)
	assert.InDelta(t, 0, v[0], 1e-12)
	assert.InDelta(t, 600, v[1], 1e-12)
}
