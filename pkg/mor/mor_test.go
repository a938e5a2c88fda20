package mor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecad-oss/thermalnet/pkg/mna"
	"github.com/ecad-oss/thermalnet/pkg/network"
)

func chainNetwork(n int) *network.ThermalNetwork {
	net := network.New(n)
	for i := 0; i < n-1; i++ {
		net.SetR(i, i+1, 1)
		net.SetC(i, 1)
	}
	net.SetC(n-1, 1)
	net.SetHF(0, 1)
	net.SetHTC(n-1, 1)
	return net
}

func TestReduceProducesSmallerDimension(t *testing.T) {
	net := chainNetwork(20)
	m, err := mna.NewBuilder(net).Assemble(nil)
	require.NoError(t, err)

	red, err := NewReducer(2).Reduce(m, nil)
	require.NoError(t, err)
	assert.Less(t, red.Dim(), 20)
	assert.Greater(t, red.Dim(), 0)
}

func TestInputToStateStateToOutputIsProjection(t *testing.T) {
	net := chainNetwork(10)
	m, err := mna.NewBuilder(net).Assemble(nil)
	require.NoError(t, err)

	red, err := NewReducer(1).Reduce(m, nil)
	require.NoError(t, err)

	in := make([]float64, 10)
	for i := range in {
		in[i] = float64(i + 1)
	}
	reduced := red.InputToState(in)
	out1 := red.StateToOutput(reduced)

	// applying input2State to the already-projected output should
	// reproduce the same reduced state (idempotent projection).
	reduced2 := red.InputToState(out1)
	require.Len(t, reduced2, len(reduced))
	for i := range reduced {
		assert.InDelta(t, reduced[i], reduced2[i], 1e-6)
	}
}
