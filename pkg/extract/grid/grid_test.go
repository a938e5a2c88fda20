package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecad-oss/thermalnet/pkg/bc"
	"github.com/ecad-oss/thermalnet/pkg/config"
	"github.com/ecad-oss/thermalnet/pkg/material"
	"github.com/ecad-oss/thermalnet/pkg/solver"
)

func testConfig() *config.Config {
	c := config.Default()
	c.RefT = 300
	return c
}

func copperLikeLayer(thickness float64) Layer {
	mat := material.Material{K: material.NewScalar(400), Rho: material.NewScalar(1), C: material.NewScalar(1)}
	return Layer{
		Thickness:          thickness,
		MetalFraction:      [][]float64{{1.0}},
		ConductingMaterial: mat,
		DielectricMaterial: mat,
	}
}

func TestBuildVoxelChainProducesLinearGradient(t *testing.T) {
	const nz = 10
	layers := make([]Layer, nz)
	for i := range layers {
		layers[i] = copperLikeLayer(0.001)
	}

	hf := 0.1
	topHTC := bc.Uniform(bc.HTC, 1e12) // effectively pins the top node near refT
	m := Model{
		Dims:   Dims{Nx: 1, Ny: 1, Nz: nz},
		Rx:     0.001,
		Ry:     0.001,
		Layers: layers,
		TilePowers: []TilePower{
			{Layer: nz - 1, Table: material.Uniform(hf / (0.001 * 0.001))},
		},
		TopBC: &topHTC,
	}
	ext := New(m, 300)

	net, sum, err := ext.Build(nil)
	require.NoError(t, err)
	assert.Equal(t, nz, sum.TotalNodes)
	assert.Greater(t, sum.BoundaryNodes, 0)

	ss := solver.NewSteadyState(solver.CG)
	res, err := ss.Solve(net, testConfig(), nil)
	require.NoError(t, err)
	require.True(t, res.Converged)

	// Gradient must be monotonic: each voxel is cooler moving away from the
	// power injection at the bottom, towards the pinned top.
	for z := 1; z < nz; z++ {
		assert.GreaterOrEqual(t, res.X[z], res.X[z-1]-1e-6,
			"temperature must not increase moving toward the pinned top boundary")
	}

	// Adjacent differences should be uniform (linear gradient) since every
	// link shares identical conductance.
	d0 := res.X[0] - res.X[1]
	for z := 1; z < nz-1; z++ {
		assert.InDelta(t, d0, res.X[z]-res.X[z+1], 1e-6)
	}

	// Energy conservation: injected heat flow equals heat extracted via HTC.
	var totalHF, totalHTCFlow float64
	for i := 0; i < net.Size(); i++ {
		n := net.Node(i)
		totalHF += n.HF
		totalHTCFlow += n.HTC * (300 - n.T)
	}
	assert.InDelta(t, 0, totalHF+totalHTCFlow, 1e-3)
}

func TestBuildCompositeConductivityBlendsMetalFraction(t *testing.T) {
	metal := material.Material{K: material.NewScalar(400)}
	dielectric := material.Material{K: material.NewScalar(1)}
	m := Model{
		Dims: Dims{Nx: 2, Ny: 1, Nz: 1},
		Rx:   0.001, Ry: 0.001,
		Layers: []Layer{{
			Thickness:          0.001,
			MetalFraction:      [][]float64{{0.25}, {0.25}},
			ConductingMaterial: metal,
			DielectricMaterial: dielectric,
		}},
	}
	ext := New(m, 300)
	k := ext.compositeK(Index{0, 0, 0}, 300)
	want := 0.25*400 + 0.75*1
	assert.InDelta(t, want, k[0], 1e-9)
}

func TestBuildBlockPowerDirectDistributesEvenly(t *testing.T) {
	m := Model{
		Dims:       Dims{Nx: 2, Ny: 2, Nz: 1},
		Rx:         0.001, Ry: 0.001,
		Layers:     []Layer{copperLikeLayer(0.001)},
		Aggregator: Direct,
		BlockPowers: []BlockPower{
			{Layer: 0, LL: Index{0, 0, 0}, UR: Index{1, 1, 0}, TotalPower: 4.0},
		},
	}
	m.Layers[0].MetalFraction = [][]float64{{1, 1}, {1, 1}}
	ext := New(m, 300)

	net, sum, err := ext.Build(nil)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.TotalNodes) // no aggregator node appended in Direct mode

	for i := 0; i < net.Size(); i++ {
		assert.InDelta(t, 1.0, net.Node(i).HF, 1e-9)
	}
}

func TestBuildJumpAddsBondwireResistance(t *testing.T) {
	wireMat := material.Material{K: material.NewScalar(200)}
	m := Model{
		Dims:   Dims{Nx: 2, Ny: 1, Nz: 1},
		Rx:     0.001, Ry: 0.001,
		Layers: []Layer{copperLikeLayer(0.001)},
		Jumps: []Jump{
			{A: Index{0, 0, 0}, B: Index{1, 0, 0}, Length: 0.002, Radius: 0.0005, WireMat: wireMat},
		},
	}
	m.Layers[0].MetalFraction = [][]float64{{1}, {1}}
	ext := New(m, 300)

	net, _, err := ext.Build(nil)
	require.NoError(t, err)

	ns, rs := net.Node(0).Neighbors()
	found := false
	for i, peer := range ns {
		if peer == 1 {
			want := 0.002 / (math.Pi * 0.0005 * 0.0005 * 200)
			// adjacent voxels are already linked by the in-plane neighbor
			// stamping; SetR parallel-merges the jump resistance into it.
			assert.LessOrEqual(t, rs[i], want+1e-9)
			found = true
		}
	}
	assert.True(t, found, "jump endpoints must be connected")
}

func TestBuildBlockPowerSentinelRAppendsAggregator(t *testing.T) {
	m := Model{
		Dims:       Dims{Nx: 2, Ny: 1, Nz: 1},
		Rx:         0.001, Ry: 0.001,
		Layers:     []Layer{copperLikeLayer(0.001)},
		Aggregator: SentinelR,
		BlockPowers: []BlockPower{
			{Layer: 0, LL: Index{0, 0, 0}, UR: Index{1, 0, 0}, TotalPower: 2.0},
		},
	}
	m.Layers[0].MetalFraction = [][]float64{{1}, {1}}
	ext := New(m, 300)

	net, _, err := ext.Build(nil)
	require.NoError(t, err)
	require.Equal(t, 3, net.Size()) // 2 voxels + 1 aggregator node
	assert.Equal(t, 2.0, net.Node(2).HF)
}
