// Package grid implements the voxel (grid) extractor: it turns a layered,
// metal-fraction raster description of a part into a ThermalNetwork with
// anisotropic composite conductivity, bondwire jump conductances, component
// power aggregation, and top/bottom boundary conditions. Each boundary
// condition covers a whole top or bottom face (uniformly or through a
// per-tile table); there is no sub-region (block) boundary condition.
//
// Grounded directly on EGridThermalNetworkBuilder.cpp's Build: the same
// right/back/bot canonical-neighbor stamping loop (avoiding double-counted
// edges), the same GetRes half-resistor series formula, the same
// metal-fraction composite blend for k and rho*c, and the same jump
// connection / power model / boundary-condition handling, reusing pkg/bc
// for the boundary-condition application instead of the original's
// hand-inlined switch.
package grid

import (
	"fmt"
	"math"

	"github.com/ecad-oss/thermalnet/pkg/bc"
	"github.com/ecad-oss/thermalnet/pkg/material"
	"github.com/ecad-oss/thermalnet/pkg/network"
)

// AggregatorMode selects how a block component's total power is spread over
// its footprint tiles — the open question recorded in spec.md §9.
type AggregatorMode int

const (
	// Direct distributes the component's total power directly onto each
	// footprint tile, weighted by tile area (uniform here, since all tiles
	// share one pitch). Preferred per spec.md §9 when both are implemented.
	Direct AggregatorMode = iota
	// SentinelR appends one virtual aggregator node, connected to every
	// footprint tile via SentinelR, holding the total power itself.
	SentinelR
)

// DefaultSentinelR is the original's THERMAL_RD constant: the nominal
// resistance between a power aggregator node and its footprint tiles.
const DefaultSentinelR = 0.01

// Index addresses one voxel in the (Nx,Ny,Nz) block.
type Index struct{ X, Y, Z int }

// Dims is the voxel grid's extent.
type Dims struct{ Nx, Ny, Nz int }

// Layer carries one z-slice's per-tile metal fraction and thickness.
type Layer struct {
	Thickness          float64
	MetalFraction      [][]float64 // [x][y], each in [0,1]
	ConductingMaterial material.Material
	DielectricMaterial material.Material
}

// Jump is a bondwire collapsed onto two grid indices: length L and radius r
// produce a single jump resistance L/(pi*r^2*k_wire) between A and B.
type Jump struct {
	A, B     Index
	Length   float64
	Radius   float64
	WireMat  material.Material
}

// TilePower is a per-tile, temperature-indexed power source applied over an
// entire layer (the grid analogue of EGridPowerModel).
type TilePower struct {
	Layer int
	Table material.DataTable
}

// BlockPower is a component's bounding-box power source (the grid analogue
// of EBlockPowerModel): total power dissipated by tiles in [LL,UR] on Layer.
type BlockPower struct {
	Layer      int
	LL, UR     Index
	TotalPower float64
}

// Model is the complete grid-extractor input, grounded on spec.md §4.6 and
// §6's external-interface list.
type Model struct {
	Dims          Dims
	Rx, Ry        float64 // voxel pitch in x,y (metres)
	Layers        []Layer
	Jumps         []Jump
	TilePowers    []TilePower
	BlockPowers   []BlockPower
	TopBC, BotBC  *bc.BoundaryCondition // uniform or tabulated; nil to skip
	Aggregator    AggregatorMode
	SentinelR     float64 // 0 selects DefaultSentinelR
}

// Extractor builds a ThermalNetwork from a Model at a reference temperature
// used for linearizing temperature-dependent material properties.
type Extractor struct {
	Model Model
	RefT  float64
}

// New constructs an Extractor.
func New(m Model, refT float64) *Extractor {
	if m.SentinelR == 0 {
		m.SentinelR = DefaultSentinelR
	}
	return &Extractor{Model: m, RefT: refT}
}

// Summary reports the node/edge accounting produced by Build, matching the
// original's per-build summary counters.
type Summary struct {
	bc.Summary
	TotalNodes int
}

// Build assembles the ThermalNetwork. iniT, when non-nil, supplies a
// per-voxel initial-temperature estimate used to evaluate
// temperature-dependent material properties and BC tables (re-linearization
// between outer steady-state passes); when nil, RefT is used uniformly.
func (e *Extractor) Build(iniT []float64) (*network.ThermalNetwork, Summary, error) {
	d := e.Model.Dims
	size := d.Nx * d.Ny * d.Nz
	if iniT != nil && len(iniT) != size {
		return nil, Summary{}, fmt.Errorf("grid: initial temperature length %d does not match grid size %d", len(iniT), size)
	}
	if len(e.Model.Layers) != d.Nz {
		return nil, Summary{}, fmt.Errorf("grid: %d layers supplied, expected %d (Nz)", len(e.Model.Layers), d.Nz)
	}

	tAt := func(idx int) float64 {
		if iniT != nil {
			return iniT[idx]
		}
		return e.RefT
	}

	sum := Summary{TotalNodes: size}
	net := network.New(size)

	for z := 0; z < d.Nz; z++ {
		for y := 0; y < d.Ny; y++ {
			for x := 0; x < d.Nx; x++ {
				idx1 := e.flatten(Index{x, y, z})
				t1 := tAt(idx1)
				net.SetC(idx1, e.compositeC(Index{x, y, z}, t1))
				k1 := e.compositeK(Index{x, y, z}, t1)

				if x+1 < d.Nx {
					idx2 := e.flatten(Index{x + 1, y, z})
					k2 := e.compositeK(Index{x + 1, y, z}, tAt(idx2))
					area := e.xGridArea(z)
					r := getRes(k1[0], 0.5*e.Model.Rx, k2[0], 0.5*e.Model.Rx, area)
					net.SetR(idx1, idx2, r)
				}
				if y+1 < d.Ny {
					idx2 := e.flatten(Index{x, y + 1, z})
					k2 := e.compositeK(Index{x, y + 1, z}, tAt(idx2))
					area := e.yGridArea(z)
					r := getRes(k1[1], 0.5*e.Model.Ry, k2[1], 0.5*e.Model.Ry, area)
					net.SetR(idx1, idx2, r)
				}
				if z+1 < d.Nz {
					idx2 := e.flatten(Index{x, y, z + 1})
					k2 := e.compositeK(Index{x, y, z + 1}, tAt(idx2))
					area := e.zGridArea()
					r := getRes(k1[2], 0.5*e.Model.Layers[z].Thickness, k2[2], 0.5*e.Model.Layers[z+1].Thickness, area)
					net.SetR(idx1, idx2, r)
				}
			}
		}
	}

	for _, j := range e.Model.Jumps {
		idx1, idx2 := e.flatten(j.A), e.flatten(j.B)
		if idx1 == idx2 {
			continue
		}
		kx, _, _ := j.WireMat.K.At(tAt(idx1))
		r := j.Length / (math.Pi * j.Radius * j.Radius * kx)
		net.SetR(idx1, idx2, r)
	}

	for _, p := range e.Model.TilePowers {
		for x := 0; x < d.Nx; x++ {
			for y := 0; y < d.Ny; y++ {
				idx := e.flatten(Index{x, y, p.Layer})
				hc := bc.Tabulated(bc.HeatFlow, p.Table)
				if err := hc.Apply(net, &sum.Summary, idx, e.zGridArea(), tAt(idx), x, y); err != nil {
					return nil, Summary{}, err
				}
			}
		}
	}

	for _, p := range e.Model.BlockPowers {
		if err := e.applyBlockPower(net, &sum, p); err != nil {
			return nil, Summary{}, err
		}
	}

	if e.Model.TopBC != nil {
		if err := e.applyLayerBC(net, &sum, *e.Model.TopBC, 0, tAt); err != nil {
			return nil, Summary{}, err
		}
	}
	if e.Model.BotBC != nil {
		if err := e.applyLayerBC(net, &sum, *e.Model.BotBC, d.Nz-1, tAt); err != nil {
			return nil, Summary{}, err
		}
	}

	return net, sum, nil
}

func (e *Extractor) applyLayerBC(net *network.ThermalNetwork, sum *Summary, b bc.BoundaryCondition, z int, tAt func(int) float64) error {
	d := e.Model.Dims
	for x := 0; x < d.Nx; x++ {
		for y := 0; y < d.Ny; y++ {
			idx := e.flatten(Index{x, y, z})
			if err := b.Apply(net, &sum.Summary, idx, e.zGridArea(), tAt(idx), x, y); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Extractor) applyBlockPower(net *network.ThermalNetwork, sum *Summary, p BlockPower) error {
	tiles := make([]Index, 0)
	for x := p.LL.X; x <= p.UR.X; x++ {
		for y := p.LL.Y; y <= p.UR.Y; y++ {
			tiles = append(tiles, Index{x, y, p.Layer})
		}
	}
	if len(tiles) == 0 {
		return fmt.Errorf("grid: block power covers zero tiles")
	}

	if p.TotalPower >= 0 {
		sum.IHeatFlow += p.TotalPower
	} else {
		sum.OHeatFlow += -p.TotalPower
	}

	switch e.Model.Aggregator {
	case SentinelR:
		node := net.AppendNode(network.UnknownT)
		net.SetHF(node, p.TotalPower)
		r := e.Model.SentinelR
		for _, tile := range tiles {
			net.SetR(e.flatten(tile), node, r)
		}
	default: // Direct
		share := p.TotalPower / float64(len(tiles))
		for _, tile := range tiles {
			net.AddHF(e.flatten(tile), share)
		}
	}
	return nil
}

func (e *Extractor) flatten(i Index) int {
	d := e.Model.Dims
	return i.Z*(d.Nx*d.Ny) + i.Y*d.Nx + i.X
}

func (e *Extractor) xGridArea(z int) float64 { return e.Model.Ry * e.Model.Layers[z].Thickness }
func (e *Extractor) yGridArea(z int) float64 { return e.Model.Rx * e.Model.Layers[z].Thickness }
func (e *Extractor) zGridArea() float64      { return e.Model.Rx * e.Model.Ry }

// compositeK blends conducting and dielectric conductivity by metal
// fraction at the voxel, per-axis.
func (e *Extractor) compositeK(i Index, t float64) [3]float64 {
	layer := e.Model.Layers[i.Z]
	cp := layer.MetalFraction[i.X][i.Y]
	mkx, mky, mkz := layer.ConductingMaterial.K.At(t)
	dkx, dky, dkz := layer.DielectricMaterial.K.At(t)
	return [3]float64{
		cp*mkx + (1-cp)*dkx,
		cp*mky + (1-cp)*dky,
		cp*mkz + (1-cp)*dkz,
	}
}

// compositeC blends the volumetric heat capacities by metal fraction,
// scaled by the voxel volume.
func (e *Extractor) compositeC(i Index, t float64) float64 {
	layer := e.Model.Layers[i.Z]
	cp := layer.MetalFraction[i.X][i.Y]
	vol := e.Model.Rx * e.Model.Ry * layer.Thickness
	mCap := layer.ConductingMaterial.RhoC(t) * vol
	dCap := layer.DielectricMaterial.RhoC(t) * vol
	return cp*mCap + (1-cp)*dCap
}

// getRes is the series half-resistor formula shared by all three axes.
func getRes(k1, z1, k2, z2, area float64) float64 {
	return (z1/k1 + z2/k2) / area
}
