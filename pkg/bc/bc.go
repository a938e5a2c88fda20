// Package bc implements boundary conditions applied to network nodes during
// extraction: a fixed heat-transfer coefficient to ambient, an injected heat
// flow (signed, in or out), or a pinned temperature. Grounded directly on
// EGridThermalNetworkBuilder.cpp's ApplyBoundaryConditionForLayer and
// ApplyUniformBoundaryConditionForLayer, which switch on
// EGridThermalModel::BCType{HTC,HeatFlow,Temperature} and differ only in
// whether the applied value comes from a per-tile DataTable lookup or a
// single uniform scalar; both are generalised here off the grid-specific
// loop into a single per-node Apply.
package bc

import (
	"fmt"

	"github.com/ecad-oss/thermalnet/pkg/material"
	"github.com/ecad-oss/thermalnet/pkg/network"
)

// Kind identifies which physical quantity a BoundaryCondition constrains.
type Kind int

const (
	// HTC couples the node to the reference ambient via a heat-transfer
	// coefficient, scaled by the node's exposed area.
	HTC Kind = iota
	// HeatFlow injects (positive) or extracts (negative) power at the node,
	// scaled by the node's exposed area.
	HeatFlow
	// Temperature pins the node's temperature directly (Dirichlet), ignoring
	// area. Apply also marks the node Fixed so mna.Builder.Assemble excludes
	// it from the solved unknowns per spec.md §4.3/§4.8.
	Temperature
)

// BoundaryCondition is a tagged value applied to one or more nodes during
// extraction. Either a constant Value or a Table lookup supplies the
// applied quantity; Table takes precedence when non-nil, mirroring the
// original's per-tile-table vs. uniform-scalar split.
type BoundaryCondition struct {
	Kind  Kind
	Value float64
	Table material.DataTable // optional; overrides Value when non-nil
}

// Uniform builds a BoundaryCondition with a constant value, as produced by
// ApplyUniformBoundaryConditionForLayer.
func Uniform(kind Kind, value float64) BoundaryCondition {
	return BoundaryCondition{Kind: kind, Value: value}
}

// Tabulated builds a BoundaryCondition backed by a per-tile lookup table, as
// produced by ApplyBoundaryConditionForLayer.
func Tabulated(kind Kind, table material.DataTable) BoundaryCondition {
	return BoundaryCondition{Kind: kind, Table: table}
}

// Summary accumulates the per-node-application counters the original
// builder tracks alongside the network itself, surfaced to callers for
// reporting (spec.md §6's extraction summary).
type Summary struct {
	BoundaryNodes int
	FixedTNodes   int
	IHeatFlow     float64 // sum of positive (into the part) heat flow applied
	OHeatFlow     float64 // sum of negative (out of the part) heat flow applied
}

// Apply applies bc to node idx with exposed face area (in the node's native
// units; Temperature ignores it), updating net and accumulating into sum.
// t is the node's current temperature, used only for Table lookups; x,y are
// the tile coordinates passed through to Table.Query unchanged.
func (bc BoundaryCondition) Apply(net *network.ThermalNetwork, sum *Summary, idx int, area, t float64, x, y int) error {
	val, ok := bc.value(t, x, y)
	if !ok {
		return nil // no BC defined at this tile; original silently skips
	}

	switch bc.Kind {
	case HTC:
		net.AddHTC(idx, val*area)
		sum.BoundaryNodes++
	case HeatFlow:
		q := val * area
		net.AddHF(idx, q)
		if q >= 0 {
			sum.IHeatFlow += q
		} else {
			sum.OHeatFlow += -q
		}
		sum.BoundaryNodes++
	case Temperature:
		net.SetT(idx, val)
		net.SetFixed(idx, true)
		sum.FixedTNodes++
	default:
		return fmt.Errorf("bc: unknown boundary condition kind %d", bc.Kind)
	}
	return nil
}

func (bc BoundaryCondition) value(t float64, x, y int) (float64, bool) {
	if bc.Table != nil {
		return bc.Table.Query(t, x, y)
	}
	return bc.Value, true
}
