// Package layout declares the thin input types consumed from the
// layout/CAD collaborator: layer stacks, polygons, bondwires, components
// and boundary-condition lists. The collaborator itself (cells, nets,
// padstacks, file-format importers, polygon merging) is deliberately out of
// scope; these types only capture the shape extractors read, grounded on
// the external-interface list in spec.md §6 and on the input records
// ECompactLayout/EPrismaThermalModel.h feed into the original builders.
package layout

import "github.com/ecad-oss/thermalnet/pkg/bc"

// LayerType distinguishes a dielectric layer from a conducting one.
type LayerType int

const (
	Dielectric LayerType = iota
	Conducting
)

// Layer is one entry of the ordered layer stack.
type Layer struct {
	Name                string
	Type                LayerType
	Elevation           float64
	Thickness           float64
	ConductingMaterial  int // material.DB id, meaningful when Type == Conducting
	DielectricMaterial  int // material.DB id, meaningful when Type == Dielectric
}

// LayerStack is the ordered sequence of layers making up the part.
type LayerStack []Layer

// PowerBlock annotates a polygon as a power source with a scenario-indexed,
// temperature-dependent lookup table.
type PowerBlock struct {
	Scenario       string
	Table          map[float64]float64 // sampled at e.g. 25,50,75,100,125 C
	ElevationStart float64
	ElevationEnd   float64
}

// Point2D is an in-plane vertex.
type Point2D struct{ X, Y float64 }

// Polygon is one per-layer shape: an outer ring plus optional holes, tagged
// with a material and net, and optionally a power source.
type Polygon struct {
	Layer      int // index into the LayerStack
	Material   int // material.DB id
	Net        int
	Outer      []Point2D
	Holes      [][]Point2D
	PowerBlock *PowerBlock // nil when this polygon carries no power
}

// Point3D is a 3-D point, used for bondwire endpoints.
type Point3D struct{ X, Y, Z float64 }

// Bondwire is a wire segment between two 3-D points, grounded on spec.md
// §6's (net, startPt3D, endPt3D, radius, current, material) record.
type Bondwire struct {
	Net      int
	Start    Point3D
	End      Point3D
	Radius   float64
	Current  float64 // A, used for Joule-heating contribution
	Material int      // material.DB id
}

// BBox is an axis-aligned rectangle in the plane.
type BBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// Component is a placed package with a temperature-indexed power table,
// per spec.md §6's (bbox, placementLayer, powerTable(T)) record.
type Component struct {
	Box            BBox
	PlacementLayer int
	PowerTable     map[float64]float64
}

// BlockBC pairs a boundary condition with the sub-region it applies to.
type BlockBC struct {
	Box BBox
	BC  bc.BoundaryCondition
}

// BoundaryConditions bundles the top/bottom uniform and block boundary
// conditions supplied alongside a layout, per spec.md §6.
type BoundaryConditions struct {
	TopUniform *bc.BoundaryCondition
	BotUniform *bc.BoundaryCondition
	TopBlocks  []BlockBC
	BotBlocks  []BlockBC
}
