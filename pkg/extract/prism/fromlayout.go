package prism

import (
	"fmt"
	"math"
	"sort"

	"github.com/ecad-oss/thermalnet/pkg/layout"
	"github.com/ecad-oss/thermalnet/pkg/material"
	"github.com/ecad-oss/thermalnet/pkg/triangulation"
)

// FromLayout converts a layout-supplied layer stack, polygon set, placed
// components and bondwires into a prism Model: each layer's polygons are
// triangulated independently, so adjacent layers generally don't share a
// template — FromLayout always produces a Stacked-mode Model. Every
// resulting triangle is tagged with the material and net of whichever
// polygon's outer ring contains its centroid; holes are not subtracted
// (layouts in this corpus don't exercise them, and subtracting them needs a
// second, nested point-in-polygon pass the extractor doesn't otherwise
// need). A placed Component's power table wins over a polygon's own
// PowerBlock for any element whose centroid falls inside the component's
// footprint, since a discrete placement is a stronger signal than a
// blanket per-polygon annotation.
//
// Grounded on spec.md §6's external-interface list and on
// original_source's ECompactLayout -> EPrismaThermalModel conversion path;
// EPrismaThermalModel.h's entity shapes are what pkg/extract/prism's own
// types are ported from, so this is the missing link from the layout
// collaborator's raw input down to that model.
func FromLayout(stack layout.LayerStack, polys []layout.Polygon, comps []layout.Component, wires []layout.Bondwire, bcs layout.BoundaryConditions, materials *material.DB, params triangulation.Params) (Model, error) {
	layers := make([]PrismaLayer, len(stack))

	for li, ls := range stack {
		layerPolys := polysForLayer(polys, li)
		if len(layerPolys) == 0 {
			layers[li] = PrismaLayer{Elevation: ls.Elevation, Thickness: ls.Thickness, Mesh: &triangulation.Mesh{}}
			continue
		}

		points, edges := ringPoints(layerPolys)
		mesh, err := triangulation.Triangulate(points, edges, params)
		if err != nil {
			return Model{}, fmt.Errorf("prism: layer %d (%s): %w", li, ls.Name, err)
		}

		elements := make([]PrismaElement, len(mesh.Triangles))
		ownerIdx := make([]int, len(mesh.Triangles))
		for ti := range mesh.Triangles {
			c := mesh.Centroid(ti)
			oi := ownerPolygon(layerPolys, c)
			if oi < 0 {
				return Model{}, fmt.Errorf("prism: layer %d: triangle %d centroid (%g,%g) matches no polygon", li, ti, c.X, c.Y)
			}
			ownerIdx[ti] = oi
			elements[ti] = PrismaElement{TemplateID: ti, MatID: layerPolys[oi].Material, NetID: layerPolys[oi].Net}
		}

		assignPolygonPower(mesh, elements, ownerIdx, layerPolys)
		assignComponentPower(mesh, elements, comps, li)

		layers[li] = PrismaLayer{Elevation: ls.Elevation, Thickness: ls.Thickness, Mesh: mesh, Elements: elements}
	}

	lines, err := linesFromBondwires(layers, wires)
	if err != nil {
		return Model{}, err
	}

	return Model{
		Layers:       layers,
		Lines:        lines,
		Materials:    materials,
		VerticalMode: Stacked,
		TopBC:        bcs.TopUniform,
		BotBC:        bcs.BotUniform,
	}, nil
}

func polysForLayer(polys []layout.Polygon, layer int) []layout.Polygon {
	var out []layout.Polygon
	for _, p := range polys {
		if p.Layer == layer {
			out = append(out, p)
		}
	}
	return out
}

// ringPoints flattens every polygon's outer ring into one point list plus
// the consecutive-vertex edges within each ring, the shape
// triangulation.Triangulate expects as its boundary constraint.
func ringPoints(polys []layout.Polygon) ([]triangulation.Point, [][2]int) {
	var points []triangulation.Point
	var edges [][2]int
	for _, poly := range polys {
		base := len(points)
		n := len(poly.Outer)
		for i, p := range poly.Outer {
			points = append(points, triangulation.Point{X: p.X, Y: p.Y})
			edges = append(edges, [2]int{base + i, base + (i+1)%n})
		}
	}
	return points, edges
}

// ownerPolygon returns the index into polys of the first polygon whose
// outer ring contains p, or -1 if none does.
func ownerPolygon(polys []layout.Polygon, p triangulation.Point) int {
	for i, poly := range polys {
		if pointInRing(poly.Outer, p.X, p.Y) {
			return i
		}
	}
	return -1
}

// pointInRing is the standard ray-casting point-in-polygon test.
func pointInRing(ring []layout.Point2D, x, y float64) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := ring[i], ring[j]
		if (pi.Y > y) != (pj.Y > y) {
			xCross := (pj.X-pi.X)*(y-pi.Y)/(pj.Y-pi.Y) + pi.X
			if x < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// assignPolygonPower wraps each powered polygon's temperature-indexed table
// into a material.DataTable and spreads it over that polygon's elements,
// weighted by each element's share of the polygon's total triangulated
// area, per spec.md §4.7's PowerRatio contract.
func assignPolygonPower(mesh *triangulation.Mesh, elements []PrismaElement, ownerIdx []int, polys []layout.Polygon) {
	totalArea := make([]float64, len(polys))
	for ti, oi := range ownerIdx {
		if polys[oi].PowerBlock != nil {
			totalArea[oi] += mesh.Area(ti)
		}
	}
	for ti, oi := range ownerIdx {
		pb := polys[oi].PowerBlock
		if pb == nil || totalArea[oi] <= 0 {
			continue
		}
		elements[ti].Power = tableFromMap(pb.Table)
		elements[ti].PowerRatio = mesh.Area(ti) / totalArea[oi]
	}
}

// assignComponentPower overrides elements whose centroid falls inside a
// placed component's footprint with that component's own power table.
func assignComponentPower(mesh *triangulation.Mesh, elements []PrismaElement, comps []layout.Component, layer int) {
	for _, comp := range comps {
		if comp.PlacementLayer != layer {
			continue
		}
		var totalArea float64
		var inBox []int
		for ti := range elements {
			c := mesh.Centroid(ti)
			if c.X >= comp.Box.MinX && c.X <= comp.Box.MaxX && c.Y >= comp.Box.MinY && c.Y <= comp.Box.MaxY {
				inBox = append(inBox, ti)
				totalArea += mesh.Area(ti)
			}
		}
		if totalArea <= 0 {
			continue
		}
		table := tableFromMap(comp.PowerTable)
		for _, ti := range inBox {
			elements[ti].Power = table
			elements[ti].PowerRatio = mesh.Area(ti) / totalArea
		}
	}
}

func tableFromMap(m map[float64]float64) material.TemperatureSamples {
	temps := make([]float64, 0, len(m))
	for t := range m {
		temps = append(temps, t)
	}
	sort.Float64s(temps)
	values := make([]float64, len(temps))
	for i, t := range temps {
		values[i] = m[t]
	}
	return material.TemperatureSamples{Temps: temps, Values: values}
}

// linesFromBondwires resolves each bondwire's endpoints to the nearest
// element (by centroid distance) in the layer whose elevation window
// contains the endpoint's Z, per spec.md §4.7 ("linked into the nearest
// prism element at each endpoint layer").
func linesFromBondwires(layers []PrismaLayer, wires []layout.Bondwire) ([]LineElement, error) {
	lines := make([]LineElement, 0, len(wires))
	for _, w := range wires {
		startLayer, err := nearestLayer(layers, w.Start.Z)
		if err != nil {
			return nil, fmt.Errorf("prism: bondwire start: %w", err)
		}
		endLayer, err := nearestLayer(layers, w.End.Z)
		if err != nil {
			return nil, fmt.Errorf("prism: bondwire end: %w", err)
		}
		startElem, err := nearestElement(layers[startLayer], w.Start.X, w.Start.Y)
		if err != nil {
			return nil, fmt.Errorf("prism: bondwire start: %w", err)
		}
		endElem, err := nearestElement(layers[endLayer], w.End.X, w.End.Y)
		if err != nil {
			return nil, fmt.Errorf("prism: bondwire end: %w", err)
		}
		lines = append(lines, LineElement{
			NetID:        w.Net,
			MatID:        w.Material,
			Radius:       w.Radius,
			Current:      w.Current,
			Start:        Point3D{X: w.Start.X, Y: w.Start.Y, Z: w.Start.Z},
			End:          Point3D{X: w.End.X, Y: w.End.Y, Z: w.End.Z},
			StartLayer:   startLayer,
			StartElement: startElem,
			EndLayer:     endLayer,
			EndElement:   endElem,
		})
	}
	return lines, nil
}

func nearestLayer(layers []PrismaLayer, z float64) (int, error) {
	if len(layers) == 0 {
		return 0, fmt.Errorf("no layers")
	}
	best, bestDist := 0, math.Inf(1)
	for i, l := range layers {
		var d float64
		switch {
		case z < l.Elevation:
			d = l.Elevation - z
		case z > l.Elevation+l.Thickness:
			d = z - (l.Elevation + l.Thickness)
		default:
			d = 0
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, nil
}

func nearestElement(layer PrismaLayer, x, y float64) (int, error) {
	if len(layer.Elements) == 0 {
		return 0, fmt.Errorf("layer has no elements")
	}
	best, bestDist := 0, math.Inf(1)
	for ti := range layer.Elements {
		c := layer.Mesh.Centroid(layer.Elements[ti].TemplateID)
		d := math.Hypot(c.X-x, c.Y-y)
		if d < bestDist {
			best, bestDist = ti, d
		}
	}
	return best, nil
}
