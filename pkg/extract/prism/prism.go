// Package prism implements the per-layer-triangulation (prism) extractor:
// it turns a stack of triangulated layers plus bondwires into a
// ThermalNetwork, one node per triangular wedge element and one per
// bondwire line element. Grounded on EPrismaThermalModel.h's entity shapes
// (PrismaLayer, PrismaElement, LineElement, the [edge0,edge1,edge2,top,bot]
// neighbor array) and EPrismThermalNetworkBuilder.h's method list
// (GetPrismCenterDist2Side, GetPrismSideArea, GetLineJouleHeat, etc, whose
// exact bodies original_source does not carry — this package implements
// their formulas directly from spec.md §4.7).
package prism

import (
	"fmt"
	"math"

	"github.com/ecad-oss/thermalnet/pkg/bc"
	"github.com/ecad-oss/thermalnet/pkg/material"
	"github.com/ecad-oss/thermalnet/pkg/network"
	"github.com/ecad-oss/thermalnet/pkg/triangulation"
)

// TopNeighborIndex and BotNeighborIndex are the fixed slots of
// PrismaElement.Neighbors reserved for the vertical neighbors, matching
// EPrismaThermalModel::PrismaElement::TOP_NEIGHBOR_INDEX/BOT_NEIGHBOR_INDEX.
const (
	TopNeighborIndex = 3
	BotNeighborIndex = 4
	NoNeighbor       = -1
)

// VerticalMode selects how adjacent layers' elements are linked.
type VerticalMode int

const (
	// SingleTemplate assumes every layer shares one triangulation, so
	// element i in one layer corresponds directly to element i in the next.
	SingleTemplate VerticalMode = iota
	// Stacked triangulates every layer independently and links elements via
	// geometric overlap (contact-area fractions).
	Stacked
)

// Point3D is a 3-D point, used for bondwire endpoints.
type Point3D struct{ X, Y, Z float64 }

// ContactFraction records one overlapping neighbor across a stacked-layer
// vertical interface: the neighbor's global element index, and the overlap
// area as a fraction of this element's own top/bot area.
type ContactFraction struct {
	OtherID      int
	AreaFraction float64
}

// PrismaElement is one triangular wedge, grounded on
// EPrismaThermalModel::PrismaElement.
type PrismaElement struct {
	TemplateID int // triangle index in its layer's Mesh
	MatID      int
	NetID      int

	// Power, when non-nil, is a temperature-indexed total power table for
	// the power block this element's centroid falls inside; PowerRatio is
	// area(element)/area(power block), per spec.md §4.7.
	Power      material.DataTable
	PowerRatio float64

	// Neighbors holds [edge0,edge1,edge2,top,bot] global element indices,
	// or NoNeighbor. In Stacked mode, Neighbors[top/bot] is set to this
	// element's own global ID as a sentinel meaning "resolved via
	// ContactsTop/ContactsBot" instead of a single neighbor.
	Neighbors [5]int

	ContactsTop []ContactFraction
	ContactsBot []ContactFraction
}

// PrismaLayer is one triangulated layer.
type PrismaLayer struct {
	Elevation float64
	Thickness float64
	Mesh      *triangulation.Mesh
	Elements  []PrismaElement
}

// LineElement is a bondwire, grounded on EPrismaThermalModel::LineElement.
type LineElement struct {
	NetID   int
	MatID   int
	Radius  float64
	Current float64
	Start   Point3D
	End     Point3D

	// StartLayer/StartElement and EndLayer/EndElement are the nearest
	// prism element at each endpoint layer the line links into, per
	// spec.md §4.7 ("linked into the nearest prism element at each
	// endpoint layer").
	StartLayer, StartElement int
	EndLayer, EndElement     int
}

// Model is the complete prism-extractor input.
type Model struct {
	Layers       []PrismaLayer
	Lines        []LineElement
	Materials    *material.DB
	VerticalMode VerticalMode
	TopBC, BotBC *bc.BoundaryCondition
}

// Extractor builds a ThermalNetwork from a Model.
type Extractor struct {
	Model Model
	RefT  float64
}

// New constructs an Extractor.
func New(m Model, refT float64) *Extractor {
	return &Extractor{Model: m, RefT: refT}
}

// Summary reports the extraction accounting, matching the grid extractor's
// shape for uniform reporting across both extractors.
type Summary struct {
	bc.Summary
	TotalNodes        int
	StackedContacts   int
	LineElementJoules float64
}

// globalOffsets returns, for each layer, the global node index of its first
// element, plus the total prism-element count (lines follow immediately
// after).
func (e *Extractor) globalOffsets() ([]int, int) {
	offsets := make([]int, len(e.Model.Layers))
	total := 0
	for i, l := range e.Model.Layers {
		offsets[i] = total
		total += len(l.Elements)
	}
	return offsets, total
}

func (e *Extractor) global(offsets []int, layer, element int) int {
	return offsets[layer] + element
}

// Build assembles the ThermalNetwork. iniT, when non-nil, supplies a
// per-global-node initial-temperature estimate for material linearization;
// nil uses RefT uniformly.
func (e *Extractor) Build(iniT []float64) (*network.ThermalNetwork, Summary, error) {
	if e.Model.Materials == nil {
		return nil, Summary{}, fmt.Errorf("prism: no material database supplied")
	}
	offsets, totalPrisms := e.globalOffsets()
	totalNodes := totalPrisms + len(e.Model.Lines)
	if iniT != nil && len(iniT) != totalNodes {
		return nil, Summary{}, fmt.Errorf("prism: initial temperature length %d does not match node count %d", len(iniT), totalNodes)
	}

	tAt := func(idx int) float64 {
		if iniT != nil {
			return iniT[idx]
		}
		return e.RefT
	}

	net := network.New(totalNodes)
	sum := Summary{TotalNodes: totalNodes}

	for lz, layer := range e.Model.Layers {
		for ei := range layer.Elements {
			gid := e.global(offsets, lz, ei)
			elem := &layer.Elements[ei]
			elem.Neighbors = [5]int{NoNeighbor, NoNeighbor, NoNeighbor, NoNeighbor, NoNeighbor}
			mat, err := e.Model.Materials.Get(elem.MatID)
			if err != nil {
				return nil, Summary{}, err
			}
			area := layer.Mesh.Area(elem.TemplateID)
			vol := area * layer.Thickness
			net.SetC(gid, mat.RhoC(tAt(gid))*vol)

			if elem.Power != nil {
				if val, ok := elem.Power.Query(tAt(gid), 0, 0); ok {
					net.AddHF(gid, val*elem.PowerRatio)
				}
			}
		}
	}

	if err := e.stampInPlane(net, offsets); err != nil {
		return nil, Summary{}, err
	}
	if err := e.stampVertical(net, offsets, &sum); err != nil {
		return nil, Summary{}, err
	}
	if err := e.stampLines(net, offsets, totalPrisms, &sum, tAt); err != nil {
		return nil, Summary{}, err
	}

	if e.Model.TopBC != nil {
		if err := e.applyFaceBC(net, &sum.Summary, *e.Model.TopBC, 0, tAt); err != nil {
			return nil, Summary{}, err
		}
	}
	if e.Model.BotBC != nil {
		if err := e.applyFaceBC(net, &sum.Summary, *e.Model.BotBC, len(e.Model.Layers)-1, tAt); err != nil {
			return nil, Summary{}, err
		}
	}

	return net, sum, nil
}

// stampInPlane links each element to its in-plane (same layer) triangle
// neighbors, resistance computed from centroid-to-edge distances and the
// shared edge's side area. Canonical gid<neighborGid ordering avoids
// double-stamping the same unordered pair (network.SetR parallel-merges a
// repeated call, which would silently halve the resistance if stamped
// from both directions).
func (e *Extractor) stampInPlane(net *network.ThermalNetwork, offsets []int) error {
	for lz, layer := range e.Model.Layers {
		for ei := range layer.Elements {
			elem := &layer.Elements[ei]
			gid := e.global(offsets, lz, ei)
			matA, err := e.Model.Materials.Get(elem.MatID)
			if err != nil {
				return err
			}
			kax, _, _ := matA.K.At(e.RefT)

			for edge := 0; edge < 3; edge++ {
				nbTri := layer.Mesh.Triangles[elem.TemplateID].Neighbors[edge]
				if nbTri == triangulation.NoNeighbor {
					continue
				}
				nbElem := e.elementForTriangle(layer, nbTri)
				if nbElem < 0 {
					continue
				}
				nbGid := e.global(offsets, lz, nbElem)
				elem.Neighbors[edge] = nbGid
				if nbGid <= gid {
					continue // canonical ordering: stamp once per pair
				}

				matB, err := e.Model.Materials.Get(layer.Elements[nbElem].MatID)
				if err != nil {
					return err
				}
				kbx, _, _ := matB.K.At(e.RefT)

				nbEdge := layer.Mesh.NeighborEdgeIndex(elem.TemplateID, edge)
				da := layer.Mesh.CenterDistToEdge(elem.TemplateID, edge)
				db := da
				if nbEdge != triangulation.NoNeighbor {
					db = layer.Mesh.CenterDistToEdge(nbTri, nbEdge)
				}
				faceArea := layer.Mesh.EdgeLength(elem.TemplateID, edge) * layer.Thickness
				r := da/(kax*faceArea) + db/(kbx*faceArea)
				net.SetR(gid, nbGid, r)
			}
		}
	}
	return nil
}

func (e *Extractor) elementForTriangle(layer PrismaLayer, triID int) int {
	for i := range layer.Elements {
		if layer.Elements[i].TemplateID == triID {
			return i
		}
	}
	return -1
}

// stampVertical links each element to the layer above/below it, either by
// direct index correspondence (SingleTemplate) or geometric overlap
// (Stacked).
func (e *Extractor) stampVertical(net *network.ThermalNetwork, offsets []int, sum *Summary) error {
	for lz := 0; lz < len(e.Model.Layers)-1; lz++ {
		top := &e.Model.Layers[lz]
		bot := &e.Model.Layers[lz+1]

		switch e.Model.VerticalMode {
		case SingleTemplate:
			n := len(top.Elements)
			if len(bot.Elements) < n {
				n = len(bot.Elements)
			}
			for i := 0; i < n; i++ {
				gidTop := e.global(offsets, lz, i)
				gidBot := e.global(offsets, lz+1, i)
				top.Elements[i].Neighbors[BotNeighborIndex] = gidBot
				bot.Elements[i].Neighbors[TopNeighborIndex] = gidTop

				matTop, err := e.Model.Materials.Get(top.Elements[i].MatID)
				if err != nil {
					return err
				}
				matBot, err := e.Model.Materials.Get(bot.Elements[i].MatID)
				if err != nil {
					return err
				}
				_, _, ktz := matTop.K.At(e.RefT)
				_, _, kbz := matBot.K.At(e.RefT)
				area := top.Mesh.Area(top.Elements[i].TemplateID)
				r := (0.5 * top.Thickness) / (ktz * area) + (0.5 * bot.Thickness) / (kbz * area)
				net.SetR(gidTop, gidBot, r)
			}

		case Stacked:
			for ti := range top.Elements {
				gidTop := e.global(offsets, lz, ti)
				triTop := top.Elements[ti].TemplateID
				areaTop := top.Mesh.Area(triTop)
				vTop := top.Mesh.VertexPoints(triTop)
				minXt, minYt, maxXt, maxYt := top.Mesh.BoundingBox(triTop)

				any := false
				for bi := range bot.Elements {
					triBot := bot.Elements[bi].TemplateID
					minXb, minYb, maxXb, maxYb := bot.Mesh.BoundingBox(triBot)
					if maxXt < minXb || maxXb < minXt || maxYt < minYb || maxYb < minYt {
						continue
					}
					vBot := bot.Mesh.VertexPoints(triBot)
					overlap := triangulation.IntersectTriangleArea(vTop, vBot)
					if overlap <= 0 {
						continue
					}
					gidBot := e.global(offsets, lz+1, bi)
					frac := overlap / areaTop
					top.Elements[ti].ContactsBot = append(top.Elements[ti].ContactsBot, ContactFraction{OtherID: gidBot, AreaFraction: frac})
					bot.Elements[bi].ContactsTop = append(bot.Elements[bi].ContactsTop, ContactFraction{OtherID: gidTop, AreaFraction: overlap / bot.Mesh.Area(triBot)})
					bot.Elements[bi].Neighbors[TopNeighborIndex] = gidBot // sentinel: resolved via ContactsTop
					sum.StackedContacts++

					matTop, err := e.Model.Materials.Get(top.Elements[ti].MatID)
					if err != nil {
						return err
					}
					matBot, err := e.Model.Materials.Get(bot.Elements[bi].MatID)
					if err != nil {
						return err
					}
					_, _, ktz := matTop.K.At(e.RefT)
					_, _, kbz := matBot.K.At(e.RefT)
					contactArea := overlap
					r := (0.5*top.Thickness)/(ktz*contactArea) + (0.5*bot.Thickness)/(kbz*contactArea)
					net.SetR(gidTop, gidBot, r)
					any = true
				}
				if any {
					top.Elements[ti].Neighbors[BotNeighborIndex] = gidTop // sentinel: resolved via ContactsBot
				}
			}
		}
	}
	return nil
}

// stampLines links each bondwire LineElement into its start/end prism
// elements and adds its Joule-heating contribution to hf.
func (e *Extractor) stampLines(net *network.ThermalNetwork, offsets []int, totalPrisms int, sum *Summary, tAt func(int) float64) error {
	for li, line := range e.Model.Lines {
		gid := totalPrisms + li
		mat, err := e.Model.Materials.Get(line.MatID)
		if err != nil {
			return err
		}
		kx, _, _ := mat.K.At(tAt(gid))
		length := dist3(line.Start, line.End)
		area := math.Pi * line.Radius * line.Radius
		vol := area * length
		net.SetC(gid, mat.RhoC(tAt(gid))*vol)

		rhoEl, _, _ := mat.RhoEl.At(tAt(gid))
		joule := line.Current * line.Current * rhoEl * length / area
		net.AddHF(gid, joule)
		sum.LineElementJoules += joule

		startGid := e.global(offsets, line.StartLayer, line.StartElement)
		endGid := e.global(offsets, line.EndLayer, line.EndElement)
		halfR := (length / 2) / (kx * area)
		net.SetR(gid, startGid, halfR)
		net.SetR(gid, endGid, halfR)
	}
	return nil
}

func dist3(a, b Point3D) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// applyFaceBC applies bc to every element's exposed top/bottom face in the
// given layer.
func (e *Extractor) applyFaceBC(net *network.ThermalNetwork, sum *bc.Summary, b bc.BoundaryCondition, layerIdx int, tAt func(int) float64) error {
	offsets, _ := e.globalOffsets()
	layer := e.Model.Layers[layerIdx]
	for ei := range layer.Elements {
		gid := e.global(offsets, layerIdx, ei)
		area := layer.Mesh.Area(layer.Elements[ei].TemplateID)
		if err := b.Apply(net, sum, gid, area, tAt(gid), ei, 0); err != nil {
			return err
		}
	}
	return nil
}
