package prism

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecad-oss/thermalnet/pkg/layout"
	"github.com/ecad-oss/thermalnet/pkg/triangulation"
)

// square returns a 2x2 axis-aligned square's outer ring, whose unconstrained
// Delaunay triangulation always splits into exactly two triangles via one
// diagonal or the other — and either choice puts one triangle's centroid at
// x<1 and the other's at x>1, so ownership tests below don't depend on which
// diagonal the triangulator happens to pick.
func square() []layout.Point2D {
	return []layout.Point2D{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}}
}

func TestFromLayoutTagsOwnershipAndPower(t *testing.T) {
	stack := layout.LayerStack{
		{Name: "L0", Elevation: 0, Thickness: 0.001},
		{Name: "L1", Elevation: 0.001, Thickness: 0.001},
	}
	polys := []layout.Polygon{
		{
			Layer: 0, Material: 1, Net: 10, Outer: square(),
			PowerBlock: &layout.PowerBlock{Table: map[float64]float64{25: 1.0, 100: 2.0}},
		},
		{Layer: 1, Material: 2, Net: 20, Outer: square()},
	}
	comps := []layout.Component{
		{
			Box:            layout.BBox{MinX: 0, MinY: 0, MaxX: 1, MaxY: 2},
			PlacementLayer: 0,
			PowerTable:     map[float64]float64{25: 5.0, 100: 6.0},
		},
	}
	wires := []layout.Bondwire{
		{
			Net:      1,
			Start:    layout.Point3D{X: 0.2, Y: 1, Z: 0.0005},
			End:      layout.Point3D{X: 0.2, Y: 1, Z: 0.0015},
			Radius:   1e-5,
			Current:  0.1,
			Material: 1,
		},
	}
	params := triangulation.Params{}

	m, err := FromLayout(stack, polys, comps, wires, layout.BoundaryConditions{}, nil, params)
	require.NoError(t, err)
	require.Len(t, m.Layers, 2)
	require.Equal(t, Stacked, m.VerticalMode)

	layer0 := m.Layers[0]
	require.Len(t, layer0.Elements, 2)

	var left, right *PrismaElement
	var leftIdx int
	for i := range layer0.Elements {
		e := &layer0.Elements[i]
		c := layer0.Mesh.Centroid(e.TemplateID)
		if c.X < 1 {
			left, leftIdx = e, i
		} else {
			right = e
		}
	}
	require.NotNil(t, left)
	require.NotNil(t, right)

	assert.Equal(t, 10, left.NetID)
	assert.Equal(t, 1, left.MatID)
	assert.Equal(t, 10, right.NetID)
	assert.Equal(t, 1, right.MatID)

	require.NotNil(t, left.Power)
	v, ok := left.Power.Query(25, 0, 0)
	assert.True(t, ok)
	assert.Equal(t, 5.0, v) // component's table wins inside its box

	require.NotNil(t, right.Power)
	v, ok = right.Power.Query(25, 0, 0)
	assert.True(t, ok)
	assert.Equal(t, 1.0, v) // outside the component box, the polygon's own table stands

	assert.InDelta(t, 1.0, left.PowerRatio, 1e-9) // sole element inside the component's box
	assert.InDelta(t, 0.5, right.PowerRatio, 1e-9)

	layer1 := m.Layers[1]
	require.Len(t, layer1.Elements, 2)
	for _, e := range layer1.Elements {
		assert.Equal(t, 20, e.NetID)
		assert.Nil(t, e.Power)
	}

	require.Len(t, m.Lines, 1)
	line := m.Lines[0]
	assert.Equal(t, 0, line.StartLayer)
	assert.Equal(t, 1, line.EndLayer)
	assert.Equal(t, leftIdx, line.StartElement)

	endC := layer1.Mesh.Centroid(layer1.Elements[line.EndElement].TemplateID)
	assert.Less(t, endC.X, 1.0)
}
