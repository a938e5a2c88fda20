package vtk

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecad-oss/thermalnet/pkg/extract/prism"
	"github.com/ecad-oss/thermalnet/pkg/triangulation"
)

func oneTriangleLayer(elevation, thickness float64) prism.PrismaLayer {
	mesh := &triangulation.Mesh{
		Points:    []triangulation.Point{{0, 0}, {1, 0}, {0, 1}},
		Triangles: []triangulation.Triangle{{V: [3]int{0, 1, 2}, Neighbors: [3]int{-1, -1, -1}}},
	}
	return prism.PrismaLayer{
		Elevation: elevation,
		Thickness: thickness,
		Mesh:      mesh,
		Elements:  []prism.PrismaElement{{TemplateID: 0, MatID: 1}},
	}
}

func TestBuildFromPrismRejectsStackedMode(t *testing.T) {
	m := prism.Model{
		VerticalMode: prism.Stacked,
		Layers:       []prism.PrismaLayer{oneTriangleLayer(0, 0.001), oneTriangleLayer(0.001, 0.001)},
	}
	_, err := BuildFromPrism(m, nil)
	assert.Error(t, err)
}

func TestBuildFromPrismProducesOneWedgePerLayerPair(t *testing.T) {
	m := prism.Model{
		VerticalMode: prism.SingleTemplate,
		Layers:       []prism.PrismaLayer{oneTriangleLayer(0, 0.001), oneTriangleLayer(0.001, 0.001), oneTriangleLayer(0.002, 0.001)},
	}
	mesh, err := BuildFromPrism(m, []float64{310, 305, 300})
	require.NoError(t, err)
	require.Len(t, mesh.Cells, 2)
	assert.Equal(t, 310.0, mesh.CellTemps[0])
	assert.Equal(t, 305.0, mesh.CellTemps[1])

	// 3 points per layer, 3 layers, but layers 0-1 and 1-2 share no points
	// (different elevations), so no dedup should occur across layers.
	assert.Len(t, mesh.Points, 9)
}

func TestWriteLegacyASCIIProducesWellFormedSections(t *testing.T) {
	m := prism.Model{
		VerticalMode: prism.SingleTemplate,
		Layers:       []prism.PrismaLayer{oneTriangleLayer(0, 0.001), oneTriangleLayer(0.001, 0.001)},
	}
	mesh, err := BuildFromPrism(m, []float64{400, 390})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteLegacyASCII(&buf, mesh))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# vtk DataFile Version 3.0\n"))
	assert.Contains(t, out, "DATASET UNSTRUCTURED_GRID")
	assert.Contains(t, out, "POINTS 6 float")
	assert.Contains(t, out, "CELLS 1 7")
	assert.Contains(t, out, "CELL_TYPES 1\n13")
	assert.Contains(t, out, "CELL_DATA 1")
	assert.Contains(t, out, "SCALARS temperature float 1")
	assert.Contains(t, out, "400")
}

func TestWriteLegacyASCIIRejectsMismatchedTemps(t *testing.T) {
	mesh := Mesh{
		Points:    []Point3D{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 0, 1}, {0, 1, 1}},
		Cells:     []Wedge{{0, 1, 2, 3, 4, 5}},
		CellTemps: nil,
	}
	var buf bytes.Buffer
	assert.Error(t, WriteLegacyASCII(&buf, mesh))
}
