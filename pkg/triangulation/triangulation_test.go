package triangulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriangulateUnitSquareCoversFullArea(t *testing.T) {
	pts := []Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	mesh, err := Triangulate(pts, nil, Params{})
	require.NoError(t, err)
	require.NotEmpty(t, mesh.Triangles)

	var total float64
	for i := range mesh.Triangles {
		total += mesh.Area(i)
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestTriangulateNeighborsAreSymmetric(t *testing.T) {
	pts := []Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {1, 1}}
	mesh, err := Triangulate(pts, nil, Params{})
	require.NoError(t, err)

	for ti, tr := range mesh.Triangles {
		for e, nb := range tr.Neighbors {
			if nb == NoNeighbor {
				continue
			}
			found := false
			for _, backNb := range mesh.Triangles[nb].Neighbors {
				if backNb == ti {
					found = true
				}
			}
			assert.True(t, found, "triangle %d edge %d neighbor %d does not report back", ti, e, nb)
		}
	}
}

func TestIntersectTriangleAreaQuarterOverlap(t *testing.T) {
	a := [3]Point{{0, 0}, {4, 0}, {0, 4}}
	b := [3]Point{{0, 0}, {2, 0}, {0, 2}}

	area := IntersectTriangleArea(a, b)
	assert.InDelta(t, 2.0, area, 1e-9)

	areaA := 0.5 * 4 * 4
	fraction := area / areaA
	assert.InDelta(t, 0.25, fraction, 1e-9)
}

func TestIntersectTriangleAreaDisjointIsZero(t *testing.T) {
	a := [3]Point{{0, 0}, {1, 0}, {0, 1}}
	b := [3]Point{{10, 10}, {11, 10}, {10, 11}}
	assert.Equal(t, 0.0, IntersectTriangleArea(a, b))
}

func TestRefinementSplitsLongEdges(t *testing.T) {
	pts := []Point{{0, 0}, {10, 0}, {0, 10}}
	mesh, err := Triangulate(pts, nil, Params{MaxLen: 5, Iteration: 3})
	require.NoError(t, err)

	maxEdge := 0.0
	for ti := range mesh.Triangles {
		for e := 0; e < 3; e++ {
			if l := mesh.EdgeLength(ti, e); l > maxEdge {
				maxEdge = l
			}
		}
	}
	assert.Less(t, maxEdge, 10.0, "refinement should shorten the longest edge from the unrefined 10")
}
