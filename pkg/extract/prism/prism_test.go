package prism

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecad-oss/thermalnet/pkg/material"
	"github.com/ecad-oss/thermalnet/pkg/triangulation"
)

func singleTriangleMesh(a, b, c triangulation.Point) *triangulation.Mesh {
	return &triangulation.Mesh{
		Points:    []triangulation.Point{a, b, c},
		Triangles: []triangulation.Triangle{{V: [3]int{0, 1, 2}, Neighbors: [3]int{-1, -1, -1}}},
	}
}

func copperDB() *material.DB {
	db := material.NewDB()
	db.Add(material.Material{ID: 1, K: material.NewScalar(400), Rho: material.NewScalar(1), C: material.NewScalar(1), RhoEl: material.NewScalar(1.7e-8)})
	return db
}

func TestBuildSingleTemplateVerticalResistance(t *testing.T) {
	mesh := singleTriangleMesh(triangulation.Point{0, 0}, triangulation.Point{1, 0}, triangulation.Point{0, 1})
	const thickness = 0.002

	m := Model{
		Materials:    copperDB(),
		VerticalMode: SingleTemplate,
		Layers: []PrismaLayer{
			{Thickness: thickness, Mesh: mesh, Elements: []PrismaElement{{TemplateID: 0, MatID: 1}}},
			{Thickness: thickness, Mesh: mesh, Elements: []PrismaElement{{TemplateID: 0, MatID: 1}}},
		},
	}
	ext := New(m, 300)
	net, sum, err := ext.Build(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalNodes)

	ns, rs := net.Node(0).Neighbors()
	require.Len(t, ns, 1)
	assert.Equal(t, 1, ns[0])

	area := mesh.Area(0)
	want := (0.5*thickness)/(400*area) + (0.5*thickness)/(400*area)
	assert.InDelta(t, want, rs[0], 1e-12)
}

func TestBuildStackedContactAreaFractionMatchesOverlap(t *testing.T) {
	topMesh := singleTriangleMesh(triangulation.Point{0, 0}, triangulation.Point{4, 0}, triangulation.Point{0, 4})
	botMesh := singleTriangleMesh(triangulation.Point{0, 0}, triangulation.Point{2, 0}, triangulation.Point{0, 2})

	m := Model{
		Materials:    copperDB(),
		VerticalMode: Stacked,
		Layers: []PrismaLayer{
			{Thickness: 0.001, Mesh: topMesh, Elements: []PrismaElement{{TemplateID: 0, MatID: 1}}},
			{Thickness: 0.001, Mesh: botMesh, Elements: []PrismaElement{{TemplateID: 0, MatID: 1}}},
		},
	}
	ext := New(m, 300)
	_, sum, err := ext.Build(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.StackedContacts)

	require.Len(t, m.Layers[0].Elements[0].ContactsBot, 1)
	assert.InDelta(t, 0.25, m.Layers[0].Elements[0].ContactsBot[0].AreaFraction, 1e-9)
	assert.Equal(t, BotNeighborIndex, BotNeighborIndex) // sentinel slot is the reserved index
	assert.Equal(t, 0, m.Layers[0].Elements[0].Neighbors[BotNeighborIndex]) // the top element's own global id 0, used as the "resolved via contacts" sentinel
}

func TestBuildLineElementJouleHeatingAndCapacitance(t *testing.T) {
	mesh := singleTriangleMesh(triangulation.Point{0, 0}, triangulation.Point{1, 0}, triangulation.Point{0, 1})
	m := Model{
		Materials:    copperDB(),
		VerticalMode: SingleTemplate,
		Layers: []PrismaLayer{
			{Thickness: 0.001, Mesh: mesh, Elements: []PrismaElement{{TemplateID: 0, MatID: 1}}},
		},
		Lines: []LineElement{
			{
				MatID: 1, Radius: 0.0001, Current: 2.0,
				Start: Point3D{0, 0, 0}, End: Point3D{0, 0, 0.01},
				StartLayer: 0, StartElement: 0,
				EndLayer: 0, EndElement: 0,
			},
		},
	}
	ext := New(m, 300)
	net, sum, err := ext.Build(nil)
	require.NoError(t, err)
	require.Equal(t, 2, net.Size()) // 1 prism element + 1 line element

	lineNode := net.Node(1)
	assert.Greater(t, lineNode.HF, 0.0, "Joule heating must inject positive heat flow")
	assert.Greater(t, lineNode.C, 0.0)
	assert.Greater(t, sum.LineElementJoules, 0.0)

	ns, _ := lineNode.Neighbors()
	assert.Contains(t, ns, 0, "line element must link back to its start/end prism element")
}
