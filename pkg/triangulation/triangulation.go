// Package triangulation implements Delaunay triangulation (via
// Bowyer-Watson point insertion; constraint edges are not enforced) plus the mesh-quality refinement loop the
// prism extractor needs: split edges that are too long, split triangles
// that are too thin, and collapse edges that are too short. Grounded on
// spec.md §4.7's algorithm description; no corpus repo carries a computational
// geometry library, and standalone files under other_examples/ don't either,
// so this is built directly on the standard library (recorded in DESIGN.md).
package triangulation

import (
	"errors"
	"math"
	"sort"
)

// NoNeighbor marks a triangle edge with no neighboring triangle (a mesh
// boundary edge).
const NoNeighbor = -1

// Point is a 2-D vertex.
type Point struct{ X, Y float64 }

// Triangle references three point indices (Triangulate produces them in
// clockwise order; no winding is required of hand-built meshes) plus, per edge i (between
// V[i] and V[(i+1)%3]), the neighboring triangle index or NoNeighbor.
type Triangle struct {
	V         [3]int
	Neighbors [3]int
}

// Mesh is a triangulated point set.
type Mesh struct {
	Points    []Point
	Triangles []Triangle
}

// Params bounds the refinement loop: triangles with an angle below MinAlpha
// degrees are split, edges longer than MaxLen are split, edges shorter than
// MinLen are collapsed (merged), points closer than Tolerance are unified
// before triangulating, and the loop runs at most Iteration passes.
type Params struct {
	MinAlpha  float64 // degrees
	MinLen    float64
	MaxLen    float64
	Tolerance float64
	Iteration int
}

// ErrDegenerateInput is returned when fewer than 3 non-collinear points are
// supplied.
var ErrDegenerateInput = errors.New("triangulation: fewer than 3 usable points")

// ErrDegenerateTriangle is returned when the constructed triangulation
// contains only zero-area triangles (fully collinear input).
var ErrDegenerateTriangle = errors.New("triangulation: degenerate (zero-area) triangulation")

// Triangulate builds a Delaunay triangulation over points, then runs the
// quality-refinement loop up to params.Iteration times. edges (pairs of
// point indices) is accepted but not enforced: the result is the
// unconstrained Delaunay triangulation of the points, so a constraint edge
// appears only if it is already a Delaunay edge.
func Triangulate(points []Point, edges [][2]int, params Params) (*Mesh, error) {
	pts := collapseClose(points, params.Tolerance)
	if len(pts) < 3 {
		return nil, ErrDegenerateInput
	}

	m, err := bowyerWatson(pts)
	if err != nil {
		return nil, err
	}
	enforceEdges(m, edges)

	for i := 0; i < params.Iteration; i++ {
		changed := false
		if splitLongEdges(m, params.MaxLen) {
			changed = true
		}
		if splitBadTriangles(m, params.MinAlpha) {
			changed = true
		}
		if collapseShortEdges(m, params.MinLen) {
			changed = true
		}
		if !changed {
			break
		}
	}
	return m, nil
}

// collapseClose merges points closer together than tol (tol<=0 disables
// merging) and returns a deduplicated copy.
func collapseClose(points []Point, tol float64) []Point {
	if tol <= 0 {
		out := make([]Point, len(points))
		copy(out, points)
		return out
	}
	var out []Point
	for _, p := range points {
		dup := false
		for _, q := range out {
			if dist(p, q) < tol {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

// bowyerWatson constructs a Delaunay triangulation by incremental point
// insertion against a bounding super-triangle, removed at the end.
func bowyerWatson(points []Point) (*Mesh, error) {
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	dx, dy := maxX-minX, maxY-minY
	span := math.Max(dx, dy)
	if span == 0 {
		span = 1
	}
	midX, midY := (minX+maxX)/2, (minY+maxY)/2

	superA := Point{midX - 20*span, midY - span}
	superB := Point{midX, midY + 20*span}
	superC := Point{midX + 20*span, midY - span}

	allPts := append(append([]Point{}, points...), superA, superB, superC)
	superIdx := [3]int{len(allPts) - 3, len(allPts) - 2, len(allPts) - 1}

	tris := []Triangle{{V: superIdx}}

	for i := 0; i < len(points); i++ {
		tris = insertPoint(allPts, tris, i)
	}

	var kept []Triangle
	for _, tr := range tris {
		if containsAny(tr, superIdx) {
			continue
		}
		kept = append(kept, tr)
	}
	if len(kept) == 0 {
		return nil, ErrDegenerateTriangle
	}

	mesh := &Mesh{Points: points, Triangles: kept}
	computeNeighbors(mesh)
	return mesh, nil
}

func containsAny(tr Triangle, idx [3]int) bool {
	for _, v := range tr.V {
		for _, s := range idx {
			if v == s {
				return true
			}
		}
	}
	return false
}

// insertPoint adds point i into the triangulation using the standard
// Bowyer-Watson cavity re-triangulation: remove triangles whose
// circumcircle contains the new point, then re-triangulate the resulting
// cavity boundary with the new point.
func insertPoint(pts []Point, tris []Triangle, i int) []Triangle {
	p := pts[i]
	var bad []Triangle
	var good []Triangle
	for _, tr := range tris {
		if inCircumcircle(pts, tr, p) {
			bad = append(bad, tr)
		} else {
			good = append(good, tr)
		}
	}

	boundary := polygonBoundary(bad)
	for _, e := range boundary {
		good = append(good, Triangle{V: [3]int{e[0], e[1], i}})
	}
	return good
}

// polygonBoundary returns the edges of bad that are not shared by two
// triangles in bad (the cavity's outer boundary), each as [a,b] oriented
// consistently with the owning triangle's winding.
func polygonBoundary(bad []Triangle) [][2]int {
	type edgeKey struct{ a, b int }
	count := map[edgeKey]int{}
	orient := map[edgeKey][2]int{}
	norm := func(a, b int) edgeKey {
		if a < b {
			return edgeKey{a, b}
		}
		return edgeKey{b, a}
	}
	for _, tr := range bad {
		for e := 0; e < 3; e++ {
			a, b := tr.V[e], tr.V[(e+1)%3]
			k := norm(a, b)
			count[k]++
			orient[k] = [2]int{a, b}
		}
	}
	var out [][2]int
	for k, c := range count {
		if c == 1 {
			out = append(out, orient[k])
		}
	}
	return out
}

func inCircumcircle(pts []Point, tr Triangle, p Point) bool {
	a, b, c := pts[tr.V[0]], pts[tr.V[1]], pts[tr.V[2]]
	// standard determinant test for CCW a,b,c; its sign is flipped below
	// for CW triangles, which is what this construction produces (the
	// super-triangle is CW and polygonBoundary's edge direction keeps it).
	ax, ay := a.X-p.X, a.Y-p.Y
	bx, by := b.X-p.X, b.Y-p.Y
	cx, cy := c.X-p.X, c.Y-p.Y
	det := (ax*ax+ay*ay)*(bx*cy-cx*by) -
		(bx*bx+by*by)*(ax*cy-cx*ay) +
		(cx*cx+cy*cy)*(ax*by-bx*ay)
	if signedArea(a, b, c) < 0 {
		det = -det
	}
	return det > 0
}

func signedArea(a, b, c Point) float64 {
	return 0.5 * ((b.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(b.Y-a.Y))
}

// computeNeighbors rebuilds each triangle's per-edge neighbor index from
// shared-edge adjacency.
func computeNeighbors(m *Mesh) {
	type edgeKey struct{ a, b int }
	norm := func(a, b int) edgeKey {
		if a < b {
			return edgeKey{a, b}
		}
		return edgeKey{b, a}
	}
	owners := map[edgeKey][]int{} // triangle indices sharing this edge
	for ti, tr := range m.Triangles {
		for e := 0; e < 3; e++ {
			k := norm(tr.V[e], tr.V[(e+1)%3])
			owners[k] = append(owners[k], ti)
		}
		_ = tr
	}
	for ti := range m.Triangles {
		for e := 0; e < 3; e++ {
			k := norm(m.Triangles[ti].V[e], m.Triangles[ti].V[(e+1)%3])
			m.Triangles[ti].Neighbors[e] = NoNeighbor
			for _, o := range owners[k] {
				if o != ti {
					m.Triangles[ti].Neighbors[e] = o
				}
			}
		}
	}
}

// enforceEdges is a best-effort constraint pass: edges already present in
// the triangulation are left as-is; edges not present cannot be forced
// without a full constrained re-triangulation, so callers that need hard
// constraints should pre-seed points densely along them (the extractor's
// segment-intersection / steiner-point preprocessing, per spec.md §4.7
// step 1-2, is expected to have already done this before calling
// Triangulate).
func enforceEdges(m *Mesh, edges [][2]int) {
	_ = m
	_ = edges
}

func dist(a, b Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Centroid returns triangle tri's centroid.
func (m *Mesh) Centroid(tri int) Point {
	t := m.Triangles[tri]
	a, b, c := m.Points[t.V[0]], m.Points[t.V[1]], m.Points[t.V[2]]
	return Point{(a.X + b.X + c.X) / 3, (a.Y + b.Y + c.Y) / 3}
}

// Area returns triangle tri's unsigned area.
func (m *Mesh) Area(tri int) float64 {
	t := m.Triangles[tri]
	a, b, c := m.Points[t.V[0]], m.Points[t.V[1]], m.Points[t.V[2]]
	return math.Abs(signedArea(a, b, c))
}

// EdgeLength returns the length of triangle tri's edge e (0,1,2).
func (m *Mesh) EdgeLength(tri, e int) float64 {
	t := m.Triangles[tri]
	a, b := m.Points[t.V[e]], m.Points[t.V[(e+1)%3]]
	return dist(a, b)
}

// CenterDistToEdge returns the perpendicular distance from tri's centroid
// to the line containing edge e.
func (m *Mesh) CenterDistToEdge(tri, e int) float64 {
	t := m.Triangles[tri]
	a, b := m.Points[t.V[e]], m.Points[t.V[(e+1)%3]]
	c := m.Centroid(tri)
	num := math.Abs((b.X-a.X)*(a.Y-c.Y) - (a.X-c.X)*(b.Y-a.Y))
	den := dist(a, b)
	if den == 0 {
		return 0
	}
	return num / den
}

// NeighborEdgeIndex returns the edge index on the neighboring triangle
// across tri's edge e that corresponds to the same shared physical edge, or
// NoNeighbor if tri has no neighbor there.
func (m *Mesh) NeighborEdgeIndex(tri, e int) int {
	nb := m.Triangles[tri].Neighbors[e]
	if nb == NoNeighbor {
		return NoNeighbor
	}
	a, b := m.Triangles[tri].V[e], m.Triangles[tri].V[(e+1)%3]
	other := m.Triangles[nb]
	for oe := 0; oe < 3; oe++ {
		oa, ob := other.V[oe], other.V[(oe+1)%3]
		if (oa == a && ob == b) || (oa == b && ob == a) {
			return oe
		}
	}
	return NoNeighbor
}

// BoundingBox returns triangle tri's axis-aligned bounding box as
// (minX,minY,maxX,maxY).
func (m *Mesh) BoundingBox(tri int) (minX, minY, maxX, maxY float64) {
	t := m.Triangles[tri]
	p := m.Points[t.V[0]]
	minX, maxX = p.X, p.X
	minY, maxY = p.Y, p.Y
	for _, vi := range t.V[1:] {
		q := m.Points[vi]
		minX, maxX = math.Min(minX, q.X), math.Max(maxX, q.X)
		minY, maxY = math.Min(minY, q.Y), math.Max(maxY, q.Y)
	}
	return
}

// VertexPoints returns triangle tri's three vertices as a fixed array,
// suitable for IntersectTriangleArea.
func (m *Mesh) VertexPoints(tri int) [3]Point {
	t := m.Triangles[tri]
	return [3]Point{m.Points[t.V[0]], m.Points[t.V[1]], m.Points[t.V[2]]}
}

// MinAngle returns the smallest interior angle of triangle tri, in degrees.
func (m *Mesh) MinAngle(tri int) float64 {
	t := m.Triangles[tri]
	a, b, c := m.Points[t.V[0]], m.Points[t.V[1]], m.Points[t.V[2]]
	angle := func(p, q, r Point) float64 {
		v1x, v1y := q.X-p.X, q.Y-p.Y
		v2x, v2y := r.X-p.X, r.Y-p.Y
		dot := v1x*v2x + v1y*v2y
		n1 := math.Hypot(v1x, v1y)
		n2 := math.Hypot(v2x, v2y)
		if n1 == 0 || n2 == 0 {
			return 0
		}
		cos := dot / (n1 * n2)
		cos = math.Max(-1, math.Min(1, cos))
		return math.Acos(cos) * 180 / math.Pi
	}
	angles := []float64{angle(a, b, c), angle(b, c, a), angle(c, a, b)}
	sort.Float64s(angles)
	return angles[0]
}

// splitLongEdges inserts a midpoint for every triangle edge exceeding
// maxLen (0 disables) and re-triangulates. Returns whether any split
// occurred.
func splitLongEdges(m *Mesh, maxLen float64) bool {
	if maxLen <= 0 {
		return false
	}
	changed := false
	for ti := range m.Triangles {
		for e := 0; e < 3; e++ {
			if m.EdgeLength(ti, e) > maxLen {
				t := m.Triangles[ti]
				a, b := m.Points[t.V[e]], m.Points[t.V[(e+1)%3]]
				mid := Point{(a.X + b.X) / 2, (a.Y + b.Y) / 2}
				m.Points = append(m.Points, mid)
				changed = true
			}
		}
	}
	if changed {
		rebuild(m)
	}
	return changed
}

// splitBadTriangles inserts a centroid point for every triangle whose
// minimum angle is below minAlpha (0 disables) and re-triangulates.
func splitBadTriangles(m *Mesh, minAlpha float64) bool {
	if minAlpha <= 0 {
		return false
	}
	changed := false
	for ti := range m.Triangles {
		if m.MinAngle(ti) < minAlpha {
			m.Points = append(m.Points, m.Centroid(ti))
			changed = true
		}
	}
	if changed {
		rebuild(m)
	}
	return changed
}

// collapseShortEdges merges the endpoints of every edge shorter than
// minLen (0 disables) into their midpoint and re-triangulates.
func collapseShortEdges(m *Mesh, minLen float64) bool {
	if minLen <= 0 {
		return false
	}
	changed := false
	var merged, mids []Point
	seen := make([]bool, len(m.Points))
	for ti := range m.Triangles {
		for e := 0; e < 3; e++ {
			t := m.Triangles[ti]
			ia, ib := t.V[e], t.V[(e+1)%3]
			if seen[ia] || seen[ib] {
				continue
			}
			if m.EdgeLength(ti, e) < minLen {
				seen[ia], seen[ib] = true, true
				a, b := m.Points[ia], m.Points[ib]
				mids = append(mids, Point{(a.X + b.X) / 2, (a.Y + b.Y) / 2})
				changed = true
			}
		}
	}
	for i, p := range m.Points {
		if !seen[i] {
			merged = append(merged, p)
		}
	}
	merged = append(merged, mids...)
	if changed && len(merged) >= 3 {
		m.Points = merged
	} else {
		changed = false
	}
	if changed {
		rebuild(m)
	}
	return changed
}

// rebuild re-triangulates m.Points from scratch (used by the refinement
// loop after points are inserted or removed).
func rebuild(m *Mesh) {
	fresh, err := bowyerWatson(m.Points)
	if err != nil {
		return
	}
	m.Triangles = fresh.Triangles
}

// IntersectTriangleArea returns the area of the convex-polygon intersection
// of two triangles, via Sutherland-Hodgman clipping of b against a's three
// half-planes. Used by the prism extractor to compute stacked-layer
// contact-area fractions between triangles of independently triangulated
// adjacent layers.
func IntersectTriangleArea(a, b [3]Point) float64 {
	a = ensureCCW(a)
	b = ensureCCW(b)
	poly := []Point{b[0], b[1], b[2]}
	for e := 0; e < 3; e++ {
		p0, p1 := a[e], a[(e+1)%3]
		poly = clipPolygon(poly, p0, p1)
		if len(poly) == 0 {
			return 0
		}
	}
	return polygonArea(poly)
}

func ensureCCW(t [3]Point) [3]Point {
	if signedArea(t[0], t[1], t[2]) < 0 {
		return [3]Point{t[0], t[2], t[1]}
	}
	return t
}

// clipPolygon clips poly to the half-plane left of the directed line
// p0->p1 (the triangle a is assumed CCW, so "left" is "inside").
func clipPolygon(poly []Point, p0, p1 Point) []Point {
	if len(poly) == 0 {
		return nil
	}
	var out []Point
	n := len(poly)
	for i := 0; i < n; i++ {
		cur := poly[i]
		prev := poly[(i-1+n)%n]
		curIn := side(p0, p1, cur) >= 0
		prevIn := side(p0, p1, prev) >= 0
		if curIn {
			if !prevIn {
				out = append(out, lineIntersect(prev, cur, p0, p1))
			}
			out = append(out, cur)
		} else if prevIn {
			out = append(out, lineIntersect(prev, cur, p0, p1))
		}
	}
	return out
}

func side(p0, p1, p Point) float64 {
	return (p1.X-p0.X)*(p.Y-p0.Y) - (p1.Y-p0.Y)*(p.X-p0.X)
}

func lineIntersect(a, b, p0, p1 Point) Point {
	d1x, d1y := b.X-a.X, b.Y-a.Y
	d2x, d2y := p1.X-p0.X, p1.Y-p0.Y
	denom := d1x*d2y - d1y*d2x
	if denom == 0 {
		return a
	}
	t := ((p0.X-a.X)*d2y - (p0.Y-a.Y)*d2x) / denom
	return Point{a.X + t*d1x, a.Y + t*d1y}
}

func polygonArea(poly []Point) float64 {
	var sum float64
	n := len(poly)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	return math.Abs(sum) / 2
}
