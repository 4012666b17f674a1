package mesh

import (
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"gonum.org/v1/gonum/floats/scalar"
)

// indexedVertex is stored in the R-tree, keyed on its x-y position
type indexedVertex struct {
	geom.Point
	z  float64
	id int
}

// vertexIndex deduplicates vertex coordinates within a tolerance. Coordinates are
// indexed in the x-y plane, z is compared on lookup.
type vertexIndex struct {
	tree *rtree.Rtree
	tol  float64
}

func newVertexIndex(vertices [][3]float64, tol float64) (vi *vertexIndex) {
	vi = &vertexIndex{
		tree: rtree.NewTree(25, 50),
		tol:  tol,
	}
	for id, x := range vertices {
		vi.insert(x, id)
	}
	return
}

func (vi *vertexIndex) insert(x [3]float64, id int) {
	vi.tree.Insert(&indexedVertex{
		Point: geom.Point{X: x[0], Y: x[1]},
		z:     x[2],
		id:    id,
	})
}

// lookup returns the id of a stored vertex within tolerance of x
func (vi *vertexIndex) lookup(x [3]float64) (id int, found bool) {
	b := &geom.Bounds{
		Min: geom.Point{X: x[0] - vi.tol, Y: x[1] - vi.tol},
		Max: geom.Point{X: x[0] + vi.tol, Y: x[1] + vi.tol},
	}
	for _, g := range vi.tree.SearchIntersect(b) {
		v := g.(*indexedVertex)
		if scalar.EqualWithinAbs(v.X, x[0], vi.tol) &&
			scalar.EqualWithinAbs(v.Y, x[1], vi.tol) &&
			scalar.EqualWithinAbs(v.z, x[2], vi.tol) {
			return v.id, true
		}
	}
	return -1, false
}

// FindOrAddVertex returns the id of the vertex at x, appending it to the vertex table when new
func (m *GlobalMesh) FindOrAddVertex(x [3]float64) (id int) {
	if m.vindex == nil {
		m.vindex = newVertexIndex(m.Vertices, m.vertexTolerance())
	}
	var found bool
	if id, found = m.vindex.lookup(x); found {
		return
	}
	id = len(m.Vertices)
	m.Vertices = append(m.Vertices, x)
	m.vindex.insert(x, id)
	return
}

// vertexTolerance scales with the smallest cell diameter on the finest level
func (m *GlobalMesh) vertexTolerance() float64 {
	const relTol = 1.e-6
	if len(m.Levels) == 0 {
		return relTol
	}
	var (
		finest  = len(m.Levels) - 1
		minDiam = -1.
	)
	for i := range m.Levels[finest] {
		if d := m.Diameter(CellID{Level: finest, Index: i}); minDiam < 0 || d < minDiam {
			minDiam = d
		}
	}
	if minDiam <= 0 {
		return relTol
	}
	return relTol * minDiam
}
