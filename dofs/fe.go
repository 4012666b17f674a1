// Package dofs numbers the degrees of freedom of a continuous Lagrange element on a
// distributed mesh. A numbering that completes on every rank proves the mesh of each rank
// holds every neighbour its owned cells share degrees of freedom with.
package dofs

import (
	"fmt"

	"github.com/notargets/fdtria/mesh"
	"github.com/notargets/fdtria/tria"
	"github.com/notargets/fdtria/types"
)

// FEQ is the continuous tensor product Lagrange element of a given degree
type FEQ struct {
	Degree int
}

func (fe FEQ) String() string { return fmt.Sprintf("FE_Q(%d)", fe.Degree) }

// DofsPerEntity returns the number of degrees of freedom on the interior of an entity
// of dimension k: one per vertex, (p-1)^k otherwise
func (fe FEQ) DofsPerEntity(k int) (n int) {
	n = 1
	for i := 0; i < k; i++ {
		n *= fe.Degree - 1
	}
	return
}

// DofsPerCell returns the number of degrees of freedom of a cell of the given type
func (fe FEQ) DofsPerCell(et mesh.ElementType) (n int) {
	n = 1
	for i := 0; i < et.Dim(); i++ {
		n *= fe.Degree + 1
	}
	return
}

// entity identifies a vertex, edge, face or cell interior by global ids, the same on every rank
type entity struct {
	Dim    int
	Vertex int
	Edge   types.EdgeKey
	Face   types.FaceKey
	Cell   mesh.CellID
}

func (e entity) String() string {
	switch {
	case e.Cell.Valid():
		return fmt.Sprintf("interior of cell %s", e.Cell)
	case e.Dim == 0:
		return fmt.Sprintf("vertex %d", e.Vertex)
	case e.Dim == 1:
		v := e.Edge.GetVertices(false)
		return fmt.Sprintf("edge %d-%d", v[0], v[1])
	default:
		return fmt.Sprintf("face %v", e.Face.GetVertices())
	}
}

// entities returns the entities of a cell carrying degrees of freedom: vertices, then
// edges, then faces, then the interior
func (fe FEQ) entities(lm *tria.LocalMesh, c *tria.Cell) (ents []entity) {
	var (
		g   = lm.GlobalVertices(c)
		dim = c.Type.Dim()
	)
	for _, v := range g {
		ents = append(ents, entity{Dim: 0, Vertex: v, Cell: mesh.NoCell})
	}
	if fe.Degree < 2 {
		return
	}
	if dim >= 2 {
		for _, e := range mesh.GetElementEdges(c.Type, g) {
			ents = append(ents, entity{Dim: 1, Edge: types.NewEdgeKey(e), Cell: mesh.NoCell})
		}
	}
	if dim == 3 {
		for _, f := range mesh.GetElementFaces(c.Type, g) {
			ents = append(ents, entity{Dim: 2, Face: types.NewFaceKey(f), Cell: mesh.NoCell})
		}
	}
	return append(ents, entity{Dim: dim, Cell: c.ID})
}
