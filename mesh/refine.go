package mesh

import (
	"fmt"

	"github.com/notargets/fdtria/types"
)

// RefineGlobal splits every active cell of the finest level into 2^dim children, levels times.
// Children of parent i on level l are stored contiguously on level l+1, in child order.
func (m *GlobalMesh) RefineGlobal(levels int) error {
	if levels < 0 {
		return fmt.Errorf("number of refinements must be non-negative, have %d", levels)
	}
	if len(m.Levels) == 0 {
		return fmt.Errorf("cannot refine an empty mesh")
	}
	for i := 0; i < levels; i++ {
		m.refineOnce()
	}
	return nil
}

func (m *GlobalMesh) refineOnce() {
	var (
		coarse = len(m.Levels) - 1
		parent = m.Levels[coarse]
		fine   []Cell
	)
	// New vertices are at least half an edge apart from existing ones
	m.vindex = newVertexIndex(m.Vertices, 0.5*m.vertexTolerance())

	for pi := range parent {
		p := &parent[pi]
		if !p.Active() {
			continue
		}
		var (
			dim      = p.Type.Dim()
			nlattice = pow(3, dim)
			lattice  = make([]int, nlattice)
		)
		for li := 0; li < nlattice; li++ {
			lattice[li] = m.latticeVertex(p, li)
		}
		for c, childLattice := range p.Type.ChildLattice() {
			child := Cell{
				Type:     p.Type,
				Vertices: make([]int, len(childLattice)),
				Parent:   CellID{Level: coarse, Index: pi},
				Boundary: make([]types.BoundaryID, p.Type.NumFaces()),
			}
			for v, li := range childLattice {
				child.Vertices[v] = lattice[li]
			}
			for f := range child.Boundary {
				if ChildOnFace(c, f) {
					child.Boundary[f] = p.Boundary[f]
				} else {
					child.Boundary[f] = types.InteriorFace
				}
			}
			p.Children = append(p.Children, len(fine))
			fine = append(fine, child)
		}
	}
	m.Levels = append(m.Levels, fine)
}

// latticeVertex returns the global id of lattice point li of cell p. Lattice coordinates
// t_d in {0,1,2} map to reference coordinates t_d/2. Corners reuse the parent vertices.
func (m *GlobalMesh) latticeVertex(p *Cell, li int) int {
	var (
		dim    = p.Type.Dim()
		t      = unflatten(li, 3, dim)
		corner = true
		lv     int
	)
	for d := 0; d < dim; d++ {
		if t[d] == 1 {
			corner = false
			break
		}
		lv |= (t[d] / 2) << d
	}
	if corner {
		return p.Vertices[lv]
	}
	var x [3]float64
	for j, vid := range p.Vertices {
		w := 1.
		for d := 0; d < dim; d++ {
			xi := 0.5 * float64(t[d])
			if (j>>d)&1 == 1 {
				w *= xi
			} else {
				w *= 1 - xi
			}
		}
		if w == 0 {
			continue
		}
		for d := range x {
			x[d] += w * m.Vertices[vid][d]
		}
	}
	return m.FindOrAddVertex(x)
}
