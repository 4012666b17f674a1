package mesh

import (
	"fmt"

	"github.com/notargets/fdtria/types"
)

// SubdividedHyperCube creates the coarse mesh of [left,right]^dim split into n cells per direction.
// Boundary faces are colorized: the face normal to direction d carries id 2*d on the low side
// and 2*d+1 on the high side.
func SubdividedHyperCube(dim, n int, left, right float64) (m *GlobalMesh, err error) {
	var elemType ElementType
	if elemType, err = ElementForDim(dim); err != nil {
		return
	}
	if n < 1 {
		err = fmt.Errorf("number of subdivisions must be positive, have %d", n)
		return
	}
	if !(right > left) {
		err = fmt.Errorf("invalid hypercube extent [%g,%g]", left, right)
		return
	}
	m = &GlobalMesh{Dim: dim}

	// Vertices of the (n+1)^dim lattice, x fastest
	var (
		np     = n + 1
		nverts = pow(np, dim)
		h      = (right - left) / float64(n)
	)
	m.Vertices = make([][3]float64, nverts)
	for v := 0; v < nverts; v++ {
		ijk := unflatten(v, np, dim)
		for d := 0; d < dim; d++ {
			m.Vertices[v][d] = left + float64(ijk[d])*h
		}
	}

	var (
		ncells = pow(n, dim)
		cells  = make([]Cell, ncells)
	)
	for c := 0; c < ncells; c++ {
		ijk := unflatten(c, n, dim)
		cell := Cell{
			Type:     elemType,
			Vertices: make([]int, elemType.NumVertices()),
			Parent:   NoCell,
			Boundary: make([]types.BoundaryID, elemType.NumFaces()),
		}
		for lv := range cell.Vertices {
			var corner [3]int
			for d := 0; d < dim; d++ {
				corner[d] = ijk[d] + (lv>>d)&1
			}
			cell.Vertices[lv] = flatten(corner, np, dim)
		}
		for f := range cell.Boundary {
			d, s := f/2, f%2
			switch {
			case s == 0 && ijk[d] == 0:
				cell.Boundary[f] = types.HypercubeBoundary(d, 0)
			case s == 1 && ijk[d] == n-1:
				cell.Boundary[f] = types.HypercubeBoundary(d, 1)
			default:
				cell.Boundary[f] = types.InteriorFace
			}
		}
		cells[c] = cell
	}
	m.Levels = [][]Cell{cells}
	return
}

func pow(base, exp int) (r int) {
	r = 1
	for i := 0; i < exp; i++ {
		r *= base
	}
	return
}

func unflatten(idx, n, dim int) (ijk [3]int) {
	for d := 0; d < dim; d++ {
		ijk[d] = idx % n
		idx /= n
	}
	return
}

func flatten(ijk [3]int, n, dim int) (idx int) {
	stride := 1
	for d := 0; d < dim; d++ {
		idx += ijk[d] * stride
		stride *= n
	}
	return
}
