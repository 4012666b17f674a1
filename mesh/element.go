package mesh

import "fmt"

// ElementType represents the tensor product element types used to build the hierarchy
type ElementType int

const (
	Line ElementType = iota
	Quad
	Hex
)

func (e ElementType) String() string {
	return [...]string{"Line", "Quad", "Hex"}[e]
}

// ElementForDim returns the hypercube element of the given spatial dimension
func ElementForDim(dim int) (ElementType, error) {
	switch dim {
	case 1:
		return Line, nil
	case 2:
		return Quad, nil
	case 3:
		return Hex, nil
	default:
		return Line, fmt.Errorf("unsupported spatial dimension %d, must be 1, 2 or 3", dim)
	}
}

func (e ElementType) Dim() int { return int(e) + 1 }

func (e ElementType) NumVertices() int { return 1 << e.Dim() }

func (e ElementType) NumFaces() int { return 2 * e.Dim() }

func (e ElementType) NumChildren() int { return 1 << e.Dim() }

/*
Vertices are numbered lexicographically: bit d of a local vertex index is the
coordinate of that vertex in direction d on the reference cell [0,1]^dim.

	Quad:  2 --- 3     Hex: the quad numbering at z=0 is 0..3, at z=1 is 4..7
	       |     |
	       0 --- 1

Face 2*d+s holds the vertices whose bit d equals s.
*/
var (
	faceTable  = [3][][]int{buildFaces(1), buildFaces(2), buildFaces(3)}
	edgeTable  = [3][][]int{buildEdges(1), buildEdges(2), buildEdges(3)}
	childTable = [3][][]int{buildChildren(1), buildChildren(2), buildChildren(3)}
)

func buildFaces(dim int) (faces [][]int) {
	nv := 1 << dim
	for d := 0; d < dim; d++ {
		for s := 0; s < 2; s++ {
			var f []int
			for v := 0; v < nv; v++ {
				if (v>>d)&1 == s {
					f = append(f, v)
				}
			}
			faces = append(faces, f)
		}
	}
	return
}

func buildEdges(dim int) (edges [][]int) {
	if dim < 2 {
		return nil
	}
	nv := 1 << dim
	for d := 0; d < dim; d++ {
		for v := 0; v < nv; v++ {
			if (v>>d)&1 == 0 {
				edges = append(edges, []int{v, v | 1<<d})
			}
		}
	}
	return
}

// buildChildren returns, for each child, the lattice index of each child vertex on the
// 3^dim lattice of points spanned by the parent, lattice coordinate per direction in {0,1,2}
func buildChildren(dim int) (children [][]int) {
	nc := 1 << dim
	for c := 0; c < nc; c++ {
		verts := make([]int, nc)
		for v := 0; v < nc; v++ {
			var (
				lattice int
				stride  = 1
			)
			for d := 0; d < dim; d++ {
				lattice += stride * ((c>>d)&1 + (v>>d)&1)
				stride *= 3
			}
			verts[v] = lattice
		}
		children = append(children, verts)
	}
	return
}

// FaceVertices returns the local vertex indices of every face
func (e ElementType) FaceVertices() [][]int { return faceTable[e] }

// EdgeVertices returns the local vertex pairs of every edge, nil for a Line
func (e ElementType) EdgeVertices() [][]int { return edgeTable[e] }

// ChildLattice returns for each child the lattice points of its vertices, see buildChildren
func (e ElementType) ChildLattice() [][]int { return childTable[e] }

// GetElementFaces returns the face vertices for an element with the given vertices
func GetElementFaces(elemType ElementType, vertices []int) [][]int {
	local := elemType.FaceVertices()
	faces := make([][]int, len(local))
	for i, f := range local {
		faces[i] = make([]int, len(f))
		for j, lv := range f {
			faces[i][j] = vertices[lv]
		}
	}
	return faces
}

// GetElementEdges returns the edge vertex pairs for an element with the given vertices
func GetElementEdges(elemType ElementType, vertices []int) [][2]int {
	local := elemType.EdgeVertices()
	edges := make([][2]int, len(local))
	for i, e := range local {
		edges[i] = [2]int{vertices[e[0]], vertices[e[1]]}
	}
	return edges
}

// ChildOnFace reports whether child c of a cell touches face f of its parent
func ChildOnFace(c, f int) bool {
	d, s := f/2, f%2
	return (c>>d)&1 == s
}
