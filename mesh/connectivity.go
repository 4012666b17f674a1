package mesh

import (
	"github.com/notargets/fdtria/types"
)

// FaceConnectivity holds the element to element connectivity of a set of cells
type FaceConnectivity struct {
	EToE [][]int // Element to element connectivity [ncells][nfaces], -1 where no neighbor was found
	EToF [][]int // Neighbor's local face index across each face, -1 where no neighbor was found
}

// BuildFaceConnectivity matches faces of the given cells by their sorted vertex keys.
// Cells are given by type and global vertex list.
func BuildFaceConnectivity(elemTypes []ElementType, conn [][]int) (fc FaceConnectivity) {
	type faceRef struct {
		elem, local int
	}
	var (
		ne      = len(conn)
		faceMap = make(map[types.FaceKey]faceRef)
	)
	fc.EToE = make([][]int, ne)
	fc.EToF = make([][]int, ne)
	for elemID := 0; elemID < ne; elemID++ {
		faceVertices := GetElementFaces(elemTypes[elemID], conn[elemID])

		fc.EToE[elemID] = make([]int, len(faceVertices))
		fc.EToF[elemID] = make([]int, len(faceVertices))
		// Initialize to -1 (boundary)
		for i := range fc.EToE[elemID] {
			fc.EToE[elemID][i] = -1
			fc.EToF[elemID][i] = -1
		}

		for localFaceID, faceVerts := range faceVertices {
			key := types.NewFaceKey(faceVerts)
			if ref, exists := faceMap[key]; exists {
				// Face already exists - this is an interior face
				fc.EToE[elemID][localFaceID] = ref.elem
				fc.EToE[ref.elem][ref.local] = elemID
				fc.EToF[elemID][localFaceID] = ref.local
				fc.EToF[ref.elem][ref.local] = localFaceID
				delete(faceMap, key)
			} else {
				faceMap[key] = faceRef{elem: elemID, local: localFaceID}
			}
		}
	}
	return
}

// BuildConnectivity computes the face connectivity of one level of the mesh
func (m *GlobalMesh) BuildConnectivity(level int) FaceConnectivity {
	var (
		cells = m.Levels[level]
		et    = make([]ElementType, len(cells))
		conn  = make([][]int, len(cells))
	)
	for i := range cells {
		et[i] = cells[i].Type
		conn[i] = cells[i].Vertices
	}
	return BuildFaceConnectivity(et, conn)
}

// LevelIncidence returns the vertex incidence of all cells on one level
func (m *GlobalMesh) LevelIncidence(level int) *Incidence {
	cells := m.Levels[level]
	conn := make([][]int, len(cells))
	for i := range cells {
		conn[i] = cells[i].Vertices
	}
	return NewIncidence(conn)
}
