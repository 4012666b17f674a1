package types

import (
	"fmt"
	"math"
	"sort"
)

// EdgeKey packs the two vertex indices of an edge, smaller first, into one comparable
// value. An edge is the same key whichever cell and orientation it is seen from.
type EdgeKey uint64

func NewEdgeKey(verts [2]int) EdgeKey {
	for _, v := range verts {
		if v < 0 || v > math.MaxUint32 {
			panic(fmt.Errorf("vertex indices %d and %d do not fit an edge key", verts[0], verts[1]))
		}
	}
	lo, hi := verts[0], verts[1]
	if lo > hi {
		lo, hi = hi, lo
	}
	return EdgeKey(uint64(lo) | uint64(hi)<<32)
}

// GetVertices returns the vertices in ascending order, descending when rev is set
func (ek EdgeKey) GetVertices(rev bool) (verts [2]int) {
	verts = [2]int{int(ek & math.MaxUint32), int(ek >> 32)}
	if rev {
		verts[0], verts[1] = verts[1], verts[0]
	}
	return
}

// MaxFaceVertices is the largest vertex count of any face handled here (a quad face of a hex)
const MaxFaceVertices = 4

/*
FaceKey identifies a face by its sorted global vertex indices, independent of the
orientation seen by either neighbor. Unused slots hold -1 and sort last.
*/
type FaceKey [MaxFaceVertices]int

func NewFaceKey(verts []int) (fk FaceKey) {
	if len(verts) == 0 || len(verts) > MaxFaceVertices {
		panic(fmt.Errorf("unable to build a face key from %d vertices", len(verts)))
	}
	sorted := make([]int, len(verts))
	copy(sorted, verts)
	sort.Ints(sorted)
	for i := range fk {
		if i < len(sorted) {
			fk[i] = sorted[i]
		} else {
			fk[i] = -1
		}
	}
	return
}

// Len returns the number of vertices stored in the key
func (fk FaceKey) Len() (n int) {
	for _, v := range fk {
		if v < 0 {
			break
		}
		n++
	}
	return
}

func (fk FaceKey) GetVertices() (verts []int) {
	verts = make([]int, fk.Len())
	copy(verts, fk[:])
	return
}
