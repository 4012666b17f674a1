/*
Package construction extracts the rank local description of a partitioned hierarchical
mesh. A Data value holds everything one rank needs to rebuild its part of the mesh, its
ghost layer and its multigrid levels without talking to any other rank.
*/
package construction

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/notargets/fdtria/internal/hash"
	"github.com/notargets/fdtria/mesh"
	"github.com/notargets/fdtria/types"
)

// NoValence marks a vertex whose global valence was not recorded on a level
const NoValence = -1

// Vertex is one entry of the compact vertex table
type Vertex struct {
	ID int // global vertex id
	X  [3]float64
}

// CellData describes one cell of the rank local slice
type CellData struct {
	ID         mesh.CellID
	Type       mesh.ElementType
	Vertices   []int // indices into Data.Vertices
	Parent     mesh.CellID
	Boundary   []types.BoundaryID
	Active     bool
	Owner      int // active owner, partition.NoRank for refined cells
	LevelOwner int
}

// LevelData holds the cells of one level ordered by id
type LevelData struct {
	Cells []CellData
}

/*
Data is the construction data of one rank. Vertices are ordered by global id and every
cell references them by local index.

ActiveValence[v] is the number of active cells of the whole mesh incident on local vertex
v, recorded for the vertices of the rank's owned active cells. LevelValence[l][v] is the
same count over the cells of level l, recorded for the vertices of level owned cells.
Unrecorded entries are NoValence.
*/
type Data struct {
	Rank          int
	NumRanks      int
	Dim           int
	Vertices      []Vertex
	Levels        []LevelData
	ActiveValence []int
	LevelValence  [][]int
}

// NumOwned returns the number of active cells owned by the rank
func (d *Data) NumOwned() (n int) {
	for _, level := range d.Levels {
		for i := range level.Cells {
			if level.Cells[i].Active && level.Cells[i].Owner == d.Rank {
				n++
			}
		}
	}
	return
}

// NumCells returns the number of cells over all levels
func (d *Data) NumCells() (n int) {
	for _, level := range d.Levels {
		n += len(level.Cells)
	}
	return
}

// Encode serializes the construction data for transport to its rank
func Encode(d *Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(d); err != nil {
		return nil, fmt.Errorf("encoding construction data of rank %d: %w", d.Rank, err)
	}
	return buf.Bytes(), nil
}

// Decode restores construction data serialized by Encode
func Decode(b []byte) (d *Data, err error) {
	d = &Data{}
	if err = gob.NewDecoder(bytes.NewReader(b)).Decode(d); err != nil {
		return nil, fmt.Errorf("decoding construction data: %w", err)
	}
	return
}

// Fingerprint returns a content hash of d
func Fingerprint(d *Data) string { return hash.Hash(d) }
