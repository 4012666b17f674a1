// Package tria holds the rank local reconstruction of a distributed hierarchical mesh
package tria

import (
	"github.com/notargets/fdtria/internal/hash"
	"github.com/notargets/fdtria/mesh"
	"github.com/notargets/fdtria/types"
)

// Status classifies a cell from the point of view of one rank
type Status int8

const (
	// Artificial cells are held only to walk the hierarchy
	Artificial Status = iota
	// Ghost cells are owned elsewhere and share a vertex with an owned cell
	Ghost
	Owned
)

func (s Status) String() string {
	switch s {
	case Owned:
		return "owned"
	case Ghost:
		return "ghost"
	default:
		return "artificial"
	}
}

// Cell is one cell of a local level. Vertices index LocalMesh.Vertices, Parent and Children
// index the neighbouring levels of the same LocalMesh.
type Cell struct {
	ID         mesh.CellID
	Type       mesh.ElementType
	Vertices   []int
	Boundary   []types.BoundaryID
	ParentID   mesh.CellID
	Parent     int   // local index on the coarser level, -1 on the coarse level
	Children   []int // locally present children only
	Active     bool
	Owner      int
	LevelOwner int
	// Status is the classification among the active cells, refined cells are Artificial
	Status Status
	// LevelStatus is the classification among the cells of the level
	LevelStatus Status
}

type Level struct {
	Cells []Cell
	// Neighbors[i][f] is the local index of the cell across face f of cell i on the same level, -1 when absent
	Neighbors [][]int
	index     map[mesh.CellID]int
}

// Index returns the local index of a cell, -1 when it is not held
func (l *Level) Index(id mesh.CellID) int {
	if i, ok := l.index[id]; ok {
		return i
	}
	return -1
}

// LocalMesh is the part of the mesh hierarchy one rank reconstructed
type LocalMesh struct {
	Rank      int
	NumRanks  int
	Dim       int
	Vertices  [][3]float64
	VertexIDs []int // global id of each local vertex, ascending
	Levels    []Level
}

func (lm *LocalMesh) NumLevels() int { return len(lm.Levels) }

// Cell returns the cell with the given global id, nil when it is not held
func (lm *LocalMesh) Cell(id mesh.CellID) *Cell {
	if id.Level < 0 || id.Level >= len(lm.Levels) {
		return nil
	}
	i := lm.Levels[id.Level].Index(id)
	if i < 0 {
		return nil
	}
	return &lm.Levels[id.Level].Cells[i]
}

// ActiveCells returns the held active cells ordered by level then index
func (lm *LocalMesh) ActiveCells() (cells []*Cell) {
	for l := range lm.Levels {
		for i := range lm.Levels[l].Cells {
			if c := &lm.Levels[l].Cells[i]; c.Active {
				cells = append(cells, c)
			}
		}
	}
	return
}

// NumOwned returns the number of locally owned active cells
func (lm *LocalMesh) NumOwned() (n int) {
	for _, c := range lm.ActiveCells() {
		if c.Status == Owned {
			n++
		}
	}
	return
}

// NumLevelOwned returns the number of level owned cells of a level
func (lm *LocalMesh) NumLevelOwned(level int) (n int) {
	for i := range lm.Levels[level].Cells {
		if lm.Levels[level].Cells[i].LevelStatus == Owned {
			n++
		}
	}
	return
}

// GlobalVertices returns the global vertex ids of a cell
func (lm *LocalMesh) GlobalVertices(c *Cell) (ids []int) {
	ids = make([]int, len(c.Vertices))
	for k, v := range c.Vertices {
		ids[k] = lm.VertexIDs[v]
	}
	return
}

type cellIdentity struct {
	Type     mesh.ElementType
	Vertices []int
	Coords   [][3]float64
	Boundary []types.BoundaryID
	Chain    []mesh.CellID
}

/*
CellFingerprint hashes everything that identifies a cell independently of the rank that
reconstructed it: type, global vertex ids and coordinates, boundary ids and the ids of its
ancestors. Two ranks holding the same cell must produce the same fingerprint.
*/
func (lm *LocalMesh) CellFingerprint(id mesh.CellID) (fp string, ok bool) {
	c := lm.Cell(id)
	if c == nil {
		return
	}
	ident := cellIdentity{
		Type:     c.Type,
		Vertices: lm.GlobalVertices(c),
		Coords:   make([][3]float64, len(c.Vertices)),
		Boundary: c.Boundary,
	}
	for k, v := range c.Vertices {
		ident.Coords[k] = lm.Vertices[v]
	}
	for l, p := id.Level, c.Parent; p >= 0; l-- {
		parent := &lm.Levels[l-1].Cells[p]
		ident.Chain = append(ident.Chain, parent.ID)
		p = parent.Parent
	}
	return hash.Hash(ident), true
}

// Fingerprints returns the fingerprint of every held cell
func (lm *LocalMesh) Fingerprints() (fps map[mesh.CellID]string) {
	fps = make(map[mesh.CellID]string)
	for l := range lm.Levels {
		for _, c := range lm.Levels[l].Cells {
			fps[c.ID], _ = lm.CellFingerprint(c.ID)
		}
	}
	return
}
