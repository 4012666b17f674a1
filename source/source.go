/*
Package source provides the input meshes of a construction: something that can enumerate
cells together with their active and level owners.

Shared exposes a complete serial mesh to every rank. Distributed exposes only the slice of
a mesh one rank holds after a forest style distribution.
*/
package source

import (
	"github.com/notargets/fdtria/mesh"
	"github.com/notargets/fdtria/partition"
)

// View is the read access a construction needs from its input mesh
type View interface {
	partition.Hierarchy
	Dim() int
	// Vertex returns the coordinates of a global vertex referenced by a visible cell
	Vertex(v int) [3]float64
}

// Shared is a serial mesh visible to every rank, with an explicit partition set
type Shared struct {
	mesh *mesh.GlobalMesh
	set  *partition.Set
}

func NewShared(m *mesh.GlobalMesh, set *partition.Set) *Shared {
	return &Shared{mesh: m, set: set}
}

func (s *Shared) Mesh() *mesh.GlobalMesh    { return s.mesh }
func (s *Shared) Partition() *partition.Set { return s.set }

// Slice returns the cells of the shared mesh that rank would hold in a distributed run
func (s *Shared) Slice(rank int) *Distributed { return newSlice(s.mesh, s.set, rank) }

func (s *Shared) Dim() int       { return s.mesh.Dim }
func (s *Shared) NumRanks() int  { return s.set.NumRanks }
func (s *Shared) NumLevels() int { return s.mesh.NumLevels() }

func (s *Shared) Vertex(v int) [3]float64 { return s.mesh.Vertices[v] }

func (s *Shared) Cells(level int) (ids []mesh.CellID) {
	if level < 0 || level >= s.mesh.NumLevels() {
		return
	}
	ids = make([]mesh.CellID, len(s.mesh.Levels[level]))
	for i := range ids {
		ids[i] = mesh.CellID{Level: level, Index: i}
	}
	return
}

func (s *Shared) Cell(id mesh.CellID) (*mesh.Cell, bool) {
	c := s.mesh.Cell(id)
	return c, c != nil
}

func (s *Shared) Owner(id mesh.CellID) int      { return s.set.Owner(id) }
func (s *Shared) LevelOwner(id mesh.CellID) int { return s.set.LevelOwner(id) }
