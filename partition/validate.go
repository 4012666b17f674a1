package partition

import (
	"fmt"

	"github.com/notargets/fdtria/mesh"
)

// Hierarchy is the read access to a (possibly rank local) mesh with ownership that is
// needed to check a partition
type Hierarchy interface {
	NumRanks() int
	NumLevels() int
	Cells(level int) []mesh.CellID
	Cell(id mesh.CellID) (*mesh.Cell, bool)
	Owner(id mesh.CellID) int
	LevelOwner(id mesh.CellID) int
}

/*
Check verifies the ownership of every cell visible in h:
  - every cell of every level has exactly one level owner in [0, NumRanks)
  - every active cell has an active owner in [0, NumRanks), refined cells have none
  - the level owner of a refined cell is the level owner of one of its children

The last rule is only decided when all children are visible; a rank local view may
hold a parent as a placeholder without its children.
*/
func Check(h Hierarchy) error {
	n := h.NumRanks()
	if n < 1 {
		return fmt.Errorf("number of ranks must be positive, have %d", n)
	}
	for l := 0; l < h.NumLevels(); l++ {
		for _, id := range h.Cells(l) {
			cell, ok := h.Cell(id)
			if !ok {
				return &InconsistentPartitionError{Level: l, Cell: id, Reason: "cell is enumerated but not accessible"}
			}
			if r := h.LevelOwner(id); r < 0 || r >= n {
				return &InconsistentPartitionError{Level: l, Cell: id,
					Reason: fmt.Sprintf("level owner %d is not a rank in [0,%d)", r, n)}
			}
			r := h.Owner(id)
			if cell.Active() {
				if r < 0 || r >= n {
					return &InconsistentPartitionError{Level: -1, Cell: id,
						Reason: fmt.Sprintf("active owner %d is not a rank in [0,%d)", r, n)}
				}
				continue
			}
			if r != NoRank {
				return &InconsistentPartitionError{Level: -1, Cell: id,
					Reason: fmt.Sprintf("refined cell has active owner %d", r)}
			}
			if err := checkParent(h, id, cell); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkParent(h Hierarchy, id mesh.CellID, cell *mesh.Cell) error {
	var (
		owner   = h.LevelOwner(id)
		visible = 0
	)
	for _, ci := range cell.Children {
		child := mesh.CellID{Level: id.Level + 1, Index: ci}
		if _, ok := h.Cell(child); !ok {
			continue
		}
		visible++
		if h.LevelOwner(child) == owner {
			return nil
		}
	}
	if visible < len(cell.Children) {
		return nil
	}
	return &InconsistentPartitionError{Level: id.Level, Cell: id,
		Reason: fmt.Sprintf("level owner %d owns none of the children, the hierarchy cannot be walked", owner)}
}

// Validate checks a complete partition set against a global mesh, including that the
// partitions name no cell outside the mesh
func Validate(m *mesh.GlobalMesh, s *Set) error {
	if len(s.Levels) != m.NumLevels() {
		return fmt.Errorf("partition set has %d levels, mesh has %d", len(s.Levels), m.NumLevels())
	}
	for id := range s.Active {
		if c := m.Cell(id); c == nil || !c.Active() {
			return &InconsistentPartitionError{Level: -1, Cell: id, Reason: "partition names a cell that is not active in the mesh"}
		}
	}
	for l, p := range s.Levels {
		for id := range p {
			if id.Level != l || m.Cell(id) == nil {
				return &InconsistentPartitionError{Level: l, Cell: id, Reason: "partition names a cell that is not on this level"}
			}
		}
	}
	return Check(&setHierarchy{m: m, s: s})
}

type setHierarchy struct {
	m *mesh.GlobalMesh
	s *Set
}

func (h *setHierarchy) NumRanks() int  { return h.s.NumRanks }
func (h *setHierarchy) NumLevels() int { return h.m.NumLevels() }

func (h *setHierarchy) Cells(level int) (ids []mesh.CellID) {
	ids = make([]mesh.CellID, len(h.m.Levels[level]))
	for i := range ids {
		ids[i] = mesh.CellID{Level: level, Index: i}
	}
	return
}

func (h *setHierarchy) Cell(id mesh.CellID) (*mesh.Cell, bool) {
	c := h.m.Cell(id)
	return c, c != nil
}

func (h *setHierarchy) Owner(id mesh.CellID) int      { return h.s.Owner(id) }
func (h *setHierarchy) LevelOwner(id mesh.CellID) int { return h.s.LevelOwner(id) }
