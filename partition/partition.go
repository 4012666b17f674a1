// Package partition assigns owning ranks to the cells of a hierarchical mesh, for the
// active cells and independently for every multigrid level.
package partition

import (
	"fmt"
	"strings"

	"github.com/notargets/fdtria/mesh"
)

// NoRank is the owner of a cell that has none in a given view, e.g. the active owner of a refined cell
const NoRank = -1

// Partition is a function cell -> rank
type Partition map[mesh.CellID]int

// Ranks returns the number of cells owned by each rank
func (p Partition) Ranks(nRanks int) (counts []int) {
	counts = make([]int, nRanks)
	for _, r := range p {
		if r >= 0 && r < nRanks {
			counts[r]++
		}
	}
	return
}

// Set is the complete ownership description of a mesh: the active partition and one
// partition per level. Levels[l] covers every cell of level l.
type Set struct {
	NumRanks int
	Active   Partition
	Levels   []Partition
}

// NewSet derives the level partitions from the active partition, see Levels
func NewSet(m *mesh.GlobalMesh, nRanks int, active Partition) *Set {
	return &Set{
		NumRanks: nRanks,
		Active:   active,
		Levels:   Levels(m, active),
	}
}

// Owner returns the active owner of a cell, NoRank when the cell is not active or unassigned
func (s *Set) Owner(id mesh.CellID) int {
	if r, ok := s.Active[id]; ok {
		return r
	}
	return NoRank
}

// LevelOwner returns the level owner of a cell, NoRank when unassigned
func (s *Set) LevelOwner(id mesh.CellID) int {
	if id.Level < 0 || id.Level >= len(s.Levels) {
		return NoRank
	}
	if r, ok := s.Levels[id.Level][id]; ok {
		return r
	}
	return NoRank
}

// Partitioner assigns an owner to every active cell of a mesh
type Partitioner interface {
	Partition(m *mesh.GlobalMesh, nRanks int) (Partition, error)
	Name() string
}

// Strategy names accepted by New
const (
	StrategyBlock      = "block"
	StrategyRoundRobin = "roundrobin"
	StrategyZOrder     = "zorder"
	StrategyMetis      = "metis"
)

// New returns the partitioner for a strategy name
func New(strategy string) (Partitioner, error) {
	switch strings.ToLower(strategy) {
	case StrategyBlock:
		return Block{}, nil
	case StrategyRoundRobin:
		return RoundRobin{}, nil
	case StrategyZOrder, "morton", "sfc":
		return ZOrder{}, nil
	case StrategyMetis:
		return DefaultMetis(), nil
	default:
		return nil, fmt.Errorf("unknown partitioning strategy %q", strategy)
	}
}

func checkRanks(nRanks int) error {
	if nRanks < 1 {
		return fmt.Errorf("number of ranks must be positive, have %d", nRanks)
	}
	return nil
}
