package source

import (
	"fmt"
	"sort"

	"github.com/notargets/fdtria/mesh"
	"github.com/notargets/fdtria/partition"
	log "github.com/sirupsen/logrus"
)

/*
Distributed is the part of a mesh held by one rank of a forest style distribution. Every rank
refines its own replica of the coarse mesh identically and partitions the active cells with
the same deterministic partitioner, then keeps only
  - its owned active cells and every active cell sharing a vertex with them
  - its level owned cells on every level and every level cell sharing a vertex with them
  - the complete ancestor chain of all of the above

Cells outside the slice cannot be reached through the View methods, and the global mesh is
not retained.
*/
type Distributed struct {
	dim, rank, nRanks int
	levels            [][]mesh.CellID
	cells             map[mesh.CellID]*mesh.Cell
	owner             map[mesh.CellID]int
	levelOwner        map[mesh.CellID]int
	vertices          map[int][3]float64
}

// NewDistributed refines a copy of coarse and returns the slice of rank
func NewDistributed(coarse *mesh.GlobalMesh, refinements, nRanks, rank int,
	pt partition.Partitioner) (d *Distributed, err error) {
	if nRanks < 1 || rank < 0 || rank >= nRanks {
		err = fmt.Errorf("rank %d is not in [0,%d)", rank, nRanks)
		return
	}
	m := coarse.Clone()
	if err = m.RefineGlobal(refinements); err != nil {
		return
	}
	var active partition.Partition
	if active, err = pt.Partition(m, nRanks); err != nil {
		err = fmt.Errorf("rank %d: %s partition failed: %w", rank, pt.Name(), err)
		return
	}
	d = newSlice(m, partition.NewSet(m, nRanks, active), rank)
	log.WithFields(log.Fields{
		"rank":  rank,
		"cells": len(d.cells),
		"total": m.NumActive(),
	}).Debug("distributed slice")
	return
}

// newSlice copies the cells rank keeps out of m
func newSlice(m *mesh.GlobalMesh, set *partition.Set, rank int) (d *Distributed) {
	d = &Distributed{
		dim:        m.Dim,
		rank:       rank,
		nRanks:     set.NumRanks,
		levels:     make([][]mesh.CellID, m.NumLevels()),
		cells:      make(map[mesh.CellID]*mesh.Cell),
		owner:      make(map[mesh.CellID]int),
		levelOwner: make(map[mesh.CellID]int),
		vertices:   make(map[int][3]float64),
	}
	for _, id := range slice(m, set, rank) {
		c := *m.Cell(id)
		d.levels[id.Level] = append(d.levels[id.Level], id)
		d.cells[id] = &c
		d.owner[id] = set.Owner(id)
		d.levelOwner[id] = set.LevelOwner(id)
		for _, v := range c.Vertices {
			d.vertices[v] = m.Vertices[v]
		}
	}
	return
}

// slice returns the ids of the cells rank keeps, ordered by level then index
func slice(m *mesh.GlobalMesh, s *partition.Set, rank int) (ids []mesh.CellID) {
	keep := make(map[mesh.CellID]bool)

	active := m.ActiveCells()
	conn := make([][]int, len(active))
	var seeds []int
	for i, id := range active {
		conn[i] = m.Cell(id).Vertices
		if s.Owner(id) == rank {
			seeds = append(seeds, i)
			keep[id] = true
		}
	}
	for _, i := range mesh.NewIncidence(conn).Halo(seeds) {
		keep[active[i]] = true
	}

	for l := range m.Levels {
		seeds = seeds[:0]
		for i := range m.Levels[l] {
			id := mesh.CellID{Level: l, Index: i}
			if s.LevelOwner(id) == rank {
				seeds = append(seeds, i)
				keep[id] = true
			}
		}
		for _, i := range m.LevelIncidence(l).Halo(seeds) {
			keep[mesh.CellID{Level: l, Index: i}] = true
		}
	}

	for id := range keep {
		ids = append(ids, id)
	}
	for _, id := range ids {
		for _, a := range m.Ancestors(id) {
			keep[a] = true
		}
	}
	ids = ids[:0]
	for id := range keep {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return
}

func (d *Distributed) Rank() int      { return d.rank }
func (d *Distributed) Dim() int       { return d.dim }
func (d *Distributed) NumRanks() int  { return d.nRanks }
func (d *Distributed) NumLevels() int { return len(d.levels) }

// NumCells returns the number of cells held on this rank over all levels
func (d *Distributed) NumCells() int { return len(d.cells) }

func (d *Distributed) Vertex(v int) [3]float64 { return d.vertices[v] }

func (d *Distributed) Cells(level int) []mesh.CellID {
	if level < 0 || level >= len(d.levels) {
		return nil
	}
	return append([]mesh.CellID(nil), d.levels[level]...)
}

func (d *Distributed) Cell(id mesh.CellID) (c *mesh.Cell, ok bool) {
	c, ok = d.cells[id]
	return
}

func (d *Distributed) Owner(id mesh.CellID) int {
	if r, ok := d.owner[id]; ok {
		return r
	}
	return partition.NoRank
}

func (d *Distributed) LevelOwner(id mesh.CellID) int {
	if r, ok := d.levelOwner[id]; ok {
		return r
	}
	return partition.NoRank
}
