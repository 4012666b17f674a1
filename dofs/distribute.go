package dofs

import (
	"context"
	"fmt"

	"github.com/notargets/fdtria/comm"
	"github.com/notargets/fdtria/mesh"
	"github.com/notargets/fdtria/tria"
	log "github.com/sirupsen/logrus"
)

// Layout is the numbering of one rank on the active cells or on one level
type Layout struct {
	Level      int // -1 for the active cells
	Degree     int
	NumDofs    int // over all ranks
	FirstLocal int // first index owned by this rank, owned indices are contiguous
	NumLocal   int
	// CellDofs holds the indices of every owned and ghost cell, entity by entity
	CellDofs map[mesh.CellID][]int
}

// Owns reports whether a global index is owned by this rank
func (l *Layout) Owns(i int) bool { return i >= l.FirstLocal && i < l.FirstLocal+l.NumLocal }

// cellSet selects the cells a numbering runs over and how they are owned
type cellSet struct {
	level  int
	cells  []*tria.Cell
	owner  func(c *tria.Cell) int
	status func(c *tria.Cell) tria.Status
}

func activeSet(lm *tria.LocalMesh) cellSet {
	return cellSet{
		level:  -1,
		cells:  lm.ActiveCells(),
		owner:  func(c *tria.Cell) int { return c.Owner },
		status: func(c *tria.Cell) tria.Status { return c.Status },
	}
}

func levelSet(lm *tria.LocalMesh, level int) (cs cellSet) {
	cs = cellSet{
		level:  level,
		owner:  func(c *tria.Cell) int { return c.LevelOwner },
		status: func(c *tria.Cell) tria.Status { return c.LevelStatus },
	}
	for i := range lm.Levels[level].Cells {
		cs.cells = append(cs.cells, &lm.Levels[level].Cells[i])
	}
	return
}

/*
Distribute numbers the degrees of freedom on the active cells. Each vertex, edge, face and
cell interior is owned by the lowest rank owning an active cell around it. Owned entities are
numbered contiguously per rank in rank order. A rank then asks the owners for the indices of
the other entities of its owned cells, and finally the owners of its ghost cells for their
complete index lists.

Every rank of c must call it collectively. A rank owning no active cell fails.
*/
func Distribute(ctx context.Context, c *comm.Comm, lm *tria.LocalMesh, fe FEQ) (*Layout, error) {
	if err := checkArgs(c, lm, fe); err != nil {
		return nil, err
	}
	if lm.NumOwned() == 0 {
		return nil, fmt.Errorf("rank %d owns no active cells, degrees of freedom cannot be distributed", lm.Rank)
	}
	return distribute(ctx, c, lm, fe, activeSet(lm))
}

// DistributeMG numbers every level independently by level ownership. A rank may own no cell
// of a coarse level.
func DistributeMG(ctx context.Context, c *comm.Comm, lm *tria.LocalMesh, fe FEQ) (layouts []*Layout, err error) {
	if err = checkArgs(c, lm, fe); err != nil {
		return
	}
	layouts = make([]*Layout, lm.NumLevels())
	for l := range layouts {
		if layouts[l], err = distribute(ctx, c, lm, fe, levelSet(lm, l)); err != nil {
			return nil, fmt.Errorf("level %d: %w", l, err)
		}
	}
	return
}

func checkArgs(c *comm.Comm, lm *tria.LocalMesh, fe FEQ) error {
	if fe.Degree < 1 {
		return fmt.Errorf("element degree must be at least 1, have %d", fe.Degree)
	}
	if c.Rank() != lm.Rank || c.Size() != lm.NumRanks {
		return fmt.Errorf("rank %d of %d was given the mesh of rank %d of %d", c.Rank(), c.Size(), lm.Rank, lm.NumRanks)
	}
	return nil
}

func distribute(ctx context.Context, c *comm.Comm, lm *tria.LocalMesh, fe FEQ, cs cellSet) (lay *Layout, err error) {
	var (
		rank     = c.Rank()
		size     = c.Size()
		cellEnts = make(map[mesh.CellID][]entity)
		owner    = make(map[entity]int)
		first    = make(map[entity]int)
		numbered []entity
		nLocal   int
	)
	lay = &Layout{Level: cs.level, Degree: fe.Degree, CellDofs: make(map[mesh.CellID][]int)}

	// Every cell around an entity of an owned cell is held, so the minimum is global there
	for _, cell := range cs.cells {
		if cs.status(cell) == tria.Artificial {
			continue
		}
		ents := fe.entities(lm, cell)
		cellEnts[cell.ID] = ents
		o := cs.owner(cell)
		for _, e := range ents {
			if cur, ok := owner[e]; !ok || o < cur {
				owner[e] = o
			}
		}
	}

	for _, cell := range cs.cells {
		if cs.status(cell) != tria.Owned {
			continue
		}
		for _, e := range cellEnts[cell.ID] {
			if _, done := first[e]; done || owner[e] != rank {
				continue
			}
			first[e] = nLocal
			numbered = append(numbered, e)
			nLocal += fe.DofsPerEntity(e.Dim)
		}
	}
	var offset, total int
	if offset, total, err = comm.ExclusiveScan(ctx, c, nLocal); err != nil {
		return nil, err
	}
	for _, e := range numbered {
		first[e] += offset
	}
	lay.NumDofs, lay.FirstLocal, lay.NumLocal = total, offset, nLocal

	// Indices of foreign entities on owned cells
	requests := make([][]entity, size)
	asked := make(map[entity]bool)
	for _, cell := range cs.cells {
		if cs.status(cell) != tria.Owned {
			continue
		}
		for _, e := range cellEnts[cell.ID] {
			if o := owner[e]; o != rank && !asked[e] {
				asked[e] = true
				requests[o] = append(requests[o], e)
			}
		}
	}
	var incoming [][]entity
	if incoming, err = comm.AllToAll(ctx, c, requests); err != nil {
		return nil, err
	}
	replies := make([][]int, size)
	for src, reqs := range incoming {
		for _, e := range reqs {
			f, ok := first[e]
			if !ok || owner[e] != rank {
				return nil, fmt.Errorf("rank %d was asked by rank %d for %s it does not own", rank, src, e)
			}
			replies[src] = append(replies[src], f)
		}
	}
	var answers [][]int
	if answers, err = comm.AllToAll(ctx, c, replies); err != nil {
		return nil, err
	}
	for r, reqs := range requests {
		if len(answers[r]) != len(reqs) {
			return nil, fmt.Errorf("rank %d asked rank %d for %d entities, got %d", rank, r, len(reqs), len(answers[r]))
		}
		for i, e := range reqs {
			first[e] = answers[r][i]
		}
	}

	for _, cell := range cs.cells {
		if cs.status(cell) != tria.Owned {
			continue
		}
		if lay.CellDofs[cell.ID], err = cellDofs(fe, cellEnts[cell.ID], first); err != nil {
			return nil, fmt.Errorf("rank %d cell %s: %w", rank, cell.ID, err)
		}
	}

	// Complete index lists of ghost cells from their owners
	cellReqs := make([][]mesh.CellID, size)
	for _, cell := range cs.cells {
		if cs.status(cell) == tria.Ghost {
			o := cs.owner(cell)
			cellReqs[o] = append(cellReqs[o], cell.ID)
		}
	}
	var cellIncoming [][]mesh.CellID
	if cellIncoming, err = comm.AllToAll(ctx, c, cellReqs); err != nil {
		return nil, err
	}
	cellReplies := make([][][]int, size)
	for src, ids := range cellIncoming {
		for _, id := range ids {
			dofs, ok := lay.CellDofs[id]
			if !ok {
				return nil, fmt.Errorf("rank %d was asked by rank %d for cell %s it does not own", rank, src, id)
			}
			cellReplies[src] = append(cellReplies[src], dofs)
		}
	}
	var cellAnswers [][][]int
	if cellAnswers, err = comm.AllToAll(ctx, c, cellReplies); err != nil {
		return nil, err
	}
	for r, ids := range cellReqs {
		if len(cellAnswers[r]) != len(ids) {
			return nil, fmt.Errorf("rank %d asked rank %d for %d cells, got %d", rank, r, len(ids), len(cellAnswers[r]))
		}
		for i, id := range ids {
			lay.CellDofs[id] = cellAnswers[r][i]
		}
	}

	log.WithFields(log.Fields{
		"rank":  rank,
		"level": cs.level,
		"dofs":  total,
		"local": nLocal,
		"cells": len(lay.CellDofs),
	}).Debug("distributed degrees of freedom")
	return
}

func cellDofs(fe FEQ, ents []entity, first map[entity]int) (dofs []int, err error) {
	for _, e := range ents {
		f, ok := first[e]
		if !ok {
			return nil, fmt.Errorf("degrees of freedom on %s are unassigned", e)
		}
		for j := 0; j < fe.DofsPerEntity(e.Dim); j++ {
			dofs = append(dofs, f+j)
		}
	}
	return
}
