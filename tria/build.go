package tria

import (
	"fmt"

	"github.com/notargets/fdtria/construction"
	"github.com/notargets/fdtria/mesh"
	"github.com/notargets/fdtria/types"
	log "github.com/sirupsen/logrus"
)

/*
Build reconstructs the local mesh of rank from its construction data alone. It links the
hierarchy, classifies every cell, builds the face neighbours of every level and validates
that the halo of the owned and level owned cells is complete:
  - every cell below the coarse level has its parent
  - every vertex of an owned cell is touched by as many local cells as the mesh has
  - every interior face of an owned cell has a local neighbour

Any failure is an *IncompleteHaloError.
*/
func Build(rank int, data *construction.Data) (lm *LocalMesh, err error) {
	if data == nil {
		return nil, fmt.Errorf("rank %d: no construction data", rank)
	}
	if data.Rank != rank {
		return nil, fmt.Errorf("rank %d was given the construction data of rank %d", rank, data.Rank)
	}
	if rank < 0 || rank >= data.NumRanks {
		return nil, fmt.Errorf("rank %d is not in [0,%d)", rank, data.NumRanks)
	}
	lm = &LocalMesh{
		Rank:      rank,
		NumRanks:  data.NumRanks,
		Dim:       data.Dim,
		Vertices:  make([][3]float64, len(data.Vertices)),
		VertexIDs: make([]int, len(data.Vertices)),
		Levels:    make([]Level, len(data.Levels)),
	}
	for i, v := range data.Vertices {
		lm.Vertices[i] = v.X
		lm.VertexIDs[i] = v.ID
	}
	if err = lm.instantiate(data); err != nil {
		return nil, err
	}
	if err = lm.link(); err != nil {
		return nil, err
	}
	lm.classify()
	for l := range lm.Levels {
		lm.Levels[l].Neighbors = lm.faceNeighbors(l)
	}
	if err = lm.checkActive(data.ActiveValence); err != nil {
		return nil, err
	}
	for l := range lm.Levels {
		var val []int
		if l < len(data.LevelValence) {
			val = data.LevelValence[l]
		}
		if err = lm.checkLevel(l, val); err != nil {
			return nil, err
		}
	}
	log.WithFields(log.Fields{
		"rank":   rank,
		"levels": len(lm.Levels),
		"owned":  lm.NumOwned(),
		"cells":  len(lm.ActiveCells()),
	}).Debug("built local mesh")
	return
}

func (lm *LocalMesh) instantiate(data *construction.Data) error {
	for l, level := range data.Levels {
		lv := &lm.Levels[l]
		lv.Cells = make([]Cell, len(level.Cells))
		lv.index = make(map[mesh.CellID]int, len(level.Cells))
		for i, cd := range level.Cells {
			if cd.ID.Level != l {
				return &IncompleteHaloError{Rank: lm.Rank, Level: l, Cell: cd.ID, Vertex: -1,
					Reason: "cell is stored on the wrong level"}
			}
			if _, dup := lv.index[cd.ID]; dup {
				return &IncompleteHaloError{Rank: lm.Rank, Level: l, Cell: cd.ID, Vertex: -1,
					Reason: "cell is listed twice"}
			}
			if len(cd.Vertices) != cd.Type.NumVertices() {
				return &IncompleteHaloError{Rank: lm.Rank, Level: l, Cell: cd.ID, Vertex: -1,
					Reason: fmt.Sprintf("%s with %d vertices", cd.Type, len(cd.Vertices))}
			}
			for _, v := range cd.Vertices {
				if v < 0 || v >= len(lm.Vertices) {
					return &IncompleteHaloError{Rank: lm.Rank, Level: l, Cell: cd.ID, Vertex: -1,
						Reason: fmt.Sprintf("local vertex %d is not in the vertex table", v)}
				}
			}
			lv.index[cd.ID] = i
			lv.Cells[i] = Cell{
				ID:         cd.ID,
				Type:       cd.Type,
				Vertices:   append([]int(nil), cd.Vertices...),
				Boundary:   append([]types.BoundaryID(nil), cd.Boundary...),
				ParentID:   cd.Parent,
				Parent:     -1,
				Active:     cd.Active,
				Owner:      cd.Owner,
				LevelOwner: cd.LevelOwner,
			}
		}
	}
	return nil
}

// link connects every cell to its parent and the parents to their present children
func (lm *LocalMesh) link() error {
	for l := 1; l < len(lm.Levels); l++ {
		for i := range lm.Levels[l].Cells {
			c := &lm.Levels[l].Cells[i]
			p := lm.Levels[l-1].Index(c.ParentID)
			if p < 0 {
				return &IncompleteHaloError{Rank: lm.Rank, Level: l, Cell: c.ID, Vertex: -1,
					Reason: "parent is missing, the hierarchy is not prefix closed"}
			}
			c.Parent = p
			parent := &lm.Levels[l-1].Cells[p]
			if parent.Active {
				return &IncompleteHaloError{Rank: lm.Rank, Level: l, Cell: c.ID, Vertex: -1,
					Reason: fmt.Sprintf("parent %s is marked active", parent.ID)}
			}
			parent.Children = append(parent.Children, i)
		}
	}
	return nil
}

// classify sets the active and level status of every cell from its vertex neighbourhood
func (lm *LocalMesh) classify() {
	active := lm.ActiveCells()
	conn := make([][]int, len(active))
	var seeds []int
	for i, c := range active {
		conn[i] = c.Vertices
		if c.Owner == lm.Rank {
			c.Status = Owned
			seeds = append(seeds, i)
		}
	}
	for _, i := range mesh.NewIncidence(conn).Halo(seeds) {
		active[i].Status = Ghost
	}

	for l := range lm.Levels {
		cells := lm.Levels[l].Cells
		conn = make([][]int, len(cells))
		seeds = seeds[:0]
		for i := range cells {
			conn[i] = cells[i].Vertices
			if cells[i].LevelOwner == lm.Rank {
				cells[i].LevelStatus = Owned
				seeds = append(seeds, i)
			}
		}
		for _, i := range mesh.NewIncidence(conn).Halo(seeds) {
			cells[i].LevelStatus = Ghost
		}
	}
}

func (lm *LocalMesh) faceNeighbors(level int) [][]int {
	cells := lm.Levels[level].Cells
	et := make([]mesh.ElementType, len(cells))
	conn := make([][]int, len(cells))
	for i := range cells {
		et[i] = cells[i].Type
		conn[i] = cells[i].Vertices
	}
	return mesh.BuildFaceConnectivity(et, conn).EToE
}

// checkActive validates the halo of the owned active cells against the recorded valence
func (lm *LocalMesh) checkActive(val []int) error {
	active := lm.ActiveCells()
	et := make([]mesh.ElementType, len(active))
	conn := make([][]int, len(active))
	for i, c := range active {
		et[i] = c.Type
		conn[i] = c.Vertices
	}
	var (
		in = mesh.NewIncidence(conn)
		fc = mesh.BuildFaceConnectivity(et, conn)
	)
	for i, c := range active {
		if c.Status != Owned {
			continue
		}
		if err := lm.checkCell(-1, c, in, fc.EToE[i], val); err != nil {
			return err
		}
	}
	return nil
}

// checkLevel validates the halo of the level owned cells of one level
func (lm *LocalMesh) checkLevel(level int, val []int) error {
	cells := lm.Levels[level].Cells
	conn := make([][]int, len(cells))
	for i := range cells {
		conn[i] = cells[i].Vertices
	}
	in := mesh.NewIncidence(conn)
	for i := range cells {
		if cells[i].LevelStatus != Owned {
			continue
		}
		if err := lm.checkCell(level, &cells[i], in, lm.Levels[level].Neighbors[i], val); err != nil {
			return err
		}
	}
	return nil
}

func (lm *LocalMesh) checkCell(level int, c *Cell, in *mesh.Incidence, neighbors []int, val []int) error {
	for _, v := range c.Vertices {
		want := construction.NoValence
		if v < len(val) {
			want = val[v]
		}
		if want == construction.NoValence {
			return &IncompleteHaloError{Rank: lm.Rank, Level: level, Cell: c.ID, Vertex: lm.VertexIDs[v],
				Want: want, Have: in.Valence(v), Reason: "valence of an owned vertex was not recorded"}
		}
		if have := in.Valence(v); have != want {
			return &IncompleteHaloError{Rank: lm.Rank, Level: level, Cell: c.ID, Vertex: lm.VertexIDs[v],
				Want: want, Have: have, Reason: "cells around a vertex are missing"}
		}
	}
	for f, b := range c.Boundary {
		if b == types.InteriorFace && (f >= len(neighbors) || neighbors[f] < 0) {
			return &IncompleteHaloError{Rank: lm.Rank, Level: level, Cell: c.ID, Vertex: -1,
				Reason: fmt.Sprintf("interior face %d has no neighbour", f)}
		}
	}
	return nil
}
