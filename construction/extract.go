package construction

import (
	"fmt"
	"sort"

	"github.com/notargets/fdtria/mesh"
	"github.com/notargets/fdtria/partition"
	"github.com/notargets/fdtria/source"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

/*
Extract collects the construction data of rank from a view:
 1. the active cells owned by rank
 2. every active cell sharing a vertex with one of them
 3. on every level the level owned cells of rank and every level cell sharing a vertex
    with one of them, then the complete ancestor chain of every collected cell
 4. a compact vertex table ordered by global id, with connectivity rewritten to it and
    the global valence of the vertices of owned cells

The view's ownership is authoritative and checked first.

A rank without owned active cells gets an *partition.EmptyPartitionError together with its
still valid data.
*/
func Extract(view source.View, rank int) (d *Data, err error) {
	nRanks := view.NumRanks()
	if rank < 0 || rank >= nRanks {
		return nil, fmt.Errorf("rank %d is not in [0,%d)", rank, nRanks)
	}
	if err = partition.Check(view); err != nil {
		return nil, err
	}

	var (
		nLevels = view.NumLevels()
		keep    = make(map[mesh.CellID]bool)
	)
	activeInc, activeIDs, ownedActive := collect(view, rank, keep, -1)
	levelInc := make([]*mesh.Incidence, nLevels)
	levelIDs := make([][]mesh.CellID, nLevels)
	levelOwned := make([][]mesh.CellID, nLevels)
	for l := 0; l < nLevels; l++ {
		levelInc[l], levelIDs[l], levelOwned[l] = collect(view, rank, keep, l)
	}
	if err = closeAncestors(view, keep); err != nil {
		return nil, err
	}

	d = &Data{
		Rank:     rank,
		NumRanks: nRanks,
		Dim:      view.Dim(),
		Levels:   make([]LevelData, nLevels),
	}
	local := d.buildVertices(view, keep)
	for id := range keep {
		c, _ := view.Cell(id)
		cd := CellData{
			ID:         id,
			Type:       c.Type,
			Vertices:   make([]int, len(c.Vertices)),
			Parent:     c.Parent,
			Boundary:   append(c.Boundary[:0:0], c.Boundary...),
			Active:     c.Active(),
			Owner:      view.Owner(id),
			LevelOwner: view.LevelOwner(id),
		}
		for k, v := range c.Vertices {
			cd.Vertices[k] = local[v]
		}
		d.Levels[id.Level].Cells = append(d.Levels[id.Level].Cells, cd)
	}
	for l := range d.Levels {
		cells := d.Levels[l].Cells
		sort.Slice(cells, func(i, j int) bool { return cells[i].ID.Index < cells[j].ID.Index })
	}

	d.ActiveValence = valence(view, activeInc, ownedActive, local, len(d.Vertices))
	d.LevelValence = make([][]int, nLevels)
	for l := 0; l < nLevels; l++ {
		d.LevelValence[l] = valence(view, levelInc[l], levelOwned[l], local, len(d.Vertices))
	}

	log.WithFields(log.Fields{
		"rank":     rank,
		"owned":    len(ownedActive),
		"active":   len(activeIDs),
		"cells":    len(keep),
		"vertices": len(d.Vertices),
	}).Debug("extracted construction data")

	if len(ownedActive) == 0 {
		err = &partition.EmptyPartitionError{Rank: rank, NumRanks: nRanks}
	}
	return
}

/*
collect adds the seeds of rank and their vertex halo to keep. With level < 0 the candidates
are the visible active cells of all levels and the seeds are the owned ones, otherwise the
candidates are the visible cells of that level and the seeds the level owned ones. It returns
the incidence of the candidates with their ids, and the seed ids.
*/
func collect(view source.View, rank int, keep map[mesh.CellID]bool, level int) (
	in *mesh.Incidence, ids, seeds []mesh.CellID) {
	var (
		conn    [][]int
		seedIdx []int
	)
	add := func(id mesh.CellID, c *mesh.Cell, owner int) {
		if owner == rank {
			seedIdx = append(seedIdx, len(ids))
			seeds = append(seeds, id)
			keep[id] = true
		}
		ids = append(ids, id)
		conn = append(conn, c.Vertices)
	}
	if level < 0 {
		for l := 0; l < view.NumLevels(); l++ {
			for _, id := range view.Cells(l) {
				if c, _ := view.Cell(id); c.Active() {
					add(id, c, view.Owner(id))
				}
			}
		}
	} else {
		for _, id := range view.Cells(level) {
			c, _ := view.Cell(id)
			add(id, c, view.LevelOwner(id))
		}
	}
	in = mesh.NewIncidence(conn)
	for _, i := range in.Halo(seedIdx) {
		keep[ids[i]] = true
	}
	return
}

// closeAncestors adds the parent chain of every kept cell
func closeAncestors(view source.View, keep map[mesh.CellID]bool) error {
	var pending []mesh.CellID
	for id := range keep {
		pending = append(pending, id)
	}
	for len(pending) > 0 {
		id := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		c, _ := view.Cell(id)
		if !c.Parent.Valid() {
			if id.Level != 0 {
				return &partition.InconsistentPartitionError{Level: id.Level, Cell: id,
					Reason: "cell below the coarse level has no parent"}
			}
			continue
		}
		if keep[c.Parent] {
			continue
		}
		if _, ok := view.Cell(c.Parent); !ok {
			return &partition.InconsistentPartitionError{Level: c.Parent.Level, Cell: id,
				Reason: fmt.Sprintf("ancestor %s is not available, the hierarchy is not prefix closed", c.Parent)}
		}
		keep[c.Parent] = true
		pending = append(pending, c.Parent)
	}
	return nil
}

// buildVertices fills the compact vertex table and returns the global -> local map
func (d *Data) buildVertices(view source.View, keep map[mesh.CellID]bool) (local map[int]int) {
	local = make(map[int]int)
	var global []int
	for id := range keep {
		c, _ := view.Cell(id)
		for _, v := range c.Vertices {
			if _, ok := local[v]; !ok {
				local[v] = -1
				global = append(global, v)
			}
		}
	}
	sort.Ints(global)
	d.Vertices = make([]Vertex, len(global))
	for i, v := range global {
		local[v] = i
		d.Vertices[i] = Vertex{ID: v, X: view.Vertex(v)}
	}
	return
}

// valence records for the vertices of the seed cells the number of candidate cells incident on them
func valence(view source.View, in *mesh.Incidence, seeds []mesh.CellID, local map[int]int, nVerts int) (val []int) {
	val = make([]int, nVerts)
	for i := range val {
		val[i] = NoValence
	}
	for _, id := range seeds {
		c, _ := view.Cell(id)
		for _, v := range c.Vertices {
			val[local[v]] = in.Valence(v)
		}
	}
	return
}

// ExtractAll extracts the data of every rank from a view that sees the whole mesh. All
// ranks are extracted even when some fail; the failures are combined.
func ExtractAll(view source.View, nRanks int) (all []*Data, err error) {
	if nRanks != view.NumRanks() {
		return nil, fmt.Errorf("view is partitioned for %d ranks, have %d", view.NumRanks(), nRanks)
	}
	all = make([]*Data, nRanks)
	for r := 0; r < nRanks; r++ {
		d, rerr := Extract(view, r)
		if d == nil && rerr != nil {
			return nil, rerr
		}
		all[r] = d
		err = multierr.Append(err, rerr)
	}
	return
}
