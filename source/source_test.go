package source

import (
	"testing"

	"github.com/notargets/fdtria/mesh"
	"github.com/notargets/fdtria/partition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coarseSquare(t *testing.T, n int) *mesh.GlobalMesh {
	m, err := mesh.SubdividedHyperCube(2, n, 0, 1)
	require.NoError(t, err)
	return m
}

func TestShared(t *testing.T) {
	m := coarseSquare(t, 2)
	require.NoError(t, m.RefineGlobal(1))
	active, err := partition.Block{}.Partition(m, 2)
	require.NoError(t, err)
	s := NewShared(m, partition.NewSet(m, 2, active))

	var v View = s
	assert.Equal(t, 2, v.Dim())
	assert.Equal(t, 2, v.NumRanks())
	assert.Equal(t, 2, v.NumLevels())
	assert.Len(t, v.Cells(1), 16)
	assert.Nil(t, v.Cells(2))
	_, ok := v.Cell(mesh.CellID{Level: 2, Index: 0})
	assert.False(t, ok)
	c, ok := v.Cell(mesh.CellID{Level: 1, Index: 15})
	require.True(t, ok)
	assert.Equal(t, m.Vertices[c.Vertices[3]], v.Vertex(c.Vertices[3]))
	assert.Equal(t, 1, v.Owner(mesh.CellID{Level: 1, Index: 15}))
	assert.Equal(t, partition.NoRank, v.Owner(mesh.CellID{Level: 0, Index: 0}))
	assert.NoError(t, partition.Check(v))
}

func TestDistributed(t *testing.T) {
	const nRanks = 4
	coarse := coarseSquare(t, 4)
	global := coarse.Clone()
	require.NoError(t, global.RefineGlobal(1))

	owned := make(map[mesh.CellID]int)
	views := make([]*Distributed, nRanks)
	for r := 0; r < nRanks; r++ {
		d, err := NewDistributed(coarse, 1, nRanks, r, partition.ZOrder{})
		require.NoError(t, err)
		views[r] = d
		assert.Equal(t, r, d.Rank())
		assert.Equal(t, 2, d.NumLevels())
		require.NoError(t, partition.Check(d))
		assert.Less(t, d.NumCells(), global.NumActive()+len(global.Levels[0]))

		for l := 0; l < d.NumLevels(); l++ {
			for _, id := range d.Cells(l) {
				c, ok := d.Cell(id)
				require.True(t, ok)
				// Every held cell carries its ancestor chain
				if c.Parent.Valid() {
					_, ok = d.Cell(c.Parent)
					assert.True(t, ok, "rank %d lacks parent of %s", r, id)
				}
				for _, v := range c.Vertices {
					assert.Equal(t, global.Vertices[v], d.Vertex(v))
				}
				if c.Active() && d.Owner(id) == r {
					owned[id]++
				}
			}
		}
	}
	// The owned active cells of all ranks tile the mesh exactly once
	assert.Len(t, owned, global.NumActive())
	for id, n := range owned {
		assert.Equal(t, 1, n, id.String())
	}

	// Vertex halo: every active cell touching an owned cell is held
	in := global.LevelIncidence(1)
	for r, d := range views {
		for _, id := range d.Cells(1) {
			if d.Owner(id) != r {
				continue
			}
			for _, v := range global.Cell(id).Vertices {
				for _, k := range in.CellsOfVertex(v) {
					_, ok := d.Cell(mesh.CellID{Level: 1, Index: k})
					assert.True(t, ok)
				}
			}
		}
	}
	// Nothing outside the slice is reachable
	far := views[0]
	var hidden int
	for i := range global.Levels[1] {
		if _, ok := far.Cell(mesh.CellID{Level: 1, Index: i}); !ok {
			hidden++
			assert.Equal(t, partition.NoRank, far.Owner(mesh.CellID{Level: 1, Index: i}))
		}
	}
	assert.Positive(t, hidden)
}

func TestDistributedEmptyRank(t *testing.T) {
	coarse := coarseSquare(t, 1)
	d, err := NewDistributed(coarse, 0, 3, 2, partition.Block{})
	require.NoError(t, err)
	assert.Empty(t, d.Cells(0))
	assert.Equal(t, 0, d.NumCells())

	_, err = NewDistributed(coarse, 0, 3, 3, partition.Block{})
	assert.Error(t, err)
	_, err = NewDistributed(coarse, -1, 3, 0, partition.Block{})
	assert.Error(t, err)
}

func TestSharedSlice(t *testing.T) {
	const nRanks = 3
	coarse := coarseSquare(t, 3)
	m := coarse.Clone()
	require.NoError(t, m.RefineGlobal(1))
	active, err := partition.ZOrder{}.Partition(m, nRanks)
	require.NoError(t, err)
	s := NewShared(m, partition.NewSet(m, nRanks, active))

	for r := 0; r < nRanks; r++ {
		slice := s.Slice(r)
		d, err := NewDistributed(coarse, 1, nRanks, r, partition.ZOrder{})
		require.NoError(t, err)
		// The same partition seen through either source gives the same slice
		assert.Equal(t, r, slice.Rank())
		assert.Equal(t, d.NumCells(), slice.NumCells())
		for l := 0; l < d.NumLevels(); l++ {
			assert.Equal(t, d.Cells(l), slice.Cells(l))
			for _, id := range slice.Cells(l) {
				assert.Equal(t, s.Owner(id), slice.Owner(id))
				assert.Equal(t, s.LevelOwner(id), slice.LevelOwner(id))
			}
		}
		assert.Less(t, slice.NumCells(), len(m.Levels[0])+len(m.Levels[1]))
	}
}
