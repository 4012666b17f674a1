package partition

import (
	"errors"
	"testing"

	"github.com/notargets/fdtria/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refinedSquare(t *testing.T, n, refinements int) *mesh.GlobalMesh {
	m, err := mesh.SubdividedHyperCube(2, n, 0, 1)
	require.NoError(t, err)
	require.NoError(t, m.RefineGlobal(refinements))
	return m
}

func TestStrategies(t *testing.T) {
	m := refinedSquare(t, 4, 2)
	for _, name := range []string{StrategyBlock, StrategyRoundRobin, StrategyZOrder} {
		pt, err := New(name)
		require.NoError(t, err)
		assert.Equal(t, name, pt.Name())
		p, err := pt.Partition(m, 4)
		require.NoError(t, err, name)
		assert.Len(t, p, 256)
		assert.Equal(t, []int{64, 64, 64, 64}, p.Ranks(4), name)
		_, err = pt.Partition(m, 0)
		assert.Error(t, err)
	}
	_, err := New("spectral")
	assert.Error(t, err)
}

func TestBlockMoreRanksThanCells(t *testing.T) {
	m := refinedSquare(t, 1, 0)
	p, err := Block{}.Partition(m, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 0, 0}, p.Ranks(4))
	assert.Equal(t, 0, p[mesh.CellID{Level: 0, Index: 0}])
}

func TestZOrderLocality(t *testing.T) {
	// On a 2x2 coarse mesh refined once, the Morton curve visits each coarse quadrant in turn
	m := refinedSquare(t, 2, 1)
	p, err := ZOrder{}.Partition(m, 4)
	require.NoError(t, err)
	for parent := 0; parent < 4; parent++ {
		owners := map[int]bool{}
		for _, c := range m.Levels[0][parent].Children {
			owners[p[mesh.CellID{Level: 1, Index: c}]] = true
		}
		assert.Len(t, owners, 1, "children of coarse cell %d", parent)
	}
}

func TestLevels(t *testing.T) {
	m := refinedSquare(t, 4, 2)
	active, err := RoundRobin{}.Partition(m, 3)
	require.NoError(t, err)
	s := NewSet(m, 3, active)
	require.Len(t, s.Levels, 3)
	for l, p := range s.Levels {
		assert.Len(t, p, len(m.Levels[l]))
	}
	// Refined cells inherit the owner of their first child
	for l := 0; l < 2; l++ {
		for i := range m.Levels[l] {
			id := mesh.CellID{Level: l, Index: i}
			first := mesh.CellID{Level: l + 1, Index: m.Levels[l][i].Children[0]}
			assert.Equal(t, s.LevelOwner(first), s.LevelOwner(id))
			assert.Equal(t, NoRank, s.Owner(id))
		}
	}
	assert.Equal(t, NoRank, s.LevelOwner(mesh.CellID{Level: 5, Index: 0}))
	require.NoError(t, Validate(m, s))
}

func TestValidate(t *testing.T) {
	m := refinedSquare(t, 2, 1)
	fresh := func() *Set {
		active, err := Block{}.Partition(m, 4)
		require.NoError(t, err)
		return NewSet(m, 4, active)
	}
	var ipe *InconsistentPartitionError

	s := fresh()
	delete(s.Active, mesh.CellID{Level: 1, Index: 3})
	err := Validate(m, s)
	require.True(t, errors.As(err, &ipe), "%v", err)
	assert.Equal(t, -1, ipe.Level)

	s = fresh()
	s.Levels[1][mesh.CellID{Level: 1, Index: 0}] = 7
	err = Validate(m, s)
	require.True(t, errors.As(err, &ipe), "%v", err)
	assert.Equal(t, 1, ipe.Level)

	// Coarse cell 0 is owned by a rank that owns none of its children
	s = fresh()
	s.Levels[0][mesh.CellID{Level: 0, Index: 0}] = 3
	err = Validate(m, s)
	require.True(t, errors.As(err, &ipe), "%v", err)
	assert.Equal(t, mesh.CellID{Level: 0, Index: 0}, ipe.Cell)
	assert.Contains(t, ipe.Error(), "hierarchy")

	// A refined cell must not carry an active owner
	s = fresh()
	s.Active[mesh.CellID{Level: 0, Index: 1}] = 0
	assert.Error(t, Validate(m, s))

	s = fresh()
	s.Levels = s.Levels[:1]
	assert.Error(t, Validate(m, s))
}

func TestAnalyze(t *testing.T) {
	m := refinedSquare(t, 4, 1)
	active, err := Block{}.Partition(m, 4)
	require.NoError(t, err)
	stats := Analyze(m, NewSet(m, 4, active))
	require.Len(t, stats, 4)
	var total int
	for _, st := range stats {
		total += st.NumCells
		assert.Equal(t, 16, st.NumCells)
		// Each block is the children of four consecutive coarse cells along x
		assert.Equal(t, 1, st.Components)
		assert.Equal(t, []int{4, 16}, st.LevelCounts)
	}
	assert.Equal(t, 64, total)
	assert.Equal(t, stats[0].CutFaces, stats[0].Neighbors[1])
}

func TestMetisGraph(t *testing.T) {
	m := refinedSquare(t, 2, 0)
	mp := DefaultMetis()
	xadj, adjncy, vwgt, adjwgt := mp.buildMetisGraph(m, m.ActiveCells())
	assert.Equal(t, []int32{0, 2, 4, 6, 8}, xadj)
	assert.Len(t, adjncy, 8)
	assert.Equal(t, []int32{4, 4, 4, 4}, vwgt)
	for _, w := range adjwgt {
		assert.Equal(t, int32(2), w)
	}

	// Fewer cells than ranks never reaches METIS
	p, err := mp.Partition(m, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1, 1}, p.Ranks(4))
}
