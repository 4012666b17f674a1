package construction

import (
	"errors"
	"testing"

	"github.com/notargets/fdtria/mesh"
	"github.com/notargets/fdtria/partition"
	"github.com/notargets/fdtria/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func sharedSquare(t *testing.T, n, refinements, nRanks int, pt partition.Partitioner) (*mesh.GlobalMesh, *source.Shared) {
	m, err := mesh.SubdividedHyperCube(2, n, 0, 1)
	require.NoError(t, err)
	require.NoError(t, m.RefineGlobal(refinements))
	active, err := pt.Partition(m, nRanks)
	require.NoError(t, err)
	return m, source.NewShared(m, partition.NewSet(m, nRanks, active))
}

func TestExtractRoundTrip(t *testing.T) {
	m, view := sharedSquare(t, 4, 2, 4, partition.Block{})
	all, err := ExtractAll(view, 4)
	require.NoError(t, err)
	require.Len(t, all, 4)

	var owned int
	for r, d := range all {
		assert.Equal(t, r, d.Rank)
		assert.Equal(t, 4, d.NumRanks)
		assert.Equal(t, 2, d.Dim)
		require.Len(t, d.Levels, 3)
		owned += d.NumOwned()

		for i := 1; i < len(d.Vertices); i++ {
			assert.Less(t, d.Vertices[i-1].ID, d.Vertices[i].ID)
		}
		present := make(map[mesh.CellID]bool)
		for _, level := range d.Levels {
			for _, c := range level.Cells {
				present[c.ID] = true
			}
		}
		for l, level := range d.Levels {
			for _, c := range level.Cells {
				assert.Equal(t, l, c.ID.Level)
				if l > 0 {
					assert.True(t, present[c.Parent], "rank %d: %s lacks parent %s", r, c.ID, c.Parent)
				}
				gc := m.Cell(c.ID)
				for k, lv := range c.Vertices {
					assert.Equal(t, gc.Vertices[k], d.Vertices[lv].ID)
					assert.Equal(t, m.Vertices[gc.Vertices[k]], d.Vertices[lv].X)
				}
				assert.Equal(t, gc.Active(), c.Active)
			}
		}
	}
	assert.Equal(t, 256, owned)
}

func TestExtractValence(t *testing.T) {
	_, view := sharedSquare(t, 2, 1, 2, partition.Block{})
	d, err := Extract(view, 0)
	require.NoError(t, err)

	counts := map[int]int{}
	for v, val := range d.ActiveValence {
		counts[val]++
		if val == NoValence {
			continue
		}
		x := d.Vertices[v].X
		onX := x[0] == 0 || x[0] == 1
		onY := x[1] == 0 || x[1] == 1
		switch {
		case onX && onY:
			assert.Equal(t, 1, val)
		case onX || onY:
			assert.Equal(t, 2, val)
		default:
			assert.Equal(t, 4, val)
		}
	}
	// Rank 0 owns the children of coarse cells 0 and 1, the lower half of the square
	assert.Equal(t, 15, len(d.ActiveValence)-counts[NoValence])
	require.Len(t, d.LevelValence, 2)
	assert.Len(t, d.LevelValence[0], len(d.Vertices))
}

func TestExtractSharedMatchesDistributed(t *testing.T) {
	const nRanks = 4
	coarse, err := mesh.SubdividedHyperCube(2, 4, 0, 1)
	require.NoError(t, err)
	_, shared := sharedSquare(t, 4, 2, nRanks, partition.ZOrder{})

	for r := 0; r < nRanks; r++ {
		fromShared, err := Extract(shared, r)
		require.NoError(t, err)
		dist, err := source.NewDistributed(coarse, 2, nRanks, r, partition.ZOrder{})
		require.NoError(t, err)
		fromDist, err := Extract(dist, r)
		require.NoError(t, err)
		assert.Equal(t, fromShared, fromDist, "rank %d", r)
		assert.Equal(t, Fingerprint(fromShared), Fingerprint(fromDist))
	}
}

func TestEncodeDecode(t *testing.T) {
	_, view := sharedSquare(t, 2, 1, 2, partition.RoundRobin{})
	d, err := Extract(view, 1)
	require.NoError(t, err)
	b, err := Encode(d)
	require.NoError(t, err)
	back, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, d, back)
	assert.Equal(t, Fingerprint(d), Fingerprint(back))

	_, err = Decode([]byte("not gob"))
	assert.Error(t, err)
}

func TestExtractEmptyPartition(t *testing.T) {
	_, view := sharedSquare(t, 1, 0, 3, partition.Block{})
	d, err := Extract(view, 2)
	var epe *partition.EmptyPartitionError
	require.True(t, errors.As(err, &epe), "%v", err)
	assert.Equal(t, 2, epe.Rank)
	require.NotNil(t, d)
	assert.Equal(t, 0, d.NumCells())

	all, err := ExtractAll(view, 3)
	require.Len(t, all, 3)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, 1, all[0].NumOwned())

	_, err = ExtractAll(view, 2)
	assert.Error(t, err)
	_, err = Extract(view, 3)
	assert.Error(t, err)
}

func TestExtractInconsistentPartition(t *testing.T) {
	m, view := sharedSquare(t, 2, 1, 4, partition.Block{})
	// Coarse cell 0 given to a rank owning none of its children
	view.Partition().Levels[0][mesh.CellID{Level: 0, Index: 0}] = 3
	_, err := Extract(view, 0)
	var ipe *partition.InconsistentPartitionError
	require.True(t, errors.As(err, &ipe), "%v", err)
	assert.Equal(t, 0, ipe.Level)

	_, err = ExtractAll(source.NewShared(m, view.Partition()), 4)
	assert.True(t, errors.As(err, &ipe))
}

// hideCoarse drops the coarse level from a view
type hideCoarse struct {
	*source.Shared
}

func (h hideCoarse) Cells(level int) []mesh.CellID {
	if level == 0 {
		return nil
	}
	return h.Shared.Cells(level)
}

func (h hideCoarse) Cell(id mesh.CellID) (*mesh.Cell, bool) {
	if id.Level == 0 {
		return nil, false
	}
	return h.Shared.Cell(id)
}

func TestExtractNotPrefixClosed(t *testing.T) {
	_, view := sharedSquare(t, 2, 1, 2, partition.Block{})
	_, err := Extract(hideCoarse{view}, 0)
	var ipe *partition.InconsistentPartitionError
	require.True(t, errors.As(err, &ipe), "%v", err)
	assert.Contains(t, ipe.Error(), "prefix closed")
}
