package mesh

import (
	"bytes"
	"math"
	"testing"

	"github.com/notargets/fdtria/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementTables(t *testing.T) {
	assert.Equal(t, [][]int{{0}, {1}}, Line.FaceVertices())
	assert.Nil(t, Line.EdgeVertices())
	assert.Equal(t, [][]int{{0, 2}, {1, 3}, {0, 1}, {2, 3}}, Quad.FaceVertices())
	assert.Equal(t, [][]int{{0, 1}, {2, 3}, {0, 2}, {1, 3}}, Quad.EdgeVertices())
	assert.Len(t, Hex.EdgeVertices(), 12)
	assert.Len(t, Hex.FaceVertices(), 6)
	assert.Equal(t, []int{0, 2, 4, 6}, Hex.FaceVertices()[0])
	assert.Equal(t, []int{4, 5, 6, 7}, Hex.FaceVertices()[5])

	// Children of a line sit on lattice points {0,1} and {1,2}
	assert.Equal(t, [][]int{{0, 1}, {1, 2}}, Line.ChildLattice())
	// Last child of a quad spans the upper right quarter of the 3x3 lattice
	assert.Equal(t, []int{4, 5, 7, 8}, Quad.ChildLattice()[3])

	assert.True(t, ChildOnFace(1, 1))
	assert.False(t, ChildOnFace(1, 0))
	assert.True(t, ChildOnFace(2, 3))

	for dim := 1; dim <= 3; dim++ {
		et, err := ElementForDim(dim)
		require.NoError(t, err)
		assert.Equal(t, dim, et.Dim())
		assert.Equal(t, 1<<dim, et.NumVertices())
		assert.Equal(t, 2*dim, et.NumFaces())
	}
	_, err := ElementForDim(4)
	assert.Error(t, err)
}

func TestSubdividedHyperCube(t *testing.T) {
	m, err := SubdividedHyperCube(2, 4, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 25, m.NumVertices())
	assert.Equal(t, 16, m.NumActive())
	assert.Equal(t, []int{0, 1, 5, 6}, m.Levels[0][0].Vertices)
	assert.Equal(t, [3]float64{0.25, 0.25, 0}, m.Vertices[6])
	assert.Equal(t, []types.BoundaryID{types.BC_Left, types.InteriorFace, types.BC_Bottom, types.InteriorFace},
		m.Levels[0][0].Boundary)
	assert.Equal(t, [3]float64{0.125, 0.125, 0}, m.Centroid(CellID{0, 0}))

	_, err = SubdividedHyperCube(4, 2, 0, 1)
	assert.Error(t, err)
	_, err = SubdividedHyperCube(2, 0, 0, 1)
	assert.Error(t, err)
	_, err = SubdividedHyperCube(2, 2, 1, 1)
	assert.Error(t, err)
}

func TestRefineGlobal(t *testing.T) {
	tests := []struct {
		dim, n, refinements int
		levelCells          []int
		vertices            int
	}{
		{1, 3, 2, []int{3, 6, 12}, 13},
		{2, 4, 2, []int{16, 64, 256}, 289},
		{3, 2, 1, []int{8, 64}, 125},
	}
	for _, tt := range tests {
		m, err := SubdividedHyperCube(tt.dim, tt.n, 0, 1)
		require.NoError(t, err)
		require.NoError(t, m.RefineGlobal(tt.refinements))
		require.Equal(t, len(tt.levelCells), m.NumLevels())
		for l, nc := range tt.levelCells {
			assert.Len(t, m.Levels[l], nc, "dim %d level %d", tt.dim, l)
		}
		assert.Equal(t, tt.vertices, m.NumVertices(), "dim %d", tt.dim)
		assert.Equal(t, tt.levelCells[len(tt.levelCells)-1], m.NumActive())

		// Parent/child links are reciprocal
		for l := 1; l < m.NumLevels(); l++ {
			for i := range m.Levels[l] {
				p := m.Cell(m.Levels[l][i].Parent)
				require.NotNil(t, p)
				assert.Contains(t, p.Children, i)
			}
		}
		ancestors := m.Ancestors(CellID{m.NumLevels() - 1, 0})
		assert.Len(t, ancestors, m.NumLevels()-1)
	}
	m, _ := SubdividedHyperCube(2, 1, 0, 1)
	assert.Error(t, m.RefineGlobal(-1))
	assert.Error(t, (&GlobalMesh{}).RefineGlobal(1))
}

func TestRefineBoundary(t *testing.T) {
	m, err := SubdividedHyperCube(2, 4, 0, 1)
	require.NoError(t, err)
	require.NoError(t, m.RefineGlobal(2))
	var boundary int
	for _, id := range m.ActiveCells() {
		for _, b := range m.Cell(id).Boundary {
			if b.IsBoundary() {
				boundary++
			}
		}
	}
	// 16 fine cells along each of the four sides
	assert.Equal(t, 64, boundary)

	var buf bytes.Buffer
	m.WriteStatistics(&buf)
	assert.Contains(t, buf.String(), "Boundary faces: 64")
	assert.Contains(t, buf.String(), "Active cells: 256")
}

func TestFindOrAddVertex(t *testing.T) {
	m, err := SubdividedHyperCube(3, 1, 0, 1)
	require.NoError(t, err)
	id := m.FindOrAddVertex([3]float64{1, 1, 1 + 1.e-12})
	assert.Equal(t, 7, id)
	id = m.FindOrAddVertex([3]float64{0.5, 0.5, 0.5})
	assert.Equal(t, 8, id)
	assert.Equal(t, 8, m.FindOrAddVertex([3]float64{0.5, 0.5, 0.5}))
	// Same x-y position, different z
	assert.Equal(t, 9, m.FindOrAddVertex([3]float64{0.5, 0.5, 0.75}))

	// The tolerance follows the smallest cell diameter
	sq, err := SubdividedHyperCube(2, 4, 0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.25*math.Sqrt2, sq.Diameter(CellID{Level: 0, Index: 5}), 1.e-15)
	assert.InDelta(t, 0.25*math.Sqrt2*1.e-6, sq.vertexTolerance(), 1.e-18)
	n := len(sq.Vertices)
	assert.Less(t, sq.FindOrAddVertex([3]float64{0.25 + 1.e-7, 0.5, 0}), n)
	assert.Equal(t, n, sq.FindOrAddVertex([3]float64{0.25 + 1.e-6, 0.5, 0}))

	hex, err := SubdividedHyperCube(3, 2, 0, 2)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(3), hex.Diameter(CellID{Level: 0, Index: 0}), 1.e-15)
}

func TestClone(t *testing.T) {
	m, err := SubdividedHyperCube(2, 2, 0, 1)
	require.NoError(t, err)
	c := m.Clone()
	require.NoError(t, c.RefineGlobal(1))
	assert.Equal(t, 1, m.NumLevels())
	assert.Equal(t, 9, m.NumVertices())
	assert.True(t, m.Levels[0][0].Active())
	assert.False(t, c.Levels[0][0].Active())
}

func TestBuildConnectivity(t *testing.T) {
	m, err := SubdividedHyperCube(3, 2, 0, 1)
	require.NoError(t, err)
	fc := m.BuildConnectivity(0)
	for e, nbs := range fc.EToE {
		var interior int
		for f, k := range nbs {
			if k < 0 {
				assert.True(t, m.Levels[0][e].Boundary[f].IsBoundary())
				continue
			}
			interior++
			// Reciprocal connectivity
			assert.Equal(t, e, fc.EToE[k][fc.EToF[e][f]])
			assert.Equal(t, f, fc.EToF[k][fc.EToF[e][f]])
		}
		assert.Equal(t, 3, interior)
	}
}

func TestIncidence(t *testing.T) {
	m, err := SubdividedHyperCube(2, 2, 0, 1)
	require.NoError(t, err)
	in := m.LevelIncidence(0)
	// Center vertex is shared by all four cells
	assert.Equal(t, 4, in.Valence(4))
	assert.Equal(t, []int{0, 1, 2, 3}, in.CellsOfVertex(4))
	assert.Equal(t, 1, in.Valence(0))
	assert.Equal(t, 0, in.Valence(100))
	nbs := in.VertexNeighbors()
	assert.Equal(t, []int{1, 2, 3}, nbs[0])
	assert.Equal(t, []int{0, 1, 2}, nbs[3])

	require.NoError(t, m.RefineGlobal(1))
	in = m.LevelIncidence(1)
	// Halo of the lower left fine cell: its three vertex neighbors
	assert.Equal(t, []int{1, 2, 3}, in.Halo([]int{0}))
	assert.Empty(t, NewIncidence(nil).Halo(nil))
}
