package mesh

import (
	"sort"

	"github.com/james-bowman/sparse"
)

/*
Incidence is the cell/vertex incidence of an arbitrary set of cells, stored as a sparse
matrix C with C[i][j] = 1 when cell i references vertex j. Vertex columns are compacted,
so the cells may reference any global vertex indices.

The product C Cᵀ has a nonzero at (i,k) exactly when cells i and k share a vertex, which
is the one layer vertex halo used to collect ghost cells.
*/
type Incidence struct {
	NumCells   int
	columns    map[int]int // global vertex -> column
	vertexIDs  []int       // column -> global vertex
	c          *sparse.CSR
	vertCells  [][]int // column -> cells, ascending
	neighbors  [][]int // cell -> vertex sharing cells, ascending, excluding itself
	neighborOK bool
}

// NewIncidence builds the incidence of cells given by their global vertex lists
func NewIncidence(conn [][]int) (in *Incidence) {
	in = &Incidence{
		NumCells: len(conn),
		columns:  make(map[int]int),
	}
	for _, verts := range conn {
		for _, v := range verts {
			if _, ok := in.columns[v]; !ok {
				in.columns[v] = len(in.vertexIDs)
				in.vertexIDs = append(in.vertexIDs, v)
			}
		}
	}
	in.vertCells = make([][]int, len(in.vertexIDs))
	if len(conn) == 0 || len(in.vertexIDs) == 0 {
		return
	}
	dok := sparse.NewDOK(len(conn), len(in.vertexIDs))
	for i, verts := range conn {
		for _, v := range verts {
			dok.Set(i, in.columns[v], 1)
		}
	}
	in.c = dok.ToCSR()
	in.c.DoNonZero(func(i, j int, v float64) {
		in.vertCells[j] = append(in.vertCells[j], i)
	})
	for _, cells := range in.vertCells {
		sort.Ints(cells)
	}
	return
}

// CellsOfVertex returns the cells referencing global vertex v, nil when none does
func (in *Incidence) CellsOfVertex(v int) []int {
	col, ok := in.columns[v]
	if !ok {
		return nil
	}
	return in.vertCells[col]
}

// Valence returns the number of cells referencing global vertex v
func (in *Incidence) Valence(v int) int { return len(in.CellsOfVertex(v)) }

// VertexNeighbors returns for every cell the other cells sharing at least one vertex with it
func (in *Incidence) VertexNeighbors() [][]int {
	if in.neighborOK {
		return in.neighbors
	}
	in.neighbors = make([][]int, in.NumCells)
	if in.c != nil {
		var (
			ct   = sparse.NewDOK(len(in.vertexIDs), in.NumCells)
			prod sparse.CSR
		)
		in.c.DoNonZero(func(i, j int, v float64) {
			ct.Set(j, i, v)
		})
		prod.Mul(in.c, ct.ToCSR())
		prod.DoNonZero(func(i, k int, v float64) {
			if i != k && v != 0 {
				in.neighbors[i] = append(in.neighbors[i], k)
			}
		})
		for _, nb := range in.neighbors {
			sort.Ints(nb)
		}
	}
	in.neighborOK = true
	return in.neighbors
}

// Halo returns the cells sharing a vertex with any cell of the seed set, the seeds excluded
func (in *Incidence) Halo(seeds []int) (halo []int) {
	var (
		nbs    = in.VertexNeighbors()
		isSeed = make(map[int]bool, len(seeds))
		seen   = make(map[int]bool)
	)
	for _, s := range seeds {
		isSeed[s] = true
	}
	for _, s := range seeds {
		for _, k := range nbs[s] {
			if !isSeed[k] && !seen[k] {
				seen[k] = true
				halo = append(halo, k)
			}
		}
	}
	sort.Ints(halo)
	return
}
