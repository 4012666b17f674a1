package mesh

import (
	"fmt"
	"io"
	"math"

	"github.com/notargets/fdtria/types"
)

// CellID is the stable identity of a cell: its refinement level and its index
// in the arena of that level. Parent and child links are stored as ids, never pointers.
type CellID struct {
	Level int
	Index int
}

// NoCell marks an absent parent (coarse cells)
var NoCell = CellID{Level: -1, Index: -1}

func (id CellID) Valid() bool { return id.Level >= 0 && id.Index >= 0 }

func (id CellID) String() string { return fmt.Sprintf("%d.%d", id.Level, id.Index) }

// Less orders cells by level, then index
func (id CellID) Less(other CellID) bool {
	if id.Level != other.Level {
		return id.Level < other.Level
	}
	return id.Index < other.Index
}

// Cell is one element of the hierarchy
type Cell struct {
	Type     ElementType
	Vertices []int              // Global vertex indices, lexicographic order
	Parent   CellID             // NoCell on the coarsest level
	Children []int              // Indices of the children in the next level, empty when active
	Boundary []types.BoundaryID // Per face, InteriorFace unless on the domain boundary
}

// Active cells have not been refined
func (c *Cell) Active() bool { return len(c.Children) == 0 }

// GlobalMesh holds the complete, unpartitioned hierarchy.
// Level 0 is the coarse mesh, each refinement appends a level.
type GlobalMesh struct {
	Dim      int
	Vertices [][3]float64
	Levels   [][]Cell

	vindex *vertexIndex
}

func (m *GlobalMesh) NumLevels() int { return len(m.Levels) }

func (m *GlobalMesh) NumVertices() int { return len(m.Vertices) }

// Cell returns the cell with the given id, nil when out of range
func (m *GlobalMesh) Cell(id CellID) *Cell {
	if id.Level < 0 || id.Level >= len(m.Levels) || id.Index < 0 || id.Index >= len(m.Levels[id.Level]) {
		return nil
	}
	return &m.Levels[id.Level][id.Index]
}

// ActiveCells returns the ids of all active cells, ordered by level then index
func (m *GlobalMesh) ActiveCells() (ids []CellID) {
	for l, level := range m.Levels {
		for i := range level {
			if level[i].Active() {
				ids = append(ids, CellID{l, i})
			}
		}
	}
	return
}

func (m *GlobalMesh) NumActive() (n int) {
	for _, level := range m.Levels {
		for i := range level {
			if level[i].Active() {
				n++
			}
		}
	}
	return
}

// Centroid returns the vertex average of a cell
func (m *GlobalMesh) Centroid(id CellID) (x [3]float64) {
	return Centroid(m.Cell(id).Vertices, func(v int) [3]float64 { return m.Vertices[v] })
}

// Centroid averages the coordinates of the given vertices
func Centroid(verts []int, coord func(v int) [3]float64) (x [3]float64) {
	for _, v := range verts {
		c := coord(v)
		for d := range x {
			x[d] += c[d]
		}
	}
	for d := range x {
		x[d] /= float64(len(verts))
	}
	return
}

// Diameter returns the largest distance between two vertices of a cell
func (m *GlobalMesh) Diameter(id CellID) (diam float64) {
	verts := m.Cell(id).Vertices
	for i := range verts {
		for j := i + 1; j < len(verts); j++ {
			diam = math.Max(diam, distance(m.Vertices[verts[i]], m.Vertices[verts[j]]))
		}
	}
	return
}

func distance(a, b [3]float64) float64 {
	var sum float64
	for d := range a {
		sum += (a[d] - b[d]) * (a[d] - b[d])
	}
	return math.Sqrt(sum)
}

// Clone returns a deep copy, used when every rank refines its own replica of the coarse mesh
func (m *GlobalMesh) Clone() *GlobalMesh {
	c := &GlobalMesh{
		Dim:      m.Dim,
		Vertices: make([][3]float64, len(m.Vertices)),
		Levels:   make([][]Cell, len(m.Levels)),
	}
	copy(c.Vertices, m.Vertices)
	for l, level := range m.Levels {
		c.Levels[l] = make([]Cell, len(level))
		for i, cell := range level {
			c.Levels[l][i] = Cell{
				Type:     cell.Type,
				Vertices: append([]int(nil), cell.Vertices...),
				Parent:   cell.Parent,
				Children: append([]int(nil), cell.Children...),
				Boundary: append([]types.BoundaryID(nil), cell.Boundary...),
			}
		}
	}
	return c
}

// Ancestors returns the parent chain of a cell, nearest first
func (m *GlobalMesh) Ancestors(id CellID) (chain []CellID) {
	for p := m.Cell(id).Parent; p.Valid(); p = m.Cell(p).Parent {
		chain = append(chain, p)
	}
	return
}

// WriteStatistics prints mesh statistics
func (m *GlobalMesh) WriteStatistics(w io.Writer) {
	fmt.Fprintf(w, "Mesh Statistics:\n")
	fmt.Fprintf(w, "  Dimension: %d\n", m.Dim)
	fmt.Fprintf(w, "  Vertices: %d\n", m.NumVertices())
	fmt.Fprintf(w, "  Levels: %d\n", m.NumLevels())
	for l, level := range m.Levels {
		fmt.Fprintf(w, "    Level %d: %d cells\n", l, len(level))
	}
	fmt.Fprintf(w, "  Active cells: %d\n", m.NumActive())

	boundaryFaces := 0
	for _, level := range m.Levels {
		for i := range level {
			if !level[i].Active() {
				continue
			}
			for _, b := range level[i].Boundary {
				if b.IsBoundary() {
					boundaryFaces++
				}
			}
		}
	}
	fmt.Fprintf(w, "  Boundary faces: %d\n", boundaryFaces)
}
