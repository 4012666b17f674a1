// Package vtu writes the local and input meshes of all ranks as VTK XML unstructured grids, one
// file per level and rank plus a parallel index per level, for inspection in ParaView.
package vtu

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/notargets/fdtria/mesh"
	"github.com/notargets/fdtria/source"
	"github.com/notargets/fdtria/tria"
	log "github.com/sirupsen/logrus"
)

// VTK cell types
const (
	vtkLine       = 3
	vtkQuad       = 9
	vtkHexahedron = 12
)

// vtkOrder maps VTK vertex positions to lexicographic ones
var vtkOrder = map[mesh.ElementType][]int{
	mesh.Line: {0, 1},
	mesh.Quad: {0, 1, 3, 2},
	mesh.Hex:  {0, 1, 3, 2, 4, 5, 7, 6},
}

var vtkType = map[mesh.ElementType]int{
	mesh.Line: vtkLine,
	mesh.Quad: vtkQuad,
	mesh.Hex:  vtkHexahedron,
}

// CellFields are the cell data arrays written for every cell of a local mesh
var CellFields = []string{"level", "subdomain", "level_subdomain", "status", "level_status", "proc_writing"}

// SourceFields are the cell data arrays written for every cell of an input mesh
var SourceFields = []string{"level", "subdomain", "level_subdomain", "proc_writing"}

type File struct {
	XMLName   xml.Name `xml:"VTKFile"`
	Type      string   `xml:"type,attr"`
	Version   string   `xml:"version,attr"`
	ByteOrder string   `xml:"byte_order,attr"`
	Grid      *Grid    `xml:"UnstructuredGrid,omitempty"`
	PGrid     *PGrid   `xml:"PUnstructuredGrid,omitempty"`
}

type Grid struct {
	Piece Piece `xml:"Piece"`
}

type Piece struct {
	NumberOfPoints int         `xml:"NumberOfPoints,attr"`
	NumberOfCells  int         `xml:"NumberOfCells,attr"`
	Points         []DataArray `xml:"Points>DataArray"`
	Cells          []DataArray `xml:"Cells>DataArray"`
	CellData       CellData    `xml:"CellData"`
}

type CellData struct {
	Scalars string      `xml:"Scalars,attr,omitempty"`
	Arrays  []DataArray `xml:"DataArray"`
}

type DataArray struct {
	Type       string `xml:"type,attr"`
	Name       string `xml:"Name,attr,omitempty"`
	Components int    `xml:"NumberOfComponents,attr,omitempty"`
	Format     string `xml:"format,attr,omitempty"`
	Values     string `xml:",chardata"`
}

type PGrid struct {
	GhostLevel int         `xml:"GhostLevel,attr"`
	CellData   PCellData   `xml:"PCellData"`
	Points     []DataArray `xml:"PPoints>PDataArray"`
	Pieces     []PieceRef  `xml:"Piece"`
}

type PCellData struct {
	Scalars string      `xml:"Scalars,attr,omitempty"`
	Arrays  []DataArray `xml:"PDataArray"`
}

type PieceRef struct {
	Source string `xml:"Source,attr"`
}

// PieceName returns the file name of the piece of rank on a level
func PieceName(prefix string, level, rank int) string {
	return fmt.Sprintf("%s_%d.%04d.vtu", prefix, level, rank)
}

// IndexName returns the file name of the parallel index of a level
func IndexName(prefix string, level int) string {
	return fmt.Sprintf("%s_%d.pvtu", prefix, level)
}

/*
WritePerRank writes every level of lm, artificial cells included, to dir. Rank 0 also writes
the parallel index of each level naming the pieces of all ranks. It returns the written paths.
*/
func WritePerRank(lm *tria.LocalMesh, dir, prefix string) (files []string, err error) {
	pieces := make([]*File, len(lm.Levels))
	for l := range lm.Levels {
		pieces[l] = piece(lm, l)
	}
	return write(pieces, lm.Rank, lm.NumRanks, CellFields, dir, prefix)
}

/*
WriteSource writes every level of the input mesh as rank sees it, next to the reconstructed
local mesh, so both can be compared cell by cell. The cells written are those of v that are
visible to rank, pass a Shared view through Slice to restrict it.
*/
func WriteSource(v source.View, rank int, dir, prefix string) (files []string, err error) {
	pieces := make([]*File, v.NumLevels())
	for l := range pieces {
		pieces[l] = sourcePiece(v, rank, l)
	}
	return write(pieces, rank, v.NumRanks(), SourceFields, dir, prefix)
}

func write(pieces []*File, rank, nRanks int, fields []string, dir, prefix string) (files []string, err error) {
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	for l, p := range pieces {
		path := filepath.Join(dir, PieceName(prefix, l, rank))
		if err = writeXML(path, p); err != nil {
			return
		}
		files = append(files, path)
		if rank != 0 {
			continue
		}
		path = filepath.Join(dir, IndexName(prefix, l))
		if err = writeXML(path, index(prefix, l, nRanks, fields)); err != nil {
			return
		}
		files = append(files, path)
	}
	log.WithFields(log.Fields{
		"rank":   rank,
		"files":  len(files),
		"dir":    dir,
		"prefix": prefix,
	}).Debug("wrote vtu output")
	return
}

// row is one cell to write, vertices index the points of its piece
type row struct {
	typ    mesh.ElementType
	verts  []int
	values []int
}

func piece(lm *tria.LocalMesh, level int) *File {
	cells := lm.Levels[level].Cells
	rows := make([]row, len(cells))
	for i := range cells {
		c := &cells[i]
		rows[i] = row{c.Type, c.Vertices,
			[]int{level, c.Owner, c.LevelOwner, int(c.Status), int(c.LevelStatus), lm.Rank}}
	}
	return grid(lm.Vertices, rows, CellFields)
}

func sourcePiece(v source.View, rank, level int) *File {
	var (
		ids    = v.Cells(level)
		rows   = make([]row, 0, len(ids))
		local  = make(map[int]int)
		points [][3]float64
	)
	for _, id := range ids {
		c, ok := v.Cell(id)
		if !ok {
			continue
		}
		r := row{typ: c.Type, verts: make([]int, len(c.Vertices)),
			values: []int{level, v.Owner(id), v.LevelOwner(id), rank}}
		for k, gv := range c.Vertices {
			lv, seen := local[gv]
			if !seen {
				lv = len(points)
				local[gv] = lv
				points = append(points, v.Vertex(gv))
			}
			r.verts[k] = lv
		}
		rows = append(rows, r)
	}
	return grid(points, rows, SourceFields)
}

func grid(vertices [][3]float64, rows []row, names []string) *File {
	var (
		points = make([]float64, 0, 3*len(vertices))
		conn   []int
		offs   = make([]int, len(rows))
		types  = make([]int, len(rows))
		fields = make([][]int, len(names))
	)
	for _, x := range vertices {
		points = append(points, x[0], x[1], x[2])
	}
	for i, r := range rows {
		for _, k := range vtkOrder[r.typ] {
			conn = append(conn, r.verts[k])
		}
		offs[i] = len(conn)
		types[i] = vtkType[r.typ]
		for f, v := range r.values {
			fields[f] = append(fields[f], v)
		}
	}
	p := Piece{
		NumberOfPoints: len(vertices),
		NumberOfCells:  len(rows),
		Points:         []DataArray{{Type: "Float64", Components: 3, Format: "ascii", Values: floats(points)}},
		Cells: []DataArray{
			{Type: "Int64", Name: "connectivity", Format: "ascii", Values: ints(conn)},
			{Type: "Int64", Name: "offsets", Format: "ascii", Values: ints(offs)},
			{Type: "UInt8", Name: "types", Format: "ascii", Values: ints(types)},
		},
		CellData: CellData{Scalars: "subdomain"},
	}
	for f, name := range names {
		p.CellData.Arrays = append(p.CellData.Arrays,
			DataArray{Type: "Int32", Name: name, Format: "ascii", Values: ints(fields[f])})
	}
	return &File{Type: "UnstructuredGrid", Version: "0.1", ByteOrder: "LittleEndian", Grid: &Grid{Piece: p}}
}

func index(prefix string, level, nRanks int, names []string) *File {
	pg := &PGrid{
		CellData: PCellData{Scalars: "subdomain"},
		Points:   []DataArray{{Type: "Float64", Components: 3}},
	}
	for _, name := range names {
		pg.CellData.Arrays = append(pg.CellData.Arrays, DataArray{Type: "Int32", Name: name})
	}
	for r := 0; r < nRanks; r++ {
		pg.Pieces = append(pg.Pieces, PieceRef{Source: PieceName(filepath.Base(prefix), level, r)})
	}
	return &File{Type: "PUnstructuredGrid", Version: "0.1", ByteOrder: "LittleEndian", PGrid: pg}
}

func writeXML(path string, f *File) error {
	b, err := xml.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	b = append([]byte(xml.Header), b...)
	if err = os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Read parses a file written by WritePerRank or WriteSource
func Read(path string) (f *File, err error) {
	var b []byte
	if b, err = os.ReadFile(path); err != nil {
		return
	}
	f = &File{}
	if err = xml.Unmarshal(b, f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return
}

func ints(v []int) string {
	s := make([]string, len(v))
	for i, x := range v {
		s[i] = strconv.Itoa(x)
	}
	return strings.Join(s, " ")
}

func floats(v []float64) string {
	s := make([]string, len(v))
	for i, x := range v {
		s[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return strings.Join(s, " ")
}

// Ints parses the values of an integer data array
func (da DataArray) Ints() (v []int, err error) {
	for _, field := range strings.Fields(da.Values) {
		var x int
		if x, err = strconv.Atoi(field); err != nil {
			return nil, err
		}
		v = append(v, x)
	}
	return
}
