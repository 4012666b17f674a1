package tria

import (
	"fmt"

	"github.com/notargets/fdtria/mesh"
)

// IncompleteHaloError reports construction data that lacks a cell the rank needs. It is
// raised by the rank's own validation and never retried.
type IncompleteHaloError struct {
	Rank   int
	Level  int // -1 for the active cells
	Cell   mesh.CellID
	Vertex int // global vertex id, -1 when the failure is not about a vertex
	Want   int
	Have   int
	Reason string
}

func (e *IncompleteHaloError) Error() string {
	where := "active cells"
	if e.Level >= 0 {
		where = fmt.Sprintf("level %d", e.Level)
	}
	msg := fmt.Sprintf("rank %d: incomplete halo on %s at cell %s: %s", e.Rank, where, e.Cell, e.Reason)
	if e.Vertex >= 0 {
		msg += fmt.Sprintf(" (vertex %d: want %d cells, have %d)", e.Vertex, e.Want, e.Have)
	}
	return msg
}
