package partition

import (
	"fmt"

	"github.com/notargets/fdtria/mesh"
)

// InconsistentPartitionError reports a partition that is not a total function onto the
// ranks, or a level partition that breaks the hierarchy. It aborts the whole collective.
type InconsistentPartitionError struct {
	Level  int // -1 for the active partition
	Cell   mesh.CellID
	Reason string
}

func (e *InconsistentPartitionError) Error() string {
	if e.Level < 0 {
		return fmt.Sprintf("inconsistent active partition at cell %s: %s", e.Cell, e.Reason)
	}
	return fmt.Sprintf("inconsistent level %d partition at cell %s: %s", e.Level, e.Cell, e.Reason)
}

// EmptyPartitionError reports a rank without any owned active cell
type EmptyPartitionError struct {
	Rank     int
	NumRanks int
}

func (e *EmptyPartitionError) Error() string {
	return fmt.Sprintf("rank %d of %d owns no active cells", e.Rank, e.NumRanks)
}
