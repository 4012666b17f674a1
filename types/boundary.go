package types

// BoundaryID labels a face of the domain. Interior faces carry InteriorFace.
type BoundaryID int

const InteriorFace BoundaryID = -1

// Boundary ids of a colorized hypercube, two per coordinate direction
const (
	BC_Left BoundaryID = iota
	BC_Right
	BC_Bottom
	BC_Top
	BC_Front
	BC_Back
)

func (b BoundaryID) String() string {
	switch b {
	case InteriorFace:
		return "Interior"
	case BC_Left:
		return "Left"
	case BC_Right:
		return "Right"
	case BC_Bottom:
		return "Bottom"
	case BC_Top:
		return "Top"
	case BC_Front:
		return "Front"
	case BC_Back:
		return "Back"
	}
	return "Unknown"
}

// IsBoundary reports whether the face lies on the domain boundary
func (b BoundaryID) IsBoundary() bool { return b != InteriorFace }

// HypercubeBoundary returns the boundary id of the face normal to coordinate direction dir,
// on the low (side == 0) or high (side == 1) end
func HypercubeBoundary(dir, side int) BoundaryID {
	return BoundaryID(2*dir + side)
}
