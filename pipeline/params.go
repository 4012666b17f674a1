package pipeline

import (
	"fmt"
	"strings"

	"github.com/notargets/fdtria/partition"
)

// Mesh sources
const (
	SourceShared      = "shared"
	SourceDistributed = "distributed"
)

// Params describes one construction run
type Params struct {
	Dim          int    `json:"dim"`
	Refinements  int    `json:"refinements"`
	Subdivisions int    `json:"subdivisions"`
	Ranks        int    `json:"ranks"`
	Source       string `json:"source"`
	Partitioner  string `json:"partitioner"`
	Degree       int    `json:"degree"`
	Scatter      bool   `json:"scatter"`      // root extracts every rank and scatters the encoded data
	OutputDir    string `json:"outputDir"`    // VTU output is skipped when empty
	Prefix       string `json:"prefix"`       // reconstructed local meshes
	SourcePrefix string `json:"sourcePrefix"` // input meshes as each rank sees them
	Verify       bool   `json:"verify"`       // compare the cells shared between ranks on rank 0
}

// DefaultParams returns the parameters of the round trip run on a 2D 4x4 mesh refined twice
func DefaultParams() Params {
	return Params{
		Dim:          2,
		Refinements:  2,
		Subdivisions: 4,
		Ranks:        4,
		Source:       SourceShared,
		Partitioner:  partition.StrategyMetis,
		Degree:       2,
		Prefix:       "trid_pft",
		SourcePrefix: "trid_pdt",
	}
}

// InvalidArgumentError reports a parameter rejected before any mesh is generated
type InvalidArgumentError struct {
	Param  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Param, e.Reason)
}

// Validate checks the parameters and normalizes the source and partitioner names
func (p *Params) Validate() error {
	p.Source = strings.ToLower(strings.TrimSpace(p.Source))
	p.Partitioner = strings.ToLower(strings.TrimSpace(p.Partitioner))
	switch {
	case p.Dim < 1 || p.Dim > 3:
		return &InvalidArgumentError{"dim", fmt.Sprintf("only dimensions 1, 2 and 3 are supported, have %d", p.Dim)}
	case p.Refinements < 0:
		return &InvalidArgumentError{"refinements", fmt.Sprintf("must not be negative, have %d", p.Refinements)}
	case p.Subdivisions < 1:
		return &InvalidArgumentError{"subdivisions", fmt.Sprintf("must be positive, have %d", p.Subdivisions)}
	case p.Ranks < 1:
		return &InvalidArgumentError{"ranks", fmt.Sprintf("must be positive, have %d", p.Ranks)}
	case p.Degree < 1:
		return &InvalidArgumentError{"degree", fmt.Sprintf("must be positive, have %d", p.Degree)}
	}
	switch p.Source {
	case SourceShared:
	case SourceDistributed:
		if p.Dim == 1 {
			return &InvalidArgumentError{"dim", "a distributed source needs dimension 2 or 3"}
		}
		if p.Scatter {
			return &InvalidArgumentError{"scatter", "a distributed source has no root holding every rank's data"}
		}
	default:
		return &InvalidArgumentError{"source", fmt.Sprintf("unknown source %q", p.Source)}
	}
	if _, err := partition.New(p.Partitioner); err != nil {
		return &InvalidArgumentError{"partitioner", err.Error()}
	}
	if p.OutputDir != "" {
		switch {
		case p.Prefix == "":
			return &InvalidArgumentError{"prefix", "an output directory needs a file prefix"}
		case p.SourcePrefix == "":
			return &InvalidArgumentError{"sourcePrefix", "an output directory needs a file prefix"}
		case p.SourcePrefix == p.Prefix:
			return &InvalidArgumentError{"sourcePrefix", fmt.Sprintf("%q is also the prefix of the local meshes", p.Prefix)}
		}
	}
	return nil
}

// NumActive returns the number of active cells of the refined mesh
func (p Params) NumActive() int {
	n := 1
	for i := 0; i < p.Dim; i++ {
		n *= p.Subdivisions << p.Refinements
	}
	return n
}

// Step names the driver a source corresponds to
func (p Params) Step() string {
	if strings.ToLower(strings.TrimSpace(p.Source)) == SourceDistributed {
		return "step-8"
	}
	return "step-3"
}
