/*
Package pipeline runs the whole construction on a set of in-process ranks: it generates and
refines the coarse mesh, partitions it, extracts the construction data of every rank, builds
the local meshes and proves them complete by numbering the degrees of freedom on the active
cells and on every level.
*/
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/notargets/fdtria/comm"
	"github.com/notargets/fdtria/construction"
	"github.com/notargets/fdtria/dofs"
	"github.com/notargets/fdtria/mesh"
	"github.com/notargets/fdtria/partition"
	"github.com/notargets/fdtria/source"
	"github.com/notargets/fdtria/tria"
	"github.com/notargets/fdtria/vtu"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Report summarizes a successful run
type Report struct {
	Params       Params
	Stats        []partition.Stats // shared source only
	OwnedPerRank []int
	CellsPerRank []int // held cells over all levels
	Dofs         int
	LevelDofs    []int
	Files        []string
	Compared     int // cells held by more than one rank and compared on rank 0
	Elapsed      time.Duration
}

// NumOwned returns the number of owned active cells over all ranks
func (r *Report) NumOwned() (n int) {
	for _, o := range r.OwnedPerRank {
		n += o
	}
	return
}

type runner struct {
	p      Params
	pt     partition.Partitioner
	coarse *mesh.GlobalMesh
	shared *source.Shared

	mu  sync.Mutex
	rep *Report
}

// parcel carries the encoded data of one rank with its fingerprint
type parcel struct {
	Data []byte
	Sum  string
}

/*
Run executes one construction. Parameters are validated before any mesh is generated. The
errors of all failing ranks are combined, a rank owning no active cell fails the run with an
*partition.EmptyPartitionError.
*/
func Run(ctx context.Context, p Params) (rep *Report, err error) {
	if err = p.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	r := &runner{p: p}
	r.pt, _ = partition.New(p.Partitioner)
	if r.coarse, err = mesh.SubdividedHyperCube(p.Dim, p.Subdivisions, 0, 1); err != nil {
		return nil, err
	}
	r.rep = &Report{
		Params:       p,
		OwnedPerRank: make([]int, p.Ranks),
		CellsPerRank: make([]int, p.Ranks),
	}
	if p.Source == SourceShared {
		if err = r.partitionShared(); err != nil {
			return nil, err
		}
	}

	var world *comm.World
	if world, err = comm.NewWorld(p.Ranks); err != nil {
		return nil, err
	}
	if err = world.Run(ctx, r.rank); err != nil {
		return nil, err
	}

	rep = r.rep
	if n := rep.NumOwned(); n != p.NumActive() {
		return nil, &partition.InconsistentPartitionError{Level: -1, Cell: mesh.NoCell,
			Reason: fmt.Sprintf("ranks own %d active cells, the mesh has %d", n, p.NumActive())}
	}
	sort.Strings(rep.Files)
	rep.Elapsed = time.Since(start)
	log.WithFields(log.Fields{
		"step":  p.Step(),
		"ranks": p.Ranks,
		"cells": rep.NumOwned(),
		"dofs":  rep.Dofs,
		"time":  rep.Elapsed,
	}).Info("construction finished")
	return
}

func (r *runner) partitionShared() (err error) {
	m := r.coarse.Clone()
	if err = m.RefineGlobal(r.p.Refinements); err != nil {
		return
	}
	var active partition.Partition
	if active, err = r.pt.Partition(m, r.p.Ranks); err != nil {
		return fmt.Errorf("%s partition failed: %w", r.pt.Name(), err)
	}
	set := partition.NewSet(m, r.p.Ranks, active)
	if err = partition.Validate(m, set); err != nil {
		return
	}
	r.rep.Stats = partition.Analyze(m, set)
	r.shared = source.NewShared(m, set)
	return
}

// rank is the program every rank executes
func (r *runner) rank(ctx context.Context, c *comm.Comm) (err error) {
	var (
		d    *construction.Data
		lm   *tria.LocalMesh
		view source.View
	)
	if d, view, err = r.data(ctx, c); err != nil {
		return
	}
	if lm, err = tria.Build(c.Rank(), d); err != nil {
		return
	}
	fe := dofs.FEQ{Degree: r.p.Degree}
	var (
		active *dofs.Layout
		levels []*dofs.Layout
	)
	if active, err = dofs.Distribute(ctx, c, lm, fe); err != nil {
		return
	}
	if levels, err = dofs.DistributeMG(ctx, c, lm, fe); err != nil {
		return
	}
	var files []string
	if r.p.OutputDir != "" {
		if files, err = r.output(view, lm); err != nil {
			return
		}
	}
	var compared int
	if r.p.Verify {
		if compared, err = verify(ctx, c, lm); err != nil {
			return
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rep.OwnedPerRank[c.Rank()] = lm.NumOwned()
	r.rep.CellsPerRank[c.Rank()] = d.NumCells()
	r.rep.Files = append(r.rep.Files, files...)
	if c.Rank() == 0 {
		r.rep.Dofs = active.NumDofs
		r.rep.LevelDofs = make([]int, len(levels))
		for l, lay := range levels {
			r.rep.LevelDofs[l] = lay.NumDofs
		}
		r.rep.Compared = compared
	}
	return
}

// data returns the construction data of a rank and the input mesh it came from
func (r *runner) data(ctx context.Context, c *comm.Comm) (d *construction.Data, view source.View, err error) {
	switch {
	case r.p.Source == SourceDistributed:
		var dist *source.Distributed
		if dist, err = source.NewDistributed(r.coarse, r.p.Refinements, r.p.Ranks, c.Rank(), r.pt); err != nil {
			return
		}
		d, err = construction.Extract(dist, c.Rank())
		return d, dist, err
	case r.p.Scatter:
		d, err = r.scatter(ctx, c)
	default:
		d, err = construction.Extract(r.shared, c.Rank())
	}
	return d, r.shared, err
}

// output writes the input mesh slice of a rank next to its reconstructed local mesh
func (r *runner) output(view source.View, lm *tria.LocalMesh) (files []string, err error) {
	if sh, ok := view.(*source.Shared); ok {
		view = sh.Slice(lm.Rank)
	}
	var local []string
	if files, err = vtu.WriteSource(view, lm.Rank, r.p.OutputDir, r.p.SourcePrefix); err != nil {
		return
	}
	if local, err = vtu.WritePerRank(lm, r.p.OutputDir, r.p.Prefix); err != nil {
		return
	}
	return append(files, local...), nil
}

// scatter extracts every rank on rank 0 and sends each its encoded data
func (r *runner) scatter(ctx context.Context, c *comm.Comm) (d *construction.Data, err error) {
	var parcels []parcel
	if c.Rank() == 0 {
		var all []*construction.Data
		if all, err = construction.ExtractAll(r.shared, c.Size()); err != nil {
			return
		}
		parcels = make([]parcel, len(all))
		for rk, data := range all {
			if parcels[rk].Data, err = construction.Encode(data); err != nil {
				return
			}
			parcels[rk].Sum = construction.Fingerprint(data)
		}
	}
	var pc parcel
	if pc, err = comm.Scatter(ctx, c, 0, parcels); err != nil {
		return
	}
	if d, err = construction.Decode(pc.Data); err != nil {
		return
	}
	if sum := construction.Fingerprint(d); sum != pc.Sum {
		return nil, fmt.Errorf("construction data of rank %d changed in transport", c.Rank())
	}
	log.WithFields(log.Fields{
		"rank":  c.Rank(),
		"bytes": len(pc.Data),
	}).Debug("received construction data")
	return
}

// verify gathers the fingerprints of all held cells on rank 0 and checks that every cell
// held by several ranks is the same cell on each of them
func verify(ctx context.Context, c *comm.Comm, lm *tria.LocalMesh) (compared int, err error) {
	var all []map[mesh.CellID]string
	if all, err = comm.Gather(ctx, c, 0, lm.Fingerprints()); err != nil || c.Rank() != 0 {
		return
	}
	type holder struct {
		rank int
		fp   string
	}
	var (
		first   = make(map[mesh.CellID]holder)
		counted = make(map[mesh.CellID]bool)
	)
	for rk, fps := range all {
		for id, fp := range fps {
			h, ok := first[id]
			if !ok {
				first[id] = holder{rk, fp}
				continue
			}
			if h.fp != fp {
				return 0, fmt.Errorf("cell %s differs between rank %d and rank %d", id, h.rank, rk)
			}
			counted[id] = true
		}
	}
	log.WithField("cells", len(counted)).Debug("verified cells shared between ranks")
	return len(counted), nil
}

// StatusLine returns the single line reporting the outcome of a run
func StatusLine(p Params, err error) string {
	line := fmt.Sprintf("Run %s: p=%2d d=%2d r=%2d s=%2d:", p.Step(), p.Ranks, p.Dim, p.Refinements, p.Subdivisions)
	if err != nil {
		return line + " failed...."
	}
	return line + " success...."
}

// ErrorAs reports whether any of the errors combined in err, also below a wrapping rank
// error, matches target, as errors.As
func ErrorAs(err error, target interface{}) bool {
	for _, e := range multierr.Errors(err) {
		if errors.As(e, target) {
			return true
		}
		for u := errors.Unwrap(e); u != nil; u = errors.Unwrap(u) {
			if len(multierr.Errors(u)) > 1 && ErrorAs(u, target) {
				return true
			}
		}
	}
	return false
}
