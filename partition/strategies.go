package partition

import (
	"math"
	"sort"

	"github.com/notargets/fdtria/mesh"
)

// Block assigns consecutive active cells to the same rank
type Block struct{}

func (Block) Name() string { return StrategyBlock }

func (Block) Partition(m *mesh.GlobalMesh, nRanks int) (Partition, error) {
	if err := checkRanks(nRanks); err != nil {
		return nil, err
	}
	return blockAssign(m.ActiveCells(), nRanks), nil
}

// blockAssign gives each rank a contiguous run of at most ceil(n/nRanks) cells, so trailing
// ranks stay empty when there are fewer cells than ranks
func blockAssign(ids []mesh.CellID, nRanks int) (p Partition) {
	p = make(Partition, len(ids))
	if len(ids) == 0 {
		return
	}
	elementsPerPartition := int(math.Ceil(float64(len(ids)) / float64(nRanks)))
	for i, id := range ids {
		r := i / elementsPerPartition
		if r >= nRanks {
			r = nRanks - 1
		}
		p[id] = r
	}
	return
}

// RoundRobin distributes active cells cyclically
type RoundRobin struct{}

func (RoundRobin) Name() string { return StrategyRoundRobin }

func (RoundRobin) Partition(m *mesh.GlobalMesh, nRanks int) (Partition, error) {
	if err := checkRanks(nRanks); err != nil {
		return nil, err
	}
	ids := m.ActiveCells()
	p := make(Partition, len(ids))
	for i, id := range ids {
		p[id] = i % nRanks
	}
	return p, nil
}

// ZOrder orders active cells along a Morton space filling curve through their centroids
// and splits the curve into contiguous blocks, the way a forest of octrees is distributed
type ZOrder struct{}

func (ZOrder) Name() string { return StrategyZOrder }

func (ZOrder) Partition(m *mesh.GlobalMesh, nRanks int) (Partition, error) {
	if err := checkRanks(nRanks); err != nil {
		return nil, err
	}
	ids := m.ActiveCells()
	keys := MortonKeys(m, ids)
	sort.SliceStable(ids, func(i, j int) bool { return keys[ids[i]] < keys[ids[j]] })
	return blockAssign(ids, nRanks), nil
}

const mortonBits = 20

// MortonKeys returns the Morton code of the centroid of each cell, quantized on the bounding box of the mesh
func MortonKeys(m *mesh.GlobalMesh, ids []mesh.CellID) (keys map[mesh.CellID]uint64) {
	var lo, hi [3]float64
	for d := 0; d < 3; d++ {
		lo[d], hi[d] = math.Inf(1), math.Inf(-1)
	}
	for _, x := range m.Vertices {
		for d := 0; d < m.Dim; d++ {
			lo[d] = math.Min(lo[d], x[d])
			hi[d] = math.Max(hi[d], x[d])
		}
	}
	keys = make(map[mesh.CellID]uint64, len(ids))
	scale := float64(uint64(1)<<mortonBits - 1)
	for _, id := range ids {
		var (
			x = m.Centroid(id)
			q [3]uint64
		)
		for d := 0; d < m.Dim; d++ {
			if hi[d] > lo[d] {
				q[d] = uint64((x[d] - lo[d]) / (hi[d] - lo[d]) * scale)
			}
		}
		keys[id] = interleave(q, m.Dim)
	}
	return
}

func interleave(q [3]uint64, dim int) (code uint64) {
	for b := 0; b < mortonBits; b++ {
		for d := 0; d < dim; d++ {
			code |= ((q[d] >> b) & 1) << (b*dim + d)
		}
	}
	return
}
