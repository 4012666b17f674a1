package partition

import (
	"fmt"

	"github.com/notargets/fdtria/mesh"
	metis "github.com/notargets/go-metis"
	log "github.com/sirupsen/logrus"
)

// Metis partitions the face graph of the active cells with METIS k-way
type Metis struct {
	ImbalanceFactor  float32 // e.g., 1.05 for 5% imbalance
	UseEdgeWeights   bool
	UseVertexWeights bool
	Objective        string // "cut" or "vol"

	// Cost models
	computeCostModel func(elemType mesh.ElementType) int32
	commCostModel    func(faceVertices int) int32
}

// DefaultMetis returns the default METIS configuration
func DefaultMetis() *Metis {
	return &Metis{
		ImbalanceFactor:  1.05,
		UseEdgeWeights:   true,
		UseVertexWeights: true,
		Objective:        "vol", // minimize communication volume
		computeCostModel: func(elemType mesh.ElementType) int32 {
			// Cost proportional to the vertex count of the element
			return int32(elemType.NumVertices())
		},
		commCostModel: func(faceVertices int) int32 {
			// For linear elements the face DOFs are its vertices
			return int32(faceVertices)
		},
	}
}

func (mp *Metis) Name() string { return StrategyMetis }

func (mp *Metis) Partition(m *mesh.GlobalMesh, nRanks int) (p Partition, err error) {
	if err = checkRanks(nRanks); err != nil {
		return
	}
	ids := m.ActiveCells()
	log.WithFields(log.Fields{
		"cells": len(ids),
		"ranks": nRanks,
	}).Debug("partitioning active cells with METIS")

	p = make(Partition, len(ids))
	if nRanks == 1 || len(ids) <= nRanks {
		// METIS refuses more parts than vertices, one cell per rank in order
		for i, id := range ids {
			p[id] = i % nRanks
		}
		return
	}

	xadj, adjncy, vwgt, adjwgt := mp.buildMetisGraph(m, ids)

	opts := make([]int32, metis.NoOptions)
	if err = metis.SetDefaultOptions(opts); err != nil {
		err = fmt.Errorf("failed to set METIS options: %w", err)
		return
	}
	if mp.Objective == "vol" {
		opts[metis.OptionObjType] = metis.ObjTypeVol
	} else {
		opts[metis.OptionObjType] = metis.ObjTypeCut
	}
	ubvec := []float32{mp.ImbalanceFactor}

	var vwgtPtr, adjwgtPtr []int32
	if mp.UseVertexWeights {
		vwgtPtr = vwgt
	}
	if mp.UseEdgeWeights {
		adjwgtPtr = adjwgt
	}

	part, objval, err := metis.PartGraphKwayWeighted(
		xadj, adjncy, vwgtPtr, adjwgtPtr,
		int32(nRanks), nil, ubvec, opts,
	)
	if err != nil {
		err = fmt.Errorf("METIS partitioning failed: %w", err)
		return
	}
	for i, id := range ids {
		p[id] = int(part[i])
	}
	log.WithField("objective", objval).Debug("METIS partition complete")
	return
}

// buildMetisGraph converts the face connectivity of the given cells to METIS CSR format
func (mp *Metis) buildMetisGraph(m *mesh.GlobalMesh, ids []mesh.CellID) (xadj, adjncy, vwgt, adjwgt []int32) {
	var (
		ne    = len(ids)
		types = make([]mesh.ElementType, ne)
		conn  = make([][]int, ne)
	)
	for i, id := range ids {
		c := m.Cell(id)
		types[i] = c.Type
		conn[i] = c.Vertices
	}
	fc := mesh.BuildFaceConnectivity(types, conn)

	if mp.UseVertexWeights {
		vwgt = make([]int32, ne)
		for i := 0; i < ne; i++ {
			vwgt[i] = mp.computeCostModel(types[i])
		}
	}

	xadj = make([]int32, ne+1)
	for elem := 0; elem < ne; elem++ {
		for faceIdx, neighbor := range fc.EToE[elem] {
			if neighbor >= 0 && neighbor != elem {
				adjncy = append(adjncy, int32(neighbor))
				if mp.UseEdgeWeights {
					nfv := len(types[elem].FaceVertices()[faceIdx])
					adjwgt = append(adjwgt, mp.commCostModel(nfv))
				}
			}
		}
		xadj[elem+1] = int32(len(adjncy))
	}
	return
}
