package partition

import (
	"github.com/notargets/fdtria/mesh"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Stats holds statistics for a single rank of the active partition
type Stats struct {
	Rank        int
	NumCells    int
	CutFaces    int         // faces shared with cells of other ranks
	Neighbors   map[int]int // neighbor rank -> shared faces
	Components  int         // connected pieces of the rank's subdomain
	LevelCounts []int       // level owned cells per level
}

// Analyze computes and logs partition statistics. It reports only, nothing is optimized.
func Analyze(m *mesh.GlobalMesh, s *Set) (stats []Stats) {
	var (
		ids   = m.ActiveCells()
		types = make([]mesh.ElementType, len(ids))
		conn  = make([][]int, len(ids))
	)
	stats = make([]Stats, s.NumRanks)
	for r := range stats {
		stats[r].Rank = r
		stats[r].Neighbors = make(map[int]int)
		stats[r].LevelCounts = make([]int, len(s.Levels))
	}
	for i, id := range ids {
		types[i] = m.Cell(id).Type
		conn[i] = m.Cell(id).Vertices
	}
	fc := mesh.BuildFaceConnectivity(types, conn)

	graphs := make([]*simple.UndirectedGraph, s.NumRanks)
	for r := range graphs {
		graphs[r] = simple.NewUndirectedGraph()
	}
	for i, id := range ids {
		r := s.Owner(id)
		if r < 0 || r >= s.NumRanks {
			continue
		}
		stats[r].NumCells++
		graphs[r].AddNode(simple.Node(i))
	}
	cutEdges := 0
	for i, id := range ids {
		r := s.Owner(id)
		if r < 0 || r >= s.NumRanks {
			continue
		}
		for _, k := range fc.EToE[i] {
			if k < 0 {
				continue
			}
			nr := s.Owner(ids[k])
			if nr != r {
				stats[r].CutFaces++
				stats[r].Neighbors[nr]++
				if k > i {
					cutEdges++
				}
				continue
			}
			if k > i {
				graphs[r].SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(k)})
			}
		}
	}
	for r := range stats {
		stats[r].Components = len(topo.ConnectedComponents(graphs[r]))
	}
	for l, p := range s.Levels {
		for _, r := range p {
			if r >= 0 && r < s.NumRanks {
				stats[r].LevelCounts[l]++
			}
		}
	}

	log.WithFields(log.Fields{
		"ranks":    s.NumRanks,
		"cells":    len(ids),
		"cutFaces": cutEdges,
	}).Info("partition analysis")
	for _, st := range stats {
		log.WithFields(log.Fields{
			"rank":       st.Rank,
			"cells":      st.NumCells,
			"cutFaces":   st.CutFaces,
			"neighbors":  len(st.Neighbors),
			"components": st.Components,
			"levels":     st.LevelCounts,
		}).Debug("rank partition")
	}
	return
}
