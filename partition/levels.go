package partition

import "github.com/notargets/fdtria/mesh"

/*
Levels derives one partition per level from the active partition. Walking from the finest
level to the coarsest, an active cell keeps its active owner and a refined cell inherits the
level owner of its first child. A parent is therefore always owned by a rank that owns one of
its children, which keeps the hierarchy walkable on every rank.
*/
func Levels(m *mesh.GlobalMesh, active Partition) (levels []Partition) {
	levels = make([]Partition, m.NumLevels())
	for l := m.NumLevels() - 1; l >= 0; l-- {
		levels[l] = make(Partition, len(m.Levels[l]))
		for i := range m.Levels[l] {
			var (
				id   = mesh.CellID{Level: l, Index: i}
				cell = &m.Levels[l][i]
			)
			if cell.Active() {
				if r, ok := active[id]; ok {
					levels[l][id] = r
				} else {
					levels[l][id] = NoRank
				}
				continue
			}
			levels[l][id] = levels[l+1][mesh.CellID{Level: l + 1, Index: cell.Children[0]}]
		}
	}
	return
}
