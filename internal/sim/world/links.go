package world

import (
	"sort"

	"factorycraft.ai/internal/sim/world/feature/conveyor"
	"factorycraft.ai/internal/sim/world/kernel/model"
)

// occupancy exposes the structure table to placement validation, keyed by
// table index.
type occupancy struct{ w *World }

func (o occupancy) OccupantAt(c model.Cell) (int, bool) {
	idx, ok := o.w.occ[c]
	return int(idx), ok
}

func (o occupancy) ColliderOf(id int) model.Rect {
	if s := o.w.table.at(uint32(id)); s != nil {
		return s.rect
	}
	return model.Rect{}
}

func (o occupancy) Reach() int { return o.w.cats.Structures.Reach }

func (w *World) structureAt(c model.Cell) *structure {
	idx, ok := w.occ[c]
	if !ok {
		return nil
	}
	return w.table.at(idx)
}

func (w *World) handleAt(c model.Cell) Handle {
	if s := w.structureAt(c); s != nil {
		return s.handle
	}
	return Handle{}
}

// relink re-resolves every structure on or next to cells. Inserter pick and
// drop cells, belt successors and miner drop cells are all orthogonally
// adjacent to their owner, so this covers every link a change can affect.
func (w *World) relink(cells []model.Cell) {
	seen := map[uint32]bool{}
	var idxs []uint32
	for _, c := range cells {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				idx, ok := w.occ[model.Cell{X: c.X + dx, Y: c.Y + dy}]
				if !ok || seen[idx] {
					continue
				}
				seen[idx] = true
				idxs = append(idxs, idx)
			}
		}
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })
	for _, idx := range idxs {
		if s := w.table.at(idx); s != nil {
			w.resolve(s)
		}
	}
}

func (w *World) relinkAll() {
	w.table.each(w.resolve)
}

func (w *World) resolve(s *structure) {
	fwd := s.dir.Forward()
	if s.ins != nil {
		s.pickFrom = w.handleAt(s.anchor.Sub(fwd))
		s.dropTo = w.handleAt(s.anchor.Add(fwd))
	}
	if s.miner != nil {
		wd, ht := s.size()
		s.ejectTo = w.handleAt(model.FrontCell(s.anchor, wd, ht, s.dir))
	}
	if s.belt != nil {
		next, entry := -1, conveyor.Straight
		if o := w.structureAt(s.anchor.Add(fwd)); o != nil && o.belt != nil {
			if e, ok := conveyor.Connect(s.dir, o.dir); ok {
				next, entry = int(o.handle.Index), e
			}
		}
		if s.belt.Next != next || s.belt.Entry != entry {
			s.belt.Next, s.belt.Entry = next, entry
			w.beltsDirty = true
		}
	}
}
