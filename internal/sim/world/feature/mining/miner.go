package mining

import (
	"factorycraft.ai/internal/sim/inventory"
	"factorycraft.ai/internal/sim/world/kernel/model"
)

// Field is the part of the terrain a miner reads.
type Field interface {
	Resource(c model.Cell) (item string, amount int, ok bool)
	Extract(c model.Cell, n int) (item string, taken int)
}

// Receiver accepts ejected items, e.g. a belt or a chest in front of the
// miner.
type Receiver interface {
	Space(item string) int
	Put(item string, n int) int
}

type Spec struct {
	Rate       float64
	MineTimeMs int64
}

func (s Spec) ratePermille() int64 { return int64(s.Rate*1000 + 0.5) }
func (s Spec) threshold() int64    { return s.MineTimeMs * 1000 }

// State accumulates mining work in ms*permille so that fractional rates stay
// in integer arithmetic.
type State struct {
	Progress int64
}

type Result struct {
	Item       string
	Mined      int
	NoResource bool
	OutputFull bool
}

// Tick accrues work while powered and over a non-depleted node. When one
// item's worth of work is done it is extracted only if Output has room;
// otherwise progress stays capped at one item.
func (s *State) Tick(spec Spec, dtMs int64, powered bool, cells []model.Cell, field Field, out *inventory.Inventory) Result {
	var res Result
	if !powered || field == nil || out == nil {
		return res
	}
	cell, item, ok := pickCell(cells, field)
	if !ok {
		res.NoResource = true
		return res
	}
	res.Item = item
	limit := spec.threshold()
	if s.Progress < limit {
		s.Progress = min(s.Progress+dtMs*spec.ratePermille(), limit)
	}
	if s.Progress < limit {
		return res
	}
	if !out.CanAdd(item, 1) {
		res.OutputFull = true
		return res
	}
	got, n := field.Extract(cell, 1)
	if n == 0 {
		return res
	}
	out.TryAdd(got, n)
	s.Progress -= limit
	res.Mined = n
	return res
}

// Fraction is progress towards the next item.
func (s State) Fraction(spec Spec) float64 {
	if spec.threshold() <= 0 {
		return 0
	}
	return min(float64(s.Progress)/float64(spec.threshold()), 1)
}

// pickCell returns the first cell (in the given order) over a live node.
func pickCell(cells []model.Cell, field Field) (model.Cell, string, bool) {
	for _, c := range cells {
		if item, _, ok := field.Resource(c); ok {
			return c, item, true
		}
	}
	return model.Cell{}, "", false
}

// HasResource reports whether any cell covers a live node.
func HasResource(cells []model.Cell, field Field) bool {
	_, _, ok := pickCell(cells, field)
	return ok
}

// Eject moves one item from out to dst, earliest slot first.
func Eject(out *inventory.Inventory, dst Receiver) (string, bool) {
	if out == nil || dst == nil {
		return "", false
	}
	st, ok := out.FirstItem(func(item string) bool { return dst.Space(item) > 0 })
	if !ok {
		return "", false
	}
	if dst.Put(st.Item, 1) != 1 {
		return "", false
	}
	out.TryRemove(st.Item, 1)
	return st.Item, true
}
