package inserter

import (
	"factorycraft.ai/internal/sim/inventory"
	"factorycraft.ai/internal/sim/world/feature/conveyor"
)

// Inventories picks from a list of inventories in order, e.g. a machine's
// Output before its storage.
type Inventories []*inventory.Inventory

func (s Inventories) Peek(accept func(string) bool) (string, bool) {
	for _, inv := range s {
		if inv == nil {
			continue
		}
		if st, ok := inv.FirstItem(accept); ok {
			return st.Item, true
		}
	}
	return "", false
}

func (s Inventories) Take(item string, max int) int {
	for _, inv := range s {
		if inv == nil || inv.Count(item) == 0 {
			continue
		}
		st, _ := inv.TakeFromFirst(max, func(it string) bool { return it == item })
		return st.Count
	}
	return 0
}

// Inbox drops into a machine: fuel items go to Fuel first, everything else
// (and fuel that does not fit) to the remaining inventories in order.
type Inbox struct {
	Fuel   *inventory.Inventory
	IsFuel func(item string) bool
	Others []*inventory.Inventory
}

func (d Inbox) Space(item string) int {
	n := 0
	if d.Fuel != nil && d.IsFuel != nil && d.IsFuel(item) {
		n += d.Fuel.SpaceFor(item)
	}
	for _, inv := range d.Others {
		if inv != nil {
			n += inv.SpaceFor(item)
		}
	}
	return n
}

func (d Inbox) Put(item string, count int) int {
	put := 0
	if d.Fuel != nil && d.IsFuel != nil && d.IsFuel(item) {
		put += d.Fuel.TryAdd(item, count)
	}
	for _, inv := range d.Others {
		if put >= count {
			break
		}
		if inv != nil {
			put += inv.TryAdd(item, count-put)
		}
	}
	return put
}

// Belt adapts a belt segment. Pickups take the frontmost item; drops place a
// single item on Lane at Pos.
type Belt struct {
	Seg    *conveyor.Segment
	Params conveyor.Params
	Lane   conveyor.Lane
	Pos    int
}

func (b Belt) Peek(accept func(string) bool) (string, bool) {
	return b.Seg.PeekFront(accept)
}

func (b Belt) Take(item string, max int) int {
	if max <= 0 {
		return 0
	}
	if _, ok := b.Seg.TakeFront(func(it string) bool { return it == item }); ok {
		return 1
	}
	return 0
}

func (b Belt) Space(item string) int {
	if b.Seg.CanInsert(b.Params, b.Lane, b.Pos) {
		return 1
	}
	return 0
}

func (b Belt) Put(item string, count int) int {
	if count > 0 && b.Seg.InsertAt(b.Params, b.Lane, b.Pos, item) {
		return 1
	}
	return 0
}
