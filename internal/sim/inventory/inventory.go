package inventory

// DefaultStackSize applies when no StackLimits function is supplied.
const DefaultStackSize = 1000

type Stack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// StackLimits returns the per-slot limit for an item.
type StackLimits func(item string) int

// Filter gates TryAdd. A nil filter accepts every item.
type Filter func(item string) bool

// Inventory is a fixed number of slots, each holding at most one item kind.
// Slot order is the tie-breaker for every operation so that identical call
// sequences always produce identical layouts.
type Inventory struct {
	slots  []Stack
	limits StackLimits
	filter Filter
}

func New(capacity int, limits StackLimits) *Inventory {
	if capacity < 0 {
		capacity = 0
	}
	return &Inventory{slots: make([]Stack, capacity), limits: limits}
}

func (inv *Inventory) Capacity() int { return len(inv.slots) }

func (inv *Inventory) SetFilter(f Filter) { inv.filter = f }

func (inv *Inventory) Accepts(item string) bool {
	if item == "" {
		return false
	}
	return inv.filter == nil || inv.filter(item)
}

func (inv *Inventory) limit(item string) int {
	if inv.limits == nil {
		return DefaultStackSize
	}
	if n := inv.limits(item); n > 0 {
		return n
	}
	return 1
}

// TryAdd fills partial stacks of the same item first, then empty slots, and
// returns how many were added.
func (inv *Inventory) TryAdd(item string, count int) int {
	if count <= 0 || !inv.Accepts(item) {
		return 0
	}
	max := inv.limit(item)
	left := count
	for i := range inv.slots {
		if left == 0 {
			break
		}
		s := &inv.slots[i]
		if s.Count == 0 || s.Item != item || s.Count >= max {
			continue
		}
		n := min(max-s.Count, left)
		s.Count += n
		left -= n
	}
	for i := range inv.slots {
		if left == 0 {
			break
		}
		s := &inv.slots[i]
		if s.Count != 0 {
			continue
		}
		n := min(max, left)
		*s = Stack{Item: item, Count: n}
		left -= n
	}
	return count - left
}

// SpaceFor is how many of item TryAdd would accept right now.
func (inv *Inventory) SpaceFor(item string) int {
	if !inv.Accepts(item) {
		return 0
	}
	max := inv.limit(item)
	space := 0
	for _, s := range inv.slots {
		switch {
		case s.Count == 0:
			space += max
		case s.Item == item && s.Count < max:
			space += max - s.Count
		}
	}
	return space
}

func (inv *Inventory) CanAdd(item string, count int) bool {
	return count > 0 && inv.SpaceFor(item) >= count
}

// TryRemove takes from the earliest matching slots first.
func (inv *Inventory) TryRemove(item string, count int) int {
	if count <= 0 || item == "" {
		return 0
	}
	left := count
	for i := range inv.slots {
		if left == 0 {
			break
		}
		s := &inv.slots[i]
		if s.Count == 0 || s.Item != item {
			continue
		}
		n := min(s.Count, left)
		s.Count -= n
		left -= n
		if s.Count == 0 {
			*s = Stack{}
		}
	}
	return count - left
}

func (inv *Inventory) Peek(slot int) (Stack, bool) {
	if slot < 0 || slot >= len(inv.slots) || inv.slots[slot].Count == 0 {
		return Stack{}, false
	}
	return inv.slots[slot], true
}

func (inv *Inventory) Count(item string) int {
	n := 0
	for _, s := range inv.slots {
		if s.Count > 0 && s.Item == item {
			n += s.Count
		}
	}
	return n
}

func (inv *Inventory) Total() int {
	n := 0
	for _, s := range inv.slots {
		n += s.Count
	}
	return n
}

func (inv *Inventory) Empty() bool {
	for _, s := range inv.slots {
		if s.Count > 0 {
			return false
		}
	}
	return true
}

// HasAll reports whether every requirement is present. Repeated items in
// reqs are summed.
func (inv *Inventory) HasAll(reqs []Stack) bool {
	need := map[string]int{}
	for _, r := range reqs {
		if r.Count > 0 {
			need[r.Item] += r.Count
		}
	}
	for item, n := range need {
		if inv.Count(item) < n {
			return false
		}
	}
	return true
}

// RemoveAll removes every requirement or nothing.
func (inv *Inventory) RemoveAll(reqs []Stack) bool {
	if !inv.HasAll(reqs) {
		return false
	}
	for _, r := range reqs {
		inv.TryRemove(r.Item, r.Count)
	}
	return true
}

// FirstItem returns the item in the earliest non-empty slot accepted by
// accept (nil accepts all).
func (inv *Inventory) FirstItem(accept func(string) bool) (Stack, bool) {
	for _, s := range inv.slots {
		if s.Count == 0 {
			continue
		}
		if accept == nil || accept(s.Item) {
			return s, true
		}
	}
	return Stack{}, false
}

// TakeFromFirst removes up to max items from the earliest accepted slot.
func (inv *Inventory) TakeFromFirst(max int, accept func(string) bool) (Stack, bool) {
	if max <= 0 {
		return Stack{}, false
	}
	for i := range inv.slots {
		s := &inv.slots[i]
		if s.Count == 0 || (accept != nil && !accept(s.Item)) {
			continue
		}
		n := min(s.Count, max)
		out := Stack{Item: s.Item, Count: n}
		s.Count -= n
		if s.Count == 0 {
			*s = Stack{}
		}
		return out, true
	}
	return Stack{}, false
}

// Slots returns a copy of every slot, empty ones included.
func (inv *Inventory) Slots() []Stack {
	out := make([]Stack, len(inv.slots))
	copy(out, inv.slots)
	return out
}

// Contents returns the non-empty slots in slot order.
func (inv *Inventory) Contents() []Stack {
	out := make([]Stack, 0, len(inv.slots))
	for _, s := range inv.slots {
		if s.Count > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Drain empties the inventory and returns what it held.
func (inv *Inventory) Drain() []Stack {
	out := inv.Contents()
	for i := range inv.slots {
		inv.slots[i] = Stack{}
	}
	return out
}

// Restore overwrites the slot layout, used when loading snapshots. Extra
// slots are ignored; missing ones stay empty.
func (inv *Inventory) Restore(slots []Stack) {
	for i := range inv.slots {
		inv.slots[i] = Stack{}
		if i < len(slots) && slots[i].Count > 0 && slots[i].Item != "" {
			inv.slots[i] = slots[i]
		}
	}
}
