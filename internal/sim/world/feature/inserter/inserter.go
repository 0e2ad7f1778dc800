package inserter

import "factorycraft.ai/internal/sim/inventory"

type Phase uint8

const (
	Idle Phase = iota
	PickingUp
	Holding
	Dropping
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "IDLE"
	case PickingUp:
		return "PICKING_UP"
	case Holding:
		return "HOLDING"
	case Dropping:
		return "DROPPING"
	default:
		return "UNKNOWN"
	}
}

type Spec struct {
	CycleMs  int64
	MaxStack int
}

func (s Spec) pickupMs() int64 { return s.CycleMs / 2 }
func (s Spec) dropMs() int64   { return s.CycleMs - s.CycleMs/2 }

// Source is where an inserter picks items from.
type Source interface {
	// Peek names an item available for pickup that accept allows.
	Peek(accept func(item string) bool) (string, bool)
	// Take removes up to max of item and returns how many were taken.
	Take(item string, max int) int
}

// Dest is where an inserter drops items.
type Dest interface {
	Space(item string) int
	Put(item string, n int) int
}

// State is the runtime of one inserter. While Hand is non-empty the items
// belong to the inserter alone.
type State struct {
	Phase     Phase
	ElapsedMs int64
	Hand      inventory.Stack
}

// Pickup runs the pickup half of a tick. A transfer is only started when the
// source has an item the destination can accept; if the item is gone when
// the swing completes, the inserter returns to Idle.
func (s *State) Pickup(spec Spec, dtMs int64, powered bool, src Source, dst Dest) int {
	if !powered {
		return 0
	}
	switch s.Phase {
	case Idle:
		if src == nil || dst == nil {
			return 0
		}
		if _, ok := src.Peek(acceptor(dst)); !ok {
			return 0
		}
		s.Phase = PickingUp
		s.ElapsedMs = dtMs
	case PickingUp:
		s.ElapsedMs += dtMs
	default:
		return 0
	}
	if s.ElapsedMs < spec.pickupMs() {
		return 0
	}

	s.ElapsedMs = 0
	if src == nil || dst == nil {
		s.Phase = Idle
		return 0
	}
	item, ok := src.Peek(acceptor(dst))
	if !ok {
		s.Phase = Idle
		return 0
	}
	n := src.Take(item, max(spec.MaxStack, 1))
	if n <= 0 {
		s.Phase = Idle
		return 0
	}
	s.Hand = inventory.Stack{Item: item, Count: n}
	s.Phase = Holding
	return n
}

// Drop runs the drop half of a tick. The tick an item is picked up only
// hands it over to the drop swing; the swing then takes the rest of the
// cycle. A partial or failed drop keeps the remainder in hand and retries on
// every following tick.
func (s *State) Drop(spec Spec, dtMs int64, powered bool, dst Dest) int {
	if !powered {
		return 0
	}
	switch s.Phase {
	case Holding:
		s.Phase = Dropping
		s.ElapsedMs = 0
		return 0
	case Dropping:
		if s.ElapsedMs < spec.dropMs() {
			s.ElapsedMs += dtMs
		}
	default:
		return 0
	}
	if s.ElapsedMs < spec.dropMs() || dst == nil {
		return 0
	}
	n := dst.Put(s.Hand.Item, s.Hand.Count)
	s.Hand.Count -= n
	if s.Hand.Count <= 0 {
		s.Hand = inventory.Stack{}
		s.Phase = Idle
		s.ElapsedMs = 0
	}
	return n
}

// Release empties the hand, used when the inserter is removed.
func (s *State) Release() (inventory.Stack, bool) {
	h := s.Hand
	*s = State{}
	return h, h.Count > 0
}

// Fraction is progress through the current swing.
func (s State) Fraction(spec Spec) float64 {
	var total int64
	switch s.Phase {
	case PickingUp:
		total = spec.pickupMs()
	case Dropping:
		total = spec.dropMs()
	default:
		return 0
	}
	if total <= 0 {
		return 1
	}
	return min(float64(s.ElapsedMs)/float64(total), 1)
}

func acceptor(dst Dest) func(string) bool {
	return func(item string) bool { return dst.Space(item) > 0 }
}
