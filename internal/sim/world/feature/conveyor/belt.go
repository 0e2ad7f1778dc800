package conveyor

import (
	"sort"

	"factorycraft.ai/internal/sim/inventory"
	"factorycraft.ai/internal/sim/world/kernel/model"
)

type Lane uint8

const (
	Left Lane = iota
	Right
)

func (l Lane) String() string {
	if l == Left {
		return "L"
	}
	return "R"
}

// Entry describes how items leave a segment into its successor.
type Entry uint8

const (
	// Straight continues on the same lane at position 0.
	Straight Entry = iota
	// SideLeft and SideRight merge both lanes into the successor's left or
	// right lane at its midpoint.
	SideLeft
	SideRight
)

// Params are shared by every segment of a network, in position units.
type Params struct {
	Length  int
	Spacing int
}

// Item is one item on a lane. Pos is the distance travelled from the start
// of the segment, in [0, Length].
type Item struct {
	Name string `json:"name"`
	Pos  int    `json:"pos"`

	// arrived marks an item handed in during the current Advance.
	arrived bool
}

// Segment is one belt tile. Lanes are ordered front-first (highest Pos first).
type Segment struct {
	Dir   model.Direction
	Speed int // position units per second
	Lanes [2][]Item

	// Next is the id of the successor segment, or -1.
	Next  int
	Entry Entry

	// Carry is the sub-unit movement left over from earlier ticks, in
	// position units times milliseconds.
	Carry int64
}

func NewSegment(dir model.Direction, speed int) *Segment {
	return &Segment{Dir: dir, Speed: speed, Next: -1}
}

// Connect classifies the link from a segment facing from into a segment
// facing to. ok is false for head-on belts, which never hand off.
func Connect(from, to model.Direction) (Entry, bool) {
	switch {
	case from == to:
		return Straight, true
	case from == to.Opposite():
		return Straight, false
	case from.Opposite() == to.Left():
		return SideLeft, true
	default:
		return SideRight, true
	}
}

// FarLane is the lane an inserter or miner drops onto when it sits on side
// `from` of a belt facing dir. Drops from behind or ahead use the right lane.
func FarLane(dir, from model.Direction) Lane {
	if from == dir.Left() {
		return Right
	}
	if from == dir.Right() {
		return Left
	}
	return Right
}

func (s *Segment) Count() int {
	return len(s.Lanes[Left]) + len(s.Lanes[Right])
}

// CanInsert reports whether an item fits at pos on lane without violating
// spacing.
func (s *Segment) CanInsert(p Params, lane Lane, pos int) bool {
	if pos < 0 || pos > p.Length {
		return false
	}
	for _, it := range s.Lanes[lane] {
		d := it.Pos - pos
		if d < 0 {
			d = -d
		}
		if d < p.Spacing {
			return false
		}
	}
	return true
}

// InsertAt places an item on lane at pos if spacing allows.
func (s *Segment) InsertAt(p Params, lane Lane, pos int, name string) bool {
	if name == "" || !s.CanInsert(p, lane, pos) {
		return false
	}
	s.insert(lane, Item{Name: name, Pos: pos})
	return true
}

func (s *Segment) insert(lane Lane, it Item) {
	items := s.Lanes[lane]
	i := sort.Search(len(items), func(i int) bool { return items[i].Pos < it.Pos })
	items = append(items, Item{})
	copy(items[i+1:], items[i:])
	items[i] = it
	s.Lanes[lane] = items
}

// front finds the frontmost accepted item across both lanes. Ties go to the
// left lane.
func (s *Segment) front(accept func(string) bool) (Lane, int, bool) {
	bestLane, bestIdx, found := Left, -1, false
	for _, lane := range []Lane{Left, Right} {
		for i, it := range s.Lanes[lane] {
			if accept != nil && !accept(it.Name) {
				continue
			}
			if !found || it.Pos > s.Lanes[bestLane][bestIdx].Pos {
				bestLane, bestIdx, found = lane, i, true
			}
			break
		}
	}
	return bestLane, bestIdx, found
}

func (s *Segment) PeekFront(accept func(string) bool) (string, bool) {
	lane, i, ok := s.front(accept)
	if !ok {
		return "", false
	}
	return s.Lanes[lane][i].Name, true
}

// TakeFront removes the frontmost accepted item.
func (s *Segment) TakeFront(accept func(string) bool) (string, bool) {
	lane, i, ok := s.front(accept)
	if !ok {
		return "", false
	}
	items := s.Lanes[lane]
	name := items[i].Name
	s.Lanes[lane] = append(items[:i], items[i+1:]...)
	return name, true
}

// Drain removes every item, grouped by name in first-seen order.
func (s *Segment) Drain() []inventory.Stack {
	var out []inventory.Stack
	idx := map[string]int{}
	for lane := range s.Lanes {
		for _, it := range s.Lanes[lane] {
			if i, ok := idx[it.Name]; ok {
				out[i].Count++
				continue
			}
			idx[it.Name] = len(out)
			out = append(out, inventory.Stack{Item: it.Name, Count: 1})
		}
		s.Lanes[lane] = nil
	}
	return out
}

// accept reports the position an item overflowing by `over` would take on
// the successor, if it fits.
func (s *Segment) accept(p Params, entry Entry, lane Lane, over int) (Lane, int, bool) {
	switch entry {
	case SideLeft, SideRight:
		target := Left
		if entry == SideRight {
			target = Right
		}
		mid := p.Length / 2
		return target, mid, s.CanInsert(p, target, mid)
	default:
		items := s.Lanes[lane]
		pos := min(over, p.Length)
		if n := len(items); n > 0 {
			pos = min(pos, items[n-1].Pos-p.Spacing)
		}
		return lane, pos, pos >= 0
	}
}

// blockedCap is the furthest a lane's front item may travel while waiting to
// hand off, keeping spacing across the boundary for straight links.
func (s *Segment) blockedCap(p Params, entry Entry, lane Lane) int {
	if entry != Straight {
		return p.Length
	}
	items := s.Lanes[lane]
	if n := len(items); n > 0 {
		return p.Length + min(0, items[n-1].Pos-p.Spacing)
	}
	return p.Length
}
