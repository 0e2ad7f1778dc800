package conveyor

import "sort"

type Stats struct {
	Moved    int
	Handoffs int
}

// Order returns segment ids downstream-first: every segment is processed
// before the segments feeding it, so an item freed at a segment's end can be
// claimed in the same tick. Feeders of one segment are visited straight
// first, then left side-loads, then right side-loads. Cycles are entered at
// their lowest id, so in a loop the last segment feeds one already processed
// and the root can feed one not yet processed; Advance does not move an item
// twice in the second case.
func Order(segs map[int]*Segment) []int {
	ids := make([]int, 0, len(segs))
	for id := range segs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	feeders := map[int][]int{}
	for _, id := range ids {
		s := segs[id]
		if _, ok := segs[s.Next]; ok {
			feeders[s.Next] = append(feeders[s.Next], id)
		}
	}
	for next, fs := range feeders {
		sort.SliceStable(fs, func(i, j int) bool { return segs[fs[i]].Entry < segs[fs[j]].Entry })
		feeders[next] = fs
	}

	order := make([]int, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	visit := func(root int) {
		queue := []int{root}
		seen[root] = true
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			order = append(order, id)
			for _, f := range feeders[id] {
				if !seen[f] {
					seen[f] = true
					queue = append(queue, f)
				}
			}
		}
	}
	for _, id := range ids {
		if _, ok := segs[segs[id].Next]; !ok && !seen[id] {
			visit(id)
		}
	}
	for _, id := range ids {
		if !seen[id] {
			visit(id)
		}
	}
	return order
}

// Advance moves every item on every segment by one tick. Hand-offs remove
// the item from one lane and insert it into the successor in the same step.
// An item moves at most once per call even when it changes segment.
func Advance(segs map[int]*Segment, order []int, p Params, dtMs int64) Stats {
	var (
		st       Stats
		received []*Segment
	)
	for _, id := range order {
		s := segs[id]
		if s == nil {
			continue
		}
		next := segs[s.Next]
		travel := int64(s.Speed)*dtMs + s.Carry
		v := int(travel / 1000)
		s.Carry = travel % 1000
		for lane := range s.Lanes {
			if s.advanceLane(p, Lane(lane), v, next, &st) {
				received = append(received, next)
			}
		}
	}
	for _, s := range received {
		for lane := range s.Lanes {
			for i := range s.Lanes[lane] {
				s.Lanes[lane][i].arrived = false
			}
		}
	}
	return st
}

// advanceLane reports whether it handed an item to next.
func (s *Segment) advanceLane(p Params, lane Lane, v int, next *Segment, st *Stats) bool {
	items := s.Lanes[lane]
	out := items[:0]
	limit, front := 0, true
	handed := false
	for _, it := range items {
		if it.arrived {
			out = append(out, it)
			limit, front = it.Pos-p.Spacing, false
			continue
		}
		target := it.Pos + v
		maxPos := limit
		if front {
			maxPos = p.Length
			if next != nil {
				if target >= p.Length {
					if nl, pos, ok := next.accept(p, s.Entry, lane, target-p.Length); ok {
						next.insert(nl, Item{Name: it.Name, Pos: pos, arrived: true})
						st.Handoffs++
						handed = true
						continue
					}
				}
				maxPos = next.blockedCap(p, s.Entry, lane)
			}
		}
		pos := min(target, maxPos)
		if pos < it.Pos {
			pos = it.Pos
		}
		if pos != it.Pos {
			st.Moved++
		}
		it.Pos = pos
		out = append(out, it)
		limit, front = pos-p.Spacing, false
	}
	for i := len(out); i < len(items); i++ {
		items[i] = Item{}
	}
	s.Lanes[lane] = out
	return handed
}
