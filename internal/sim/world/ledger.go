package world

// Ledger accumulates every item flow across the system boundary since the
// world was created (or restored). For any run,
//
//	totals(now) = totals(start) + Produced - Consumed + Added - Removed
//
// per item, where totals are what ItemTotals reports.
type Ledger struct {
	Produced map[string]int `json:"produced"`
	Consumed map[string]int `json:"consumed"`
	Added    map[string]int `json:"added"`
	Removed  map[string]int `json:"removed"`
}

func newLedger() Ledger {
	return Ledger{
		Produced: map[string]int{},
		Consumed: map[string]int{},
		Added:    map[string]int{},
		Removed:  map[string]int{},
	}
}

func (l *Ledger) produce(item string, n int) { bump(l.Produced, item, n) }
func (l *Ledger) consume(item string, n int) { bump(l.Consumed, item, n) }
func (l *Ledger) add(item string, n int)     { bump(l.Added, item, n) }
func (l *Ledger) remove(item string, n int)  { bump(l.Removed, item, n) }

func bump(m map[string]int, item string, n int) {
	if n > 0 {
		m[item] += n
	}
}

// Net is the per-item change the ledger accounts for.
func (l Ledger) Net() map[string]int {
	out := map[string]int{}
	for k, v := range l.Produced {
		out[k] += v
	}
	for k, v := range l.Added {
		out[k] += v
	}
	for k, v := range l.Consumed {
		out[k] -= v
	}
	for k, v := range l.Removed {
		out[k] -= v
	}
	for k, v := range out {
		if v == 0 {
			delete(out, k)
		}
	}
	return out
}

func (l Ledger) clone() Ledger {
	c := newLedger()
	for k, v := range l.Produced {
		c.Produced[k] = v
	}
	for k, v := range l.Consumed {
		c.Consumed[k] = v
	}
	for k, v := range l.Added {
		c.Added[k] = v
	}
	for k, v := range l.Removed {
		c.Removed[k] = v
	}
	return c
}
