package crafting

import (
	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/inventory"
)

type Phase uint8

const (
	Idle Phase = iota
	Gathering
	Crafting
	Blocked
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "IDLE"
	case Gathering:
		return "GATHERING"
	case Crafting:
		return "CRAFTING"
	case Blocked:
		return "BLOCKED"
	default:
		return "UNKNOWN"
	}
}

// Queue is the crafting state of one smelter or assembler.
//
// Ingredients are removed from Source when a craft starts and live in
// Reserved until the craft completes, so they can never vanish mid-craft.
// Progress only accrues while powered; losing fuel freezes it. Products that
// do not fit into Output wait in Held and block the next craft.
type Queue struct {
	Phase      Phase
	Recipe     string
	ProgressMs int64
	TimeMs     int64
	Reserved   []inventory.Stack
	Products   []inventory.Stack
	Held       []inventory.Stack
}

type Env struct {
	DtMs    int64
	Powered bool
	Source  *inventory.Inventory
	Output  *inventory.Inventory
	// Candidates are tried in order when choosing the next craft.
	Candidates []catalogs.RecipeDef
}

// Result reports what happened in one Tick. Consumed and Produced are only
// set on the tick a craft completes.
type Result struct {
	Started   string
	Completed string
	Consumed  []inventory.Stack
	Produced  []inventory.Stack
	Pushed    int
}

// Tick advances the queue by one step: flush held products, start a craft
// if idle, then accrue progress.
func (q *Queue) Tick(env Env) Result {
	var res Result
	if len(q.Held) > 0 {
		res.Pushed += q.flush(env.Output)
		if len(q.Held) > 0 {
			q.Phase = Blocked
			return res
		}
		q.Phase = Idle
	}

	if q.Phase != Crafting {
		r, ok := q.pick(env)
		if !ok {
			return res
		}
		if !env.Powered {
			return res
		}
		reqs := Stacks(r.Ingredients)
		if !env.Source.RemoveAll(reqs) {
			return res
		}
		q.Phase = Crafting
		q.Recipe = r.Name
		q.TimeMs = r.TimeMs
		q.ProgressMs = 0
		q.Reserved = reqs
		q.Products = Stacks(r.Products)
		res.Started = r.Name
	}

	if !env.Powered {
		return res
	}
	q.ProgressMs += env.DtMs
	if q.ProgressMs < q.TimeMs {
		return res
	}

	res.Completed = q.Recipe
	res.Consumed = q.Reserved
	res.Produced = append([]inventory.Stack(nil), q.Products...)
	q.Held = q.Products
	q.Products = nil
	q.Reserved = nil
	q.ProgressMs = 0
	res.Pushed += q.flush(env.Output)
	if len(q.Held) > 0 {
		q.Phase = Blocked
	} else {
		q.Phase = Idle
	}
	return res
}

// pick selects the recipe for the next craft and updates Phase to Idle (no
// recipe possible) or Gathering (waiting on inputs).
func (q *Queue) pick(env Env) (catalogs.RecipeDef, bool) {
	if len(env.Candidates) == 0 {
		q.Phase = Idle
		return catalogs.RecipeDef{}, false
	}
	for _, r := range env.Candidates {
		if env.Source.HasAll(Stacks(r.Ingredients)) {
			q.Phase = Gathering
			return r, true
		}
	}
	if len(env.Candidates) > 1 && env.Source.Empty() {
		q.Phase = Idle
	} else {
		q.Phase = Gathering
	}
	return catalogs.RecipeDef{}, false
}

func (q *Queue) flush(out *inventory.Inventory) int {
	pushed := 0
	kept := q.Held[:0]
	for _, st := range q.Held {
		n := 0
		if out != nil {
			n = out.TryAdd(st.Item, st.Count)
		}
		pushed += n
		if st.Count-n > 0 {
			kept = append(kept, inventory.Stack{Item: st.Item, Count: st.Count - n})
		}
	}
	if len(kept) == 0 {
		q.Held = nil
	} else {
		q.Held = kept
	}
	return pushed
}

// Cancel abandons the current craft and returns everything it owned:
// reserved ingredients and held products.
func (q *Queue) Cancel() []inventory.Stack {
	out := append(append([]inventory.Stack{}, q.Reserved...), q.Held...)
	q.Reserved = nil
	q.Products = nil
	q.Held = nil
	q.ProgressMs = 0
	q.TimeMs = 0
	q.Phase = Idle
	return out
}

// Fraction is craft progress in [0,1].
func (q Queue) Fraction() float64 {
	if q.Phase != Crafting || q.TimeMs <= 0 {
		if q.Phase == Blocked {
			return 1
		}
		return 0
	}
	f := float64(q.ProgressMs) / float64(q.TimeMs)
	if f > 1 {
		return 1
	}
	return f
}

// InFlight lists items owned by the queue (reserved and held).
func (q Queue) InFlight() []inventory.Stack {
	return append(append([]inventory.Stack{}, q.Reserved...), q.Held...)
}

func Stacks(ics []catalogs.ItemCount) []inventory.Stack {
	out := make([]inventory.Stack, 0, len(ics))
	for _, ic := range ics {
		out = append(out, inventory.Stack{Item: ic.Item, Count: ic.Count})
	}
	return out
}

// SourceFilter accepts the allow-list when one is given, otherwise any
// ingredient of the candidate recipes.
func SourceFilter(allow []string, candidates []catalogs.RecipeDef) inventory.Filter {
	set := map[string]bool{}
	if len(allow) > 0 {
		for _, it := range allow {
			set[it] = true
		}
	} else {
		for _, r := range candidates {
			for _, ic := range r.Ingredients {
				set[ic.Item] = true
			}
		}
	}
	return func(item string) bool { return set[item] }
}
