package system

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseCommands       Phase = iota // 0: apply queued placement/interaction commands
	PhaseFuel                        // 1: burner decrement and refuel
	PhaseProduction                  // 2: crafting and mining progress
	PhaseInserterPickup              // 3: inserter pickups
	PhaseInserterDrop                // 4: inserter drops, miner ejection
	PhaseBelts                       // 5: belt advancement and hand-off
	PhaseBookkeeping                 // 6: status flags, digests, metrics
)

func (p Phase) String() string {
	switch p {
	case PhaseCommands:
		return "commands"
	case PhaseFuel:
		return "fuel"
	case PhaseProduction:
		return "production"
	case PhaseInserterPickup:
		return "inserter_pickup"
	case PhaseInserterDrop:
		return "inserter_drop"
	case PhaseBelts:
		return "belts"
	case PhaseBookkeeping:
		return "bookkeeping"
	default:
		return "unknown"
	}
}

// System is one step of the tick pipeline.
type System interface {
	Phase() Phase
	Update(dtMs int64)
}

// Func adapts a function to System.
type Func struct {
	P  Phase
	Fn func(dtMs int64)
}

func (f Func) Phase() Phase      { return f.P }
func (f Func) Update(dtMs int64) { f.Fn(dtMs) }
