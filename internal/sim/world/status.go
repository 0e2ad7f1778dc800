package world

import (
	"factorycraft.ai/internal/sim/world/feature/crafting"
	"factorycraft.ai/internal/sim/world/feature/inserter"
)

// Status is the observable condition of a structure after the last tick.
// Starvation is never an error; it shows up here.
type Status uint16

const (
	StatusPowered Status = 1 << iota
	StatusWorking
	StatusNoFuel
	StatusNoInput
	StatusNoRecipe
	StatusOutputFull
	StatusNoResource
	StatusNoTarget
)

var statusNames = []struct {
	bit  Status
	name string
}{
	{StatusPowered, "POWERED"},
	{StatusWorking, "WORKING"},
	{StatusNoFuel, "NO_FUEL"},
	{StatusNoInput, "NO_INPUT"},
	{StatusNoRecipe, "NO_RECIPE"},
	{StatusOutputFull, "OUTPUT_FULL"},
	{StatusNoResource, "NO_RESOURCE"},
	{StatusNoTarget, "NO_TARGET"},
}

func (s Status) Has(b Status) bool { return s&b == b }

// Flags lists the set bits by name in a fixed order.
func (s Status) Flags() []string {
	var out []string
	for _, n := range statusNames {
		if s.Has(n.bit) {
			out = append(out, n.name)
		}
	}
	return out
}

func (w *World) computeStatus(s *structure) Status {
	var st Status
	if s.powered {
		st |= StatusPowered
	} else if s.burner != nil {
		st |= StatusNoFuel
	}

	if q := s.crafter; q != nil {
		switch q.Phase {
		case crafting.Crafting:
			if s.powered {
				st |= StatusWorking
			}
		case crafting.Gathering:
			st |= StatusNoInput
		case crafting.Blocked:
			st |= StatusOutputFull
		case crafting.Idle:
			if s.isAssembler() && s.recipe == "" {
				st |= StatusNoRecipe
			} else {
				st |= StatusNoInput
			}
		}
	}

	if s.miner != nil {
		r := s.lastMine
		switch {
		case r.NoResource:
			st |= StatusNoResource
		case r.OutputFull:
			st |= StatusOutputFull
		case s.powered && r.Item != "":
			st |= StatusWorking
		}
	}

	if s.ins != nil {
		if s.pickFrom.IsZero() || s.dropTo.IsZero() {
			st |= StatusNoTarget
		}
		if s.ins.Phase == inserter.Dropping && s.ins.Fraction(s.insSpec) >= 1 {
			st |= StatusOutputFull
		} else if s.powered && s.ins.Phase != inserter.Idle {
			st |= StatusWorking
		}
	}

	if s.belt != nil && s.belt.Count() > 0 {
		st |= StatusWorking
	}
	return st
}
