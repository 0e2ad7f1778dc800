package world

import (
	"factorycraft.ai/internal/sim/world/feature/conveyor"
	"factorycraft.ai/internal/sim/world/feature/crafting"
	"factorycraft.ai/internal/sim/world/feature/mining"
	"factorycraft.ai/internal/sim/world/kernel/system"
)

// tickCounts are per-tick activity totals, folded into metrics after the
// step.
type tickCounts struct {
	commands   int
	crafted    int
	mined      int
	fuelBurned int
	picked     int
	dropped    int
	ejected    int
	beltMoved  int
	handoffs   int
	placements int
	removals   int
	stuck      int
}

func (w *World) registerSystems() {
	w.runner.Register(system.Func{P: system.PhaseCommands, Fn: w.commandSystem})
	w.runner.Register(system.Func{P: system.PhaseFuel, Fn: w.fuelSystem})
	w.runner.Register(system.Func{P: system.PhaseProduction, Fn: w.productionSystem})
	w.runner.Register(system.Func{P: system.PhaseInserterPickup, Fn: w.inserterPickupSystem})
	w.runner.Register(system.Func{P: system.PhaseInserterDrop, Fn: w.inserterDropSystem})
	w.runner.Register(system.Func{P: system.PhaseBelts, Fn: w.beltSystem})
	w.runner.Register(system.Func{P: system.PhaseBookkeeping, Fn: w.bookkeepingSystem})
}

func (w *World) commandSystem(int64) {
	tick := w.tick.Load()
	for _, env := range w.pending {
		res := w.Apply(env.cmd)
		res.Tick = tick
		if env.cmd.Kind != CmdQuery {
			w.applied = append(w.applied, env.cmd)
			w.counts.commands++
		}
		if env.resp != nil {
			env.resp <- res
		}
	}
}

// fuelSystem burns charge on every burner, idle or not. Structures without
// a burner are always powered.
func (w *World) fuelSystem(dt int64) {
	w.table.each(func(s *structure) {
		if s.burner == nil {
			s.powered = true
			return
		}
		powered, used := s.burner.Tick(dt, s.fuel, w.cats.FuelMs)
		s.powered = powered
		if used != "" {
			w.ledger.consume(used, 1)
			w.counts.fuelBurned++
		}
	})
}

func (w *World) productionSystem(dt int64) {
	w.table.each(func(s *structure) {
		if s.crafter != nil {
			res := s.crafter.Tick(crafting.Env{
				DtMs:       dt,
				Powered:    s.powered,
				Source:     s.source,
				Output:     s.output,
				Candidates: w.candidates(s),
			})
			if res.Completed != "" {
				for _, st := range res.Consumed {
					w.ledger.consume(st.Item, st.Count)
				}
				for _, st := range res.Produced {
					w.ledger.produce(st.Item, st.Count)
					w.counts.crafted += st.Count
				}
			}
		}
		if s.miner != nil {
			res := s.miner.Tick(s.minerSpec, dt, s.powered, s.cells, w.terr, s.output)
			s.lastMine = res
			if res.Mined > 0 {
				w.ledger.produce(res.Item, res.Mined)
				w.counts.mined += res.Mined
			}
		}
	})
}

func (w *World) inserterPickupSystem(dt int64) {
	w.table.each(func(s *structure) {
		if s.ins == nil {
			return
		}
		src := w.pickupPort(w.table.get(s.pickFrom))
		dst := w.dropPort(w.table.get(s.dropTo), s.dir.Opposite())
		w.counts.picked += s.ins.Pickup(s.insSpec, dt, s.powered, src, dst)
	})
}

// inserterDropSystem also runs miner ejection, so a miner's output reaches
// the belt in front of it in the same phase as inserter drops.
func (w *World) inserterDropSystem(dt int64) {
	w.table.each(func(s *structure) {
		switch {
		case s.ins != nil:
			dst := w.dropPort(w.table.get(s.dropTo), s.dir.Opposite())
			w.counts.dropped += s.ins.Drop(s.insSpec, dt, s.powered, dst)
		case s.miner != nil && !s.ejectTo.IsZero():
			dst := w.dropPort(w.table.get(s.ejectTo), s.dir.Opposite())
			if dst == nil {
				return
			}
			if _, ok := mining.Eject(s.output, dst); ok {
				w.counts.ejected++
			}
		}
	})
}

func (w *World) beltSystem(dt int64) {
	if len(w.belts) == 0 {
		return
	}
	if w.beltsDirty {
		w.beltOrder = conveyor.Order(w.belts)
		w.beltsDirty = false
	}
	st := conveyor.Advance(w.belts, w.beltOrder, w.beltParams(), dt)
	w.counts.beltMoved += st.Moved
	w.counts.handoffs += st.Handoffs
}

func (w *World) bookkeepingSystem(int64) {
	w.table.each(func(s *structure) {
		s.status = w.computeStatus(s)
		if s.status.Has(StatusOutputFull) {
			w.counts.stuck++
		}
	})
}
