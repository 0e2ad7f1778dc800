package world

import (
	"crypto/sha256"
	"encoding/hex"

	"factorycraft.ai/internal/sim/inventory"
	"factorycraft.ai/internal/sim/world/io/digestcodec"
	"factorycraft.ai/internal/sim/world/kernel/model"
)

// StateDigest hashes all simulation state. Two worlds fed the same commands
// from the same start produce the same digest every tick.
func (w *World) StateDigest() string { return w.stateDigest(w.tick.Load()) }

func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	e := digestcodec.New(h)

	e.Tag("header")
	e.U64(nowTick)
	e.String(w.cats.Digest())

	e.Tag("table")
	e.U64(uint64(len(w.table.slots)))
	for _, g := range w.table.gens {
		e.U64(uint64(g))
	}
	for _, f := range w.table.free {
		e.U64(uint64(f))
	}

	e.Tag("structures")
	w.table.each(func(s *structure) { digestStructure(e, s) })

	e.Tag("ground")
	for _, pile := range w.Ground() {
		digestCell(e, pile.Cell)
		digestStacks(e, pile.Items)
	}

	e.Tag("ledger")
	e.SortedNonZeroIntMap(w.ledger.Produced)
	e.SortedNonZeroIntMap(w.ledger.Consumed)
	e.SortedNonZeroIntMap(w.ledger.Added)
	e.SortedNonZeroIntMap(w.ledger.Removed)

	if d, ok := w.terr.(interface{ Digest() [32]byte }); ok {
		e.Tag("terrain")
		sum := d.Digest()
		h.Write(sum[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func digestStructure(e *digestcodec.Encoder, s *structure) {
	e.U64(uint64(s.handle.Index))
	e.U64(uint64(s.handle.Gen))
	e.String(s.def.Name)
	digestCell(e, s.anchor)
	e.Int(int(s.dir))
	e.Bool(s.powered)

	for _, inv := range []*inventory.Inventory{s.source, s.output, s.fuel, s.storage} {
		e.Bool(inv != nil)
		if inv != nil {
			digestStacks(e, inv.Slots())
		}
	}
	if b := s.burner; b != nil {
		e.I64(b.ChargeMs)
		e.I64(b.LastFuelMs)
		e.String(b.LastFuel)
	}
	if q := s.crafter; q != nil {
		e.String(s.recipe)
		e.Int(int(q.Phase))
		e.String(q.Recipe)
		e.I64(q.ProgressMs)
		e.I64(q.TimeMs)
		digestStacks(e, q.Reserved)
		digestStacks(e, q.Products)
		digestStacks(e, q.Held)
	}
	if m := s.miner; m != nil {
		e.I64(m.Progress)
		digestHandle(e, s.ejectTo)
	}
	if in := s.ins; in != nil {
		e.Int(int(in.Phase))
		e.I64(in.ElapsedMs)
		e.String(in.Hand.Item)
		e.Int(in.Hand.Count)
		digestHandle(e, s.pickFrom)
		digestHandle(e, s.dropTo)
	}
	if b := s.belt; b != nil {
		e.Int(b.Next)
		e.Int(int(b.Entry))
		e.I64(b.Carry)
		for _, lane := range b.Lanes {
			e.U64(uint64(len(lane)))
			for _, it := range lane {
				e.String(it.Name)
				e.Int(it.Pos)
			}
		}
	}
}

func digestStacks(e *digestcodec.Encoder, stacks []inventory.Stack) {
	e.U64(uint64(len(stacks)))
	for _, st := range stacks {
		e.String(st.Item)
		e.Int(st.Count)
	}
}

func digestCell(e *digestcodec.Encoder, c model.Cell) {
	e.Int(c.X)
	e.Int(c.Y)
}

func digestHandle(e *digestcodec.Encoder, h Handle) {
	e.U64(uint64(h.Index))
	e.U64(uint64(h.Gen))
}
