package world

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"factorycraft.ai/internal/persistence/snapshot"
	"factorycraft.ai/internal/sim/inventory"
	"factorycraft.ai/internal/sim/terrain"
	"factorycraft.ai/internal/sim/world/feature/burner"
	"factorycraft.ai/internal/sim/world/feature/conveyor"
	"factorycraft.ai/internal/sim/world/feature/crafting"
	"factorycraft.ai/internal/sim/world/feature/inserter"
	"factorycraft.ai/internal/sim/world/kernel/model"
)

// ExportSnapshot captures all simulation state as of the end of nowTick.
func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version:       snapshot.Version,
			WorldID:       w.cfg.ID,
			Tick:          nowTick,
			CatalogDigest: w.cats.Digest(),
		},
		TickDurationMs: w.tune.TickDurationMs,
		Gens:           append([]uint32(nil), w.table.gens...),
		Free:           append([]uint32(nil), w.table.free...),
	}
	if g, ok := w.terr.(*terrain.Grid); ok {
		snap.Width, snap.Height = g.Width(), g.Height()
		for _, n := range g.Nodes() {
			snap.Nodes = append(snap.Nodes, snapshot.NodeV1{Pos: n.Cell.ToArray(), Item: n.Item, Amount: n.Amount})
		}
		for _, c := range g.Blocked() {
			snap.Blocked = append(snap.Blocked, c.ToArray())
		}
	}
	w.table.each(func(s *structure) { snap.Structures = append(snap.Structures, exportStructure(s)) })
	for _, p := range w.Ground() {
		snap.Ground = append(snap.Ground, snapshot.GroundV1{Pos: p.Cell.ToArray(), Items: toStacksV1(p.Items)})
	}
	l := w.ledger.clone()
	snap.Ledger = snapshot.LedgerV1{Produced: l.Produced, Consumed: l.Consumed, Added: l.Added, Removed: l.Removed}
	return snap
}

func exportStructure(s *structure) snapshot.StructureV1 {
	out := snapshot.StructureV1{
		Index:   s.handle.Index,
		Gen:     s.handle.Gen,
		Name:    s.def.Name,
		Anchor:  s.anchor.ToArray(),
		Dir:     int(s.dir),
		Powered: s.powered,
		Recipe:  s.recipe,
	}
	slots := func(inv *inventory.Inventory) []snapshot.StackV1 {
		if inv == nil {
			return nil
		}
		return toStacksV1(inv.Slots())
	}
	out.Source = slots(s.source)
	out.Output = slots(s.output)
	out.Fuel = slots(s.fuel)
	out.Storage = slots(s.storage)
	if b := s.burner; b != nil {
		out.Burner = &snapshot.BurnerV1{ChargeMs: b.ChargeMs, LastFuelMs: b.LastFuelMs, LastFuel: b.LastFuel}
	}
	if q := s.crafter; q != nil {
		out.Crafter = &snapshot.CrafterV1{
			Phase:      int(q.Phase),
			Recipe:     q.Recipe,
			ProgressMs: q.ProgressMs,
			TimeMs:     q.TimeMs,
			Reserved:   toStacksV1(q.Reserved),
			Products:   toStacksV1(q.Products),
			Held:       toStacksV1(q.Held),
		}
	}
	if s.miner != nil {
		out.MinerProgress = s.miner.Progress
	}
	if in := s.ins; in != nil {
		out.Inserter = &snapshot.InserterV1{
			Phase:     int(in.Phase),
			ElapsedMs: in.ElapsedMs,
			Hand:      snapshot.StackV1{Item: in.Hand.Item, Count: in.Hand.Count},
		}
	}
	if b := s.belt; b != nil {
		out.Belt = &snapshot.BeltV1{
			Left:  toBeltItemsV1(b.Lanes[conveyor.Left]),
			Right: toBeltItemsV1(b.Lanes[conveyor.Right]),
			Carry: b.Carry,
		}
	}
	return out
}

// ImportSnapshot replaces all simulation state with snap. It must be called
// before Run starts. Links are re-resolved from the restored layout.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.Version != snapshot.Version {
		return fmt.Errorf("%w: %d", snapshot.ErrVersion, snap.Header.Version)
	}
	if d := w.cats.Digest(); snap.Header.CatalogDigest != "" && snap.Header.CatalogDigest != d {
		w.log.Warn("snapshot catalogs differ from loaded catalogs",
			zap.String("snapshot_digest", snap.Header.CatalogDigest), zap.String("catalog_digest", d))
	}
	if snap.Width > 0 {
		g, ok := w.terr.(*terrain.Grid)
		if !ok {
			return errors.New("snapshot carries terrain but world terrain is not a grid")
		}
		if g.Width() != snap.Width || g.Height() != snap.Height {
			return fmt.Errorf("snapshot terrain is %dx%d, world is %dx%d", snap.Width, snap.Height, g.Width(), g.Height())
		}
		nodes := make([]terrain.Node, 0, len(snap.Nodes))
		for _, n := range snap.Nodes {
			nodes = append(nodes, terrain.Node{Cell: cellOf(n.Pos), Item: n.Item, Amount: n.Amount})
		}
		blocked := make([]model.Cell, 0, len(snap.Blocked))
		for _, b := range snap.Blocked {
			blocked = append(blocked, cellOf(b))
		}
		g.Restore(nodes, blocked)
	}

	t := table{
		slots: make([]*structure, len(snap.Gens)),
		gens:  append([]uint32(nil), snap.Gens...),
		free:  append([]uint32(nil), snap.Free...),
	}
	occ := map[model.Cell]uint32{}
	belts := map[int]*conveyor.Segment{}
	for _, sv := range snap.Structures {
		if int(sv.Index) >= len(t.slots) || t.gens[sv.Index] != sv.Gen || t.slots[sv.Index] != nil {
			return fmt.Errorf("snapshot structure S%d.%d does not match table", sv.Index, sv.Gen)
		}
		def, ok := w.cats.Structure(sv.Name)
		if !ok {
			return fmt.Errorf("snapshot structure S%d.%d: unknown definition %q", sv.Index, sv.Gen, sv.Name)
		}
		anchor, dir := cellOf(sv.Anchor), model.Direction(sv.Dir)
		sw, sh := def.Size[0], def.Size[1]
		cells := model.Footprint(anchor, sw, sh, dir)
		rect := model.ColliderRect(anchor, sw, sh, def.Collider[0], def.Collider[1], dir)

		s := w.build(Handle{Index: sv.Index, Gen: sv.Gen}, def, anchor, dir, cells, rect)
		if err := restoreStructure(s, sv); err != nil {
			return fmt.Errorf("snapshot structure S%d.%d: %w", sv.Index, sv.Gen, err)
		}
		w.refreshSourceFilter(s)
		for _, c := range cells {
			if _, taken := occ[c]; taken {
				return fmt.Errorf("snapshot structures overlap at %s", c)
			}
			occ[c] = sv.Index
		}
		if s.belt != nil {
			belts[int(sv.Index)] = s.belt
		}
		t.slots[sv.Index] = s
		t.live++
	}

	ground := map[model.Cell][]inventory.Stack{}
	for _, g := range snap.Ground {
		ground[cellOf(g.Pos)] = mergeStacks(nil, fromStacksV1(g.Items))
	}

	w.table = t
	w.occ = occ
	w.belts = belts
	w.beltsDirty = true
	w.ground = ground
	w.ledger = newLedger()
	for k, v := range snap.Ledger.Produced {
		w.ledger.Produced[k] = v
	}
	for k, v := range snap.Ledger.Consumed {
		w.ledger.Consumed[k] = v
	}
	for k, v := range snap.Ledger.Added {
		w.ledger.Added[k] = v
	}
	for k, v := range snap.Ledger.Removed {
		w.ledger.Removed[k] = v
	}
	w.relinkAll()
	w.table.each(func(s *structure) { s.status = w.computeStatus(s) })
	w.tick.Store(snap.Header.Tick + 1)
	w.log.Info("snapshot imported", zap.Uint64("tick", snap.Header.Tick), zap.Int("structures", w.table.live))
	return nil
}

func restoreStructure(s *structure, sv snapshot.StructureV1) error {
	s.powered = sv.Powered
	s.recipe = sv.Recipe
	for _, p := range []struct {
		inv   *inventory.Inventory
		slots []snapshot.StackV1
		name  string
	}{
		{s.source, sv.Source, "source"},
		{s.output, sv.Output, "output"},
		{s.fuel, sv.Fuel, "fuel"},
		{s.storage, sv.Storage, "storage"},
	} {
		if len(p.slots) == 0 {
			continue
		}
		if p.inv == nil || len(p.slots) != p.inv.Capacity() {
			return fmt.Errorf("%s slots do not match definition", p.name)
		}
		p.inv.Restore(fromStacksV1(p.slots))
	}
	if sv.Burner != nil && s.burner != nil {
		*s.burner = burner.State{ChargeMs: sv.Burner.ChargeMs, LastFuelMs: sv.Burner.LastFuelMs, LastFuel: sv.Burner.LastFuel}
	}
	if c := sv.Crafter; c != nil && s.crafter != nil {
		*s.crafter = crafting.Queue{
			Phase:      crafting.Phase(c.Phase),
			Recipe:     c.Recipe,
			ProgressMs: c.ProgressMs,
			TimeMs:     c.TimeMs,
			Reserved:   fromStacksV1(c.Reserved),
			Products:   fromStacksV1(c.Products),
			Held:       fromStacksV1(c.Held),
		}
	}
	if s.miner != nil {
		s.miner.Progress = sv.MinerProgress
	}
	if in := sv.Inserter; in != nil && s.ins != nil {
		*s.ins = inserter.State{
			Phase:     inserter.Phase(in.Phase),
			ElapsedMs: in.ElapsedMs,
			Hand:      inventory.Stack{Item: in.Hand.Item, Count: in.Hand.Count},
		}
	}
	if b := sv.Belt; b != nil && s.belt != nil {
		s.belt.Lanes[conveyor.Left] = fromBeltItemsV1(b.Left)
		s.belt.Lanes[conveyor.Right] = fromBeltItemsV1(b.Right)
		s.belt.Carry = b.Carry
	}
	return nil
}

func cellOf(p [2]int) model.Cell { return model.Cell{X: p[0], Y: p[1]} }

func toStacksV1(in []inventory.Stack) []snapshot.StackV1 {
	if len(in) == 0 {
		return nil
	}
	out := make([]snapshot.StackV1, len(in))
	for i, st := range in {
		out[i] = snapshot.StackV1{Item: st.Item, Count: st.Count}
	}
	return out
}

func fromStacksV1(in []snapshot.StackV1) []inventory.Stack {
	if len(in) == 0 {
		return nil
	}
	out := make([]inventory.Stack, len(in))
	for i, st := range in {
		out[i] = inventory.Stack{Item: st.Item, Count: st.Count}
	}
	return out
}

func toBeltItemsV1(in []conveyor.Item) []snapshot.BeltItemV1 {
	out := make([]snapshot.BeltItemV1, 0, len(in))
	for _, it := range in {
		out = append(out, snapshot.BeltItemV1{Name: it.Name, Pos: it.Pos})
	}
	return out
}

func fromBeltItemsV1(in []snapshot.BeltItemV1) []conveyor.Item {
	if len(in) == 0 {
		return nil
	}
	out := make([]conveyor.Item, 0, len(in))
	for _, it := range in {
		out = append(out, conveyor.Item{Name: it.Name, Pos: it.Pos})
	}
	return out
}
