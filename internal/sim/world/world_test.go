package world

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/terrain"
	"factorycraft.ai/internal/sim/tuning"
	"factorycraft.ai/internal/sim/world/feature/conveyor"
	"factorycraft.ai/internal/sim/world/feature/placement"
	"factorycraft.ai/internal/sim/world/kernel/model"
)

func loadCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	return cats
}

func newTestWorld(t *testing.T, w, h int) (*World, *terrain.Grid) {
	t.Helper()
	g := terrain.NewGrid(w, h)
	wd, err := New(Config{ID: "test"}, loadCatalogs(t), tuning.Defaults(), g, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return wd, g
}

func place(t *testing.T, w *World, name string, x, y int, dir model.Direction) Handle {
	t.Helper()
	h, err := w.Place(name, model.Cell{X: x, Y: y}, dir)
	if err != nil {
		t.Fatalf("place %s at (%d,%d): %v", name, x, y, err)
	}
	return h
}

func insert(t *testing.T, w *World, h Handle, kind InventoryKind, item string, n int) {
	t.Helper()
	got, err := w.Insert(h, kind, item, n)
	if err != nil || got != n {
		t.Fatalf("insert %d %s into %s %s: got %d err=%v", n, item, h, kind, got, err)
	}
}

func view(t *testing.T, w *World, h Handle) StructureView {
	t.Helper()
	v, ok := w.Structure(h)
	if !ok {
		t.Fatalf("no structure %s", h)
	}
	return v
}

func count(v StructureView, kind InventoryKind, item string) int {
	n := 0
	for _, iv := range v.Inventories {
		if iv.Kind != kind {
			continue
		}
		for _, st := range iv.Slots {
			if st.Item == item {
				n += st.Count
			}
		}
	}
	return n
}

func hasFlag(v StructureView, flag string) bool {
	for _, f := range v.Status {
		if f == flag {
			return true
		}
	}
	return false
}

// checkConserved asserts that every item held anywhere is accounted for by
// the ledger.
func checkConserved(t *testing.T, w *World) {
	t.Helper()
	totals, net := w.ItemTotals(), w.Ledger().Net()
	for item, n := range totals {
		if net[item] != n {
			t.Fatalf("tick %d: %s held=%d ledger=%d", w.CurrentTick(), item, n, net[item])
		}
	}
	for item, n := range net {
		if totals[item] != n {
			t.Fatalf("tick %d: %s held=%d ledger=%d", w.CurrentTick(), item, totals[item], n)
		}
	}
}

func TestHandleText(t *testing.T) {
	h := Handle{Index: 7, Gen: 3}
	got, err := ParseHandle(h.String())
	if err != nil || got != h {
		t.Fatalf("parse %q: %v %v", h.String(), got, err)
	}
	for _, bad := range []string{"", "7.3", "S7", "S7.0", "Sx.1"} {
		if _, err := ParseHandle(bad); !errors.Is(err, ErrBadHandle) {
			t.Fatalf("%q: err=%v", bad, err)
		}
	}
}

func TestFurnaceSmeltsOnePlate(t *testing.T) {
	w, _ := newTestWorld(t, 8, 8)
	f := place(t, w, "Stone furnace", 0, 0, model.North)
	insert(t, w, f, InvFuel, "Coal", 1)
	insert(t, w, f, InvSource, "Iron ore", 2)

	w.Steps(19)
	if v := view(t, w, f); count(v, InvOutput, "Iron plate") != 0 {
		t.Fatalf("plate before the craft time elapsed")
	}
	w.Steps(1)
	v := view(t, w, f)
	if count(v, InvOutput, "Iron plate") != 1 || count(v, InvSource, "Iron ore") != 1 {
		t.Fatalf("after one craft: output=%d source=%d", count(v, InvOutput, "Iron plate"), count(v, InvSource, "Iron ore"))
	}
	if !v.Powered || v.Fuel <= 0 || v.Fuel >= 1 {
		t.Fatalf("fuel view: powered=%v fraction=%v", v.Powered, v.Fuel)
	}
	checkConserved(t, w)
}

func TestFurnaceWithoutFuelStarves(t *testing.T) {
	w, _ := newTestWorld(t, 8, 8)
	f := place(t, w, "Stone furnace", 0, 0, model.North)
	insert(t, w, f, InvSource, "Iron ore", 2)
	w.Steps(100)
	v := view(t, w, f)
	if count(v, InvSource, "Iron ore") != 2 || v.Crafting.Phase != "GATHERING" {
		t.Fatalf("unfuelled furnace crafted: %+v", v.Crafting)
	}
	if !hasFlag(v, "NO_FUEL") || v.Powered {
		t.Fatalf("status=%v powered=%v", v.Status, v.Powered)
	}
}

func TestFuelLossFreezesProgress(t *testing.T) {
	w, _ := newTestWorld(t, 8, 8)
	f := place(t, w, "Stone furnace", 0, 0, model.North)
	insert(t, w, f, InvSource, "Stone", 2)
	insert(t, w, f, InvFuel, "Wood", 1)
	// Wood burns for 2s; a brick takes 2s, so the first craft completes on
	// the last powered tick.
	w.Steps(40)
	if v := view(t, w, f); count(v, InvOutput, "Stone brick") != 1 {
		t.Fatalf("brick not made on wood: %+v", v.Crafting)
	}
	insert(t, w, f, InvSource, "Stone", 2)
	w.Steps(10)
	v := view(t, w, f)
	if v.Powered {
		t.Fatalf("still powered after wood ran out")
	}
	if v.Crafting.Phase != "GATHERING" || count(v, InvSource, "Stone") != 2 {
		t.Fatalf("unpowered furnace reserved inputs: %+v", v.Crafting)
	}
	insert(t, w, f, InvFuel, "Coal", 1)
	w.Steps(20)
	v = view(t, w, f)
	if v.Crafting.Phase != "CRAFTING" || v.Crafting.Progress != 0.5 {
		t.Fatalf("after refuel: %+v", v.Crafting)
	}
	checkConserved(t, w)
}

func TestFullOutputHoldsResult(t *testing.T) {
	w, _ := newTestWorld(t, 8, 8)
	f := place(t, w, "Stone furnace", 0, 0, model.North)
	full, err := w.Insert(f, InvOutput, "Iron plate", 1_000_000)
	if err != nil || full == 0 {
		t.Fatalf("fill output: %d %v", full, err)
	}
	insert(t, w, f, InvFuel, "Coal", 1)
	insert(t, w, f, InvSource, "Iron ore", 2)

	w.Steps(40)
	v := view(t, w, f)
	if v.Crafting.Phase != "BLOCKED" || len(v.Crafting.Held) != 1 || v.Crafting.Held[0].Count != 1 {
		t.Fatalf("result not held: %+v", v.Crafting)
	}
	if count(v, InvSource, "Iron ore") != 1 {
		t.Fatalf("second craft started while blocked")
	}
	if !hasFlag(v, "OUTPUT_FULL") {
		t.Fatalf("status=%v", v.Status)
	}
	if got := w.ItemTotals()["Iron plate"]; got != full+1 {
		t.Fatalf("plates=%d want %d", got, full+1)
	}

	if n, _ := w.Take(f, InvOutput, "Iron plate", 1); n != 1 {
		t.Fatalf("take=%d", n)
	}
	w.Steps(1)
	v = view(t, w, f)
	if len(v.Crafting.Held) != 0 || count(v, InvOutput, "Iron plate") != full {
		t.Fatalf("held result not pushed: %+v output=%d", v.Crafting, count(v, InvOutput, "Iron plate"))
	}
	checkConserved(t, w)
}

func TestBeltHandsOffExactlyOnce(t *testing.T) {
	w, _ := newTestWorld(t, 8, 8)
	b1 := place(t, w, "Transport belt", 0, 0, model.East)
	b2 := place(t, w, "Transport belt", 1, 0, model.East)
	if v := view(t, w, b1); v.Belt.Next != b2 {
		t.Fatalf("belt not linked: next=%s", v.Belt.Next)
	}
	if ok, err := w.PutOnBelt(b1, conveyor.Right, "Coal"); !ok || err != nil {
		t.Fatalf("put: %v %v", ok, err)
	}

	w.Steps(19)
	v1, v2 := view(t, w, b1), view(t, w, b2)
	if len(v1.Belt.Right) != 1 || v1.Belt.Right[0].Pos != 950 || len(v2.Belt.Right) != 0 {
		t.Fatalf("tick 19: b1=%+v b2=%+v", v1.Belt, v2.Belt)
	}
	w.Steps(1)
	v1, v2 = view(t, w, b1), view(t, w, b2)
	if len(v1.Belt.Right) != 0 || len(v2.Belt.Right) != 1 {
		t.Fatalf("tick 20: b1=%+v b2=%+v", v1.Belt, v2.Belt)
	}
	if w.ItemTotals()["Coal"] != 1 || w.Metrics().Handoffs != 1 {
		t.Fatalf("coal=%d handoffs=%d", w.ItemTotals()["Coal"], w.Metrics().Handoffs)
	}
}

func TestBeltLinksFollowPlacementAndRemoval(t *testing.T) {
	w, _ := newTestWorld(t, 8, 8)
	b1 := place(t, w, "Transport belt", 0, 0, model.East)
	b2 := place(t, w, "Transport belt", 1, 0, model.South)
	if v := view(t, w, b1); v.Belt.Next != b2 {
		t.Fatalf("side-load link missing")
	}
	if _, err := w.Remove(b2); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if v := view(t, w, b1); !v.Belt.Next.IsZero() {
		t.Fatalf("link to removed belt kept: %s", v.Belt.Next)
	}
	b3 := place(t, w, "Transport belt", 1, 0, model.West)
	if v := view(t, w, b1); !v.Belt.Next.IsZero() {
		t.Fatalf("head-on belts linked")
	}
	if b3.Index != b2.Index || b3.Gen == b2.Gen {
		t.Fatalf("slot reuse: old=%s new=%s", b2, b3)
	}
	order := w.BeltOrder()
	if len(order) != 2 {
		t.Fatalf("belt order=%v", order)
	}
}

func TestBurnerInserterWithoutFuelStaysIdle(t *testing.T) {
	w, _ := newTestWorld(t, 8, 8)
	src := place(t, w, "Wooden chest", 0, 0, model.North)
	ins := place(t, w, "Burner inserter", 1, 0, model.East)
	dst := place(t, w, "Wooden chest", 2, 0, model.North)
	insert(t, w, src, InvStorage, "Iron plate", 10)

	w.Steps(200)
	v := view(t, w, ins)
	if v.Inserter.Phase != "IDLE" || v.Inserter.Hand != nil {
		t.Fatalf("unfuelled inserter moved: %+v", v.Inserter)
	}
	if count(view(t, w, src), InvStorage, "Iron plate") != 10 || !hasFlag(v, "NO_FUEL") {
		t.Fatalf("source changed or status wrong: %v", v.Status)
	}

	insert(t, w, ins, InvFuel, "Coal", 1)
	w.Steps(60)
	if got := count(view(t, w, dst), InvStorage, "Iron plate"); got < 1 {
		t.Fatalf("fuelled inserter delivered %d", got)
	}
	checkConserved(t, w)
}

func TestInserterTargetsResolveOnNeighbourChanges(t *testing.T) {
	w, _ := newTestWorld(t, 8, 8)
	ins := place(t, w, "Inserter", 1, 0, model.East)
	w.Steps(1)
	if v := view(t, w, ins); !hasFlag(v, "NO_TARGET") || !v.Inserter.PickFrom.IsZero() {
		t.Fatalf("targets without neighbours: %+v", v.Inserter)
	}
	src := place(t, w, "Wooden chest", 0, 0, model.North)
	dst := place(t, w, "Wooden chest", 2, 0, model.North)
	v := view(t, w, ins)
	if v.Inserter.PickFrom != src || v.Inserter.DropTo != dst {
		t.Fatalf("targets=%s/%s want %s/%s", v.Inserter.PickFrom, v.Inserter.DropTo, src, dst)
	}
	if _, err := w.Remove(dst); err != nil {
		t.Fatalf("remove: %v", err)
	}
	w.Steps(1)
	v = view(t, w, ins)
	if !v.Inserter.DropTo.IsZero() || !hasFlag(v, "NO_TARGET") {
		t.Fatalf("stale drop target: %+v status=%v", v.Inserter, v.Status)
	}
}

func TestStackInserterNeverExceedsMaxStack(t *testing.T) {
	w, _ := newTestWorld(t, 8, 8)
	src := place(t, w, "Wooden chest", 0, 0, model.North)
	ins := place(t, w, "Stack inserter", 1, 0, model.East)
	dst := place(t, w, "Wooden chest", 2, 0, model.North)
	insert(t, w, src, InvStorage, "Iron plate", 40)

	seenFull := false
	for i := 0; i < 400; i++ {
		w.Steps(1)
		v := view(t, w, ins)
		if h := v.Inserter.Hand; h != nil {
			if h.Count > v.Inserter.MaxStack {
				t.Fatalf("tick %d: hand %d > %d", i, h.Count, v.Inserter.MaxStack)
			}
			if h.Count == v.Inserter.MaxStack {
				seenFull = true
			}
		}
	}
	if !seenFull {
		t.Fatalf("stack inserter never carried a full hand")
	}
	if got := count(view(t, w, dst), InvStorage, "Iron plate"); got != 40 {
		t.Fatalf("delivered %d of 40", got)
	}
	checkConserved(t, w)
}

// smeltingLine is chest -> inserter -> furnace -> inserter -> chest.
func smeltingLine(t *testing.T, w *World) (in, furnace, out Handle) {
	t.Helper()
	in = place(t, w, "Wooden chest", 0, 0, model.North)
	place(t, w, "Inserter", 1, 0, model.East)
	furnace = place(t, w, "Stone furnace", 2, 0, model.North)
	place(t, w, "Inserter", 4, 0, model.East)
	out = place(t, w, "Wooden chest", 5, 0, model.North)
	insert(t, w, in, InvStorage, "Iron ore", 10)
	insert(t, w, in, InvStorage, "Coal", 5)
	return in, furnace, out
}

func TestSmeltingLineConservesItems(t *testing.T) {
	w, _ := newTestWorld(t, 8, 8)
	in, furnace, out := smeltingLine(t, w)
	for i := 0; i < 2000; i++ {
		w.Steps(1)
		checkConserved(t, w)
	}
	if got := count(view(t, w, out), InvStorage, "Iron plate"); got != 10 {
		t.Fatalf("plates delivered=%d", got)
	}
	if count(view(t, w, in), InvStorage, "Iron ore") != 0 {
		t.Fatalf("ore left in input chest")
	}
	l := w.Ledger()
	if l.Produced["Iron plate"] != 10 || l.Consumed["Iron ore"] != 10 || l.Consumed["Coal"] == 0 {
		t.Fatalf("ledger=%+v", l)
	}
	if v := view(t, w, furnace); count(v, InvSource, "Coal") != 0 {
		t.Fatalf("coal entered the furnace source")
	}
}

func TestIdenticalRunsHaveIdenticalDigests(t *testing.T) {
	a, _ := newTestWorld(t, 8, 8)
	b, _ := newTestWorld(t, 8, 8)
	smeltingLine(t, a)
	smeltingLine(t, b)
	for i := 0; i < 600; i++ {
		_, da, _ := a.StepOnce()
		_, db, _ := b.StepOnce()
		if da != db {
			t.Fatalf("tick %d: digests diverged", i)
		}
	}
}

func TestRejectedPlacementChangesNothing(t *testing.T) {
	w, g := newTestWorld(t, 8, 8)
	g.SetNode(model.Cell{X: 6, Y: 6}, "Iron ore", 5)
	place(t, w, "Stone furnace", 0, 0, model.North)
	before := w.StateDigest()

	cases := []struct {
		name string
		at   model.Cell
		dir  model.Direction
		want error
	}{
		{"Wooden chest", model.Cell{X: 1, Y: 1}, model.North, placement.ErrCellOccupied},
		{"Stone furnace", model.Cell{X: 4, Y: 4}, model.East, placement.ErrBadRotation},
		{"Stone furnace", model.Cell{X: 7, Y: 0}, model.North, placement.ErrOutOfBounds},
		{"Burner mining drill", model.Cell{X: 3, Y: 3}, model.North, placement.ErrNoResource},
		{"Teleporter", model.Cell{X: 3, Y: 3}, model.North, placement.ErrUnknownStructure},
	}
	for _, tc := range cases {
		for i := 0; i < 2; i++ {
			if _, err := w.Place(tc.name, tc.at, tc.dir); !errors.Is(err, tc.want) {
				t.Fatalf("%s at %s: err=%v want %v", tc.name, tc.at, err, tc.want)
			}
		}
	}
	if w.StateDigest() != before || len(w.Handles()) != 1 {
		t.Fatalf("rejected placements mutated the world")
	}
	if _, err := w.Place("Burner mining drill", model.Cell{X: 5, Y: 5}, model.North); err != nil {
		t.Fatalf("drill over ore: %v", err)
	}
}

func TestRemoveSpillsEverythingToGround(t *testing.T) {
	w, _ := newTestWorld(t, 8, 8)
	f := place(t, w, "Stone furnace", 2, 2, model.North)
	ins := place(t, w, "Inserter", 4, 2, model.East)
	insert(t, w, f, InvFuel, "Coal", 3)
	insert(t, w, f, InvSource, "Iron ore", 5)
	w.Steps(10)
	if v := view(t, w, f); v.Crafting.Phase != "CRAFTING" {
		t.Fatalf("not crafting: %+v", v.Crafting)
	}
	before := w.ItemTotals()

	rel, err := w.Remove(f)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if rel.Cell != (model.Cell{X: 2, Y: 2}) {
		t.Fatalf("spilled at %s", rel.Cell)
	}
	after := w.ItemTotals()
	for item, n := range before {
		if after[item] != n {
			t.Fatalf("%s: before=%d after=%d", item, n, after[item])
		}
	}
	ground := w.Ground()
	if len(ground) != 1 || ground[0].Cell != rel.Cell {
		t.Fatalf("ground=%+v", ground)
	}
	if _, ok := w.Structure(f); ok {
		t.Fatalf("removed handle still resolves")
	}
	if _, err := w.Remove(f); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("second remove: %v", err)
	}
	if v := view(t, w, ins); !v.Inserter.PickFrom.IsZero() {
		t.Fatalf("inserter kept removed source")
	}

	picked := w.PickupGround(rel.Cell)
	if len(picked) == 0 || len(w.Ground()) != 0 {
		t.Fatalf("pickup=%v ground=%v", picked, w.Ground())
	}
	checkConserved(t, w)
}

func TestRecipeChangeRefundsReservedInputs(t *testing.T) {
	w, _ := newTestWorld(t, 8, 8)
	a := place(t, w, "Assembling machine", 0, 0, model.North)
	w.Steps(1)
	if v := view(t, w, a); !hasFlag(v, "NO_RECIPE") {
		t.Fatalf("status before recipe=%v", v.Status)
	}
	if n, _ := w.Insert(a, InvSource, "Iron plate", 4); n != 0 {
		t.Fatalf("source accepted plates with no recipe set")
	}
	if err := w.SetRecipe(a, "Iron gear wheel"); err != nil {
		t.Fatalf("set recipe: %v", err)
	}
	insert(t, w, a, InvSource, "Iron plate", 4)
	w.Steps(3)
	v := view(t, w, a)
	if v.Crafting.Phase != "CRAFTING" || count(v, InvSource, "Iron plate") != 2 {
		t.Fatalf("craft not started: %+v", v.Crafting)
	}

	if err := w.SetRecipe(a, "Copper cable"); err != nil {
		t.Fatalf("change recipe: %v", err)
	}
	v = view(t, w, a)
	if v.Crafting.Phase != "IDLE" || v.Crafting.Progress != 0 || len(v.Crafting.Reserved) != 0 {
		t.Fatalf("craft not reset: %+v", v.Crafting)
	}
	if count(v, InvSource, "Iron plate") != 4 {
		t.Fatalf("reserved plates not refunded: %d", count(v, InvSource, "Iron plate"))
	}
	w.Steps(20)
	v = view(t, w, a)
	if count(v, InvOutput, "Copper cable") != 0 || !hasFlag(v, "NO_INPUT") {
		t.Fatalf("cable from plates? status=%v", v.Status)
	}
	checkConserved(t, w)

	if err := w.SetRecipe(a, "Iron plate"); !errors.Is(err, ErrUnknownRecipe) {
		t.Fatalf("smelter recipe on assembler: %v", err)
	}
	f := place(t, w, "Stone furnace", 4, 0, model.North)
	if err := w.SetRecipe(f, "Iron gear wheel"); !errors.Is(err, ErrNotAssembler) {
		t.Fatalf("recipe on furnace: %v", err)
	}
}

func TestMinerFeedsChestUntilDepleted(t *testing.T) {
	w, g := newTestWorld(t, 8, 8)
	g.SetNode(model.Cell{X: 1, Y: 1}, "Iron ore", 3)
	d := place(t, w, "Burner mining drill", 0, 0, model.East)
	c := place(t, w, "Wooden chest", 2, 0, model.North)
	if v := view(t, w, d); v.Miner.EjectTo != c {
		t.Fatalf("eject target=%s want %s", v.Miner.EjectTo, c)
	}
	insert(t, w, d, InvFuel, "Coal", 2)

	w.Steps(79)
	if got := count(view(t, w, c), InvStorage, "Iron ore"); got != 0 {
		t.Fatalf("mined early: %d", got)
	}
	w.Steps(1)
	if got := count(view(t, w, c), InvStorage, "Iron ore"); got != 1 {
		t.Fatalf("tick 80: chest=%d", got)
	}
	w.Steps(200)
	if got := count(view(t, w, c), InvStorage, "Iron ore"); got != 3 {
		t.Fatalf("chest=%d want 3", got)
	}
	if v := view(t, w, d); !hasFlag(v, "NO_RESOURCE") {
		t.Fatalf("status=%v", v.Status)
	}
	if _, _, ok := g.Resource(model.Cell{X: 1, Y: 1}); ok {
		t.Fatalf("node not depleted")
	}
	checkConserved(t, w)
}

func TestApplyReportsErrorCodes(t *testing.T) {
	w, _ := newTestWorld(t, 8, 8)
	res := w.Apply(Command{Kind: CmdPlace, Structure: "Wooden chest", Cell: model.Cell{X: 1, Y: 1}})
	if !res.OK || res.Handle.IsZero() {
		t.Fatalf("place: %+v", res)
	}
	cases := []struct {
		cmd  Command
		code string
	}{
		{Command{Kind: CmdPlace, Structure: "Wooden chest", Cell: model.Cell{X: 1, Y: 1}}, "E_CELL_OCCUPIED"},
		{Command{Kind: CmdInsert, Handle: res.Handle, Inventory: InvFuel, Item: "Coal", Count: 1}, "E_NO_SUCH_INVENTORY"},
		{Command{Kind: CmdInsert, Handle: res.Handle, Inventory: InvStorage, Item: "Unobtainium", Count: 1}, "E_UNKNOWN_ITEM"},
		{Command{Kind: CmdRemove, Handle: Handle{Index: 9, Gen: 1}}, "E_UNKNOWN_HANDLE"},
		{Command{Kind: CmdPutOnBelt, Handle: res.Handle, Item: "Coal"}, "E_NOT_BELT"},
		{Command{Kind: "JUMP"}, "E_BAD_REQUEST"},
	}
	for _, tc := range cases {
		if got := w.Apply(tc.cmd); got.OK || got.Code != tc.code {
			t.Fatalf("%s: %+v want %s", tc.cmd.Kind, got, tc.code)
		}
	}
	got := w.Apply(Command{Kind: CmdInsert, Handle: res.Handle, Inventory: InvStorage, Item: "Coal", Count: 5})
	if !got.OK || got.Count != 5 {
		t.Fatalf("insert: %+v", got)
	}
}

func TestQueryIsReadOnlyAndUnlogged(t *testing.T) {
	w, _ := newTestWorld(t, 8, 8)
	log := &memTickLog{}
	w.SetTickLogger(log)
	_, _, res := w.StepOnce(Command{Kind: CmdPlace, Structure: "Wooden chest", Cell: model.Cell{X: 1, Y: 1}})

	_, _, got := w.StepOnce(Command{Kind: CmdQuery, Handle: res[0].Handle}, Command{Kind: CmdQuery})
	sv, ok := got[0].View.(StructureView)
	if !got[0].OK || !ok || sv.Name != "Wooden chest" || got[0].Tick != 1 {
		t.Fatalf("structure query: %+v", got[0])
	}
	if wv, ok := got[1].View.(WorldView); !ok || len(wv.Structures) != 1 {
		t.Fatalf("world query: %+v", got[1])
	}
	if len(log.entries[1].Commands) != 0 {
		t.Fatalf("queries were logged")
	}
	if r := w.Apply(Command{Kind: CmdQuery, Handle: Handle{Index: 5, Gen: 1}}); r.OK || r.Code != "E_UNKNOWN_HANDLE" {
		t.Fatalf("unknown handle query: %+v", r)
	}
	if wd, ht, ok := w.Bounds(); !ok || wd != 8 || ht != 8 {
		t.Fatalf("bounds=%d,%d,%v", wd, ht, ok)
	}
}
