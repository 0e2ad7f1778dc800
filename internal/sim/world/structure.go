package world

import (
	"fmt"
	"strings"

	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/inventory"
	"factorycraft.ai/internal/sim/world/feature/burner"
	"factorycraft.ai/internal/sim/world/feature/conveyor"
	"factorycraft.ai/internal/sim/world/feature/crafting"
	"factorycraft.ai/internal/sim/world/feature/inserter"
	"factorycraft.ai/internal/sim/world/feature/mining"
	"factorycraft.ai/internal/sim/world/kernel/model"
)

type InventoryKind string

const (
	InvSource  InventoryKind = "SOURCE"
	InvOutput  InventoryKind = "OUTPUT"
	InvFuel    InventoryKind = "FUEL"
	InvStorage InventoryKind = "STORAGE"
)

func ParseInventoryKind(s string) (InventoryKind, bool) {
	switch k := InventoryKind(strings.ToUpper(s)); k {
	case InvSource, InvOutput, InvFuel, InvStorage:
		return k, true
	}
	return "", false
}

// structure is one placed instance. Each capability of its definition gets
// its own optional slot; a nil slot means the capability is absent.
type structure struct {
	handle Handle
	def    catalogs.StructureDef
	anchor model.Cell
	dir    model.Direction
	cells  []model.Cell
	rect   model.Rect

	source  *inventory.Inventory
	output  *inventory.Inventory
	fuel    *inventory.Inventory
	storage *inventory.Inventory

	burner *burner.State

	crafter *crafting.Queue
	station string
	recipe  string // assembler selection, empty when unset

	miner     *mining.State
	minerSpec mining.Spec
	lastMine  mining.Result

	ins     *inserter.State
	insSpec inserter.Spec

	belt *conveyor.Segment

	// Resolved neighbours; zero when nothing is there.
	pickFrom Handle
	dropTo   Handle
	ejectTo  Handle

	powered bool
	status  Status
}

func (s *structure) inventory(kind InventoryKind) *inventory.Inventory {
	switch kind {
	case InvSource:
		return s.source
	case InvOutput:
		return s.output
	case InvFuel:
		return s.fuel
	case InvStorage:
		return s.storage
	}
	return nil
}

func (s *structure) size() (int, int) { return s.def.Size[0], s.def.Size[1] }

func (s *structure) isAssembler() bool { return s.def.Has(catalogs.CompAssembler) }

// build instantiates the runtime components named by def's tags.
func (w *World) build(h Handle, def catalogs.StructureDef, at model.Cell, dir model.Direction, cells []model.Cell, rect model.Rect) *structure {
	s := &structure{handle: h, def: def, anchor: at, dir: dir, cells: cells, rect: rect, powered: true}
	limits := w.stackLimit
	for _, c := range def.Components {
		switch c.Type {
		case catalogs.CompSource:
			s.source = inventory.New(c.Slots, limits)
		case catalogs.CompOutput:
			s.output = inventory.New(c.Slots, limits)
		case catalogs.CompFuel:
			s.fuel = inventory.New(c.Slots, limits)
			s.fuel.SetFilter(w.cats.IsFuel)
		case catalogs.CompInventory:
			s.storage = inventory.New(c.Slots, limits)
		case catalogs.CompBurner:
			s.burner = &burner.State{}
		case catalogs.CompCraftingQueue:
			s.crafter = &crafting.Queue{}
		case catalogs.CompSmelter:
			s.station = catalogs.StationSmelter
		case catalogs.CompAssembler:
			s.station = catalogs.StationAssembler
		case catalogs.CompMiner:
			s.miner = &mining.State{}
			s.minerSpec = mining.Spec{Rate: c.Rate, MineTimeMs: int64(w.tune.Mining.MineTimeMs)}
		case catalogs.CompInserter:
			s.ins = &inserter.State{}
			s.insSpec = inserter.Spec{CycleMs: c.CycleMs(), MaxStack: c.StackSize}
		case catalogs.CompTransportBelt:
			speed := c.Speed
			if speed <= 0 {
				speed = w.tune.Belt.DefaultSpeed
			}
			s.belt = conveyor.NewSegment(dir, int(speed*float64(w.tune.Belt.Length)+0.5))
		}
	}
	w.refreshSourceFilter(s)
	return s
}

func (w *World) stackLimit(item string) int {
	return w.cats.StackSize(item, w.tune.DefaultStackSize)
}

// candidates are the recipes a crafter may start, in selection order.
func (w *World) candidates(s *structure) []catalogs.RecipeDef {
	switch s.station {
	case catalogs.StationSmelter:
		return w.cats.RecipesFor(catalogs.StationSmelter)
	case catalogs.StationAssembler:
		if r, ok := w.cats.Recipe(s.recipe); ok {
			return []catalogs.RecipeDef{r}
		}
	}
	return nil
}

func (w *World) refreshSourceFilter(s *structure) {
	if s.source == nil {
		return
	}
	var allow []string
	if spec, ok := s.def.Component(catalogs.CompSource); ok {
		allow = spec.Allow
	}
	if len(allow) == 0 && s.station == "" {
		s.source.SetFilter(nil)
		return
	}
	s.source.SetFilter(crafting.SourceFilter(allow, w.candidates(s)))
}

// pickupPort is what an inserter takes from when its pickup cell holds s.
func (w *World) pickupPort(s *structure) inserter.Source {
	if s == nil {
		return nil
	}
	if s.belt != nil {
		return inserter.Belt{Seg: s.belt, Params: w.beltParams()}
	}
	var invs inserter.Inventories
	for _, inv := range []*inventory.Inventory{s.output, s.storage} {
		if inv != nil {
			invs = append(invs, inv)
		}
	}
	if len(invs) == 0 {
		return nil
	}
	return invs
}

// dropPort is what an inserter or miner drops into when s is in front of it.
// from is the side of s the dropper sits on.
func (w *World) dropPort(s *structure, from model.Direction) inserter.Dest {
	if s == nil {
		return nil
	}
	if s.belt != nil {
		p := w.beltParams()
		return inserter.Belt{Seg: s.belt, Params: p, Lane: conveyor.FarLane(s.dir, from), Pos: p.Length / 2}
	}
	var others []*inventory.Inventory
	for _, inv := range []*inventory.Inventory{s.source, s.storage} {
		if inv != nil {
			others = append(others, inv)
		}
	}
	if s.fuel == nil && len(others) == 0 {
		return nil
	}
	return inserter.Inbox{Fuel: s.fuel, IsFuel: w.cats.IsFuel, Others: others}
}

func (w *World) beltParams() conveyor.Params {
	return conveyor.Params{Length: w.tune.Belt.Length, Spacing: w.tune.Belt.ItemSpacing}
}

func (s *structure) String() string {
	return fmt.Sprintf("%s %q at %s facing %s", s.handle, s.def.Name, s.anchor, s.dir)
}
