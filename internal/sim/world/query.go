package world

import (
	"factorycraft.ai/internal/sim/inventory"
	"factorycraft.ai/internal/sim/world/feature/conveyor"
	"factorycraft.ai/internal/sim/world/kernel/model"
)

// Views are copies; mutating them never touches the world.

type InventoryView struct {
	Kind     InventoryKind     `json:"kind"`
	Capacity int               `json:"capacity"`
	Slots    []inventory.Stack `json:"slots"`
}

type CraftingView struct {
	Phase    string            `json:"phase"`
	Recipe   string            `json:"recipe,omitempty"`
	Progress float64           `json:"progress"`
	Reserved []inventory.Stack `json:"reserved,omitempty"`
	Held     []inventory.Stack `json:"held,omitempty"`
}

type InserterView struct {
	Phase    string           `json:"phase"`
	Progress float64          `json:"progress"`
	Hand     *inventory.Stack `json:"hand,omitempty"`
	MaxStack int              `json:"max_stack"`
	PickFrom Handle           `json:"pick_from,omitzero"`
	DropTo   Handle           `json:"drop_to,omitzero"`
}

type MinerView struct {
	Progress float64 `json:"progress"`
	Item     string  `json:"item,omitempty"`
	EjectTo  Handle  `json:"eject_to,omitzero"`
}

type BeltView struct {
	Speed int             `json:"speed"`
	Left  []conveyor.Item `json:"left,omitempty"`
	Right []conveyor.Item `json:"right,omitempty"`
	Next  Handle          `json:"next,omitzero"`
}

type StructureView struct {
	Handle Handle       `json:"handle"`
	Name   string       `json:"name"`
	Cell   model.Cell   `json:"cell"`
	Dir    string       `json:"dir"`
	Cells  []model.Cell `json:"cells"`

	Powered bool     `json:"powered"`
	Fuel    float64  `json:"fuel"`
	Status  []string `json:"status,omitempty"`

	Inventories []InventoryView `json:"inventories,omitempty"`
	Crafting    *CraftingView   `json:"crafting,omitempty"`
	Inserter    *InserterView   `json:"inserter,omitempty"`
	Miner       *MinerView      `json:"miner,omitempty"`
	Belt        *BeltView       `json:"belt,omitempty"`
}

type GroundPile struct {
	Cell  model.Cell        `json:"cell"`
	Items []inventory.Stack `json:"items"`
}

type WorldView struct {
	WorldID    string          `json:"world_id"`
	Tick       uint64          `json:"tick"`
	Structures []StructureView `json:"structures"`
	Ground     []GroundPile    `json:"ground,omitempty"`
}

func (w *World) Structure(h Handle) (StructureView, bool) {
	s := w.table.get(h)
	if s == nil {
		return StructureView{}, false
	}
	return w.view(s), true
}

// StructureAt returns the handle of the structure covering c.
func (w *World) StructureAt(c model.Cell) (Handle, bool) {
	h := w.handleAt(c)
	return h, !h.IsZero()
}

func (w *World) Handles() []Handle {
	out := make([]Handle, 0, w.table.live)
	w.table.each(func(s *structure) { out = append(out, s.handle) })
	return out
}

func (w *World) Snapshot() WorldView {
	v := WorldView{WorldID: w.cfg.ID, Tick: w.tick.Load(), Structures: make([]StructureView, 0, w.table.live)}
	w.table.each(func(s *structure) { v.Structures = append(v.Structures, w.view(s)) })
	v.Ground = w.Ground()
	return v
}

func (w *World) view(s *structure) StructureView {
	v := StructureView{
		Handle:  s.handle,
		Name:    s.def.Name,
		Cell:    s.anchor,
		Dir:     s.dir.String(),
		Cells:   append([]model.Cell(nil), s.cells...),
		Powered: s.powered,
		Status:  s.status.Flags(),
	}
	if s.burner != nil {
		v.Fuel = s.burner.Fraction()
	}
	for _, k := range []InventoryKind{InvSource, InvOutput, InvFuel, InvStorage} {
		if inv := s.inventory(k); inv != nil {
			v.Inventories = append(v.Inventories, InventoryView{Kind: k, Capacity: inv.Capacity(), Slots: inv.Slots()})
		}
	}
	if q := s.crafter; q != nil {
		cv := &CraftingView{
			Phase:    q.Phase.String(),
			Recipe:   q.Recipe,
			Progress: q.Fraction(),
			Reserved: append([]inventory.Stack(nil), q.Reserved...),
			Held:     append([]inventory.Stack(nil), q.Held...),
		}
		if s.isAssembler() {
			cv.Recipe = s.recipe
		}
		v.Crafting = cv
	}
	if s.ins != nil {
		iv := &InserterView{
			Phase:    s.ins.Phase.String(),
			Progress: s.ins.Fraction(s.insSpec),
			MaxStack: s.insSpec.MaxStack,
			PickFrom: s.pickFrom,
			DropTo:   s.dropTo,
		}
		if s.ins.Hand.Count > 0 {
			hand := s.ins.Hand
			iv.Hand = &hand
		}
		v.Inserter = iv
	}
	if s.miner != nil {
		v.Miner = &MinerView{Progress: s.miner.Fraction(s.minerSpec), Item: s.lastMine.Item, EjectTo: s.ejectTo}
	}
	if b := s.belt; b != nil {
		bv := &BeltView{
			Speed: b.Speed,
			Left:  append([]conveyor.Item(nil), b.Lanes[conveyor.Left]...),
			Right: append([]conveyor.Item(nil), b.Lanes[conveyor.Right]...),
		}
		if b.Next >= 0 {
			if n := w.table.at(uint32(b.Next)); n != nil {
				bv.Next = n.handle
			}
		}
		v.Belt = bv
	}
	return v
}

// Ground lists item piles in row-major cell order.
func (w *World) Ground() []GroundPile {
	cells := make([]model.Cell, 0, len(w.ground))
	for c := range w.ground {
		cells = append(cells, c)
	}
	model.SortCells(cells)
	out := make([]GroundPile, 0, len(cells))
	for _, c := range cells {
		out = append(out, GroundPile{Cell: c, Items: append([]inventory.Stack(nil), w.ground[c]...)})
	}
	return out
}

// ItemTotals counts every item the simulation holds: inventories, crafting
// inputs and held results, inserter hands, belts and ground piles.
func (w *World) ItemTotals() map[string]int {
	out := map[string]int{}
	addAll := func(stacks []inventory.Stack) {
		for _, st := range stacks {
			if st.Count > 0 {
				out[st.Item] += st.Count
			}
		}
	}
	w.table.each(func(s *structure) {
		for _, inv := range []*inventory.Inventory{s.source, s.output, s.fuel, s.storage} {
			if inv != nil {
				addAll(inv.Contents())
			}
		}
		if s.crafter != nil {
			addAll(s.crafter.InFlight())
		}
		if s.ins != nil && s.ins.Hand.Count > 0 {
			out[s.ins.Hand.Item] += s.ins.Hand.Count
		}
		if s.belt != nil {
			for _, lane := range s.belt.Lanes {
				for _, it := range lane {
					out[it.Name]++
				}
			}
		}
	})
	for _, pile := range w.ground {
		addAll(pile)
	}
	return out
}

// Bounds reports the terrain size when the terrain exposes one.
func (w *World) Bounds() (width, height int, ok bool) {
	sized, ok := w.terr.(interface {
		Width() int
		Height() int
	})
	if !ok {
		return 0, 0, false
	}
	return sized.Width(), sized.Height(), true
}

// Ledger returns a copy of the accumulated item flows.
func (w *World) Ledger() Ledger { return w.ledger.clone() }

// BeltOrder is the current belt update order as handles.
func (w *World) BeltOrder() []Handle {
	if w.beltsDirty {
		w.beltOrder = conveyor.Order(w.belts)
		w.beltsDirty = false
	}
	out := make([]Handle, 0, len(w.beltOrder))
	for _, idx := range w.beltOrder {
		if s := w.table.at(uint32(idx)); s != nil {
			out = append(out, s.handle)
		}
	}
	return out
}
