package world

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/inventory"
	"factorycraft.ai/internal/sim/world/feature/conveyor"
	"factorycraft.ai/internal/sim/world/feature/placement"
	"factorycraft.ai/internal/sim/world/kernel/model"
)

type CommandKind string

const (
	CmdPlace        CommandKind = "PLACE"
	CmdRemove       CommandKind = "REMOVE"
	CmdInsert       CommandKind = "INSERT"
	CmdTake         CommandKind = "TAKE"
	CmdSetRecipe    CommandKind = "SET_RECIPE"
	CmdPutOnBelt    CommandKind = "PUT_ON_BELT"
	CmdPickupGround CommandKind = "PICKUP_GROUND"

	// CmdQuery reads a structure view (or the whole world when Handle is
	// zero) on the world goroutine. It never mutates and is not logged.
	CmdQuery CommandKind = "QUERY"
)

// Command is one externally requested mutation. Only the fields relevant to
// Kind are read.
type Command struct {
	Kind      CommandKind     `json:"kind"`
	Structure string          `json:"structure,omitempty"`
	Cell      model.Cell      `json:"cell"`
	Dir       model.Direction `json:"dir,omitempty"`
	Handle    Handle          `json:"handle,omitzero"`
	Inventory InventoryKind   `json:"inventory,omitempty"`
	Item      string          `json:"item,omitempty"`
	Count     int             `json:"count,omitempty"`
	Recipe    string          `json:"recipe,omitempty"`
	Lane      conveyor.Lane   `json:"lane,omitempty"`
}

type Result struct {
	Kind    CommandKind       `json:"kind"`
	OK      bool              `json:"ok"`
	Tick    uint64            `json:"tick"`
	Handle  Handle            `json:"handle,omitzero"`
	Count   int               `json:"count,omitempty"`
	Items   []inventory.Stack `json:"items,omitempty"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
	// View is a StructureView or WorldView for CmdQuery.
	View any `json:"view,omitempty"`
}

func failed(kind CommandKind, err error) Result {
	return Result{Kind: kind, Code: ErrorCode(err), Message: err.Error()}
}

// ErrorCode maps a command error to a stable wire code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, placement.ErrUnknownStructure):
		return "E_UNKNOWN_STRUCTURE"
	case errors.Is(err, placement.ErrBadRotation):
		return "E_BAD_ROTATION"
	case errors.Is(err, placement.ErrOutOfBounds):
		return "E_OUT_OF_BOUNDS"
	case errors.Is(err, placement.ErrImpassable):
		return "E_IMPASSABLE"
	case errors.Is(err, placement.ErrCellOccupied):
		return "E_CELL_OCCUPIED"
	case errors.Is(err, placement.ErrColliderOverlap):
		return "E_COLLIDER_OVERLAP"
	case errors.Is(err, placement.ErrNoResource):
		return "E_NO_RESOURCE"
	case errors.Is(err, ErrUnknownHandle), errors.Is(err, ErrBadHandle):
		return "E_UNKNOWN_HANDLE"
	case errors.Is(err, ErrNoSuchInventory):
		return "E_NO_SUCH_INVENTORY"
	case errors.Is(err, ErrUnknownItem):
		return "E_UNKNOWN_ITEM"
	case errors.Is(err, ErrUnknownRecipe):
		return "E_UNKNOWN_RECIPE"
	case errors.Is(err, ErrNotAssembler):
		return "E_NOT_ASSEMBLER"
	case errors.Is(err, ErrNotBelt):
		return "E_NOT_BELT"
	default:
		return "E_BAD_REQUEST"
	}
}

// Apply executes cmd immediately. While Run is active only the world loop
// may call it; use Submit from other goroutines.
func (w *World) Apply(cmd Command) Result {
	switch cmd.Kind {
	case CmdPlace:
		h, err := w.Place(cmd.Structure, cmd.Cell, cmd.Dir)
		if err != nil {
			return failed(cmd.Kind, err)
		}
		return Result{Kind: cmd.Kind, OK: true, Handle: h}
	case CmdRemove:
		rel, err := w.Remove(cmd.Handle)
		if err != nil {
			return failed(cmd.Kind, err)
		}
		return Result{Kind: cmd.Kind, OK: true, Handle: cmd.Handle, Items: rel.Items}
	case CmdInsert:
		n, err := w.Insert(cmd.Handle, cmd.Inventory, cmd.Item, cmd.Count)
		if err != nil {
			return failed(cmd.Kind, err)
		}
		return Result{Kind: cmd.Kind, OK: true, Handle: cmd.Handle, Count: n}
	case CmdTake:
		n, err := w.Take(cmd.Handle, cmd.Inventory, cmd.Item, cmd.Count)
		if err != nil {
			return failed(cmd.Kind, err)
		}
		return Result{Kind: cmd.Kind, OK: true, Handle: cmd.Handle, Count: n}
	case CmdSetRecipe:
		if err := w.SetRecipe(cmd.Handle, cmd.Recipe); err != nil {
			return failed(cmd.Kind, err)
		}
		return Result{Kind: cmd.Kind, OK: true, Handle: cmd.Handle}
	case CmdPutOnBelt:
		ok, err := w.PutOnBelt(cmd.Handle, cmd.Lane, cmd.Item)
		if err != nil {
			return failed(cmd.Kind, err)
		}
		res := Result{Kind: cmd.Kind, OK: true, Handle: cmd.Handle}
		if ok {
			res.Count = 1
		}
		return res
	case CmdPickupGround:
		items := w.PickupGround(cmd.Cell)
		n := 0
		for _, st := range items {
			n += st.Count
		}
		return Result{Kind: cmd.Kind, OK: true, Count: n, Items: items}
	case CmdQuery:
		if cmd.Handle.IsZero() {
			return Result{Kind: cmd.Kind, OK: true, View: w.Snapshot()}
		}
		v, ok := w.Structure(cmd.Handle)
		if !ok {
			return failed(cmd.Kind, fmt.Errorf("%w: %s", ErrUnknownHandle, cmd.Handle))
		}
		return Result{Kind: cmd.Kind, OK: true, Handle: cmd.Handle, View: v}
	default:
		return Result{Kind: cmd.Kind, Code: "E_BAD_REQUEST", Message: fmt.Sprintf("unknown command %q", cmd.Kind)}
	}
}

// Place validates and instantiates a structure. A rejected placement leaves
// the world untouched.
func (w *World) Place(name string, at model.Cell, dir model.Direction) (Handle, error) {
	def, ok := w.cats.Structure(name)
	if !ok {
		return Handle{}, placement.UnknownStructure(name, at)
	}
	plan, err := placement.Validate(placement.Request{Anchor: at, Dir: dir, Def: def}, w.terr, occupancy{w})
	if err != nil {
		w.log.Debug("placement rejected", zap.String("structure", name), zap.Stringer("cell", at), zap.Error(err))
		return Handle{}, err
	}

	h := w.table.alloc()
	s := w.build(h, def, at, dir, plan.Cells, plan.Collider)
	w.table.slots[h.Index] = s
	for _, c := range plan.Cells {
		w.occ[c] = h.Index
	}
	if s.belt != nil {
		w.belts[int(h.Index)] = s.belt
		w.beltsDirty = true
	}
	w.relink(plan.Cells)

	w.counts.placements++
	w.audit(AuditEntry{Action: CmdPlace, Handle: h, Structure: name, Cell: at, Dir: dir.String()})
	w.log.Debug("structure placed", zap.Uint64("tick", w.tick.Load()), zap.Stringer("handle", h), zap.String("structure", name), zap.Stringer("cell", at))
	return h, nil
}

// Released is what a removal dropped on the ground.
type Released struct {
	Handle Handle
	Cell   model.Cell
	Items  []inventory.Stack
}

// Remove deletes a structure. Everything it owned (inventories, crafting
// inputs and results, belt items, an inserter's hand) is dropped on a
// ground pile at its anchor, and neighbours are re-linked before returning
// so nothing keeps a reference to it.
func (w *World) Remove(h Handle) (Released, error) {
	s := w.table.get(h)
	if s == nil {
		return Released{}, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	items := w.drainStructure(s)
	w.addGround(s.anchor, items)

	for _, c := range s.cells {
		delete(w.occ, c)
	}
	if s.belt != nil {
		delete(w.belts, int(h.Index))
		w.beltsDirty = true
	}
	w.table.release(h)
	w.relink(s.cells)

	w.counts.removals++
	w.audit(AuditEntry{Action: CmdRemove, Handle: h, Structure: s.def.Name, Cell: s.anchor, Dir: s.dir.String(), Released: items})
	w.log.Debug("structure removed", zap.Uint64("tick", w.tick.Load()), zap.Stringer("handle", h), zap.String("structure", s.def.Name), zap.Int("spilled_stacks", len(items)))
	return Released{Handle: h, Cell: s.anchor, Items: items}, nil
}

func (w *World) drainStructure(s *structure) []inventory.Stack {
	var out []inventory.Stack
	for _, inv := range []*inventory.Inventory{s.source, s.output, s.fuel, s.storage} {
		if inv != nil {
			out = append(out, inv.Drain()...)
		}
	}
	if s.crafter != nil {
		out = append(out, s.crafter.Cancel()...)
	}
	if s.ins != nil {
		if hand, ok := s.ins.Release(); ok {
			out = append(out, hand)
		}
	}
	if s.belt != nil {
		out = append(out, s.belt.Drain()...)
	}
	return mergeStacks(nil, out)
}

func (w *World) inventoryOf(h Handle, kind InventoryKind) (*inventory.Inventory, error) {
	s := w.table.get(h)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	inv := s.inventory(kind)
	if inv == nil {
		return nil, fmt.Errorf("%w: %s has no %s", ErrNoSuchInventory, s.def.Name, kind)
	}
	return inv, nil
}

// Insert adds up to n items from outside the simulation and returns how
// many fit.
func (w *World) Insert(h Handle, kind InventoryKind, item string, n int) (int, error) {
	inv, err := w.inventoryOf(h, kind)
	if err != nil {
		return 0, err
	}
	if _, ok := w.cats.Item(item); !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownItem, item)
	}
	added := inv.TryAdd(item, n)
	w.ledger.add(item, added)
	return added, nil
}

// Take removes up to n items to outside the simulation and returns how many
// were available.
func (w *World) Take(h Handle, kind InventoryKind, item string, n int) (int, error) {
	inv, err := w.inventoryOf(h, kind)
	if err != nil {
		return 0, err
	}
	taken := inv.TryRemove(item, n)
	w.ledger.remove(item, taken)
	return taken, nil
}

// SetRecipe selects an assembler's recipe; an empty name clears it. A craft
// in progress is abandoned: its reserved ingredients go back to Source and
// held results to Output, spilling to the ground what does not fit.
func (w *World) SetRecipe(h Handle, name string) error {
	s := w.table.get(h)
	if s == nil {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	if s.crafter == nil || !s.isAssembler() {
		return fmt.Errorf("%w: %s", ErrNotAssembler, s.def.Name)
	}
	if name != "" {
		r, ok := w.cats.Recipe(name)
		if !ok || r.Station != catalogs.StationAssembler {
			return fmt.Errorf("%w: %q", ErrUnknownRecipe, name)
		}
	}
	if name == s.recipe {
		return nil
	}

	reserved := append([]inventory.Stack(nil), s.crafter.Reserved...)
	held := append([]inventory.Stack(nil), s.crafter.Held...)
	s.crafter.Cancel()
	var spill []inventory.Stack
	spill = refund(spill, s.source, reserved)
	spill = refund(spill, s.output, held)
	w.addGround(s.anchor, spill)

	s.recipe = name
	w.refreshSourceFilter(s)
	w.log.Debug("recipe set", zap.Stringer("handle", h), zap.String("recipe", name), zap.Int("spilled_stacks", len(spill)))
	return nil
}

func refund(spill []inventory.Stack, inv *inventory.Inventory, stacks []inventory.Stack) []inventory.Stack {
	for _, st := range stacks {
		n := 0
		if inv != nil {
			n = inv.TryAdd(st.Item, st.Count)
		}
		if left := st.Count - n; left > 0 {
			spill = append(spill, inventory.Stack{Item: st.Item, Count: left})
		}
	}
	return spill
}

// PutOnBelt places one item at the start of a belt lane. It reports false
// when spacing does not allow it.
func (w *World) PutOnBelt(h Handle, lane conveyor.Lane, item string) (bool, error) {
	s := w.table.get(h)
	if s == nil {
		return false, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	if s.belt == nil {
		return false, fmt.Errorf("%w: %s", ErrNotBelt, s.def.Name)
	}
	if _, ok := w.cats.Item(item); !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownItem, item)
	}
	if lane > conveyor.Right {
		lane = conveyor.Right
	}
	if !s.belt.InsertAt(w.beltParams(), lane, 0, item) {
		return false, nil
	}
	w.ledger.add(item, 1)
	return true, nil
}

// PickupGround removes and returns the pile at c.
func (w *World) PickupGround(c model.Cell) []inventory.Stack {
	pile := w.ground[c]
	delete(w.ground, c)
	for _, st := range pile {
		w.ledger.remove(st.Item, st.Count)
	}
	return pile
}

func (w *World) addGround(c model.Cell, items []inventory.Stack) {
	if len(items) == 0 {
		return
	}
	w.ground[c] = mergeStacks(w.ground[c], items)
}

// mergeStacks appends items to dst, combining counts per item and keeping
// first-seen order.
func mergeStacks(dst, items []inventory.Stack) []inventory.Stack {
	for _, st := range items {
		if st.Count <= 0 {
			continue
		}
		merged := false
		for i := range dst {
			if dst[i].Item == st.Item {
				dst[i].Count += st.Count
				merged = true
				break
			}
		}
		if !merged {
			dst = append(dst, st)
		}
	}
	return dst
}

func (w *World) audit(e AuditEntry) {
	if w.auditLogger == nil {
		return
	}
	e.Tick = w.tick.Load()
	if err := w.auditLogger.WriteAudit(e); err != nil {
		w.log.Warn("audit write failed", zap.Uint64("tick", e.Tick), zap.Error(err))
	}
}
