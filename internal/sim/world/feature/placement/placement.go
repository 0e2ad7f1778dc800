package placement

import (
	"errors"
	"fmt"
	"math"

	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/world/kernel/model"
)

var (
	ErrUnknownStructure = errors.New("unknown structure")
	ErrBadRotation      = errors.New("rotation not allowed")
	ErrOutOfBounds      = errors.New("out of bounds")
	ErrImpassable       = errors.New("impassable terrain")
	ErrCellOccupied     = errors.New("cell occupied")
	ErrColliderOverlap  = errors.New("collider overlap")
	ErrNoResource       = errors.New("no resource under miner")
)

// Error is a rejected placement. Reason is one of the sentinel errors above.
type Error struct {
	Reason error
	Cell   model.Cell
}

func (e *Error) Error() string { return fmt.Sprintf("placement at %s: %v", e.Cell, e.Reason) }
func (e *Error) Unwrap() error { return e.Reason }

func reject(reason error, c model.Cell) error { return &Error{Reason: reason, Cell: c} }

// Ground is the terrain view placement needs.
type Ground interface {
	InBounds(c model.Cell) bool
	Passable(c model.Cell) bool
	Resource(c model.Cell) (item string, amount int, ok bool)
}

// Occupancy is the set of placed structures, keyed by an opaque id. Reach
// bounds how many cells any placed collider extends past its footprint.
type Occupancy interface {
	OccupantAt(c model.Cell) (id int, ok bool)
	ColliderOf(id int) model.Rect
	Reach() int
}

type Request struct {
	Anchor model.Cell
	Dir    model.Direction
	Def    catalogs.StructureDef
}

// Plan is what an accepted placement covers.
type Plan struct {
	Cells    []model.Cell
	Collider model.Rect
}

func UnknownStructure(name string, at model.Cell) error {
	return &Error{Reason: fmt.Errorf("%w: %q", ErrUnknownStructure, name), Cell: at}
}

// Validate checks a placement without mutating anything, so repeating it
// against unchanged state always gives the same answer. Checks run in a
// fixed order: rotation, bounds, terrain, occupancy, colliders, resource.
func Validate(req Request, ground Ground, occ Occupancy) (Plan, error) {
	def := req.Def
	if !model.AllowedBySides(def.Sides, req.Dir) {
		return Plan{}, reject(ErrBadRotation, req.Anchor)
	}
	w, h := def.Size[0], def.Size[1]
	cells := model.Footprint(req.Anchor, w, h, req.Dir)
	for _, c := range cells {
		if !ground.InBounds(c) {
			return Plan{}, reject(ErrOutOfBounds, c)
		}
	}
	for _, c := range cells {
		if !ground.Passable(c) {
			return Plan{}, reject(ErrImpassable, c)
		}
	}
	for _, c := range cells {
		if _, ok := occ.OccupantAt(c); ok {
			return Plan{}, reject(ErrCellOccupied, c)
		}
	}

	rect := model.ColliderRect(req.Anchor, w, h, def.Collider[0], def.Collider[1], req.Dir)
	checked := map[int]bool{}
	for _, c := range scanArea(rect, occ.Reach()) {
		id, ok := occ.OccupantAt(c)
		if !ok || checked[id] {
			continue
		}
		checked[id] = true
		if rect.Overlaps(occ.ColliderOf(id)) {
			return Plan{}, reject(ErrColliderOverlap, c)
		}
	}

	if def.Has(catalogs.CompMiner) {
		found := false
		for _, c := range cells {
			if _, _, ok := ground.Resource(c); ok {
				found = true
				break
			}
		}
		if !found {
			return Plan{}, reject(ErrNoResource, req.Anchor)
		}
	}
	return Plan{Cells: cells, Collider: rect}, nil
}

// scanArea lists, row-major, every cell whose occupant could own a collider
// overlapping rect when colliders reach at most reach cells past their
// footprints.
func scanArea(rect model.Rect, reach int) []model.Cell {
	if reach < 0 {
		reach = 0
	}
	x0 := int(math.Floor(rect.MinX)) - reach - 1
	y0 := int(math.Floor(rect.MinY)) - reach - 1
	x1 := int(math.Ceil(rect.MaxX)) + reach
	y1 := int(math.Ceil(rect.MaxY)) + reach
	out := make([]model.Cell, 0, (x1-x0+1)*(y1-y0+1))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			out = append(out, model.Cell{X: x, Y: y})
		}
	}
	return out
}
