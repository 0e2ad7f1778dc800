package catalogs

import (
	"fmt"
	"math"
)

type ComponentType string

const (
	CompSmelter       ComponentType = "Smelter"
	CompBurner        ComponentType = "Burner"
	CompCraftingQueue ComponentType = "CraftingQueue"
	CompSource        ComponentType = "Source"
	CompOutput        ComponentType = "Output"
	CompFuel          ComponentType = "Fuel"
	CompInventory     ComponentType = "Inventory"
	CompMiner         ComponentType = "Miner"
	CompInserter      ComponentType = "Inserter"
	CompAssembler     ComponentType = "Assembler"
	CompTransportBelt ComponentType = "TransportBelt"
)

var capBits = map[ComponentType]Caps{
	CompSmelter:       CapSmelter,
	CompBurner:        CapBurner,
	CompCraftingQueue: CapCraftingQueue,
	CompSource:        CapSource,
	CompOutput:        CapOutput,
	CompFuel:          CapFuel,
	CompInventory:     CapInventory,
	CompMiner:         CapMiner,
	CompInserter:      CapInserter,
	CompAssembler:     CapAssembler,
	CompTransportBelt: CapTransportBelt,
}

// Caps is the capability set derived from a definition's component tags.
type Caps uint16

const (
	CapSmelter Caps = 1 << iota
	CapBurner
	CapCraftingQueue
	CapSource
	CapOutput
	CapFuel
	CapInventory
	CapMiner
	CapInserter
	CapAssembler
	CapTransportBelt
)

func (c Caps) Has(want Caps) bool { return c&want == want }

// ComponentSpec carries the parameters of one component tag. Which fields are
// meaningful depends on Type.
type ComponentSpec struct {
	Type      ComponentType `json:"type"`
	Slots     int           `json:"slots,omitempty"`      // Source, Output, Fuel, Inventory
	Allow     []string      `json:"allow,omitempty"`      // Source
	CycleTime float64       `json:"cycle_time,omitempty"` // Inserter, seconds per pickup+drop
	StackSize int           `json:"stack_size,omitempty"` // Inserter
	Rate      float64       `json:"rate,omitempty"`       // Miner
	Speed     float64       `json:"speed,omitempty"`      // TransportBelt, tiles per second
}

type StructureDef struct {
	Name       string          `json:"name"`
	Size       [2]int          `json:"size"`
	Collider   [2]float64      `json:"collider"`
	Sides      int             `json:"sides"`
	Animated   bool            `json:"animated,omitempty"`
	Components []ComponentSpec `json:"components"`

	caps Caps
}

func (d StructureDef) Caps() Caps { return d.caps }

func (d StructureDef) Has(t ComponentType) bool { return d.caps.Has(capBits[t]) }

func (d StructureDef) Component(t ComponentType) (ComponentSpec, bool) {
	for _, c := range d.Components {
		if c.Type == t {
			return c, true
		}
	}
	return ComponentSpec{}, false
}

// CycleMs is the inserter cycle in milliseconds.
func (s ComponentSpec) CycleMs() int64 { return int64(s.CycleTime*1000 + 0.5) }

// Overhang is how many whole cells the collider reaches past the footprint
// on its widest side, in any rotation.
func (d StructureDef) Overhang() int {
	over := 0.0
	for _, c := range d.Collider {
		for _, sz := range d.Size {
			if v := (c - float64(sz)) / 2; v > over {
				over = v
			}
		}
	}
	return int(math.Ceil(over))
}

func (d *StructureDef) init(items *ItemCatalog) error {
	d.caps = 0
	for _, c := range d.Components {
		bit, ok := capBits[c.Type]
		if !ok {
			return fmt.Errorf("%w: component %q", ErrInvalidDefinition, c.Type)
		}
		if d.caps.Has(bit) {
			return fmt.Errorf("%w: component %q listed twice", ErrInvalidDefinition, c.Type)
		}
		d.caps |= bit

		switch c.Type {
		case CompSource, CompOutput, CompFuel, CompInventory:
			if c.Slots < 1 {
				return fmt.Errorf("%w: %s needs slots >= 1", ErrInvalidDefinition, c.Type)
			}
		case CompInserter:
			if c.CycleMs() <= 0 || c.StackSize < 1 {
				return fmt.Errorf("%w: Inserter needs cycle_time > 0 and stack_size >= 1", ErrInvalidDefinition)
			}
		case CompMiner:
			if c.Rate <= 0 {
				return fmt.Errorf("%w: Miner needs rate > 0", ErrInvalidDefinition)
			}
		}
		for _, it := range c.Allow {
			if _, ok := items.Defs[it]; !ok {
				return fmt.Errorf("%w: Source allows item %q", ErrUnknownReference, it)
			}
		}
	}

	requires := func(have ComponentType, needs ...ComponentType) error {
		if !d.Has(have) {
			return nil
		}
		for _, n := range needs {
			if !d.Has(n) {
				return fmt.Errorf("%w: %s requires %s", ErrInvalidDefinition, have, n)
			}
		}
		return nil
	}
	for _, err := range []error{
		requires(CompSmelter, CompCraftingQueue, CompSource, CompOutput),
		requires(CompAssembler, CompCraftingQueue, CompSource, CompOutput),
		requires(CompBurner, CompFuel),
		requires(CompMiner, CompOutput),
	} {
		if err != nil {
			return err
		}
	}
	if d.Has(CompSmelter) && d.Has(CompAssembler) {
		return fmt.Errorf("%w: Smelter and Assembler are exclusive", ErrInvalidDefinition)
	}
	return nil
}
