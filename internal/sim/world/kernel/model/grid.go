package model

import (
	"fmt"
	"sort"
	"strings"
)

// Cell is one grid tile. Y grows southward.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Cell) Add(d Cell) Cell { return Cell{X: c.X + d.X, Y: c.Y + d.Y} }
func (c Cell) Sub(d Cell) Cell { return Cell{X: c.X - d.X, Y: c.Y - d.Y} }

func (c Cell) ToArray() [2]int { return [2]int{c.X, c.Y} }

func (c Cell) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Less orders cells row-major (Y, then X).
func (c Cell) Less(o Cell) bool {
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.X < o.X
}

func SortCells(cells []Cell) {
	sort.Slice(cells, func(i, j int) bool { return cells[i].Less(cells[j]) })
}

// Direction is a cardinal facing. The zero value is North.
type Direction uint8

const (
	North Direction = iota
	East
	South
	West
)

func (d Direction) Valid() bool { return d <= West }

func (d Direction) Forward() Cell {
	switch d {
	case North:
		return Cell{X: 0, Y: -1}
	case East:
		return Cell{X: 1, Y: 0}
	case South:
		return Cell{X: 0, Y: 1}
	default:
		return Cell{X: -1, Y: 0}
	}
}

func (d Direction) Left() Direction     { return (d + 3) & 3 }
func (d Direction) Right() Direction    { return (d + 1) & 3 }
func (d Direction) Opposite() Direction { return (d + 2) & 3 }

func (d Direction) String() string {
	switch d {
	case North:
		return "N"
	case East:
		return "E"
	case South:
		return "S"
	case West:
		return "W"
	default:
		return "?"
	}
}

func ParseDirection(s string) (Direction, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "N", "NORTH", "":
		return North, true
	case "E", "EAST":
		return East, true
	case "S", "SOUTH":
		return South, true
	case "W", "WEST":
		return West, true
	default:
		return North, false
	}
}

// AllowedBySides reports whether a structure with the given number of
// connectable sides may face d.
func AllowedBySides(sides int, d Direction) bool {
	switch sides {
	case 1:
		return d == North
	case 2:
		return d == North || d == South
	case 4:
		return d.Valid()
	default:
		return false
	}
}

// Footprint returns the cells covered by a w*h structure anchored at its
// top-left cell. East/West facings swap width and height.
func Footprint(anchor Cell, w, h int, d Direction) []Cell {
	if d == East || d == West {
		w, h = h, w
	}
	out := make([]Cell, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out = append(out, Cell{X: anchor.X + x, Y: anchor.Y + y})
		}
	}
	return out
}

// FrontCell is the cell directly in front of the middle of the footprint's
// leading edge.
func FrontCell(anchor Cell, w, h int, d Direction) Cell {
	if d == East || d == West {
		w, h = h, w
	}
	switch d {
	case North:
		return Cell{X: anchor.X + (w-1)/2, Y: anchor.Y - 1}
	case South:
		return Cell{X: anchor.X + (w-1)/2, Y: anchor.Y + h}
	case East:
		return Cell{X: anchor.X + w, Y: anchor.Y + (h-1)/2}
	default:
		return Cell{X: anchor.X - 1, Y: anchor.Y + (h-1)/2}
	}
}

// Rect is an axis-aligned box in tile units.
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Overlaps is strict: touching edges do not overlap.
func (r Rect) Overlaps(o Rect) bool {
	return r.MinX < o.MaxX && o.MinX < r.MaxX && r.MinY < o.MaxY && o.MinY < r.MaxY
}

// ColliderRect centers a collider of extents (cw, ch) on the footprint.
func ColliderRect(anchor Cell, w, h int, cw, ch float64, d Direction) Rect {
	if d == East || d == West {
		w, h = h, w
		cw, ch = ch, cw
	}
	cx := float64(anchor.X) + float64(w)/2
	cy := float64(anchor.Y) + float64(h)/2
	return Rect{MinX: cx - cw/2, MinY: cy - ch/2, MaxX: cx + cw/2, MaxY: cy + ch/2}
}
