package terrain

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"factorycraft.ai/internal/sim/world/kernel/model"
)

// Terrain is the resource and passability provider the simulation queries.
// Implementations must be deterministic for identical call sequences.
type Terrain interface {
	InBounds(c model.Cell) bool
	Passable(c model.Cell) bool
	// Resource reports the resource node at c, if any and not depleted.
	Resource(c model.Cell) (item string, amount int, ok bool)
	// Extract removes up to n units from the node at c.
	Extract(c model.Cell, n int) (item string, taken int)
}

type Node struct {
	Cell   model.Cell `json:"cell"`
	Item   string     `json:"item"`
	Amount int        `json:"amount"`
}

// Grid is a bounded in-memory terrain. Cells outside [0,W)x[0,H) are out of
// bounds.
type Grid struct {
	w, h    int
	blocked map[model.Cell]bool
	nodes   map[model.Cell]*Node
}

func NewGrid(w, h int) *Grid {
	return &Grid{
		w:       w,
		h:       h,
		blocked: map[model.Cell]bool{},
		nodes:   map[model.Cell]*Node{},
	}
}

func (g *Grid) Width() int  { return g.w }
func (g *Grid) Height() int { return g.h }

func (g *Grid) InBounds(c model.Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.w && c.Y < g.h
}

func (g *Grid) Passable(c model.Cell) bool {
	return g.InBounds(c) && !g.blocked[c]
}

func (g *Grid) SetBlocked(c model.Cell, blocked bool) {
	if blocked {
		g.blocked[c] = true
		return
	}
	delete(g.blocked, c)
}

// SetNode places (or replaces) a resource node. amount <= 0 removes it.
func (g *Grid) SetNode(c model.Cell, item string, amount int) {
	if amount <= 0 || item == "" {
		delete(g.nodes, c)
		return
	}
	g.nodes[c] = &Node{Cell: c, Item: item, Amount: amount}
}

func (g *Grid) Resource(c model.Cell) (string, int, bool) {
	n := g.nodes[c]
	if n == nil || n.Amount <= 0 {
		return "", 0, false
	}
	return n.Item, n.Amount, true
}

func (g *Grid) Extract(c model.Cell, want int) (string, int) {
	n := g.nodes[c]
	if n == nil || n.Amount <= 0 || want <= 0 {
		return "", 0
	}
	took := min(want, n.Amount)
	n.Amount -= took
	item := n.Item
	if n.Amount == 0 {
		delete(g.nodes, c)
	}
	return item, took
}

// Nodes returns the remaining resource nodes in row-major order.
func (g *Grid) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cell.Less(out[j].Cell) })
	return out
}

func (g *Grid) Blocked() []model.Cell {
	out := make([]model.Cell, 0, len(g.blocked))
	for c := range g.blocked {
		out = append(out, c)
	}
	model.SortCells(out)
	return out
}

// Restore replaces nodes and blocked cells, used when loading snapshots.
func (g *Grid) Restore(nodes []Node, blocked []model.Cell) {
	g.nodes = make(map[model.Cell]*Node, len(nodes))
	for _, n := range nodes {
		g.SetNode(n.Cell, n.Item, n.Amount)
	}
	g.blocked = make(map[model.Cell]bool, len(blocked))
	for _, c := range blocked {
		g.blocked[c] = true
	}
}

// Digest hashes bounds, blocked cells and remaining node amounts.
func (g *Grid) Digest() [32]byte {
	h := sha256.New()
	var tmp [8]byte
	w := func(v int64) {
		binary.LittleEndian.PutUint64(tmp[:], uint64(v))
		h.Write(tmp[:])
	}
	w(int64(g.w))
	w(int64(g.h))
	for _, c := range g.Blocked() {
		w(int64(c.X))
		w(int64(c.Y))
	}
	for _, n := range g.Nodes() {
		w(int64(n.Cell.X))
		w(int64(n.Cell.Y))
		h.Write([]byte(n.Item))
		w(int64(n.Amount))
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
