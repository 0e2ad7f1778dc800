package terrain

import (
	"testing"

	"factorycraft.ai/internal/sim/tuning"
	"factorycraft.ai/internal/sim/world/kernel/model"
)

func TestGridExtractDepletes(t *testing.T) {
	g := NewGrid(4, 4)
	c := model.Cell{X: 1, Y: 2}
	g.SetNode(c, "Iron ore", 3)
	if item, took := g.Extract(c, 2); item != "Iron ore" || took != 2 {
		t.Fatalf("extract: %q %d", item, took)
	}
	if _, took := g.Extract(c, 5); took != 1 {
		t.Fatalf("extract rest: took %d", took)
	}
	if _, _, ok := g.Resource(c); ok {
		t.Fatalf("node should be depleted")
	}
}

func TestGridBoundsAndPassable(t *testing.T) {
	g := NewGrid(2, 2)
	g.SetBlocked(model.Cell{X: 1, Y: 1}, true)
	if g.InBounds(model.Cell{X: 2, Y: 0}) || g.InBounds(model.Cell{X: -1, Y: 0}) {
		t.Fatalf("out of bounds cell reported in bounds")
	}
	if g.Passable(model.Cell{X: 1, Y: 1}) || !g.Passable(model.Cell{X: 0, Y: 1}) {
		t.Fatalf("passability wrong")
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	cfg := GenConfig{
		Seed: 7, OreGrid: 16, OreRadius: 3, OrePermille: 600, NodeAmount: 100,
		WaterPermille: 30, Ores: []string{"Iron ore", "Coal"},
	}
	a := Generate(64, 64, cfg)
	b := Generate(64, 64, cfg)
	if a.Digest() != b.Digest() {
		t.Fatalf("same seed produced different terrain")
	}
	if len(a.Nodes()) == 0 {
		t.Fatalf("expected some ore nodes")
	}
	for _, n := range a.Nodes() {
		if !a.Passable(n.Cell) {
			t.Fatalf("ore node on blocked cell %v", n.Cell)
		}
	}
	cfg.Seed = 8
	if Generate(64, 64, cfg).Digest() == a.Digest() {
		t.Fatalf("different seeds produced identical terrain")
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	g := NewGrid(8, 8)
	g.SetNode(model.Cell{X: 3, Y: 3}, "Coal", 9)
	g.SetBlocked(model.Cell{X: 0, Y: 0}, true)
	h := NewGrid(8, 8)
	h.Restore(g.Nodes(), g.Blocked())
	if h.Digest() != g.Digest() {
		t.Fatalf("restore changed digest")
	}
}

func TestDefaultTuningGeneratesOre(t *testing.T) {
	cfg := FromTuning(tuning.Defaults().World)
	g := Generate(256, 256, cfg)
	seen := map[string]bool{}
	for _, n := range g.Nodes() {
		seen[n.Item] = true
	}
	if len(seen) == 0 {
		t.Fatalf("no ore generated")
	}
}
