package terrain

import (
	"factorycraft.ai/internal/sim/tuning"
	"factorycraft.ai/internal/sim/world/kernel/model"
)

type GenConfig struct {
	Seed int64

	OreGrid     int
	OreRadius   int
	OrePermille int
	NodeAmount  int

	WaterPermille int

	// Ores are tried in order; the first cluster hit wins.
	Ores []string
}

func FromTuning(t tuning.WorldTuning) GenConfig {
	return GenConfig{
		Seed:          t.Seed,
		OreGrid:       t.OreClusterGrid,
		OreRadius:     t.OreClusterRadius,
		OrePermille:   t.OreClusterPermille,
		NodeAmount:    t.OreNodeAmount,
		WaterPermille: t.WaterPermille,
		Ores:          append([]string(nil), t.Ores...),
	}
}

// Generate fills a w*h grid with ore clusters and scattered impassable water.
// The output depends only on cfg, w and h.
func Generate(w, h int, cfg GenConfig) *Grid {
	g := NewGrid(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := model.Cell{X: x, Y: y}
			if item, ok := oreAt(cfg, x, y); ok {
				g.SetNode(c, item, cfg.NodeAmount)
				continue
			}
			if Hash2(cfg.Seed+999, x, y)%1000 < uint64(clampPermille(cfg.WaterPermille)) {
				g.SetBlocked(c, true)
			}
		}
	}
	return g
}

func oreAt(cfg GenConfig, x, y int) (string, bool) {
	if cfg.NodeAmount <= 0 {
		return "", false
	}
	for i, item := range cfg.Ores {
		if InCluster(cfg.Seed+101+int64(i), x, y, cfg.OreGrid, cfg.OreRadius, uint64(clampPermille(cfg.OrePermille))) {
			return item, true
		}
	}
	return "", false
}

func clampPermille(v int) int {
	if v < 0 {
		return 0
	}
	if v > 1000 {
		return 1000
	}
	return v
}

func floorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func Hash2(seed int64, x, y int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// InCluster reports whether (x, y) lies within radius of a cluster centre.
// Each grid cell hosts at most one centre, present with probPermille.
func InCluster(seed int64, x, y, grid, radius int, probPermille uint64) bool {
	if grid <= 0 || radius <= 0 || probPermille == 0 {
		return false
	}
	gx := floorDiv(x, grid)
	gy := floorDiv(y, grid)
	r2 := radius * radius

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			cgx := gx + dx
			cgy := gy + dy
			h := Hash2(seed, cgx, cgy)
			if h%1000 >= probPermille {
				continue
			}
			cx := cgx*grid + int((h>>10)%uint64(grid))
			cy := cgy*grid + int((h>>20)%uint64(grid))
			ddx := x - cx
			ddy := y - cy
			if ddx*ddx+ddy*ddy <= r2 {
				return true
			}
		}
	}
	return false
}
