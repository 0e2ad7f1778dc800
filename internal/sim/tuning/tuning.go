package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickDurationMs int `yaml:"tick_duration_ms"`

	DefaultStackSize int `yaml:"default_stack_size"`

	Belt   BeltTuning   `yaml:"belt"`
	Mining MiningTuning `yaml:"mining"`
	World  WorldTuning  `yaml:"world"`

	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`
}

type BeltTuning struct {
	// Length of one belt segment in position units (one tile).
	Length int `yaml:"length"`
	// Minimum distance between consecutive items on a lane.
	ItemSpacing int `yaml:"item_spacing"`
	// Used when a belt definition has no speed of its own, in tiles per second.
	DefaultSpeed float64 `yaml:"default_speed"`
}

type MiningTuning struct {
	// Work needed for one item at rate 1.0.
	MineTimeMs int `yaml:"mine_time_ms"`
}

type WorldTuning struct {
	Width  int   `yaml:"width"`
	Height int   `yaml:"height"`
	Seed   int64 `yaml:"seed"`

	OreClusterGrid     int `yaml:"ore_cluster_grid"`
	OreClusterRadius   int `yaml:"ore_cluster_radius"`
	OreClusterPermille int `yaml:"ore_cluster_permille"`
	OreNodeAmount      int `yaml:"ore_node_amount"`
	WaterPermille      int `yaml:"water_permille"`

	// Resource items placed by the generator, one cluster family each.
	Ores []string `yaml:"ores"`
}

func Defaults() Tuning {
	return Tuning{
		TickDurationMs:   50,
		DefaultStackSize: 1000,
		Belt: BeltTuning{
			Length:       1000,
			ItemSpacing:  250,
			DefaultSpeed: 1.0,
		},
		Mining: MiningTuning{MineTimeMs: 2000},
		World: WorldTuning{
			Width:              256,
			Height:             256,
			Seed:               1337,
			OreClusterGrid:     24,
			OreClusterRadius:   4,
			OreClusterPermille: 350,
			OreNodeAmount:      500,
			WaterPermille:      20,
			Ores:               []string{"Iron ore", "Copper ore", "Coal", "Stone"},
		},
		SnapshotEveryTicks: 1200,
	}
}

// Load reads a tuning file on top of Defaults().
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickDurationMs <= 0 {
		return fmt.Errorf("tick_duration_ms must be > 0 (got %d)", t.TickDurationMs)
	}
	if t.DefaultStackSize <= 0 {
		return fmt.Errorf("default_stack_size must be > 0 (got %d)", t.DefaultStackSize)
	}
	if t.Belt.Length <= 0 || t.Belt.ItemSpacing <= 0 || t.Belt.ItemSpacing > t.Belt.Length {
		return fmt.Errorf("belt: need 0 < item_spacing <= length (got spacing=%d length=%d)", t.Belt.ItemSpacing, t.Belt.Length)
	}
	if t.Belt.DefaultSpeed <= 0 {
		return fmt.Errorf("belt.default_speed must be > 0")
	}
	if t.Mining.MineTimeMs <= 0 {
		return fmt.Errorf("mining.mine_time_ms must be > 0")
	}
	if t.World.Width <= 0 || t.World.Height <= 0 {
		return fmt.Errorf("world: width and height must be > 0")
	}
	return nil
}

func (t Tuning) TickDtMs() int64 { return int64(t.TickDurationMs) }

func (t Tuning) TickRateHz() int {
	if t.TickDurationMs <= 0 {
		return 0
	}
	return 1000 / t.TickDurationMs
}
