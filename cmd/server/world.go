package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"factorycraft.ai/internal/config"
	"factorycraft.ai/internal/persistence/snapshot"
	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/terrain"
	"factorycraft.ai/internal/sim/tuning"
	"factorycraft.ai/internal/sim/world"
)

type bootedWorld struct {
	world       *world.World
	resumedFrom string
}

// openWorld builds the world from catalogs and tuning, resuming from the
// newest snapshot in worldDir when resume is enabled.
func openWorld(cfg *config.Config, worldDir string, logger *zap.Logger) (bootedWorld, error) {
	cats, err := catalogs.Load(cfg.World.ConfigDir)
	if err != nil {
		return bootedWorld{}, fmt.Errorf("load catalogs: %w", err)
	}

	tune, err := tuning.Load(filepath.Join(cfg.World.ConfigDir, "tuning.yaml"))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return bootedWorld{}, fmt.Errorf("load tuning: %w", err)
		}
		logger.Warn("tuning.yaml not found; using defaults", zap.String("dir", cfg.World.ConfigDir))
		tune = tuning.Defaults()
	}
	if cfg.World.Width > 0 {
		tune.World.Width = cfg.World.Width
	}
	if cfg.World.Height > 0 {
		tune.World.Height = cfg.World.Height
	}
	if cfg.World.Seed != 0 {
		tune.World.Seed = cfg.World.Seed
	}
	if cfg.Storage.SnapshotEveryTicks > 0 {
		tune.SnapshotEveryTicks = cfg.Storage.SnapshotEveryTicks
	}

	wcfg := world.Config{ID: cfg.World.ID, SnapshotEveryTicks: tune.SnapshotEveryTicks}

	if cfg.Storage.Resume {
		if path, ok := snapshot.Latest(filepath.Join(worldDir, "snapshots")); ok {
			snap, err := snapshot.ReadSnapshot(path)
			if err != nil {
				return bootedWorld{}, fmt.Errorf("read snapshot %s: %w", path, err)
			}
			if snap.Header.WorldID != "" && snap.Header.WorldID != cfg.World.ID {
				return bootedWorld{}, fmt.Errorf("snapshot world id %q does not match %q", snap.Header.WorldID, cfg.World.ID)
			}
			if snap.TickDurationMs > 0 {
				tune.TickDurationMs = snap.TickDurationMs
			}
			w, err := world.New(wcfg, cats, tune, terrain.NewGrid(snap.Width, snap.Height), logger)
			if err != nil {
				return bootedWorld{}, err
			}
			if err := w.ImportSnapshot(snap); err != nil {
				return bootedWorld{}, fmt.Errorf("import snapshot: %w", err)
			}
			logger.Info("resumed from snapshot", zap.String("path", path), zap.Uint64("tick", w.CurrentTick()))
			return bootedWorld{world: w, resumedFrom: path}, nil
		}
	}

	grid := terrain.Generate(tune.World.Width, tune.World.Height, terrain.FromTuning(tune.World))
	w, err := world.New(wcfg, cats, tune, grid, logger)
	if err != nil {
		return bootedWorld{}, err
	}
	logger.Info("generated world",
		zap.Int("width", tune.World.Width),
		zap.Int("height", tune.World.Height),
		zap.Int64("seed", tune.World.Seed),
		zap.Int("ore_nodes", len(grid.Nodes())),
	)
	return bootedWorld{world: w}, nil
}
