package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"factorycraft.ai/internal/config"
	"factorycraft.ai/internal/persistence/archive"
	"factorycraft.ai/internal/persistence/indexdb"
	persistlog "factorycraft.ai/internal/persistence/log"
	"factorycraft.ai/internal/persistence/snapshot"
)

func main() {
	var (
		configPath = flag.String("config", "./factorycraft.toml", "server config (TOML); defaults apply when missing")
		addr       = flag.String("addr", "", "http listen address (overrides server.bind_address)")
		fresh      = flag.Bool("fresh", false, "ignore existing snapshots and start a new world")
	)
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.BindAddress = *addr
	}
	if *fresh {
		cfg.Storage.Resume = false
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	worldDir := filepath.Join(cfg.Storage.DataDir, "worlds", cfg.World.ID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		return err
	}

	boot, err := openWorld(cfg, worldDir, logger)
	if err != nil {
		return err
	}
	w := boot.world

	var idx *indexdb.SQLiteIndex
	if !cfg.Storage.DisableIndex {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(cfg.World.ConfigDir, w.Catalogs(), w.Tuning()); err != nil {
			logger.Warn("index: upsert catalogs failed", zap.Error(err))
		}
	}

	var (
		ticks  persistlog.TickFanout
		audits persistlog.AuditFanout
	)
	if !cfg.Storage.DisableTickLog {
		tickLog := persistlog.NewTickLogger(worldDir)
		auditLog := persistlog.NewAuditLogger(worldDir)
		defer tickLog.Close()
		defer auditLog.Close()
		ticks = append(ticks, tickLog)
		audits = append(audits, auditLog)
	}
	if idx != nil {
		ticks = append(ticks, idx)
		audits = append(audits, idx)
	}
	if len(ticks) > 0 {
		w.SetTickLogger(ticks)
		w.SetAuditLogger(audits)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := uuid.NewString()
	sw := snapshotWriter{
		worldDir:     worldDir,
		runID:        runID,
		archiveEvery: cfg.Storage.ArchiveEveryTicks,
		keep:         cfg.Storage.KeepSnapshots,
		idx:          idx,
		log:          logger,
	}
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	snapDone := make(chan struct{})
	go func() {
		defer close(snapDone)
		writeSnapshots(ctx, snapCh, sw)
	}()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("world stopped", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Server.BindAddress,
		Handler:           newMux(cfg, w, idx, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Info("listening",
		zap.String("addr", cfg.Server.BindAddress),
		zap.String("world", w.ID()),
		zap.String("run", runID),
		zap.Uint64("tick", w.CurrentTick()),
		zap.Bool("resumed", boot.resumedFrom != ""),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cancel()
		return fmt.Errorf("listen: %w", err)
	}

	<-worldDone
	<-snapDone

	// One final snapshot so a restart resumes where this run stopped.
	if tick := w.CurrentTick(); tick > 0 {
		sw.write(w.ExportSnapshot(tick - 1))
	}
	return nil
}

type snapshotWriter struct {
	worldDir     string
	runID        string
	archiveEvery uint64
	keep         int
	idx          *indexdb.SQLiteIndex
	log          *zap.Logger
}

func writeSnapshots(ctx context.Context, in <-chan snapshot.SnapshotV1, sw snapshotWriter) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-in:
			sw.write(snap)
		}
	}
}

func (sw snapshotWriter) write(snap snapshot.SnapshotV1) {
	dir := filepath.Join(sw.worldDir, "snapshots")
	snap.Header.RunID = sw.runID
	path := snapshot.PathFor(dir, snap.Header.Tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		sw.log.Error("snapshot write failed", zap.Uint64("tick", snap.Header.Tick), zap.Error(err))
		return
	}
	sw.idx.RecordSnapshot(path, snap)
	sw.log.Debug("snapshot written", zap.String("path", path))

	if dst, ok, err := archive.ArchiveCheckpoint(sw.worldDir, path, snap, sw.archiveEvery); err != nil {
		sw.log.Warn("archive checkpoint failed", zap.Uint64("tick", snap.Header.Tick), zap.Error(err))
	} else if ok {
		sw.log.Info("checkpoint archived", zap.String("path", dst))
	}
	if removed, err := archive.Prune(dir, sw.keep); err != nil {
		sw.log.Warn("snapshot prune failed", zap.Error(err))
	} else if len(removed) > 0 {
		sw.log.Debug("snapshots pruned", zap.Int("removed", len(removed)))
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
