package world

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"factorycraft.ai/internal/persistence/snapshot"
	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/inventory"
	"factorycraft.ai/internal/sim/terrain"
	"factorycraft.ai/internal/sim/tuning"
	"factorycraft.ai/internal/sim/world/feature/conveyor"
	"factorycraft.ai/internal/sim/world/kernel/model"
	"factorycraft.ai/internal/sim/world/kernel/system"
)

type Config struct {
	ID string
	// SnapshotEveryTicks <= 0 disables periodic snapshots.
	SnapshotEveryTicks int
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// TickLogEntry records the commands applied at the start of a tick and the
// state digest after it, enough to replay and verify a run.
type TickLogEntry struct {
	Tick     uint64    `json:"tick"`
	Commands []Command `json:"commands,omitempty"`
	Digest   string    `json:"digest"`
}

type AuditEntry struct {
	Tick      uint64            `json:"tick"`
	Action    CommandKind       `json:"action"`
	Handle    Handle            `json:"handle"`
	Structure string            `json:"structure"`
	Cell      model.Cell        `json:"cell"`
	Dir       string            `json:"dir,omitempty"`
	Released  []inventory.Stack `json:"released,omitempty"`
}

type envelope struct {
	cmd  Command
	resp chan Result
}

// World is a single-threaded authoritative simulation. All state is owned
// by the goroutine running Run (or the caller of StepOnce when not running).
type World struct {
	cfg  Config
	cats *catalogs.Catalogs
	tune tuning.Tuning
	terr terrain.Terrain
	log  *zap.Logger
	dtMs int64

	tick atomic.Uint64

	table      table
	occ        map[model.Cell]uint32
	belts      map[int]*conveyor.Segment
	beltOrder  []int
	beltsDirty bool
	ground     map[model.Cell][]inventory.Stack

	runner *system.Runner

	// Commands for the tick being stepped, with their results.
	pending []envelope
	applied []Command

	ledger Ledger
	counts tickCounts
	inst   instruments

	inbox         chan envelope
	observerJoin  chan ObserverJoinRequest
	observerLeave chan string
	observers     map[string]*observerClient
	stop          chan struct{}
	stopOnce      sync.Once

	tickLogger   TickLogger
	auditLogger  AuditLogger
	snapshotSink chan<- snapshot.SnapshotV1

	metrics atomic.Value
}

func New(cfg Config, cats *catalogs.Catalogs, tune tuning.Tuning, terr terrain.Terrain, logger *zap.Logger) (*World, error) {
	if cats == nil {
		return nil, errors.New("world: nil catalogs")
	}
	if terr == nil {
		return nil, errors.New("world: nil terrain")
	}
	if err := tune.Validate(); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ID == "" {
		cfg.ID = "world_1"
	}
	inst, err := newInstruments()
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	w := &World{
		cfg:           cfg,
		cats:          cats,
		tune:          tune,
		terr:          terr,
		log:           logger.With(zap.String("world", cfg.ID)),
		dtMs:          tune.TickDtMs(),
		occ:           map[model.Cell]uint32{},
		belts:         map[int]*conveyor.Segment{},
		ground:        map[model.Cell][]inventory.Stack{},
		runner:        system.NewRunner(),
		ledger:        newLedger(),
		inst:          inst,
		inbox:         make(chan envelope, 1024),
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerLeave: make(chan string, 16),
		observers:     map[string]*observerClient{},
		stop:          make(chan struct{}),
	}
	w.registerSystems()
	w.metrics.Store(WorldMetrics{})
	return w, nil
}

func (w *World) ID() string { return w.cfg.ID }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) Catalogs() *catalogs.Catalogs { return w.cats }

func (w *World) Tuning() tuning.Tuning { return w.tune }

func (w *World) SetTickLogger(l TickLogger) { w.tickLogger = l }

func (w *World) SetAuditLogger(l AuditLogger) { w.auditLogger = l }

// SetSnapshotSink receives a snapshot every SnapshotEveryTicks. Sends never
// block the loop; a busy sink misses that snapshot.
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

// Submit queues cmd for the next tick boundary. The returned channel
// receives exactly one Result.
func (w *World) Submit(ctx context.Context, cmd Command) (<-chan Result, error) {
	resp := make(chan Result, 1)
	select {
	case w.inbox <- envelope{cmd: cmd, resp: resp}:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.stop:
		return nil, errors.New("world stopped")
	}
}

func (w *World) ObserverJoin() chan<- ObserverJoinRequest { return w.observerJoin }

func (w *World) ObserverLeave() chan<- string { return w.observerLeave }

func (w *World) Run(ctx context.Context) error {
	interval := time.Duration(w.dtMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.log.Info("world loop started", zap.Uint64("tick", w.tick.Load()), zap.Duration("interval", interval))
	defer w.log.Info("world loop stopped", zap.Uint64("tick", w.tick.Load()))

	var pending []envelope
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		case id := <-w.observerLeave:
			w.handleObserverLeave(id)
		case env := <-w.inbox:
			pending = append(pending, env)
		case <-ticker.C:
			w.step(pending)
			pending = pending[:0]
		}
	}
}

func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

// StepOnce advances the world by one tick with cmds applied at its start,
// using the same ordering as Run. It is meant for tests and replays.
func (w *World) StepOnce(cmds ...Command) (tick uint64, digest string, results []Result) {
	envs := make([]envelope, len(cmds))
	for i, c := range cmds {
		envs[i] = envelope{cmd: c, resp: make(chan Result, 1)}
	}
	tick = w.tick.Load()
	digest = w.step(envs)
	results = make([]Result, len(envs))
	for i, e := range envs {
		results[i] = <-e.resp
	}
	return tick, digest, results
}

// Steps runs n ticks without commands.
func (w *World) Steps(n int) {
	for i := 0; i < n; i++ {
		w.step(nil)
	}
}

func (w *World) step(envs []envelope) string {
	start := time.Now()
	nowTick := w.tick.Load()
	w.counts = tickCounts{}
	w.pending = envs
	w.applied = w.applied[:0]

	w.runner.Tick(w.dtMs)

	digest := w.stateDigest(nowTick)
	if w.tickLogger != nil {
		entry := TickLogEntry{Tick: nowTick, Digest: digest}
		if len(w.applied) > 0 {
			entry.Commands = append([]Command(nil), w.applied...)
		}
		if err := w.tickLogger.WriteTick(entry); err != nil {
			w.log.Warn("tick log write failed", zap.Uint64("tick", nowTick), zap.Error(err))
		}
	}
	w.pending = nil

	w.broadcastObservers(nowTick)

	if w.cfg.SnapshotEveryTicks > 0 && w.snapshotSink != nil && nowTick > 0 && nowTick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		snap := w.ExportSnapshot(nowTick)
		select {
		case w.snapshotSink <- snap:
		default:
			w.log.Warn("snapshot sink busy, skipping", zap.Uint64("tick", nowTick))
		}
	}

	w.tick.Add(1)
	w.recordStep(nowTick, time.Since(start))
	return digest
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
