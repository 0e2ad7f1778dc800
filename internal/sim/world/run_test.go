package world

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"factorycraft.ai/internal/persistence/snapshot"
	"factorycraft.ai/internal/sim/terrain"
	"factorycraft.ai/internal/sim/tuning"
	"factorycraft.ai/internal/sim/world/feature/conveyor"
	"factorycraft.ai/internal/sim/world/kernel/model"
)

type memTickLog struct{ entries []TickLogEntry }

func (m *memTickLog) WriteTick(e TickLogEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

type memAuditLog struct{ entries []AuditEntry }

func (m *memAuditLog) WriteAudit(e AuditEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func TestSnapshotRoundTripKeepsDigests(t *testing.T) {
	a, ga := newTestWorld(t, 12, 12)
	ga.SetNode(model.Cell{X: 8, Y: 8}, "Iron ore", 50)
	smeltingLine(t, a)
	d := place(t, a, "Burner mining drill", 8, 8, model.West)
	insert(t, a, d, InvFuel, "Coal", 3)
	b1 := place(t, a, "Transport belt", 0, 6, model.East)
	place(t, a, "Transport belt", 1, 6, model.East)
	for i := 0; i < 3; i++ {
		if ok, err := a.PutOnBelt(b1, conveyor.Left, "Coal"); !ok || err != nil {
			t.Fatalf("put %d: %v %v", i, ok, err)
		}
		a.Steps(5)
	}
	a.Steps(137)

	snap := a.ExportSnapshot(a.CurrentTick() - 1)
	path := snapshot.PathFor(t.TempDir(), snap.Header.Tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	read, err := snapshot.ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	b, _ := newTestWorld(t, 12, 12)
	if err := b.ImportSnapshot(read); err != nil {
		t.Fatalf("import: %v", err)
	}
	if b.CurrentTick() != a.CurrentTick() {
		t.Fatalf("tick %d want %d", b.CurrentTick(), a.CurrentTick())
	}
	if b.StateDigest() != a.StateDigest() {
		t.Fatalf("digest differs right after import")
	}
	for i := 0; i < 500; i++ {
		_, da, _ := a.StepOnce()
		_, db, _ := b.StepOnce()
		if da != db {
			t.Fatalf("step %d after import: digests diverged", i)
		}
	}
	checkConserved(t, b)
}

func TestImportRejectsMismatchedTerrain(t *testing.T) {
	a, _ := newTestWorld(t, 8, 8)
	snap := a.ExportSnapshot(0)
	b, _ := newTestWorld(t, 9, 8)
	if err := b.ImportSnapshot(snap); err == nil {
		t.Fatalf("import into a differently sized grid succeeded")
	}
	snap.Header.Version = snapshot.Version + 1
	if err := a.ImportSnapshot(snap); err == nil {
		t.Fatalf("import of unknown version succeeded")
	}
}

func TestTickAndAuditLogs(t *testing.T) {
	w, _ := newTestWorld(t, 8, 8)
	ticks, audits := &memTickLog{}, &memAuditLog{}
	w.SetTickLogger(ticks)
	w.SetAuditLogger(audits)

	_, _, res := w.StepOnce(Command{Kind: CmdPlace, Structure: "Wooden chest", Cell: model.Cell{X: 2, Y: 2}})
	if !res[0].OK {
		t.Fatalf("place: %+v", res[0])
	}
	w.StepOnce(
		Command{Kind: CmdInsert, Handle: res[0].Handle, Inventory: InvStorage, Item: "Coal", Count: 3},
		Command{Kind: CmdRemove, Handle: res[0].Handle},
	)
	w.Steps(1)

	if len(ticks.entries) != 3 {
		t.Fatalf("tick entries=%d", len(ticks.entries))
	}
	if got := ticks.entries[1]; got.Tick != 1 || len(got.Commands) != 2 || got.Digest == "" {
		t.Fatalf("entry=%+v", got)
	}
	if len(ticks.entries[2].Commands) != 0 {
		t.Fatalf("empty tick logged commands")
	}
	if len(audits.entries) != 2 || audits.entries[1].Action != CmdRemove {
		t.Fatalf("audits=%+v", audits.entries)
	}
	if rel := audits.entries[1].Released; len(rel) != 1 || rel[0].Count != 3 {
		t.Fatalf("released=%+v", rel)
	}
}

func TestReplayOfLoggedCommandsMatches(t *testing.T) {
	a, _ := newTestWorld(t, 8, 8)
	log := &memTickLog{}
	a.SetTickLogger(log)
	_, _, res := a.StepOnce(Command{Kind: CmdPlace, Structure: "Stone furnace", Cell: model.Cell{X: 0, Y: 0}})
	a.StepOnce(
		Command{Kind: CmdInsert, Handle: res[0].Handle, Inventory: InvFuel, Item: "Coal", Count: 2},
		Command{Kind: CmdInsert, Handle: res[0].Handle, Inventory: InvSource, Item: "Copper ore", Count: 4},
	)
	a.Steps(100)

	b, _ := newTestWorld(t, 8, 8)
	for _, e := range log.entries {
		tick, digest, _ := b.StepOnce(e.Commands...)
		if tick != e.Tick || digest != e.Digest {
			t.Fatalf("replay tick %d: digest mismatch", e.Tick)
		}
	}
}

func TestRunAppliesSubmittedCommands(t *testing.T) {
	g := terrain.NewGrid(8, 8)
	tune := tuning.Defaults()
	tune.TickDurationMs = 5
	w, err := New(Config{ID: "run"}, loadCatalogs(t), tune, g, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	obs := make(chan []byte, 1)
	w.ObserverJoin() <- ObserverJoinRequest{SessionID: "o1", TickOut: obs}

	resp, err := w.Submit(ctx, Command{Kind: CmdPlace, Structure: "Iron chest", Cell: model.Cell{X: 3, Y: 3}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var res Result
	select {
	case res = <-resp:
	case <-ctx.Done():
		t.Fatalf("no result")
	}
	if !res.OK || res.Handle.IsZero() {
		t.Fatalf("result=%+v", res)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case b := <-obs:
			var msg struct {
				Type  string    `json:"type"`
				Tick  uint64    `json:"tick"`
				World WorldView `json:"world"`
			}
			if err := json.Unmarshal(b, &msg); err != nil {
				t.Fatalf("observer message: %v", err)
			}
			if msg.Type != "OBS_TICK" {
				t.Fatalf("type=%q", msg.Type)
			}
			if len(msg.World.Structures) == 0 {
				continue
			}
			if msg.World.Structures[0].Handle != res.Handle {
				t.Fatalf("observer saw %s want %s", msg.World.Structures[0].Handle, res.Handle)
			}
			w.ObserverLeave() <- "o1"
			w.Stop()
			if err := <-done; err != nil {
				t.Fatalf("run: %v", err)
			}
			if w.Metrics().Structures != 1 {
				t.Fatalf("metrics=%+v", w.Metrics())
			}
			return
		case <-deadline:
			t.Fatalf("observer never saw the chest")
		}
	}
}

func TestPeriodicSnapshotsReachSink(t *testing.T) {
	g := terrain.NewGrid(4, 4)
	w, err := New(Config{ID: "snap", SnapshotEveryTicks: 10}, loadCatalogs(t), tuning.Defaults(), g, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sink := make(chan snapshot.SnapshotV1, 4)
	w.SetSnapshotSink(sink)
	w.Steps(31)
	var ticks []uint64
	for len(sink) > 0 {
		ticks = append(ticks, (<-sink).Header.Tick)
	}
	if len(ticks) != 3 || ticks[0] != 10 || ticks[2] != 30 {
		t.Fatalf("snapshot ticks=%v", ticks)
	}
}
