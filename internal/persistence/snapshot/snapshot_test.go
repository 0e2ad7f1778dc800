package snapshot

import (
	"errors"
	"path/filepath"
	"testing"
)

func sample(tick uint64) SnapshotV1 {
	return SnapshotV1{
		Header:         Header{Version: Version, WorldID: "w", Tick: tick, CatalogDigest: "abc"},
		TickDurationMs: 50,
		Width:          8,
		Height:         8,
		Nodes:          []NodeV1{{Pos: [2]int{1, 1}, Item: "Coal", Amount: 9}},
		Gens:           []uint32{1},
		Structures: []StructureV1{{
			Index: 0, Gen: 1, Name: "Stone furnace",
			Source: []StackV1{{Item: "Iron ore", Count: 2}},
			Burner: &BurnerV1{ChargeMs: 400, LastFuelMs: 10000, LastFuel: "Coal"},
		}},
	}
}

func TestWriteReadSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := PathFor(dir, 1200)
	if err := WriteSnapshot(path, sample(1200)); err != nil {
		t.Fatalf("write: %v", err)
	}
	h, err := ReadHeader(path)
	if err != nil || h.Tick != 1200 || h.WorldID != "w" {
		t.Fatalf("header=%+v err=%v", h, err)
	}
	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got.Structures) != 1 || got.Structures[0].Burner == nil || got.Structures[0].Burner.ChargeMs != 400 {
		t.Fatalf("structures=%+v", got.Structures)
	}
	if got.Structures[0].Inserter != nil {
		t.Fatalf("absent component came back non-nil")
	}
}

func TestReadRejectsOtherVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1.snap.zst")
	snap := sample(1)
	snap.Header.Version = Version + 1
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadSnapshot(path); !errors.Is(err, ErrVersion) {
		t.Fatalf("err=%v want ErrVersion", err)
	}
}

func TestLatestPicksHighestTick(t *testing.T) {
	dir := t.TempDir()
	for _, tick := range []uint64{20, 1000, 300} {
		if err := WriteSnapshot(PathFor(dir, tick), sample(tick)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	p, ok := Latest(dir)
	if !ok || filepath.Base(p) != "1000.snap.zst" {
		t.Fatalf("latest=%q ok=%v", p, ok)
	}
	if _, ok := Latest(t.TempDir()); ok {
		t.Fatalf("empty dir reported a snapshot")
	}
}
