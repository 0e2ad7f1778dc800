package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

var ErrVersion = errors.New("unsupported snapshot version")

// Header is written as a JSON line ahead of the gob body so tools can read
// it without decoding the whole snapshot.
type Header struct {
	Version       int    `json:"version"`
	WorldID       string `json:"world_id"`
	RunID         string `json:"run_id,omitempty"`
	Tick          uint64 `json:"tick"`
	CatalogDigest string `json:"catalog_digest"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	TickDurationMs int `json:"tick_duration_ms"`

	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Nodes   []NodeV1 `json:"nodes,omitempty"`
	Blocked [][2]int `json:"blocked,omitempty"`

	Gens       []uint32      `json:"gens"`
	Free       []uint32      `json:"free,omitempty"`
	Structures []StructureV1 `json:"structures"`
	Ground     []GroundV1    `json:"ground,omitempty"`

	Ledger LedgerV1 `json:"ledger"`
}

type NodeV1 struct {
	Pos    [2]int `json:"pos"`
	Item   string `json:"item"`
	Amount int    `json:"amount"`
}

type StackV1 struct {
	Item  string `json:"item,omitempty"`
	Count int    `json:"count,omitempty"`
}

type StructureV1 struct {
	Index   uint32 `json:"index"`
	Gen     uint32 `json:"gen"`
	Name    string `json:"name"`
	Anchor  [2]int `json:"anchor"`
	Dir     int    `json:"dir"`
	Powered bool   `json:"powered"`

	// Slot arrays, empty slots included.
	Source  []StackV1 `json:"source,omitempty"`
	Output  []StackV1 `json:"output,omitempty"`
	Fuel    []StackV1 `json:"fuel,omitempty"`
	Storage []StackV1 `json:"storage,omitempty"`

	Burner        *BurnerV1   `json:"burner,omitempty"`
	Crafter       *CrafterV1  `json:"crafter,omitempty"`
	Recipe        string      `json:"recipe,omitempty"`
	MinerProgress int64       `json:"miner_progress,omitempty"`
	Inserter      *InserterV1 `json:"inserter,omitempty"`
	Belt          *BeltV1     `json:"belt,omitempty"`
}

type BurnerV1 struct {
	ChargeMs   int64  `json:"charge_ms"`
	LastFuelMs int64  `json:"last_fuel_ms"`
	LastFuel   string `json:"last_fuel,omitempty"`
}

type CrafterV1 struct {
	Phase      int       `json:"phase"`
	Recipe     string    `json:"recipe,omitempty"`
	ProgressMs int64     `json:"progress_ms"`
	TimeMs     int64     `json:"time_ms"`
	Reserved   []StackV1 `json:"reserved,omitempty"`
	Products   []StackV1 `json:"products,omitempty"`
	Held       []StackV1 `json:"held,omitempty"`
}

type InserterV1 struct {
	Phase     int     `json:"phase"`
	ElapsedMs int64   `json:"elapsed_ms"`
	Hand      StackV1 `json:"hand"`
}

type BeltItemV1 struct {
	Name string `json:"name"`
	Pos  int    `json:"pos"`
}

type BeltV1 struct {
	Left  []BeltItemV1 `json:"left,omitempty"`
	Right []BeltItemV1 `json:"right,omitempty"`
	Carry int64        `json:"carry,omitempty"`
}

type GroundV1 struct {
	Pos   [2]int    `json:"pos"`
	Items []StackV1 `json:"items"`
}

type LedgerV1 struct {
	Produced map[string]int `json:"produced,omitempty"`
	Consumed map[string]int `json:"consumed,omitempty"`
	Added    map[string]int `json:"added,omitempty"`
	Removed  map[string]int `json:"removed,omitempty"`
}

func WriteSnapshot(path string, snap SnapshotV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		return err
	}
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadHeader decodes only the leading header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The gob body repeats the header; the line is only for tools.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("%w: %d", ErrVersion, snap.Header.Version)
	}
	return snap, nil
}

// Latest returns the snapshot in dir with the highest tick, named
// <tick>.snap.zst.
func Latest(dir string) (string, bool) {
	matches, _ := filepath.Glob(filepath.Join(dir, "*.snap.zst"))
	best, bestTick := "", uint64(0)
	for _, m := range matches {
		var tick uint64
		if _, err := fmt.Sscanf(filepath.Base(m), "%d.snap.zst", &tick); err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			best, bestTick = m, tick
		}
	}
	return best, best != ""
}

func PathFor(dir string, tick uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%d.snap.zst", tick))
}
