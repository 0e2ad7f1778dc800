package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"factorycraft.ai/internal/persistence/snapshot"
)

type CheckpointMeta struct {
	WorldID       string `json:"world_id"`
	RunID         string `json:"run_id,omitempty"`
	Tick          uint64 `json:"tick"`
	CatalogDigest string `json:"catalog_digest"`
	Structures    int    `json:"structures"`
	Snapshot      string `json:"snapshot"`
	CreatedAt     string `json:"created_at"`
}

// ArchiveCheckpoint copies a snapshot into worldDir/archives/tick_<tick>/
// when its tick is a positive multiple of every. Archived snapshots are
// never pruned.
func ArchiveCheckpoint(worldDir, snapshotPath string, snap snapshot.SnapshotV1, every uint64) (archivedPath string, archived bool, err error) {
	tick := snap.Header.Tick
	if every == 0 || tick == 0 || tick%every != 0 {
		return "", false, nil
	}

	dir := filepath.Join(worldDir, "archives", fmt.Sprintf("tick_%012d", tick))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, err
	}
	dst := filepath.Join(dir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := CheckpointMeta{
		WorldID:       snap.Header.WorldID,
		RunID:         snap.Header.RunID,
		Tick:          tick,
		CatalogDigest: snap.Header.CatalogDigest,
		Structures:    len(snap.Structures),
		Snapshot:      filepath.Base(dst),
		CreatedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644)
	}
	return dst, true, nil
}

// Prune deletes all but the newest keep snapshots in dir and returns the
// removed paths. keep <= 0 keeps everything.
func Prune(dir string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.snap.zst"))
	if err != nil {
		return nil, err
	}
	type entry struct {
		path string
		tick uint64
	}
	var ents []entry
	for _, m := range matches {
		var tick uint64
		if _, err := fmt.Sscanf(filepath.Base(m), "%d.snap.zst", &tick); err != nil {
			continue
		}
		ents = append(ents, entry{path: m, tick: tick})
	}
	if len(ents) <= keep {
		return nil, nil
	}
	sort.Slice(ents, func(i, j int) bool { return ents[i].tick > ents[j].tick })

	var removed []string
	for _, e := range ents[keep:] {
		if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed = append(removed, e.path)
	}
	return removed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
