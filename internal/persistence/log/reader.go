package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"factorycraft.ai/internal/sim/world"
)

const maxLine = 16 << 20

// TickFiles lists a world's tick log files in chronological order.
func TickFiles(worldDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(worldDir, ticksDir, "ticks-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadTicks calls fn for every tick entry of worldDir in order, stopping at
// the first error fn returns.
func ReadTicks(worldDir string, fn func(world.TickLogEntry) error) error {
	files, err := TickFiles(worldDir)
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := readJSONL(path, func(line []byte) error {
			var e world.TickLogEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			return fn(e)
		}); err != nil {
			return err
		}
	}
	return nil
}

func readJSONL(path string, fn func([]byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		if err := fn(sc.Bytes()); err != nil {
			return err
		}
	}
	return sc.Err()
}
