package world

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownHandle   = errors.New("unknown structure handle")
	ErrBadHandle       = errors.New("malformed handle")
	ErrNoSuchInventory = errors.New("structure has no such inventory")
	ErrUnknownItem     = errors.New("unknown item")
	ErrUnknownRecipe   = errors.New("unknown recipe")
	ErrNotAssembler    = errors.New("structure is not an assembler")
	ErrNotBelt         = errors.New("structure is not a belt")
)

// Handle names a placed structure. Gen changes every time a table slot is
// reused, so a handle kept past removal never resolves to the newcomer.
// The zero Handle is never issued.
type Handle struct {
	Index uint32
	Gen   uint32
}

func (h Handle) String() string { return fmt.Sprintf("S%d.%d", h.Index, h.Gen) }

func (h Handle) IsZero() bool { return h.Gen == 0 }

func (h Handle) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *Handle) UnmarshalText(b []byte) error {
	v, err := ParseHandle(string(b))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

func ParseHandle(s string) (Handle, error) {
	rest, ok := strings.CutPrefix(s, "S")
	if !ok {
		return Handle{}, fmt.Errorf("%w: %q", ErrBadHandle, s)
	}
	is, gs, ok := strings.Cut(rest, ".")
	if !ok {
		return Handle{}, fmt.Errorf("%w: %q", ErrBadHandle, s)
	}
	idx, err := strconv.ParseUint(is, 10, 32)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %q", ErrBadHandle, s)
	}
	gen, err := strconv.ParseUint(gs, 10, 32)
	if err != nil || gen == 0 {
		return Handle{}, fmt.Errorf("%w: %q", ErrBadHandle, s)
	}
	return Handle{Index: uint32(idx), Gen: uint32(gen)}, nil
}

// table is the flat structure store. Freed slots are reused last-in
// first-out.
type table struct {
	slots []*structure
	gens  []uint32
	free  []uint32
	live  int
}

func (t *table) alloc() Handle {
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, nil)
		t.gens = append(t.gens, 0)
	}
	t.gens[idx]++
	if t.gens[idx] == 0 {
		t.gens[idx] = 1
	}
	t.live++
	return Handle{Index: idx, Gen: t.gens[idx]}
}

func (t *table) get(h Handle) *structure {
	if h.IsZero() || int(h.Index) >= len(t.slots) {
		return nil
	}
	if t.gens[h.Index] != h.Gen {
		return nil
	}
	return t.slots[h.Index]
}

func (t *table) at(idx uint32) *structure {
	if int(idx) >= len(t.slots) {
		return nil
	}
	return t.slots[idx]
}

func (t *table) release(h Handle) {
	if t.get(h) == nil {
		return
	}
	t.slots[h.Index] = nil
	t.free = append(t.free, h.Index)
	t.live--
}

// each visits live structures in index order.
func (t *table) each(fn func(*structure)) {
	for _, s := range t.slots {
		if s != nil {
			fn(s)
		}
	}
}
