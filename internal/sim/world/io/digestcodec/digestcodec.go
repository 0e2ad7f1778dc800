// Package digestcodec writes values into a state hash in a fixed binary
// layout. Every writer is order-sensitive; callers sort before writing.
package digestcodec

import (
	"encoding/binary"
	"sort"
)

type Writer interface {
	Write(p []byte) (n int, err error)
}

// Encoder wraps a hash with a scratch buffer.
type Encoder struct {
	w   Writer
	tmp [8]byte
}

func New(w Writer) *Encoder { return &Encoder{w: w} }

func (e *Encoder) U64(v uint64) {
	binary.LittleEndian.PutUint64(e.tmp[:], v)
	e.w.Write(e.tmp[:])
}

func (e *Encoder) I64(v int64) { e.U64(uint64(v)) }

func (e *Encoder) Int(v int) { e.U64(uint64(int64(v))) }

func (e *Encoder) Bool(v bool) { e.w.Write([]byte{BoolByte(v)}) }

// String is length-prefixed so adjacent strings cannot run together.
func (e *Encoder) String(s string) {
	e.U64(uint64(len(s)))
	e.w.Write([]byte(s))
}

// Tag separates sections.
func (e *Encoder) Tag(s string) { e.String(s) }

// SortedNonZeroIntMap emits a key-sorted map encoding, skipping zero values.
func (e *Encoder) SortedNonZeroIntMap(m map[string]int) {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v != 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	e.U64(uint64(len(keys)))
	for _, k := range keys {
		e.String(k)
		e.Int(m[k])
	}
}

func BoolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
