package netcode

import "unsafe"

// alignment is the hard precondition the Galois region operations in
// galois.go impose on both their source and destination regions (spec
// §4.A/§9): the first usable byte of a Buffer is always 16-byte
// aligned, on every target.
const alignment = 16

// Buffer is a growable byte container whose backing storage always
// starts on a 16-byte boundary. It does NOT zero-initialize bytes
// gained by Grow — callers that always overwrite what they grow into
// (source symbols, read in from the wire) get a cheap allocation; see
// ZeroBuffer for the repair-accumulator variant that does zero.
//
// A Buffer is a value type that owns an oversized backing array; it
// must not be copied after first use (copying duplicates the slice
// header but aliases the same storage, exactly as with a raw []byte).
type Buffer struct {
	raw   []byte // oversized, unaligned backing storage
	bytes []byte // aligned view into raw; Bytes() returns this
}

// NewBuffer allocates a Buffer whose Bytes() has length n.
func NewBuffer(n int) *Buffer {
	b := &Buffer{}
	b.alloc(n, false)
	return b
}

// ZeroBuffer is a Buffer variant whose Grow always zeroes newly gained
// bytes, used for the repair symbol accumulator (spec §4.B): its
// contents start at zero and are XORed into by successive
// multiply-add passes, so stale bytes from a previous use would
// silently corrupt the combination.
type ZeroBuffer struct {
	Buffer
}

// NewZeroBuffer allocates a ZeroBuffer whose Bytes() has length n, all
// zeroed.
func NewZeroBuffer(n int) *ZeroBuffer {
	b := &ZeroBuffer{}
	b.alloc(n, true)
	return b
}

// Bytes returns the current, 16-byte-aligned view of the buffer.
func (b *Buffer) Bytes() []byte { return b.bytes }

// Len returns len(Bytes()).
func (b *Buffer) Len() int { return len(b.bytes) }

// Grow resizes the buffer to n bytes, preserving the bytes already
// present. Shrinking preserves the retained prefix; growing preserves
// the existing bytes and leaves the new tail uninitialized (Buffer) or
// zeroed (ZeroBuffer).
func (b *Buffer) Grow(n int) {
	if n <= cap(b.bytes) {
		b.bytes = b.bytes[:n]
		return
	}
	old := b.bytes
	b.alloc(n, false)
	copy(b.bytes, old)
}

// Grow for ZeroBuffer zeroes the newly gained tail, per the type's
// contract.
func (b *ZeroBuffer) Grow(n int) {
	if n <= cap(b.bytes) {
		old := len(b.bytes)
		b.bytes = b.bytes[:n]
		if n > old {
			clear(b.bytes[old:n])
		}
		return
	}
	old := b.bytes
	b.alloc(n, true)
	copy(b.bytes, old)
}

// alloc (re)allocates raw storage for n bytes, aligning the returned
// view to a 16-byte boundary. zero controls whether the aligned view is
// zeroed after carving it out (it is always at least over-allocated,
// so the bytes beyond n within raw are never observable via Bytes()).
func (b *Buffer) alloc(n int, zero bool) {
	b.raw = make([]byte, n+alignment-1)
	off := alignOffset(b.raw)
	b.bytes = b.raw[off : off+n]
	if zero {
		clear(b.bytes)
	}
}

// alignOffset returns how many leading bytes of raw must be skipped so
// that raw[off] starts on a 16-byte boundary.
func alignOffset(raw []byte) int {
	if len(raw) == 0 {
		return 0
	}
	addr := uintptr(unsafe.Pointer(&raw[0]))
	rem := addr % alignment
	if rem == 0 {
		return 0
	}
	return int(alignment - rem)
}
