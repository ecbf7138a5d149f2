package netcode

import (
	"fmt"

	"github.com/klauspost/cpuid/v2"
)

// Field is a Galois field GF(2^w), w in {4,8,16,32}. It is immutable
// after construction: NewField builds the log/antilog tables (or, for
// w=32 where a full table would be 16 GiB, falls back to a
// shift-and-reduce multiply) once, and every operation afterwards only
// reads them.
//
// The wire size of a "size" contribution (Repair.EncodedSize) is always
// 16 bits regardless of w, so size combination is done in a fixed,
// separately-tabulated GF(2^16); see MultiplySize.
type Field struct {
	w    uint
	size uint64 // 2^w
	poly uint64 // reduction polynomial for the w=32 shift-multiply path

	// log/antilog tables, populated for w in {4,8,16}. logT[0] is
	// never read (log(0) is undefined); expT[0] holds 1.
	logT []uint32
	expT []uint32

	// Accel names the dispatch path chosen at construction time. For
	// w in {4,8} it selects between two region-op implementations that
	// produce identical output by different means (see regionOp); for
	// w in {16,32} only one loop shape exists, so accel is diagnostic
	// only there (see regionOp16/regionOp32).
	accel string
	wide  bool
}

// size16 is a process-wide GF(2^16) instance, shared by every Field,
// used only by MultiplySize to combine/undo the 16-bit size
// contributions of repairs. See DESIGN.md for why size combination is
// pinned to GF(2^16) independent of the codec's own field width.
var size16 = mustBuildTableField(16, 0x1100B)

// NewField constructs a Galois field of the given width. w must be one
// of 4, 8, 16 or 32; this is a programmer precondition (checked here,
// not a recoverable ingestion error — see spec §7.3).
func NewField(w uint) (*Field, error) {
	switch w {
	case 4:
		return buildTableField(4, 0x13) // x^4 + x + 1
	case 8:
		return buildTableField(8, 0x11D) // x^8 + x^4 + x^3 + x^2 + 1
	case 16:
		return buildTableField(16, 0x1100B) // x^16 + x^12 + x^3 + x + 1
	case 32:
		return buildShiftField(32, 0x400007) // x^32 + x^22 + x^2 + x + 1
	default:
		return nil, fmt.Errorf("netcode: unsupported field width %d (want 4, 8, 16 or 32)", w)
	}
}

func mustBuildTableField(w uint, poly uint64) *Field {
	f, err := buildTableField(w, poly)
	if err != nil {
		panic(err)
	}
	return f
}

// buildTableField builds the log/antilog tables for a field small
// enough to tabulate fully (w <= 16): generator 2 is exercised over the
// multiplicative group until it cycles back to 1.
func buildTableField(w uint, poly uint64) (*Field, error) {
	size := uint64(1) << w
	f := &Field{
		w:     w,
		size:  size,
		poly:  poly,
		logT:  make([]uint32, size),
		expT:  make([]uint32, size*2), // doubled so Multiply can index without a modulo on the hot path
	}
	f.accel, f.wide = detectAccel()

	x := uint64(1)
	for i := uint64(0); i < size-1; i++ {
		f.expT[i] = uint32(x)
		f.expT[i+size-1] = uint32(x)
		f.logT[x] = uint32(i)
		x <<= 1
		if x&size != 0 {
			x ^= poly | size
		}
	}
	return f, nil
}

// buildShiftField builds a Field for w=32, where a full log table would
// require 2^32 entries; multiplication instead runs a Russian-peasant
// shift-and-reduce loop directly against the reduction polynomial.
func buildShiftField(w uint, poly uint64) (*Field, error) {
	f := &Field{
		w:    w,
		size: uint64(1) << w,
		poly: poly,
	}
	f.accel, f.wide = detectAccel()
	return f, nil
}

// detectAccel probes CPU feature flags the way
// vendor/github.com/klauspost/reedsolomon/options.go does and reports
// whether region operations should prefer a precomputed per-call
// multiplication table (the same "wide" idea as
// vendor/.../galois_noasm.go's mulTable[c], just built on the fly for
// the coefficient in hand) over multiplying element-by-element through
// the log/antilog tables. AVX2/SSE2 presence is used only as a proxy
// for "this CPU has the cache and throughput to make building a 16- or
// 256-entry table upfront pay for itself over a typical region"; the
// table contents are always computed in plain Go, never SIMD.
func detectAccel() (name string, wide bool) {
	switch {
	case cpuid.CPU.Supports(cpuid.AVX2):
		return "generic-go/wide", true
	case cpuid.CPU.Supports(cpuid.SSE2):
		return "generic-go/wide", true
	default:
		return "generic-go/narrow", false
	}
}

// Width returns w.
func (f *Field) Width() uint { return f.w }

// Accel reports the region-op dispatch path chosen at construction. For
// w in {4,8} it names which of two loop shapes regionOp actually runs;
// for w in {16,32} it's diagnostic only, since those widths have a
// single loop shape regardless of accel.
func (f *Field) Accel() string { return f.accel }

// Multiply returns a*b in GF(2^w). Multiplying by zero always yields
// zero without consulting the tables.
func (f *Field) Multiply(a, b uint32) uint32 {
	if a == 0 || b == 0 {
		return 0
	}
	if f.logT != nil {
		return f.expT[f.logT[a]+f.logT[b]]
	}
	return gfShiftMultiply(a, b, uint32(f.poly))
}

// Divide returns a/b in GF(2^w). b must be non-zero; division by zero
// is a programmer precondition violation, not an ingestion error (see
// spec §4.A: "invert(0) is undefined, callers never invoke it").
func (f *Field) Divide(a, b uint32) uint32 {
	if a == 0 {
		return 0
	}
	return f.Multiply(a, f.Invert(b))
}

// Invert returns the multiplicative inverse of x. x must be non-zero.
func (f *Field) Invert(x uint32) uint32 {
	if f.logT != nil {
		return f.expT[(f.size-1)-uint64(f.logT[x])]
	}
	// Fermat's little theorem over GF(2^32): x^(2^32-2).
	return gfShiftPow(x, uint32(f.size-2), uint32(f.poly))
}

// RegionMultiply writes dst[i] = c*src[i] element-wise, where each
// element is w bits wide (two elements per byte when w=4, one byte per
// element when w=8, big-endian 2/4-byte words when w=16/32). dst and
// src must be the same length. Multiplying by the zero coefficient
// zeroes dst without touching src.
func (f *Field) RegionMultiply(src, dst []byte, c uint32) {
	f.regionOp(src, dst, c, false)
}

// RegionMultiplyAdd writes dst[i] ^= c*src[i] element-wise (see
// RegionMultiply for element layout).
func (f *Field) RegionMultiplyAdd(src, dst []byte, c uint32) {
	f.regionOp(src, dst, c, true)
}

// regionOp dispatches on f.w and, for w in {4,8}, on f.wide: the narrow
// path multiplies every element through the log/antilog tables, the
// wide path builds a small per-call lookup table for c once (16 entries
// for w=4, 256 for w=8) and then does straight table lookups over the
// region. Both compute the same result; wide only pays off once the
// table-build cost is amortized over the region, which is what accel
// approximates. w in {16,32} have no analogous table (65536 and 2^32
// entries respectively aren't worth building per call), so they only
// have one loop shape.
func (f *Field) regionOp(src, dst []byte, c uint32, add bool) {
	if len(src) != len(dst) {
		panic("netcode: src/dst length mismatch in region operation")
	}
	if c == 0 {
		if !add {
			clear(dst)
		}
		return
	}

	switch f.w {
	case 4:
		if f.wide {
			f.regionOp4Wide(src, dst, c, add)
		} else {
			f.regionOp4Narrow(src, dst, c, add)
		}
	case 8:
		if f.wide {
			f.regionOp8Wide(src, dst, c, add)
		} else {
			f.regionOp8Narrow(src, dst, c, add)
		}
	case 16:
		f.regionOp16(src, dst, c, add)
	case 32:
		f.regionOp32(src, dst, c, add)
	}
}

func (f *Field) regionOp4Narrow(src, dst []byte, c uint32, add bool) {
	for i, b := range src {
		lo := uint32(b & 0x0F)
		hi := uint32(b >> 4)
		rl := byte(f.Multiply(lo, c) & 0x0F)
		rh := byte(f.Multiply(hi, c) & 0x0F)
		if add {
			dst[i] ^= (rh << 4) | rl
		} else {
			dst[i] = (rh << 4) | rl
		}
	}
}

func (f *Field) regionOp4Wide(src, dst []byte, c uint32, add bool) {
	var table [16]byte
	for v := range table {
		table[v] = byte(f.Multiply(uint32(v), c) & 0x0F)
	}
	for i, b := range src {
		r := (table[b>>4] << 4) | table[b&0x0F]
		if add {
			dst[i] ^= r
		} else {
			dst[i] = r
		}
	}
}

func (f *Field) regionOp8Narrow(src, dst []byte, c uint32, add bool) {
	for i, b := range src {
		r := byte(f.Multiply(uint32(b), c))
		if add {
			dst[i] ^= r
		} else {
			dst[i] = r
		}
	}
}

func (f *Field) regionOp8Wide(src, dst []byte, c uint32, add bool) {
	var table [256]byte
	for v := range table {
		table[v] = byte(f.Multiply(uint32(v), c))
	}
	for i, b := range src {
		r := table[b]
		if add {
			dst[i] ^= r
		} else {
			dst[i] = r
		}
	}
}

func (f *Field) regionOp16(src, dst []byte, c uint32, add bool) {
	for i := 0; i+1 < len(src); i += 2 {
		v := uint32(src[i])<<8 | uint32(src[i+1])
		r := f.Multiply(v, c)
		if add {
			dst[i] ^= byte(r >> 8)
			dst[i+1] ^= byte(r)
		} else {
			dst[i] = byte(r >> 8)
			dst[i+1] = byte(r)
		}
	}
}

func (f *Field) regionOp32(src, dst []byte, c uint32, add bool) {
	for i := 0; i+3 < len(src); i += 4 {
		v := uint32(src[i])<<24 | uint32(src[i+1])<<16 | uint32(src[i+2])<<8 | uint32(src[i+3])
		r := f.Multiply(v, c)
		if add {
			dst[i] ^= byte(r >> 24)
			dst[i+1] ^= byte(r >> 16)
			dst[i+2] ^= byte(r >> 8)
			dst[i+3] ^= byte(r)
		} else {
			dst[i] = byte(r >> 24)
			dst[i+1] = byte(r >> 16)
			dst[i+2] = byte(r >> 8)
			dst[i+3] = byte(r)
		}
	}
}

// MultiplySize combines (or, via the inverse coefficient, undoes) a
// source's 16-bit user_size into a repair's encoded_size. It always
// operates in GF(2^16), independent of the codec's own field width w:
// the wire size of a size contribution is fixed at 16 bits, so pinning
// it to a dedicated table avoids the lossy truncation that treating it
// as a w-bit element would require when w < 16 or w > 16.
func (f *Field) MultiplySize(size uint16, c uint32) uint16 {
	return uint16(size16.Multiply(uint32(size), uint32(uint16(c))))
}

// invertSize returns the GF(2^16) inverse of the low 16 bits of c. A
// size contribution combined with MultiplySize(size, c) must be undone
// with MultiplySize(encodedSize, invertSize(c)) — never with 1/c
// computed in the codec's own GF(2^w) (d.gf.Invert(c)), since that
// inverse lives in the wrong field whenever w != 16 (GF(8)'s and
// GF(16)'s reduction polynomials differ, so their inverses of the same
// value generally differ too).
func invertSize(c uint32) uint32 {
	return size16.Invert(uint32(uint16(c)))
}

// gfShiftMultiply multiplies two GF(2^32) elements by carry-less
// multiply-and-reduce (the standard LFSR-style algorithm), used only
// when no log table exists (w=32).
func gfShiftMultiply(a, b, poly uint32) uint32 {
	var result uint32
	for b != 0 {
		if b&1 != 0 {
			result ^= a
		}
		hiBitSet := a & 0x80000000
		a <<= 1
		if hiBitSet != 0 {
			a ^= poly
		}
		b >>= 1
	}
	return result
}

// gfShiftPow computes x^n in GF(2^32) via square-and-multiply, used by
// Invert for w=32.
func gfShiftPow(x, n, poly uint32) uint32 {
	result := uint32(1)
	base := x
	for n != 0 {
		if n&1 != 0 {
			result = gfShiftMultiply(result, base, poly)
		}
		base = gfShiftMultiply(base, base, poly)
		n >>= 1
	}
	return result
}
