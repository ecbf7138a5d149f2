package netcode

import "testing"

func TestFieldMultiplyIdentity(t *testing.T) {
	for _, w := range []uint{4, 8, 16, 32} {
		gf, err := NewField(w)
		if err != nil {
			t.Fatalf("NewField(%d): %v", w, err)
		}
		if got := gf.Multiply(0x7, 0); got != 0 {
			t.Fatalf("w=%d: multiply by zero = %d, want 0", w, got)
		}
		if got := gf.Multiply(0, 0x7); got != 0 {
			t.Fatalf("w=%d: zero times x = %d, want 0", w, got)
		}
	}
}

func TestFieldInvertRoundTrip(t *testing.T) {
	for _, w := range []uint{4, 8, 16, 32} {
		gf, err := NewField(w)
		if err != nil {
			t.Fatalf("NewField(%d): %v", w, err)
		}
		for _, x := range []uint32{1, 2, 3, 0x7F} {
			mask := uint32(1)<<w - 1
			v := x & mask
			if v == 0 {
				continue
			}
			inv := gf.Invert(v)
			if got := gf.Multiply(v, inv); got != 1 {
				t.Fatalf("w=%d: %d * invert(%d) = %d, want 1", w, v, v, got)
			}
		}
	}
}

func TestFieldDivideUndoesMultiply(t *testing.T) {
	gf, err := NewField(8)
	if err != nil {
		t.Fatalf("NewField(8): %v", err)
	}
	a, b := uint32(200), uint32(37)
	product := gf.Multiply(a, b)
	if got := gf.Divide(product, b); got != a {
		t.Fatalf("divide(multiply(a,b),b) = %d, want %d", got, a)
	}
}

func TestRegionMultiplyAddIsSelfInverse(t *testing.T) {
	gf, err := NewField(8)
	if err != nil {
		t.Fatalf("NewField(8): %v", err)
	}
	src := NewBuffer(16)
	copy(src.Bytes(), []byte("0123456789ABCDEF"))
	dst := NewZeroBuffer(16)

	c := uint32(0x53)
	gf.RegionMultiplyAdd(src.Bytes(), dst.Bytes(), c)
	gf.RegionMultiplyAdd(src.Bytes(), dst.Bytes(), c)

	for i, b := range dst.Bytes() {
		if b != 0 {
			t.Fatalf("byte %d = %d after two multiply-adds with the same coefficient, want 0", i, b)
		}
	}
}

func TestMultiplySizeRoundTrip(t *testing.T) {
	gf, err := NewField(8)
	if err != nil {
		t.Fatalf("NewField(8): %v", err)
	}
	c := Coefficient(3, 9, 8)
	size := uint16(1234)
	encoded := gf.MultiplySize(size, c)

	inv := size16.Invert(uint32(uint16(c)))
	if got := gf.MultiplySize(encoded, inv); got != size {
		t.Fatalf("multiply_size round trip = %d, want %d", got, size)
	}
}

func TestNewFieldRejectsUnsupportedWidth(t *testing.T) {
	if _, err := NewField(12); err == nil {
		t.Fatalf("NewField(12) expected an error")
	}
}
