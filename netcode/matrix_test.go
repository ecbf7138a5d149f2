package netcode

import "testing"

func TestInvertIdentity(t *testing.T) {
	gf, err := NewField(8)
	if err != nil {
		t.Fatalf("NewField(8): %v", err)
	}
	m := NewSquareMatrix(3)
	for i := 0; i < 3; i++ {
		m.Set(i, i, 1)
	}
	out := NewSquareMatrix(3)
	if err := Invert(gf, m, out); err != nil {
		t.Fatalf("Invert(identity) returned error: %v", err)
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			want := uint32(0)
			if r == c {
				want = 1
			}
			if got := out.At(r, c); got != want {
				t.Fatalf("out[%d][%d] = %d, want %d", r, c, got, want)
			}
		}
	}
}

func TestInvertRecoversSolution(t *testing.T) {
	gf, err := NewField(8)
	if err != nil {
		t.Fatalf("NewField(8): %v", err)
	}
	// M built from the coefficient schedule over two repairs and two sources.
	m := NewSquareMatrix(2)
	m.Set(0, 0, Coefficient(10, 1, 8))
	m.Set(0, 1, Coefficient(11, 1, 8))
	m.Set(1, 0, Coefficient(10, 2, 8))
	m.Set(1, 1, Coefficient(11, 2, 8))

	out := NewSquareMatrix(2)
	if err := Invert(gf, m, out); err != nil {
		t.Fatalf("Invert returned error: %v", err)
	}

	// M * out should be the identity.
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			var sum uint32
			for k := 0; k < 2; k++ {
				sum ^= gf.Multiply(m.At(r, k), out.At(k, c))
			}
			want := uint32(0)
			if r == c {
				want = 1
			}
			if sum != want {
				t.Fatalf("(M*out)[%d][%d] = %d, want %d", r, c, sum, want)
			}
		}
	}
}

func TestInvertSingularNamesFaultyColumn(t *testing.T) {
	gf, err := NewField(8)
	if err != nil {
		t.Fatalf("NewField(8): %v", err)
	}
	m := NewSquareMatrix(2)
	m.Set(0, 0, 1)
	m.Set(0, 1, 2)
	m.Set(1, 0, 0)
	m.Set(1, 1, 0) // row 1 is all zero: singular, no pivot for column 1

	out := NewSquareMatrix(2)
	err = Invert(gf, m, out)
	if err == nil {
		t.Fatalf("Invert(singular) expected an error")
	}
	fail, ok := err.(*InvertFailed)
	if !ok {
		t.Fatalf("Invert(singular) error type = %T, want *InvertFailed", err)
	}
	if fail.Column != 1 {
		t.Fatalf("InvertFailed.Column = %d, want 1", fail.Column)
	}
}
