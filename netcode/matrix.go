package netcode

// SquareMatrix is a column-major n x n matrix of Galois field elements.
// It backs the multi-source reconstruction path (spec §4.C): encoded
// as coefficient(repair, source) entries, it is inverted via
// Gauss-Jordan elimination to recover every missing source at once.
type SquareMatrix struct {
	n    int
	data []uint32 // column-major: data[col*n+row]
}

// NewSquareMatrix allocates an n x n matrix, all entries zero.
func NewSquareMatrix(n int) *SquareMatrix {
	return &SquareMatrix{n: n, data: make([]uint32, n*n)}
}

// Size returns n.
func (m *SquareMatrix) Size() int { return m.n }

// At returns the entry at (row, col).
func (m *SquareMatrix) At(row, col int) uint32 { return m.data[col*m.n+row] }

// Set assigns the entry at (row, col).
func (m *SquareMatrix) Set(row, col int, v uint32) { m.data[col*m.n+row] = v }

// Resize changes the matrix to n x n, discarding all prior entries
// (reconstruction always rebuilds the matrix from scratch, so there is
// no content worth preserving across a resize).
func (m *SquareMatrix) Resize(n int) {
	if n*n <= cap(m.data) {
		m.data = m.data[:n*n]
	} else {
		m.data = make([]uint32, n*n)
	}
	for i := range m.data {
		m.data[i] = 0
	}
	m.n = n
}

// InvertFailed is returned by Invert when the matrix is singular. It
// names the column whose pivot could not be found, so the caller can
// drop exactly the repair responsible for the column and retry
// reconstruction with one fewer repair (spec §4.C/§9).
type InvertFailed struct {
	Column int
}

func (e *InvertFailed) Error() string {
	return "netcode: singular matrix, faulty column"
}

// Invert computes out = M^-1 over gf using Gauss-Jordan elimination
// with partial pivoting (row swap on a zero pivot). out must already be
// sized n x n; its prior contents are overwritten. On success it
// returns nil; on a singular matrix it returns *InvertFailed naming the
// offending column and leaves out in an unspecified state.
func Invert(gf *Field, m, out *SquareMatrix) error {
	n := m.Size()
	if out.Size() != n {
		out.Resize(n)
	}

	// work is a mutable copy of m; out starts as the identity.
	work := NewSquareMatrix(n)
	copy(work.data, m.data)
	for i := range out.data {
		out.data[i] = 0
	}
	for i := 0; i < n; i++ {
		out.Set(i, i, 1)
	}

	for i := 0; i < n; i++ {
		if work.At(i, i) == 0 {
			swapped := false
			for r := i + 1; r < n; r++ {
				if work.At(r, i) != 0 {
					swapRows(work, i, r)
					swapRows(out, i, r)
					swapped = true
					break
				}
			}
			if !swapped {
				return &InvertFailed{Column: i}
			}
		}

		inv := gf.Invert(work.At(i, i))
		scaleRow(gf, work, i, inv)
		scaleRow(gf, out, i, inv)

		for r := 0; r < n; r++ {
			if r == i {
				continue
			}
			factor := work.At(r, i)
			if factor == 0 {
				continue
			}
			addScaledRow(gf, work, r, i, factor)
			addScaledRow(gf, out, r, i, factor)
		}
	}
	return nil
}

func swapRows(m *SquareMatrix, a, b int) {
	for c := 0; c < m.n; c++ {
		m.data[c*m.n+a], m.data[c*m.n+b] = m.data[c*m.n+b], m.data[c*m.n+a]
	}
}

func scaleRow(gf *Field, m *SquareMatrix, row int, factor uint32) {
	for c := 0; c < m.n; c++ {
		idx := c*m.n + row
		m.data[idx] = gf.Multiply(m.data[idx], factor)
	}
}

// addScaledRow does row 'dst' ^= factor * row 'src' (GF subtraction is
// XOR).
func addScaledRow(gf *Field, m *SquareMatrix, dst, src int, factor uint32) {
	for c := 0; c < m.n; c++ {
		m.data[c*m.n+dst] ^= gf.Multiply(m.data[c*m.n+src], factor)
	}
}
