package tensor

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/tnet/internal/index"
)

// ToMatrixNoScale returns the buffer of a tensor over rows and cols (plus
// trivial indices) as a rows.M() x cols.M() matrix, without the scale.
func (t *Tensor) ToMatrixNoScale(rows, cols index.Index) (*mat.Dense, error) {
	if t.IsNull() {
		return nil, ErrNullTensor
	}
	pr, pc := t.is.Find(rows), t.is.Find(cols)
	if pr < 0 {
		return nil, wrapIndex(rows, "matrix rows: not an index of %s", t.is)
	}
	if pc < 0 {
		return nil, wrapIndex(cols, "matrix cols: not an index of %s", t.is)
	}
	if pr == pc {
		return nil, wrapIndex(rows, "matrix rows and cols coincide")
	}
	for j := range t.RN() {
		if j != pr && j != pc {
			return nil, wrapIndex(t.is.At(j), "matrix: extra non-trivial index")
		}
	}
	strides := t.is.Strides()
	sr, sc := 0, 0
	if pr < t.RN() {
		sr = strides[pr]
	}
	if pc < t.RN() {
		sc = strides[pc]
	}
	d := t.data()
	m := mat.NewDense(rows.M(), cols.M(), nil)
	for r := range rows.M() {
		for c := range cols.M() {
			m.Set(r, c, d[r*sr+c*sc])
		}
	}
	return m, nil
}

// ToMatrix is like ToMatrixNoScale with the scale applied.
func (t *Tensor) ToMatrix(rows, cols index.Index) (*mat.Dense, error) {
	m, err := t.ToMatrixNoScale(rows, cols)
	if err != nil {
		return nil, err
	}
	f, err := t.scaleFactor("to matrix")
	if err != nil {
		return nil, err
	}
	m.Scale(f, m)
	return m, nil
}

// FromMatrixColumns builds a tensor over (rows, cols) from the first
// cols.M() columns of m.
func FromMatrixColumns(rows, cols index.Index, m mat.Matrix) (*Tensor, error) {
	r, c := m.Dims()
	if r != rows.M() || c < cols.M() {
		return nil, wrapDims(r, c, rows, cols)
	}
	return fromMatrixFunc(rows, cols, m.At)
}

// FromMatrixRows builds a tensor over (rows, cols) from the first rows.M()
// rows of m.
func FromMatrixRows(rows, cols index.Index, m mat.Matrix) (*Tensor, error) {
	r, c := m.Dims()
	if r < rows.M() || c != cols.M() {
		return nil, wrapDims(r, c, rows, cols)
	}
	return fromMatrixFunc(rows, cols, m.At)
}
