package tensor

import (
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/scale"
)

// New creates a zero tensor over inds.
func New(inds ...index.Index) (*Tensor, error) {
	is, err := index.NewIndexSet(inds...)
	if err != nil {
		return nil, err
	}
	return newTensor(is, newStorage(is.Dim()), scale.One()), nil
}

// Scalar creates a rank-0 tensor holding v.
func Scalar(v float64) *Tensor {
	return newTensor(index.IndexSet{}, storageOf([]float64{v}), scale.One())
}

// FromData creates a tensor over is holding a copy of data, laid out with
// the first non-trivial index fastest.
func FromData(is index.IndexSet, data []float64) (*Tensor, error) {
	if len(data) != is.Dim() {
		return nil, errors.Wrapf(ErrDimMismatch, "%d values for %s", len(data), is)
	}
	return newTensor(is, storageOf(slices.Clone(data)), scale.One()), nil
}

// FromVector creates a rank-1 tensor over i.
func FromVector(i index.Index, v []float64) (*Tensor, error) {
	is, err := index.NewIndexSet(i)
	if err != nil {
		return nil, err
	}
	return FromData(is, v)
}

// FromMatrix creates a rank-2 tensor with rows labeled by i1 and columns by
// i2.
func FromMatrix(i1, i2 index.Index, m mat.Matrix) (*Tensor, error) {
	r, c := m.Dims()
	if r != i1.M() || c != i2.M() {
		return nil, wrapDims(r, c, i1, i2)
	}
	return fromMatrixFunc(i1, i2, m.At)
}

// fromMatrixFunc fills a tensor over (rows, cols) from at(r, c).
func fromMatrixFunc(rows, cols index.Index, at func(r, c int) float64) (*Tensor, error) {
	t, err := New(rows, cols)
	if err != nil {
		return nil, err
	}
	rs, cs := 1, rows.M()
	if rows.M() == 1 {
		rs, cs = 0, 1
	}
	d := t.data()
	for r := range rows.M() {
		for c := range cols.M() {
			d[r*rs+c*cs] = at(r, c)
		}
	}
	return t, nil
}

// Diagonal creates a rank-2 tensor with a on the diagonal.
func Diagonal(i1, i2 index.Index, a float64) (*Tensor, error) {
	t, err := New(i1, i2)
	if err != nil {
		return nil, err
	}
	d := t.data()
	stride := 1
	if i1.M() > 1 {
		stride += i1.M()
	}
	for n := range min(i1.M(), i2.M()) {
		d[n*stride] = a
	}
	return t, nil
}

// FromIndexVals creates a tensor whose single nonzero element, equal to 1,
// sits at the coordinate given by ivs.
func FromIndexVals(ivs ...index.IndexVal) (*Tensor, error) {
	inds := make([]index.Index, len(ivs))
	for n, iv := range ivs {
		inds[n] = iv.Index
	}
	t, err := New(inds...)
	if err != nil {
		return nil, err
	}
	off, err := t.offsetOf(ivs)
	if err != nil {
		return nil, err
	}
	t.data()[off] = 1
	return t, nil
}
