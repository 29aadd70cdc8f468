package tensor

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/logging"
	"github.com/born-ml/tnet/internal/scale"
)

// scaleFactor converts the scale to a float64 for op. A scale below the
// float64 range degrades to 0 with a warning.
func (t *Tensor) scaleFactor(op string) (float64, error) {
	f, err := t.scale.Real()
	if errors.Is(err, scale.ErrTooSmall) {
		logging.L().Warn("scale too small for float64, using zero",
			"op", op, "log_scale", t.scale.LogNum())
		return 0, nil
	}
	return f, errors.Wrap(err, op)
}

// At returns the element addressed by ivs.
func (t *Tensor) At(ivs ...index.IndexVal) (float64, error) {
	if t.IsNull() {
		return 0, ErrNullTensor
	}
	off, err := t.offsetOf(ivs)
	if err != nil {
		return 0, err
	}
	f, err := t.scaleFactor("at")
	if err != nil {
		return 0, err
	}
	return t.data()[off] * f, nil
}

// Set stores v at the element addressed by ivs. The buffer is detached from
// any other tensor first and the scale is folded into it.
func (t *Tensor) Set(v float64, ivs ...index.IndexVal) error {
	if t.IsNull() {
		return ErrNullTensor
	}
	off, err := t.offsetOf(ivs)
	if err != nil {
		return err
	}
	if err := t.ScaleTo(scale.One()); err != nil {
		return err
	}
	t.solo()
	t.data()[off] = v
	return nil
}

// ToReal returns the value of a tensor with no non-trivial index.
func (t *Tensor) ToReal() (float64, error) {
	if t.IsNull() {
		return 0, ErrNullTensor
	}
	if t.RN() != 0 {
		return 0, errors.Wrapf(ErrNotScalar, "%s", t.is)
	}
	f, err := t.scaleFactor("to real")
	if err != nil {
		return 0, err
	}
	return t.data()[0] * f, nil
}

// ToComplex returns the value of a scalar tensor, possibly carrying the
// ReIm index.
func (t *Tensor) ToComplex() (complex128, error) {
	if t.IsNull() {
		return 0, ErrNullTensor
	}
	switch {
	case t.RN() == 0:
		re, err := t.ToReal()
		return complex(re, 0), err
	case t.RN() == 1 && t.is.At(0).Equal(index.ReImIndex()):
		f, err := t.scaleFactor("to complex")
		if err != nil {
			return 0, err
		}
		d := t.data()
		return complex(d[0]*f, d[1]*f), nil
	default:
		return 0, errors.Wrapf(ErrNotScalar, "%s", t.is)
	}
}

// ToVec returns the scaled elements in buffer order.
func (t *Tensor) ToVec() ([]float64, error) {
	if t.IsNull() {
		return nil, ErrNullTensor
	}
	f, err := t.scaleFactor("to vec")
	if err != nil {
		return nil, err
	}
	out := slices.Clone(t.data())
	for n := range out {
		out[n] *= f
	}
	return out, nil
}

// RawData returns a copy of the buffer without the scale applied.
func (t *Tensor) RawData() []float64 {
	if t.IsNull() {
		return nil
	}
	return slices.Clone(t.data())
}

// AssignFromVec overwrites the elements with v, given in buffer order.
func (t *Tensor) AssignFromVec(v []float64) error {
	if t.IsNull() {
		return ErrNullTensor
	}
	if len(v) != t.Len() {
		return errors.Wrapf(ErrDimMismatch, "%d values for %d elements", len(v), t.Len())
	}
	t.attach(storageOf(slices.Clone(v)))
	t.scale = scale.One()
	return nil
}

// Assign overwrites the elements with vals listed in row-major order over
// order: the last index of order varies fastest.
//
//	t.Assign([]index.Index{i, j}, 11, 12, 21, 22) // t(i=0,j=1) == 12
func (t *Tensor) Assign(order []index.Index, vals ...float64) error {
	if t.IsNull() {
		return ErrNullTensor
	}
	rev := make([]index.Index, 0, len(order))
	for n := len(order) - 1; n >= 0; n-- {
		if order[n].M() > 1 {
			rev = append(rev, order[n])
		}
	}
	src, err := index.NewIndexSet(rev...)
	if err != nil {
		return err
	}
	p, err := index.GetPerm(src, t.is)
	if err != nil {
		return errors.Wrap(ErrIncompatibleIndices, err.Error())
	}
	if len(vals) != src.Dim() {
		return errors.Wrapf(ErrDimMismatch, "%d values for %d elements", len(vals), src.Dim())
	}
	t.attach(storageOf(permuteData(vals, src.Dims(), p)))
	t.scale = scale.One()
	return nil
}
