package tensor

import (
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/scale"
)

// Add returns t + o. Both must carry the same indices, in any order; the
// result keeps t's order. A real operand added to a complex one is promoted
// first.
func (t *Tensor) Add(o *Tensor) (*Tensor, error) {
	if t.IsNull() || o.IsNull() {
		return nil, ErrNullTensor
	}
	if t.IsComplex() != o.IsComplex() {
		var err error
		if t.IsComplex() {
			o, err = o.Contract(ComplexOne())
		} else {
			t, err = t.Contract(ComplexOne())
		}
		if err != nil {
			return nil, err
		}
	}
	if !t.is.SameIndices(o.is) {
		return nil, errors.Wrapf(ErrIncompatibleIndices, "add %s and %s", t.is, o.is)
	}
	if t.scale.IsZero() {
		return o.Clone(), nil
	}
	if o.scale.Div(t.scale).IsRealZero() {
		return t.Clone(), nil
	}

	// Rescale the operand of smaller magnitude into the other's scale.
	var (
		dat []float64
		sc  scale.Scale
		fac float64
		err error
	)
	if t.scale.MagnitudeLessThan(o.scale) {
		f, err := t.scale.Div(o.scale).Real0()
		if err != nil {
			return nil, err
		}
		dat = slices.Clone(t.data())
		floats.Scale(f, dat)
		sc, fac = o.scale, 1
	} else {
		dat = slices.Clone(t.data())
		sc = t.scale
		if fac, err = o.scale.Div(t.scale).Real(); err != nil {
			return nil, err
		}
	}

	odat := o.data()
	if sameLayout(t.is, o.is) {
		floats.AddScaled(dat, fac, odat)
	} else {
		p, err := index.GetPerm(o.is, t.is)
		if err != nil {
			return nil, errors.Wrap(ErrIncompatibleIndices, err.Error())
		}
		ts := t.is.Strides()
		var step [index.MaxRank]int
		for j := range o.RN() {
			step[j] = ts[p.Dest(j)]
		}
		for c := index.NewCounter(o.is.Dims()); !c.Done(); c.Next() {
			off := 0
			for j, v := range c.I {
				off += v * step[j]
			}
			dat[off] += fac * odat[c.Ind]
		}
	}
	return newTensor(t.is, storageOf(dat), sc), nil
}

// Sub returns t - o.
func (t *Tensor) Sub(o *Tensor) (*Tensor, error) {
	if o.IsNull() {
		return nil, ErrNullTensor
	}
	return t.Add(o.Neg())
}

// sameLayout reports whether a and b order their non-trivial indices alike.
func sameLayout(a, b index.IndexSet) bool {
	if a.RN() != b.RN() {
		return false
	}
	for n := range a.RN() {
		if !a.At(n).Equal(b.At(n)) {
			return false
		}
	}
	return true
}
