package tensor

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/tnet/internal/scale"
)

// normTolerance is how close to 1 the buffer norm must be for ScaleOutNorm
// to leave the buffer alone.
const normTolerance = 1e-12

// Norm returns the Frobenius norm of t.
func (t *Tensor) Norm() (float64, error) {
	if t.IsNull() {
		return 0, ErrNullTensor
	}
	if t.scale.IsTooBigForReal() {
		return 0, errors.Wrapf(ErrTooBig, "norm with log scale %g", t.scale.LogNum())
	}
	f, _ := t.scale.Real0()
	return math.Abs(floats.Norm(t.data(), 2) * f), nil
}

// NormNoScale returns the Frobenius norm of the buffer alone.
func (t *Tensor) NormNoScale() float64 {
	if t.IsNull() {
		return 0
	}
	return floats.Norm(t.data(), 2)
}

// NormLog returns the norm as a Scale, which never overflows.
func (t *Tensor) NormLog() scale.Scale {
	if t.IsNull() {
		return scale.Zero()
	}
	return scale.FromReal(floats.Norm(t.data(), 2)).Mul(t.scale.Abs())
}

// ScaleOutNorm moves the buffer norm into the scale so the buffer has unit
// norm. A zero buffer makes the scale zero.
func (t *Tensor) ScaleOutNorm() {
	if t.IsNull() {
		return
	}
	f := floats.Norm(t.data(), 2)
	if math.Abs(f-1) < normTolerance {
		return
	}
	if f == 0 {
		t.scale = scale.Zero()
		return
	}
	t.solo()
	floats.Scale(1/f, t.data())
	t.scale = t.scale.MulReal(f)
}

// ScaleTo rewrites the buffer so that the scale equals target.
func (t *Tensor) ScaleTo(target scale.Scale) error {
	if t.IsNull() {
		return ErrNullTensor
	}
	if target.IsZero() {
		return ErrZeroScale
	}
	if t.scale.Equal(target) {
		return nil
	}
	f, err := t.scale.Div(target).Real0()
	if err != nil {
		return errors.Wrap(err, "scale to")
	}
	t.solo()
	floats.Scale(f, t.data())
	t.scale = target
	return nil
}

// Scaled returns t multiplied by x. The buffer is shared.
func (t *Tensor) Scaled(x float64) *Tensor {
	return t.ScaledBy(scale.FromReal(x))
}

// ScaledBy returns t multiplied by s. The buffer is shared.
func (t *Tensor) ScaledBy(s scale.Scale) *Tensor {
	out := t.Clone()
	out.scale = out.scale.Mul(s)
	return out
}

// Neg returns -t. The buffer is shared.
func (t *Tensor) Neg() *Tensor {
	out := t.Clone()
	out.scale = out.scale.Negate()
	return out
}

// SumEls returns the sum of all elements.
func (t *Tensor) SumEls() (float64, error) {
	if t.IsNull() {
		return 0, ErrNullTensor
	}
	f, err := t.scaleFactor("sum")
	if err != nil {
		return 0, err
	}
	return floats.Sum(t.data()) * f, nil
}

// MapElems replaces every element x by f(x).
func (t *Tensor) MapElems(f func(float64) float64) error {
	if err := t.ScaleTo(scale.One()); err != nil {
		return err
	}
	t.solo()
	d := t.data()
	for n, x := range d {
		d[n] = f(x)
	}
	return nil
}

// PseudoInvert replaces every element x by 1/x, or by 0 when |x| <= cutoff.
func (t *Tensor) PseudoInvert(cutoff float64) error {
	return t.MapElems(func(x float64) float64 {
		if math.Abs(x) <= cutoff {
			return 0
		}
		return 1 / x
	})
}

// Randomize fills the buffer with uniform values in [0, 1).
func (t *Tensor) Randomize(rng *rand.Rand) error {
	if t.IsNull() {
		return ErrNullTensor
	}
	t.solo()
	d := t.data()
	for n := range d {
		d[n] = rng.Float64()
	}
	t.scale = scale.One()
	return nil
}
