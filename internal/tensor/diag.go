package tensor

import (
	"math"
	"slices"

	"github.com/pkg/errors"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/parallel"
	"github.com/born-ml/tnet/internal/scale"
)

// Diag is a rank-2 diagonal tensor stored as its diagonal only. It is the
// middle factor returned by decompositions.
type Diag struct {
	i1, i2 index.Index
	d      []float64
	scale  scale.Scale
}

// NewDiag creates a diagonal tensor over (i1, i2) holding d. Both indices
// must have dimension len(d).
func NewDiag(i1, i2 index.Index, d []float64) (*Diag, error) {
	if i1.M() != len(d) || i2.M() != len(d) {
		return nil, errors.Wrapf(ErrDimMismatch, "diag of length %d over %s,%s", len(d), i1, i2)
	}
	if i1.Equal(i2) {
		return nil, wrapIndex(i1, "diag indices coincide")
	}
	return &Diag{i1: i1, i2: i2, d: slices.Clone(d), scale: scale.One()}, nil
}

// Index1 returns the first index.
func (g *Diag) Index1() index.Index { return g.i1 }

// Index2 returns the second index.
func (g *Diag) Index2() index.Index { return g.i2 }

// Len returns the diagonal length.
func (g *Diag) Len() int { return len(g.d) }

// Scale returns the scale applied to the stored diagonal.
func (g *Diag) Scale() scale.Scale { return g.scale }

// MulScale multiplies g by s in place.
func (g *Diag) MulScale(s scale.Scale) {
	g.scale = g.scale.Mul(s)
}

// Values returns the diagonal with the scale applied.
func (g *Diag) Values() ([]float64, error) {
	f, err := g.scale.Real0()
	if err != nil {
		return nil, err
	}
	out := slices.Clone(g.d)
	for n := range out {
		out[n] *= f
	}
	return out, nil
}

// Dense returns g as a dense tensor.
func (g *Diag) Dense() (*Tensor, error) {
	t, err := New(g.i1, g.i2)
	if err != nil {
		return nil, err
	}
	d := t.data()
	stride := 1
	if g.i1.M() > 1 {
		stride += g.i1.M()
	}
	for n, v := range g.d {
		d[n*stride] = v
	}
	t.scale = g.scale
	return t, nil
}

// PseudoInverted returns the diagonal of reciprocals, with entries whose
// magnitude is at most cutoff set to zero.
func (g *Diag) PseudoInverted(cutoff float64) (*Diag, error) {
	vals, err := g.Values()
	if err != nil {
		return nil, err
	}
	for n, v := range vals {
		if math.Abs(v) <= cutoff {
			vals[n] = 0
		} else {
			vals[n] = 1 / v
		}
	}
	return &Diag{i1: g.i1, i2: g.i2, d: vals, scale: scale.One()}, nil
}

// Contract returns g * t summed over their shared indices. When t holds
// exactly one of g's indices the diagonal is applied in place of a full
// product.
func (g *Diag) Contract(t *Tensor) (*Tensor, error) {
	if t.IsNull() {
		return nil, ErrNullTensor
	}
	has1, has2 := t.HasIndex(g.i1), t.HasIndex(g.i2)
	if has1 == has2 {
		dense, err := g.Dense()
		if err != nil {
			return nil, err
		}
		return dense.Contract(t)
	}
	shared, other := g.i1, g.i2
	if has2 {
		shared, other = g.i2, g.i1
	}
	is, err := t.is.Replace(shared, other)
	if err != nil {
		return nil, err
	}

	src := t.data()
	out := make([]float64, len(src))
	if p := t.is.Find(shared); p < t.RN() {
		stride, m := t.is.Strides()[p], shared.M()
		parallel.ForRange(len(src), func(lo, hi int) {
			for k := lo; k < hi; k++ {
				out[k] = src[k] * g.d[(k/stride)%m]
			}
		}, parallelConfig())
	} else {
		for k, v := range src {
			out[k] = v * g.d[0]
		}
	}
	res := newTensor(is, storageOf(out), t.scale.Mul(g.scale))
	res.ScaleOutNorm()
	return res, nil
}
