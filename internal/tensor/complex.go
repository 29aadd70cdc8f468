package tensor

import (
	"sync"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/scale"
)

// Complex tensors carry the ReIm index: component 0 is the real part and
// component 1 the imaginary part.

var (
	complexOneT = sync.OnceValue(func() *Tensor {
		return mustVector(index.ReImIndex(), 1, 0)
	})
	complexIT = sync.OnceValue(func() *Tensor {
		return mustVector(index.ReImIndex(), 0, 1)
	})
	conjT = sync.OnceValue(func() *Tensor {
		return mustVector(index.ReImP(), 1, -1)
	})
	// complexProdT(ReIm, ReImP, ReImPP) is the multiplication table
	// c = a*b with a on ReImP, b on ReImPP and c on ReIm.
	complexProdT = sync.OnceValue(func() *Tensor {
		t, err := New(index.ReImIndex(), index.ReImP(), index.ReImPP())
		if err != nil {
			panic(err)
		}
		d := t.data()
		d[0+2*0+4*0] = 1  // re = re*re
		d[0+2*1+4*1] = -1 // re -= im*im
		d[1+2*1+4*0] = 1  // im = im*re
		d[1+2*0+4*1] = 1  // im += re*im
		return t
	})
)

func mustVector(i index.Index, v ...float64) *Tensor {
	t, err := FromVector(i, v)
	if err != nil {
		panic(err)
	}
	return t
}

// ComplexOne returns the complex number 1 as a tensor over ReIm.
func ComplexOne() *Tensor { return complexOneT().Clone() }

// ComplexI returns the imaginary unit as a tensor over ReIm.
func ComplexI() *Tensor { return complexIT().Clone() }

// ConjTensor returns the conjugation weights (1, -1) over ReImP.
func ConjTensor() *Tensor { return conjT().Clone() }

// complexProd returns the complex multiplication table.
func complexProd() *Tensor { return complexProdT().Clone() }

// IsComplex reports whether t carries the ReIm index.
func (t *Tensor) IsComplex() bool {
	return !t.IsNull() && t.is.Contains(index.ReImIndex())
}

// MakeComplex combines re and im, which must carry the same indices, into
// re + i*im.
func MakeComplex(re, im *Tensor) (*Tensor, error) {
	r, err := re.Contract(ComplexOne())
	if err != nil {
		return nil, err
	}
	i, err := im.Contract(ComplexI())
	if err != nil {
		return nil, err
	}
	return r.Add(i)
}

// RealPart returns the real part of t; a real tensor is returned as is.
func RealPart(t *Tensor) (*Tensor, error) {
	return component(t, 0)
}

// ImagPart returns the imaginary part of t; for a real tensor it is zero.
func ImagPart(t *Tensor) (*Tensor, error) {
	if t.IsNull() {
		return nil, ErrNullTensor
	}
	if !t.IsComplex() {
		out := t.Clone()
		out.scale = scale.Zero()
		return out, nil
	}
	return component(t, 1)
}

func component(t *Tensor, v int) (*Tensor, error) {
	if t.IsNull() {
		return nil, ErrNullTensor
	}
	if !t.IsComplex() {
		return t.Clone(), nil
	}
	sel, err := FromIndexVals(index.ReImP().Val(v))
	if err != nil {
		return nil, err
	}
	return t.PrimedType(index.ReIm, 1).Contract(sel)
}

// Conj returns the complex conjugate of t.
func Conj(t *Tensor) (*Tensor, error) {
	if t.IsNull() {
		return nil, ErrNullTensor
	}
	if !t.IsComplex() {
		return t.Clone(), nil
	}
	c, err := t.PrimedType(index.ReIm, 1).NonContract(ConjTensor())
	if err != nil {
		return nil, err
	}
	return c.MapPrime(1, 0, index.ReIm), nil
}
