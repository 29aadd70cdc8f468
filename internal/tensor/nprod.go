package tensor

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/parallel"
	"github.com/born-ml/tnet/internal/prodstats"
)

// NonContract returns the product of t and o in which shared indices are
// merged instead of summed: the result at a coordinate is the product of
// the two operands at that coordinate. Non-shared indices of t come first,
// then those of o, then the shared ones.
func (t *Tensor) NonContract(o *Tensor) (*Tensor, error) {
	if t.IsNull() || o.IsNull() {
		return nil, ErrNullTensor
	}
	if isComplexPair(t, o) {
		prodstats.Product(prodstats.PathComplex)
		p, err := t.PrimedType(index.ReIm, 1).NonContract(o.PrimedType(index.ReIm, 2))
		if err != nil {
			return nil, err
		}
		return p.Contract(complexProd())
	}

	trivial := trivialUnion(t.is, o.is, false)
	if o.RN() == 0 {
		return foldScalar(t, o, trivial)
	}
	if t.RN() == 0 {
		return foldScalar(o, t, trivial)
	}

	props := newProductProps(t.is, o.is)
	rank := t.RN() + o.RN() - props.nsame + len(trivial)
	if rank > index.MaxRank {
		return nil, errors.Wrapf(ErrTooManyIndices, "product of %s and %s has rank %d", t.is, o.is, rank)
	}
	inds := make([]index.Index, 0, rank)
	for j := range t.RN() {
		if !props.contractedL[j] {
			inds = append(inds, t.is.At(j))
		}
	}
	for k := range o.RN() {
		if !props.contractedR[k] {
			inds = append(inds, o.is.At(k))
		}
	}
	for n := range props.nsame {
		inds = append(inds, t.is.At(props.matchL[n]))
	}
	inds = append(inds, trivial...)
	is, err := index.NewIndexSet(inds...)
	if err != nil {
		return nil, err
	}

	prodstats.Product(prodstats.PathOuter)
	// Both buffers with the shared indices in front, in match order.
	ldat := t.data()
	if !props.pl.IsTrivial() {
		ldat = permuteData(ldat, t.is.Dims(), props.pl)
	}
	rdat := o.data()
	if !props.pr.IsTrivial() {
		rdat = permuteData(rdat, o.is.Dims(), props.pr)
	}

	ni, nk, nj := props.odimL, props.odimR, props.cdim
	out := make([]float64, ni*nk*nj)
	parallel.ForRange(nj*nk, func(lo, hi int) {
		for jk := lo; jk < hi; jk++ {
			j, k := jk/nk, jk%nk
			rv := rdat[j+nj*k]
			base := jk * ni
			for i := range ni {
				out[base+i] = ldat[j+nj*i] * rv
			}
		}
	}, parallelConfig())

	res := newTensor(is, storageOf(out), t.scale.Mul(o.scale))
	res.ScaleOutNorm()
	return res, nil
}
