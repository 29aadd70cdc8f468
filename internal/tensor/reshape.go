package tensor

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/prodstats"
)

// permuteData returns a new buffer holding src, laid out over dims, with
// axis j moved to axis p.Dest(j). The element at source coordinate
// (i_0, ..., i_{r-1}) lands at the destination coordinate whose component
// p.Dest(j) is i_j.
func permuteData(src []float64, dims []int, p index.Permutation) []float64 {
	r := len(dims)
	if p.IsTrivial() {
		prodstats.Reshape(prodstats.KernelIdentity)
		return slices.Clone(src)
	}
	dst := make([]float64, len(src))
	if k, ok := lookupKernel(r, p); ok {
		k(dst, src, dims, p)
		return dst
	}
	prodstats.Reshape(prodstats.KernelGeneric)
	genericPermute(dst, src, dims, p)
	return dst
}

// genericPermute walks the source with a counter; O(n*rank).
func genericPermute(dst, src []float64, dims []int, p index.Permutation) {
	r := len(dims)
	var ndims [index.MaxRank]int
	for j := range r {
		ndims[p.Dest(j)] = dims[j]
	}
	var dstride [index.MaxRank]int
	acc := 1
	for k := range r {
		dstride[k] = acc
		acc *= ndims[k]
	}
	var step [index.MaxRank]int
	for j := range r {
		step[j] = dstride[p.Dest(j)]
	}
	for c := index.NewCounter(dims); !c.Done(); c.Next() {
		off := 0
		for j, v := range c.I {
			off += v * step[j]
		}
		dst[off] = src[c.Ind]
	}
}

// permutedStorage returns t's buffer permuted by p over its non-trivial
// indices. The identity permutation returns the shared buffer itself with
// an extra reference.
func (t *Tensor) permutedStorage(p index.Permutation) *storage {
	if p.IsTrivial() {
		prodstats.Reshape(prodstats.KernelIdentity)
		st := t.storage()
		st.addRef()
		return st
	}
	return storageOf(permuteData(t.data(), t.is.Dims(), p))
}

// Permute returns t with its non-trivial indices reordered to follow order.
// Trivial indices in order are ignored. When the order is unchanged the
// result shares t's buffer.
func (t *Tensor) Permute(order ...index.Index) (*Tensor, error) {
	if t.IsNull() {
		return nil, ErrNullTensor
	}
	inds := make([]index.Index, 0, len(order)+t.R()-t.RN())
	for _, i := range order {
		if i.M() > 1 {
			inds = append(inds, i)
		}
	}
	inds = append(inds, t.is.Trivial()...)
	is, err := index.NewIndexSet(inds...)
	if err != nil {
		return nil, err
	}
	p, err := index.GetPerm(t.is, is)
	if err != nil {
		return nil, errors.Wrap(ErrIncompatibleIndices, err.Error())
	}
	return newTensor(is, t.permutedStorage(p), t.scale), nil
}
