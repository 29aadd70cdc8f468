package tensor

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tnet/internal/index"
)

// GroupIndices replaces inds by the single index grouped, whose dimension
// must be the product of theirs. Within grouped the first listed index
// varies fastest.
func (t *Tensor) GroupIndices(inds []index.Index, grouped index.Index) (*Tensor, error) {
	if t.IsNull() {
		return nil, ErrNullTensor
	}
	rn := t.RN()
	var (
		replaced [index.MaxRank]bool
		slot     [index.MaxRank]int
	)
	nn, totM := 0, 1
	for _, i := range inds {
		j := t.is.Find(i)
		if j < 0 {
			return nil, wrapIndex(i, "group: not an index of %s", t.is)
		}
		if replaced[j] {
			return nil, wrapIndex(i, "group: listed twice")
		}
		replaced[j] = true
		totM *= i.M()
		if j < rn {
			slot[j] = nn
			nn++
		}
	}
	if totM != grouped.M() {
		return nil, errors.Wrapf(ErrDimMismatch, "group: %s has dimension %d, indices give %d", grouped, grouped.M(), totM)
	}

	inds2 := make([]index.Index, 0, t.R())
	for j := range t.R() {
		if !replaced[j] && j < rn {
			inds2 = append(inds2, t.is.At(j))
		}
	}
	inds2 = append(inds2, grouped)
	for j := rn; j < t.R(); j++ {
		if !replaced[j] {
			inds2 = append(inds2, t.is.At(j))
		}
	}
	is, err := index.NewIndexSet(inds2...)
	if err != nil {
		return nil, err
	}
	if nn == 0 {
		return t.withIndices(is), nil
	}

	p := index.NewPermutation()
	kept := 0
	for j := range rn {
		if replaced[j] {
			p.FromTo(j, rn-nn+slot[j])
		} else {
			p.FromTo(j, kept)
			kept++
		}
	}
	return newTensor(is, t.permutedStorage(p), t.scale), nil
}

// UngroupIndex replaces grouped by parts, undoing GroupIndices. The product
// of the part dimensions must equal grouped's; the buffer is shared.
func (t *Tensor) UngroupIndex(grouped index.Index, parts []index.Index) (*Tensor, error) {
	if t.IsNull() {
		return nil, ErrNullTensor
	}
	n := t.is.Find(grouped)
	if n < 0 {
		return nil, wrapIndex(grouped, "ungroup: not an index of %s", t.is)
	}
	totM := 1
	for _, i := range parts {
		totM *= i.M()
	}
	if totM != grouped.M() {
		return nil, errors.Wrapf(ErrDimMismatch, "ungroup: %s has dimension %d, parts give %d", grouped, grouped.M(), totM)
	}
	all := t.is.Indices()
	inds := make([]index.Index, 0, len(all)-1+len(parts))
	inds = append(inds, all[:n]...)
	inds = append(inds, parts...)
	inds = append(inds, all[n+1:]...)
	is, err := index.NewIndexSet(inds...)
	if err != nil {
		return nil, err
	}
	return t.withIndices(is), nil
}

// TieIndices replaces inds, which must share one dimension, by tied and
// keeps only their diagonal: the result at tied=k is t at inds all = k.
// tied becomes the first index of the result.
func (t *Tensor) TieIndices(inds []index.Index, tied index.Index) (*Tensor, error) {
	if t.IsNull() {
		return nil, ErrNullTensor
	}
	tm := tied.M()
	var isTied [index.MaxRank]bool
	for _, i := range inds {
		j := t.is.Find(i)
		if j < 0 {
			return nil, wrapIndex(i, "tie: not an index of %s", t.is)
		}
		if i.M() != tm {
			return nil, errors.Wrapf(ErrDimMismatch, "tie: %s has dimension %d, want %d", i, i.M(), tm)
		}
		isTied[j] = true
	}
	if len(inds) == 0 {
		return nil, wrapIndex(tied, "tie: no indices given")
	}

	inds2 := []index.Index{tied}
	for j := range t.R() {
		if !isTied[j] {
			inds2 = append(inds2, t.is.At(j))
		}
	}
	is, err := index.NewIndexSet(inds2...)
	if err != nil {
		return nil, err
	}
	if tm == 1 {
		return t.withIndices(is), nil
	}

	strides := t.is.Strides()
	tiedStride := 0
	var step [index.MaxRank]int
	pos := 1
	for j := range t.RN() {
		if isTied[j] {
			tiedStride += strides[j]
			continue
		}
		step[pos] = strides[j]
		pos++
	}
	step[0] = tiedStride

	src := t.data()
	dst := make([]float64, is.Dim())
	for c := index.NewCounter(is.Dims()); !c.Done(); c.Next() {
		off := 0
		for k, v := range c.I {
			off += v * step[k]
		}
		dst[c.Ind] = src[off]
	}
	return newTensor(is, storageOf(dst), t.scale), nil
}

// Trace sums over the diagonal of inds, which must share one dimension, and
// removes them.
func (t *Tensor) Trace(inds ...index.Index) (*Tensor, error) {
	if t.IsNull() {
		return nil, ErrNullTensor
	}
	if len(inds) == 0 {
		return nil, wrapIndex(index.Index{}, "trace: no indices given")
	}
	tm := inds[0].M()
	var traced [index.MaxRank]bool
	for _, i := range inds {
		j := t.is.Find(i)
		if j < 0 {
			return nil, wrapIndex(i, "trace: not an index of %s", t.is)
		}
		if i.M() != tm {
			return nil, errors.Wrapf(ErrDimMismatch, "trace: %s has dimension %d, want %d", i, i.M(), tm)
		}
		traced[j] = true
	}

	var rest []index.Index
	for j := range t.R() {
		if !traced[j] {
			rest = append(rest, t.is.At(j))
		}
	}
	is, err := index.NewIndexSet(rest...)
	if err != nil {
		return nil, err
	}
	if tm == 1 {
		return t.withIndices(is), nil
	}

	strides := t.is.Strides()
	diag := 0
	var step [index.MaxRank]int
	pos := 0
	for j := range t.RN() {
		if traced[j] {
			diag += strides[j]
			continue
		}
		step[pos] = strides[j]
		pos++
	}

	src := t.data()
	dst := make([]float64, is.Dim())
	for c := index.NewCounter(is.Dims()); !c.Done(); c.Next() {
		off := 0
		for k, v := range c.I {
			off += v * step[k]
		}
		var sum float64
		for d := range tm {
			sum += src[off+d*diag]
		}
		dst[c.Ind] = sum
	}
	return newTensor(is, storageOf(dst), t.scale), nil
}

// TraceAll traces over every index, which must all share one dimension, and
// returns the resulting number.
func (t *Tensor) TraceAll() (float64, error) {
	if t.IsNull() {
		return 0, ErrNullTensor
	}
	if t.RN() == 0 {
		return t.ToReal()
	}
	tr, err := t.Trace(t.is.NonTrivial()...)
	if err != nil {
		return 0, err
	}
	return tr.ToReal()
}

// ExpandIndex embeds t into a larger space by replacing small with big: the
// data lands at offsets [start, start+small.M()) along big and the rest is
// zero.
func (t *Tensor) ExpandIndex(small, big index.Index, start int) (*Tensor, error) {
	if t.IsNull() {
		return nil, ErrNullTensor
	}
	if !t.is.Contains(small) {
		return nil, wrapIndex(small, "expand: not an index of %s", t.is)
	}
	if start < 0 || start+small.M() > big.M() {
		return nil, errors.Wrapf(ErrDimMismatch, "expand: %s at offset %d does not fit in %s", small, start, big)
	}
	is, err := t.is.Replace(small, big)
	if err != nil {
		return nil, err
	}

	nstrides := is.Strides()
	inc := 0
	if w := is.Find(big); w < is.RN() {
		inc = start * nstrides[w]
	}
	var step [index.MaxRank]int
	for j := range t.RN() {
		i := t.is.At(j)
		if i.Equal(small) {
			i = big
		}
		step[j] = nstrides[is.Find(i)]
	}

	src := t.data()
	dst := make([]float64, is.Dim())
	for c := index.NewCounter(t.is.Dims()); !c.Done(); c.Next() {
		off := inc
		for j, v := range c.I {
			off += v * step[j]
		}
		dst[off] = src[c.Ind]
	}
	return newTensor(is, storageOf(dst), t.scale), nil
}
