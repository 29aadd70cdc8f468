package tensor

import (
	"sync/atomic"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/parallel"
	"github.com/born-ml/tnet/internal/prodstats"
)

// matrixThreshold is the multiply-add count above which a contraction is
// always routed through the matrix multiply, paying for any reshapes.
const matrixThreshold = 1000

var parallelCfg atomic.Pointer[parallel.Config]

func init() {
	cfg := parallel.DefaultConfig()
	parallelCfg.Store(&cfg)
}

// SetParallelConfig sets how element loops of products are split across
// goroutines.
func SetParallelConfig(cfg parallel.Config) {
	parallelCfg.Store(&cfg)
}

func parallelConfig() parallel.Config {
	return *parallelCfg.Load()
}

// productProps describes how the non-trivial indices of two operands pair
// up. Matched pairs are numbered in the order of the left operand; pl and pr
// move the matched indices to the front in that order, keeping the others
// in order behind them.
type productProps struct {
	contractedL, contractedR [index.MaxRank]bool
	nsame                    int
	cdim, odimL, odimR       int
	lcstart, rcstart         int
	pl, pr                   index.Permutation
	matchL, matchR           [index.MaxRank]int // position of the n-th match
}

func newProductProps(l, r index.IndexSet) productProps {
	p := productProps{
		pl:      index.NewPermutation(),
		pr:      index.NewPermutation(),
		cdim:    1,
		lcstart: index.MaxRank,
		rcstart: index.MaxRank,
	}
	for j := range l.RN() {
		for k := range r.RN() {
			if !l.At(j).Equal(r.At(k)) {
				continue
			}
			p.contractedL[j], p.contractedR[k] = true, true
			p.pl.FromTo(j, p.nsame)
			p.pr.FromTo(k, p.nsame)
			p.matchL[p.nsame], p.matchR[p.nsame] = j, k
			p.nsame++
			p.cdim *= l.At(j).M()
			p.lcstart = min(p.lcstart, j)
			p.rcstart = min(p.rcstart, k)
		}
	}
	q := p.nsame
	for j := range l.RN() {
		if !p.contractedL[j] {
			p.pl.FromTo(j, q)
			q++
		}
	}
	q = p.nsame
	for k := range r.RN() {
		if !p.contractedR[k] {
			p.pr.FromTo(k, q)
			q++
		}
	}
	p.odimL = l.Dim() / p.cdim
	p.odimR = r.Dim() / p.cdim
	return p
}

// matrixShaped reports whether the contracted indices of one operand
// already form a single block at the front or back of its layout, in match
// order, so the buffer can be viewed as a matrix without reshaping.
func (p productProps) matrixShaped(contracted [index.MaxRank]bool, start, rn int, perm index.Permutation) bool {
	if p.nsame == 0 {
		return true
	}
	if !contracted[0] && !contracted[rn-1] {
		return false
	}
	for n := range p.nsame {
		if start+n >= rn || !contracted[start+n] || perm.Dest(start+n) != n {
			return false
		}
	}
	return true
}

// leftMatrix views L as a cdim x odimL matrix.
func (p productProps) leftMatrix(data []float64, front bool) mat.Matrix {
	if front {
		return mat.NewDense(p.odimL, p.cdim, data).T()
	}
	return mat.NewDense(p.cdim, p.odimL, data)
}

// rightMatrix views R as an odimR x cdim matrix.
func (p productProps) rightMatrix(data []float64, front bool) mat.Matrix {
	if front {
		return mat.NewDense(p.odimR, p.cdim, data)
	}
	return mat.NewDense(p.cdim, p.odimR, data).T()
}

// isComplexPair reports whether a product of t and o must go through the
// complex multiplication table.
func isComplexPair(t, o *Tensor) bool {
	reim := index.ReImIndex()
	if !t.is.Contains(reim) || !o.is.Contains(reim) {
		return false
	}
	for _, x := range []*Tensor{t, o} {
		if x.is.Contains(index.ReImP()) || x.is.Contains(index.ReImPP()) {
			return false
		}
	}
	return true
}

// trivialUnion returns the trivial indices of l and r, skipping those both
// carry when drop is set and listing them once otherwise.
func trivialUnion(l, r index.IndexSet, drop bool) []index.Index {
	var out []index.Index
	for _, i := range l.Trivial() {
		if drop && r.Contains(i) {
			continue
		}
		out = append(out, i)
	}
	for _, i := range r.Trivial() {
		if !l.Contains(i) {
			out = append(out, i)
		}
	}
	return out
}

// Contract returns the product of t and o summed over every index they
// share. Non-shared indices of t come first in the result, then those of o.
func (t *Tensor) Contract(o *Tensor) (*Tensor, error) {
	if t.IsNull() || o.IsNull() {
		return nil, ErrNullTensor
	}
	if isComplexPair(t, o) {
		prodstats.Product(prodstats.PathComplex)
		cr, err := complexProd().Contract(o.PrimedType(index.ReIm, 2))
		if err != nil {
			return nil, err
		}
		return t.PrimedType(index.ReIm, 1).Contract(cr)
	}

	trivial := trivialUnion(t.is, o.is, true)
	if o.RN() == 0 {
		return foldScalar(t, o, trivial)
	}
	if t.RN() == 0 {
		return foldScalar(o, t, trivial)
	}

	props := newProductProps(t.is, o.is)
	rank := t.RN() + o.RN() - 2*props.nsame + len(trivial)
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
	inds = append(inds, trivial...)
	is, err := index.NewIndexSet(inds...)
	if err != nil {
		return nil, err
	}

	lMat := props.matrixShaped(props.contractedL, props.lcstart, t.RN(), props.pl)
	rMat := props.matrixShaped(props.contractedR, props.rcstart, o.RN(), props.pr)

	var out []float64
	if props.odimL*props.cdim*props.odimR > matrixThreshold || (lMat && rMat) {
		prodstats.Product(prodstats.PathMatrix)
		out = matrixMultiply(t, o, props, lMat, rMat)
	} else {
		prodstats.Product(prodstats.PathDirect)
		out = directMultiply(t, o, props)
	}

	res := newTensor(is, storageOf(out), t.scale.Mul(o.scale))
	res.ScaleOutNorm()
	return res, nil
}

// foldScalar multiplies t by a tensor s with no non-trivial index. The
// result shares t's buffer.
func foldScalar(t, s *Tensor, trivial []index.Index) (*Tensor, error) {
	prodstats.Product(prodstats.PathScalar)
	is, err := index.NewIndexSet(append(t.is.NonTrivial(), trivial...)...)
	if err != nil {
		return nil, err
	}
	sc := t.scale.Mul(s.scale).MulReal(s.data()[0])
	return sharedTensor(is, t.storage(), sc), nil
}

// matrixMultiply computes the contraction as (odimR x cdim) * (cdim x odimL),
// whose row-major result is the output buffer with L's outer indices
// fastest.
func matrixMultiply(l, r *Tensor, p productProps, lMat, rMat bool) []float64 {
	ldat, lfront := l.data(), p.contractedL[0]
	if !lMat {
		ldat, lfront = permuteData(ldat, l.is.Dims(), p.pl), true
	}
	rdat, rfront := r.data(), p.contractedR[0]
	if !rMat {
		rdat, rfront = permuteData(rdat, r.is.Dims(), p.pr), true
	}
	var res mat.Dense
	res.Mul(p.rightMatrix(rdat, rfront), p.leftMatrix(ldat, lfront))
	raw := res.RawMatrix()
	if raw.Stride == raw.Cols {
		return raw.Data[:raw.Rows*raw.Cols]
	}
	out := make([]float64, 0, raw.Rows*raw.Cols)
	for row := range raw.Rows {
		out = append(out, raw.Data[row*raw.Stride:row*raw.Stride+raw.Cols]...)
	}
	return out
}

// directMultiply sums the products element by element using precomputed
// offsets, without reshaping either buffer.
func directMultiply(l, r *Tensor, p productProps) []float64 {
	ls, rs := l.is.Strides(), r.is.Strides()

	cdims := make([]int, p.nsame)
	for n := range p.nsame {
		cdims[n] = l.is.At(p.matchL[n]).M()
	}
	coffL := make([]int, p.cdim)
	coffR := make([]int, p.cdim)
	for c := index.NewCounter(cdims); !c.Done(); c.Next() {
		for n, v := range c.I {
			coffL[c.Ind] += v * ls[p.matchL[n]]
			coffR[c.Ind] += v * rs[p.matchR[n]]
		}
	}
	ooffL := outerOffsets(l.is, p.contractedL, ls)
	ooffR := outerOffsets(r.is, p.contractedR, rs)

	ldat, rdat := l.data(), r.data()
	out := make([]float64, p.odimL*p.odimR)
	parallel.ForRange(len(out), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			lb := ooffL[i%p.odimL]
			rb := ooffR[i/p.odimL]
			var sum float64
			for c := range coffL {
				sum += ldat[lb+coffL[c]] * rdat[rb+coffR[c]]
			}
			out[i] = sum
		}
	}, parallelConfig())
	return out
}

// outerOffsets lists the buffer offsets of every coordinate of the
// uncontracted indices, first uncontracted index fastest.
func outerOffsets(is index.IndexSet, contracted [index.MaxRank]bool, strides []int) []int {
	var dims, st []int
	for j := range is.RN() {
		if !contracted[j] {
			dims = append(dims, is.At(j).M())
			st = append(st, strides[j])
		}
	}
	n := 1
	for _, d := range dims {
		n *= d
	}
	offs := make([]int, n)
	for c := index.NewCounter(dims); !c.Done(); c.Next() {
		for k, v := range c.I {
			offs[c.Ind] += v * st[k]
		}
	}
	return offs
}

// Dot returns the full contraction of x and y as a number. Both must carry
// the same indices.
func Dot(x, y *Tensor) (float64, error) {
	p, err := x.Contract(y)
	if err != nil {
		return 0, err
	}
	return p.ToReal()
}

// BraKet returns <x|y>, conjugating x first.
func BraKet(x, y *Tensor) (complex128, error) {
	cx, err := Conj(x)
	if err != nil {
		return 0, err
	}
	p, err := cx.Contract(y)
	if err != nil {
		return 0, err
	}
	return p.ToComplex()
}
