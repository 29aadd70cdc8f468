package decomp

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/linalg"
	"github.com/born-ml/tnet/internal/prodstats"
	"github.com/born-ml/tnet/internal/scale"
	"github.com/born-ml/tnet/internal/tensor"
)

// Factorization is a truncated decomposition A ≈ U·D·V. For Hermitian
// diagonalizations V is nil and M ≈ U·D·U†.
type Factorization struct {
	U *tensor.Tensor
	D *tensor.Diag
	V *tensor.Tensor
	// TruncErr is the discarded weight, relative to the largest weight
	// when RelativeCutoff is set.
	TruncErr float64
	// Eigs are the kept weights in decreasing order: squared singular
	// values for an SVD, eigenvalues for a diagonalization. They do not
	// include the scale of the input.
	Eigs []float64
}

// SVD factors a into U·D·V, with U carrying the indices in left and V the
// other indices of a. The new link indices are D.Index1() (shared with U)
// and D.Index2() (shared with V).
func (w *Worker) SVD(b int, a *tensor.Tensor, left []index.Index) (*Factorization, error) {
	if err := w.bond(b); err != nil {
		return nil, err
	}
	if a.IsNull() {
		return nil, tensor.ErrNullTensor
	}
	uInds, vInds, err := partition(a, left)
	if err != nil {
		return nil, err
	}
	a, ui, err := group(a, uInds, "u")
	if err != nil {
		return nil, err
	}
	a, vi, err := group(a, vInds, "v")
	if err != nil {
		return nil, err
	}

	f, err := w.svdRank2(b, a, ui, vi, w.opts.effective())
	if err != nil {
		return nil, err
	}
	if f.U, err = ungroup(f.U, ui, uInds); err != nil {
		return nil, err
	}
	if f.V, err = ungroup(f.V, vi, vInds); err != nil {
		return nil, err
	}
	w.record(b, f.Eigs, f.TruncErr)
	return f, nil
}

// svdRank2 factors a tensor over ui and vi (and possibly ReIm).
func (w *Worker) svdRank2(b int, a *tensor.Tensor, ui, vi index.Index, opts Options) (*Factorization, error) {
	cm, err := matrixOf(a, ui, vi, a.Scale())
	if err != nil {
		return nil, err
	}
	u, d, v, err := linalg.ComplexSVD(cm)
	if err != nil {
		return nil, err
	}

	m, truncErr := len(d), 0.0
	if opts.Truncate {
		sq := make([]float64, len(d))
		for n, x := range d {
			sq[n] = x * x
		}
		m, truncErr = opts.truncate(sq)
	}
	showEigs(opts, "svd", b, m, truncErr, -1, d[:m], a.Scale())

	uL := index.New("ul", m, index.Link)
	vL := index.New("vl", m, index.Link)
	D, err := tensor.NewDiag(uL, vL, d[:m])
	if err != nil {
		return nil, err
	}
	D.MulScale(a.Scale())
	U, err := factor(ui, uL, u, false)
	if err != nil {
		return nil, err
	}
	// A = U diag(s) Vᴴ, so V enters conjugated.
	V, err := factor(vi, vL, v, true)
	if err != nil {
		return nil, err
	}

	eigs := make([]float64, m)
	for n := range eigs {
		eigs[n] = d[n] * d[n]
	}
	prodstats.Decomposition(prodstats.KindSVD, m)
	return &Factorization{U: U, D: D, V: V, TruncErr: truncErr, Eigs: eigs}, nil
}

// CSVDResult is the factorization A ≈ L·V·R of CSVD, where V is the
// pseudo-inverse of the singular value matrix.
type CSVDResult struct {
	L        *tensor.Tensor
	V        *tensor.Diag
	R        *tensor.Tensor
	TruncErr float64
}

// CSVD computes an SVD and absorbs the singular values into both sides:
// L = U·D, R = D·V and V = D⁻¹.
func (w *Worker) CSVD(b int, a *tensor.Tensor, left []index.Index) (*CSVDResult, error) {
	f, err := w.SVD(b, a, left)
	if err != nil {
		return nil, err
	}
	l, err := f.D.Contract(f.U)
	if err != nil {
		return nil, err
	}
	r, err := f.D.Contract(f.V)
	if err != nil {
		return nil, err
	}
	inv, err := f.D.PseudoInverted(0)
	if err != nil {
		return nil, err
	}
	return &CSVDResult{L: l, V: inv, R: r, TruncErr: f.TruncErr}, nil
}

// partition splits the indices of a other than ReIm into those listed in
// left and the rest, both in a's order.
func partition(a *tensor.Tensor, left []index.Index) (u, v []index.Index, err error) {
	for _, i := range left {
		if !a.HasIndex(i) {
			return nil, nil, errors.Wrapf(ErrPartition, "%s is not an index of %s", i, a.Indices())
		}
	}
	for _, i := range a.Indices().Indices() {
		if i.Type() == index.ReIm {
			continue
		}
		if containsIndex(left, i) {
			u = append(u, i)
		} else {
			v = append(v, i)
		}
	}
	if len(u) == 0 || len(v) == 0 {
		return nil, nil, errors.Wrapf(ErrPartition, "%d left and %d right indices", len(u), len(v))
	}
	return u, v, nil
}

func containsIndex(inds []index.Index, i index.Index) bool {
	for _, j := range inds {
		if j.Equal(i) {
			return true
		}
	}
	return false
}

// group combines inds into one new Link index. A single index is used as
// it is.
func group(a *tensor.Tensor, inds []index.Index, name string) (*tensor.Tensor, index.Index, error) {
	if len(inds) == 1 {
		return a, inds[0], nil
	}
	return groupAs(a, inds, name)
}

// groupAs always combines inds into a new index called name.
func groupAs(a *tensor.Tensor, inds []index.Index, name string) (*tensor.Tensor, index.Index, error) {
	m := 1
	for _, i := range inds {
		m *= i.M()
	}
	g := index.New(name, m, index.Link)
	t, err := a.GroupIndices(inds, g)
	return t, g, err
}

// ungroup undoes group.
func ungroup(t *tensor.Tensor, g index.Index, inds []index.Index) (*tensor.Tensor, error) {
	if len(inds) == 1 && inds[0].Equal(g) {
		return t, nil
	}
	return t.UngroupIndex(g, inds)
}

// matrixOf returns the rows x cols matrix of a with the scale sc divided
// out; a complex tensor yields both parts.
func matrixOf(a *tensor.Tensor, rows, cols index.Index, sc scale.Scale) (linalg.ComplexMatrix, error) {
	if a.IsNull() {
		return linalg.ComplexMatrix{}, tensor.ErrNullTensor
	}
	want := 2
	if a.IsComplex() {
		want = 3
	}
	if a.RN() > want {
		return linalg.ComplexMatrix{}, errors.Wrapf(ErrNotMatrix, "%s", a.Indices())
	}
	if !a.IsComplex() {
		if !sc.Equal(a.Scale()) && !sc.IsZero() {
			a = a.Clone()
			if err := a.ScaleTo(sc); err != nil {
				return linalg.ComplexMatrix{}, err
			}
		}
		re, err := a.ToMatrixNoScale(rows, cols)
		return linalg.ComplexMatrix{Re: re}, err
	}
	if sc.IsZero() {
		sc = scale.One()
	}
	var parts [2]*mat.Dense
	for n, part := range []func(*tensor.Tensor) (*tensor.Tensor, error){tensor.RealPart, tensor.ImagPart} {
		p, err := part(a)
		if err != nil {
			return linalg.ComplexMatrix{}, err
		}
		if err := p.ScaleTo(sc); err != nil {
			return linalg.ComplexMatrix{}, err
		}
		if parts[n], err = p.ToMatrixNoScale(rows, cols); err != nil {
			return linalg.ComplexMatrix{}, err
		}
	}
	return linalg.ComplexMatrix{Re: parts[0], Im: parts[1]}, nil
}

// factor builds the tensor over (rows, link) from the first link.M()
// columns of m, conjugated if conj is set.
func factor(rows, link index.Index, m linalg.ComplexMatrix, conj bool) (*tensor.Tensor, error) {
	re, err := tensor.FromMatrixColumns(rows, link, m.Re)
	if err != nil || m.Im == nil {
		return re, err
	}
	im, err := tensor.FromMatrixColumns(rows, link, m.Im)
	if err != nil {
		return nil, err
	}
	if conj {
		im = im.Neg()
	}
	return tensor.MakeComplex(re, im)
}
