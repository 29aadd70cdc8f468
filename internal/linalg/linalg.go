// Package linalg wraps the gonum factorizations used by the decompositions:
// thin SVD and symmetric eigendecomposition, plus their complex versions
// built on the real embedding
//
//	[ A  -B ]
//	[ B   A ]
//
// of A + iB.
package linalg

import (
	"math"
	"slices"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Errors returned by the factorizations.
var (
	ErrNoConvergence = errors.New("linalg: factorization did not converge")
	ErrShape         = errors.New("linalg: invalid shape")
)

const (
	opSVD     = "svd"
	opEigen   = "eigen"
	opComplex = "complex"
)

// ComplexMatrix is a complex matrix held as its real and imaginary parts,
// which must have the same shape. A nil Im means a real matrix.
type ComplexMatrix struct {
	Re, Im *mat.Dense
}

// Dims returns the shape of the matrix.
func (c ComplexMatrix) Dims() (r, cols int) { return c.Re.Dims() }

// SVD computes the thin singular value decomposition a = U diag(s) Vᵀ.
// Singular values are returned in decreasing order; U is r x k and V is
// c x k with k = min(r, c).
func SVD(a mat.Matrix) (u *mat.Dense, s []float64, v *mat.Dense, err error) {
	r, c := a.Dims()
	if r == 0 || c == 0 {
		return nil, nil, nil, errors.Wrapf(ErrShape, "%s: %dx%d", opSVD, r, c)
	}
	var f mat.SVD
	if !f.Factorize(a, mat.SVDThin) {
		return nil, nil, nil, errors.Wrap(ErrNoConvergence, opSVD)
	}
	u, v = new(mat.Dense), new(mat.Dense)
	f.UTo(u)
	f.VTo(v)
	return u, f.Values(nil), v, nil
}

// EigenSym computes the eigendecomposition of a symmetric matrix. The
// eigenvalues are returned in decreasing order with the matching
// eigenvectors as the columns of vecs.
func EigenSym(a mat.Symmetric) (vals []float64, vecs *mat.Dense, err error) {
	n := a.SymmetricDim()
	if n == 0 {
		return nil, nil, errors.Wrapf(ErrShape, "%s: empty matrix", opEigen)
	}
	var f mat.EigenSym
	if !f.Factorize(a, true) {
		return nil, nil, errors.Wrap(ErrNoConvergence, opEigen)
	}
	asc := f.Values(nil)
	var ev mat.Dense
	f.VectorsTo(&ev)

	vals = make([]float64, n)
	vecs = mat.NewDense(n, n, nil)
	for k := range n {
		vals[k] = asc[n-1-k]
		vecs.SetCol(k, mat.Col(nil, n-1-k, &ev))
	}
	return vals, vecs, nil
}

// Symmetrize returns (a + aᵀ)/2 for a square a.
func Symmetrize(a mat.Matrix) (*mat.SymDense, error) {
	r, c := a.Dims()
	if r != c {
		return nil, errors.Wrapf(ErrShape, "%s: %dx%d is not square", opEigen, r, c)
	}
	s := mat.NewSymDense(r, nil)
	for i := range r {
		for j := i; j < r; j++ {
			s.SetSym(i, j, (a.At(i, j)+a.At(j, i))/2)
		}
	}
	return s, nil
}

// ComplexSVD computes the thin SVD a = U diag(s) Vᴴ of a complex matrix.
func ComplexSVD(a ComplexMatrix) (u ComplexMatrix, s []float64, v ComplexMatrix, err error) {
	if a.Im == nil {
		ur, sv, vr, err := SVD(a.Re)
		return ComplexMatrix{Re: ur}, sv, ComplexMatrix{Re: vr}, err
	}
	r, c := a.Dims()
	if ir, ic := a.Im.Dims(); ir != r || ic != c {
		return u, nil, v, errors.Wrapf(ErrShape, "%s: parts %dx%d and %dx%d", opComplex, r, c, ir, ic)
	}
	eu, es, ev, err := SVD(embed(a))
	if err != nil {
		return u, nil, v, errors.Wrap(err, opComplex)
	}
	k := min(r, c)
	pick := selectComplex(eu, r, es, k, ev, c)
	s = make([]float64, len(pick))
	u = ComplexMatrix{Re: mat.NewDense(r, len(pick), nil), Im: mat.NewDense(r, len(pick), nil)}
	v = ComplexMatrix{Re: mat.NewDense(c, len(pick), nil), Im: mat.NewDense(c, len(pick), nil)}
	for n, p := range pick {
		s[n] = es[p.col]
		p.left.store(u, n)
		p.right.store(v, n)
	}
	return u, s, v, nil
}

// EigenHermitian computes the eigendecomposition of a Hermitian matrix
// with eigenvalues in decreasing order.
func EigenHermitian(a ComplexMatrix) (vals []float64, vecs ComplexMatrix, err error) {
	if a.Im == nil {
		sym, err := Symmetrize(a.Re)
		if err != nil {
			return nil, vecs, err
		}
		vals, vr, err := EigenSym(sym)
		return vals, ComplexMatrix{Re: vr}, err
	}
	n, c := a.Dims()
	if n != c {
		return nil, vecs, errors.Wrapf(ErrShape, "%s: %dx%d is not square", opComplex, n, c)
	}
	sym, err := Symmetrize(embed(a))
	if err != nil {
		return nil, vecs, err
	}
	ev, evecs, err := EigenSym(sym)
	if err != nil {
		return nil, vecs, errors.Wrap(err, opComplex)
	}
	pick := selectComplex(evecs, n, ev, n, nil, 0)
	vals = make([]float64, len(pick))
	vecs = ComplexMatrix{Re: mat.NewDense(n, len(pick), nil), Im: mat.NewDense(n, len(pick), nil)}
	for k, p := range pick {
		vals[k] = ev[p.col]
		p.left.store(vecs, k)
	}
	return vals, vecs, nil
}

// embed builds the real 2r x 2c matrix representing a.
func embed(a ComplexMatrix) *mat.Dense {
	r, c := a.Dims()
	e := mat.NewDense(2*r, 2*c, nil)
	for i := range r {
		for j := range c {
			re, im := a.Re.At(i, j), a.Im.At(i, j)
			e.Set(i, j, re)
			e.Set(i+r, j+c, re)
			e.Set(i, j+c, -im)
			e.Set(i+r, j, im)
		}
	}
	return e
}

// cvec is a complex column vector.
type cvec []complex128

func column(m *mat.Dense, col, n int) cvec {
	v := make(cvec, n)
	for i := range n {
		v[i] = complex(m.At(i, col), m.At(i+n, col))
	}
	return v
}

// dot returns xᴴy.
func (x cvec) dot(y cvec) complex128 {
	var s complex128
	for i := range x {
		s += complex(real(x[i]), -imag(x[i])) * y[i]
	}
	return s
}

func (x cvec) norm() float64 {
	var s float64
	for _, z := range x {
		s += real(z)*real(z) + imag(z)*imag(z)
	}
	return math.Sqrt(s)
}

func (x cvec) axpy(a complex128, y cvec) {
	for i := range x {
		x[i] += a * y[i]
	}
}

func (x cvec) scale(f float64) {
	for i := range x {
		x[i] *= complex(f, 0)
	}
}

func (x cvec) store(m ComplexMatrix, col int) {
	for i, z := range x {
		m.Re.Set(i, col, real(z))
		m.Im.Set(i, col, imag(z))
	}
}

// picked is a complex singular (or eigen) vector recovered from column col
// of the embedded factorization.
type picked struct {
	col         int
	left, right cvec
}

// selectComplex recovers want complex vectors from the real vectors of the
// embedded factorization. Every complex vector w appears there twice, as w
// and iw, so the columns are taken greedily in order of decreasing value
// and orthogonalized (in the complex inner product) against those already
// taken; a column that is mostly spanned by them is skipped. The same
// combination is applied to the right vectors, if any, which preserves
// A v = s u within a degenerate subspace.
func selectComplex(left *mat.Dense, nl int, vals []float64, want int, right *mat.Dense, nr int) []picked {
	taken := make([]picked, 0, want)
	used := make([]bool, len(vals))
	for _, threshold := range []float64{0.5, 1e-10} {
		for col := range vals {
			if len(taken) == want {
				break
			}
			if used[col] {
				continue
			}
			p := picked{col: col, left: column(left, col, nl)}
			if right != nil {
				p.right = column(right, col, nr)
			}
			for _, q := range taken {
				c := q.left.dot(p.left)
				p.left.axpy(-c, q.left)
				if right != nil {
					p.right.axpy(-c, q.right)
				}
			}
			nrm := p.left.norm()
			if nrm*nrm <= threshold {
				continue
			}
			p.left.scale(1 / nrm)
			if right != nil {
				if rn := p.right.norm(); rn > 0 {
					p.right.scale(1 / rn)
				}
			}
			used[col] = true
			taken = append(taken, p)
		}
	}
	// The second pass may take columns out of order.
	sort.SliceStable(taken, func(i, j int) bool { return vals[taken[i].col] > vals[taken[j].col] })
	return slices.Clip(taken)
}
