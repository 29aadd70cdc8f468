package decomp

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/linalg"
	"github.com/born-ml/tnet/internal/prodstats"
	"github.com/born-ml/tnet/internal/tensor"
)

// Direction selects which factor of a density-matrix decomposition is made
// orthogonal.
type Direction int

// Directions.
const (
	// FromLeft makes the left factor orthogonal and moves the norm right.
	FromLeft Direction = iota
	// FromRight makes the right factor orthogonal and moves the norm left.
	FromRight
	// NoDirection is treated as FromLeft.
	NoDirection
)

func (d Direction) String() string {
	switch d {
	case FromLeft:
		return "FromLeft"
	case FromRight:
		return "FromRight"
	default:
		return "None"
	}
}

// DenmatDecomp factors aa into A·B by diagonalizing the density matrix of
// the side being orthogonalized. A carries the indices in left, B the rest;
// the factor on side dir is orthogonal and the other one carries the norm.
// NoDirection is handled exactly like FromLeft.
func (w *Worker) DenmatDecomp(b int, aa *tensor.Tensor, left []index.Index, dir Direction) (a, bb *tensor.Tensor, err error) {
	if err := w.bond(b); err != nil {
		return nil, nil, err
	}
	if aa.IsNull() {
		return nil, nil, tensor.ErrNullTensor
	}
	if dir == NoDirection {
		dir = FromLeft
	}
	lInds, rInds, err := partition(aa, left)
	if err != nil {
		return nil, nil, err
	}
	comb := lInds
	if dir == FromRight {
		comb = rInds
	}

	aac, c, err := groupAs(aa, comb, "mid")
	if err != nil {
		return nil, nil, err
	}
	conj, err := tensor.Conj(aac)
	if err != nil {
		return nil, nil, err
	}
	rho, err := aac.Contract(conj.PrimedIndex(c, 1))
	if err != nil {
		return nil, nil, err
	}
	if rho.IsComplex() {
		if rho, err = tensor.RealPart(rho); err != nil {
			return nil, nil, err
		}
	}

	f, err := diagHermitian(b, rho, w.opts.effective())
	if err != nil {
		return nil, nil, err
	}
	w.record(b, f.Eigs, f.TruncErr)

	cu, err := tensor.Conj(f.U)
	if err != nil {
		return nil, nil, err
	}
	toOrth, err := cu.UngroupIndex(c, comb)
	if err != nil {
		return nil, nil, err
	}
	newOC, err := f.U.Contract(aac)
	if err != nil {
		return nil, nil, err
	}
	if dir == FromLeft {
		return toOrth, newOC, nil
	}
	return newOC, toOrth, nil
}

// DiagHermitian diagonalizes a Hermitian tensor m whose indices come in
// pairs (i, i') as m = U·D·U†, keeping every eigenvalue. D runs over
// (k', k) for the new index k carried by U.
func (w *Worker) DiagHermitian(b int, m *tensor.Tensor) (*Factorization, error) {
	if err := w.bond(b); err != nil {
		return nil, err
	}
	if m.IsNull() {
		return nil, tensor.ErrNullTensor
	}
	var unprimed, primed []index.Index
	for _, i := range m.Indices().Indices() {
		if i.Type() == index.ReIm || i.PrimeLevel() != 0 {
			continue
		}
		if !m.HasIndex(i.Primed(1)) {
			return nil, errors.Wrapf(ErrPartition, "%s has no primed partner", i)
		}
		unprimed = append(unprimed, i)
		primed = append(primed, i.Primed(1))
	}
	if len(unprimed) == 0 || 2*len(unprimed) != m.R()-boolInt(m.IsComplex()) {
		return nil, errors.Wrapf(ErrPartition, "indices %s do not pair up", m.Indices())
	}

	mc, d, err := groupAs(m, unprimed, "d")
	if err != nil {
		return nil, err
	}
	if mc, err = mc.GroupIndices(primed, d.Primed(1)); err != nil {
		return nil, err
	}

	opts := w.opts
	opts.Truncate = false
	f, err := diagHermitian(b, mc, opts)
	if err != nil {
		return nil, err
	}
	if f.U, err = f.U.UngroupIndex(d, unprimed); err != nil {
		return nil, err
	}
	w.record(b, f.Eigs, f.TruncErr)
	return f, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// diagHermitian diagonalizes rho over (i, i'), possibly complex, and
// truncates its eigenvalues. U runs over (i, k) and D over (k', k), where
// k takes i's name and type.
func diagHermitian(b int, rho *tensor.Tensor, opts Options) (*Factorization, error) {
	var active index.Index
	for _, i := range rho.Indices().Indices() {
		if i.PrimeLevel() == 0 && i.Type() != index.ReIm {
			active = i
			break
		}
	}
	if active.IsNull() {
		return nil, errors.Wrapf(ErrNotMatrix, "no unprimed index in %s", rho.Indices())
	}
	if !opts.RelativeCutoff {
		rho = rho.Clone()
		if err := rho.ScaleTo(opts.RefNorm); err != nil {
			return nil, err
		}
	}
	sc := rho.Scale()

	cm, err := matrixOf(rho, active.Primed(1), active, sc)
	if err != nil {
		return nil, err
	}
	vals, vecs, err := linalg.EigenHermitian(cm)
	if err != nil {
		return nil, err
	}

	m, truncErr := len(vals), 0.0
	if opts.Truncate {
		m, truncErr = opts.truncate(vals)
	}
	showEigs(opts, "diag_hermitian", b, m, truncErr, -1, vals[:m], sc)

	newmid := index.New(active.RawName(), m, active.Type())
	U, err := factor(active, newmid, vecs, false)
	if err != nil {
		return nil, err
	}
	D, err := tensor.NewDiag(newmid.Primed(1), newmid, vals[:m])
	if err != nil {
		return nil, err
	}
	D.MulScale(sc)

	prodstats.Decomposition(prodstats.KindHermitian, m)
	return &Factorization{U: U, D: D, TruncErr: truncErr, Eigs: append([]float64(nil), vals[:m]...)}, nil
}
