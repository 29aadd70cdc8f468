package decomp

import (
	"context"
	"math"
	"runtime"
	"slices"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/linalg"
	"github.com/born-ml/tnet/internal/prodstats"
	"github.com/born-ml/tnet/internal/qtensor"
	"github.com/born-ml/tnet/internal/scale"
	"github.com/born-ml/tnet/internal/tensor"
)

// minRefLog is the floor of the reference scale in relative mode.
const minRefLog = -200

// BlockFactorization is a truncated decomposition of an IQTensor. For
// BlockSVD, A ≈ U·D·V with D over (L, R). For BlockDiagHermitian,
// ρ ≈ U·D·U† with D over (L', L) and R unset.
type BlockFactorization struct {
	U, D, V  *qtensor.IQTensor
	L, R     index.IQIndex
	TruncErr float64
	// Eigs are the kept weights of all blocks in decreasing order.
	Eigs []float64
}

// blockPiece is the dense factorization of one block.
type blockPiece struct {
	row, col index.Index
	qn       index.QN
	vals     []float64 // singular values or eigenvalues, decreasing
	weights  []float64 // vals squared for an SVD
	u, v     linalg.ComplexMatrix
	keep     int
}

// BlockSVD factors a, an IQTensor over uI and vI, block by block. The new
// IQIndex L, named "L", has one block per surviving block of a, tagged
// with that block's quantum number along uI; R does the same for vI.
func (w *Worker) BlockSVD(b int, a *qtensor.IQTensor, uI, vI index.IQIndex) (*BlockFactorization, error) {
	if err := w.bond(b); err != nil {
		return nil, err
	}
	if a == nil || a.R() != 2 {
		return nil, errors.Wrap(ErrNotMatrix, "block svd needs two iq indices")
	}
	switch {
	case a.Index(0).Equal(uI) && a.Index(1).Equal(vI):
	case a.Index(0).Equal(vI) && a.Index(1).Equal(uI):
	default:
		return nil, errors.Wrapf(ErrPartition, "%s and %s are not the indices of the tensor", uI.Index(), vI.Index())
	}
	if a.NBlocks() == 0 {
		return nil, errors.Wrap(ErrEmptyResult, "no blocks")
	}
	opts := w.opts.effective()
	aa, ref, err := prepareBlocks(a, opts)
	if err != nil {
		return nil, err
	}

	pieces := make([]blockPiece, aa.NBlocks())
	err = forBlocks(len(pieces), func(n int) error {
		t := aa.Block(n)
		bi, err := aa.BlockIndices(t)
		if err != nil {
			return err
		}
		row, col := bi[0], bi[1]
		if !uI.HasBlock(row) {
			row, col = col, row
		}
		cm, err := matrixOf(t, row, col, ref)
		if err != nil {
			return err
		}
		u, d, v, err := linalg.ComplexSVD(cm)
		if err != nil {
			return errors.Wrapf(err, "block %d", n)
		}
		sq := make([]float64, len(d))
		for k, x := range d {
			sq[k] = x * x
		}
		qn, _ := uI.QNOf(row)
		pieces[n] = blockPiece{row: row, col: col, qn: qn, vals: d, weights: sq, u: u, v: v}
		return nil
	})
	if err != nil {
		return nil, err
	}

	docut, truncErr, err := selectStates(pieces, opts)
	if err != nil {
		return nil, err
	}

	var lBlocks, rBlocks []index.IndexQN
	links := make([][2]index.Index, len(pieces))
	for n, p := range pieces {
		if p.keep == 0 {
			continue
		}
		l := index.New("l", p.keep, index.Link)
		r := index.New("r", p.keep, index.Link)
		vqn, _ := vI.QNOf(p.col)
		lBlocks = append(lBlocks, index.IndexQN{Index: l, QN: p.qn})
		rBlocks = append(rBlocks, index.IndexQN{Index: r, QN: vqn})
		links[n] = [2]index.Index{l, r}
	}
	L, err := index.NewIQIndex("L", index.Link, uI.Dir(), lBlocks...)
	if err != nil {
		return nil, err
	}
	R, err := index.NewIQIndex("R", index.Link, vI.Dir(), rBlocks...)
	if err != nil {
		return nil, err
	}
	U, err := qtensor.New(uI, L.Conj())
	if err != nil {
		return nil, err
	}
	D, err := qtensor.New(L, R)
	if err != nil {
		return nil, err
	}
	V, err := qtensor.New(R.Conj(), vI)
	if err != nil {
		return nil, err
	}
	for n, p := range pieces {
		if p.keep == 0 {
			continue
		}
		l, r := links[n][0], links[n][1]
		ut, err := factor(p.row, l, p.u, false)
		if err != nil {
			return nil, err
		}
		vt, err := factor(p.col, r, p.v, true)
		if err != nil {
			return nil, err
		}
		dt, err := diagBlock(l, r, p.vals[:p.keep], ref)
		if err != nil {
			return nil, err
		}
		if err := addBlocks([]*qtensor.IQTensor{U, D, V}, ut, dt, vt); err != nil {
			return nil, err
		}
	}

	eigs := keptWeights(pieces)
	showEigs(opts, "block_svd", b, L.M(), truncErr, docut, eigs, ref)
	prodstats.Decomposition(prodstats.KindBlockSVD, L.M())
	w.record(b, eigs, truncErr)
	return &BlockFactorization{U: U, D: D, V: V, L: L, R: R, TruncErr: truncErr, Eigs: eigs}, nil
}

// BlockDiagHermitian diagonalizes a Hermitian IQTensor rho over (i, i')
// block by block. The new IQIndex L, named "qlink", points against i and
// carries one block per surviving block of rho.
func (w *Worker) BlockDiagHermitian(b int, rho *qtensor.IQTensor) (*BlockFactorization, error) {
	if err := w.bond(b); err != nil {
		return nil, err
	}
	if rho == nil || rho.R() != 2 {
		return nil, errors.Wrap(ErrNotMatrix, "block diagonalization needs two iq indices")
	}
	active := rho.Index(0)
	if active.Index().PrimeLevel() != 0 {
		active = rho.Index(1)
	}
	if !rho.Index(0).Index().NoPrimeEqual(rho.Index(1).Index()) || active.Index().PrimeLevel() != 0 {
		return nil, errors.Wrapf(ErrPartition, "indices of %s are not a primed pair", rho)
	}
	if rho.NBlocks() == 0 {
		return nil, errors.Wrap(ErrEmptyResult, "no blocks")
	}
	opts := w.opts.effective()
	rr, ref, err := prepareBlocks(rho, opts)
	if err != nil {
		return nil, err
	}

	pieces := make([]blockPiece, rr.NBlocks())
	err = forBlocks(len(pieces), func(n int) error {
		t := rr.Block(n)
		var ab index.Index
		for _, i := range t.Indices().Indices() {
			if i.PrimeLevel() == 0 && i.Type() != index.ReIm {
				ab = i
				break
			}
		}
		if ab.IsNull() || !t.HasIndex(ab.Primed(1)) {
			return errors.Wrapf(ErrNotMatrix, "block %d is off the diagonal", n)
		}
		cm, err := matrixOf(t, ab.Primed(1), ab, ref)
		if err != nil {
			return err
		}
		vals, vecs, err := linalg.EigenHermitian(cm)
		if err != nil {
			return errors.Wrapf(err, "block %d", n)
		}
		qn, _ := active.QNOf(ab)
		pieces[n] = blockPiece{row: ab, qn: qn, vals: vals, weights: slices.Clone(vals), u: vecs}
		return nil
	})
	if err != nil {
		return nil, err
	}

	docut, truncErr, err := selectStates(pieces, opts)
	if err != nil {
		return nil, err
	}

	var blocks []index.IndexQN
	links := make([]index.Index, len(pieces))
	for n, p := range pieces {
		if p.keep == 0 {
			continue
		}
		links[n] = index.New("qlink", p.keep, index.Link)
		blocks = append(blocks, index.IndexQN{Index: links[n], QN: p.qn})
	}
	L, err := index.NewIQIndex("qlink", index.Link, active.Dir().Flip(), blocks...)
	if err != nil {
		return nil, err
	}
	U, err := qtensor.New(active.Conj(), L.Conj())
	if err != nil {
		return nil, err
	}
	D, err := qtensor.New(L.Primed(1), L.Conj())
	if err != nil {
		return nil, err
	}
	for n, p := range pieces {
		if p.keep == 0 {
			continue
		}
		k := links[n]
		ut, err := factor(p.row, k, p.u, false)
		if err != nil {
			return nil, err
		}
		dt, err := diagBlock(k.Primed(1), k, p.vals[:p.keep], ref)
		if err != nil {
			return nil, err
		}
		if err := addBlocks([]*qtensor.IQTensor{U, D}, ut, dt); err != nil {
			return nil, err
		}
	}

	eigs := keptWeights(pieces)
	showEigs(opts, "block_diag_hermitian", b, L.M(), truncErr, docut, eigs, ref)
	prodstats.Decomposition(prodstats.KindBlockHermitian, L.M())
	w.record(b, eigs, truncErr)
	return &BlockFactorization{U: U, D: D, L: L, TruncErr: truncErr, Eigs: eigs}, nil
}

// prepareBlocks returns a copy of q brought to a common scale. In relative
// mode that is the largest block norm; otherwise opts.RefNorm.
func prepareBlocks(q *qtensor.IQTensor, opts Options) (*qtensor.IQTensor, scale.Scale, error) {
	qq := q.Clone()
	ref := opts.RefNorm
	if opts.RelativeCutoff {
		qq.ScaleOutNorm()
		logMax := float64(minRefLog)
		for _, t := range qq.Blocks() {
			if !t.Scale().IsZero() {
				logMax = max(logMax, t.Scale().LogNum())
			}
		}
		ref = scale.New(logMax, 1)
	}
	if ref.IsZero() {
		ref = scale.One()
	}
	if err := qq.ScaleTo(ref); err != nil {
		return nil, scale.Scale{}, err
	}
	return qq, ref, nil
}

// forBlocks runs f for every block, at most GOMAXPROCS at a time, and
// returns the first error.
func forBlocks(n int, f func(n int) error) error {
	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k := range n {
		g.Go(func() error { return f(k) })
	}
	return g.Wait()
}

// selectStates pools the weights of every piece, picks the global cutoff
// and sets each piece's keep count to the number of weights above it.
func selectStates(pieces []blockPiece, opts Options) (docut, truncErr float64, err error) {
	var pooled []float64
	for _, p := range pieces {
		pooled = append(pooled, p.weights...)
	}
	if len(pooled) == 0 {
		return 0, 0, errors.Wrap(ErrEmptyResult, "all blocks are empty")
	}
	slices.Sort(pooled)

	docut = -1
	if opts.Truncate {
		_, docut, truncErr = opts.truncatePooled(pooled)
	}

	total, best := 0, -1
	for n := range pieces {
		p := &pieces[n]
		p.keep = 0
		for _, x := range p.weights {
			if x > docut {
				p.keep++
			}
		}
		total += p.keep
		if len(p.weights) > 0 && (best < 0 || p.weights[0] > pieces[best].weights[0]) {
			best = n
		}
	}
	if total == 0 {
		if best < 0 {
			return 0, 0, errors.Wrap(ErrEmptyResult, "no state survived")
		}
		pieces[best].keep = 1
		docut = math.Inf(1)
	}
	return docut, truncErr, nil
}

// diagBlock returns the dense diagonal block over (i1, i2) times sc.
func diagBlock(i1, i2 index.Index, d []float64, sc scale.Scale) (*tensor.Tensor, error) {
	g, err := tensor.NewDiag(i1, i2, d)
	if err != nil {
		return nil, err
	}
	g.MulScale(sc)
	return g.Dense()
}

func addBlocks(qs []*qtensor.IQTensor, ts ...*tensor.Tensor) error {
	for n, q := range qs {
		if err := q.AddBlock(ts[n]); err != nil {
			return err
		}
	}
	return nil
}

// keptWeights returns the kept weights of all pieces in decreasing order.
func keptWeights(pieces []blockPiece) []float64 {
	var out []float64
	for _, p := range pieces {
		out = append(out, p.weights[:p.keep]...)
	}
	slices.Sort(out)
	slices.Reverse(out)
	return out
}
