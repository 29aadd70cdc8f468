// Package decomp implements truncated tensor decompositions: singular value
// decomposition, density-matrix decomposition and Hermitian
// diagonalization, for dense tensors and for block-sparse tensors over
// quantum-number indices.
//
// A Worker carries the truncation options and remembers, per bond, the
// truncation error and the weights kept by the last decomposition there.
package decomp

import (
	"log/slog"
	"math"
	"slices"

	"github.com/pkg/errors"

	"github.com/born-ml/tnet/internal/logging"
	"github.com/born-ml/tnet/internal/scale"
)

// Errors returned by decompositions.
var (
	ErrEmptyResult = errors.New("decomp: result is structurally empty")
	ErrBond        = errors.New("decomp: bond out of range")
	ErrPartition   = errors.New("decomp: invalid index partition")
	ErrNotMatrix   = errors.New("decomp: tensor is not matrix-like")
)

// Worker performs decompositions on the bonds 0..N of a tensor network.
// It is not safe for concurrent use.
type Worker struct {
	n        int
	opts     Options
	truncErr []float64
	eigsKept [][]float64
}

// NewWorker returns a worker for n bonds.
func NewWorker(n int, opts Options) *Worker {
	n = max(n, 0)
	return &Worker{
		n:        n,
		opts:     opts,
		truncErr: make([]float64, n+1),
		eigsKept: make([][]float64, n+1),
	}
}

// N returns the number of bonds.
func (w *Worker) N() int { return w.n }

// Options returns the current options.
func (w *Worker) Options() Options { return w.opts }

// SetOptions replaces the options.
func (w *Worker) SetOptions(o Options) { w.opts = o }

// TruncErr returns the truncation error of the last decomposition at bond b.
func (w *Worker) TruncErr(b int) float64 {
	if w.bond(b) != nil {
		return 0
	}
	return w.truncErr[b]
}

// EigsKept returns the weights kept by the last decomposition at bond b,
// in decreasing order.
func (w *Worker) EigsKept(b int) []float64 {
	if w.bond(b) != nil {
		return nil
	}
	return slices.Clone(w.eigsKept[b])
}

// NumEigsKept returns how many weights were kept at bond b.
func (w *Worker) NumEigsKept(b int) int {
	if w.bond(b) != nil {
		return 0
	}
	return len(w.eigsKept[b])
}

// MaxEigsKept returns the largest number of weights kept at any bond.
func (w *Worker) MaxEigsKept() int {
	res := 0
	for _, e := range w.eigsKept {
		res = max(res, len(e))
	}
	return res
}

// MaxTruncErr returns the largest truncation error at any bond.
func (w *Worker) MaxTruncErr() float64 {
	res := 0.0
	for _, t := range w.truncErr {
		res = max(res, t)
	}
	return res
}

func (w *Worker) bond(b int) error {
	if b < 0 || b > w.n {
		return errors.Wrapf(ErrBond, "bond %d of %d", b, w.n)
	}
	return nil
}

func (w *Worker) record(b int, eigs []float64, truncErr float64) {
	w.truncErr[b] = truncErr
	w.eigsKept[b] = eigs
}

// maxShown caps the number of values logged by showEigs.
const maxShown = 20

// showEigs logs the outcome of one decomposition when ShowEigs is set. The
// values are multiplied by sc when the result stays near unit magnitude.
func showEigs(opts Options, op string, b, kept int, truncErr, docut float64, vals []float64, sc scale.Scale) {
	if !opts.ShowEigs || len(vals) == 0 {
		return
	}
	shown := slices.Clone(vals[:min(len(vals), maxShown)])
	scaled := false
	if shown[0] != 0 && sc.IsFiniteReal() && math.Abs(math.Log(math.Abs(shown[0]))+sc.LogNum()) < 5 {
		f, _ := sc.Real()
		for n := range shown {
			shown[n] *= f
		}
		scaled = true
	}
	logging.L().Info("decomposition",
		"op", op,
		"bond", b,
		"kept", kept,
		"trunc_err", truncErr,
		slog.Group("opts",
			"cutoff", opts.Cutoff,
			"min_dim", opts.MinDim,
			"max_dim", opts.MaxDim,
			"use_orig_dim", opts.UseOrigDim,
			"relative", opts.RelativeCutoff,
			"absolute", opts.AbsoluteCutoff,
		),
		"docut", docut,
		"ref_norm", sc.String(),
		"scaled", scaled,
		"values", shown,
	)
}
