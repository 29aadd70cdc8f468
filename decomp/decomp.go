// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package decomp provides truncated decompositions of tensors: SVD,
// density-matrix decomposition and Hermitian diagonalization, dense and
// block-sparse.
//
// Example:
//
//	w := decomp.NewWorker(n, decomp.DefaultOptions())
//	f, err := w.SVD(b, psi, []tensor.Index{left, site})
//	if err != nil {
//	    return err
//	}
//	// psi ≈ U·D·V; f.TruncErr is the discarded weight.
package decomp

import (
	"io"

	"github.com/born-ml/tnet/internal/decomp"
)

// Options controls truncation.
type Options = decomp.Options

// Worker performs decompositions and records per-bond diagnostics.
type Worker = decomp.Worker

// Factorization is the result of a dense decomposition.
type Factorization = decomp.Factorization

// CSVDResult is the result of Worker.CSVD.
type CSVDResult = decomp.CSVDResult

// BlockFactorization is the result of a block-sparse decomposition.
type BlockFactorization = decomp.BlockFactorization

// Direction selects the orthogonal factor of Worker.DenmatDecomp.
type Direction = decomp.Direction

// Directions.
const (
	FromLeft    = decomp.FromLeft
	FromRight   = decomp.FromRight
	NoDirection = decomp.NoDirection
)

// Errors.
var (
	ErrEmptyResult = decomp.ErrEmptyResult
	ErrBond        = decomp.ErrBond
	ErrPartition   = decomp.ErrPartition
	ErrNotMatrix   = decomp.ErrNotMatrix
)

// DefaultOptions returns the default truncation settings.
func DefaultOptions() Options { return decomp.DefaultOptions() }

// NewWorker returns a worker for n bonds.
func NewWorker(n int, opts Options) *Worker { return decomp.NewWorker(n, opts) }

// ReadWorker decodes a worker written by Worker.Write.
func ReadWorker(r io.Reader) (*Worker, error) { return decomp.ReadWorker(r) }
