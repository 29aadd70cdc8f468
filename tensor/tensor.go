// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"io"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/qtensor"
	"github.com/born-ml/tnet/internal/scale"
	"github.com/born-ml/tnet/internal/tensor"
)

// Tensor is a dense tensor over labeled indices.
type Tensor = tensor.Tensor

// Diag is a rank-2 diagonal tensor stored as its diagonal.
type Diag = tensor.Diag

// Index labels one axis of a tensor.
type Index = index.Index

// IndexVal is an Index paired with a 0-based value.
type IndexVal = index.IndexVal

// IndexSet is the ordered index list of a tensor.
type IndexSet = index.IndexSet

// IndexType classifies indices.
type IndexType = index.Type

// Index types.
const (
	Link = index.Link
	Site = index.Site
	ReIm = index.ReIm
	All  = index.All
)

// MaxRank is the largest supported number of indices.
const MaxRank = index.MaxRank

// Scale is a log-domain magnitude and sign.
type Scale = scale.Scale

// QN is a quantum number label.
type QN = index.QN

// Arrow is the direction of an IQIndex.
type Arrow = index.Arrow

// Arrow directions.
const (
	In  = index.In
	Out = index.Out
)

// IndexQN is one quantum-number block of an IQIndex.
type IndexQN = index.IndexQN

// IQIndex is an index partitioned into quantum-number blocks.
type IQIndex = index.IQIndex

// IQTensor is a block-sparse tensor over IQIndexes.
type IQTensor = qtensor.IQTensor

// Errors.
var (
	ErrNullTensor          = tensor.ErrNullTensor
	ErrInvalidIndex        = tensor.ErrInvalidIndex
	ErrDimMismatch         = tensor.ErrDimMismatch
	ErrIncompatibleIndices = tensor.ErrIncompatibleIndices
	ErrNotScalar           = tensor.ErrNotScalar
	ErrZeroScale           = tensor.ErrZeroScale
	ErrTooManyIndices      = index.ErrTooManyIndices
	ErrTooBig              = scale.ErrTooBig
)

// NewIndex creates an index with a fresh identity.
func NewIndex(name string, m int, typ IndexType) Index { return index.New(name, m, typ) }

// NewIQIndex creates an IQIndex over the given blocks.
func NewIQIndex(name string, typ IndexType, dir Arrow, blocks ...IndexQN) (IQIndex, error) {
	return index.NewIQIndex(name, typ, dir, blocks...)
}

// New creates a zero tensor over inds.
func New(inds ...Index) (*Tensor, error) { return tensor.New(inds...) }

// Scalar returns a rank-0 tensor holding v.
func Scalar(v float64) *Tensor { return tensor.Scalar(v) }

// FromData creates a tensor over is from data in layout order, first index
// fastest.
func FromData(is IndexSet, data []float64) (*Tensor, error) { return tensor.FromData(is, data) }

// NewIndexSet builds an index set, moving dimension-1 indices to the end.
func NewIndexSet(inds ...Index) (IndexSet, error) { return index.NewIndexSet(inds...) }

// Diagonal creates a rank-2 tensor with a on the diagonal.
func Diagonal(i1, i2 Index, a float64) (*Tensor, error) { return tensor.Diagonal(i1, i2, a) }

// NewDiag creates a diagonal tensor over (i1, i2).
func NewDiag(i1, i2 Index, d []float64) (*Diag, error) { return tensor.NewDiag(i1, i2, d) }

// MakeComplex combines real and imaginary parts.
func MakeComplex(re, im *Tensor) (*Tensor, error) { return tensor.MakeComplex(re, im) }

// RealPart returns the real part of t.
func RealPart(t *Tensor) (*Tensor, error) { return tensor.RealPart(t) }

// ImagPart returns the imaginary part of t.
func ImagPart(t *Tensor) (*Tensor, error) { return tensor.ImagPart(t) }

// Conj returns the complex conjugate of t.
func Conj(t *Tensor) (*Tensor, error) { return tensor.Conj(t) }

// Dot returns the full contraction of two real tensors.
func Dot(x, y *Tensor) (float64, error) { return tensor.Dot(x, y) }

// BraKet returns conj(x)·y.
func BraKet(x, y *Tensor) (complex128, error) { return tensor.BraKet(x, y) }

// NewIQTensor creates an empty IQTensor over inds.
func NewIQTensor(inds ...IQIndex) (*IQTensor, error) { return qtensor.New(inds...) }

// Read decodes a tensor written by Tensor.Write.
func Read(r io.Reader) (*Tensor, error) { return tensor.Read(r) }
