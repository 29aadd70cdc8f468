// Package qtensor implements IQTensor, a block-sparse tensor over
// quantum-number indices. Each stored block is a dense tensor over one block
// index of every IQIndex; blocks that are not stored are zero.
package qtensor

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/scale"
	"github.com/born-ml/tnet/internal/tensor"
)

// Errors returned by IQTensor operations.
var (
	ErrNoIndices     = errors.New("qtensor: no indices")
	ErrBlockMismatch = errors.New("qtensor: block does not fit the indices")
	ErrFluxMismatch  = errors.New("qtensor: blocks carry different flux")
)

// IQTensor is a block-sparse tensor. The zero value has no indices and no
// blocks.
type IQTensor struct {
	inds   []index.IQIndex
	blocks []*tensor.Tensor
}

// New creates an IQTensor over inds with no blocks.
func New(inds ...index.IQIndex) (*IQTensor, error) {
	if len(inds) == 0 {
		return nil, ErrNoIndices
	}
	if len(inds) > index.MaxRank {
		return nil, errors.Wrapf(index.ErrTooManyIndices, "%d iq indices", len(inds))
	}
	for n, i := range inds {
		for _, j := range inds[:n] {
			if i.Equal(j) {
				return nil, errors.Wrapf(index.ErrDuplicateIndex, "%s", i.Index())
			}
		}
	}
	return &IQTensor{inds: append([]index.IQIndex(nil), inds...)}, nil
}

// R returns the number of IQIndexes.
func (q *IQTensor) R() int { return len(q.inds) }

// Index returns IQIndex n.
func (q *IQTensor) Index(n int) index.IQIndex { return q.inds[n] }

// Indices returns a copy of the IQIndexes.
func (q *IQTensor) Indices() []index.IQIndex {
	return append([]index.IQIndex(nil), q.inds...)
}

// NBlocks returns the number of stored blocks.
func (q *IQTensor) NBlocks() int { return len(q.blocks) }

// Block returns stored block n.
func (q *IQTensor) Block(n int) *tensor.Tensor { return q.blocks[n] }

// Blocks returns the stored blocks in insertion order.
func (q *IQTensor) Blocks() []*tensor.Tensor {
	return append([]*tensor.Tensor(nil), q.blocks...)
}

// IsComplex reports whether any block is complex.
func (q *IQTensor) IsComplex() bool {
	for _, b := range q.blocks {
		if b.IsComplex() {
			return true
		}
	}
	return false
}

// Clone returns an IQTensor whose blocks share buffers with q's.
func (q *IQTensor) Clone() *IQTensor {
	out := &IQTensor{inds: q.Indices(), blocks: make([]*tensor.Tensor, len(q.blocks))}
	for n, b := range q.blocks {
		out.blocks[n] = b.Clone()
	}
	return out
}

// BlockIndices returns, for each IQIndex of q, the block index that t
// carries. Every index of t other than ReIm must be a block of exactly one
// IQIndex, and every IQIndex must be covered.
func (q *IQTensor) BlockIndices(t *tensor.Tensor) ([]index.Index, error) {
	if t.IsNull() {
		return nil, tensor.ErrNullTensor
	}
	out := make([]index.Index, len(q.inds))
	found := 0
	for _, i := range t.Indices().Indices() {
		if i.Type() == index.ReIm {
			continue
		}
		k := q.owner(i)
		if k < 0 {
			return nil, errors.Wrapf(ErrBlockMismatch, "%s is not a block of any index", i)
		}
		if !out[k].IsNull() {
			return nil, errors.Wrapf(ErrBlockMismatch, "two blocks of %s", q.inds[k].Index())
		}
		out[k] = i
		found++
	}
	if found != len(q.inds) {
		return nil, errors.Wrapf(ErrBlockMismatch, "block has %d of %d indices", found, len(q.inds))
	}
	return out, nil
}

func (q *IQTensor) owner(i index.Index) int {
	for k, iq := range q.inds {
		if iq.HasBlock(i) {
			return k
		}
	}
	return -1
}

// AddBlock adds t to the block with the same block indices, or stores it as
// a new block.
func (q *IQTensor) AddBlock(t *tensor.Tensor) error {
	bi, err := q.BlockIndices(t)
	if err != nil {
		return err
	}
	for n, b := range q.blocks {
		if !sameBlock(b, bi) {
			continue
		}
		sum, err := b.Add(t)
		if err != nil {
			return err
		}
		q.blocks[n] = sum
		return nil
	}
	q.blocks = append(q.blocks, t.Clone())
	return nil
}

func sameBlock(b *tensor.Tensor, bi []index.Index) bool {
	for _, i := range bi {
		if !b.HasIndex(i) {
			return false
		}
	}
	return true
}

// BlockQNs returns the quantum number of block n along each IQIndex.
func (q *IQTensor) BlockQNs(n int) []index.QN {
	bi, err := q.BlockIndices(q.blocks[n])
	if err != nil {
		return nil
	}
	qns := make([]index.QN, len(bi))
	for k, i := range bi {
		qns[k], _ = q.inds[k].QNOf(i)
	}
	return qns
}

// Div returns the flux of q: the sum over its indices of block QN times
// arrow, which must agree for every block.
func (q *IQTensor) Div() (index.QN, error) {
	var div index.QN
	for n := range q.blocks {
		var d index.QN
		for k, qn := range q.BlockQNs(n) {
			d = d.Add(qn.Mul(q.inds[k].Dir()))
		}
		if n > 0 && d != div {
			return index.QN{}, errors.Wrapf(ErrFluxMismatch, "block %d has %s, block 0 has %s", n, d, div)
		}
		div = d
	}
	return div, nil
}

// ScaleOutNorm moves each block's buffer norm into its scale.
func (q *IQTensor) ScaleOutNorm() {
	for _, b := range q.blocks {
		b.ScaleOutNorm()
	}
}

// ScaleTo rewrites every block so its scale equals s.
func (q *IQTensor) ScaleTo(s scale.Scale) error {
	for n, b := range q.blocks {
		if err := b.ScaleTo(s); err != nil {
			return errors.Wrapf(err, "block %d", n)
		}
	}
	return nil
}

// MulScale multiplies q by s.
func (q *IQTensor) MulScale(s scale.Scale) {
	for n, b := range q.blocks {
		q.blocks[n] = b.ScaledBy(s)
	}
}

// Norm returns the Frobenius norm over all blocks.
func (q *IQTensor) Norm() (float64, error) {
	var sum float64
	for _, b := range q.blocks {
		n, err := b.Norm()
		if err != nil {
			return 0, err
		}
		sum += n * n
	}
	return math.Sqrt(sum), nil
}

// Primed raises the prime level of every index and block by inc.
func (q *IQTensor) Primed(inc int) *IQTensor {
	out := &IQTensor{inds: make([]index.IQIndex, len(q.inds)), blocks: make([]*tensor.Tensor, len(q.blocks))}
	for k, iq := range q.inds {
		out.inds[k] = iq.Primed(inc)
	}
	for n, b := range q.blocks {
		out.blocks[n] = b.Primed(inc)
	}
	return out
}

// Conj reverses every arrow and conjugates every block.
func (q *IQTensor) Conj() (*IQTensor, error) {
	out := &IQTensor{inds: make([]index.IQIndex, len(q.inds)), blocks: make([]*tensor.Tensor, len(q.blocks))}
	for k, iq := range q.inds {
		out.inds[k] = iq.Conj()
	}
	for n, b := range q.blocks {
		c, err := tensor.Conj(b)
		if err != nil {
			return nil, err
		}
		out.blocks[n] = c
	}
	return out, nil
}

// ToTensor returns q as a dense tensor over the composite indices, each
// block placed at its offsets.
func (q *IQTensor) ToTensor() (*tensor.Tensor, error) {
	full := make([]index.Index, len(q.inds))
	for k, iq := range q.inds {
		full[k] = iq.Index()
	}
	out, err := tensor.New(full...)
	if err != nil {
		return nil, err
	}
	for n, b := range q.blocks {
		bi, err := q.BlockIndices(b)
		if err != nil {
			return nil, err
		}
		for k, i := range bi {
			off, _ := q.inds[k].Offset(i)
			if b, err = b.ExpandIndex(i, full[k], off); err != nil {
				return nil, errors.Wrapf(err, "block %d", n)
			}
		}
		if out, err = out.Add(b); err != nil {
			return nil, errors.Wrapf(err, "block %d", n)
		}
	}
	return out, nil
}

// String implements fmt.Stringer.
func (q *IQTensor) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "IQTensor r=%d blocks=%d", len(q.inds), len(q.blocks))
	for _, iq := range q.inds {
		sb.WriteString("\n  ")
		sb.WriteString(iq.String())
	}
	return sb.String()
}
