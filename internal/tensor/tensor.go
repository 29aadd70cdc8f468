// Package tensor implements dense tensors over labeled indices: copy-on-write
// storage with a separate scale factor, index permutation, contraction,
// addition and the structural operations (group, tie, trace, expand).
package tensor

import (
	"fmt"
	"slices"
	"strings"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/scale"
)

// Tensor is a dense real tensor whose dimensions are labeled by indices.
//
// The element at a coordinate equals buffer[offset] * scale, where offset
// flattens the non-trivial coordinates with the first index fastest.
// Buffers are shared copy-on-write between tensors, so Clone and most
// index relabelings are O(1).
//
// The zero value is the null tensor; every operation on it fails with
// ErrNullTensor. Use Clone rather than copying a Tensor by value: a value
// copy takes its own reference to the buffer on first use, and writes made
// through the original before that point are visible to the copy.
type Tensor struct {
	is    index.IndexSet
	own   *owner
	self  *Tensor
	scale scale.Scale
}

// newTensor wraps st, taking over its initial reference.
func newTensor(is index.IndexSet, st *storage, sc scale.Scale) *Tensor {
	t := &Tensor{is: is, scale: sc}
	t.attach(st)
	return t
}

// sharedTensor builds a tensor over st adding a reference.
func sharedTensor(is index.IndexSet, st *storage, sc scale.Scale) *Tensor {
	t := &Tensor{is: is, scale: sc}
	t.share(st)
	return t
}

// IsNull reports whether t is the null tensor.
func (t *Tensor) IsNull() bool {
	return t == nil || t.own == nil
}

// Indices returns the index set.
func (t *Tensor) Indices() index.IndexSet { return t.is }

// R returns the number of indices.
func (t *Tensor) R() int { return t.is.R() }

// RN returns the number of non-trivial indices.
func (t *Tensor) RN() int { return t.is.RN() }

// Index returns the index at position n.
func (t *Tensor) Index(n int) index.Index { return t.is.At(n) }

// HasIndex reports whether i labels a dimension of t.
func (t *Tensor) HasIndex(i index.Index) bool { return t.is.Contains(i) }

// Scale returns the scale factor applied to the buffer.
func (t *Tensor) Scale() scale.Scale { return t.scale }

// Len returns the number of buffer elements.
func (t *Tensor) Len() int {
	if t.IsNull() {
		return 0
	}
	return len(t.data())
}

// Clone returns a tensor sharing t's buffer.
func (t *Tensor) Clone() *Tensor {
	if t.IsNull() {
		return &Tensor{}
	}
	return sharedTensor(t.is, t.storage(), t.scale)
}

// Copy returns a tensor with its own copy of the buffer.
func (t *Tensor) Copy() *Tensor {
	if t.IsNull() {
		return &Tensor{}
	}
	return newTensor(t.is, storageOf(slices.Clone(t.data())), t.scale)
}

// SharesStorage reports whether t and o read the same buffer.
func (t *Tensor) SharesStorage(o *Tensor) bool {
	if t.IsNull() || o.IsNull() {
		return false
	}
	return t.storage() == o.storage()
}

// withIndices returns a tensor over the same buffer and scale labeled by is.
// is must describe the same buffer layout.
func (t *Tensor) withIndices(is index.IndexSet) *Tensor {
	if t.IsNull() {
		return &Tensor{}
	}
	return sharedTensor(is, t.storage(), t.scale)
}

// Primed raises the prime level of every index by inc.
func (t *Tensor) Primed(inc int) *Tensor {
	return t.withIndices(t.is.Primed(index.All, inc))
}

// PrimedType raises the prime level of the indices of type typ by inc.
func (t *Tensor) PrimedType(typ index.Type, inc int) *Tensor {
	return t.withIndices(t.is.Primed(typ, inc))
}

// PrimedIndex raises the prime level of i by inc.
func (t *Tensor) PrimedIndex(i index.Index, inc int) *Tensor {
	return t.withIndices(t.is.PrimedIndex(i, inc))
}

// NoPrime resets the prime level of the indices of type typ.
func (t *Tensor) NoPrime(typ index.Type) *Tensor {
	return t.withIndices(t.is.NoPrime(typ))
}

// NoPrimeIndex resets the prime level of i.
func (t *Tensor) NoPrimeIndex(i index.Index) *Tensor {
	return t.withIndices(t.is.NoPrimeIndex(i))
}

// MapPrime moves indices of type typ from prime level from to level to.
func (t *Tensor) MapPrime(from, to int, typ index.Type) *Tensor {
	return t.withIndices(t.is.MapPrime(from, to, typ))
}

// CommonIndex returns the first index of type typ shared by t and o.
func (t *Tensor) CommonIndex(o *Tensor, typ index.Type) (index.Index, bool) {
	return t.is.Common(o.is, typ)
}

// offsetOf returns the buffer offset addressed by ivs. The values must
// name every non-trivial index exactly once; trivial indices may also be
// named (with value 0).
func (t *Tensor) offsetOf(ivs []index.IndexVal) (int, error) {
	strides := t.is.Strides()
	var seen [index.MaxRank]bool
	off, named := 0, 0
	for _, iv := range ivs {
		n := t.is.Find(iv.Index)
		if n < 0 {
			return 0, wrapIndex(iv.Index, "not an index of %s", t.is)
		}
		if !iv.Valid() {
			return 0, wrapIndex(iv.Index, "value %d out of range", iv.Val)
		}
		if seen[n] {
			return 0, wrapIndex(iv.Index, "named twice")
		}
		seen[n] = true
		if n >= t.is.RN() {
			continue
		}
		off += iv.Val * strides[n]
		named++
	}
	if named != t.is.RN() {
		return 0, wrapIndex(index.Index{}, "%d of %d non-trivial indices named", named, t.is.RN())
	}
	return off, nil
}

// String implements fmt.Stringer.
func (t *Tensor) String() string {
	if t.IsNull() {
		return "Tensor(null)"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tensor r=%d %s scale=%s", t.R(), t.is, t.scale)
	if n, err := t.Norm(); err == nil {
		fmt.Fprintf(&sb, " norm=%.6g", n)
	}
	return sb.String()
}
