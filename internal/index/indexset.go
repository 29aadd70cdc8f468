package index

import (
	"strings"

	"github.com/pkg/errors"
)

// MaxRank is the maximum number of indices a tensor may carry.
const MaxRank = 8

// Errors returned by IndexSet construction.
var (
	ErrTooManyIndices = errors.New("too many indices")
	ErrNullIndex      = errors.New("null index")
	ErrDuplicateIndex = errors.New("duplicate index")
)

// IndexSet is an ordered, immutable collection of at most MaxRank indices.
//
// Non-trivial indices (M > 1) always come first, in the order given at
// construction, followed by the trivial ones. The product of the
// non-trivial dimensions is the length of the tensor buffer.
type IndexSet struct {
	inds []Index
	rn   int
}

// NewIndexSet builds an IndexSet from inds.
func NewIndexSet(inds ...Index) (IndexSet, error) {
	if len(inds) > MaxRank {
		return IndexSet{}, errors.Wrapf(ErrTooManyIndices, "got %d, max %d", len(inds), MaxRank)
	}
	out := make([]Index, 0, len(inds))
	for _, i := range inds {
		if i.IsNull() {
			return IndexSet{}, ErrNullIndex
		}
		if i.m > 1 {
			out = append(out, i)
		}
	}
	rn := len(out)
	for _, i := range inds {
		if i.m == 1 {
			out = append(out, i)
		}
	}
	for a := range out {
		for b := a + 1; b < len(out); b++ {
			if out[a].Equal(out[b]) {
				return IndexSet{}, errors.Wrapf(ErrDuplicateIndex, "%s", out[a])
			}
		}
	}
	return IndexSet{inds: out, rn: rn}, nil
}

// MustIndexSet is like NewIndexSet but panics on error.
func MustIndexSet(inds ...Index) IndexSet {
	is, err := NewIndexSet(inds...)
	if err != nil {
		panic(err)
	}
	return is
}

// R returns the number of indices.
func (s IndexSet) R() int { return len(s.inds) }

// RN returns the number of non-trivial indices.
func (s IndexSet) RN() int { return s.rn }

// At returns the index at position n.
func (s IndexSet) At(n int) Index { return s.inds[n] }

// Indices returns a copy of all indices.
func (s IndexSet) Indices() []Index {
	return append([]Index(nil), s.inds...)
}

// NonTrivial returns a copy of the non-trivial indices.
func (s IndexSet) NonTrivial() []Index {
	return append([]Index(nil), s.inds[:s.rn]...)
}

// Trivial returns a copy of the trivial indices.
func (s IndexSet) Trivial() []Index {
	return append([]Index(nil), s.inds[s.rn:]...)
}

// Dims returns the dimensions of the non-trivial indices.
func (s IndexSet) Dims() []int {
	d := make([]int, s.rn)
	for n := range d {
		d[n] = s.inds[n].m
	}
	return d
}

// Dim returns the product of all dimensions.
func (s IndexSet) Dim() int {
	d := 1
	for _, i := range s.inds[:s.rn] {
		d *= i.m
	}
	return d
}

// Strides returns the buffer stride of each non-trivial position, first
// index fastest.
func (s IndexSet) Strides() []int {
	st := make([]int, s.rn)
	acc := 1
	for n := range st {
		st[n] = acc
		acc *= s.inds[n].m
	}
	return st
}

// Find returns the position of i, or -1.
func (s IndexSet) Find(i Index) int {
	for n, j := range s.inds {
		if j.Equal(i) {
			return n
		}
	}
	return -1
}

// Contains reports whether i is in s.
func (s IndexSet) Contains(i Index) bool { return s.Find(i) >= 0 }

// HasType reports whether s contains an index of type t.
func (s IndexSet) HasType(t Type) bool {
	for _, i := range s.inds {
		if i.typ.Matches(t) {
			return true
		}
	}
	return false
}

// Equal reports whether s and o hold the same indices in the same order.
func (s IndexSet) Equal(o IndexSet) bool {
	if len(s.inds) != len(o.inds) || s.rn != o.rn {
		return false
	}
	for n := range s.inds {
		if !s.inds[n].Equal(o.inds[n]) {
			return false
		}
	}
	return true
}

// SameIndices reports whether s and o hold the same indices in any order.
func (s IndexSet) SameIndices(o IndexSet) bool {
	if len(s.inds) != len(o.inds) || s.rn != o.rn {
		return false
	}
	for _, i := range s.inds {
		if !o.Contains(i) {
			return false
		}
	}
	return true
}

// Common returns the first index shared by s and o whose type matches t.
func (s IndexSet) Common(o IndexSet, t Type) (Index, bool) {
	for _, i := range s.inds {
		if i.typ.Matches(t) && o.Contains(i) {
			return i, true
		}
	}
	return Index{}, false
}

// Map returns the set obtained by applying f to every index.
func (s IndexSet) Map(f func(Index) Index) (IndexSet, error) {
	out := make([]Index, len(s.inds))
	for n, i := range s.inds {
		out[n] = f(i)
	}
	return NewIndexSet(out...)
}

// Primed raises the prime level of every index matching t by inc.
func (s IndexSet) Primed(t Type, inc int) IndexSet {
	return s.mustMap(func(i Index) Index {
		if i.typ.Matches(t) {
			return i.Primed(inc)
		}
		return i
	})
}

// PrimedIndex raises the prime level of the index equal to target.
func (s IndexSet) PrimedIndex(target Index, inc int) IndexSet {
	return s.mustMap(func(i Index) Index {
		if i.Equal(target) {
			return i.Primed(inc)
		}
		return i
	})
}

// NoPrime resets the prime level of every index matching t.
func (s IndexSet) NoPrime(t Type) IndexSet {
	return s.mustMap(func(i Index) Index {
		if i.typ.Matches(t) {
			return i.NoPrime()
		}
		return i
	})
}

// NoPrimeIndex resets the prime level of the index equal to target.
func (s IndexSet) NoPrimeIndex(target Index) IndexSet {
	return s.mustMap(func(i Index) Index {
		if i.Equal(target) {
			return i.NoPrime()
		}
		return i
	})
}

// MapPrime moves indices matching t from prime level from to level to.
func (s IndexSet) MapPrime(from, to int, t Type) IndexSet {
	return s.mustMap(func(i Index) Index {
		if i.typ.Matches(t) && i.plev == from {
			return i.WithPrimeLevel(to)
		}
		return i
	})
}

// mustMap keeps the order of s. Prime changes cannot change the partition
// but may produce duplicates, which are left to the caller to avoid.
func (s IndexSet) mustMap(f func(Index) Index) IndexSet {
	out := make([]Index, len(s.inds))
	for n, i := range s.inds {
		out[n] = f(i)
	}
	return IndexSet{inds: out, rn: s.rn}
}

// Replace returns s with old replaced by repl, keeping its position when
// both have the same triviality.
func (s IndexSet) Replace(old, repl Index) (IndexSet, error) {
	n := s.Find(old)
	if n < 0 {
		return IndexSet{}, errors.Errorf("index %s not found", old)
	}
	out := s.Indices()
	out[n] = repl
	return NewIndexSet(out...)
}

// String implements fmt.Stringer.
func (s IndexSet) String() string {
	parts := make([]string, len(s.inds))
	for n, i := range s.inds {
		parts[n] = i.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
