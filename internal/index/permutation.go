package index

import (
	"fmt"

	"github.com/pkg/errors"
)

// Permutation maps source positions to destination positions.
//
// Positions are 0-based and the zero value is not meaningful; use
// NewPermutation.
type Permutation struct {
	dest [MaxRank]int
}

// NewPermutation returns the identity permutation.
func NewPermutation() Permutation {
	var p Permutation
	for n := range p.dest {
		p.dest[n] = n
	}
	return p
}

// PermutationOf builds a permutation from a destination list; positions
// beyond len(dest) map to themselves.
func PermutationOf(dest ...int) Permutation {
	p := NewPermutation()
	copy(p.dest[:], dest)
	return p
}

// FromTo records that position from moves to position to.
func (p *Permutation) FromTo(from, to int) {
	p.dest[from] = to
}

// Dest returns the destination of position from.
func (p Permutation) Dest(from int) int { return p.dest[from] }

// IsTrivial reports whether p is the identity.
func (p Permutation) IsTrivial() bool {
	for n, d := range p.dest {
		if n != d {
			return false
		}
	}
	return true
}

// Inverse returns the permutation undoing p.
func (p Permutation) Inverse() Permutation {
	var q Permutation
	for n, d := range p.dest {
		q.dest[d] = n
	}
	return q
}

// Valid reports whether the first r destinations form a permutation of
// [0, r).
func (p Permutation) Valid(r int) bool {
	var seen [MaxRank]bool
	for n := range r {
		d := p.dest[n]
		if d < 0 || d >= r || seen[d] {
			return false
		}
		seen[d] = true
	}
	return true
}

// String implements fmt.Stringer.
func (p Permutation) String() string {
	return fmt.Sprint(p.dest)
}

// GetPerm returns the permutation taking the non-trivial positions of src to
// the positions of the same indices in dst. Both sets must hold the same
// non-trivial indices.
func GetPerm(src, dst IndexSet) (Permutation, error) {
	if src.rn != dst.rn {
		return Permutation{}, errors.Errorf("index sets differ: %s vs %s", src, dst)
	}
	p := NewPermutation()
	for n := range src.rn {
		d := dst.Find(src.inds[n])
		if d < 0 || d >= dst.rn {
			return Permutation{}, errors.Errorf("index %s not found in %s", src.inds[n], dst)
		}
		p.dest[n] = d
	}
	return p, nil
}
