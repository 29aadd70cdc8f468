package index

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexEquality(t *testing.T) {
	a := New("a", 3, Link)
	b := New("a", 3, Link)

	assert.False(t, a.Equal(b), "same name must not imply equality")
	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(a.Primed(1)))
	assert.True(t, a.NoPrimeEqual(a.Primed(2)))
	assert.True(t, a.Primed(2).NoPrime().Equal(a))
	assert.Equal(t, "a''", a.Primed(2).Name())
	assert.True(t, Index{}.IsNull())
	assert.True(t, ReImIndex().Equal(ReImIndex()))
	assert.Equal(t, 2, ReImPP().PrimeLevel())
	assert.Panics(t, func() { New("bad", 0, Site) })
}

func TestIndexSetOrdering(t *testing.T) {
	a := New("a", 2, Site)
	one := New("one", 1, Link)
	b := New("b", 4, Link)

	is, err := NewIndexSet(a, one, b)
	require.NoError(t, err)

	assert.Equal(t, 3, is.R())
	assert.Equal(t, 2, is.RN())
	assert.True(t, is.At(0).Equal(a))
	assert.True(t, is.At(1).Equal(b))
	assert.True(t, is.At(2).Equal(one))
	assert.Equal(t, 8, is.Dim())
	assert.Equal(t, []int{1, 2}, is.Strides())
	assert.Equal(t, 2, is.Find(one))
	assert.Equal(t, -1, is.Find(a.Primed(1)))
}

func TestIndexSetErrors(t *testing.T) {
	var inds []Index
	for range MaxRank + 1 {
		inds = append(inds, New("x", 2, Link))
	}
	_, err := NewIndexSet(inds...)
	assert.True(t, errors.Is(err, ErrTooManyIndices))

	_, err = NewIndexSet(inds[:MaxRank]...)
	assert.NoError(t, err)

	_, err = NewIndexSet(inds[0], inds[0])
	assert.True(t, errors.Is(err, ErrDuplicateIndex))

	_, err = NewIndexSet(inds[0], Index{})
	assert.True(t, errors.Is(err, ErrNullIndex))
}

func TestIndexSetSameIndices(t *testing.T) {
	a := New("a", 2, Site)
	b := New("b", 3, Site)
	s1 := MustIndexSet(a, b)
	s2 := MustIndexSet(b, a)

	assert.True(t, s1.SameIndices(s2))
	assert.False(t, s1.Equal(s2))

	p, err := GetPerm(s1, s2)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Dest(0))
	assert.Equal(t, 0, p.Dest(1))
	assert.False(t, p.IsTrivial())

	p, err = GetPerm(s1, s1)
	require.NoError(t, err)
	assert.True(t, p.IsTrivial())
}

func TestIndexSetPrime(t *testing.T) {
	a := New("a", 2, Site)
	l := New("l", 3, Link)
	s := MustIndexSet(a, l)

	ps := s.Primed(Site, 1)
	assert.True(t, ps.Contains(a.Primed(1)))
	assert.True(t, ps.Contains(l))
	assert.True(t, ps.NoPrime(All).Equal(s))
	assert.True(t, s.MapPrime(0, 3, Link).Contains(l.Primed(3)))
	assert.True(t, s.PrimedIndex(l, 1).Contains(l.Primed(1)))
}

func TestPermutation(t *testing.T) {
	p := PermutationOf(2, 0, 1)
	assert.True(t, p.Valid(3))
	inv := p.Inverse()
	for n := range 3 {
		assert.Equal(t, n, inv.Dest(p.Dest(n)))
	}
	assert.False(t, PermutationOf(0, 0, 1).Valid(3))
	assert.True(t, NewPermutation().IsTrivial())
}

func TestCounter(t *testing.T) {
	var seen [][]int
	for c := NewCounter([]int{2, 3}); !c.Done(); c.Next() {
		assert.Equal(t, c.I[0]+2*c.I[1], c.Ind)
		seen = append(seen, append([]int(nil), c.I...))
	}
	assert.Len(t, seen, 6)
	assert.Equal(t, []int{1, 0}, seen[1])

	n := 0
	for c := NewCounter(nil); !c.Done(); c.Next() {
		n++
	}
	assert.Equal(t, 1, n)
}

func TestIQIndex(t *testing.T) {
	up := New("up", 2, Link)
	dn := New("dn", 3, Link)
	q, err := NewIQIndex("L", Link, Out, IndexQN{up, QN{Sz: 1}}, IndexQN{dn, QN{Sz: -1}})
	require.NoError(t, err)

	assert.Equal(t, 5, q.M())
	off, ok := q.Offset(dn)
	require.True(t, ok)
	assert.Equal(t, 2, off)
	qn, ok := q.QNOf(dn)
	require.True(t, ok)
	assert.Equal(t, QN{Sz: -1}, qn)
	assert.Equal(t, In, q.Conj().Dir())
	assert.True(t, q.Primed(1).HasBlock(up.Primed(1)))
	assert.Equal(t, QN{Sz: -1, Nf: 0}, QN{Sz: 1}.Mul(In))

	_, err = NewIQIndex("empty", Link, In)
	assert.Error(t, err)
}

func TestIndexCodec(t *testing.T) {
	a := New("alpha", 5, Site).Primed(2)
	one := New("one", 1, Link)
	s := MustIndexSet(one, a)

	var buf bytes.Buffer
	require.NoError(t, s.Write(&buf))
	got, err := ReadIndexSet(&buf)
	require.NoError(t, err)
	assert.True(t, got.Equal(s))
	assert.Equal(t, "alpha", got.At(0).RawName())
	assert.Equal(t, Site, got.At(0).Type())
}

func TestReadIndexSetTooLarge(t *testing.T) {
	s := MustIndexSet(New("a", 1<<16, Link), New("b", 1<<16, Link))

	var buf bytes.Buffer
	require.NoError(t, s.Write(&buf))
	_, err := ReadIndexSet(&buf)
	assert.ErrorContains(t, err, "exceeds")
}
