package tensor

import (
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tnet/internal/index"
)

const tol = 1e-10

func newRNG() *rand.Rand { return rand.New(rand.NewPCG(7, 11)) }

func randomTensor(t *testing.T, rng *rand.Rand, inds ...index.Index) *Tensor {
	t.Helper()
	x, err := New(inds...)
	require.NoError(t, err)
	require.NoError(t, x.Randomize(rng))
	return x
}

// at reads an element, failing the test on error.
func at(t *testing.T, x *Tensor, ivs ...index.IndexVal) float64 {
	t.Helper()
	v, err := x.At(ivs...)
	require.NoError(t, err)
	return v
}

// assertSameTensor compares two tensors over the same indices element by
// element, whatever their index order.
func assertSameTensor(t *testing.T, want, got *Tensor) {
	t.Helper()
	require.True(t, want.Indices().SameIndices(got.Indices()), "indices %s vs %s", want.Indices(), got.Indices())
	nt := want.Indices().NonTrivial()
	dims := make([]int, len(nt))
	for n, i := range nt {
		dims[n] = i.M()
	}
	for c := index.NewCounter(dims); !c.Done(); c.Next() {
		ivs := make([]index.IndexVal, len(nt))
		for n, i := range nt {
			ivs[n] = i.Val(c.I[n])
		}
		assert.InDelta(t, at(t, want, ivs...), at(t, got, ivs...), tol, "at %v", ivs)
	}
}

func TestAccess(t *testing.T) {
	i := index.New("i", 2, index.Site)
	j := index.New("j", 3, index.Link)
	one := index.New("one", 1, index.Link)

	x, err := New(i, j, one)
	require.NoError(t, err)
	require.NoError(t, x.Set(5, i.Val(1), j.Val(2)))

	assert.Equal(t, 5.0, at(t, x, j.Val(2), i.Val(1)))
	assert.Equal(t, 5.0, at(t, x, i.Val(1), j.Val(2), one.Val(0)))
	assert.Equal(t, 0.0, at(t, x, i.Val(0), j.Val(2)))

	_, err = x.At(i.Val(1))
	assert.True(t, errors.Is(err, ErrInvalidIndex), "missing index")
	_, err = x.At(i.Val(2), j.Val(0))
	assert.True(t, errors.Is(err, ErrInvalidIndex), "out of range")
	_, err = x.At(i.Val(0), j.Val(0), index.New("k", 2, index.Link).Val(0))
	assert.True(t, errors.Is(err, ErrInvalidIndex), "foreign index")

	var null Tensor
	_, err = null.At()
	assert.True(t, errors.Is(err, ErrNullTensor))
	_, err = null.Contract(x)
	assert.True(t, errors.Is(err, ErrNullTensor))
}

func TestCopyOnWrite(t *testing.T) {
	i := index.New("i", 3, index.Site)
	x, err := FromVector(i, []float64{1, 2, 3})
	require.NoError(t, err)

	y := x.Clone()
	require.True(t, x.SharesStorage(y))

	require.NoError(t, y.Set(10, i.Val(0)))
	assert.False(t, x.SharesStorage(y))
	assert.Equal(t, 1.0, at(t, x, i.Val(0)))
	assert.Equal(t, 10.0, at(t, y, i.Val(0)))

	z := x.Scaled(2)
	assert.True(t, x.SharesStorage(z))
	assert.Equal(t, 6.0, at(t, z, i.Val(2)))
	assert.Equal(t, 3.0, at(t, x, i.Val(2)))
}

func TestPermuteIdentitySharesStorage(t *testing.T) {
	i := index.New("i", 2, index.Site)
	j := index.New("j", 3, index.Site)
	x := randomTensor(t, newRNG(), i, j)

	same, err := x.Permute(i, j)
	require.NoError(t, err)
	assert.True(t, same.SharesStorage(x))

	swapped, err := x.Permute(j, i)
	require.NoError(t, err)
	assert.False(t, swapped.SharesStorage(x))
	assert.True(t, swapped.Index(0).Equal(j))
	assertSameTensor(t, x, swapped)
}

func TestPermuteKernelsMatchGeneric(t *testing.T) {
	rng := newRNG()
	sizes := []int{2, 3, 2, 4, 3, 2}
	for key, k := range kernels {
		dims := sizes[:key.rank]
		dest := make([]int, key.rank)
		for j := range dest {
			dest[j] = int(key.dest[j])
		}
		p := index.PermutationOf(dest...)
		require.True(t, p.Valid(key.rank), "pattern %v", dest)

		n := 1
		for _, d := range dims {
			n *= d
		}
		src := make([]float64, n)
		for e := range src {
			src[e] = rng.Float64()
		}
		want := make([]float64, n)
		genericPermute(want, src, dims, p)
		got := make([]float64, n)
		k(got, src, dims, p)
		assert.Equal(t, want, got, "pattern %v", dest)
	}
	assert.Len(t, kernels, 1+3+8+13+5)
}

func TestGenericPermuteRank7(t *testing.T) {
	var inds []index.Index
	for range 7 {
		inds = append(inds, index.New("x", 2, index.Link))
	}
	x := randomTensor(t, newRNG(), inds...)
	rev := make([]index.Index, len(inds))
	for n := range inds {
		rev[n] = inds[len(inds)-1-n]
	}
	y, err := x.Permute(rev...)
	require.NoError(t, err)
	assertSameTensor(t, x, y)
}

func TestAssignRowMajor(t *testing.T) {
	i := index.New("i", 2, index.Site)
	j := index.New("j", 3, index.Site)
	x, err := New(i, j)
	require.NoError(t, err)
	require.NoError(t, x.Assign([]index.Index{i, j}, 11, 12, 13, 21, 22, 23))

	assert.Equal(t, 12.0, at(t, x, i.Val(0), j.Val(1)))
	assert.Equal(t, 21.0, at(t, x, i.Val(1), j.Val(0)))
	assert.Equal(t, 23.0, at(t, x, i.Val(1), j.Val(2)))

	err = x.Assign([]index.Index{i, j}, 1, 2)
	assert.True(t, errors.Is(err, ErrDimMismatch))
}

func TestTraceOfIdentity(t *testing.T) {
	i := index.New("i", 4, index.Site)
	id, err := Diagonal(i, i.Primed(1), 1)
	require.NoError(t, err)

	tr, err := id.TraceAll()
	require.NoError(t, err)
	assert.Equal(t, 4.0, tr)

	partial, err := id.Trace(i, i.Primed(1))
	require.NoError(t, err)
	assert.Equal(t, 0, partial.R())

	j := index.New("j", 3, index.Site)
	_, err = id.Trace(i, j)
	assert.True(t, errors.Is(err, ErrInvalidIndex))
}

func TestTracePartial(t *testing.T) {
	i := index.New("i", 3, index.Site)
	k := index.New("k", 2, index.Link)
	x := randomTensor(t, newRNG(), i, k, i.Primed(1))

	tr, err := x.Trace(i, i.Primed(1))
	require.NoError(t, err)
	for kv := range 2 {
		var want float64
		for d := range 3 {
			want += at(t, x, i.Val(d), i.Primed(1).Val(d), k.Val(kv))
		}
		assert.InDelta(t, want, at(t, tr, k.Val(kv)), tol)
	}
}

func TestTrivialIndexEquivalence(t *testing.T) {
	rng := newRNG()
	i := index.New("i", 2, index.Site)
	j := index.New("j", 3, index.Link)
	one := index.New("one", 1, index.Link)

	a := randomTensor(t, rng, i, j)
	a1, err := FromData(index.MustIndexSet(i, one, j), a.RawData())
	require.NoError(t, err)
	b := randomTensor(t, rng, j)

	c, err := a.Contract(b)
	require.NoError(t, err)
	c1, err := a1.Contract(b)
	require.NoError(t, err)
	assert.True(t, c1.HasIndex(one))
	assert.Equal(t, 2, c1.R())
	for v := range 2 {
		assert.InDelta(t, at(t, c, i.Val(v)), at(t, c1, i.Val(v)), tol)
		assert.InDelta(t, at(t, c, i.Val(v)), at(t, c1, i.Val(v), one.Val(0)), tol)
	}

	s, err := a1.Add(a1)
	require.NoError(t, err)
	assert.InDelta(t, 2*at(t, a, i.Val(1), j.Val(2)), at(t, s, i.Val(1), j.Val(2)), tol)

	// A trivial index carried by both operands is contracted away.
	b1, err := FromData(index.MustIndexSet(j, one), b.RawData())
	require.NoError(t, err)
	c2, err := a1.Contract(b1)
	require.NoError(t, err)
	assert.False(t, c2.HasIndex(one))
}

func TestExpandIndex(t *testing.T) {
	small := index.New("s", 2, index.Link)
	big := index.New("b", 5, index.Link)
	x, err := FromVector(small, []float64{7, 8})
	require.NoError(t, err)

	y, err := x.ExpandIndex(small, big, 1)
	require.NoError(t, err)
	vals, err := y.ToVec()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 7, 8, 0, 0}, vals)

	_, err = x.ExpandIndex(small, big, 4)
	assert.True(t, errors.Is(err, ErrDimMismatch))
}

func TestExpandIndexInner(t *testing.T) {
	i := index.New("i", 2, index.Site)
	small := index.New("s", 2, index.Link)
	big := index.New("b", 4, index.Link)
	x := randomTensor(t, newRNG(), i, small)

	y, err := x.ExpandIndex(small, big, 2)
	require.NoError(t, err)
	for a := range 2 {
		for b := range 4 {
			want := 0.0
			if b >= 2 {
				want = at(t, x, i.Val(a), small.Val(b-2))
			}
			assert.Equal(t, want, at(t, y, i.Val(a), big.Val(b)))
		}
	}
}

func TestGroupUngroup(t *testing.T) {
	a := index.New("a", 2, index.Site)
	b := index.New("b", 3, index.Site)
	c := index.New("c", 4, index.Link)
	x := randomTensor(t, newRNG(), a, b, c)

	g := index.New("g", 6, index.Link)
	grouped, err := x.GroupIndices([]index.Index{b, a}, g)
	require.NoError(t, err)
	assert.True(t, grouped.Index(0).Equal(c))
	assert.True(t, grouped.Index(1).Equal(g))
	for av := range 2 {
		for bv := range 3 {
			assert.InDelta(t, at(t, x, a.Val(av), b.Val(bv), c.Val(1)),
				at(t, grouped, g.Val(bv+3*av), c.Val(1)), tol)
		}
	}

	back, err := grouped.UngroupIndex(g, []index.Index{b, a})
	require.NoError(t, err)
	assert.True(t, back.SharesStorage(grouped))
	assertSameTensor(t, x, back)

	_, err = x.GroupIndices([]index.Index{a, b}, index.New("bad", 5, index.Link))
	assert.True(t, errors.Is(err, ErrDimMismatch))
}

func TestTieIndices(t *testing.T) {
	i := index.New("i", 3, index.Site)
	j := index.New("j", 3, index.Site)
	k := index.New("k", 2, index.Link)
	x := randomTensor(t, newRNG(), i, k, j)

	tied := index.New("t", 3, index.Site)
	y, err := x.TieIndices([]index.Index{i, j}, tied)
	require.NoError(t, err)
	assert.True(t, y.Index(0).Equal(tied))
	for d := range 3 {
		for kv := range 2 {
			assert.Equal(t, at(t, x, i.Val(d), j.Val(d), k.Val(kv)), at(t, y, tied.Val(d), k.Val(kv)))
		}
	}
	_, err = x.TieIndices([]index.Index{i, k}, tied)
	assert.True(t, errors.Is(err, ErrDimMismatch))
}
