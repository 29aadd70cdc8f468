package tensor

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/prodstats"
	"github.com/born-ml/tnet/internal/scale"
)

func productCount(t *testing.T, path string) float64 {
	t.Helper()
	samples, err := prodstats.Snapshot()
	require.NoError(t, err)
	name := `tnet_contract_products_total{path="` + path + `"}`
	for _, s := range samples {
		if s.Name == name {
			return s.Value
		}
	}
	return 0
}

func TestContractDirectPath(t *testing.T) {
	rng := newRNG()
	i := index.New("i", 2, index.Site)
	j := index.New("j", 3, index.Link)
	k := index.New("k", 2, index.Site)
	l := index.New("l", 2, index.Link)
	a := randomTensor(t, rng, i, j, k)
	b := randomTensor(t, rng, j, l)

	before := productCount(t, prodstats.PathDirect)
	c, err := a.Contract(b)
	require.NoError(t, err)
	assert.Equal(t, before+1, productCount(t, prodstats.PathDirect))

	require.Equal(t, 3, c.R())
	assert.True(t, c.Index(0).Equal(i))
	assert.True(t, c.Index(1).Equal(k))
	assert.True(t, c.Index(2).Equal(l))
	for iv := range 2 {
		for kv := range 2 {
			for lv := range 2 {
				var want float64
				for jv := range 3 {
					want += at(t, a, i.Val(iv), j.Val(jv), k.Val(kv)) * at(t, b, j.Val(jv), l.Val(lv))
				}
				assert.InDelta(t, want, at(t, c, i.Val(iv), k.Val(kv), l.Val(lv)), tol)
			}
		}
	}
}

func TestContractMatrixPath(t *testing.T) {
	rng := newRNG()
	i := index.New("i", 10, index.Site)
	j := index.New("j", 11, index.Link)
	k := index.New("k", 12, index.Link)
	l := index.New("l", 9, index.Site)
	a := randomTensor(t, rng, i, j, k)
	b := randomTensor(t, rng, k, j, l)

	before := productCount(t, prodstats.PathMatrix)
	c, err := a.Contract(b)
	require.NoError(t, err)
	assert.Equal(t, before+1, productCount(t, prodstats.PathMatrix))

	for iv := range 10 {
		for lv := range 9 {
			var want float64
			for jv := range 11 {
				for kv := range 12 {
					want += at(t, a, i.Val(iv), j.Val(jv), k.Val(kv)) *
						at(t, b, k.Val(kv), j.Val(jv), l.Val(lv))
				}
			}
			assert.InDelta(t, want, at(t, c, i.Val(iv), l.Val(lv)), 1e-9)
		}
	}
}

func TestContractMatrixShaped(t *testing.T) {
	rng := newRNG()
	i := index.New("i", 2, index.Site)
	j := index.New("j", 3, index.Link)
	k := index.New("k", 2, index.Site)
	a := randomTensor(t, rng, i, j)
	b := randomTensor(t, rng, j, k)

	before := productCount(t, prodstats.PathMatrix)
	c, err := a.Contract(b)
	require.NoError(t, err)
	assert.Equal(t, before+1, productCount(t, prodstats.PathMatrix))

	am, err := a.ToMatrix(i, j)
	require.NoError(t, err)
	bm, err := b.ToMatrix(j, k)
	require.NoError(t, err)
	var want mat.Dense
	want.Mul(am, bm)
	got, err := c.ToMatrix(i, k)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(&want, got, tol))
}

func TestContractScalar(t *testing.T) {
	i := index.New("i", 3, index.Site)
	x, err := FromVector(i, []float64{1, 2, 3})
	require.NoError(t, err)

	y, err := x.Contract(Scalar(-2))
	require.NoError(t, err)
	assert.True(t, y.SharesStorage(x))
	assert.Equal(t, -6.0, at(t, y, i.Val(2)))

	z, err := Scalar(4).Contract(x)
	require.NoError(t, err)
	assert.Equal(t, 8.0, at(t, z, i.Val(1)))
}

func TestContractAssociative(t *testing.T) {
	rng := newRNG()
	i := index.New("i", 3, index.Site)
	j := index.New("j", 4, index.Link)
	k := index.New("k", 2, index.Link)
	l := index.New("l", 5, index.Site)
	a := randomTensor(t, rng, i, j)
	b := randomTensor(t, rng, k, j)
	c := randomTensor(t, rng, l, k)

	ab, err := a.Contract(b)
	require.NoError(t, err)
	left, err := ab.Contract(c)
	require.NoError(t, err)

	bc, err := b.Contract(c)
	require.NoError(t, err)
	right, err := a.Contract(bc)
	require.NoError(t, err)

	assertSameTensor(t, left, right)
}

func TestContractRankOverflow(t *testing.T) {
	var la, lb []index.Index
	for range 5 {
		la = append(la, index.New("a", 2, index.Link))
		lb = append(lb, index.New("b", 2, index.Link))
	}
	a, err := New(la...)
	require.NoError(t, err)
	b, err := New(lb...)
	require.NoError(t, err)

	_, err = a.Contract(b)
	assert.True(t, errors.Is(err, ErrTooManyIndices))

	_, err = New(append(la, lb...)...)
	assert.True(t, errors.Is(err, index.ErrTooManyIndices))
}

func TestNonContract(t *testing.T) {
	rng := newRNG()
	i := index.New("i", 2, index.Site)
	j := index.New("j", 3, index.Link)
	k := index.New("k", 4, index.Site)
	a := randomTensor(t, rng, i, j)
	b := randomTensor(t, rng, j, k)

	c, err := a.NonContract(b)
	require.NoError(t, err)
	require.Equal(t, 3, c.R())
	assert.True(t, c.Index(2).Equal(j))
	for iv := range 2 {
		for jv := range 3 {
			for kv := range 4 {
				want := at(t, a, i.Val(iv), j.Val(jv)) * at(t, b, j.Val(jv), k.Val(kv))
				assert.InDelta(t, want, at(t, c, i.Val(iv), j.Val(jv), k.Val(kv)), tol)
			}
		}
	}
}

func TestAdd(t *testing.T) {
	rng := newRNG()
	i := index.New("i", 3, index.Site)
	j := index.New("j", 4, index.Link)
	a := randomTensor(t, rng, i, j)
	b := randomTensor(t, rng, j, i).Scaled(1e5)
	c := randomTensor(t, rng, i, j).Scaled(-1e-3)

	ab, err := a.Add(b)
	require.NoError(t, err)
	ba, err := b.Add(a)
	require.NoError(t, err)
	assertSameTensor(t, ab, ba)
	assert.True(t, ba.Index(0).Equal(j))

	for iv := range 3 {
		for jv := range 4 {
			want := at(t, a, i.Val(iv), j.Val(jv)) + at(t, b, i.Val(iv), j.Val(jv))
			assert.InDelta(t, want, at(t, ab, i.Val(iv), j.Val(jv)), 1e-8)
		}
	}

	abc, err := ab.Add(c)
	require.NoError(t, err)
	bc, err := b.Add(c)
	require.NoError(t, err)
	abc2, err := a.Add(bc)
	require.NoError(t, err)
	for iv := range 3 {
		for jv := range 4 {
			assert.InDelta(t, at(t, abc, i.Val(iv), j.Val(jv)), at(t, abc2, i.Val(iv), j.Val(jv)), 1e-8)
		}
	}

	zero, err := a.Sub(a)
	require.NoError(t, err)
	n, err := zero.Norm()
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = a.Add(randomTensor(t, rng, i))
	assert.True(t, errors.Is(err, ErrIncompatibleIndices))
}

func TestComplex(t *testing.T) {
	z1, err := MakeComplex(Scalar(1), Scalar(2))
	require.NoError(t, err)
	z2, err := MakeComplex(Scalar(3), Scalar(4))
	require.NoError(t, err)
	assert.True(t, z1.IsComplex())

	p, err := z1.Contract(z2)
	require.NoError(t, err)
	v, err := p.ToComplex()
	require.NoError(t, err)
	assert.InDelta(t, -5, real(v), tol)
	assert.InDelta(t, 10, imag(v), tol)

	bk, err := BraKet(z1, z1)
	require.NoError(t, err)
	assert.InDelta(t, 5, real(bk), tol)
	assert.InDelta(t, 0, imag(bk), tol)

	re, err := RealPart(z1)
	require.NoError(t, err)
	rv, err := re.ToReal()
	require.NoError(t, err)
	assert.InDelta(t, 1, rv, tol)
	im, err := ImagPart(z1)
	require.NoError(t, err)
	iv, err := im.ToReal()
	require.NoError(t, err)
	assert.InDelta(t, 2, iv, tol)

	cz, err := Conj(z1)
	require.NoError(t, err)
	cv, err := cz.ToComplex()
	require.NoError(t, err)
	assert.InDelta(t, 1, real(cv), tol)
	assert.InDelta(t, -2, imag(cv), tol)

	// Real operands pass through untouched.
	x := Scalar(7)
	im0, err := ImagPart(x)
	require.NoError(t, err)
	v0, err := im0.ToReal()
	require.NoError(t, err)
	assert.Zero(t, v0)
}

func TestComplexTensorProduct(t *testing.T) {
	rng := newRNG()
	i := index.New("i", 3, index.Site)
	j := index.New("j", 2, index.Link)
	ar, ai := randomTensor(t, rng, i, j), randomTensor(t, rng, i, j)
	br, bi := randomTensor(t, rng, j), randomTensor(t, rng, j)
	a, err := MakeComplex(ar, ai)
	require.NoError(t, err)
	b, err := MakeComplex(br, bi)
	require.NoError(t, err)

	c, err := a.Contract(b)
	require.NoError(t, err)
	re, err := RealPart(c)
	require.NoError(t, err)
	im, err := ImagPart(c)
	require.NoError(t, err)
	for iv := range 3 {
		var wr, wi float64
		for jv := range 2 {
			x := complex(at(t, ar, i.Val(iv), j.Val(jv)), at(t, ai, i.Val(iv), j.Val(jv)))
			y := complex(at(t, br, j.Val(jv)), at(t, bi, j.Val(jv)))
			wr += real(x * y)
			wi += imag(x * y)
		}
		assert.InDelta(t, wr, at(t, re, i.Val(iv)), tol)
		assert.InDelta(t, wi, at(t, im, i.Val(iv)), tol)
	}
}

func TestScaleOutNorm(t *testing.T) {
	i := index.New("i", 2, index.Site)
	x, err := FromVector(i, []float64{3, 4})
	require.NoError(t, err)

	x.ScaleOutNorm()
	assert.InDelta(t, 1, x.NormNoScale(), tol)
	f, err := x.Scale().Real()
	require.NoError(t, err)
	assert.InDelta(t, 5, f, tol)
	assert.InDelta(t, 3, at(t, x, i.Val(0)), tol)

	require.NoError(t, x.ScaleTo(scale.One()))
	assert.InDelta(t, 4, x.RawData()[1], tol)
	assert.True(t, errors.Is(x.ScaleTo(scale.Zero()), ErrZeroScale))

	sum, err := x.SumEls()
	require.NoError(t, err)
	assert.InDelta(t, 7, sum, tol)
}

func TestScaleLimits(t *testing.T) {
	i := index.New("i", 2, index.Site)
	x, err := FromVector(i, []float64{3, 4})
	require.NoError(t, err)

	big := x.ScaledBy(scale.New(800, 1))
	_, err = big.Norm()
	assert.True(t, errors.Is(err, ErrTooBig))
	assert.InDelta(t, 800+math.Log(5), big.NormLog().LogNum(), 1e-9)

	tiny := x.ScaledBy(scale.New(-800, 1))
	v, err := tiny.At(i.Val(0))
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestDiagContract(t *testing.T) {
	rng := newRNG()
	a := index.New("a", 3, index.Link)
	b := index.New("b", 3, index.Link)
	c := index.New("c", 2, index.Site)
	g, err := NewDiag(a, b, []float64{2, -1, 0.5})
	require.NoError(t, err)
	g.MulScale(scale.FromReal(3))

	x := randomTensor(t, rng, c, b)
	fast, err := g.Contract(x)
	require.NoError(t, err)
	dense, err := g.Dense()
	require.NoError(t, err)
	slow, err := dense.Contract(x)
	require.NoError(t, err)
	assert.True(t, fast.HasIndex(a))
	assertSameTensor(t, slow, fast)

	inv, err := g.PseudoInverted(1e-12)
	require.NoError(t, err)
	vals, err := inv.Values()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1.0 / 6, -1.0 / 3, 2.0 / 3}, vals, tol)

	_, err = NewDiag(a, index.New("d", 2, index.Link), []float64{1, 2, 3})
	assert.True(t, errors.Is(err, ErrDimMismatch))
}

func TestMatrixRoundTrip(t *testing.T) {
	i := index.New("i", 2, index.Site)
	j := index.New("j", 3, index.Link)
	x, err := New(i, j)
	require.NoError(t, err)
	require.NoError(t, x.Assign([]index.Index{i, j}, 1, 2, 3, 4, 5, 6))

	m, err := x.ToMatrix(i, j)
	require.NoError(t, err)
	assert.Equal(t, 6.0, m.At(1, 2))
	mt, err := x.ToMatrix(j, i)
	require.NoError(t, err)
	assert.Equal(t, 6.0, mt.At(2, 1))

	y, err := FromMatrixColumns(i, j, m)
	require.NoError(t, err)
	assertSameTensor(t, x, y)

	k := index.New("k", 2, index.Link)
	z, err := FromMatrixRows(k, j, mt.T())
	require.NoError(t, err)
	assert.Equal(t, 4.0, at(t, z, k.Val(1), j.Val(0)))

	_, err = randomTensor(t, newRNG(), i, j, k).ToMatrix(i, j)
	assert.True(t, errors.Is(err, ErrInvalidIndex))
}

func TestCodecRoundTrip(t *testing.T) {
	i := index.New("i", 3, index.Site)
	j := index.New("j", 2, index.Link).Primed(2)
	x := randomTensor(t, newRNG(), i, j).ScaledBy(scale.New(-1234.5, -1))

	var buf bytes.Buffer
	require.NoError(t, x.Write(&buf))
	y, err := Read(&buf)
	require.NoError(t, err)
	assert.True(t, x.Indices().Equal(y.Indices()))
	assert.True(t, x.Scale().Equal(y.Scale()))
	assert.Equal(t, x.RawData(), y.RawData())
	assert.Equal(t, 2, y.Index(1).PrimeLevel())

	buf.Reset()
	require.NoError(t, (&Tensor{}).Write(&buf))
	null, err := Read(&buf)
	require.NoError(t, err)
	assert.True(t, null.IsNull())
}

// shortStream encodes a header announcing m elements followed by only k.
func shortStream(t *testing.T, m, k int) []byte {
	t.Helper()
	i := index.New("i", m, index.Link)
	var buf bytes.Buffer
	buf.WriteByte(0)
	require.NoError(t, index.MustIndexSet(i).Write(&buf))
	require.NoError(t, scale.One().Write(&buf))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, int32(m)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, make([]float64, k)))
	return buf.Bytes()
}

func TestReadTruncatedBuffer(t *testing.T) {
	data := shortStream(t, 1<<30, 10)
	_, err := Read(bytes.NewReader(data))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	// A reader that does not report its length fails at the first missing chunk.
	_, err = Read(io.MultiReader(bytes.NewReader(data)))
	assert.Error(t, err)

	full := shortStream(t, 3*readChunk+5, 3*readChunk+5)
	x, err := Read(io.MultiReader(bytes.NewReader(full)))
	require.NoError(t, err)
	assert.Len(t, x.RawData(), 3*readChunk+5)
}
