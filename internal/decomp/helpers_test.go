package decomp

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/tensor"
)

func newRNG() *rand.Rand { return rand.New(rand.NewPCG(3, 5)) }

func randomTensor(t *testing.T, rng *rand.Rand, inds ...index.Index) *tensor.Tensor {
	t.Helper()
	x, err := tensor.New(inds...)
	require.NoError(t, err)
	require.NoError(t, x.Randomize(rng))
	return x
}

// matrixTensor builds a tensor over (rows, cols) from row-major values.
func matrixTensor(t *testing.T, rows, cols index.Index, vals [][]float64) *tensor.Tensor {
	t.Helper()
	x, err := tensor.New(rows, cols)
	require.NoError(t, err)
	for r, row := range vals {
		for c, v := range row {
			require.NoError(t, x.Set(v, rows.Val(r), cols.Val(c)))
		}
	}
	return x
}

func contract(t *testing.T, a *tensor.Tensor, bs ...*tensor.Tensor) *tensor.Tensor {
	t.Helper()
	var err error
	for _, b := range bs {
		a, err = a.Contract(b)
		require.NoError(t, err)
	}
	return a
}

func conj(t *testing.T, a *tensor.Tensor) *tensor.Tensor {
	t.Helper()
	c, err := tensor.Conj(a)
	require.NoError(t, err)
	return c
}

// assertClose checks that want and got agree over the same indices.
func assertClose(t *testing.T, want, got *tensor.Tensor) {
	t.Helper()
	diff, err := got.Sub(want)
	require.NoError(t, err)
	n, err := diff.Norm()
	require.NoError(t, err)
	assert.Less(t, n, 1e-8, "want %s\ngot %s", want, got)
}

// assertIdentity checks that x over (i, j) with i.M() == j.M() is the
// identity.
func assertIdentity(t *testing.T, x *tensor.Tensor, i, j index.Index) {
	t.Helper()
	id, err := tensor.Diagonal(i, j, 1)
	require.NoError(t, err)
	assertClose(t, id, x)
}
