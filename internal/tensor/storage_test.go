package tensor

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tnet/internal/index"
)

func TestValueCopyIsolated(t *testing.T) {
	i := index.New("i", 3, index.Site)
	a, err := FromVector(i, []float64{1, 2, 3})
	require.NoError(t, err)

	b := *a
	require.NoError(t, b.Set(42, i.Val(0)))
	assert.Equal(t, 1.0, at(t, a, i.Val(0)))
	assert.Equal(t, 42.0, at(t, &b, i.Val(0)))

	c := *a
	assert.Equal(t, 2.0, at(t, &c, i.Val(1)))
	require.NoError(t, a.Set(7, i.Val(1)))
	assert.Equal(t, 2.0, at(t, &c, i.Val(1)))
	assert.Equal(t, 7.0, at(t, a, i.Val(1)))
}

func copyOfVector(t *testing.T, i index.Index) Tensor {
	a, err := FromVector(i, []float64{1, 2, 3})
	require.NoError(t, err)
	return *a
}

func TestValueCopySurvivesGC(t *testing.T) {
	i := index.New("i", 3, index.Site)
	b := copyOfVector(t, i)
	for range 3 {
		runtime.GC()
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, 2.0, at(t, &b, i.Val(1)))
	require.NoError(t, b.Set(5, i.Val(1)))
	assert.Equal(t, 5.0, at(t, &b, i.Val(1)))
}

func TestReattachKeepsRefsBalanced(t *testing.T) {
	i := index.New("i", 3, index.Site)
	x, err := FromVector(i, []float64{1, 2, 3})
	require.NoError(t, err)
	shared := x.storage()

	var last *storage
	func() {
		y := x.Clone()
		o := y.own
		for range 50 {
			last = storageOf(make([]float64, 3))
			y.attach(last)
			assert.Same(t, o, y.own)
		}
		for range 20 {
			_ = x.Clone()
		}
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		return shared.refs.Load() == 1 && last.refs.Load() == 0
	}, 5*time.Second, 10*time.Millisecond)

	runtime.GC()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), shared.refs.Load())
	assert.Equal(t, int32(0), last.refs.Load())
	assert.Equal(t, 3.0, at(t, x, i.Val(2)))
}
