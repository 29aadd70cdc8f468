package serialization

import (
	"bytes"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/tensor"
)

func sampleTensors(t *testing.T) map[string]*tensor.Tensor {
	t.Helper()
	rng := rand.New(rand.NewPCG(1, 2))
	i := index.New("i", 4, index.Site)
	j := index.New("j", 3, index.Link)
	a, err := tensor.New(i, j)
	require.NoError(t, err)
	require.NoError(t, a.Randomize(rng))
	b, err := tensor.New(j.Primed(1))
	require.NoError(t, err)
	require.NoError(t, b.Randomize(rng))
	c, err := tensor.MakeComplex(b, b.Scaled(-2))
	require.NoError(t, err)
	return map[string]*tensor.Tensor{"a": a, "b": b, "c": c}
}

func encode(t *testing.T, tensors map[string]*tensor.Tensor, opts WriterOptions) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, opts).WriteTensors(tensors, map[string]string{"model": "heisenberg"}))
	return buf.Bytes()
}

func assertSameEncoding(t *testing.T, want, got *tensor.Tensor) {
	t.Helper()
	var wb, gb bytes.Buffer
	require.NoError(t, want.Write(&wb))
	require.NoError(t, got.Write(&gb))
	assert.Equal(t, wb.Bytes(), gb.Bytes())
}

func TestRoundTrip(t *testing.T) {
	tensors := sampleTensors(t)
	for _, compress := range []bool{false, true} {
		data := encode(t, tensors, WriterOptions{Compress: compress})
		r, err := NewReader(bytes.NewReader(data), ReaderOptions{})
		require.NoError(t, err)

		assert.Equal(t, compress, r.Flags()&FlagCompressed != 0)
		assert.Equal(t, []string{"a", "b", "c"}, r.Names())
		assert.Equal(t, "heisenberg", r.Metadata()["model"])
		h := r.Header()
		meta, ok := h.Find("c")
		require.True(t, ok)
		assert.True(t, meta.Complex)
		assert.Len(t, meta.Indices, 1)

		all, err := r.Tensors()
		require.NoError(t, err)
		for name, want := range tensors {
			assertSameEncoding(t, want, all[name])
		}
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.tnet")
	w, err := Create(path, WriterOptions{Compress: true})
	require.NoError(t, err)
	tensors := sampleTensors(t)
	require.NoError(t, w.WriteTensors(tensors, nil))
	assert.Error(t, w.WriteTensors(tensors, nil))
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	got, err := r.Tensor("a")
	require.NoError(t, err)
	assertSameEncoding(t, tensors["a"], got)

	_, err = r.Tensor("missing")
	assert.True(t, errors.Is(err, ErrTensorNotFound))
}

func TestCorruption(t *testing.T) {
	data := encode(t, sampleTensors(t), WriterOptions{})

	bad := bytes.Clone(data)
	bad[len(bad)-1] ^= 0xff
	_, err := NewReader(bytes.NewReader(bad), ReaderOptions{})
	assert.True(t, errors.Is(err, ErrChecksumMismatch))
	_, err = NewReader(bytes.NewReader(bad), ReaderOptions{SkipChecksumValidation: true})
	assert.NoError(t, err)

	bad = bytes.Clone(data)
	copy(bad, "BORN")
	_, err = NewReader(bytes.NewReader(bad), ReaderOptions{})
	assert.True(t, errors.Is(err, ErrInvalidMagic))

	bad = bytes.Clone(data)
	bad[4] = 9
	_, err = NewReader(bytes.NewReader(bad), ReaderOptions{})
	assert.True(t, errors.Is(err, ErrUnsupportedVersion))

	_, err = NewReader(bytes.NewReader(data[:len(data)-8]), ReaderOptions{})
	assert.True(t, errors.Is(err, ErrTruncated))
}

func TestValidateTensorName(t *testing.T) {
	assert.NoError(t, ValidateTensorName("site.3"))
	for _, name := range []string{"", "../x", "a/b", `a\b`, "a\x00"} {
		var verr *ValidationError
		assert.ErrorAs(t, ValidateTensorName(name), &verr, "%q", name)
	}

	var buf bytes.Buffer
	err := NewWriter(&buf, WriterOptions{}).WriteTensors(map[string]*tensor.Tensor{"a/b": sampleTensors(t)["a"]}, nil)
	assert.Error(t, err)
}

func TestValidateLayout(t *testing.T) {
	ok := []TensorMeta{{Name: "a", Offset: 0, Size: 10}, {Name: "b", Offset: 10, Size: 5}}
	assert.NoError(t, ValidateLayout(ok, 15))
	assert.NoError(t, ValidateLayout(nil, 0))

	tests := map[string]struct {
		tensors []TensorMeta
		kind    string
	}{
		"overlap":  {[]TensorMeta{{Name: "a", Offset: 0, Size: 10}, {Name: "b", Offset: 5, Size: 10}}, "overlap"},
		"gap":      {[]TensorMeta{{Name: "a", Offset: 0, Size: 5}, {Name: "b", Offset: 10, Size: 5}}, "gap"},
		"short":    {[]TensorMeta{{Name: "a", Offset: 0, Size: 10}}, "gap"},
		"bounds":   {[]TensorMeta{{Name: "a", Offset: 0, Size: 20}}, "out_of_bounds"},
		"unsorted": {[]TensorMeta{{Name: "b", Offset: 0, Size: 10}, {Name: "a", Offset: 10, Size: 5}}, "unsorted"},
		"empty":    {[]TensorMeta{{Name: "a", Offset: 0, Size: 0}}, "bad_size"},
	}
	for name, tt := range tests {
		var verr *ValidationError
		require.ErrorAs(t, ValidateLayout(tt.tensors, 15), &verr, name)
		assert.Equal(t, tt.kind, verr.Kind, name)
	}
}

func TestValidateHeader(t *testing.T) {
	h := &Header{Tensors: []TensorMeta{{Name: "a", Size: 1}, {Name: "a", Offset: 1, Size: 1}}, DataSize: 2}
	assert.Error(t, ValidateHeader(h, ValidationNormal))
	assert.NoError(t, ValidateHeader(h, ValidationNone))

	wide := &Header{Tensors: []TensorMeta{{
		Name:    "w",
		Indices: []string{"a", "b", "c", "d", "e", "f", "g", "h"},
		Complex: true,
		Size:    1,
	}}, DataSize: 1}
	var verr *ValidationError
	require.ErrorAs(t, ValidateHeader(wide, ValidationNormal), &verr)
	assert.Equal(t, "rank", verr.Kind)

	wide.Tensors[0].Complex = false
	assert.NoError(t, ValidateHeader(wide, ValidationStrict))
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "none.tnet"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
