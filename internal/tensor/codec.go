package tensor

import (
	"encoding/binary"
	"io"
	"slices"

	"github.com/pkg/errors"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/scale"
)

// Write encodes t as a null-flag byte followed, for a non-null tensor, by
// the index set, the scale, an int32 element count and the elements as
// little-endian float64 in buffer order. Reading it back reproduces the
// tensor bit for bit.
func (t *Tensor) Write(w io.Writer) error {
	null := byte(0)
	if t.IsNull() {
		null = 1
	}
	if _, err := w.Write([]byte{null}); err != nil {
		return errors.Wrap(err, "write null flag")
	}
	if null == 1 {
		return nil
	}
	if err := t.is.Write(w); err != nil {
		return err
	}
	if err := t.scale.Write(w); err != nil {
		return err
	}
	d := t.data()
	if err := binary.Write(w, binary.LittleEndian, int32(len(d))); err != nil {
		return errors.Wrap(err, "write buffer length")
	}
	if err := binary.Write(w, binary.LittleEndian, d); err != nil {
		return errors.Wrap(err, "write buffer")
	}
	return nil
}

// Read decodes a tensor written by Tensor.Write.
func Read(r io.Reader) (*Tensor, error) {
	var null [1]byte
	if _, err := io.ReadFull(r, null[:]); err != nil {
		return nil, errors.Wrap(err, "read null flag")
	}
	if null[0] == 1 {
		return &Tensor{}, nil
	}
	is, err := index.ReadIndexSet(r)
	if err != nil {
		return nil, err
	}
	sc, err := scale.Read(r)
	if err != nil {
		return nil, err
	}
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, errors.Wrap(err, "read buffer length")
	}
	if int(n) != is.Dim() {
		return nil, errors.Wrapf(ErrDimMismatch, "buffer of %d elements for %s", n, is)
	}
	d, err := readBuffer(r, int(n))
	if err != nil {
		return nil, err
	}
	return newTensor(is, storageOf(d), sc), nil
}

// readChunk caps each allocation of readBuffer, so a corrupt length costs
// at most one chunk past the end of the stream.
const readChunk = 1 << 16

// readBuffer reads n float64 values. Readers that report their remaining
// length, like bytes.Reader, are checked up front.
func readBuffer(r io.Reader, n int) ([]float64, error) {
	if l, ok := r.(interface{ Len() int }); ok && n > l.Len()/8 {
		return nil, errors.Wrapf(io.ErrUnexpectedEOF, "buffer of %d elements with %d bytes left", n, l.Len())
	}
	d := make([]float64, 0, min(n, readChunk))
	for len(d) < n {
		k := min(n-len(d), readChunk)
		d = slices.Grow(d, k)[:len(d)+k]
		if err := binary.Read(r, binary.LittleEndian, d[len(d)-k:]); err != nil {
			return nil, errors.Wrap(err, "read buffer")
		}
	}
	return d, nil
}
