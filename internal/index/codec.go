package index

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	// maxNameLen bounds names read back from a stream.
	maxNameLen = 1 << 16
	// maxStreamDim bounds the element count of an index set read back
	// from a stream; buffers are written with an int32 length.
	maxStreamDim = math.MaxInt32
)

// Write encodes i as: 16-byte identity, uint32 name length, name bytes,
// int32 dimension, int32 type, int32 prime level (little endian).
func (i Index) Write(w io.Writer) error {
	if _, err := w.Write(i.id[:]); err != nil {
		return errors.Wrap(err, "write index id")
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(i.name))); err != nil {
		return errors.Wrap(err, "write index name length")
	}
	if _, err := io.WriteString(w, i.name); err != nil {
		return errors.Wrap(err, "write index name")
	}
	fields := [3]int32{int32(i.m), int32(i.typ), int32(i.plev)}
	if err := binary.Write(w, binary.LittleEndian, fields); err != nil {
		return errors.Wrap(err, "write index fields")
	}
	return nil
}

// ReadIndex decodes an Index written by Index.Write.
func ReadIndex(r io.Reader) (Index, error) {
	var i Index
	if _, err := io.ReadFull(r, i.id[:]); err != nil {
		return Index{}, errors.Wrap(err, "read index id")
	}
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return Index{}, errors.Wrap(err, "read index name length")
	}
	if n > maxNameLen {
		return Index{}, errors.Errorf("index name length %d exceeds %d", n, maxNameLen)
	}
	name := make([]byte, n)
	if _, err := io.ReadFull(r, name); err != nil {
		return Index{}, errors.Wrap(err, "read index name")
	}
	var fields [3]int32
	if err := binary.Read(r, binary.LittleEndian, &fields); err != nil {
		return Index{}, errors.Wrap(err, "read index fields")
	}
	i.name = string(name)
	i.m = int(fields[0])
	i.typ = Type(fields[1])
	i.plev = int(fields[2])
	if i.id == uuid.Nil || i.m < 1 {
		return Index{}, errors.Errorf("invalid index %q with dimension %d", i.name, i.m)
	}
	return i, nil
}

// Write encodes s as a uint32 count followed by each index in order.
func (s IndexSet) Write(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s.inds))); err != nil {
		return errors.Wrap(err, "write index set size")
	}
	for _, i := range s.inds {
		if err := i.Write(w); err != nil {
			return err
		}
	}
	return nil
}

// ReadIndexSet decodes an IndexSet written by IndexSet.Write.
func ReadIndexSet(r io.Reader) (IndexSet, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return IndexSet{}, errors.Wrap(err, "read index set size")
	}
	if n > MaxRank {
		return IndexSet{}, errors.Wrapf(ErrTooManyIndices, "stream holds %d", n)
	}
	inds := make([]Index, n)
	dim := 1
	for k := range inds {
		i, err := ReadIndex(r)
		if err != nil {
			return IndexSet{}, err
		}
		if i.m > maxStreamDim/dim {
			return IndexSet{}, errors.Errorf("index set in stream exceeds %d elements", maxStreamDim)
		}
		dim *= i.m
		inds[k] = i
	}
	return NewIndexSet(inds...)
}
