package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"slices"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/tensor"
)

// WriterOptions configures a Writer.
type WriterOptions struct {
	// Compress stores the data section zstd-compressed.
	Compress bool
	// Level is the zstd encoder level; zero means zstd.SpeedDefault.
	Level zstd.EncoderLevel
}

// Writer writes one .tnet container.
type Writer struct {
	w      io.Writer
	closer io.Closer
	opts   WriterOptions
	done   bool
}

// NewWriter returns a writer that emits a container to w.
func NewWriter(w io.Writer, opts WriterOptions) *Writer {
	return &Writer{w: w, opts: opts}
}

// Create creates the file at path and returns a writer for it.
func Create(path string, opts WriterOptions) (*Writer, error) {
	//nolint:gosec // G304: the path is supplied by the caller on purpose
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create container")
	}
	return &Writer{w: f, closer: f, opts: opts}, nil
}

// Close closes the underlying file, if the writer opened one.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	c := w.closer
	w.closer = nil
	return c.Close()
}

// WriteTensors writes tensors and metadata as a complete container. A
// writer accepts a single call.
func (w *Writer) WriteTensors(tensors map[string]*tensor.Tensor, metadata map[string]string) error {
	if w.done {
		return errors.New("serialization: container already written")
	}
	w.done = true

	names := make([]string, 0, len(tensors))
	for name := range tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	slices.Sort(names)

	header := Header{
		FormatVersion: FormatVersion,
		CreatedAt:     time.Now().UTC(),
		Tensors:       make([]TensorMeta, 0, len(names)),
		Metadata:      metadata,
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	var data bytes.Buffer
	for _, name := range names {
		t := tensors[name]
		if t == nil || t.IsNull() {
			return errors.Wrapf(tensor.ErrNullTensor, "tensor %q", name)
		}
		off := int64(data.Len())
		if err := t.Write(&data); err != nil {
			return errors.Wrapf(err, "encode tensor %q", name)
		}
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:    name,
			Indices: indexNames(t),
			Complex: t.IsComplex(),
			Offset:  off,
			Size:    int64(data.Len()) - off,
		})
	}
	raw := data.Bytes()
	header.DataSize = int64(len(raw))
	checksum := ComputeChecksum(raw)

	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	stored := raw
	if w.opts.Compress {
		level := w.opts.Level
		if level == 0 {
			level = zstd.SpeedDefault
		}
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
		if err != nil {
			return errors.Wrap(err, "create zstd encoder")
		}
		stored = enc.EncodeAll(raw, nil)
		if err := enc.Close(); err != nil {
			return errors.Wrap(err, "close zstd encoder")
		}
		flags |= FlagCompressed
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "marshal header")
	}

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(stored)))
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	pad := padding(int64(FixedHeaderSize + len(headerJSON)))
	for _, part := range [][]byte{fixed, headerJSON, make([]byte, pad), stored} {
		if _, err := w.w.Write(part); err != nil {
			return errors.Wrap(err, "write container")
		}
	}
	return nil
}

func indexNames(t *tensor.Tensor) []string {
	is := t.Indices()
	out := make([]string, 0, is.R())
	for _, i := range is.Indices() {
		if i.Type() == index.ReIm {
			continue
		}
		out = append(out, i.String())
	}
	return out
}
