package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/born-ml/tnet/internal/tensor"
)

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	SkipChecksumValidation bool
	ValidationLevel        ValidationLevel
}

// Reader gives access to the tensors of a .tnet container held in memory.
type Reader struct {
	header Header
	flags  uint32
	data   []byte // uncompressed data section
}

// Open reads the container at path with strict validation.
func Open(path string) (*Reader, error) {
	return OpenWithOptions(path, ReaderOptions{ValidationLevel: ValidationStrict})
}

// OpenWithOptions reads the container at path.
func OpenWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	//nolint:gosec // G304: the path is supplied by the caller on purpose
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open container")
	}
	defer f.Close()
	r, err := NewReader(f, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return r, nil
}

// NewReader reads a complete container from r.
func NewReader(r io.Reader, opts ReaderOptions) (*Reader, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, errors.Wrap(err, "read fixed header")
	}
	if string(fixed[0:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(fixed[4:8]); v != FormatVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "got %d, expected %d", v, FormatVersion)
	}
	rd := &Reader{flags: binary.LittleEndian.Uint32(fixed[8:12])}
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	storedSize := binary.LittleEndian.Uint64(fixed[24:32])
	var checksum [32]byte
	copy(checksum[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])
	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	if err := json.Unmarshal(headerJSON, &rd.header); err != nil {
		return nil, errors.Wrap(err, "parse header")
	}
	if err := ValidateHeader(&rd.header, opts.ValidationLevel); err != nil {
		return nil, errors.Wrap(err, "validate header")
	}

	pad := padding(int64(FixedHeaderSize) + int64(headerSize))
	if _, err := io.CopyN(io.Discard, r, pad); err != nil {
		return nil, errors.Wrap(err, "skip padding")
	}
	var stored bytes.Buffer
	if n, err := io.Copy(&stored, io.LimitReader(r, int64(storedSize))); err != nil {
		return nil, errors.Wrap(err, "read data")
	} else if uint64(n) != storedSize {
		return nil, errors.Wrapf(ErrTruncated, "%d of %d bytes", n, storedSize)
	}

	rd.data = stored.Bytes()
	if rd.flags&FlagCompressed != 0 {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(rd.header.DataSize)+1<<20))
		if err != nil {
			return nil, errors.Wrap(err, "create zstd decoder")
		}
		defer dec.Close()
		if rd.data, err = dec.DecodeAll(rd.data, nil); err != nil {
			return nil, errors.Wrap(err, "decompress data")
		}
	}
	if int64(len(rd.data)) != rd.header.DataSize {
		return nil, errors.Wrapf(ErrTruncated, "data section has %d bytes, header says %d", len(rd.data), rd.header.DataSize)
	}
	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(rd.data), checksum); err != nil {
			return nil, err
		}
	}
	return rd, nil
}

// Header returns the parsed JSON header.
func (r *Reader) Header() Header { return r.header }

// Flags returns the fixed-header flags.
func (r *Reader) Flags() uint32 { return r.flags }

// Metadata returns the metadata map.
func (r *Reader) Metadata() map[string]string { return r.header.Metadata }

// Names returns the tensor names in file order.
func (r *Reader) Names() []string {
	out := make([]string, len(r.header.Tensors))
	for n, t := range r.header.Tensors {
		out[n] = t.Name
	}
	return out
}

// Tensor decodes the tensor called name.
func (r *Reader) Tensor(name string) (*tensor.Tensor, error) {
	meta, ok := r.header.Find(name)
	if !ok {
		return nil, errors.Wrapf(ErrTensorNotFound, "%q", name)
	}
	if meta.Offset < 0 || meta.Size < 0 || meta.Offset+meta.Size > int64(len(r.data)) {
		return nil, errors.Wrapf(ErrTruncated, "tensor %q", name)
	}
	t, err := tensor.Read(bytes.NewReader(r.data[meta.Offset : meta.Offset+meta.Size]))
	if err != nil {
		return nil, errors.Wrapf(err, "decode tensor %q", name)
	}
	return t, nil
}

// Tensors decodes every tensor.
func (r *Reader) Tensors() (map[string]*tensor.Tensor, error) {
	out := make(map[string]*tensor.Tensor, len(r.header.Tensors))
	for _, meta := range r.header.Tensors {
		t, err := r.Tensor(meta.Name)
		if err != nil {
			return nil, err
		}
		out[meta.Name] = t
	}
	return out, nil
}
