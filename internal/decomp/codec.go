package decomp

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/born-ml/tnet/internal/scale"
)

// maxBonds bounds the bond count accepted by ReadWorker.
const maxBonds = 1 << 24

// Write encodes the worker: the bond count, the truncation errors, the
// options, and the kept weights of every bond, all little endian.
func (w *Worker) Write(out io.Writer) error {
	le := binary.LittleEndian
	if err := binary.Write(out, le, int32(w.n)); err != nil {
		return errors.Wrap(err, "write bond count")
	}
	if err := binary.Write(out, le, w.truncErr); err != nil {
		return errors.Wrap(err, "write truncation errors")
	}
	o := w.opts
	if err := binary.Write(out, le, o.Cutoff); err != nil {
		return errors.Wrap(err, "write cutoff")
	}
	if err := binary.Write(out, le, [3]int32{int32(o.MinDim), int32(o.MaxDim), int32(o.OrigDim)}); err != nil {
		return errors.Wrap(err, "write dimensions")
	}
	flags := []bool{o.UseOrigDim, o.ShowEigs, o.RelativeCutoff, o.AbsoluteCutoff, o.Truncate}
	if err := binary.Write(out, le, flags); err != nil {
		return errors.Wrap(err, "write flags")
	}
	if err := o.RefNorm.Write(out); err != nil {
		return err
	}
	for b, e := range w.eigsKept {
		if err := binary.Write(out, le, int32(len(e))); err != nil {
			return errors.Wrapf(err, "write bond %d", b)
		}
		if err := binary.Write(out, le, e); err != nil {
			return errors.Wrapf(err, "write bond %d", b)
		}
	}
	return nil
}

// ReadWorker decodes a worker written by Worker.Write.
func ReadWorker(in io.Reader) (*Worker, error) {
	le := binary.LittleEndian
	var n int32
	if err := binary.Read(in, le, &n); err != nil {
		return nil, errors.Wrap(err, "read bond count")
	}
	if n < 0 || n > maxBonds {
		return nil, errors.Wrapf(ErrBond, "bond count %d", n)
	}
	var o Options
	w := NewWorker(int(n), o)
	if err := binary.Read(in, le, w.truncErr); err != nil {
		return nil, errors.Wrap(err, "read truncation errors")
	}
	if err := binary.Read(in, le, &o.Cutoff); err != nil {
		return nil, errors.Wrap(err, "read cutoff")
	}
	var dims [3]int32
	if err := binary.Read(in, le, &dims); err != nil {
		return nil, errors.Wrap(err, "read dimensions")
	}
	o.MinDim, o.MaxDim, o.OrigDim = int(dims[0]), int(dims[1]), int(dims[2])
	var flags [5]bool
	if err := binary.Read(in, le, &flags); err != nil {
		return nil, errors.Wrap(err, "read flags")
	}
	o.UseOrigDim, o.ShowEigs, o.RelativeCutoff, o.AbsoluteCutoff, o.Truncate = flags[0], flags[1], flags[2], flags[3], flags[4]
	ref, err := scale.Read(in)
	if err != nil {
		return nil, err
	}
	o.RefNorm = ref
	w.opts = o

	for b := range w.eigsKept {
		var k int32
		if err := binary.Read(in, le, &k); err != nil {
			return nil, errors.Wrapf(err, "read bond %d", b)
		}
		if k < 0 || k > maxBonds {
			return nil, errors.Wrapf(ErrBond, "bond %d keeps %d weights", b, k)
		}
		e := make([]float64, k)
		if err := binary.Read(in, le, e); err != nil {
			return nil, errors.Wrapf(err, "read bond %d", b)
		}
		if k > 0 {
			w.eigsKept[b] = e
		}
	}
	return w, nil
}
