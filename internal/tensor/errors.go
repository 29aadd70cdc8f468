package tensor

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/scale"
)

// Errors returned by tensor operations.
var (
	ErrNullTensor          = errors.New("null tensor")
	ErrInvalidIndex        = errors.New("invalid index")
	ErrDimMismatch         = errors.New("dimension mismatch")
	ErrIncompatibleIndices = errors.New("incompatible index sets")
	ErrNotScalar           = errors.New("tensor is not a scalar")
	ErrZeroScale           = errors.New("cannot scale to zero")
	ErrTooManyIndices      = index.ErrTooManyIndices
	ErrTooBig              = scale.ErrTooBig
)

// wrapIndex annotates ErrInvalidIndex with the offending index.
func wrapIndex(i index.Index, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if !i.IsNull() {
		msg = i.String() + ": " + msg
	}
	return errors.Wrap(ErrInvalidIndex, msg)
}

// wrapDims reports a matrix whose shape does not fit (rows, cols).
func wrapDims(r, c int, rows, cols index.Index) error {
	return errors.Wrapf(ErrDimMismatch, "%dx%d matrix for %s,%s", r, c, rows, cols)
}
