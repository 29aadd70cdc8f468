package serialization

import (
	"fmt"

	"github.com/pkg/errors"
)

// Errors returned while reading a container.
var (
	ErrChecksumMismatch   = errors.New("tnet: data checksum mismatch")
	ErrInvalidMagic       = errors.New("tnet: not a tnet container")
	ErrUnsupportedVersion = errors.New("tnet: unsupported format version")
	ErrHeaderTooLarge     = errors.New("tnet: header too large")
	ErrTensorNotFound     = errors.New("tnet: no such tensor")
	ErrTruncated          = errors.New("tnet: data section is truncated")
)

// ValidationError describes a malformed header.
type ValidationError struct {
	Kind   string // "gap", "overlap", "invalid_name", ...
	Tensor string // empty when the problem is not tied to one tensor
	Msg    string
}

func (e *ValidationError) Error() string {
	if e.Tensor == "" {
		return fmt.Sprintf("tnet: %s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("tnet: %s: tensor %q: %s", e.Kind, e.Tensor, e.Msg)
}
