package serialization

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/born-ml/tnet/internal/index"
)

// Validation limits.
const (
	MaxHeaderSize    = 64 << 20
	MaxTensorCount   = 1 << 16
	MaxTensorNameLen = 1024
)

// ValidationLevel controls how strictly a header is checked.
type ValidationLevel int

const (
	// ValidationStrict checks names, index lists and the data layout.
	ValidationStrict ValidationLevel = iota
	// ValidationNormal checks names and index lists.
	ValidationNormal
	// ValidationNone skips validation. Use only with trusted input.
	ValidationNone
)

// ValidateLayout checks that tensors, in header order, are sorted by name
// and packed back to back from offset 0 to exactly dataSize.
func ValidateLayout(tensors []TensorMeta, dataSize int64) error {
	var end int64
	for n, t := range tensors {
		switch {
		case t.Size <= 0:
			return &ValidationError{Kind: "bad_size", Tensor: t.Name, Msg: fmt.Sprintf("size %d", t.Size)}
		case n > 0 && t.Name <= tensors[n-1].Name:
			return &ValidationError{Kind: "unsorted", Tensor: t.Name, Msg: fmt.Sprintf("follows %q", tensors[n-1].Name)}
		case t.Offset < end:
			return &ValidationError{Kind: "overlap", Tensor: t.Name, Msg: fmt.Sprintf("starts at %d, previous ends at %d", t.Offset, end)}
		case t.Offset > end:
			return &ValidationError{Kind: "gap", Tensor: t.Name, Msg: fmt.Sprintf("starts at %d, previous ends at %d", t.Offset, end)}
		case t.Offset+t.Size > dataSize:
			return &ValidationError{Kind: "out_of_bounds", Tensor: t.Name, Msg: fmt.Sprintf("ends at %d of %d", t.Offset+t.Size, dataSize)}
		}
		end = t.Offset + t.Size
	}
	if end != dataSize {
		return &ValidationError{Kind: "gap", Msg: fmt.Sprintf("tensors end at %d, data section has %d bytes", end, dataSize)}
	}
	return nil
}

// ValidateTensorName rejects empty or overlong names, control characters
// and anything that reads as a path.
func ValidateTensorName(name string) error {
	bad := func(msg string) error {
		return &ValidationError{Kind: "invalid_name", Tensor: name, Msg: msg}
	}
	if name == "" {
		return bad("empty")
	}
	if len(name) > MaxTensorNameLen {
		return bad(fmt.Sprintf("%d bytes, max %d", len(name), MaxTensorNameLen))
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return bad("looks like a path")
	}
	if strings.ContainsFunc(name, unicode.IsControl) {
		return bad("control character")
	}
	return nil
}

// validateIndices checks the index list recorded for t: names must be
// present and the rank, counting ReIm for complex tensors, at most
// index.MaxRank.
func validateIndices(t TensorMeta) error {
	r := len(t.Indices)
	if t.Complex {
		r++
	}
	if r > index.MaxRank {
		return &ValidationError{Kind: "rank", Tensor: t.Name, Msg: fmt.Sprintf("%d indices, max %d", r, index.MaxRank)}
	}
	for _, n := range t.Indices {
		if n == "" {
			return &ValidationError{Kind: "rank", Tensor: t.Name, Msg: "unnamed index"}
		}
	}
	return nil
}

// ValidateHeader checks h at the given level.
func ValidateHeader(h *Header, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}
	if len(h.Tensors) > MaxTensorCount {
		return &ValidationError{Kind: "too_many_tensors", Msg: fmt.Sprintf("%d, max %d", len(h.Tensors), MaxTensorCount)}
	}
	if h.DataSize < 0 {
		return &ValidationError{Kind: "bad_size", Msg: fmt.Sprintf("data section of %d bytes", h.DataSize)}
	}
	seen := make(map[string]struct{}, len(h.Tensors))
	for _, t := range h.Tensors {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
		if _, dup := seen[t.Name]; dup {
			return &ValidationError{Kind: "duplicate_name", Tensor: t.Name, Msg: "listed twice"}
		}
		seen[t.Name] = struct{}{}
		if err := validateIndices(t); err != nil {
			return err
		}
	}
	if level == ValidationStrict {
		return ValidateLayout(h.Tensors, h.DataSize)
	}
	return nil
}
