package serialization

import "time"

// Format constants.
const (
	MagicBytes      = "TNET"
	FormatVersion   = 1
	FixedHeaderSize = 64 // 0x40
	HeaderAlignment = 64
	ChecksumOffset  = 0x20
	ChecksumSize    = 32
)

// Flags of the fixed header.
const (
	FlagCompressed  uint32 = 1 << 0 // data section is zstd-compressed
	FlagHasMetadata uint32 = 1 << 1
)

// Header is the JSON header of a .tnet file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	CreatedAt     time.Time         `json:"created_at"`
	DataSize      int64             `json:"data_size"` // uncompressed
	Tensors       []TensorMeta      `json:"tensors"`
	Metadata      map[string]string `json:"metadata"`
}

// TensorMeta locates one tensor in the uncompressed data section.
type TensorMeta struct {
	Name    string   `json:"name"`
	Indices []string `json:"indices"` // for display only
	Complex bool     `json:"complex,omitempty"`
	Offset  int64    `json:"offset"`
	Size    int64    `json:"size"`
}

// Find returns the entry named name.
func (h *Header) Find(name string) (TensorMeta, bool) {
	for _, t := range h.Tensors {
		if t.Name == name {
			return t, true
		}
	}
	return TensorMeta{}, false
}

func padding(pos int64) int64 {
	return (HeaderAlignment - pos%HeaderAlignment) % HeaderAlignment
}
