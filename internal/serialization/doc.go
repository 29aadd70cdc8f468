// Package serialization implements the .tnet container, a file holding
// named tensors in their bit-exact stream encoding:
//
//	[64 bytes: fixed header]
//	  0x00 magic "TNET"
//	  0x04 version (uint32 LE)
//	  0x08 flags (uint32 LE)
//	  0x10 JSON header size (uint64 LE)
//	  0x18 stored data size (uint64 LE)
//	  0x20 SHA-256 of the uncompressed data section
//	[JSON header]
//	[zero padding to a 64-byte boundary]
//	[data section, zstd-compressed when FlagCompressed is set]
//
// Each tensor occupies [offset, offset+size) of the uncompressed data
// section, written with tensor.Tensor.Write. Tensors are stored in name
// order.
package serialization
