// Package encoding provides the fixed-width binary encode/decode primitives
// shared by the write-log framing (logio) and NBD wire framing (nbd)
// packages.
//
// The write-log record header and the NBD request/response headers are both
// flat, fixed-width, checksum-less structures — no varints, no length-
// prefixed slices — so this package only needs the fixed-width half of a
// typical coding helper package. Both byte orders are provided, but both
// wire formats are big-endian: the write-log header (matching the original
// capture plugin's use of Python's struct "!" prefix) and the NBD headers.
// No wire format in this module uses the little-endian helpers.
package encoding

import "encoding/binary"

// EncodeFixed16 encodes a uint16 into a 2-byte little-endian buffer.
// REQUIRES: dst has at least 2 bytes.
func EncodeFixed16(dst []byte, value uint16) {
	binary.LittleEndian.PutUint16(dst, value)
}

// DecodeFixed16 decodes a uint16 from a 2-byte little-endian buffer.
// REQUIRES: src has at least 2 bytes.
func DecodeFixed16(src []byte) uint16 {
	return binary.LittleEndian.Uint16(src)
}

// EncodeFixed32 encodes a uint32 into a 4-byte little-endian buffer.
// REQUIRES: dst has at least 4 bytes.
func EncodeFixed32(dst []byte, value uint32) {
	binary.LittleEndian.PutUint32(dst, value)
}

// DecodeFixed32 decodes a uint32 from a 4-byte little-endian buffer.
// REQUIRES: src has at least 4 bytes.
func DecodeFixed32(src []byte) uint32 {
	return binary.LittleEndian.Uint32(src)
}

// EncodeFixed64 encodes a uint64 into an 8-byte little-endian buffer.
// REQUIRES: dst has at least 8 bytes.
func EncodeFixed64(dst []byte, value uint64) {
	binary.LittleEndian.PutUint64(dst, value)
}

// DecodeFixed64 decodes a uint64 from an 8-byte little-endian buffer.
// REQUIRES: src has at least 8 bytes.
func DecodeFixed64(src []byte) uint64 {
	return binary.LittleEndian.Uint64(src)
}

// -----------------------------------------------------------------------------
// Big-endian fixed-width encoding — write-log and NBD wire formats.
// -----------------------------------------------------------------------------

// EncodeFixed32BE encodes a uint32 into a 4-byte big-endian buffer.
// REQUIRES: dst has at least 4 bytes.
func EncodeFixed32BE(dst []byte, value uint32) {
	binary.BigEndian.PutUint32(dst, value)
}

// DecodeFixed32BE decodes a uint32 from a 4-byte big-endian buffer.
// REQUIRES: src has at least 4 bytes.
func DecodeFixed32BE(src []byte) uint32 {
	return binary.BigEndian.Uint32(src)
}

// EncodeFixed64BE encodes a uint64 into an 8-byte big-endian buffer.
// REQUIRES: dst has at least 8 bytes.
func EncodeFixed64BE(dst []byte, value uint64) {
	binary.BigEndian.PutUint64(dst, value)
}

// DecodeFixed64BE decodes a uint64 from an 8-byte big-endian buffer.
// REQUIRES: src has at least 8 bytes.
func DecodeFixed64BE(src []byte) uint64 {
	return binary.BigEndian.Uint64(src)
}

// EncodeFixed32BESigned encodes an int32 into a 4-byte big-endian buffer.
// REQUIRES: dst has at least 4 bytes.
func EncodeFixed32BESigned(dst []byte, value int32) {
	binary.BigEndian.PutUint32(dst, uint32(value))
}

// DecodeFixed32BESigned decodes an int32 from a 4-byte big-endian buffer.
// REQUIRES: src has at least 4 bytes.
func DecodeFixed32BESigned(src []byte) int32 {
	return int32(binary.BigEndian.Uint32(src))
}
