// Package logio implements the write-log's on-disk framing: a flat,
// checksum-less, header-less-at-the-file-level sequence of fixed-width
// record headers each followed by a variable-length payload.
//
// There is no file magic, no index, and no trailer — the file is exactly
// the concatenation of records, and a reader that reaches a clean EOF at
// a record boundary has read the whole thing. This mirrors the capture
// plugin's append-only write pattern: each pwrite() appends exactly one
// record, so a valid log is always some non-negative number of complete
// records.
package logio

import (
	"io"
	"math"

	"github.com/tomato42/fsresck/errs"
	"github.com/tomato42/fsresck/internal/encoding"
)

func float64bits(f float64) uint64    { return math.Float64bits(f) }
func float64frombits(b uint64) float64 { return math.Float64frombits(b) }

// HeaderSize is the fixed size, in bytes, of a LogRecord header:
// operation(4) + start_time(8) + end_time(8) + offset(8) + length(4).
const HeaderSize = 4 + 8 + 8 + 8 + 4

// Operation codes. OpNone records carry no payload of interest and are
// skipped by Reader.Next rather than surfaced as a write.Write — see
// Reader.Next for the full rationale.
const (
	OpNone  uint32 = 0
	OpWrite uint32 = 1
)

// Header is the fixed-width, big-endian preamble of one LogRecord.
type Header struct {
	Operation uint32
	StartTime float64
	EndTime   float64
	Offset    uint64
	Length    int32
}

// Encode writes h to dst, which must be at least HeaderSize bytes.
func (h Header) Encode(dst []byte) {
	encoding.EncodeFixed32BE(dst[0:4], h.Operation)
	encoding.EncodeFixed64BE(dst[4:12], float64bits(h.StartTime))
	encoding.EncodeFixed64BE(dst[12:20], float64bits(h.EndTime))
	encoding.EncodeFixed64BE(dst[20:28], h.Offset)
	encoding.EncodeFixed32BESigned(dst[28:32], h.Length)
}

// DecodeHeader decodes a Header from src, which must be at least
// HeaderSize bytes.
func DecodeHeader(src []byte) Header {
	return Header{
		Operation: encoding.DecodeFixed32BE(src[0:4]),
		StartTime: float64frombits(encoding.DecodeFixed64BE(src[4:12])),
		EndTime:   float64frombits(encoding.DecodeFixed64BE(src[12:20])),
		Offset:    encoding.DecodeFixed64BE(src[20:28]),
		Length:    encoding.DecodeFixed32BESigned(src[28:32]),
	}
}

// ReadHeader reads and decodes one Header from r.
//
// A clean EOF (zero bytes read) returns io.EOF unchanged so callers can
// distinguish "no more records" from "truncated mid-record". Any other
// short read (1..HeaderSize-1 bytes available) returns errs.TruncatedFile.
func ReadHeader(r io.Reader) (Header, error) {
	buf := make([]byte, HeaderSize)
	n, err := io.ReadFull(r, buf)
	if err == io.EOF && n == 0 {
		return Header{}, io.EOF
	}
	if err != nil {
		return Header{}, errs.TruncatedFile
	}
	return DecodeHeader(buf), nil
}
