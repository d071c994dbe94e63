// Package capture implements the block-device-facing side of the write
// log: a plugin contract modeled on the callbacks an nbdkit-style plugin
// receives from its host (Open/GetSize/Pread/Pwrite/Zero), and a concrete
// implementation, Disk, that passes reads/writes through to a backing
// file while appending a LogRecord to a capture log for every write.
package capture

import (
	"github.com/tomato42/fsresck/errs"
)

var errBadArgument = errs.BadArgument

// Plugin is the callback contract a block-device host drives: open the
// backing store once, then serve an arbitrary number of size queries,
// reads, writes, and zero-fill requests against it.
type Plugin interface {
	// GetSize returns the size in bytes of the backing disk.
	GetSize() (int64, error)

	// Pread reads len(data) bytes starting at offset into data.
	Pread(data []byte, offset uint64) (int, error)

	// Pwrite writes data at offset and captures a LogRecord for it.
	Pwrite(data []byte, offset uint64) error

	// Zero zero-fills length bytes starting at offset. If mayTrim is
	// false the backing store must not use a trim/deallocate fast path
	// even if one is available (the caller needs the zeros to actually
	// be written and captured).
	Zero(length int, offset uint64, mayTrim bool) error

	// Close flushes and releases the backing disk and log file.
	Close() error
}
