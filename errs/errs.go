// Package errs defines the sentinel error kinds shared across this
// module's packages. Every package that can fail wraps one of these with
// fmt.Errorf("...: %w", ...) at the call site rather than returning a
// private error type, so callers can always use errors.Is against this
// package regardless of which component failed.
package errs

import "errors"

var (
	// TruncatedFile indicates a write-log file ended mid-record: a
	// partial header (1..31 bytes) or a header whose declared payload
	// length extends past EOF.
	TruncatedFile = errors.New("fsresck: truncated file")

	// ProtocolMagic indicates a wire message's magic number did not
	// match the expected constant (NBD request/response framing).
	ProtocolMagic = errors.New("fsresck: protocol magic mismatch")

	// ProtocolState indicates a message referenced state or a value
	// outside what the protocol defines, e.g. a write-log record whose
	// Operation code is neither OpNone nor OpWrite.
	ProtocolState = errors.New("fsresck: protocol state error")

	// FSCopyError indicates the image materializer's base-image clone
	// step failed, whether via the CoW/reflink fast path or the
	// sparse-copy fallback.
	FSCopyError = errors.New("fsresck: filesystem copy error")

	// BadArgument indicates a caller-supplied configuration value was
	// invalid: an unrecognized or missing capture.Config key, a write
	// payload too large for a write-log record, and similar.
	BadArgument = errors.New("fsresck: bad argument")

	// IoError wraps an underlying I/O failure (short read/write, seek
	// failure) that doesn't fit one of the more specific kinds above.
	IoError = errors.New("fsresck: i/o error")
)
