package capture

import (
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/tomato42/fsresck/internal/logging"
	"github.com/tomato42/fsresck/internal/testutil"
	"github.com/tomato42/fsresck/logio"
)

// ErrZeroNotSupported is returned by Zero when mayTrim is false and the
// backing store has no way to guarantee a real zero-fill without it.
var ErrZeroNotSupported = syscall.EOPNOTSUPP

// Disk is a Plugin backed by a local file, capturing every Pwrite/Zero
// call to a write-log file via logio.
//
// Disk is safe for concurrent use: all operations that touch the log
// file hold a single mutex, matching the host contract that serializes
// callbacks into one plugin handle per connection.
type Disk struct {
	mu      sync.Mutex
	backing *os.File
	log     *os.File
	logger  logging.Logger
}

// Open opens cfg.Disk as the backing store and cfg.Log as the capture
// log (created if absent, appended to if present), returning a ready
// Disk.
func Open(cfg Config, readonly bool) (*Disk, error) {
	flag := os.O_RDWR
	if readonly {
		flag = os.O_RDONLY
	}
	backing, err := os.OpenFile(cfg.Disk, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("capture: open backing disk %q: %w", cfg.Disk, err)
	}

	logFile, err := os.OpenFile(cfg.Log, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		backing.Close()
		return nil, fmt.Errorf("capture: open log %q: %w", cfg.Log, err)
	}

	if err := recoverTrailingFrame(logFile); err != nil {
		backing.Close()
		logFile.Close()
		return nil, fmt.Errorf("capture: recover log %q: %w", cfg.Log, err)
	}

	return &Disk{backing: backing, log: logFile, logger: logging.Discard}, nil
}

// recoverTrailingFrame scans f from the start for the longest prefix of
// complete LogRecords and truncates away anything after it.
//
// This is what actually makes the capture log crash-safe: a process
// killed mid-frame (by a real crash, or by a kill point in tests) leaves
// a partial header or a header with a short payload at the end of the
// file. The next Open call truncates that partial record back to the
// previous record boundary before any new frame is appended, so a
// consumer of the log never has to special-case a trailing partial
// record — only a capture.Disk that crashed and was never reopened would
// leave one behind.
func recoverTrailingFrame(f *os.File) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	var validLen int64
	buf := make([]byte, logio.HeaderSize)
	for {
		n, err := io.ReadFull(f, buf)
		if err == io.EOF && n == 0 {
			break
		}
		if err != nil {
			// Partial header: the frame before validLen is the last
			// complete one.
			break
		}

		hdr := logio.DecodeHeader(buf)
		if hdr.Length < 0 {
			break
		}

		if hdr.Length > 0 {
			if _, err := io.CopyN(io.Discard, f, int64(hdr.Length)); err != nil {
				break
			}
		}

		validLen += int64(logio.HeaderSize) + int64(hdr.Length)
	}

	if err := f.Truncate(validLen); err != nil {
		return err
	}
	_, err := f.Seek(0, io.SeekEnd)
	return err
}

// SetLogger installs a logger for diagnostic output; the default is
// logging.Discard.
func (d *Disk) SetLogger(l logging.Logger) {
	if logging.IsNil(l) {
		l = logging.Discard
	}
	d.logger = l
}

// GetSize implements Plugin.
func (d *Disk) GetSize() (int64, error) {
	info, err := d.backing.Stat()
	if err != nil {
		return 0, fmt.Errorf("capture: stat backing disk: %w", err)
	}
	return info.Size(), nil
}

// Pread implements Plugin.
func (d *Disk) Pread(data []byte, offset uint64) (int, error) {
	n, err := d.backing.ReadAt(data, int64(offset))
	if err != nil {
		return n, fmt.Errorf("capture: pread at %d: %w", offset, err)
	}
	return n, nil
}

// Pwrite implements Plugin. It writes to the backing disk first, then
// appends a LogRecord for the write; StartTime is captured before the
// write begins and EndTime after it completes, bracketing exactly the
// window a consumer would want to know was "in flight" when reasoning
// about reorderings across a crash.
func (d *Disk) Pwrite(data []byte, offset uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := monotonicNanos()
	_, err := d.backing.WriteAt(data, int64(offset))
	end := monotonicNanos()
	if err != nil {
		return fmt.Errorf("capture: pwrite at %d: %w", offset, err)
	}

	return d.logFrame(offset, data, start, end)
}

// Zero implements Plugin. When mayTrim is false, Zero refuses rather
// than silently falling back to a trim that might not actually zero the
// bytes — a caller asking for a guaranteed zero-fill needs it captured
// like any other write.
func (d *Disk) Zero(length int, offset uint64, mayTrim bool) error {
	if !mayTrim {
		return fmt.Errorf("capture: zero at %d without trim: %w", offset, ErrZeroNotSupported)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	data := make([]byte, length)
	start := monotonicNanos()
	_, err := d.backing.WriteAt(data, int64(offset))
	end := monotonicNanos()
	if err != nil {
		return fmt.Errorf("capture: zero at %d: %w", offset, err)
	}

	return d.logFrame(offset, data, start, end)
}

// Close implements Plugin.
func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err1 := d.backing.Close()
	err2 := d.log.Close()
	if err1 != nil {
		return fmt.Errorf("capture: close backing disk: %w", err1)
	}
	if err2 != nil {
		return fmt.Errorf("capture: close log: %w", err2)
	}
	return nil
}

// logFrame appends one LogRecord for a completed write. If writing the
// frame fails partway through, the log file is truncated back to the
// offset recorded before the frame started, so a reader never observes a
// partial record at the end of the file — only a fully-written record or
// none at all.
func (d *Disk) logFrame(offset uint64, data []byte, start, end int64) error {
	priorOffset, err := d.log.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("capture: seek log: %w", err)
	}

	hdr := logio.Header{
		Operation: logio.OpWrite,
		StartTime: float64(start),
		EndTime:   float64(end),
		Offset:    offset,
		Length:    int32(len(data)),
	}
	buf := make([]byte, logio.HeaderSize)
	hdr.Encode(buf)

	if _, err := d.log.Write(buf); err != nil {
		d.rollback(priorOffset)
		return fmt.Errorf("capture: write log header: %w", err)
	}
	testutil.MaybeKill(testutil.KPLogFrameHeader)

	if len(data) > 0 {
		if _, err := d.log.Write(data); err != nil {
			d.rollback(priorOffset)
			return fmt.Errorf("capture: write log payload: %w", err)
		}
	}
	testutil.MaybeKill(testutil.KPLogFramePayload)

	if err := d.log.Sync(); err != nil {
		d.rollback(priorOffset)
		return fmt.Errorf("capture: sync log: %w", err)
	}
	testutil.MaybeKill(testutil.KPLogFrameFlush)

	return nil
}

// rollback truncates the log file back to priorOffset, discarding
// whatever partial frame was written. Errors here are logged but not
// returned: the caller already has a more specific error to surface, and
// failing to truncate doesn't change that a TruncatedFile record is at
// worst what a later reader will see (which is exactly the error kind it
// is built to handle).
func (d *Disk) rollback(priorOffset int64) {
	if err := d.log.Truncate(priorOffset); err != nil {
		d.logger.Errorf("%sfailed to truncate log back to %d: %v", logging.NSCapture, priorOffset, err)
		return
	}
	if _, err := d.log.Seek(priorOffset, io.SeekStart); err != nil {
		d.logger.Errorf("%sfailed to reseek log to %d: %v", logging.NSCapture, priorOffset, err)
	}
}

// monotonicNanos returns a wall-clock nanosecond timestamp suitable for
// bracketing a write. Like CLOCK_REALTIME, this is consistent across
// processes on the same node but is not guaranteed monotonic across
// system clock adjustments — the shuffler never relies on these values
// for anything beyond logging/diagnostics.
func monotonicNanos() int64 {
	return time.Now().UnixNano()
}
