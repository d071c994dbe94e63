package logio

import (
	"bufio"
	"fmt"
	"io"

	"github.com/tomato42/fsresck/errs"
	"github.com/tomato42/fsresck/write"
)

// Writer appends LogRecords to an underlying io.Writer.
//
// Writer does not buffer across calls to Append: each call writes a
// complete header+payload frame and flushes it to the underlying
// io.Writer before returning. capture.Disk does not use Writer; it
// frames and syncs its own records.
type Writer struct {
	w *bufio.Writer
}

// NewWriter wraps w for appending LogRecords.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Append encodes one Write as a LogRecord and writes header+payload,
// flushing before returning. It returns the total number of bytes
// written (HeaderSize + len(data)).
func (lw *Writer) Append(w write.Write) (int, error) {
	if len(w.Data) > int(^uint32(0)>>1) {
		return 0, fmt.Errorf("logio: payload too large: %w", errs.BadArgument)
	}

	start, end := 0.0, 0.0
	if w.StartTime != nil {
		start = *w.StartTime
	}
	if w.EndTime != nil {
		end = *w.EndTime
	}

	hdr := Header{
		Operation: OpWrite,
		StartTime: start,
		EndTime:   end,
		Offset:    w.Offset,
		Length:    int32(len(w.Data)),
	}

	buf := make([]byte, HeaderSize)
	hdr.Encode(buf)

	n1, err := lw.w.Write(buf)
	if err != nil {
		return n1, fmt.Errorf("logio: write header: %w", err)
	}
	n2, err := lw.w.Write(w.Data)
	if err != nil {
		return n1 + n2, fmt.Errorf("logio: write payload: %w", err)
	}
	if err := lw.w.Flush(); err != nil {
		return n1 + n2, fmt.Errorf("logio: flush: %w", err)
	}
	return n1 + n2, nil
}
