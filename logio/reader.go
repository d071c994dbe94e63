package logio

import (
	"errors"
	"fmt"
	"io"

	"github.com/tomato42/fsresck/errs"
	"github.com/tomato42/fsresck/write"
)

// Reader streams write.Write values out of a write-log file.
type Reader struct {
	r io.Reader
}

// NewReader wraps r for streaming decode.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next decodes the next record and returns it as a write.Write.
//
// Records with Operation == OpNone are silently skipped (no write.Write
// is returned for them) and the next real record is decoded instead;
// Next only returns io.EOF once it has run out of records entirely. A
// clean EOF at a record boundary returns io.EOF. Anything else short of
// a full record — 1..HeaderSize-1 header bytes, or a header whose
// Length claims more payload bytes than remain — returns
// errs.TruncatedFile. A header whose Operation is neither OpNone nor
// OpWrite references a record kind this format never defined and
// returns errs.ProtocolState.
func (lr *Reader) Next() (write.Write, error) {
	for {
		hdr, err := ReadHeader(lr.r)
		if errors.Is(err, io.EOF) {
			return write.Write{}, io.EOF
		}
		if err != nil {
			return write.Write{}, err
		}

		if hdr.Operation != OpNone && hdr.Operation != OpWrite {
			return write.Write{}, fmt.Errorf("logio: operation %d: %w", hdr.Operation, errs.ProtocolState)
		}

		if hdr.Length < 0 {
			return write.Write{}, fmt.Errorf("logio: negative length: %w", errs.TruncatedFile)
		}

		payload := make([]byte, hdr.Length)
		if hdr.Length > 0 {
			if _, err := io.ReadFull(lr.r, payload); err != nil {
				return write.Write{}, fmt.Errorf("logio: short payload: %w", errs.TruncatedFile)
			}
		}

		if hdr.Operation == OpNone {
			continue
		}

		w := write.Write{Offset: hdr.Offset, Data: payload}
		start, end := hdr.StartTime, hdr.EndTime
		w = w.SetTimes(start, end)
		return w, nil
	}
}

// ReadAll drains the reader, returning every write.Write in order.
func (lr *Reader) ReadAll() ([]write.Write, error) {
	var out []write.Write
	for {
		w, err := lr.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, w)
	}
}
