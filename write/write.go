// Package write defines the unit of I/O replayed by the rest of this
// module: a single block-device write captured from a live filesystem
// workload.
package write

import (
	"errors"
	"math"
)

// ErrOffsetOverflow is returned by New when offset+len(data) would wrap
// past the maximum representable offset.
var ErrOffsetOverflow = errors.New("write: offset+length overflows")

// Write is a single captured write: "put these bytes at this offset,
// optionally on this disk, optionally during this time window".
//
// Write is an immutable value once constructed; callers that need to
// record capture timestamps after the fact use SetTimes, which returns a
// new Write rather than mutating in place.
type Write struct {
	Offset uint64
	Data   []byte

	// DiskID distinguishes writes captured from different backing disks
	// in a multi-disk capture session. nil means "unspecified disk" and
	// is only ever equal to another nil DiskID, never to a non-nil one
	// that happens to hold the same string — see Equal.
	DiskID *string

	// StartTime and EndTime are nanoseconds since the Unix epoch,
	// bracketing the pwrite() call that produced this write. Both are
	// nil until SetTimes is called; a captured write always has both
	// set, but writes constructed purely for testing often don't.
	StartTime *float64
	EndTime   *float64
}

// New constructs a Write, rejecting an offset/length combination that
// would overflow uint64.
func New(offset uint64, data []byte, diskID *string) (Write, error) {
	if offset > math.MaxUint64-uint64(len(data)) {
		return Write{}, ErrOffsetOverflow
	}
	return Write{Offset: offset, Data: data, DiskID: diskID}, nil
}

// End returns offset+len(data) and whether that addition is valid (did
// not overflow). A Write built via New always reports ok=true; this
// method exists so callers that received a Write from elsewhere (e.g.
// decoded off the wire) can still check before using the result.
func (w Write) End() (end uint64, ok bool) {
	length := uint64(len(w.Data))
	if w.Offset > math.MaxUint64-length {
		return 0, false
	}
	return w.Offset + length, true
}

// SetTimes returns a copy of w with StartTime and EndTime set to the
// given nanosecond timestamps.
func (w Write) SetTimes(start, end float64) Write {
	w.StartTime = &start
	w.EndTime = &end
	return w
}

// Equal reports whether w and other describe the same write.
//
// DiskID comparison is asymmetric only in appearance: nil equals nil,
// and a non-nil DiskID equals another non-nil DiskID only if the
// pointed-to strings match. There is no case where a nil DiskID is
// considered equal to a non-nil one, including a non-nil DiskID holding
// an empty string.
//
// StartTime/EndTime are NOT compared — two writes with identical
// offset/data/disk but different capture timestamps (e.g. one captured
// live, one reconstructed in a test) are still Equal. Capture-time
// metadata exists for diagnostics, not identity.
func (w Write) Equal(other Write) bool {
	if w.Offset != other.Offset {
		return false
	}
	if len(w.Data) != len(other.Data) {
		return false
	}
	for i := range w.Data {
		if w.Data[i] != other.Data[i] {
			return false
		}
	}
	return diskIDEqual(w.DiskID, other.DiskID)
}

func diskIDEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
