// Package fragmenter splits writes into sector-aligned pieces, so a
// shuffler reordering writes at the suffix level still only ever
// reorders whole sectors relative to each other, matching how a real
// block device would interleave concurrent writes.
package fragmenter

import (
	"iter"

	"github.com/tomato42/fsresck/write"
)

// DefaultSectorSize is the default fragment size in bytes.
const DefaultSectorSize = 512

// Fragment splits each write in ws into pieces of at most sectorSize
// bytes, preserving order within a write and across writes, and
// preserving exact byte reconstruction: concatenating a write's
// fragments' Data in order reproduces its original Data, and each
// fragment's Offset is the original Offset plus the number of bytes
// already emitted for that write.
//
// A write whose Data is empty or shorter than sectorSize passes through
// as a single fragment unchanged. sectorSize <= 0 is treated as
// DefaultSectorSize.
func Fragment(ws []write.Write, sectorSize int) iter.Seq[write.Write] {
	if sectorSize <= 0 {
		sectorSize = DefaultSectorSize
	}
	return func(yield func(write.Write) bool) {
		for _, w := range ws {
			if len(w.Data) == 0 {
				if !yield(w) {
					return
				}
				continue
			}
			offset := w.Offset
			for start := 0; start < len(w.Data); start += sectorSize {
				end := start + sectorSize
				if end > len(w.Data) {
					end = len(w.Data)
				}
				frag := write.Write{
					Offset:    offset,
					Data:      w.Data[start:end],
					DiskID:    w.DiskID,
					StartTime: w.StartTime,
					EndTime:   w.EndTime,
				}
				if !yield(frag) {
					return
				}
				offset += uint64(end - start)
			}
		}
	}
}
