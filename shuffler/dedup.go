package shuffler

import (
	"encoding/binary"

	"github.com/tomato42/fsresck/write"
	"github.com/zeebo/xxh3"
)

// canonicalBytes encodes w into a short form suitable for hashing (16
// bytes, or 24 when DiskID is set):
// its identity for dedup purposes is offset, disk, and content, never
// StartTime/EndTime. Data is folded into an 8-byte content digest
// rather than copied in full, so building a dedup key costs O(1) per
// write regardless of payload size.
func canonicalBytes(w write.Write) []byte {
	buf := make([]byte, 0, 24)
	var off [8]byte
	binary.BigEndian.PutUint64(off[:], w.Offset)
	buf = append(buf, off[:]...)

	var digest [8]byte
	binary.BigEndian.PutUint64(digest[:], xxh3.Hash(w.Data))
	buf = append(buf, digest[:]...)

	if w.DiskID != nil {
		var diskDigest [8]byte
		binary.BigEndian.PutUint64(diskDigest[:], xxh3.HashString(*w.DiskID))
		buf = append(buf, diskDigest[:]...)
	}
	return buf
}

// orderedKey hashes ws as an ordered sequence: two sequences with the
// same writes in a different order hash differently.
func orderedKey(ws []write.Write) uint64 {
	h := xxh3.New()
	for _, w := range ws {
		b := canonicalBytes(w)
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(b)))
		h.Write(n[:])
		h.Write(b)
	}
	return h.Sum64()
}

// unorderedKey hashes ws as a set: any permutation of the same writes
// hashes identically, by sorting each write's canonical encoding before
// combining them.
func unorderedKey(ws []write.Write) uint64 {
	encoded := make([][]byte, len(ws))
	for i, w := range ws {
		encoded[i] = canonicalBytes(w)
	}
	sortBytes(encoded)

	h := xxh3.New()
	for _, b := range encoded {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(b)))
		h.Write(n[:])
		h.Write(b)
	}
	return h.Sum64()
}

func sortBytes(bs [][]byte) {
	for i := 1; i < len(bs); i++ {
		for j := i; j > 0 && bytesLess(bs[j], bs[j-1]); j-- {
			bs[j], bs[j-1] = bs[j-1], bs[j]
		}
	}
}

func bytesLess(a, b []byte) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
