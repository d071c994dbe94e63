//go:build linux

package image

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// cloneImage clones src to dst. It tries FICLONE (a same-filesystem CoW
// reflink, instant and space-efficient) first, and falls back to a
// sparse-preserving byte copy when the destination filesystem doesn't
// support reflinks (FICLONE returns EOPNOTSUPP/EXDEV/EINVAL in that
// case, matching the "cp --reflink=auto" fallback behavior this package
// mirrors).
func cloneImage(src, dst string) error {
	if err := ficlone(src, dst); err == nil {
		return nil
	}
	return sparseCopy(src, dst)
}

func ficlone(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open dest: %w", err)
	}
	defer out.Close()

	if err := unix.IoctlFileClone(int(out.Fd()), int(in.Fd())); err != nil {
		return fmt.Errorf("FICLONE: %w", err)
	}
	return nil
}

// sparseCopy copies src to dst, preserving holes: it walks the file in
// data/hole segments (via SEEK_DATA/SEEK_HOLE) and only writes the data
// segments, leaving the destination's holes as holes rather than runs of
// zero bytes.
func sparseCopy(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	size := info.Size()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open dest: %w", err)
	}
	defer out.Close()

	if err := out.Truncate(size); err != nil {
		return fmt.Errorf("truncate dest to size: %w", err)
	}

	var pos int64
	for pos < size {
		dataStart, err := in.Seek(pos, unix.SEEK_DATA)
		if err != nil {
			// No more data: remainder of the file is a hole, nothing
			// further to copy.
			break
		}

		holeStart, err := in.Seek(dataStart, unix.SEEK_HOLE)
		if err != nil {
			holeStart = size
		}

		if _, err := in.Seek(dataStart, io.SeekStart); err != nil {
			return fmt.Errorf("seek source to data segment: %w", err)
		}
		if _, err := out.Seek(dataStart, io.SeekStart); err != nil {
			return fmt.Errorf("seek dest to data segment: %w", err)
		}
		if _, err := io.CopyN(out, in, holeStart-dataStart); err != nil {
			return fmt.Errorf("copy data segment: %w", err)
		}

		pos = holeStart
	}

	return nil
}
